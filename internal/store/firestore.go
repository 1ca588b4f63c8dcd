package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

const timetablesCollection = "timetables"

// FirestoreStore implements the Store interface using Firestore
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client: client,
	}
}

// applyCursorPagination adds OrderBy + StartAfter + Limit to a query for cursor-based pagination.
// It fetches pageSize+1 docs so the caller can detect whether a next page exists.
func (s *FirestoreStore) applyCursorPagination(query firestore.Query, pageSize int32, pageToken string) (firestore.Query, error) {
	query = query.OrderBy(firestore.DocumentID, firestore.Asc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return query, err
		}
		query = query.StartAfter(docID)
	}

	query = query.Limit(int(normalizePageSize(pageSize)) + 1) // +1 to detect next page
	return query, nil
}

// SaveTimetable writes the timetable document keyed by its ID.
func (s *FirestoreStore) SaveTimetable(ctx context.Context, t *model.Timetable) error {
	if t.ID == "" {
		return fmt.Errorf("timetable ID is required")
	}
	doc := *t
	doc.MosqueKey = model.MosqueKey(t.MosqueName)
	_, err := s.client.Collection(timetablesCollection).Doc(t.ID).Set(ctx, &doc)
	if err != nil {
		return fmt.Errorf("failed to save timetable: %w", err)
	}
	return nil
}

// GetTimetable retrieves a timetable from Firestore
func (s *FirestoreStore) GetTimetable(ctx context.Context, id string) (*model.Timetable, error) {
	doc, err := s.client.Collection(timetablesCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get timetable: %w", err)
	}

	var t model.Timetable
	if err := doc.DataTo(&t); err != nil {
		return nil, fmt.Errorf("failed to parse timetable: %w", err)
	}
	return &t, nil
}

// ListTimetables lists timetables from Firestore
func (s *FirestoreStore) ListTimetables(ctx context.Context, mosqueName string, pageSize int32, pageToken string) ([]*model.Timetable, string, error) {
	query := s.client.Collection(timetablesCollection).Query
	if key := model.MosqueKey(mosqueName); key != "" {
		query = query.Where("mosqueKey", "==", key)
	}

	query, err := s.applyCursorPagination(query, pageSize, pageToken)
	if err != nil {
		return nil, "", err
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list timetables: %w", err)
	}

	limit := int(normalizePageSize(pageSize))
	var nextPageToken string
	if len(docs) > limit {
		docs = docs[:limit]
		nextPageToken = EncodePageToken(docs[limit-1].Ref.ID)
	}

	timetables := make([]*model.Timetable, 0, len(docs))
	for _, doc := range docs {
		var t model.Timetable
		if err := doc.DataTo(&t); err != nil {
			return nil, "", fmt.Errorf("failed to parse timetable: %w", err)
		}
		timetables = append(timetables, &t)
	}
	return timetables, nextPageToken, nil
}

// GetLatestTimetable needs a composite index on (mosqueKey, createdAt desc).
func (s *FirestoreStore) GetLatestTimetable(ctx context.Context, mosqueName string) (*model.Timetable, error) {
	docs, err := s.client.Collection(timetablesCollection).
		Where("mosqueKey", "==", model.MosqueKey(mosqueName)).
		OrderBy("createdAt", firestore.Desc).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query latest timetable: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no timetable for mosque %q", ErrNotFound, mosqueName)
	}

	var t model.Timetable
	if err := docs[0].DataTo(&t); err != nil {
		return nil, fmt.Errorf("failed to parse timetable: %w", err)
	}
	return &t, nil
}

// DeleteTimetable deletes a timetable from Firestore
func (s *FirestoreStore) DeleteTimetable(ctx context.Context, id string) error {
	ref := s.client.Collection(timetablesCollection).Doc(id)
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete timetable: %w", err)
	}
	return nil
}
