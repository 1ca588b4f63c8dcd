package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// ErrNotFound is returned when a timetable does not exist.
var ErrNotFound = errors.New("timetable not found")

// ErrInvalidPageToken is returned when a list call gets a token it did not issue.
var ErrInvalidPageToken = errors.New("invalid page token")

// defaultPageSize is used when a list call passes pageSize <= 0.
const defaultPageSize = 100

// Store defines the interface for all database operations used by the service
type Store interface {
	// SaveTimetable creates or replaces a timetable by ID.
	SaveTimetable(ctx context.Context, t *model.Timetable) error
	GetTimetable(ctx context.Context, id string) (*model.Timetable, error)
	// ListTimetables pages through timetables in ID order, optionally
	// restricted to one mosque.
	ListTimetables(ctx context.Context, mosqueName string, pageSize int32, pageToken string) ([]*model.Timetable, string, error)
	// GetLatestTimetable returns the most recently created timetable for a
	// mosque. A new upload supersedes the previous one wholesale.
	GetLatestTimetable(ctx context.Context, mosqueName string) (*model.Timetable, error)
	DeleteTimetable(ctx context.Context, id string) error
}

// EncodePageToken encodes a document ID into a page token.
func EncodePageToken(docID string) string {
	if docID == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(docID))
}

// DecodePageToken decodes a page token back to a document ID.
func DecodePageToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	return string(b), nil
}

func normalizePageSize(pageSize int32) int32 {
	if pageSize <= 0 {
		return defaultPageSize
	}
	return pageSize
}
