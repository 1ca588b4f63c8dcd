package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore implements the Store interface on PostgreSQL. Daily times are
// kept as a JSONB array on the timetable row.
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an open connection.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectPostgres opens a PostgreSQL connection, retrying while the database
// starts up.
func ConnectPostgres(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	const maxRetries = 10
	const retryInterval = 2 * time.Second
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		var db *sqlx.DB
		db, err = sqlx.ConnectContext(ctx, "postgres", databaseURL)
		if err == nil {
			log.Info().Str("component", "store").Msg("connected to database")
			return db, nil
		}

		log.Error().Err(err).
			Str("component", "store").
			Int("attempt", attempt).
			Msgf("failed to connect to database, retrying in %s", retryInterval)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", maxRetries, err)
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

type timetableRow struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	MosqueName string    `db:"mosque_name"`
	MosqueKey  string    `db:"mosque_key"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
	Times      []byte    `db:"times"`
	FileURL    string    `db:"file_url"`
}

func toRow(t *model.Timetable) (timetableRow, error) {
	times := t.Times
	if times == nil {
		times = []model.DailyPrayerTime{}
	}
	raw, err := json.Marshal(times)
	if err != nil {
		return timetableRow{}, fmt.Errorf("encode times: %w", err)
	}
	return timetableRow{
		ID:         t.ID,
		UserID:     t.UserID,
		MosqueName: t.MosqueName,
		MosqueKey:  model.MosqueKey(t.MosqueName),
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
		Times:      raw,
		FileURL:    t.FileURL,
	}, nil
}

func (r timetableRow) toModel() (*model.Timetable, error) {
	t := &model.Timetable{
		ID:         r.ID,
		UserID:     r.UserID,
		MosqueName: r.MosqueName,
		MosqueKey:  r.MosqueKey,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
		FileURL:    r.FileURL,
	}
	if err := json.Unmarshal(r.Times, &t.Times); err != nil {
		return nil, fmt.Errorf("decode times for %s: %w", r.ID, err)
	}
	return t, nil
}

const timetableColumns = `id, user_id, mosque_name, mosque_key, created_at, updated_at, times, file_url`

func (s *PostgresStore) SaveTimetable(ctx context.Context, t *model.Timetable) error {
	if t.ID == "" {
		return fmt.Errorf("timetable ID is required")
	}
	row, err := toRow(t)
	if err != nil {
		return err
	}
	query := `
	INSERT INTO timetables (` + timetableColumns + `)
	VALUES (:id, :user_id, :mosque_name, :mosque_key, :created_at, :updated_at, :times, :file_url)
	ON CONFLICT (id) DO UPDATE SET
		user_id = EXCLUDED.user_id,
		mosque_name = EXCLUDED.mosque_name,
		mosque_key = EXCLUDED.mosque_key,
		updated_at = EXCLUDED.updated_at,
		times = EXCLUDED.times,
		file_url = EXCLUDED.file_url;`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save timetable: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTimetable(ctx context.Context, id string) (*model.Timetable, error) {
	var row timetableRow
	query := `SELECT ` + timetableColumns + ` FROM timetables WHERE id = $1;`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get timetable: %w", err)
	}
	return row.toModel()
}

func (s *PostgresStore) ListTimetables(ctx context.Context, mosqueName string, pageSize int32, pageToken string) ([]*model.Timetable, string, error) {
	cursor, err := DecodePageToken(pageToken)
	if err != nil {
		return nil, "", err
	}
	limit := int(normalizePageSize(pageSize))

	query := `
	SELECT ` + timetableColumns + `
	FROM timetables
	WHERE ($1 = '' OR mosque_key = $1) AND id > $2
	ORDER BY id
	LIMIT $3;`

	var rows []timetableRow
	if err := s.db.SelectContext(ctx, &rows, query, model.MosqueKey(mosqueName), cursor, limit+1); err != nil {
		return nil, "", fmt.Errorf("failed to list timetables: %w", err)
	}

	var nextPageToken string
	if len(rows) > limit {
		rows = rows[:limit]
		nextPageToken = EncodePageToken(rows[limit-1].ID)
	}

	timetables := make([]*model.Timetable, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, "", err
		}
		timetables = append(timetables, t)
	}
	return timetables, nextPageToken, nil
}

func (s *PostgresStore) GetLatestTimetable(ctx context.Context, mosqueName string) (*model.Timetable, error) {
	var row timetableRow
	query := `
	SELECT ` + timetableColumns + `
	FROM timetables
	WHERE mosque_key = $1
	ORDER BY created_at DESC
	LIMIT 1;`
	if err := s.db.GetContext(ctx, &row, query, model.MosqueKey(mosqueName)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no timetable for mosque %q", ErrNotFound, mosqueName)
		}
		return nil, fmt.Errorf("failed to get latest timetable: %w", err)
	}
	return row.toModel()
}

func (s *PostgresStore) DeleteTimetable(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete timetable: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete timetable: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
