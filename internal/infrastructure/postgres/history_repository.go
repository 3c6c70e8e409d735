package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// HistoryRepository implements repository.HistoryRepository using PostgreSQL.
type HistoryRepository struct {
	db DBTX
}

// NewHistoryRepository creates a new HistoryRepository instance.
func NewHistoryRepository(db DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record appends a resolution outcome.
func (r *HistoryRepository) Record(ctx context.Context, rec *repository.ResolutionRecord) error {
	const query = `
		INSERT INTO resolutions (
			id, external_id, media_type, title, release_year, season, episode,
			subject_id, source_url, download_endpoint, error_kind, error_message,
			cached, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.ExternalID,
		rec.MediaType.String(),
		nullString(rec.Title),
		nullString(rec.ReleaseYear),
		rec.Season,
		rec.Episode,
		nullString(rec.SubjectID),
		nullString(rec.SourceURL),
		nullString(rec.DownloadEndpoint),
		nullString(string(rec.ErrorKind)),
		nullString(rec.ErrorMessage),
		rec.Cached,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record resolution: %w", err)
	}

	return nil
}

// ListRecent returns up to limit records, newest first.
func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]*repository.ResolutionRecord, error) {
	const query = `
		SELECT id, external_id, media_type, title, release_year, season, episode,
			subject_id, source_url, download_endpoint, error_kind, error_message,
			cached, created_at
		FROM resolutions
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	records := []*repository.ResolutionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resolutions: %w", err)
	}

	return records, nil
}

func scanRecord(row pgx.Row) (*repository.ResolutionRecord, error) {
	var (
		rec       repository.ResolutionRecord
		mediaType string
		title     *string
		year      *string
		subjectID *string
		sourceURL *string
		endpoint  *string
		errKind   *string
		errMsg    *string
	)

	err := row.Scan(
		&rec.ID,
		&rec.ExternalID,
		&mediaType,
		&title,
		&year,
		&rec.Season,
		&rec.Episode,
		&subjectID,
		&sourceURL,
		&endpoint,
		&errKind,
		&errMsg,
		&rec.Cached,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.MediaType = model.MediaType(mediaType)
	rec.Title = deref(title)
	rec.ReleaseYear = deref(year)
	rec.SubjectID = deref(subjectID)
	rec.SourceURL = deref(sourceURL)
	rec.DownloadEndpoint = deref(endpoint)
	rec.ErrorKind = model.ErrorKind(deref(errKind))
	rec.ErrorMessage = deref(errMsg)

	return &rec, nil
}

// nullString returns nil for empty strings, otherwise returns a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Compile-time verification that HistoryRepository implements repository.HistoryRepository.
var _ repository.HistoryRepository = (*HistoryRepository)(nil)
