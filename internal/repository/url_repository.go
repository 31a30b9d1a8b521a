package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linksight/gateway/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotFound     = errors.New("url not found")
	ErrCodeConflict = errors.New("short code already exists")
)

// pgUniqueViolation is the PostgreSQL error code for unique-constraint
// violations.
const pgUniqueViolation = "23505"

// URLRepository handles database operations for URLs
type URLRepository struct {
	db *pgxpool.Pool
}

// NewURLRepository creates a new URL repository
func NewURLRepository(db *pgxpool.Pool) *URLRepository {
	return &URLRepository{db: db}
}

// Create inserts a new URL record. Uniqueness of short_code is enforced
// by the database, not by a check-then-insert in the application: a
// concurrent duplicate surfaces here as ErrCodeConflict and the caller
// retries with a fresh code.
func (r *URLRepository) Create(ctx context.Context, url *model.URL) error {
	ctx, span := tracer.Start(ctx, "db.insert",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "INSERT"),
			attribute.String("db.sql.table", "urls"),
			attribute.String("short_code", url.ShortCode),
		),
	)
	defer span.End()

	query := `
		INSERT INTO urls (user_id, original_url, short_code)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(
		ctx,
		query,
		url.UserID,
		url.OriginalURL,
		url.ShortCode,
	).Scan(&url.ID, &url.CreatedAt)

	if err != nil {
		span.RecordError(err)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrCodeConflict
		}
		return err
	}

	return nil
}

// GetByCode retrieves a URL by its short code
func (r *URLRepository) GetByCode(ctx context.Context, code string) (*model.URL, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "urls"),
			attribute.String("short_code", code),
		),
	)
	defer span.End()

	query := `
		SELECT id, user_id, original_url, short_code, created_at
		FROM urls
		WHERE short_code = $1
	`
	var url model.URL
	err := r.db.QueryRow(ctx, query, code).Scan(
		&url.ID,
		&url.UserID,
		&url.OriginalURL,
		&url.ShortCode,
		&url.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, err
	}
	return &url, nil
}

// ListByUser returns all URLs owned by userID, newest first.
func (r *URLRepository) ListByUser(ctx context.Context, userID int64) ([]model.URL, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "urls"),
			attribute.Int64("user_id", userID),
		),
	)
	defer span.End()

	query := `
		SELECT id, user_id, original_url, short_code, created_at
		FROM urls
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	urls := make([]model.URL, 0)
	for rows.Next() {
		var url model.URL
		if err := rows.Scan(&url.ID, &url.UserID, &url.OriginalURL, &url.ShortCode, &url.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, err
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return urls, nil
}

// VerifyOwnership reports whether urlID exists and belongs to userID.
// Queried fresh on every call; ownership is never cached across requests.
func (r *URLRepository) VerifyOwnership(ctx context.Context, urlID, userID int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "urls"),
			attribute.Int64("url_id", urlID),
		),
	)
	defer span.End()

	query := `SELECT id FROM urls WHERE id = $1 AND user_id = $2`
	var id int64
	err := r.db.QueryRow(ctx, query, urlID, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		span.RecordError(err)
		return false, err
	}
	return true, nil
}
