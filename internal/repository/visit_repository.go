package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linksight/gateway/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// VisitRepository appends visit records. It never reads url rows back;
// the only coupling to urls is the foreign key.
type VisitRepository struct {
	db *pgxpool.Pool
}

// NewVisitRepository creates a new visit repository
func NewVisitRepository(db *pgxpool.Pool) *VisitRepository {
	return &VisitRepository{db: db}
}

// Create appends one visit row. Visits are never updated or deleted.
func (r *VisitRepository) Create(ctx context.Context, visit *model.Visit) error {
	ctx, span := tracer.Start(ctx, "db.insert",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "INSERT"),
			attribute.String("db.sql.table", "visits"),
			attribute.Int64("url_id", visit.URLID),
		),
	)
	defer span.End()

	query := `
		INSERT INTO visits (url_id, visitor_ip_hash, user_agent, referer)
		VALUES ($1, $2, $3, $4)
		RETURNING id, clicked_at
	`
	err := r.db.QueryRow(
		ctx,
		query,
		visit.URLID,
		visit.VisitorIPHash,
		visit.UserAgent,
		visit.Referer,
	).Scan(&visit.ID, &visit.ClickedAt)
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
