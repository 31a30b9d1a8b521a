package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/linksight/gateway/internal/model"
	"github.com/linksight/gateway/internal/observability"
	amqp "github.com/rabbitmq/amqp091-go"
)

// HashIP returns the hex SHA-256 digest of a visitor address. The hash
// is deterministic and unsalted so the same visitor stays linkable
// across visits for analytics; raw addresses are never persisted.
func HashIP(addr string) string {
	sum := sha256.Sum256([]byte(addr))
	return hex.EncodeToString(sum[:])
}

// VisitRecorder is the storage contract for visit rows.
type VisitRecorder interface {
	Create(ctx context.Context, visit *model.Visit) error
}

// ClickPublisher publishes click events toward the analytics pipeline.
// Satisfied by *amqp.Channel.
type ClickPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// VisitLogger records redirect telemetry. Submit runs the write as a
// detached task so the redirect response never waits on it; failures are
// observed only through logs and metrics.
type VisitLogger struct {
	visits    VisitRecorder
	publisher ClickPublisher
	exchange  string
	logger    *slog.Logger
	timeout   time.Duration

	wg sync.WaitGroup
}

// VisitLoggerInterface defines the contract for click ingestion.
type VisitLoggerInterface interface {
	Submit(ctx context.Context, visit *model.Visit, shortCode string)
}

// NewVisitLogger creates a visit logger. publisher may be nil, in which
// case click events are only persisted, not fanned out.
func NewVisitLogger(visits VisitRecorder, publisher ClickPublisher, exchange string, logger *slog.Logger, timeout time.Duration) *VisitLogger {
	return &VisitLogger{
		visits:    visits,
		publisher: publisher,
		exchange:  exchange,
		logger:    logger,
		timeout:   timeout,
	}
}

// Record persists the visit and best-effort publishes the click event.
// A publish failure does not fail the record; it is logged and counted.
func (l *VisitLogger) Record(ctx context.Context, visit *model.Visit, shortCode string) error {
	if err := l.visits.Create(ctx, visit); err != nil {
		return err
	}

	if l.publisher != nil {
		event := model.ClickEvent{
			URLID:         visit.URLID,
			ShortCode:     shortCode,
			VisitorIPHash: visit.VisitorIPHash,
			UserAgent:     visit.UserAgent,
			Referer:       visit.Referer,
			ClickedAt:     visit.ClickedAt,
		}
		body, err := json.Marshal(event)
		if err == nil {
			err = l.publisher.PublishWithContext(ctx, l.exchange, "", false, false, amqp.Publishing{
				ContentType: "application/json",
				Body:        body,
			})
		}
		if err != nil {
			observability.ClickPublishFailures.Inc()
			l.logger.WarnContext(ctx, "click event publish failed",
				slog.String("short_code", shortCode),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// Submit records the visit on a detached goroutine. The task keeps the
// request's trace context but not its cancellation, so it runs to
// completion after the redirect response is gone. The write's outcome
// never reaches the client.
func (l *VisitLogger) Submit(ctx context.Context, visit *model.Visit, shortCode string) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		if err := l.Record(dctx, visit, shortCode); err != nil {
			observability.VisitLogFailures.Inc()
			l.logger.ErrorContext(dctx, "visit log write failed",
				slog.String("short_code", shortCode),
				slog.String("error", err.Error()))
		}
	}()
}

// Drain blocks until all in-flight visit writes finish or ctx expires.
// Called on shutdown.
func (l *VisitLogger) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ensure VisitLogger implements VisitLoggerInterface at compile time
var _ VisitLoggerInterface = (*VisitLogger)(nil)
