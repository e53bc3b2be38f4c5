package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/postgres/generated"
	"github.com/iho/bookkeeper/internal/usecase"
)

// maxOutboxBatch bounds one relay poll regardless of configuration.
const maxOutboxBatch = 1000

var errIncompleteEvent = errors.New("outbox event needs an id, company and event type")

// OutboxRepository stores ledger events in the same unit of work as the
// posting, import or close that raised them.
type OutboxRepository struct {
	queries *generated.Queries
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return newOutboxRepository(pool)
}

func newOutboxRepository(db generated.DBTX) *OutboxRepository {
	return &OutboxRepository{queries: generated.New(db)}
}

// Create records event inside tx. The event becomes visible to the relay only
// when tx commits.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if event.ID == "" || event.CompanyID == "" || event.EventType == "" {
		return errIncompleteEvent
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event.EventType, err)
	}

	return queriesFor(tx).CreateOutboxEvent(ctx, generated.CreateOutboxEventParams{
		ID:            event.ID,
		CompanyID:     event.CompanyID,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		EventType:     event.EventType,
		Payload:       payload,
		CreatedAt:     timeToPgTimestamptz(event.CreatedAt),
		Published:     false,
	})
}

// GetUnpublished returns up to limit pending events, oldest first. limit is
// clamped to [1, maxOutboxBatch].
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	limit = min(max(limit, 1), maxOutboxBatch)

	rows, err := r.queries.GetUnpublishedEvents(ctx, int32(limit))
	if err != nil {
		return nil, err
	}

	events := make([]*domain.OutboxEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := rowToOutboxEvent(row)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	return events, nil
}

// MarkPublished marks an event as delivered to the sink.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return r.queries.MarkEventPublished(ctx, generated.MarkEventPublishedParams{
		ID:          id,
		PublishedAt: timeToPgTimestamptz(publishedAt),
	})
}

// DeletePublished prunes delivered events published before the cutoff.
// Pending events are never pruned.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return r.queries.DeletePublishedEvents(ctx, timeToPgTimestamptz(before))
}

func rowToOutboxEvent(row generated.OutboxEvent) (*domain.OutboxEvent, error) {
	var payload map[string]any
	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode payload of outbox event %s: %w", row.ID, err)
		}
	}

	return &domain.OutboxEvent{
		ID:            row.ID,
		CompanyID:     row.CompanyID,
		AggregateID:   row.AggregateID,
		AggregateType: row.AggregateType,
		EventType:     row.EventType,
		Payload:       payload,
		CreatedAt:     row.CreatedAt.Time,
		PublishedAt:   pgTimestamptzToTime(row.PublishedAt),
		Published:     row.Published,
	}, nil
}

// DiscardOutbox stands in for the outbox when the relay is disabled. Events
// are dropped but counted per type so operators can see what went unsent.
type DiscardOutbox struct {
	mu      sync.Mutex
	dropped map[string]*atomic.Int64
}

// NewDiscardOutbox creates a new DiscardOutbox.
func NewDiscardOutbox() *DiscardOutbox {
	return &DiscardOutbox{dropped: make(map[string]*atomic.Int64)}
}

// Create drops the event.
func (d *DiscardOutbox) Create(_ context.Context, _ usecase.Transaction, event *domain.OutboxEvent) error {
	d.mu.Lock()
	n, ok := d.dropped[event.EventType]
	if !ok {
		n = new(atomic.Int64)
		d.dropped[event.EventType] = n
	}
	d.mu.Unlock()
	n.Add(1)
	return nil
}

// Dropped reports how many events of eventType were discarded.
func (d *DiscardOutbox) Dropped(eventType string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.dropped[eventType]; ok {
		return n.Load()
	}
	return 0
}

func (d *DiscardOutbox) GetUnpublished(context.Context, int) ([]*domain.OutboxEvent, error) {
	return nil, nil
}

func (d *DiscardOutbox) MarkPublished(context.Context, string, time.Time) error { return nil }

func (d *DiscardOutbox) DeletePublished(context.Context, time.Time) error { return nil }
