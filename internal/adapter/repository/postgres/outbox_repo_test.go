package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/bookkeeper/internal/domain"
)

var outboxCols = []string{"id", "company_id", "aggregate_id", "aggregate_type", "event_type", "payload", "created_at", "published_at", "published"}

func TestOutboxRepositoryCreateRejectsIncompleteEvent(t *testing.T) {
	mock := newMockPool(t)
	tx := begin(t, mock)

	ev := domain.NewOutboxEvent("ev1", "", domain.AggregateTypeTransaction, "t1", domain.EventTypeTransactionPosted, nil, time.Now())
	err := newOutboxRepository(mock).Create(context.Background(), tx, ev)
	if !errors.Is(err, errIncompleteEvent) {
		t.Fatalf("expected errIncompleteEvent, got %v", err)
	}
	assertExpectations(t, mock)
}

func TestOutboxRepositoryGetUnpublishedClampsLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int32
	}{
		{"zero", 0, 1},
		{"negative", -5, 1},
		{"configured", 100, 100},
		{"oversized", 50_000, maxOutboxBatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			mock.ExpectQuery("FROM outbox_events").
				WithArgs(tt.want).
				WillReturnRows(mock.NewRows(outboxCols))

			events, err := newOutboxRepository(mock).GetUnpublished(context.Background(), tt.limit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(events) != 0 {
				t.Fatalf("expected no events, got %d", len(events))
			}
			assertExpectations(t, mock)
		})
	}
}

func TestOutboxRepositoryGetUnpublishedDecodesPayload(t *testing.T) {
	mock := newMockPool(t)
	now := time.Now().UTC()
	mock.ExpectQuery("FROM outbox_events").
		WithArgs(int32(10)).
		WillReturnRows(mock.NewRows(outboxCols).
			AddRow("ev1", companyID, "t1", domain.AggregateTypeTransaction, domain.EventTypeTransactionPosted,
				[]byte(`{"number":7,"amount":"1180.00"}`), ts(now), pgtype.Timestamptz{}, false))

	events, err := newOutboxRepository(mock).GetUnpublished(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Payload["amount"] != "1180.00" {
		t.Fatalf("unexpected payload: %v", events[0].Payload)
	}
	if events[0].PublishedAt != nil {
		t.Fatalf("expected pending event, got published at %v", events[0].PublishedAt)
	}
	assertExpectations(t, mock)
}

func TestOutboxRepositoryGetUnpublishedCorruptPayload(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("FROM outbox_events").
		WithArgs(int32(10)).
		WillReturnRows(mock.NewRows(outboxCols).
			AddRow("ev9", companyID, "s1", domain.AggregateTypeStatementEntry, domain.EventTypeStatementMatched,
				[]byte(`{"entry":`), ts(time.Now()), pgtype.Timestamptz{}, false))

	_, err := newOutboxRepository(mock).GetUnpublished(context.Background(), 10)
	if err == nil || !strings.Contains(err.Error(), "ev9") {
		t.Fatalf("expected decode error naming the event, got %v", err)
	}
	assertExpectations(t, mock)
}

func TestDiscardOutboxCountsByType(t *testing.T) {
	d := NewDiscardOutbox()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ev := domain.NewOutboxEvent("ev", companyID, domain.AggregateTypeTransaction, "t1", domain.EventTypeTransactionPosted, nil, time.Now())
		if err := d.Create(ctx, nil, ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	ev := domain.NewOutboxEvent("ev", companyID, domain.AggregateTypeMonthly, "m1", domain.EventTypeMonthClosed, nil, time.Now())
	if err := d.Create(ctx, nil, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := d.Dropped(domain.EventTypeTransactionPosted); got != 3 {
		t.Fatalf("expected 3 dropped postings, got %d", got)
	}
	if got := d.Dropped(domain.EventTypeMonthClosed); got != 1 {
		t.Fatalf("expected 1 dropped close, got %d", got)
	}
	if got := d.Dropped(domain.EventTypeStatementImported); got != 0 {
		t.Fatalf("expected no dropped imports, got %d", got)
	}

	pending, err := d.GetUnpublished(ctx, 10)
	if err != nil || pending != nil {
		t.Fatalf("expected nothing pending, got %v, %v", pending, err)
	}
}
