package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/metrics"
)

// base carries the collaborators every mutating use case shares.
type base struct {
	txManager  TransactionManager
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	idGen      IDGenerator
	retrier    Retrier
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// inTx runs fn in one unit of work with the default timeout, retrying transient
// database failures when a retrier is configured.
func (b *base) inTx(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx Transaction) error) error {
	run := func() error {
		txCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		tx, err := b.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	}

	if b.retrier == nil {
		return run()
	}
	return b.retrier.Retry(ctx, run)
}

func (b *base) emit(ctx context.Context, tx Transaction, companyID, aggregateType, aggregateID, eventType string, payload map[string]any) error {
	if b.outboxRepo == nil {
		return nil
	}
	event := domain.NewOutboxEvent(b.idGen.Generate(), companyID, aggregateType, aggregateID, eventType, payload, time.Now().UTC())
	return b.outboxRepo.Create(ctx, tx, event)
}

func (b *base) audit(ctx context.Context, tx Transaction, companyID string, action domain.AuditAction, resourceType, resourceID string, before, after any) error {
	if b.auditRepo == nil {
		return nil
	}

	meta := domain.RequestMetaFromContext(ctx)
	auditLog := &domain.AuditLog{
		CompanyID:    companyID,
		UserID:       domain.ActorFromContext(ctx),
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
		BeforeState:  domain.MarshalState(before),
		AfterState:   domain.MarshalState(after),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    time.Now().UTC(),
	}
	return b.auditRepo.CreateTx(ctx, tx, auditLog)
}

func requireCompany(companyID string) error {
	if companyID == "" {
		return domain.NewValidationError("company_id", "company is required")
	}
	return nil
}

func today() time.Time {
	return domain.DateOnly(time.Now().UTC())
}

func errorKind(err error) string {
	switch {
	case domain.IsValidation(err):
		return "validation"
	case domain.IsNotFound(err):
		return "not_found"
	case domain.IsConflict(err):
		return "conflict"
	case domain.IsConfiguration(err):
		return "configuration"
	default:
		return "internal"
	}
}
