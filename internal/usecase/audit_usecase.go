package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iho/branchledger/internal/domain"
)

// AuditUseCase appends audit trail entries.
type AuditUseCase struct {
	auditRepo AuditRepository
	logger    zerolog.Logger
}

// NewAuditUseCase creates a new AuditUseCase.
func NewAuditUseCase(auditRepo AuditRepository, logger zerolog.Logger) *AuditUseCase {
	return &AuditUseCase{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

func (uc *AuditUseCase) prepare(entry *domain.AuditLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if entry.Severity == "" {
		entry.Severity = domain.SeverityLow
	}

	if entry.Status == "" {
		entry.Status = domain.AuditStatusSuccess
	}
}

// Record writes an entry outside of any DB transaction so it survives a
// rolled back settlement. It runs detached from caller cancellation.
func (uc *AuditUseCase) Record(ctx context.Context, entry *domain.AuditLog) error {
	uc.prepare(entry)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := uc.auditRepo.Create(ctx, entry); err != nil {
		uc.logger.Error().
			Err(err).
			Str("action", string(entry.Action)).
			Str("entity_id", entry.EntityID).
			Str("severity", string(entry.Severity)).
			Msg("failed to write audit log")

		return err
	}

	return nil
}

// RecordTx writes an entry inside tx. It commits or rolls back with tx.
func (uc *AuditUseCase) RecordTx(ctx context.Context, tx Transaction, entry *domain.AuditLog) error {
	uc.prepare(entry)

	return uc.auditRepo.CreateTx(ctx, tx, entry)
}

// List returns audit entries matching filter, newest first.
func (uc *AuditUseCase) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)

	return uc.auditRepo.List(ctx, filter)
}

func transactionAudit(txn *domain.Transaction, actor domain.Actor, action domain.AuditAction, severity domain.AuditSeverity, description string) *domain.AuditLog {
	return &domain.AuditLog{
		ActorID:     actor.ID,
		BranchID:    txn.BranchID,
		Action:      action,
		EntityType:  domain.EntityTransaction,
		EntityID:    txn.ID,
		Description: description,
		Details:     domain.JSON{"transaction": domain.MarshalState(domain.NewTransactionEvent(txn, ""))},
		Severity:    severity,
		Status:      domain.AuditStatusSuccess,
	}
}

func failureAudit(txn *domain.Transaction, actor domain.Actor, action domain.AuditAction, severity domain.AuditSeverity, description string, err error) *domain.AuditLog {
	entry := transactionAudit(txn, actor, action, severity, description)
	entry.Status = domain.AuditStatusFailure
	entry.ErrorMessage = err.Error()

	return entry
}
