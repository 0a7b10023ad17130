package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

const auditInsert = `
	INSERT INTO audit_logs (
		id, actor_id, branch_id, action, entity_type, entity_id,
		description, details, severity, status, error_message, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// AuditRepository implements audit log persistence. Rows are append-only.
type AuditRepository struct {
	db querier
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return newAuditRepositoryWithDB(pool)
}

func newAuditRepositoryWithDB(db querier) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a new audit log entry outside of any transaction.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.insert(ctx, r.db, log)
}

// CreateTx inserts a new audit log entry inside tx.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return r.insert(ctx, conn(tx, r.db), log)
}

func (r *AuditRepository) insert(ctx context.Context, q querier, log *domain.AuditLog) error {
	details, err := marshalJSON(log.Details)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, auditInsert,
		log.ID,
		log.ActorID,
		log.BranchID,
		string(log.Action),
		log.EntityType,
		log.EntityID,
		log.Description,
		details,
		string(log.Severity),
		string(log.Status),
		log.ErrorMessage,
		log.CreatedAt,
	)

	return err
}

// List retrieves audit logs with filtering
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, actor_id, branch_id, action, entity_type, entity_id,
		       description, details, severity, status, error_message, created_at
		FROM audit_logs`

	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}

	if filter.BranchID != "" {
		add("branch_id = $%d", filter.BranchID)
	}

	if filter.Action != "" {
		add("action = $%d", string(filter.Action))
	}

	if filter.EntityType != "" {
		add("entity_type = $%d", filter.EntityType)
	}

	if filter.EntityID != "" {
		add("entity_id = $%d", filter.EntityID)
	}

	if filter.Severity != "" {
		add("severity = $%d", string(filter.Severity))
	}

	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}

	if filter.StartDate != nil {
		add("created_at >= $%d", *filter.StartDate)
	}

	if filter.EndDate != nil {
		add("created_at < $%d", *filter.EndDate)
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var (
			log                      domain.AuditLog
			action, severity, status string
			details                  []byte
		)

		err := rows.Scan(
			&log.ID,
			&log.ActorID,
			&log.BranchID,
			&action,
			&log.EntityType,
			&log.EntityID,
			&log.Description,
			&details,
			&severity,
			&status,
			&log.ErrorMessage,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		log.Action = domain.AuditAction(action)
		log.Severity = domain.AuditSeverity(severity)
		log.Status = domain.AuditStatus(status)

		if details != nil {
			_ = json.Unmarshal(details, &log.Details)
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}
