package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/repository"
	"github.com/clinicaviva/agenda-api/pkg/metrics"
)

type auditRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewAuditRepository(db *sqlx.DB, m *metrics.Metrics) repository.AuditRepository {
	return &auditRepository{db: db, metrics: m}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) (err error) {
	defer track(r.metrics, "audit_create", time.Now(), &err)

	log.ID = uuid.New()
	log.CreatedAt = time.Now()

	query := `
		INSERT INTO audit_logs (id, actor_id, action, resource, resource_id, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		log.ID, log.ActorID, log.Action, log.Resource, log.ResourceID, log.Changes, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters *model.AuditFilters) (_ []*model.AuditLog, err error) {
	defer track(r.metrics, "audit_list", time.Now(), &err)

	query := `
		SELECT id, actor_id, action, resource, resource_id, changes, created_at
		FROM audit_logs
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.ActorID != "" {
		query += fmt.Sprintf(" AND actor_id = $%d", argCount)
		args = append(args, filters.ActorID)
		argCount++
	}
	if filters.Resource != "" {
		query += fmt.Sprintf(" AND resource = $%d", argCount)
		args = append(args, filters.Resource)
		argCount++
	}
	if filters.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argCount)
		args = append(args, filters.Action)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argCount)
	args = append(args, limit)

	var logs []*model.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (err error) {
	defer track(r.metrics, "audit_delete_before", time.Now(), &err)

	_, err = r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune audit logs: %w", err)
	}
	return nil
}
