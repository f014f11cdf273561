package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/repository"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/metrics"
)

const appointmentColumns = `
	id, date, time_slot, room, client_id, client_name,
	professional_id, professional_name, payment_method, status,
	received_value, transfer_value, finance_posted,
	uses_client_package, uses_professional_advance,
	created_at, updated_at
`

type appointmentRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewAppointmentRepository(db *sqlx.DB, m *metrics.Metrics) repository.AppointmentRepository {
	return &appointmentRepository{db: db, metrics: m}
}

func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment, deltas []model.MirrorDelta) (err error) {
	defer track(r.metrics, "appointment_create", time.Now(), &err)

	apt.ID = uuid.New()
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = apt.CreatedAt

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = tx.ExecContext(ctx, query,
		apt.ID, apt.Date, apt.Time, apt.Room, apt.ClientID, apt.ClientName,
		apt.ProfessionalID, apt.ProfessionalName, apt.PaymentMethod, apt.Status,
		apt.ReceivedValue, apt.TransferValue, apt.FinancePosted,
		apt.UsesClientPackage, apt.UsesProfessionalAdvance,
		apt.CreatedAt, apt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if err := applyMirrorDeltas(ctx, tx, deltas); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.Appointment, err error) {
	defer track(r.metrics, "appointment_get", time.Now(), &err)

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var apt model.Appointment
	err = r.db.GetContext(ctx, &apt, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, apt *model.Appointment, deltas []model.MirrorDelta) (err error) {
	defer track(r.metrics, "appointment_update", time.Now(), &err)

	apt.UpdatedAt = time.Now()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE appointments
		SET date = $1, time_slot = $2, room = $3, client_id = $4, client_name = $5,
			professional_id = $6, professional_name = $7, payment_method = $8,
			status = $9, uses_client_package = $10, uses_professional_advance = $11,
			updated_at = $12
		WHERE id = $13
	`
	result, err := tx.ExecContext(ctx, query,
		apt.Date, apt.Time, apt.Room, apt.ClientID, apt.ClientName,
		apt.ProfessionalID, apt.ProfessionalName, apt.PaymentMethod,
		apt.Status, apt.UsesClientPackage, apt.UsesProfessionalAdvance,
		apt.UpdatedAt, apt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound("appointment", nil)
	}

	if err := applyMirrorDeltas(ctx, tx, deltas); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID, deltas []model.MirrorDelta) (err error) {
	defer track(r.metrics, "appointment_delete", time.Now(), &err)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	if err := applyMirrorDeltas(ctx, tx, deltas); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) (_ []*model.Appointment, err error) {
	defer track(r.metrics, "appointment_list", time.Now(), &err)

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.ProfessionalID != nil {
		query += fmt.Sprintf(" AND professional_id = $%d", argCount)
		args = append(args, *filters.ProfessionalID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if filters.StartDate != "" {
		query += fmt.Sprintf(" AND date >= $%d", argCount)
		args = append(args, filters.StartDate)
		argCount++
	}
	if filters.EndDate != "" {
		query += fmt.Sprintf(" AND date <= $%d", argCount)
		args = append(args, filters.EndDate)
		argCount++
	}

	query += " ORDER BY date DESC, time_slot ASC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filters.Limit)
	}

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListAt(ctx context.Context, date, timeSlot string) (_ []*model.Appointment, err error) {
	defer track(r.metrics, "appointment_list_at", time.Now(), &err)

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE date = $1 AND time_slot = $2`

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, date, timeSlot); err != nil {
		return nil, fmt.Errorf("failed to list appointments at slot: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) DeleteByProfessional(ctx context.Context, professionalID uuid.UUID) (err error) {
	defer track(r.metrics, "appointment_delete_by_professional", time.Now(), &err)

	_, err = r.db.ExecContext(ctx, `DELETE FROM appointments WHERE professional_id = $1`, professionalID)
	if err != nil {
		return fmt.Errorf("failed to delete professional appointments: %w", err)
	}
	return nil
}

func (r *appointmentRepository) PostFinance(ctx context.Context, id uuid.UUID, received, transfer float64, posted bool) (err error) {
	defer track(r.metrics, "appointment_post_finance", time.Now(), &err)

	query := `
		UPDATE appointments
		SET received_value = $1, transfer_value = $2, finance_posted = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query, received, transfer, posted, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to post finance values: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound("appointment", nil)
	}
	return nil
}

// applyMirrorDeltas adjusts monthly realized counters inside the caller's
// transaction. The increment happens in SQL so concurrent writers compose
// instead of overwriting each other.
func applyMirrorDeltas(ctx context.Context, tx *sqlx.Tx, deltas []model.MirrorDelta) error {
	const query = `
		INSERT INTO professional_public (id, name, realized_counts)
		VALUES ($1, '', jsonb_build_object($2::text, $3::int))
		ON CONFLICT (id) DO UPDATE
		SET realized_counts = jsonb_set(
			COALESCE(professional_public.realized_counts, '{}'::jsonb),
			ARRAY[$2::text],
			to_jsonb(COALESCE((professional_public.realized_counts->>$2)::int, 0) + $3)
		)
	`
	for _, d := range deltas {
		if _, err := tx.ExecContext(ctx, query, d.ProfessionalID, d.Month, d.Delta); err != nil {
			return fmt.Errorf("failed to adjust realized counter: %w", err)
		}
	}
	return nil
}
