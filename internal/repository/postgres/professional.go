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

const professionalColumns = `
	id, name, email, specialty, phone, address, photo_url, active,
	associated_clients, advance_balance, created_at, updated_at
`

type professionalRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewProfessionalRepository(db *sqlx.DB, m *metrics.Metrics) repository.ProfessionalRepository {
	return &professionalRepository{db: db, metrics: m}
}

func (r *professionalRepository) Create(ctx context.Context, pro *model.Professional) (err error) {
	defer track(r.metrics, "professional_create", time.Now(), &err)

	pro.ID = uuid.New()
	pro.CreatedAt = time.Now()
	pro.UpdatedAt = pro.CreatedAt

	query := `
		INSERT INTO professionals (` + professionalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.ExecContext(ctx, query,
		pro.ID, pro.Name, pro.Email, pro.Specialty, pro.Phone, pro.Address,
		pro.PhotoURL, pro.Active, pro.Clients, pro.AdvanceCreditBalance,
		pro.CreatedAt, pro.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create professional: %w", err)
	}
	return nil
}

func (r *professionalRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.Professional, err error) {
	defer track(r.metrics, "professional_get", time.Now(), &err)

	query := `SELECT ` + professionalColumns + ` FROM professionals WHERE id = $1`

	var pro model.Professional
	err = r.db.GetContext(ctx, &pro, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("professional", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get professional: %w", err)
	}
	return &pro, nil
}

func (r *professionalRepository) Update(ctx context.Context, pro *model.Professional) (err error) {
	defer track(r.metrics, "professional_update", time.Now(), &err)

	pro.UpdatedAt = time.Now()

	query := `
		UPDATE professionals
		SET name = $1, email = $2, specialty = $3, phone = $4, address = $5,
			photo_url = $6, active = $7, associated_clients = $8,
			advance_balance = $9, updated_at = $10
		WHERE id = $11
	`
	result, err := r.db.ExecContext(ctx, query,
		pro.Name, pro.Email, pro.Specialty, pro.Phone, pro.Address,
		pro.PhotoURL, pro.Active, pro.Clients, pro.AdvanceCreditBalance,
		pro.UpdatedAt, pro.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update professional: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound("professional", nil)
	}
	return nil
}

func (r *professionalRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer track(r.metrics, "professional_delete", time.Now(), &err)

	_, err = r.db.ExecContext(ctx, `DELETE FROM professionals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete professional: %w", err)
	}
	return nil
}

func (r *professionalRepository) List(ctx context.Context) (_ []*model.Professional, err error) {
	defer track(r.metrics, "professional_list", time.Now(), &err)

	query := `SELECT ` + professionalColumns + ` FROM professionals ORDER BY name ASC`

	var pros []*model.Professional
	if err := r.db.SelectContext(ctx, &pros, query); err != nil {
		return nil, fmt.Errorf("failed to list professionals: %w", err)
	}
	return pros, nil
}

func (r *professionalRepository) ListActive(ctx context.Context) (_ []*model.Professional, err error) {
	defer track(r.metrics, "professional_list_active", time.Now(), &err)

	query := `SELECT ` + professionalColumns + ` FROM professionals WHERE active ORDER BY name ASC`

	var pros []*model.Professional
	if err := r.db.SelectContext(ctx, &pros, query); err != nil {
		return nil, fmt.Errorf("failed to list active professionals: %w", err)
	}
	return pros, nil
}

func (r *professionalRepository) StripClientRef(ctx context.Context, clientID uuid.UUID) (err error) {
	defer track(r.metrics, "professional_strip_client_ref", time.Now(), &err)

	query := `
		UPDATE professionals
		SET associated_clients = COALESCE((
			SELECT jsonb_agg(elem)
			FROM jsonb_array_elements(associated_clients) elem
			WHERE elem->>'id' <> $1
		), '[]'::jsonb),
		updated_at = $2
		WHERE associated_clients @> jsonb_build_array(jsonb_build_object('id', $1::text))
	`
	if _, err := r.db.ExecContext(ctx, query, clientID.String(), time.Now()); err != nil {
		return fmt.Errorf("failed to strip client reference: %w", err)
	}
	return nil
}

func (r *professionalRepository) GetAdvanceBalance(ctx context.Context, id uuid.UUID) (_ int, err error) {
	defer track(r.metrics, "professional_get_advance_balance", time.Now(), &err)

	var balance int
	err = r.db.GetContext(ctx, &balance, `SELECT advance_balance FROM professionals WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return 0, errors.NotFound("professional", err)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get advance balance: %w", err)
	}
	return balance, nil
}

func (r *professionalRepository) SetAdvanceBalance(ctx context.Context, id uuid.UUID, balance int) (err error) {
	defer track(r.metrics, "professional_set_advance_balance", time.Now(), &err)

	query := `UPDATE professionals SET advance_balance = GREATEST($1, 0), updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, balance, time.Now(), id); err != nil {
		return fmt.Errorf("failed to set advance balance: %w", err)
	}
	return nil
}

func (r *professionalRepository) DecrementAdvanceBalance(ctx context.Context, id uuid.UUID) (_ int, err error) {
	defer track(r.metrics, "professional_decrement_advance_balance", time.Now(), &err)

	query := `
		UPDATE professionals
		SET advance_balance = GREATEST(advance_balance - 1, 0), updated_at = $1
		WHERE id = $2
		RETURNING advance_balance
	`
	var balance int
	err = r.db.GetContext(ctx, &balance, query, time.Now(), id)
	if err == sql.ErrNoRows {
		return 0, errors.NotFound("professional", err)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to decrement advance balance: %w", err)
	}
	return balance, nil
}
