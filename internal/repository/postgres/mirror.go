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

type mirrorRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewMirrorRepository(db *sqlx.DB, m *metrics.Metrics) repository.MirrorRepository {
	return &mirrorRepository{db: db, metrics: m}
}

func (r *mirrorRepository) Upsert(ctx context.Context, pub *model.ProfessionalPublic) (err error) {
	defer track(r.metrics, "mirror_upsert", time.Now(), &err)

	query := `
		INSERT INTO professional_public (id, name, specialty, photo_url, active, realized_counts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = $2, specialty = $3, photo_url = $4, active = $5
	`
	_, err = r.db.ExecContext(ctx, query,
		pub.ID, pub.Name, pub.Specialty, pub.PhotoURL, pub.Active, pub.RealizedCounts,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert public professional: %w", err)
	}
	return nil
}

func (r *mirrorRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.ProfessionalPublic, err error) {
	defer track(r.metrics, "mirror_get", time.Now(), &err)

	query := `
		SELECT id, name, specialty, photo_url, active, realized_counts
		FROM professional_public
		WHERE id = $1
	`
	var pub model.ProfessionalPublic
	err = r.db.GetContext(ctx, &pub, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("public professional", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get public professional: %w", err)
	}
	return &pub, nil
}

func (r *mirrorRepository) List(ctx context.Context) (_ []*model.ProfessionalPublic, err error) {
	defer track(r.metrics, "mirror_list", time.Now(), &err)

	query := `
		SELECT id, name, specialty, photo_url, active, realized_counts
		FROM professional_public
		ORDER BY name ASC
	`
	var pubs []*model.ProfessionalPublic
	if err := r.db.SelectContext(ctx, &pubs, query); err != nil {
		return nil, fmt.Errorf("failed to list public professionals: %w", err)
	}
	return pubs, nil
}

func (r *mirrorRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer track(r.metrics, "mirror_delete", time.Now(), &err)

	_, err = r.db.ExecContext(ctx, `DELETE FROM professional_public WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete public professional: %w", err)
	}
	return nil
}

func (r *mirrorRepository) SetMonthCounts(ctx context.Context, month string, counts map[uuid.UUID]int) (err error) {
	defer track(r.metrics, "mirror_set_month_counts", time.Now(), &err)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Absolute overwrite: this is the drift-correcting self-heal pass,
	// unlike the relative increments applied with appointment writes.
	query := `
		INSERT INTO professional_public (id, name, realized_counts)
		VALUES ($1, '', jsonb_build_object($2::text, $3::int))
		ON CONFLICT (id) DO UPDATE
		SET realized_counts = jsonb_set(
			COALESCE(professional_public.realized_counts, '{}'::jsonb),
			ARRAY[$2::text],
			to_jsonb($3::int)
		)
	`
	for id, n := range counts {
		if _, err := tx.ExecContext(ctx, query, id, month, n); err != nil {
			return fmt.Errorf("failed to set month counter: %w", err)
		}
	}
	return tx.Commit()
}
