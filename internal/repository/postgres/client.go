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

const clientColumns = `
	id, name, cpf, whatsapp, email, birth_date,
	address, address_number, district, city, zip,
	guardian_contact, procedure, notes,
	professional_id, professional_name, package_balance,
	created_at, updated_at
`

type clientRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewClientRepository(db *sqlx.DB, m *metrics.Metrics) repository.ClientRepository {
	return &clientRepository{db: db, metrics: m}
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) (err error) {
	defer track(r.metrics, "client_create", time.Now(), &err)

	client.ID = uuid.New()
	client.CreatedAt = time.Now()
	client.UpdatedAt = client.CreatedAt

	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err = r.db.ExecContext(ctx, query,
		client.ID, client.Name, client.CPF, client.WhatsApp, client.Email, client.BirthDate,
		client.Address, client.AddressNumber, client.District, client.City, client.Zip,
		client.GuardianContact, client.Procedure, client.Notes,
		client.ProfessionalID, client.ProfessionalName, client.PackageSessionBalance,
		client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (r *clientRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.Client, err error) {
	defer track(r.metrics, "client_get", time.Now(), &err)

	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	var client model.Client
	err = r.db.GetContext(ctx, &client, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("client", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) (err error) {
	defer track(r.metrics, "client_update", time.Now(), &err)

	client.UpdatedAt = time.Now()

	query := `
		UPDATE clients
		SET name = $1, cpf = $2, whatsapp = $3, email = $4, birth_date = $5,
			address = $6, address_number = $7, district = $8, city = $9, zip = $10,
			guardian_contact = $11, procedure = $12, notes = $13,
			professional_id = $14, professional_name = $15, package_balance = $16,
			updated_at = $17
		WHERE id = $18
	`
	result, err := r.db.ExecContext(ctx, query,
		client.Name, client.CPF, client.WhatsApp, client.Email, client.BirthDate,
		client.Address, client.AddressNumber, client.District, client.City, client.Zip,
		client.GuardianContact, client.Procedure, client.Notes,
		client.ProfessionalID, client.ProfessionalName, client.PackageSessionBalance,
		client.UpdatedAt, client.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound("client", nil)
	}
	return nil
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer track(r.metrics, "client_delete", time.Now(), &err)

	_, err = r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return nil
}

func (r *clientRepository) List(ctx context.Context) (_ []*model.Client, err error) {
	defer track(r.metrics, "client_list", time.Now(), &err)

	query := `SELECT ` + clientColumns + ` FROM clients ORDER BY name ASC`

	var clients []*model.Client
	if err := r.db.SelectContext(ctx, &clients, query); err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

func (r *clientRepository) FirstByCPF(ctx context.Context, cpf string) (*model.Client, error) {
	return r.firstBy(ctx, "cpf", cpf)
}

func (r *clientRepository) FirstByEmail(ctx context.Context, email string) (*model.Client, error) {
	return r.firstBy(ctx, "email", email)
}

func (r *clientRepository) FirstByWhatsApp(ctx context.Context, whatsapp string) (*model.Client, error) {
	return r.firstBy(ctx, "whatsapp", whatsapp)
}

func (r *clientRepository) firstBy(ctx context.Context, column, value string) (_ *model.Client, err error) {
	defer track(r.metrics, "client_lookup", time.Now(), &err)

	query := `SELECT ` + clientColumns + ` FROM clients WHERE ` + column + ` = $1 LIMIT 1`

	var client model.Client
	err = r.db.GetContext(ctx, &client, query, value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up client by %s: %w", column, err)
	}
	return &client, nil
}

func (r *clientRepository) ListByBirthDate(ctx context.Context, birthDate string) (_ []*model.Client, err error) {
	defer track(r.metrics, "client_list_by_birth_date", time.Now(), &err)

	query := `SELECT ` + clientColumns + ` FROM clients WHERE birth_date = $1`

	var clients []*model.Client
	if err := r.db.SelectContext(ctx, &clients, query, birthDate); err != nil {
		return nil, fmt.Errorf("failed to list clients by birth date: %w", err)
	}
	return clients, nil
}

func (r *clientRepository) DetachProfessional(ctx context.Context, professionalID uuid.UUID) (err error) {
	defer track(r.metrics, "client_detach_professional", time.Now(), &err)

	query := `
		UPDATE clients
		SET professional_id = NULL, professional_name = '', updated_at = $1
		WHERE professional_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, time.Now(), professionalID); err != nil {
		return fmt.Errorf("failed to detach professional from clients: %w", err)
	}
	return nil
}

func (r *clientRepository) GetPackageBalance(ctx context.Context, id uuid.UUID) (_ int, err error) {
	defer track(r.metrics, "client_get_package_balance", time.Now(), &err)

	var balance int
	err = r.db.GetContext(ctx, &balance, `SELECT package_balance FROM clients WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return 0, errors.NotFound("client", err)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get package balance: %w", err)
	}
	return balance, nil
}

func (r *clientRepository) SetPackageBalance(ctx context.Context, id uuid.UUID, balance int) (err error) {
	defer track(r.metrics, "client_set_package_balance", time.Now(), &err)

	query := `UPDATE clients SET package_balance = GREATEST($1, 0), updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, balance, time.Now(), id); err != nil {
		return fmt.Errorf("failed to set package balance: %w", err)
	}
	return nil
}

func (r *clientRepository) DecrementPackageBalance(ctx context.Context, id uuid.UUID) (_ int, err error) {
	defer track(r.metrics, "client_decrement_package_balance", time.Now(), &err)

	query := `
		UPDATE clients
		SET package_balance = GREATEST(package_balance - 1, 0), updated_at = $1
		WHERE id = $2
		RETURNING package_balance
	`
	var balance int
	err = r.db.GetContext(ctx, &balance, query, time.Now(), id)
	if err == sql.ErrNoRows {
		return 0, errors.NotFound("client", err)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to decrement package balance: %w", err)
	}
	return balance, nil
}
