package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/model"
)

// All repository interfaces in one file
type (
	// AppointmentRepository persists grid cells. Mutations take the
	// mirror deltas computed for the transition and apply them in the
	// same transaction, so an appointment write and its realized-count
	// adjustments commit or fail together.
	AppointmentRepository interface {
		Create(ctx context.Context, apt *model.Appointment, deltas []model.MirrorDelta) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, apt *model.Appointment, deltas []model.MirrorDelta) error
		Delete(ctx context.Context, id uuid.UUID, deltas []model.MirrorDelta) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// ListAt returns every appointment occupying the given date and
		// hour slot, across all rooms. Conflict checks run over this set.
		ListAt(ctx context.Context, date, timeSlot string) ([]*model.Appointment, error)
		DeleteByProfessional(ctx context.Context, professionalID uuid.UUID) error
		PostFinance(ctx context.Context, id uuid.UUID, received, transfer float64, posted bool) error
	}

	ClientRepository interface {
		Create(ctx context.Context, client *model.Client) error
		Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
		Update(ctx context.Context, client *model.Client) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Client, error)
		FirstByCPF(ctx context.Context, cpf string) (*model.Client, error)
		FirstByEmail(ctx context.Context, email string) (*model.Client, error)
		FirstByWhatsApp(ctx context.Context, whatsapp string) (*model.Client, error)
		ListByBirthDate(ctx context.Context, birthDate string) ([]*model.Client, error)
		// DetachProfessional clears the assigned-professional reference
		// from every client pointing at the given professional.
		DetachProfessional(ctx context.Context, professionalID uuid.UUID) error

		GetPackageBalance(ctx context.Context, id uuid.UUID) (int, error)
		SetPackageBalance(ctx context.Context, id uuid.UUID, balance int) error
		// DecrementPackageBalance subtracts one credit, floored at zero,
		// and returns the resulting balance.
		DecrementPackageBalance(ctx context.Context, id uuid.UUID) (int, error)
	}

	ProfessionalRepository interface {
		Create(ctx context.Context, pro *model.Professional) error
		Get(ctx context.Context, id uuid.UUID) (*model.Professional, error)
		Update(ctx context.Context, pro *model.Professional) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Professional, error)
		ListActive(ctx context.Context) ([]*model.Professional, error)
		// StripClientRef removes a deleted client from every
		// professional's associated-clients list.
		StripClientRef(ctx context.Context, clientID uuid.UUID) error

		GetAdvanceBalance(ctx context.Context, id uuid.UUID) (int, error)
		SetAdvanceBalance(ctx context.Context, id uuid.UUID, balance int) error
		DecrementAdvanceBalance(ctx context.Context, id uuid.UUID) (int, error)
	}

	// MirrorRepository maintains the public professional projection the
	// landing page reads. Increment mutations live on the appointment
	// repository so they share its transactions; this repository covers
	// the profile side and the absolute self-heal pass.
	MirrorRepository interface {
		Upsert(ctx context.Context, pub *model.ProfessionalPublic) error
		Get(ctx context.Context, id uuid.UUID) (*model.ProfessionalPublic, error)
		List(ctx context.Context) ([]*model.ProfessionalPublic, error)
		Delete(ctx context.Context, id uuid.UUID) error
		// SetMonthCounts overwrites the given month's counter for every
		// listed professional in one transaction.
		SetMonthCounts(ctx context.Context, month string, counts map[uuid.UUID]int) error
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) error
	}
)
