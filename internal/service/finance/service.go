package finance

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/repository"
	"github.com/clinicaviva/agenda-api/internal/service/audit"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/logger"
)

// ProfessionalTotals aggregates one professional's month in the summary.
type ProfessionalTotals struct {
	ProfessionalID   uuid.UUID `json:"professionalId"`
	ProfessionalName string    `json:"professionalName"`
	Sessions         int       `json:"sessions"`
	Received         float64   `json:"received"`
	Transfer         float64   `json:"transfer"`
}

// Summary is the monthly financial view. ClinicShare is what stays with
// the clinic after professional transfers.
type Summary struct {
	Month           string               `json:"month"`
	Sessions        int                  `json:"sessions"`
	Received        float64              `json:"received"`
	Transfer        float64              `json:"transfer"`
	ClinicShare     float64              `json:"clinicShare"`
	ByPaymentMethod map[string]float64   `json:"byPaymentMethod"`
	ByProfessional  []ProfessionalTotals `json:"byProfessional"`
	Pending         []*model.Appointment `json:"pending"`
}

type Service struct {
	appointments repository.AppointmentRepository
	audit        *audit.Service
	validate     *validator.Validate
	logger       *logger.Logger
}

func NewService(appointments repository.AppointmentRepository, auditSvc *audit.Service, log *logger.Logger) *Service {
	return &Service{
		appointments: appointments,
		audit:        auditSvc,
		validate:     validator.New(),
		logger:       log,
	}
}

// financeStatuses are the statuses that reach the financial view. A
// plain scheduled cell has no money attached yet; changed and cancelled
// sessions keep theirs because fees may still apply.
func financeRelevant(status model.AppointmentStatus) bool {
	switch status {
	case model.StatusRealized, model.StatusChanged, model.StatusCancelled:
		return true
	}
	return false
}

// MonthSummary aggregates a month's finance-relevant appointments. A nil
// professionalID gives the clinic-wide admin view; a set one scopes the
// summary to that professional's panel.
func (s *Service) MonthSummary(ctx context.Context, month string, professionalID *uuid.UUID) (*Summary, error) {
	if len(month) != 7 {
		return nil, errors.BadRequest("month must be YYYY-MM", nil)
	}

	appointments, err := s.appointments.List(ctx, &model.AppointmentFilters{
		StartDate:      month + "-01",
		EndDate:        month + "-31",
		ProfessionalID: professionalID,
	})
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Month:           month,
		ByPaymentMethod: make(map[string]float64),
	}
	perPro := make(map[uuid.UUID]*ProfessionalTotals)
	var proOrder []uuid.UUID

	for _, a := range appointments {
		if !financeRelevant(a.Status) {
			continue
		}

		summary.Sessions++
		summary.Received += a.ReceivedValue
		summary.Transfer += a.TransferValue
		if a.ReceivedValue != 0 {
			summary.ByPaymentMethod[string(a.PaymentMethod)] += a.ReceivedValue
		}

		totals, ok := perPro[a.ProfessionalID]
		if !ok {
			totals = &ProfessionalTotals{ProfessionalID: a.ProfessionalID, ProfessionalName: a.ProfessionalName}
			perPro[a.ProfessionalID] = totals
			proOrder = append(proOrder, a.ProfessionalID)
		}
		totals.Sessions++
		totals.Received += a.ReceivedValue
		totals.Transfer += a.TransferValue

		if !a.FinancePosted {
			summary.Pending = append(summary.Pending, a)
		}
	}

	summary.ClinicShare = summary.Received - summary.Transfer
	for _, id := range proOrder {
		summary.ByProfessional = append(summary.ByProfessional, *perPro[id])
	}
	return summary, nil
}

// PostFinance records the confirmed money of an appointment and marks it
// posted. Posted values are the ledger of record; reposting overwrites.
func (s *Service) PostFinance(ctx context.Context, actorID string, id uuid.UUID, req *model.PostFinanceRequest) (*model.Appointment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.BadRequest("invalid finance payload", err)
	}

	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !financeRelevant(apt.Status) {
		return nil, errors.BadRequest("appointment has no financial standing yet", nil)
	}

	if err := s.appointments.PostFinance(ctx, id, req.ReceivedValue, req.TransferValue, req.FinancePosted); err != nil {
		return nil, err
	}
	apt.ReceivedValue = req.ReceivedValue
	apt.TransferValue = req.TransferValue
	apt.FinancePosted = req.FinancePosted

	s.audit.Log(ctx, actorID, audit.ActionPostFinance, audit.ResourceAppointment, id.String(), model.JSONMap{
		"received": req.ReceivedValue, "transfer": req.TransferValue, "posted": req.FinancePosted,
	})
	return apt, nil
}
