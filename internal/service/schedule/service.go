package schedule

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/repository"
	"github.com/clinicaviva/agenda-api/internal/service/audit"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/logger"
	"github.com/clinicaviva/agenda-api/pkg/messaging"
	"github.com/clinicaviva/agenda-api/pkg/metrics"
)

// Service owns the scheduling grid: cell saves and deletes with their
// conflict, balance and mirror semantics, and the read-side projections.
type Service struct {
	appointments repository.AppointmentRepository
	clients      repository.ClientRepository
	pros         repository.ProfessionalRepository
	mirror       repository.MirrorRepository
	ledger       *Ledger
	audit        *audit.Service
	broker       messaging.Broker
	validate     *validator.Validate
	logger       *logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(
	appointments repository.AppointmentRepository,
	clients repository.ClientRepository,
	pros repository.ProfessionalRepository,
	mirror repository.MirrorRepository,
	ledger *Ledger,
	auditSvc *audit.Service,
	broker messaging.Broker,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		appointments: appointments,
		clients:      clients,
		pros:         pros,
		mirror:       mirror,
		ledger:       ledger,
		audit:        auditSvc,
		broker:       broker,
		validate:     validator.New(),
		logger:       log,
		metrics:      m,
		now:          time.Now,
	}
}

// SaveCell creates or rewrites one grid cell. The returned warnings are
// non-fatal operator notices, currently only exhausted credit balances.
//
// Order matters: conflict validation and balance gating both read fresh
// state before the write, and the appointment row commits in the same
// transaction as its mirror deltas. Credit decrements and the audit and
// event publications run after commit and never fail the save.
func (s *Service) SaveCell(ctx context.Context, actorID string, req *model.SaveCellRequest) (*model.Appointment, []string, error) {
	start := s.now()

	if err := s.validate.Struct(req); err != nil {
		return nil, nil, errors.BadRequest("invalid cell payload", err)
	}
	if !model.ValidTimeSlot(req.Time) {
		return nil, nil, errors.BadRequest("time is not a bookable slot", nil)
	}

	pro, err := s.pros.Get(ctx, req.ProfessionalID)
	if err != nil {
		return nil, nil, err
	}

	clientName := ""
	if req.ClientID != nil {
		client, err := s.clients.Get(ctx, *req.ClientID)
		if err != nil {
			return nil, nil, err
		}
		clientName = client.Name
	}

	var old *model.Appointment
	operation := "create"
	if req.ID != nil {
		operation = "update"
		old, err = s.appointments.Get(ctx, *req.ID)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := s.checkSlot(ctx, req, req.ID); err != nil {
		return nil, nil, err
	}

	apt := &model.Appointment{
		Date:                    req.Date,
		Time:                    req.Time,
		Room:                    req.Room,
		ClientID:                req.ClientID,
		ClientName:              clientName,
		ProfessionalID:          req.ProfessionalID,
		ProfessionalName:        pro.Name,
		PaymentMethod:           req.PaymentMethod,
		Status:                  req.Status,
		UsesClientPackage:       req.UsesClientPackage,
		UsesProfessionalAdvance: req.UsesProfessionalAdvance,
	}

	// Every save carrying a credit flag re-reads the live balance,
	// whatever the status. GuardSave is a no-op when no flag is set.
	if err := s.ledger.GuardSave(ctx, apt); err != nil {
		return nil, nil, err
	}

	var deltas []model.MirrorDelta
	if old == nil {
		apt.ID = uuid.New()
		deltas = mirrorDeltasForCreate(apt)
		if err := s.appointments.Create(ctx, apt, deltas); err != nil {
			s.metrics.CellSaves.WithLabelValues(operation, "error").Inc()
			return nil, nil, err
		}
	} else {
		apt.Base = old.Base
		apt.ReceivedValue = old.ReceivedValue
		apt.TransferValue = old.TransferValue
		apt.FinancePosted = old.FinancePosted
		deltas = mirrorDeltasForUpdate(old, apt)
		if err := s.appointments.Update(ctx, apt, deltas); err != nil {
			s.metrics.CellSaves.WithLabelValues(operation, "error").Inc()
			return nil, nil, err
		}
	}
	s.metrics.CellSaves.WithLabelValues(operation, "ok").Inc()
	if len(deltas) > 0 {
		s.metrics.MirrorIncrements.Add(float64(len(deltas)))
	}
	s.metrics.SaveLatency.Observe(s.now().Sub(start).Seconds())

	var warnings []string
	if apt.IsRealized() {
		warnings = s.ledger.ApplyCompletionSideEffects(ctx, apt)
	}

	s.audit.Log(ctx, actorID, operation, audit.ResourceAppointment, apt.ID.String(), model.JSONMap{
		"date": apt.Date, "time": apt.Time, "room": apt.Room, "status": string(apt.Status),
	})
	s.publish(ctx, messaging.EventCellSaved, apt.ID.String(), apt)

	return apt, warnings, nil
}

// DeleteCell removes a grid cell. Deleting an appointment that no longer
// exists is a successful no-op: the grid converged to the desired state.
func (s *Service) DeleteCell(ctx context.Context, actorID string, id uuid.UUID) error {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		if errors.IsCode(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}

	deltas := mirrorDeltasForDelete(apt)
	if err := s.appointments.Delete(ctx, id, deltas); err != nil {
		return err
	}
	s.metrics.CellDeletes.Inc()
	if len(deltas) > 0 {
		s.metrics.MirrorIncrements.Add(float64(len(deltas)))
	}

	s.audit.Log(ctx, actorID, "delete", audit.ResourceAppointment, id.String(), model.JSONMap{
		"date": apt.Date, "time": apt.Time, "room": apt.Room,
	})
	s.publish(ctx, messaging.EventCellDeleted, id.String(), nil)
	return nil
}

// GetCell returns one appointment by id.
func (s *Service) GetCell(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.appointments.Get(ctx, id)
}

// Agenda projects the admin grid for a window. Every load also self-heals
// the public mirror for the current month: the relative increments are
// replaced by absolute recounts, so any drift lasts at most until the
// next admin visit. Best effort; a failed heal never blocks the view.
func (s *Service) Agenda(ctx context.Context, w Window) (*Grid, error) {
	appointments, pros, clients, err := s.loadWindow(ctx, w, nil)
	if err != nil {
		return nil, err
	}

	s.healCurrentMonth(ctx, pros)

	active := ActiveAppointments(appointments, pros, clients)
	return Project(active, w, nil)
}

// MyAgenda projects the grid for one professional's panel. Read-only for
// the caller, so no mirror heal runs here.
func (s *Service) MyAgenda(ctx context.Context, professionalID uuid.UUID, w Window) (*Grid, error) {
	appointments, pros, clients, err := s.loadWindow(ctx, w, &professionalID)
	if err != nil {
		return nil, err
	}
	active := ActiveAppointments(appointments, pros, clients)
	return Project(active, w, &professionalID)
}

// ClientPackageBalance exposes the ledger display read for the cell editor.
func (s *Service) ClientPackageBalance(ctx context.Context, clientID uuid.UUID) int {
	return s.ledger.ClientPackageBalance(ctx, clientID)
}

// ProfessionalAdvanceBalance exposes the ledger display read for the cell editor.
func (s *Service) ProfessionalAdvanceBalance(ctx context.Context, professionalID uuid.UUID) int {
	return s.ledger.ProfessionalAdvanceBalance(ctx, professionalID)
}

func (s *Service) checkSlot(ctx context.Context, req *model.SaveCellRequest, ignoreID *uuid.UUID) error {
	slotNeighbors, err := s.appointments.ListAt(ctx, req.Date, req.Time)
	if err != nil {
		return err
	}
	pros, err := s.pros.List(ctx)
	if err != nil {
		return err
	}
	clients, err := s.clients.List(ctx)
	if err != nil {
		return err
	}

	candidate := SlotCandidate{
		Date:           req.Date,
		Time:           req.Time,
		Room:           req.Room,
		ProfessionalID: req.ProfessionalID,
		ClientID:       req.ClientID,
	}
	if err := ValidateSlot(candidate, ActiveAppointments(slotNeighbors, pros, clients), ignoreID); err != nil {
		s.metrics.SlotConflicts.WithLabelValues(errors.TagOf(err)).Inc()
		return err
	}
	return nil
}

const windowListLimit = 500

func (s *Service) loadWindow(ctx context.Context, w Window, professionalID *uuid.UUID) ([]*model.Appointment, []*model.Professional, []*model.Client, error) {
	days, err := WindowDays(w)
	if err != nil {
		return nil, nil, nil, errors.BadRequest("invalid agenda window", err)
	}

	filters := &model.AppointmentFilters{
		StartDate:      days[0],
		EndDate:        days[len(days)-1],
		ProfessionalID: professionalID,
		Limit:          windowListLimit,
	}
	appointments, err := s.appointments.List(ctx, filters)
	if err != nil {
		return nil, nil, nil, err
	}
	pros, err := s.pros.List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return appointments, pros, clients, nil
}

// healCurrentMonth overwrites every professional's current-month counter
// in the public mirror with a recount from the appointment store.
func (s *Service) healCurrentMonth(ctx context.Context, pros []*model.Professional) {
	month := model.CurrentMonthKey(s.now())
	monthly, err := s.appointments.List(ctx, &model.AppointmentFilters{
		StartDate: month + "-01",
		EndDate:   month + "-31",
	})
	if err != nil {
		s.metrics.MirrorSyncErrors.Inc()
		s.logger.Warn("mirror heal skipped, month scan failed", "month", month, "error", err.Error())
		return
	}

	counts := make(map[uuid.UUID]int, len(pros))
	for _, p := range pros {
		counts[p.ID] = 0
	}
	for id, n := range MonthCounts(monthly, month) {
		counts[id] = n
	}

	if err := s.mirror.SetMonthCounts(ctx, month, counts); err != nil {
		s.metrics.MirrorSyncErrors.Inc()
		s.logger.Warn("mirror heal failed", "month", month, "error", err.Error())
		return
	}
	s.metrics.MirrorSyncs.Inc()
}

func (s *Service) publish(ctx context.Context, eventType, resourceID string, data interface{}) {
	event := messaging.Event{
		Type:       eventType,
		Resource:   audit.ResourceAppointment,
		ResourceID: resourceID,
		Data:       data,
	}
	if err := s.broker.Publish(ctx, messaging.ChannelAgenda, event); err != nil {
		s.metrics.EventsFailed.Inc()
		s.logger.Warn("agenda event publish failed", "type", eventType, "error", err.Error())
		return
	}
	s.metrics.EventsPublished.Inc()
}
