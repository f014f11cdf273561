package professional

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/repository"
	"github.com/clinicaviva/agenda-api/internal/service/audit"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/logger"
	"github.com/clinicaviva/agenda-api/pkg/messaging"
)

type Service struct {
	pros         repository.ProfessionalRepository
	clients      repository.ClientRepository
	appointments repository.AppointmentRepository
	mirror       repository.MirrorRepository
	audit        *audit.Service
	broker       messaging.Broker
	validate     *validator.Validate
	logger       *logger.Logger
}

func NewService(
	pros repository.ProfessionalRepository,
	clients repository.ClientRepository,
	appointments repository.AppointmentRepository,
	mirror repository.MirrorRepository,
	auditSvc *audit.Service,
	broker messaging.Broker,
	log *logger.Logger,
) *Service {
	return &Service{
		pros:         pros,
		clients:      clients,
		appointments: appointments,
		mirror:       mirror,
		audit:        auditSvc,
		broker:       broker,
		validate:     validator.New(),
		logger:       log,
	}
}

// Create registers a professional and seeds their public mirror entry.
// New professionals start active with an empty realized history.
func (s *Service) Create(ctx context.Context, actorID string, req *model.CreateProfessionalRequest) (*model.Professional, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.BadRequest("invalid professional payload", err)
	}

	pro := &model.Professional{
		Name:                 strings.TrimSpace(req.Name),
		Email:                strings.ToLower(strings.TrimSpace(req.Email)),
		Specialty:            req.Specialty,
		Phone:                req.Phone,
		Address:              req.Address,
		PhotoURL:             req.PhotoURL,
		Active:               true,
		Clients:              model.ClientRefs{},
		AdvanceCreditBalance: req.AdvanceCreditBalance,
	}
	pro.ID = uuid.New()

	if err := s.pros.Create(ctx, pro); err != nil {
		return nil, err
	}
	s.syncMirror(ctx, pro)

	s.audit.Log(ctx, actorID, audit.ActionCreate, audit.ResourceProfessional, pro.ID.String(), model.JSONMap{"name": pro.Name})
	s.publishRegistry(ctx, pro.ID)
	return pro, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Professional, error) {
	return s.pros.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*model.Professional, error) {
	return s.pros.List(ctx)
}

func (s *Service) ListActive(ctx context.Context) ([]*model.Professional, error) {
	return s.pros.ListActive(ctx)
}

func (s *Service) Update(ctx context.Context, actorID string, id uuid.UUID, req *model.UpdateProfessionalRequest) (*model.Professional, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.BadRequest("invalid professional payload", err)
	}

	pro, err := s.pros.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		pro.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		pro.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Specialty != nil {
		pro.Specialty = *req.Specialty
	}
	if req.Phone != nil {
		pro.Phone = *req.Phone
	}
	if req.Address != nil {
		pro.Address = *req.Address
	}
	if req.PhotoURL != nil {
		pro.PhotoURL = *req.PhotoURL
	}
	if req.Active != nil {
		pro.Active = *req.Active
	}
	if req.Clients != nil {
		pro.Clients = *req.Clients
	}
	if req.AdvanceCreditBalance != nil {
		pro.AdvanceCreditBalance = *req.AdvanceCreditBalance
	}

	if err := s.pros.Update(ctx, pro); err != nil {
		return nil, err
	}
	s.syncMirror(ctx, pro)

	s.audit.Log(ctx, actorID, audit.ActionUpdate, audit.ResourceProfessional, id.String(), nil)
	s.publishRegistry(ctx, id)
	return pro, nil
}

// Delete removes a professional and everything hanging off them: their
// appointments, their public mirror entry, and the assignment reference
// on every client. Partial cascade failures are logged, not surfaced;
// whatever remains shows up as ghosts and is skipped by the grid.
func (s *Service) Delete(ctx context.Context, actorID string, id uuid.UUID) error {
	if err := s.pros.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.appointments.DeleteByProfessional(ctx, id); err != nil {
		s.logger.Error(err, "cascade appointment delete failed", "professional_id", id)
	}
	if err := s.clients.DetachProfessional(ctx, id); err != nil {
		s.logger.Error(err, "detaching clients failed", "professional_id", id)
	}
	if err := s.mirror.Delete(ctx, id); err != nil {
		s.logger.Error(err, "mirror delete failed", "professional_id", id)
	}

	s.audit.Log(ctx, actorID, audit.ActionDelete, audit.ResourceProfessional, id.String(), nil)
	s.publishRegistry(ctx, id)
	return nil
}

// AssociateClient adds a client reference to the professional's list for
// the cell editor's narrowed picker. Adding an already-listed client is
// a no-op.
func (s *Service) AssociateClient(ctx context.Context, actorID string, proID, clientID uuid.UUID) (*model.Professional, error) {
	pro, err := s.pros.Get(ctx, proID)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}

	for _, ref := range pro.Clients {
		if ref.ID == clientID {
			return pro, nil
		}
	}
	pro.Clients = append(pro.Clients, model.ClientRef{ID: client.ID, Name: client.Name})
	if err := s.pros.Update(ctx, pro); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, actorID, audit.ActionUpdate, audit.ResourceProfessional, proID.String(), model.JSONMap{"associatedClient": clientID.String()})
	return pro, nil
}

func (s *Service) DissociateClient(ctx context.Context, actorID string, proID, clientID uuid.UUID) (*model.Professional, error) {
	pro, err := s.pros.Get(ctx, proID)
	if err != nil {
		return nil, err
	}

	kept := pro.Clients[:0]
	for _, ref := range pro.Clients {
		if ref.ID != clientID {
			kept = append(kept, ref)
		}
	}
	pro.Clients = kept
	if err := s.pros.Update(ctx, pro); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, actorID, audit.ActionUpdate, audit.ResourceProfessional, proID.String(), model.JSONMap{"dissociatedClient": clientID.String()})
	return pro, nil
}

// syncMirror pushes profile fields to the public projection. Realized
// counts are left untouched; only the appointment transactions and the
// self-heal pass write those.
func (s *Service) syncMirror(ctx context.Context, pro *model.Professional) {
	pub := &model.ProfessionalPublic{
		ID:        pro.ID,
		Name:      pro.Name,
		Specialty: pro.Specialty,
		PhotoURL:  pro.PhotoURL,
		Active:    pro.Active,
	}
	if err := s.mirror.Upsert(ctx, pub); err != nil {
		s.logger.Error(err, "mirror upsert failed", "professional_id", pro.ID)
	}
}

func (s *Service) publishRegistry(ctx context.Context, id uuid.UUID) {
	event := messaging.Event{
		Type:       messaging.EventRegistry,
		Resource:   audit.ResourceProfessional,
		ResourceID: id.String(),
	}
	if err := s.broker.Publish(ctx, messaging.ChannelAgenda, event); err != nil {
		s.logger.Warn("registry event publish failed", "error", err.Error())
	}
}
