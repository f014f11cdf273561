package client

import (
	"context"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/repository"
	"github.com/clinicaviva/agenda-api/internal/service/audit"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/logger"
	"github.com/clinicaviva/agenda-api/pkg/messaging"
)

type Service struct {
	clients  repository.ClientRepository
	pros     repository.ProfessionalRepository
	audit    *audit.Service
	broker   messaging.Broker
	validate *validator.Validate
	logger   *logger.Logger
}

func NewService(
	clients repository.ClientRepository,
	pros repository.ProfessionalRepository,
	auditSvc *audit.Service,
	broker messaging.Broker,
	log *logger.Logger,
) *Service {
	return &Service{
		clients:  clients,
		pros:     pros,
		audit:    auditSvc,
		broker:   broker,
		validate: validator.New(),
		logger:   log,
	}
}

// Digits strips everything but 0-9. CPF and WhatsApp numbers are stored
// and matched in this canonical form.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldName canonicalizes a person name for comparison: trimmed,
// lowercased, accents removed, inner whitespace collapsed.
func FoldName(s string) string {
	stripped, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Create registers a client. Unless force is set, the registry is first
// scanned for a likely duplicate by CPF, then email, then WhatsApp, then
// folded name plus birth date; the first hit aborts the create and is
// returned so the operator can decide.
func (s *Service) Create(ctx context.Context, actorID string, req *model.CreateClientRequest, force bool) (*model.Client, *model.DuplicateMatch, error) {
	// Normalize before validating so messy but recoverable input, like
	// a padded mixed-case email, passes the struct tags.
	cpf := Digits(req.CPF)
	whatsapp := Digits(req.WhatsApp)
	email := normalizeEmail(req.Email)

	sanitized := *req
	sanitized.Name = strings.TrimSpace(req.Name)
	sanitized.CPF = cpf
	sanitized.WhatsApp = whatsapp
	sanitized.Email = email
	if err := s.validate.Struct(&sanitized); err != nil {
		return nil, nil, errors.BadRequest("invalid client payload", err)
	}

	if len(cpf) != 11 {
		return nil, nil, errors.BadRequest("cpf must have 11 digits", nil)
	}
	if len(whatsapp) != 10 && len(whatsapp) != 11 {
		return nil, nil, errors.BadRequest("whatsapp must have 10 or 11 digits", nil)
	}

	if !force {
		match, err := s.findDuplicate(ctx, sanitized.Name, cpf, email, whatsapp, req.BirthDate)
		if err != nil {
			return nil, nil, err
		}
		if match != nil {
			return nil, match, errors.Duplicate(match.Reason)
		}
	}

	client := &model.Client{
		Name:                  sanitized.Name,
		CPF:                   cpf,
		WhatsApp:              whatsapp,
		Email:                 email,
		BirthDate:             req.BirthDate,
		Address:               req.Address,
		AddressNumber:         req.AddressNumber,
		District:              req.District,
		City:                  req.City,
		Zip:                   req.Zip,
		GuardianContact:       req.GuardianContact,
		Procedure:             req.Procedure,
		Notes:                 req.Notes,
		PackageSessionBalance: req.PackageSessionBalance,
	}
	client.ID = uuid.New()

	if err := s.assignProfessional(ctx, client, req.ProfessionalID); err != nil {
		return nil, nil, err
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, nil, err
	}

	s.audit.Log(ctx, actorID, audit.ActionCreate, audit.ResourceClient, client.ID.String(), model.JSONMap{"name": client.Name})
	s.publishRegistry(ctx, client.ID)
	return client, nil, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	return s.clients.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*model.Client, error) {
	return s.clients.List(ctx)
}

func (s *Service) Update(ctx context.Context, actorID string, id uuid.UUID, req *model.UpdateClientRequest) (*model.Client, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.BadRequest("invalid client payload", err)
	}

	client, err := s.clients.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		client.Name = strings.TrimSpace(*req.Name)
	}
	if req.CPF != nil {
		cpf := Digits(*req.CPF)
		if len(cpf) != 11 {
			return nil, errors.BadRequest("cpf must have 11 digits", nil)
		}
		client.CPF = cpf
	}
	if req.WhatsApp != nil {
		whatsapp := Digits(*req.WhatsApp)
		if len(whatsapp) != 10 && len(whatsapp) != 11 {
			return nil, errors.BadRequest("whatsapp must have 10 or 11 digits", nil)
		}
		client.WhatsApp = whatsapp
	}
	if req.Email != nil {
		client.Email = normalizeEmail(*req.Email)
	}
	if req.BirthDate != nil {
		client.BirthDate = *req.BirthDate
	}
	if req.Address != nil {
		client.Address = *req.Address
	}
	if req.AddressNumber != nil {
		client.AddressNumber = *req.AddressNumber
	}
	if req.District != nil {
		client.District = *req.District
	}
	if req.City != nil {
		client.City = *req.City
	}
	if req.Zip != nil {
		client.Zip = *req.Zip
	}
	if req.GuardianContact != nil {
		client.GuardianContact = *req.GuardianContact
	}
	if req.Procedure != nil {
		client.Procedure = *req.Procedure
	}
	if req.Notes != nil {
		client.Notes = *req.Notes
	}
	if req.ProfessionalID != nil {
		if err := s.assignProfessional(ctx, client, req.ProfessionalID); err != nil {
			return nil, err
		}
	}
	if req.PackageSessionBalance != nil {
		client.PackageSessionBalance = *req.PackageSessionBalance
	}

	if err := s.clients.Update(ctx, client); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, actorID, audit.ActionUpdate, audit.ResourceClient, id.String(), nil)
	s.publishRegistry(ctx, id)
	return client, nil
}

// Delete removes the client and strips their reference from every
// professional's associated list. Appointments are left in place; the
// grid treats cells pointing at a gone client as ghosts.
func (s *Service) Delete(ctx context.Context, actorID string, id uuid.UUID) error {
	if err := s.clients.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.pros.StripClientRef(ctx, id); err != nil {
		s.logger.Error(err, "stripping client from professionals failed", "client_id", id)
	}
	s.audit.Log(ctx, actorID, audit.ActionDelete, audit.ResourceClient, id.String(), nil)
	s.publishRegistry(ctx, id)
	return nil
}

func (s *Service) findDuplicate(ctx context.Context, name, cpf, email, whatsapp, birthDate string) (*model.DuplicateMatch, error) {
	if existing, err := s.clients.FirstByCPF(ctx, cpf); err != nil {
		return nil, err
	} else if existing != nil {
		return &model.DuplicateMatch{Reason: model.DupByCPF, Existing: existing}, nil
	}

	if email != "" {
		if existing, err := s.clients.FirstByEmail(ctx, email); err != nil {
			return nil, err
		} else if existing != nil {
			return &model.DuplicateMatch{Reason: model.DupByEmail, Existing: existing}, nil
		}
	}

	if existing, err := s.clients.FirstByWhatsApp(ctx, whatsapp); err != nil {
		return nil, err
	} else if existing != nil {
		return &model.DuplicateMatch{Reason: model.DupByWhatsApp, Existing: existing}, nil
	}

	if birthDate != "" {
		sameDay, err := s.clients.ListByBirthDate(ctx, birthDate)
		if err != nil {
			return nil, err
		}
		folded := FoldName(name)
		for _, existing := range sameDay {
			if FoldName(existing.Name) == folded {
				return &model.DuplicateMatch{Reason: model.DupByNameBirth, Existing: existing}, nil
			}
		}
	}
	return nil, nil
}

func (s *Service) assignProfessional(ctx context.Context, client *model.Client, professionalID *uuid.UUID) error {
	if professionalID == nil || *professionalID == uuid.Nil {
		client.ProfessionalID = nil
		client.ProfessionalName = ""
		return nil
	}
	pro, err := s.pros.Get(ctx, *professionalID)
	if err != nil {
		return err
	}
	client.ProfessionalID = &pro.ID
	client.ProfessionalName = pro.Name
	return nil
}

func (s *Service) publishRegistry(ctx context.Context, id uuid.UUID) {
	event := messaging.Event{
		Type:       messaging.EventRegistry,
		Resource:   audit.ResourceClient,
		ResourceID: id.String(),
	}
	if err := s.broker.Publish(ctx, messaging.ChannelAgenda, event); err != nil {
		s.logger.Warn("registry event publish failed", "error", err.Error())
	}
}
