package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/repository"
	"github.com/clinicaviva/agenda-api/pkg/logger"
)

// Actions
const (
	ActionCreate      = "create"
	ActionUpdate      = "update"
	ActionDelete      = "delete"
	ActionPostFinance = "post_finance"
)

// Resources
const (
	ResourceAppointment  = "appointment"
	ResourceClient       = "client"
	ResourceProfessional = "professional"
)

type Service struct {
	repo   repository.AuditRepository
	logger *logger.Logger
}

func NewService(repo repository.AuditRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// Log records who changed what. Audit writes never fail the mutation
// they describe; a persistence error is logged and dropped.
func (s *Service) Log(ctx context.Context, actorID, action, resource, resourceID string, changes model.JSONMap) {
	entry := &model.AuditLog{
		ID:         uuid.New(),
		ActorID:    actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Changes:    changes,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error(err, "audit log write failed",
			"action", action, "resource", resource, "resource_id", resourceID)
	}
}

func (s *Service) List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, filters)
}

// DeleteBefore purges entries older than the cutoff. The retention
// worker calls this on a schedule.
func (s *Service) DeleteBefore(ctx context.Context, cutoff time.Time) error {
	return s.repo.DeleteBefore(ctx, cutoff)
}
