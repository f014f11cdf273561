package stats

import (
	"context"
	"time"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/repository"
	"github.com/clinicaviva/agenda-api/pkg/logger"
)

// ProfessionalStats is the public card shown for one professional.
type ProfessionalStats struct {
	Name          string `json:"name"`
	Specialty     string `json:"specialty,omitempty"`
	PhotoURL      string `json:"photoUrl,omitempty"`
	MonthRealized int    `json:"monthRealized"`
	TotalRealized int    `json:"totalRealized"`
}

// PublicStats is the landing-page payload. It is built solely from the
// public mirror, so it exposes no appointment or client data.
type PublicStats struct {
	Month         string              `json:"month"`
	MonthRealized int                 `json:"monthRealized"`
	TotalRealized int                 `json:"totalRealized"`
	Professionals []ProfessionalStats `json:"professionals"`
}

type Service struct {
	mirror repository.MirrorRepository
	logger *logger.Logger
	now    func() time.Time
}

func NewService(mirror repository.MirrorRepository, log *logger.Logger) *Service {
	return &Service{mirror: mirror, logger: log, now: time.Now}
}

// Public aggregates realized-session counts for the landing page. The
// page must render regardless of backend health, so a read failure is
// logged and an all-zero payload returned instead of an error.
func (s *Service) Public(ctx context.Context) *PublicStats {
	month := model.CurrentMonthKey(s.now())
	out := &PublicStats{Month: month, Professionals: []ProfessionalStats{}}

	mirrors, err := s.mirror.List(ctx)
	if err != nil {
		s.logger.Warn("public stats read failed, serving zeros", "error", err.Error())
		return out
	}

	for _, m := range mirrors {
		if !m.Active {
			continue
		}
		total := 0
		for _, n := range m.RealizedCounts {
			total += n
		}
		card := ProfessionalStats{
			Name:          m.Name,
			Specialty:     m.Specialty,
			PhotoURL:      m.PhotoURL,
			MonthRealized: m.RealizedCounts[month],
			TotalRealized: total,
		}
		out.Professionals = append(out.Professionals, card)
		out.MonthRealized += card.MonthRealized
		out.TotalRealized += card.TotalRealized
	}
	return out
}
