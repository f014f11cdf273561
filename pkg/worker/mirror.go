package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/repository"
	"github.com/clinicaviva/agenda-api/internal/service/schedule"
	"github.com/clinicaviva/agenda-api/pkg/logger"
	"github.com/clinicaviva/agenda-api/pkg/metrics"
)

// MirrorSyncWorker periodically replaces the public mirror's monthly
// counters with absolute recounts from the appointment store. The admin
// panel already heals the current month on every load; this worker
// covers quiet periods and the previous month around its boundary.
type MirrorSyncWorker struct {
	appointments repository.AppointmentRepository
	pros         repository.ProfessionalRepository
	mirror       repository.MirrorRepository
	interval     time.Duration
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewMirrorSyncWorker(
	appointments repository.AppointmentRepository,
	pros repository.ProfessionalRepository,
	mirror repository.MirrorRepository,
	interval time.Duration,
	log *logger.Logger,
	m *metrics.Metrics,
) *MirrorSyncWorker {
	return &MirrorSyncWorker{
		appointments: appointments,
		pros:         pros,
		mirror:       mirror,
		interval:     interval,
		logger:       log,
		metrics:      m,
	}
}

func (w *MirrorSyncWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			w.syncMonth(ctx, model.CurrentMonthKey(now))
			w.syncMonth(ctx, model.CurrentMonthKey(now.AddDate(0, -1, 0)))
		}
	}
}

func (w *MirrorSyncWorker) syncMonth(ctx context.Context, month string) {
	appointments, err := w.appointments.List(ctx, &model.AppointmentFilters{
		StartDate: month + "-01",
		EndDate:   month + "-31",
	})
	if err != nil {
		w.metrics.MirrorSyncErrors.Inc()
		w.logger.Error(err, "mirror sync month scan failed", "month", month)
		return
	}
	pros, err := w.pros.List(ctx)
	if err != nil {
		w.metrics.MirrorSyncErrors.Inc()
		w.logger.Error(err, "mirror sync professional scan failed", "month", month)
		return
	}

	counts := make(map[uuid.UUID]int, len(pros))
	for _, p := range pros {
		counts[p.ID] = 0
	}
	for id, n := range schedule.MonthCounts(appointments, month) {
		counts[id] = n
	}

	if err := w.mirror.SetMonthCounts(ctx, month, counts); err != nil {
		w.metrics.MirrorSyncErrors.Inc()
		w.logger.Error(err, "mirror sync write failed", "month", month)
		return
	}
	w.metrics.MirrorSyncs.Inc()
	w.logger.Info("mirror sync done", "month", month, "professionals", len(counts))
}
