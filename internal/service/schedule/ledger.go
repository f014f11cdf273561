package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/clinicaviva/agenda-api/internal/email"
	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/repository"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/logger"
	"github.com/clinicaviva/agenda-api/pkg/metrics"
)

const (
	balanceCacheTTL     = 30 * time.Second
	balanceCacheCleanup = 5 * time.Minute
)

// Ledger manages the two prepaid credit pools: client session packages
// and professional advance payments. Display reads are best-effort and
// fall back to the last cached value; save gating always re-reads the
// store so a stale screen can never spend a credit that is gone.
type Ledger struct {
	clients repository.ClientRepository
	pros    repository.ProfessionalRepository
	cache   *gocache.Cache
	notif   email.Notifier
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewLedger(clients repository.ClientRepository, pros repository.ProfessionalRepository, notif email.Notifier, log *logger.Logger, m *metrics.Metrics) *Ledger {
	if notif == nil {
		notif = email.NoopNotifier{}
	}
	return &Ledger{
		clients: clients,
		pros:    pros,
		cache:   gocache.New(balanceCacheTTL, balanceCacheCleanup),
		notif:   notif,
		logger:  log,
		metrics: m,
	}
}

// ClientPackageBalance returns the client's package balance for display
// purposes. Read errors are swallowed: the last cached value is served,
// or zero when nothing was cached yet.
func (l *Ledger) ClientPackageBalance(ctx context.Context, clientID uuid.UUID) int {
	key := "pkg:" + clientID.String()
	balance, err := l.clients.GetPackageBalance(ctx, clientID)
	if err != nil {
		l.logger.Warn("package balance read failed, serving cached value", "client_id", clientID, "error", err.Error())
		if cached, ok := l.cache.Get(key); ok {
			return cached.(int)
		}
		return 0
	}
	l.cache.Set(key, balance, gocache.DefaultExpiration)
	return balance
}

// ProfessionalAdvanceBalance returns the professional's advance balance
// for display purposes, with the same cached fallback behavior.
func (l *Ledger) ProfessionalAdvanceBalance(ctx context.Context, professionalID uuid.UUID) int {
	key := "adv:" + professionalID.String()
	balance, err := l.pros.GetAdvanceBalance(ctx, professionalID)
	if err != nil {
		l.logger.Warn("advance balance read failed, serving cached value", "professional_id", professionalID, "error", err.Error())
		if cached, ok := l.cache.Get(key); ok {
			return cached.(int)
		}
		return 0
	}
	l.cache.Set(key, balance, gocache.DefaultExpiration)
	return balance
}

// GuardSave gates a cell save that consumes prepaid credits. Unlike the
// display reads, it always re-reads the store and fails hard: a read
// error here aborts the save rather than risking an unbacked decrement.
func (l *Ledger) GuardSave(ctx context.Context, apt *model.Appointment) error {
	if apt.UsesClientPackage {
		if apt.ClientID == nil {
			return errors.BadRequest("package sessions require a registered client", nil)
		}
		balance, err := l.clients.GetPackageBalance(ctx, *apt.ClientID)
		if err != nil {
			return errors.Internal(fmt.Errorf("checking package balance: %w", err))
		}
		if balance <= 0 {
			l.metrics.NoBalanceDenials.WithLabelValues(errors.BalancePackage).Inc()
			return errors.NoBalance(errors.BalancePackage)
		}
	}

	if apt.UsesProfessionalAdvance {
		balance, err := l.pros.GetAdvanceBalance(ctx, apt.ProfessionalID)
		if err != nil {
			return errors.Internal(fmt.Errorf("checking advance balance: %w", err))
		}
		if balance <= 0 {
			l.metrics.NoBalanceDenials.WithLabelValues(errors.BalanceAdvance).Inc()
			return errors.NoBalance(errors.BalanceAdvance)
		}
	}

	return nil
}

// ApplyCompletionSideEffects decrements the consumed credit pools on
// every save of a realized appointment, edits included. Decrements are
// floored at zero in the store. Failures here are logged and do not
// roll the appointment back; the returned warnings surface exhausted
// balances to the operator.
//
// Reverting a realized appointment does not restore credits. The credit
// was spent when the session happened; undoing the status is a grid
// correction, not a refund.
func (l *Ledger) ApplyCompletionSideEffects(ctx context.Context, apt *model.Appointment) []string {
	var warnings []string

	if apt.UsesClientPackage && apt.ClientID != nil {
		remaining, err := l.clients.DecrementPackageBalance(ctx, *apt.ClientID)
		if err != nil {
			l.logger.Error(err, "package balance decrement failed", "client_id", *apt.ClientID)
		} else {
			l.cache.Set("pkg:"+apt.ClientID.String(), remaining, gocache.DefaultExpiration)
			if remaining == 0 {
				warnings = append(warnings, fmt.Sprintf("cliente %s ficou sem saldo de pacote", apt.ClientName))
				l.notifyExhausted("package", apt.ClientName)
			}
		}
	}

	if apt.UsesProfessionalAdvance {
		remaining, err := l.pros.DecrementAdvanceBalance(ctx, apt.ProfessionalID)
		if err != nil {
			l.logger.Error(err, "advance balance decrement failed", "professional_id", apt.ProfessionalID)
		} else {
			l.cache.Set("adv:"+apt.ProfessionalID.String(), remaining, gocache.DefaultExpiration)
			if remaining == 0 {
				warnings = append(warnings, fmt.Sprintf("profissional %s ficou sem saldo de antecipados", apt.ProfessionalName))
				l.notifyExhausted("advance", apt.ProfessionalName)
			}
		}
	}

	return warnings
}

func (l *Ledger) notifyExhausted(kind, holder string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := l.notif.NotifyBalanceExhausted(ctx, kind, holder); err != nil {
			l.logger.Error(err, "balance exhausted notification failed", "kind", kind, "holder", holder)
		}
	}()
}
