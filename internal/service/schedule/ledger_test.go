package schedule

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/repository/memory"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/logger"
	"github.com/clinicaviva/agenda-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("test", fmt.Sprintf("schedule_%d", time.Now().UnixNano()))

func newTestLedger(clients *memory.ClientRepository, pros *memory.ProfessionalRepository, notif *fakeNotifier) *Ledger {
	return NewLedger(clients, pros, notif, logger.NewLogger(nil), testMetrics)
}

func newClient(balance int) *model.Client {
	c := &model.Client{Name: "Ana", PackageSessionBalance: balance}
	c.ID = uuid.New()
	return c
}

func newPro(balance int) *model.Professional {
	p := &model.Professional{Name: "Dr. Lima", Active: true, AdvanceCreditBalance: balance}
	p.ID = uuid.New()
	return p
}

func TestDisplayBalanceFallsBackToCache(t *testing.T) {
	clients := memory.NewClientRepository()
	c := newClient(3)
	clients.Add(c)
	ledger := newTestLedger(clients, memory.NewProfessionalRepository(), nil)

	assert.Equal(t, 3, ledger.ClientPackageBalance(context.Background(), c.ID))

	clients.BalanceErr = fmt.Errorf("connection refused")
	assert.Equal(t, 3, ledger.ClientPackageBalance(context.Background(), c.ID))
}

func TestDisplayBalanceZeroWhenNothingCached(t *testing.T) {
	clients := memory.NewClientRepository()
	clients.BalanceErr = fmt.Errorf("connection refused")
	ledger := newTestLedger(clients, memory.NewProfessionalRepository(), nil)

	assert.Equal(t, 0, ledger.ClientPackageBalance(context.Background(), uuid.New()))
}

func TestGuardSaveAllowsWithBalance(t *testing.T) {
	clients := memory.NewClientRepository()
	c := newClient(1)
	clients.Add(c)
	ledger := newTestLedger(clients, memory.NewProfessionalRepository(), nil)

	apt := &model.Appointment{ClientID: &c.ID, UsesClientPackage: true, Status: model.StatusRealized}
	assert.NoError(t, ledger.GuardSave(context.Background(), apt))
}

func TestGuardSaveDeniesExhaustedPackage(t *testing.T) {
	clients := memory.NewClientRepository()
	c := newClient(0)
	clients.Add(c)
	ledger := newTestLedger(clients, memory.NewProfessionalRepository(), nil)

	apt := &model.Appointment{ClientID: &c.ID, UsesClientPackage: true, Status: model.StatusRealized}
	err := ledger.GuardSave(context.Background(), apt)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNoBalance))
	assert.Equal(t, errors.BalancePackage, errors.TagOf(err))
}

func TestGuardSaveDeniesExhaustedAdvance(t *testing.T) {
	pros := memory.NewProfessionalRepository()
	p := newPro(0)
	pros.Add(p)
	ledger := newTestLedger(memory.NewClientRepository(), pros, nil)

	apt := &model.Appointment{ProfessionalID: p.ID, UsesProfessionalAdvance: true, Status: model.StatusRealized}
	err := ledger.GuardSave(context.Background(), apt)
	require.Error(t, err)
	assert.Equal(t, errors.BalanceAdvance, errors.TagOf(err))
}

// The guard re-reads the store, so a balance spent since the screen
// loaded is caught even when the cache still holds the stale value.
func TestGuardSaveRereadsFreshBalance(t *testing.T) {
	clients := memory.NewClientRepository()
	c := newClient(1)
	clients.Add(c)
	ledger := newTestLedger(clients, memory.NewProfessionalRepository(), nil)

	assert.Equal(t, 1, ledger.ClientPackageBalance(context.Background(), c.ID))

	require.NoError(t, clients.SetPackageBalance(context.Background(), c.ID, 0))

	apt := &model.Appointment{ClientID: &c.ID, UsesClientPackage: true, Status: model.StatusRealized}
	err := ledger.GuardSave(context.Background(), apt)
	assert.True(t, errors.IsCode(err, errors.ErrNoBalance))
}

func TestGuardSaveFailsHardOnReadError(t *testing.T) {
	clients := memory.NewClientRepository()
	c := newClient(5)
	clients.Add(c)
	clients.BalanceErr = fmt.Errorf("connection refused")
	ledger := newTestLedger(clients, memory.NewProfessionalRepository(), nil)

	apt := &model.Appointment{ClientID: &c.ID, UsesClientPackage: true, Status: model.StatusRealized}
	err := ledger.GuardSave(context.Background(), apt)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInternal))
}

func TestGuardSavePackageRequiresClient(t *testing.T) {
	ledger := newTestLedger(memory.NewClientRepository(), memory.NewProfessionalRepository(), nil)

	apt := &model.Appointment{UsesClientPackage: true, Status: model.StatusRealized}
	err := ledger.GuardSave(context.Background(), apt)
	assert.True(t, errors.IsCode(err, errors.ErrBadRequest))
}

func TestCompletionDecrementsAndWarnsAtZero(t *testing.T) {
	clients := memory.NewClientRepository()
	c := newClient(1)
	clients.Add(c)
	notif := &fakeNotifier{}
	ledger := newTestLedger(clients, memory.NewProfessionalRepository(), notif)

	apt := &model.Appointment{ClientID: &c.ID, ClientName: c.Name, UsesClientPackage: true, Status: model.StatusRealized}
	warnings := ledger.ApplyCompletionSideEffects(context.Background(), apt)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], c.Name)

	balance, err := clients.GetPackageBalance(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestCompletionNoWarningAboveZero(t *testing.T) {
	clients := memory.NewClientRepository()
	c := newClient(3)
	clients.Add(c)
	ledger := newTestLedger(clients, memory.NewProfessionalRepository(), nil)

	apt := &model.Appointment{ClientID: &c.ID, UsesClientPackage: true, Status: model.StatusRealized}
	warnings := ledger.ApplyCompletionSideEffects(context.Background(), apt)

	assert.Empty(t, warnings)
	balance, _ := clients.GetPackageBalance(context.Background(), c.ID)
	assert.Equal(t, 2, balance)
}

// A decrement against an already-zero balance stays at zero instead of
// going negative.
func TestCompletionFloorsAtZero(t *testing.T) {
	pros := memory.NewProfessionalRepository()
	p := newPro(0)
	pros.Add(p)
	ledger := newTestLedger(memory.NewClientRepository(), pros, nil)

	apt := &model.Appointment{ProfessionalID: p.ID, ProfessionalName: p.Name, UsesProfessionalAdvance: true, Status: model.StatusRealized}
	warnings := ledger.ApplyCompletionSideEffects(context.Background(), apt)

	require.Len(t, warnings, 1)
	balance, _ := pros.GetAdvanceBalance(context.Background(), p.ID)
	assert.Equal(t, 0, balance)
}

func TestCompletionDecrementErrorIsNonFatal(t *testing.T) {
	clients := memory.NewClientRepository()
	c := newClient(2)
	clients.Add(c)
	clients.BalanceErr = fmt.Errorf("connection refused")
	ledger := newTestLedger(clients, memory.NewProfessionalRepository(), nil)

	apt := &model.Appointment{ClientID: &c.ID, UsesClientPackage: true, Status: model.StatusRealized}
	warnings := ledger.ApplyCompletionSideEffects(context.Background(), apt)
	assert.Empty(t, warnings)
}
