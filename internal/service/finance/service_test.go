package finance

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/repository/memory"
	"github.com/clinicaviva/agenda-api/internal/service/audit"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/logger"
)

type testEnv struct {
	svc          *Service
	appointments *memory.AppointmentRepository
	auditRepo    *memory.AuditRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewLogger(nil)
	appointments := memory.NewAppointmentRepository(nil)
	auditRepo := memory.NewAuditRepository()
	svc := NewService(appointments, audit.NewService(auditRepo, log), log)
	return &testEnv{svc: svc, appointments: appointments, auditRepo: auditRepo}
}

type aptSpec struct {
	date     string
	proID    uuid.UUID
	proName  string
	status   model.AppointmentStatus
	payment  model.PaymentMethod
	received float64
	transfer float64
	posted   bool
}

func (e *testEnv) add(t *testing.T, spec aptSpec) *model.Appointment {
	t.Helper()
	apt := &model.Appointment{
		Date:             spec.date,
		Time:             "09:00",
		Room:             1,
		ProfessionalID:   spec.proID,
		ProfessionalName: spec.proName,
		PaymentMethod:    spec.payment,
		Status:           spec.status,
		ReceivedValue:    spec.received,
		TransferValue:    spec.transfer,
		FinancePosted:    spec.posted,
	}
	apt.ID = uuid.New()
	require.NoError(t, e.appointments.Create(context.Background(), apt, nil))
	return apt
}

func TestMonthSummaryTotals(t *testing.T) {
	env := newTestEnv(t)
	pro := uuid.New()

	env.add(t, aptSpec{date: "2025-09-02", proID: pro, proName: "Dra. Lima", status: model.StatusRealized, payment: model.PaymentPix, received: 200, transfer: 120, posted: true})
	env.add(t, aptSpec{date: "2025-09-10", proID: pro, proName: "Dra. Lima", status: model.StatusRealized, payment: model.PaymentCash, received: 150, transfer: 90, posted: true})
	// Cancelled sessions keep their money in the view.
	env.add(t, aptSpec{date: "2025-09-15", proID: pro, proName: "Dra. Lima", status: model.StatusCancelled, payment: model.PaymentPix, received: 50, posted: true})
	// Scheduled cells have no financial standing yet.
	env.add(t, aptSpec{date: "2025-09-20", proID: pro, proName: "Dra. Lima", status: model.StatusScheduled, payment: model.PaymentPix, received: 999})
	// Other months stay out.
	env.add(t, aptSpec{date: "2025-08-30", proID: pro, proName: "Dra. Lima", status: model.StatusRealized, payment: model.PaymentPix, received: 300, posted: true})

	summary, err := env.svc.MonthSummary(context.Background(), "2025-09", nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-09", summary.Month)
	assert.Equal(t, 3, summary.Sessions)
	assert.Equal(t, 400.0, summary.Received)
	assert.Equal(t, 210.0, summary.Transfer)
	assert.Equal(t, 190.0, summary.ClinicShare)
	assert.Equal(t, 250.0, summary.ByPaymentMethod["pix"])
	assert.Equal(t, 150.0, summary.ByPaymentMethod["dinheiro"])
	assert.Empty(t, summary.Pending)

	require.Len(t, summary.ByProfessional, 1)
	assert.Equal(t, "Dra. Lima", summary.ByProfessional[0].ProfessionalName)
	assert.Equal(t, 3, summary.ByProfessional[0].Sessions)
	assert.Equal(t, 400.0, summary.ByProfessional[0].Received)
}

func TestMonthSummaryPending(t *testing.T) {
	env := newTestEnv(t)
	pro := uuid.New()

	posted := env.add(t, aptSpec{date: "2025-09-02", proID: pro, status: model.StatusRealized, payment: model.PaymentPix, received: 200, posted: true})
	unposted := env.add(t, aptSpec{date: "2025-09-03", proID: pro, status: model.StatusRealized, payment: model.PaymentPix})

	summary, err := env.svc.MonthSummary(context.Background(), "2025-09", nil)
	require.NoError(t, err)
	require.Len(t, summary.Pending, 1)
	assert.Equal(t, unposted.ID, summary.Pending[0].ID)
	assert.NotEqual(t, posted.ID, summary.Pending[0].ID)
}

func TestMonthSummaryProfessionalScope(t *testing.T) {
	env := newTestEnv(t)
	mine := uuid.New()
	other := uuid.New()

	env.add(t, aptSpec{date: "2025-09-02", proID: mine, proName: "Dra. Lima", status: model.StatusRealized, payment: model.PaymentPix, received: 100, posted: true})
	env.add(t, aptSpec{date: "2025-09-03", proID: other, proName: "Dr. Costa", status: model.StatusRealized, payment: model.PaymentPix, received: 500, posted: true})

	summary, err := env.svc.MonthSummary(context.Background(), "2025-09", &mine)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sessions)
	assert.Equal(t, 100.0, summary.Received)
	require.Len(t, summary.ByProfessional, 1)
	assert.Equal(t, mine, summary.ByProfessional[0].ProfessionalID)
}

func TestMonthSummaryBadMonth(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.MonthSummary(context.Background(), "september", nil)
	assert.True(t, errors.IsCode(err, errors.ErrBadRequest))
}

func TestPostFinance(t *testing.T) {
	env := newTestEnv(t)
	apt := env.add(t, aptSpec{date: "2025-09-02", proID: uuid.New(), status: model.StatusRealized, payment: model.PaymentPix})

	updated, err := env.svc.PostFinance(context.Background(), "admin", apt.ID, &model.PostFinanceRequest{
		ReceivedValue: 180,
		TransferValue: 110,
		FinancePosted: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 180.0, updated.ReceivedValue)
	assert.Equal(t, 110.0, updated.TransferValue)
	assert.True(t, updated.FinancePosted)

	stored, err := env.appointments.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.True(t, stored.FinancePosted)
	assert.Equal(t, 180.0, stored.ReceivedValue)

	logs, err := env.auditRepo.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, audit.ActionPostFinance, logs[0].Action)
}

func TestPostFinanceRejectsScheduled(t *testing.T) {
	env := newTestEnv(t)
	apt := env.add(t, aptSpec{date: "2025-09-02", proID: uuid.New(), status: model.StatusScheduled, payment: model.PaymentPix})

	_, err := env.svc.PostFinance(context.Background(), "admin", apt.ID, &model.PostFinanceRequest{ReceivedValue: 100, FinancePosted: true})
	assert.True(t, errors.IsCode(err, errors.ErrBadRequest))
}

func TestPostFinanceMissing(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.PostFinance(context.Background(), "admin", uuid.New(), &model.PostFinanceRequest{ReceivedValue: 100})
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func TestPostFinanceRepost(t *testing.T) {
	env := newTestEnv(t)
	apt := env.add(t, aptSpec{date: "2025-09-02", proID: uuid.New(), status: model.StatusRealized, payment: model.PaymentPix, received: 100, transfer: 60, posted: true})

	updated, err := env.svc.PostFinance(context.Background(), "admin", apt.ID, &model.PostFinanceRequest{
		ReceivedValue: 120,
		TransferValue: 70,
		FinancePosted: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 120.0, updated.ReceivedValue)
	assert.Equal(t, 70.0, updated.TransferValue)
}
