package professional

import (
	"context"
	"sync"
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

type fakeBroker struct {
	mu     sync.Mutex
	events []interface{}
}

func (b *fakeBroker) Publish(_ context.Context, _ string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, message)
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeBroker) Close() error { return nil }

type testEnv struct {
	svc          *Service
	pros         *memory.ProfessionalRepository
	clients      *memory.ClientRepository
	appointments *memory.AppointmentRepository
	mirror       *memory.MirrorRepository
	broker       *fakeBroker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewLogger(nil)
	pros := memory.NewProfessionalRepository()
	clients := memory.NewClientRepository()
	mirror := memory.NewMirrorRepository()
	appointments := memory.NewAppointmentRepository(mirror)
	broker := &fakeBroker{}
	svc := NewService(pros, clients, appointments, mirror, audit.NewService(memory.NewAuditRepository(), log), broker, log)
	return &testEnv{svc: svc, pros: pros, clients: clients, appointments: appointments, mirror: mirror, broker: broker}
}

func TestCreateSeedsMirror(t *testing.T) {
	env := newTestEnv(t)

	pro, err := env.svc.Create(context.Background(), "admin", &model.CreateProfessionalRequest{
		Name:      "  Dra. Lima ",
		Email:     "Lima@Example.COM",
		Specialty: "Fisioterapia",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dra. Lima", pro.Name)
	assert.Equal(t, "lima@example.com", pro.Email)
	assert.True(t, pro.Active)
	assert.NotNil(t, pro.Clients)
	assert.Empty(t, pro.Clients)

	pub, err := env.mirror.Get(context.Background(), pro.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dra. Lima", pub.Name)
	assert.Equal(t, "Fisioterapia", pub.Specialty)
	assert.True(t, pub.Active)
	assert.Len(t, env.broker.events, 1)
}

func TestUpdateSyncsMirrorProfile(t *testing.T) {
	env := newTestEnv(t)
	pro, err := env.svc.Create(context.Background(), "admin", &model.CreateProfessionalRequest{Name: "Dra. Lima"})
	require.NoError(t, err)

	// Counter written by the appointment path must survive profile syncs.
	env.mirror.ApplyDelta(model.MirrorDelta{ProfessionalID: pro.ID, Month: "2025-09", Delta: 4})

	inactive := false
	specialty := "Pilates"
	_, err = env.svc.Update(context.Background(), "admin", pro.ID, &model.UpdateProfessionalRequest{
		Active:    &inactive,
		Specialty: &specialty,
	})
	require.NoError(t, err)

	pub, err := env.mirror.Get(context.Background(), pro.ID)
	require.NoError(t, err)
	assert.False(t, pub.Active)
	assert.Equal(t, "Pilates", pub.Specialty)
	assert.Equal(t, 4, env.mirror.CountFor(pro.ID, "2025-09"))
}

func TestDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	pro, err := env.svc.Create(context.Background(), "admin", &model.CreateProfessionalRequest{Name: "Dra. Lima"})
	require.NoError(t, err)

	client := &model.Client{Name: "Ana", ProfessionalID: &pro.ID, ProfessionalName: pro.Name}
	client.ID = uuid.New()
	env.clients.Add(client)

	apt := &model.Appointment{Date: "2025-09-10", Time: "09:00", Room: 1, ProfessionalID: pro.ID, Status: model.StatusScheduled}
	apt.ID = uuid.New()
	require.NoError(t, env.appointments.Create(context.Background(), apt, nil))

	require.NoError(t, env.svc.Delete(context.Background(), "admin", pro.ID))

	_, err = env.pros.Get(context.Background(), pro.ID)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))

	_, err = env.appointments.Get(context.Background(), apt.ID)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))

	detached, err := env.clients.Get(context.Background(), client.ID)
	require.NoError(t, err)
	assert.Nil(t, detached.ProfessionalID)
	assert.Empty(t, detached.ProfessionalName)

	_, err = env.mirror.Get(context.Background(), pro.ID)
	assert.Error(t, err)
}

func TestAssociateClientIdempotent(t *testing.T) {
	env := newTestEnv(t)
	pro, err := env.svc.Create(context.Background(), "admin", &model.CreateProfessionalRequest{Name: "Dra. Lima"})
	require.NoError(t, err)

	client := &model.Client{Name: "Ana"}
	client.ID = uuid.New()
	env.clients.Add(client)

	updated, err := env.svc.AssociateClient(context.Background(), "admin", pro.ID, client.ID)
	require.NoError(t, err)
	require.Len(t, updated.Clients, 1)
	assert.Equal(t, "Ana", updated.Clients[0].Name)

	updated, err = env.svc.AssociateClient(context.Background(), "admin", pro.ID, client.ID)
	require.NoError(t, err)
	assert.Len(t, updated.Clients, 1)
}

func TestAssociateUnknownClient(t *testing.T) {
	env := newTestEnv(t)
	pro, err := env.svc.Create(context.Background(), "admin", &model.CreateProfessionalRequest{Name: "Dra. Lima"})
	require.NoError(t, err)

	_, err = env.svc.AssociateClient(context.Background(), "admin", pro.ID, uuid.New())
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func TestDissociateClient(t *testing.T) {
	env := newTestEnv(t)
	pro, err := env.svc.Create(context.Background(), "admin", &model.CreateProfessionalRequest{Name: "Dra. Lima"})
	require.NoError(t, err)

	keep := &model.Client{Name: "Ana"}
	keep.ID = uuid.New()
	env.clients.Add(keep)
	drop := &model.Client{Name: "Bia"}
	drop.ID = uuid.New()
	env.clients.Add(drop)

	_, err = env.svc.AssociateClient(context.Background(), "admin", pro.ID, keep.ID)
	require.NoError(t, err)
	_, err = env.svc.AssociateClient(context.Background(), "admin", pro.ID, drop.ID)
	require.NoError(t, err)

	updated, err := env.svc.DissociateClient(context.Background(), "admin", pro.ID, drop.ID)
	require.NoError(t, err)
	require.Len(t, updated.Clients, 1)
	assert.Equal(t, keep.ID, updated.Clients[0].ID)
}

func TestListActive(t *testing.T) {
	env := newTestEnv(t)
	active, err := env.svc.Create(context.Background(), "admin", &model.CreateProfessionalRequest{Name: "Dra. Lima"})
	require.NoError(t, err)
	retired, err := env.svc.Create(context.Background(), "admin", &model.CreateProfessionalRequest{Name: "Dr. Costa"})
	require.NoError(t, err)

	off := false
	_, err = env.svc.Update(context.Background(), "admin", retired.ID, &model.UpdateProfessionalRequest{Active: &off})
	require.NoError(t, err)

	listed, err := env.svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, active.ID, listed[0].ID)
}
