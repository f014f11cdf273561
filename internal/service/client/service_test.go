package client

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
	svc       *Service
	clients   *memory.ClientRepository
	pros      *memory.ProfessionalRepository
	auditRepo *memory.AuditRepository
	broker    *fakeBroker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewLogger(nil)
	clients := memory.NewClientRepository()
	pros := memory.NewProfessionalRepository()
	auditRepo := memory.NewAuditRepository()
	broker := &fakeBroker{}
	svc := NewService(clients, pros, audit.NewService(auditRepo, log), broker, log)
	return &testEnv{svc: svc, clients: clients, pros: pros, auditRepo: auditRepo, broker: broker}
}

func createReq(name string) *model.CreateClientRequest {
	return &model.CreateClientRequest{
		Name:     name,
		CPF:      "123.456.789-01",
		WhatsApp: "(11) 98765-4321",
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "12345678901", Digits("123.456.789-01"))
	assert.Equal(t, "11987654321", Digits("(11) 98765-4321"))
	assert.Equal(t, "", Digits("abc"))
}

func TestFoldName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"José da Silva", "jose da silva"},
		{"  JOSÉ   DA  SILVA  ", "jose da silva"},
		{"Ângela Conceição", "angela conceicao"},
		{"maria", "maria"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FoldName(tt.in), tt.in)
	}
}

func TestCreateNormalizes(t *testing.T) {
	env := newTestEnv(t)
	req := createReq("  Ana Souza ")
	req.Email = " Ana@Example.COM "

	created, match, err := env.svc.Create(context.Background(), "admin", req, false)
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.Equal(t, "Ana Souza", created.Name)
	assert.Equal(t, "12345678901", created.CPF)
	assert.Equal(t, "11987654321", created.WhatsApp)
	assert.Equal(t, "ana@example.com", created.Email)
	assert.NotEqual(t, uuid.Nil, created.ID)

	stored, err := env.clients.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, stored.Name)

	logs, err := env.auditRepo.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, audit.ActionCreate, logs[0].Action)
	assert.Len(t, env.broker.events, 1)
}

func TestCreateRejectsBadNumbers(t *testing.T) {
	env := newTestEnv(t)

	req := createReq("Ana")
	req.CPF = "123"
	_, _, err := env.svc.Create(context.Background(), "admin", req, false)
	assert.True(t, errors.IsCode(err, errors.ErrBadRequest))

	req = createReq("Ana")
	req.WhatsApp = "9876"
	_, _, err = env.svc.Create(context.Background(), "admin", req, false)
	assert.True(t, errors.IsCode(err, errors.ErrBadRequest))
}

func TestDuplicateDetectionOrder(t *testing.T) {
	env := newTestEnv(t)
	existing := &model.Client{
		Name:      "Maria Antônia",
		CPF:       "12345678901",
		WhatsApp:  "11987654321",
		Email:     "maria@example.com",
		BirthDate: "1990-05-20",
	}
	existing.ID = uuid.New()
	env.clients.Add(existing)

	// Same CPF wins even when everything else also collides.
	req := createReq("Maria Antonia")
	req.Email = "maria@example.com"
	req.BirthDate = "1990-05-20"
	_, match, err := env.svc.Create(context.Background(), "admin", req, false)
	assert.True(t, errors.IsCode(err, errors.ErrDuplicate))
	require.NotNil(t, match)
	assert.Equal(t, model.DupByCPF, match.Reason)
	assert.Equal(t, existing.ID, match.Existing.ID)

	// Different CPF, same email.
	req = createReq("Maria Antonia")
	req.CPF = "98765432109"
	req.Email = "MARIA@example.com"
	_, match, err = env.svc.Create(context.Background(), "admin", req, false)
	assert.True(t, errors.IsCode(err, errors.ErrDuplicate))
	require.NotNil(t, match)
	assert.Equal(t, model.DupByEmail, match.Reason)

	// Different CPF and email, same whatsapp.
	req = createReq("Maria Antonia")
	req.CPF = "98765432109"
	_, match, err = env.svc.Create(context.Background(), "admin", req, false)
	assert.True(t, errors.IsCode(err, errors.ErrDuplicate))
	require.NotNil(t, match)
	assert.Equal(t, model.DupByWhatsApp, match.Reason)

	// Only folded name plus birth date collide.
	req = createReq("maria antonia")
	req.CPF = "98765432109"
	req.WhatsApp = "11911112222"
	req.BirthDate = "1990-05-20"
	_, match, err = env.svc.Create(context.Background(), "admin", req, false)
	assert.True(t, errors.IsCode(err, errors.ErrDuplicate))
	require.NotNil(t, match)
	assert.Equal(t, model.DupByNameBirth, match.Reason)
}

func TestCreateForceBypassesDuplicates(t *testing.T) {
	env := newTestEnv(t)
	existing := &model.Client{Name: "Maria", CPF: "12345678901", WhatsApp: "11987654321"}
	existing.ID = uuid.New()
	env.clients.Add(existing)

	created, match, err := env.svc.Create(context.Background(), "admin", createReq("Maria"), true)
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.NotEqual(t, existing.ID, created.ID)
}

func TestCreateNoFalsePositive(t *testing.T) {
	env := newTestEnv(t)
	existing := &model.Client{Name: "Maria", CPF: "12345678901", WhatsApp: "11987654321", BirthDate: "1990-05-20"}
	existing.ID = uuid.New()
	env.clients.Add(existing)

	// Same name but different birth date is not a duplicate.
	req := createReq("Maria")
	req.CPF = "98765432109"
	req.WhatsApp = "11911112222"
	req.BirthDate = "1991-05-20"
	created, match, err := env.svc.Create(context.Background(), "admin", req, false)
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.NotNil(t, created)
}

func TestCreateAssignsProfessional(t *testing.T) {
	env := newTestEnv(t)
	pro := &model.Professional{Name: "Dra. Lima", Active: true}
	pro.ID = uuid.New()
	env.pros.Add(pro)

	req := createReq("Ana")
	req.ProfessionalID = &pro.ID
	created, _, err := env.svc.Create(context.Background(), "admin", req, false)
	require.NoError(t, err)
	require.NotNil(t, created.ProfessionalID)
	assert.Equal(t, pro.ID, *created.ProfessionalID)
	assert.Equal(t, "Dra. Lima", created.ProfessionalName)
}

func TestCreateUnknownProfessional(t *testing.T) {
	env := newTestEnv(t)
	unknown := uuid.New()
	req := createReq("Ana")
	req.ProfessionalID = &unknown
	_, _, err := env.svc.Create(context.Background(), "admin", req, false)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func TestUpdateMergesFields(t *testing.T) {
	env := newTestEnv(t)
	created, _, err := env.svc.Create(context.Background(), "admin", createReq("Ana"), false)
	require.NoError(t, err)

	city := "Campinas"
	cpf := "987.654.321-09"
	updated, err := env.svc.Update(context.Background(), "admin", created.ID, &model.UpdateClientRequest{
		City: &city,
		CPF:  &cpf,
	})
	require.NoError(t, err)
	assert.Equal(t, "Campinas", updated.City)
	assert.Equal(t, "98765432109", updated.CPF)
	assert.Equal(t, "Ana", updated.Name)
	assert.Equal(t, "11987654321", updated.WhatsApp)
}

func TestUpdateClearsProfessional(t *testing.T) {
	env := newTestEnv(t)
	pro := &model.Professional{Name: "Dra. Lima", Active: true}
	pro.ID = uuid.New()
	env.pros.Add(pro)

	req := createReq("Ana")
	req.ProfessionalID = &pro.ID
	created, _, err := env.svc.Create(context.Background(), "admin", req, false)
	require.NoError(t, err)

	nilID := uuid.Nil
	updated, err := env.svc.Update(context.Background(), "admin", created.ID, &model.UpdateClientRequest{
		ProfessionalID: &nilID,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.ProfessionalID)
	assert.Empty(t, updated.ProfessionalName)
}

func TestDeleteStripsClientRefs(t *testing.T) {
	env := newTestEnv(t)
	created, _, err := env.svc.Create(context.Background(), "admin", createReq("Ana"), false)
	require.NoError(t, err)

	pro := &model.Professional{
		Name:    "Dra. Lima",
		Active:  true,
		Clients: model.ClientRefs{{ID: created.ID, Name: created.Name}},
	}
	pro.ID = uuid.New()
	env.pros.Add(pro)

	require.NoError(t, env.svc.Delete(context.Background(), "admin", created.ID))

	_, err = env.clients.Get(context.Background(), created.ID)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))

	stored, err := env.pros.Get(context.Background(), pro.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Clients)
}
