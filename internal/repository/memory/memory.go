// Package memory provides in-memory repository implementations. They
// back unit tests and local development without a Postgres instance,
// and mirror the transactional semantics of the postgres package:
// appointment mutations apply their mirror deltas atomically.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/pkg/errors"
)

type MirrorRepository struct {
	mu       sync.Mutex
	counts   map[uuid.UUID]map[string]int
	profiles map[uuid.UUID]*model.ProfessionalPublic

	// SetMonthCalls counts SetMonthCounts invocations.
	SetMonthCalls int
	// ListErr, when set, fails every List call.
	ListErr error
}

func NewMirrorRepository() *MirrorRepository {
	return &MirrorRepository{
		counts:   make(map[uuid.UUID]map[string]int),
		profiles: make(map[uuid.UUID]*model.ProfessionalPublic),
	}
}

func (r *MirrorRepository) ApplyDelta(d model.MirrorDelta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[d.ProfessionalID] == nil {
		r.counts[d.ProfessionalID] = make(map[string]int)
	}
	r.counts[d.ProfessionalID][d.Month] += d.Delta
}

// CountFor reads one professional's counter for a month.
func (r *MirrorRepository) CountFor(id uuid.UUID, month string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id][month]
}

func (r *MirrorRepository) Upsert(_ context.Context, pub *model.ProfessionalPublic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *pub
	r.profiles[pub.ID] = &clone
	return nil
}

func (r *MirrorRepository) Get(_ context.Context, id uuid.UUID) (*model.ProfessionalPublic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pub, ok := r.profiles[id]
	if !ok {
		return nil, errors.NotFound("professional", nil)
	}
	clone := *pub
	return &clone, nil
}

func (r *MirrorRepository) List(_ context.Context) ([]*model.ProfessionalPublic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make([]*model.ProfessionalPublic, 0, len(r.profiles))
	for id, pub := range r.profiles {
		clone := *pub
		clone.RealizedCounts = model.RealizedCounts{}
		for m, n := range r.counts[id] {
			clone.RealizedCounts[m] = n
		}
		out = append(out, &clone)
	}
	return out, nil
}

func (r *MirrorRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, id)
	delete(r.counts, id)
	return nil
}

func (r *MirrorRepository) SetMonthCounts(_ context.Context, month string, counts map[uuid.UUID]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SetMonthCalls++
	for id, n := range counts {
		if r.counts[id] == nil {
			r.counts[id] = make(map[string]int)
		}
		r.counts[id][month] = n
	}
	return nil
}

type AppointmentRepository struct {
	mu     sync.Mutex
	items  map[uuid.UUID]*model.Appointment
	mirror *MirrorRepository
}

// NewAppointmentRepository wires mirror delta application to the given
// mirror repository; pass nil to discard deltas.
func NewAppointmentRepository(mirror *MirrorRepository) *AppointmentRepository {
	return &AppointmentRepository{items: make(map[uuid.UUID]*model.Appointment), mirror: mirror}
}

func (r *AppointmentRepository) applyDeltas(deltas []model.MirrorDelta) {
	if r.mirror == nil {
		return
	}
	for _, d := range deltas {
		r.mirror.ApplyDelta(d)
	}
}

func (r *AppointmentRepository) Create(_ context.Context, apt *model.Appointment, deltas []model.MirrorDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *apt
	r.items[apt.ID] = &clone
	r.applyDeltas(deltas)
	return nil
}

func (r *AppointmentRepository) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("appointment", nil)
	}
	clone := *apt
	return &clone, nil
}

func (r *AppointmentRepository) Update(_ context.Context, apt *model.Appointment, deltas []model.MirrorDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[apt.ID]; !ok {
		return errors.NotFound("appointment", nil)
	}
	clone := *apt
	r.items[apt.ID] = &clone
	r.applyDeltas(deltas)
	return nil
}

func (r *AppointmentRepository) Delete(_ context.Context, id uuid.UUID, deltas []model.MirrorDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	r.applyDeltas(deltas)
	return nil
}

func (r *AppointmentRepository) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.items {
		if filters != nil {
			if filters.StartDate != "" && apt.Date < filters.StartDate {
				continue
			}
			if filters.EndDate != "" && apt.Date > filters.EndDate {
				continue
			}
			if filters.ProfessionalID != nil && apt.ProfessionalID != *filters.ProfessionalID {
				continue
			}
			if filters.Status != "" && apt.Status != filters.Status {
				continue
			}
		}
		clone := *apt
		out = append(out, &clone)
	}
	if filters != nil && filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (r *AppointmentRepository) ListAt(_ context.Context, date, timeSlot string) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.items {
		if apt.Date == date && apt.Time == timeSlot {
			clone := *apt
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *AppointmentRepository) DeleteByProfessional(_ context.Context, professionalID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, apt := range r.items {
		if apt.ProfessionalID == professionalID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *AppointmentRepository) PostFinance(_ context.Context, id uuid.UUID, received, transfer float64, posted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.items[id]
	if !ok {
		return errors.NotFound("appointment", nil)
	}
	apt.ReceivedValue = received
	apt.TransferValue = transfer
	apt.FinancePosted = posted
	return nil
}

type ClientRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Client

	// BalanceErr, when set, fails balance reads and decrements.
	BalanceErr error
}

func NewClientRepository() *ClientRepository {
	return &ClientRepository{items: make(map[uuid.UUID]*model.Client)}
}

// Add stores a client without going through Create.
func (r *ClientRepository) Add(c *model.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *c
	r.items[c.ID] = &clone
}

func (r *ClientRepository) Create(_ context.Context, c *model.Client) error {
	r.Add(c)
	return nil
}

func (r *ClientRepository) Get(_ context.Context, id uuid.UUID) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("client", nil)
	}
	clone := *c
	return &clone, nil
}

func (r *ClientRepository) Update(_ context.Context, c *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.ID]; !ok {
		return errors.NotFound("client", nil)
	}
	clone := *c
	r.items[c.ID] = &clone
	return nil
}

func (r *ClientRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *ClientRepository) List(_ context.Context) ([]*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Client, 0, len(r.items))
	for _, c := range r.items {
		clone := *c
		out = append(out, &clone)
	}
	return out, nil
}

func (r *ClientRepository) firstBy(match func(*model.Client) bool) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if match(c) {
			clone := *c
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *ClientRepository) FirstByCPF(_ context.Context, cpf string) (*model.Client, error) {
	return r.firstBy(func(c *model.Client) bool { return c.CPF == cpf })
}

func (r *ClientRepository) FirstByEmail(_ context.Context, email string) (*model.Client, error) {
	return r.firstBy(func(c *model.Client) bool { return c.Email == email })
}

func (r *ClientRepository) FirstByWhatsApp(_ context.Context, whatsapp string) (*model.Client, error) {
	return r.firstBy(func(c *model.Client) bool { return c.WhatsApp == whatsapp })
}

func (r *ClientRepository) ListByBirthDate(_ context.Context, birthDate string) ([]*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Client
	for _, c := range r.items {
		if c.BirthDate == birthDate {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *ClientRepository) DetachProfessional(_ context.Context, professionalID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.ProfessionalID != nil && *c.ProfessionalID == professionalID {
			c.ProfessionalID = nil
			c.ProfessionalName = ""
		}
	}
	return nil
}

func (r *ClientRepository) GetPackageBalance(_ context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.BalanceErr != nil {
		return 0, r.BalanceErr
	}
	c, ok := r.items[id]
	if !ok {
		return 0, errors.NotFound("client", nil)
	}
	return c.PackageSessionBalance, nil
}

func (r *ClientRepository) SetPackageBalance(_ context.Context, id uuid.UUID, balance int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return errors.NotFound("client", nil)
	}
	if balance < 0 {
		balance = 0
	}
	c.PackageSessionBalance = balance
	return nil
}

func (r *ClientRepository) DecrementPackageBalance(_ context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.BalanceErr != nil {
		return 0, r.BalanceErr
	}
	c, ok := r.items[id]
	if !ok {
		return 0, errors.NotFound("client", nil)
	}
	if c.PackageSessionBalance > 0 {
		c.PackageSessionBalance--
	}
	return c.PackageSessionBalance, nil
}

type ProfessionalRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Professional

	BalanceErr error
}

func NewProfessionalRepository() *ProfessionalRepository {
	return &ProfessionalRepository{items: make(map[uuid.UUID]*model.Professional)}
}

func (r *ProfessionalRepository) Add(p *model.Professional) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	r.items[p.ID] = &clone
}

func (r *ProfessionalRepository) Create(_ context.Context, p *model.Professional) error {
	r.Add(p)
	return nil
}

func (r *ProfessionalRepository) Get(_ context.Context, id uuid.UUID) (*model.Professional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("professional", nil)
	}
	clone := *p
	return &clone, nil
}

func (r *ProfessionalRepository) Update(_ context.Context, p *model.Professional) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.ID]; !ok {
		return errors.NotFound("professional", nil)
	}
	clone := *p
	r.items[p.ID] = &clone
	return nil
}

func (r *ProfessionalRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *ProfessionalRepository) List(_ context.Context) ([]*model.Professional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Professional, 0, len(r.items))
	for _, p := range r.items {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

func (r *ProfessionalRepository) ListActive(_ context.Context) ([]*model.Professional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Professional
	for _, p := range r.items {
		if p.Active {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *ProfessionalRepository) StripClientRef(_ context.Context, clientID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		kept := p.Clients[:0]
		for _, ref := range p.Clients {
			if ref.ID != clientID {
				kept = append(kept, ref)
			}
		}
		p.Clients = kept
	}
	return nil
}

func (r *ProfessionalRepository) GetAdvanceBalance(_ context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.BalanceErr != nil {
		return 0, r.BalanceErr
	}
	p, ok := r.items[id]
	if !ok {
		return 0, errors.NotFound("professional", nil)
	}
	return p.AdvanceCreditBalance, nil
}

func (r *ProfessionalRepository) SetAdvanceBalance(_ context.Context, id uuid.UUID, balance int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return errors.NotFound("professional", nil)
	}
	if balance < 0 {
		balance = 0
	}
	p.AdvanceCreditBalance = balance
	return nil
}

func (r *ProfessionalRepository) DecrementAdvanceBalance(_ context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.BalanceErr != nil {
		return 0, r.BalanceErr
	}
	p, ok := r.items[id]
	if !ok {
		return 0, errors.NotFound("professional", nil)
	}
	if p.AdvanceCreditBalance > 0 {
		p.AdvanceCreditBalance--
	}
	return p.AdvanceCreditBalance, nil
}

type AuditRepository struct {
	mu      sync.Mutex
	entries []*model.AuditLog
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(_ context.Context, log *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, log)
	return nil
}

func (r *AuditRepository) List(_ context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AuditLog
	for _, e := range r.entries {
		if filters != nil {
			if filters.ActorID != "" && e.ActorID != filters.ActorID {
				continue
			}
			if filters.Resource != "" && e.Resource != filters.Resource {
				continue
			}
			if filters.Action != "" && e.Action != filters.Action {
				continue
			}
		}
		out = append(out, e)
	}
	if filters != nil && filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (r *AuditRepository) DeleteBefore(_ context.Context, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.AuditLog
	for _, e := range r.entries {
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}
