package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ClientRef is a thin reference kept on the professional record so the
// cell editor can narrow its client options without extra queries.
type ClientRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ClientRefs []ClientRef

func (r ClientRefs) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

func (r *ClientRefs) Scan(src interface{}) error {
	if src == nil {
		*r = ClientRefs{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type for ClientRefs: %T", src)
	}
	return json.Unmarshal(b, r)
}

type Professional struct {
	Base
	Name      string     `db:"name" json:"name"`
	Email     string     `db:"email" json:"email,omitempty"`
	Specialty string     `db:"specialty" json:"specialty,omitempty"`
	Phone     string     `db:"phone" json:"phone,omitempty"`
	Address   string     `db:"address" json:"address,omitempty"`
	PhotoURL  string     `db:"photo_url" json:"photoUrl,omitempty"`
	Active    bool       `db:"active" json:"active"`
	Clients   ClientRefs `db:"associated_clients" json:"associatedClients"`

	// AdvanceCreditBalance is the prepaid room-rental credit, consumed
	// one per realized appointment flagged usesProfessionalAdvance.
	// Never negative.
	AdvanceCreditBalance int `db:"advance_balance" json:"advanceCreditBalance"`
}

// RealizedCounts maps "YYYY-MM" month keys to the number of realized
// appointments the professional had in that month.
type RealizedCounts map[string]int

func (c RealizedCounts) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

func (c *RealizedCounts) Scan(src interface{}) error {
	if src == nil {
		*c = RealizedCounts{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type for RealizedCounts: %T", src)
	}
	return json.Unmarshal(b, c)
}

// ProfessionalPublic is the landing-page projection of a professional.
// It carries no client data: the public site reads monthly realized
// totals from here instead of the appointment collection.
type ProfessionalPublic struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Specialty      string         `db:"specialty" json:"specialty,omitempty"`
	PhotoURL       string         `db:"photo_url" json:"photoUrl,omitempty"`
	Active         bool           `db:"active" json:"active"`
	RealizedCounts RealizedCounts `db:"realized_counts" json:"realizedCounts"`
}

type CreateProfessionalRequest struct {
	Name                 string `json:"name" validate:"required"`
	Email                string `json:"email" validate:"omitempty,email"`
	Specialty            string `json:"specialty"`
	Phone                string `json:"phone"`
	Address              string `json:"address"`
	PhotoURL             string `json:"photoUrl"`
	AdvanceCreditBalance int    `json:"advanceCreditBalance" validate:"min=0"`
}

type UpdateProfessionalRequest struct {
	Name                 *string     `json:"name"`
	Email                *string     `json:"email"`
	Specialty            *string     `json:"specialty"`
	Phone                *string     `json:"phone"`
	Address              *string     `json:"address"`
	PhotoURL             *string     `json:"photoUrl"`
	Active               *bool       `json:"active"`
	Clients              *ClientRefs `json:"associatedClients"`
	AdvanceCreditBalance *int        `json:"advanceCreditBalance" validate:"omitempty,min=0"`
}
