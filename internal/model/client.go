package model

import (
	"github.com/google/uuid"
)

type Client struct {
	Base
	Name             string     `db:"name" json:"name"`
	CPF              string     `db:"cpf" json:"cpf"`
	WhatsApp         string     `db:"whatsapp" json:"whatsapp"`
	Email            string     `db:"email" json:"email,omitempty"`
	BirthDate        string     `db:"birth_date" json:"birthDate,omitempty"`
	Address          string     `db:"address" json:"address,omitempty"`
	AddressNumber    string     `db:"address_number" json:"addressNumber,omitempty"`
	District         string     `db:"district" json:"district,omitempty"`
	City             string     `db:"city" json:"city,omitempty"`
	Zip              string     `db:"zip" json:"zip,omitempty"`
	GuardianContact  string     `db:"guardian_contact" json:"guardianContact,omitempty"`
	Procedure        string     `db:"procedure" json:"procedure,omitempty"`
	Notes            string     `db:"notes" json:"notes,omitempty"`
	ProfessionalID   *uuid.UUID `db:"professional_id" json:"professionalId,omitempty"`
	ProfessionalName string     `db:"professional_name" json:"professionalName,omitempty"`

	// PackageSessionBalance is the prepaid session credit, consumed one
	// per realized appointment flagged usesClientPackage. Never negative.
	PackageSessionBalance int `db:"package_balance" json:"packageSessionBalance"`
}

type CreateClientRequest struct {
	Name                  string     `json:"name" validate:"required"`
	CPF                   string     `json:"cpf" validate:"required"`
	WhatsApp              string     `json:"whatsapp" validate:"required"`
	Email                 string     `json:"email" validate:"omitempty,email"`
	BirthDate             string     `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Address               string     `json:"address"`
	AddressNumber         string     `json:"addressNumber"`
	District              string     `json:"district"`
	City                  string     `json:"city"`
	Zip                   string     `json:"zip"`
	GuardianContact       string     `json:"guardianContact"`
	Procedure             string     `json:"procedure"`
	Notes                 string     `json:"notes"`
	ProfessionalID        *uuid.UUID `json:"professionalId"`
	PackageSessionBalance int        `json:"packageSessionBalance" validate:"min=0"`
}

type UpdateClientRequest struct {
	Name                  *string    `json:"name"`
	CPF                   *string    `json:"cpf"`
	WhatsApp              *string    `json:"whatsapp"`
	Email                 *string    `json:"email"`
	BirthDate             *string    `json:"birthDate"`
	Address               *string    `json:"address"`
	AddressNumber         *string    `json:"addressNumber"`
	District              *string    `json:"district"`
	City                  *string    `json:"city"`
	Zip                   *string    `json:"zip"`
	GuardianContact       *string    `json:"guardianContact"`
	Procedure             *string    `json:"procedure"`
	Notes                 *string    `json:"notes"`
	ProfessionalID        *uuid.UUID `json:"professionalId"`
	PackageSessionBalance *int       `json:"packageSessionBalance" validate:"omitempty,min=0"`
}

// Duplicate-match reasons, checked in this order on create.
const (
	DupByCPF       = "cpf"
	DupByEmail     = "email"
	DupByWhatsApp  = "whatsapp"
	DupByNameBirth = "name+birthdate"
)

// DuplicateMatch describes an existing client that collides with a new
// registration.
type DuplicateMatch struct {
	Reason   string  `json:"reason"`
	Existing *Client `json:"existing"`
}
