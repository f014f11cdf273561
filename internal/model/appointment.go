package model

import (
	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "agendado"
	StatusRealized  AppointmentStatus = "realizado"
	StatusChanged   AppointmentStatus = "alterado"
	StatusCancelled AppointmentStatus = "cancelado"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "dinheiro"
	PaymentPix  PaymentMethod = "pix"
	PaymentCard PaymentMethod = "cartao"
)

// Rooms is the fixed set of bookable rooms.
var Rooms = []int{1, 2, 3, 4}

// TimeSlots is the fixed list of bookable hourly slots. The clinic closes
// for lunch between 11:00 and 14:00.
var TimeSlots = []string{
	"08:00", "09:00", "10:00", "11:00",
	"14:00", "15:00", "16:00", "17:00", "18:00", "19:00", "20:00",
}

// Appointment is one cell of the scheduling grid. ClientID is nil for
// sublet slots where a professional books a room without a clinic client.
type Appointment struct {
	Base
	Date                    string            `db:"date" json:"date"`
	Time                    string            `db:"time_slot" json:"time"`
	Room                    int               `db:"room" json:"room"`
	ClientID                *uuid.UUID        `db:"client_id" json:"clientId,omitempty"`
	ClientName              string            `db:"client_name" json:"clientName"`
	ProfessionalID          uuid.UUID         `db:"professional_id" json:"professionalId"`
	ProfessionalName        string            `db:"professional_name" json:"professionalName"`
	PaymentMethod           PaymentMethod     `db:"payment_method" json:"paymentMethod"`
	Status                  AppointmentStatus `db:"status" json:"status"`
	ReceivedValue           float64           `db:"received_value" json:"receivedValue"`
	TransferValue           float64           `db:"transfer_value" json:"transferValue"`
	FinancePosted           bool              `db:"finance_posted" json:"financePosted"`
	UsesClientPackage       bool              `db:"uses_client_package" json:"usesClientPackage"`
	UsesProfessionalAdvance bool              `db:"uses_professional_advance" json:"usesProfessionalAdvance"`
}

// IsRealized reports whether the session took place.
func (a *Appointment) IsRealized() bool {
	return a.Status == StatusRealized
}

// MonthKey returns the "YYYY-MM" bucket this appointment counts toward.
func (a *Appointment) MonthKey() string {
	return MonthKey(a.Date)
}

// SameClient reports whether the appointment references the given client.
// A nil id never matches: sublet slots have no party to collide with.
func (a *Appointment) SameClient(id *uuid.UUID) bool {
	if id == nil || a.ClientID == nil {
		return false
	}
	return *a.ClientID == *id
}

// SaveCellRequest is the grid-cell editor payload. A nil ID creates a new
// appointment; otherwise the identified one is rewritten in place.
type SaveCellRequest struct {
	ID                      *uuid.UUID        `json:"id,omitempty"`
	Date                    string            `json:"date" validate:"required,datetime=2006-01-02"`
	Time                    string            `json:"time" validate:"required"`
	Room                    int               `json:"room" validate:"required,min=1,max=4"`
	ClientID                *uuid.UUID        `json:"clientId,omitempty"`
	ProfessionalID          uuid.UUID         `json:"professionalId" validate:"required"`
	PaymentMethod           PaymentMethod     `json:"paymentMethod" validate:"required,oneof=dinheiro pix cartao"`
	Status                  AppointmentStatus `json:"status" validate:"required,oneof=agendado realizado alterado cancelado"`
	UsesClientPackage       bool              `json:"usesClientPackage"`
	UsesProfessionalAdvance bool              `json:"usesProfessionalAdvance"`
}

// PostFinanceRequest confirms the monetary values of an appointment and
// locks them for the financial ledger.
type PostFinanceRequest struct {
	ReceivedValue float64 `json:"receivedValue" validate:"min=0"`
	TransferValue float64 `json:"transferValue" validate:"min=0"`
	FinancePosted bool    `json:"financePosted"`
}

type AppointmentFilters struct {
	ProfessionalID *uuid.UUID
	Status         AppointmentStatus
	StartDate      string
	EndDate        string
	Limit          int
}

// MirrorDelta is one relative adjustment of a professional's monthly
// realized counter in the public mirror.
type MirrorDelta struct {
	ProfessionalID uuid.UUID
	Month          string
	Delta          int
}

// ValidTimeSlot reports whether hhmm is one of the bookable hour slots.
func ValidTimeSlot(hhmm string) bool {
	for _, s := range TimeSlots {
		if s == hhmm {
			return true
		}
	}
	return false
}
