package schedule

import (
	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/pkg/errors"
)

// SlotCandidate is the scheduling key of a cell about to be written.
type SlotCandidate struct {
	Date           string
	Time           string
	Room           int
	ProfessionalID uuid.UUID
	ClientID       *uuid.UUID
}

// ActiveAppointments keeps only appointments whose references still point
// at registered entities. Entries left behind by a deleted professional or
// client are ghosts and must not block new bookings; a nil client is
// always valid (sublet slot).
func ActiveAppointments(appointments []*model.Appointment, pros []*model.Professional, clients []*model.Client) []*model.Appointment {
	proIDs := make(map[uuid.UUID]struct{}, len(pros))
	for _, p := range pros {
		proIDs[p.ID] = struct{}{}
	}
	cliIDs := make(map[uuid.UUID]struct{}, len(clients))
	for _, c := range clients {
		cliIDs[c.ID] = struct{}{}
	}

	active := make([]*model.Appointment, 0, len(appointments))
	for _, a := range appointments {
		if _, ok := proIDs[a.ProfessionalID]; !ok {
			continue
		}
		if a.ClientID != nil {
			if _, ok := cliIDs[*a.ClientID]; !ok {
				continue
			}
		}
		active = append(active, a)
	}
	return active
}

// ValidateSlot rejects a candidate that would double-book a room, a
// professional or a client in the same date and hour slot. Checks run in
// that order, so the first colliding axis is the one reported. ignoreID
// excludes the appointment being edited from its own checks.
//
// This is a read-time guard over already-loaded state, not a store-side
// constraint: two concurrent writers can both pass it and both commit.
func ValidateSlot(candidate SlotCandidate, existing []*model.Appointment, ignoreID *uuid.UUID) error {
	sameSlot := func(a *model.Appointment) bool {
		if ignoreID != nil && a.ID == *ignoreID {
			return false
		}
		return a.Date == candidate.Date && a.Time == candidate.Time
	}

	for _, a := range existing {
		if sameSlot(a) && a.Room == candidate.Room {
			return errors.Conflict(errors.ConflictRoom)
		}
	}
	for _, a := range existing {
		if sameSlot(a) && a.ProfessionalID == candidate.ProfessionalID {
			return errors.Conflict(errors.ConflictProfessional)
		}
	}
	if candidate.ClientID != nil {
		for _, a := range existing {
			if sameSlot(a) && a.SameClient(candidate.ClientID) {
				return errors.Conflict(errors.ConflictClient)
			}
		}
	}
	return nil
}
