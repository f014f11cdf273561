package schedule

import (
	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/model"
)

// The public mirror tracks, per professional per month, how many
// appointments were realized. Every state transition that moves one
// realized unit into or out of a (professional, month) bucket yields
// relative deltas, applied atomically alongside the appointment write.

func mirrorDeltasForCreate(apt *model.Appointment) []model.MirrorDelta {
	if !apt.IsRealized() || apt.MonthKey() == "" {
		return nil
	}
	return []model.MirrorDelta{{ProfessionalID: apt.ProfessionalID, Month: apt.MonthKey(), Delta: +1}}
}

// mirrorDeltasForUpdate treats a status change, a professional
// reassignment and a date move uniformly: the old bucket loses its unit
// if the appointment was realized, the new bucket gains one if it still
// is. An unchanged realized bucket yields no deltas.
func mirrorDeltasForUpdate(old, updated *model.Appointment) []model.MirrorDelta {
	oldRealized := old.IsRealized() && old.MonthKey() != ""
	newRealized := updated.IsRealized() && updated.MonthKey() != ""

	if oldRealized && newRealized &&
		old.ProfessionalID == updated.ProfessionalID &&
		old.MonthKey() == updated.MonthKey() {
		return nil
	}

	var deltas []model.MirrorDelta
	if oldRealized {
		deltas = append(deltas, model.MirrorDelta{ProfessionalID: old.ProfessionalID, Month: old.MonthKey(), Delta: -1})
	}
	if newRealized {
		deltas = append(deltas, model.MirrorDelta{ProfessionalID: updated.ProfessionalID, Month: updated.MonthKey(), Delta: +1})
	}
	return deltas
}

func mirrorDeltasForDelete(apt *model.Appointment) []model.MirrorDelta {
	if !apt.IsRealized() || apt.MonthKey() == "" {
		return nil
	}
	return []model.MirrorDelta{{ProfessionalID: apt.ProfessionalID, Month: apt.MonthKey(), Delta: -1}}
}

// MonthCounts recomputes, from a full appointment scan, how many realized
// appointments each professional has in the given month. The self-heal
// pass overwrites the mirror with these absolute values to correct any
// drift the relative increments accumulated.
func MonthCounts(appointments []*model.Appointment, month string) map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int)
	for _, a := range appointments {
		if a.IsRealized() && a.MonthKey() == month {
			counts[a.ProfessionalID]++
		}
	}
	return counts
}
