package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/model"
)

type WindowMode string

const (
	WindowWeek WindowMode = "week"
	WindowDay  WindowMode = "day"
)

// Window describes the visible slice of the agenda. A week window always
// spans Monday through Saturday of the anchor's week; Sunday is not a
// bookable day.
type Window struct {
	Mode   WindowMode
	Anchor string // "YYYY-MM-DD"
}

// Grid is the dense projection the agenda views render: one cell per
// (day, room, slot), plus realized totals per day and room and for the
// whole window.
type Grid struct {
	Days      []string `json:"days"`
	Rooms     []int    `json:"rooms"`
	TimeSlots []string `json:"timeSlots"`

	// Cells is keyed day → room → time. Absent keys are free slots.
	Cells map[string]map[int]map[string]*model.Appointment `json:"cells"`

	// DayRoomRealized counts realized appointments per (day, room); the
	// footer totals row of the grid.
	DayRoomRealized map[string]map[int]int `json:"dayRoomRealized"`
	WindowRealized  int                    `json:"windowRealized"`
}

const dateLayout = "2006-01-02"

// StartOfWeekMonday normalizes a date to the Monday of its week.
func StartOfWeekMonday(dateISO string) (time.Time, error) {
	d, err := time.Parse(dateLayout, dateISO)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid anchor date %q: %w", dateISO, err)
	}
	delta := int(d.Weekday()) - int(time.Monday)
	if d.Weekday() == time.Sunday {
		delta = 6
	}
	return d.AddDate(0, 0, -delta), nil
}

// WindowDays enumerates the ISO dates a window spans: six days from the
// normalized Monday for week mode, the anchor itself for day mode.
func WindowDays(w Window) ([]string, error) {
	switch w.Mode {
	case WindowDay:
		if _, err := time.Parse(dateLayout, w.Anchor); err != nil {
			return nil, fmt.Errorf("invalid anchor date %q: %w", w.Anchor, err)
		}
		return []string{w.Anchor}, nil
	case WindowWeek:
		monday, err := StartOfWeekMonday(w.Anchor)
		if err != nil {
			return nil, err
		}
		days := make([]string, 6)
		for i := range days {
			days[i] = monday.AddDate(0, 0, i).Format(dateLayout)
		}
		return days, nil
	default:
		return nil, fmt.Errorf("unknown window mode %q", w.Mode)
	}
}

// Project materializes the flat appointment list into the grid. The input
// should already be filtered to active appointments; professionalFilter
// additionally narrows cells and totals to a single professional. Pure
// read-side computation, recomputed on every relevant change.
func Project(appointments []*model.Appointment, w Window, professionalFilter *uuid.UUID) (*Grid, error) {
	days, err := WindowDays(w)
	if err != nil {
		return nil, err
	}

	grid := &Grid{
		Days:            days,
		Rooms:           model.Rooms,
		TimeSlots:       model.TimeSlots,
		Cells:           make(map[string]map[int]map[string]*model.Appointment, len(days)),
		DayRoomRealized: make(map[string]map[int]int, len(days)),
	}
	inWindow := make(map[string]struct{}, len(days))
	for _, d := range days {
		inWindow[d] = struct{}{}
		grid.Cells[d] = make(map[int]map[string]*model.Appointment)
		totals := make(map[int]int, len(model.Rooms))
		for _, room := range model.Rooms {
			totals[room] = 0
		}
		grid.DayRoomRealized[d] = totals
	}

	for _, a := range appointments {
		if professionalFilter != nil && a.ProfessionalID != *professionalFilter {
			continue
		}
		if _, ok := inWindow[a.Date]; !ok {
			continue
		}
		if !model.ValidTimeSlot(a.Time) || a.Room < 1 || a.Room > len(model.Rooms) {
			continue
		}

		byRoom := grid.Cells[a.Date]
		if byRoom[a.Room] == nil {
			byRoom[a.Room] = make(map[string]*model.Appointment)
		}
		byRoom[a.Room][a.Time] = a

		if a.IsRealized() {
			grid.DayRoomRealized[a.Date][a.Room]++
			grid.WindowRealized++
		}
	}
	return grid, nil
}

// CellAt returns the appointment occupying a slot, or nil when free.
func (g *Grid) CellAt(day string, room int, slot string) *model.Appointment {
	byRoom, ok := g.Cells[day]
	if !ok {
		return nil
	}
	bySlot, ok := byRoom[room]
	if !ok {
		return nil
	}
	return bySlot[slot]
}
