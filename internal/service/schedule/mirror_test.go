package schedule

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicaviva/agenda-api/internal/model"
)

func TestMirrorDeltasForCreate(t *testing.T) {
	pro := uuid.New()

	realized := apt("2025-09-10", "09:00", 1, pro, model.StatusRealized)
	deltas := mirrorDeltasForCreate(realized)
	require.Len(t, deltas, 1)
	assert.Equal(t, model.MirrorDelta{ProfessionalID: pro, Month: "2025-09", Delta: 1}, deltas[0])

	scheduled := apt("2025-09-10", "09:00", 1, pro, model.StatusScheduled)
	assert.Empty(t, mirrorDeltasForCreate(scheduled))
}

func TestMirrorDeltasForUpdate(t *testing.T) {
	proA := uuid.New()
	proB := uuid.New()

	t.Run("status flip into realized", func(t *testing.T) {
		old := apt("2025-09-10", "09:00", 1, proA, model.StatusScheduled)
		updated := apt("2025-09-10", "09:00", 1, proA, model.StatusRealized)
		deltas := mirrorDeltasForUpdate(old, updated)
		require.Len(t, deltas, 1)
		assert.Equal(t, 1, deltas[0].Delta)
	})

	t.Run("status flip out of realized", func(t *testing.T) {
		old := apt("2025-09-10", "09:00", 1, proA, model.StatusRealized)
		updated := apt("2025-09-10", "09:00", 1, proA, model.StatusCancelled)
		deltas := mirrorDeltasForUpdate(old, updated)
		require.Len(t, deltas, 1)
		assert.Equal(t, -1, deltas[0].Delta)
	})

	t.Run("unchanged realized bucket yields nothing", func(t *testing.T) {
		old := apt("2025-09-10", "09:00", 1, proA, model.StatusRealized)
		updated := apt("2025-09-11", "10:00", 2, proA, model.StatusRealized)
		assert.Empty(t, mirrorDeltasForUpdate(old, updated))
	})

	t.Run("reassignment conserves the total", func(t *testing.T) {
		old := apt("2025-09-10", "09:00", 1, proA, model.StatusRealized)
		updated := apt("2025-09-10", "09:00", 1, proB, model.StatusRealized)
		deltas := mirrorDeltasForUpdate(old, updated)
		require.Len(t, deltas, 2)
		sum := 0
		for _, d := range deltas {
			sum += d.Delta
		}
		assert.Zero(t, sum)
		assert.Equal(t, proA, deltas[0].ProfessionalID)
		assert.Equal(t, -1, deltas[0].Delta)
		assert.Equal(t, proB, deltas[1].ProfessionalID)
		assert.Equal(t, 1, deltas[1].Delta)
	})

	t.Run("month move splits the buckets", func(t *testing.T) {
		old := apt("2025-09-30", "09:00", 1, proA, model.StatusRealized)
		updated := apt("2025-10-01", "09:00", 1, proA, model.StatusRealized)
		deltas := mirrorDeltasForUpdate(old, updated)
		require.Len(t, deltas, 2)
		assert.Equal(t, "2025-09", deltas[0].Month)
		assert.Equal(t, "2025-10", deltas[1].Month)
	})
}

func TestMirrorDeltasForDelete(t *testing.T) {
	pro := uuid.New()

	realized := apt("2025-09-10", "09:00", 1, pro, model.StatusRealized)
	deltas := mirrorDeltasForDelete(realized)
	require.Len(t, deltas, 1)
	assert.Equal(t, -1, deltas[0].Delta)

	cancelled := apt("2025-09-10", "09:00", 1, pro, model.StatusCancelled)
	assert.Empty(t, mirrorDeltasForDelete(cancelled))
}

// Create then delete must round-trip the counter back to where it was.
func TestMirrorCreateDeleteRoundTrip(t *testing.T) {
	pro := uuid.New()
	a := apt("2025-09-10", "09:00", 1, pro, model.StatusRealized)

	total := 0
	for _, d := range mirrorDeltasForCreate(a) {
		total += d.Delta
	}
	for _, d := range mirrorDeltasForDelete(a) {
		total += d.Delta
	}
	assert.Zero(t, total)
}

func TestMonthCounts(t *testing.T) {
	proA := uuid.New()
	proB := uuid.New()

	appointments := []*model.Appointment{
		apt("2025-09-01", "09:00", 1, proA, model.StatusRealized),
		apt("2025-09-02", "09:00", 1, proA, model.StatusRealized),
		apt("2025-09-03", "09:00", 1, proA, model.StatusScheduled),
		apt("2025-09-04", "09:00", 1, proB, model.StatusRealized),
		apt("2025-08-30", "09:00", 1, proB, model.StatusRealized),
	}

	counts := MonthCounts(appointments, "2025-09")
	assert.Equal(t, 2, counts[proA])
	assert.Equal(t, 1, counts[proB])
	assert.Len(t, counts, 2)
}
