package planner

import (
	"testing"

	"github.com/Hans-Rafael/glup-water-reminder/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchedule_DefaultDay(t *testing.T) {
	w := window("07:00", "22:00")
	fireTimes := BuildSchedule(w, 69, 13, DefaultHorizonDays)

	require.Len(t, fireTimes, 13*DefaultHorizonDays)
	assert.Equal(t, models.FireTime{DayOffset: 0, Hour: 7, Minute: 0}, fireTimes[0])
	assert.Equal(t, models.FireTime{DayOffset: 0, Hour: 8, Minute: 9}, fireTimes[1])
	assert.Equal(t, models.FireTime{DayOffset: 0, Hour: 9, Minute: 18}, fireTimes[2])
	assert.Equal(t, models.FireTime{DayOffset: 0, Hour: 20, Minute: 48}, fireTimes[12])
	assert.Equal(t, models.FireTime{DayOffset: 1, Hour: 7, Minute: 0}, fireTimes[13])
	assert.Equal(t, models.FireTime{DayOffset: 6, Hour: 20, Minute: 48}, fireTimes[len(fireTimes)-1])
}

func TestBuildSchedule_HourOnlyCutoff(t *testing.T) {
	// sleep 22:30，20:00 + 2h10m = 22:10 落在小时 22，被丢弃
	w := window("20:00", "22:30")
	fireTimes := BuildSchedule(w, 130, 3, 1)

	require.Len(t, fireTimes, 1)
	assert.Equal(t, models.FireTime{DayOffset: 0, Hour: 20, Minute: 0}, fireTimes[0])
}

func TestBuildSchedule_StopsAtSleepHourAcrossDays(t *testing.T) {
	w := window("07:00", "10:00")
	fireTimes := BuildSchedule(w, 60, 8, 2)

	require.Len(t, fireTimes, 6)
	for _, ft := range fireTimes {
		assert.Less(t, ft.Hour, 10)
	}
	assert.Equal(t, 0, fireTimes[2].DayOffset)
	assert.Equal(t, 1, fireTimes[3].DayOffset)
}

func TestBuildSchedule_NeverAtOrAfterSleepHour(t *testing.T) {
	for wake := 0; wake < models.MinutesPerDay; wake += 53 {
		for sleep := 0; sleep < models.MinutesPerDay; sleep += 71 {
			w := models.WakeWindow{Wake: models.TimeOfDay(wake), Sleep: models.TimeOfDay(sleep)}
			plan := Plan(w, 3.0, 0.25, 2)
			for _, ft := range plan.FireTimes {
				assert.Less(t, ft.Hour, w.Sleep.Hour())
			}
		}
	}
}

func TestBuildSchedule_ChronologicalAndPure(t *testing.T) {
	w := window("06:30", "23:00")
	first := BuildSchedule(w, 45, 20, 3)
	second := BuildSchedule(w, 45, 20, 3)
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		prevKey := prev.DayOffset*models.MinutesPerDay + prev.Hour*60 + prev.Minute
		curKey := cur.DayOffset*models.MinutesPerDay + cur.Hour*60 + cur.Minute
		assert.Less(t, prevKey, curKey)
	}
}

func TestBuildSchedule_DefaultHorizon(t *testing.T) {
	fireTimes := BuildSchedule(window("07:00", "22:00"), 69, 13, 0)
	assert.Equal(t, DefaultHorizonDays-1, fireTimes[len(fireTimes)-1].DayOffset)
}

func TestPlan_DegenerateWindowIsEmpty(t *testing.T) {
	plan := Plan(window("22:00", "07:00"), 2.5, 0.2, DefaultHorizonDays)

	assert.True(t, plan.Degenerate)
	assert.Equal(t, DegenerateIntervalMinutes, plan.IntervalMinutes)
	assert.Equal(t, 13, plan.GlassesNeeded)
	assert.Empty(t, plan.FireTimes)
}

func TestPlan_DefaultDay(t *testing.T) {
	plan := Plan(window("07:00", "22:00"), 2.5, 0.2, DefaultHorizonDays)

	assert.False(t, plan.Degenerate)
	assert.Equal(t, 69, plan.IntervalMinutes)
	assert.Equal(t, 13, plan.GlassesNeeded)
	assert.Len(t, plan.FireTimes, 91)
}
