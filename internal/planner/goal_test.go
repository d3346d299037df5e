package planner

import (
	"math"
	"testing"

	"github.com/Hans-Rafael/glup-water-reminder/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeGoal(t *testing.T) {
	cases := []struct {
		name    string
		profile models.DailyProfile
		want    float64
	}{
		{
			name:    "male low temperate",
			profile: models.DailyProfile{WeightKg: 70, Gender: models.GenderMale, ActivityLevel: models.ActivityLow, Climate: models.ClimateTemperate},
			want:    2.5,
		},
		{
			name:    "female high hot",
			profile: models.DailyProfile{WeightKg: 60, Gender: models.GenderFemale, ActivityLevel: models.ActivityHigh, Climate: models.ClimateHot},
			want:    3.4,
		},
		{
			name:    "pregnant moderate cold",
			profile: models.DailyProfile{WeightKg: 55, Gender: models.GenderPregnant, ActivityLevel: models.ActivityModerate, Climate: models.ClimateCold},
			want:    2.3,
		},
		{
			name:    "half up on tenths",
			profile: models.DailyProfile{WeightKg: 62.5, Gender: models.GenderFemale, ActivityLevel: models.ActivityLow, Climate: models.ClimateTemperate},
			want:    1.8,
		},
		{
			name:    "zero weight falls back to 70kg",
			profile: models.DailyProfile{WeightKg: 0, Gender: models.GenderFemale, ActivityLevel: models.ActivityLow},
			want:    2.0,
		},
		{
			name:    "NaN weight falls back to 70kg",
			profile: models.DailyProfile{WeightKg: math.NaN(), Gender: models.GenderMale, ActivityLevel: models.ActivityLow},
			want:    2.5,
		},
		{
			name:    "non positive result defaults",
			profile: models.DailyProfile{WeightKg: -200, Gender: models.GenderFemale},
			want:    models.DefaultGoal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeGoal(tc.profile)
			assert.InDelta(t, tc.want, got.Liters, 1e-9)
			assert.Greater(t, got.Liters, 0.0)
		})
	}
}

func TestComputeGoal_OnlyOneActivityBonus(t *testing.T) {
	low := ComputeGoal(models.DailyProfile{WeightKg: 80, Gender: models.GenderFemale, ActivityLevel: models.ActivityLow})
	high := ComputeGoal(models.DailyProfile{WeightKg: 80, Gender: models.GenderFemale, ActivityLevel: models.ActivityHigh})
	assert.InDelta(t, 1.0, high.Liters-low.Liters, 1e-9)
}

func TestParseWeight(t *testing.T) {
	assert.Equal(t, 82.5, ParseWeight(" 82.5 "))
	assert.Equal(t, 70.0, ParseWeight("abc"))
	assert.Equal(t, 70.0, ParseWeight(""))
	assert.Equal(t, 70.0, ParseWeight("0"))
}
