package weather_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/bodacc/internal/model"
	"github.com/derickschaefer/bodacc/internal/refdata"
	"github.com/derickschaefer/bodacc/internal/weather"
)

func TestEvolutionPercent(t *testing.T) {
	assert.Equal(t, 0.0, weather.EvolutionPercent(0, 0))
	assert.Equal(t, 100.0, weather.EvolutionPercent(5, 0))
	assert.Equal(t, 50.0, weather.EvolutionPercent(15, 10))
	assert.Equal(t, -100.0, weather.EvolutionPercent(0, 10))
	assert.InDelta(t, -33.333, weather.EvolutionPercent(2, 3), 0.001)
}

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		evo  float64
		want model.WeatherState
	}{
		{10.0, model.Cloudy},
		{10.01, model.Sunny},
		{-10.0, model.Cloudy},
		{-10.01, model.Rainy},
		{0, model.Cloudy},
		{100, model.Sunny},
		{-100, model.Rainy},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, weather.Classify(tc.evo), "evolution %g", tc.evo)
	}
}

func TestCustomThresholds(t *testing.T) {
	th := weather.Thresholds{Positive: 25, Negative: -5}
	require.NoError(t, th.Validate())
	assert.Equal(t, model.Cloudy, th.Classify(20))
	assert.Equal(t, model.Rainy, th.Classify(-6))

	assert.Error(t, weather.Thresholds{Positive: -1, Negative: 1}.Validate())
	assert.Error(t, weather.Thresholds{}.Validate())
}

func TestWindowsFixedReference(t *testing.T) {
	cur, prev, err := weather.Windows("2024-12", time.Now())
	require.NoError(t, err)
	assert.Equal(t, weather.Window{From: "2024-12-01", To: "2024-12-31"}, cur)
	assert.Equal(t, weather.Window{From: "2024-11-01", To: "2024-11-30"}, prev)

	cur, prev, err = weather.Windows("2024-03", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-31", cur.To)
	assert.Equal(t, weather.Window{From: "2024-02-01", To: "2024-02-29"}, prev)
}

func TestWindowsRolling(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	cur, prev, err := weather.Windows("", now)
	require.NoError(t, err)
	assert.Equal(t, weather.Window{From: "2024-12-01", To: "2024-12-31"}, cur)
	assert.Equal(t, weather.Window{From: "2024-11-01", To: "2024-11-30"}, prev)
}

func TestWindowsInvalid(t *testing.T) {
	_, _, err := weather.Windows("2024-13", time.Now())
	assert.Error(t, err)
	_, _, err = weather.Windows("Dec 2024", time.Now())
	assert.Error(t, err)
}

func TestCompute(t *testing.T) {
	deps := []refdata.Department{{Code: "75", Name: "Paris"}, {Code: "13", Name: "Bouches-du-Rhône"}, {Code: "2A", Name: "Corse-du-Sud"}, {Code: "48", Name: "Lozère"}}
	current := map[string]int{"75": 120, "13": 90, "2A": 5}
	previous := map[string]int{"75": 100, "13": 100, "99": 7}

	got := weather.Compute(deps, current, previous, weather.DefaultThresholds)
	require.Len(t, got, 4)

	assert.Equal(t, model.DepartmentWeather{Code: "75", Name: "Paris", Current: 120, Previous: 100, Evolution: 20, State: model.Sunny}, got[0])
	assert.Equal(t, model.Cloudy, got[1].State) // -10% exactly
	assert.Equal(t, -10.0, got[1].Evolution)
	assert.Equal(t, 100.0, got[2].Evolution)
	assert.Equal(t, model.Sunny, got[2].State)
	assert.Equal(t, 0.0, got[3].Evolution)
	assert.Equal(t, model.Cloudy, got[3].State)

	tally := weather.Tally(got)
	assert.Equal(t, 2, tally[model.Sunny])
	assert.Equal(t, 2, tally[model.Cloudy])
	assert.Equal(t, 0, tally[model.Rainy])
}
