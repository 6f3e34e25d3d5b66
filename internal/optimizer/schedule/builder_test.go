package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trip-optimizer/internal/common/errors"
	"trip-optimizer/internal/common/logger"
	"trip-optimizer/internal/models"
	"trip-optimizer/internal/spatial"
)

// stubDistance derives minutes from the great-circle distance so tests stay
// deterministic without a live provider.
type stubDistance struct {
	err error
}

func (s stubDistance) TravelTime(_ context.Context, from, to models.Location, _ models.TransportMode) (int, float64, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	d := spatial.DistanceKm(from, to)
	return 10 + int(d), d, nil
}

func newTestBuilder(t *testing.T, provider DistanceProvider) *Builder {
	return NewBuilder(provider, DefaultConfig(), logger.NewTestLogger(t))
}

func scoredPlace(id string, lat, lng float64, stayMinutes int) models.ScoredPlace {
	return models.ScoredPlace{
		Place: models.Place{
			ID:                  id,
			Name:                id,
			Location:            models.Location{Lat: lat, Lng: lng},
			StayDurationMinutes: stayMinutes,
			WishLevel:           3,
			MemberID:            "m1",
		},
		Score: 0.7,
	}
}

func buildTrip(days int) *models.TripContext {
	return &models.TripContext{
		TripID:    "t1",
		StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Days:      days,
		Members:   []models.Member{{ID: "m1", OptimizationEligible: true}},
	}
}

func TestClassifyMode(t *testing.T) {
	b := newTestBuilder(t, stubDistance{})

	tests := []struct {
		name      string
		distKm    float64
		preferred models.TransportMode
		want      models.TransportMode
	}{
		{"short hop walks", 0.5, models.TransportCar, models.TransportWalking},
		{"walking boundary stays walking", 1.0, models.TransportCar, models.TransportWalking},
		{"city leg drives", 5.0, models.TransportCar, models.TransportCar},
		{"city leg honors public preference", 5.0, models.TransportPublic, models.TransportPublic},
		{"car boundary stays car", 20.0, models.TransportCar, models.TransportCar},
		{"just past the car band still drives", 25.0, models.TransportCar, models.TransportCar},
		{"regional leg still drives", 150.0, models.TransportCar, models.TransportCar},
		{"public preference does not extend past the car band", 150.0, models.TransportPublic, models.TransportCar},
		{"flight boundary stays car", 200.0, models.TransportCar, models.TransportCar},
		{"long haul flies", 500.0, models.TransportCar, models.TransportFlight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.classifyMode(tt.distKm, tt.preferred))
		})
	}
}

func TestBuildAssignsModesPerLeg(t *testing.T) {
	b := newTestBuilder(t, stubDistance{})
	selected := []models.ScoredPlace{
		scoredPlace("start", 0, 0, 60),
		scoredPlace("near", 0.004, 0, 60),  // ~0.4km: walking
		scoredPlace("across", 0.104, 0, 60), // ~11km: car
		scoredPlace("far", 3.104, 0, 60),    // ~330km: flight
	}
	settings := models.DefaultSettings()
	settings.IncludeMeals = false

	schedules, unplaced, err := b.Build(context.Background(), buildTrip(1), selected, settings)

	require.NoError(t, err)
	assert.Empty(t, unplaced)
	require.Len(t, schedules, 1)
	require.Len(t, schedules[0].Places, 4)

	got := schedules[0].Places
	assert.Equal(t, models.TransportWalking, got[0].TransportMode, "first place has no leg")
	assert.Equal(t, 0, got[0].TravelTimeFromPreviousMinutes)
	assert.Equal(t, models.TransportWalking, got[1].TransportMode)
	assert.Equal(t, models.TransportCar, got[2].TransportMode)
	assert.Equal(t, models.TransportFlight, got[3].TransportMode)
}

func TestBuildTimelineIsContiguous(t *testing.T) {
	b := newTestBuilder(t, stubDistance{})
	selected := []models.ScoredPlace{
		scoredPlace("a", 0, 0, 60),
		scoredPlace("b", 0.01, 0, 90),
		scoredPlace("c", 0.02, 0, 45),
	}
	settings := models.DefaultSettings()
	settings.IncludeMeals = false

	schedules, _, err := b.Build(context.Background(), buildTrip(1), selected, settings)

	require.NoError(t, err)
	require.Len(t, schedules, 1)

	day := schedules[0]
	dayStart := time.Date(2026, 6, 1, settings.DayStartHour, 0, 0, 0, time.UTC)
	for i, sp := range day.Places {
		assert.Equal(t, i+1, sp.OrderInDay, "order must be contiguous from 1")
		assert.False(t, sp.ArrivalTime.Before(dayStart))
		assert.True(t, sp.DepartureTime.After(sp.ArrivalTime))
		if i > 0 {
			wantArrival := day.Places[i-1].DepartureTime.Add(
				time.Duration(sp.TravelTimeFromPreviousMinutes) * time.Minute)
			assert.Equal(t, wantArrival, sp.ArrivalTime)
		}
	}
}

func TestBuildSplitsAcrossDays(t *testing.T) {
	b := newTestBuilder(t, stubDistance{})
	selected := []models.ScoredPlace{
		scoredPlace("a", 0, 0, 60),
		scoredPlace("b", 0.001, 0, 60),
		scoredPlace("c", 0.002, 0, 60),
		scoredPlace("d", 0.003, 0, 60),
	}
	settings := models.DefaultSettings()
	settings.IncludeMeals = false
	settings.MaxPlacesPerDay = 2

	schedules, unplaced, err := b.Build(context.Background(), buildTrip(2), selected, settings)

	require.NoError(t, err)
	assert.Empty(t, unplaced)
	require.Len(t, schedules, 2)
	assert.Len(t, schedules[0].Places, 2)
	assert.Len(t, schedules[1].Places, 2)
	assert.Equal(t, 1, schedules[0].Day)
	assert.Equal(t, 2, schedules[1].Day)
	assert.Equal(t, schedules[0].Date.AddDate(0, 0, 1), schedules[1].Date)
}

func TestBuildOverflowBecomesUnscheduled(t *testing.T) {
	b := newTestBuilder(t, stubDistance{})
	selected := []models.ScoredPlace{
		scoredPlace("a", 0, 0, 60),
		scoredPlace("b", 0.001, 0, 60),
		scoredPlace("c", 0.002, 0, 60),
	}
	settings := models.DefaultSettings()
	settings.IncludeMeals = false
	settings.MaxPlacesPerDay = 1

	schedules, unplaced, err := b.Build(context.Background(), buildTrip(2), selected, settings)

	require.NoError(t, err)
	assert.Len(t, schedules, 2)
	assert.Len(t, unplaced, 1, "third place has no day left")
}

func TestBuildMealsCoverTheDay(t *testing.T) {
	b := newTestBuilder(t, stubDistance{})
	selected := []models.ScoredPlace{scoredPlace("museum", 0, 0, 120)}
	settings := models.DefaultSettings()
	settings.DayStartHour = 8
	settings.DayEndHour = 20

	schedules, _, err := b.Build(context.Background(), buildTrip(1), selected, settings)

	require.NoError(t, err)
	require.Len(t, schedules, 1)

	day := schedules[0]
	types := make(map[models.MealType]models.MealBreak, len(day.MealBreaks))
	for _, mb := range day.MealBreaks {
		types[mb.Type] = mb
	}
	require.Len(t, types, 3, "a full day covers breakfast, lunch and dinner")

	dayEnd := time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)
	for _, mb := range day.MealBreaks {
		assert.True(t, mb.EndTime.After(mb.StartTime))
		assert.False(t, mb.EndTime.After(dayEnd), "meals never run past the day window")
		assert.Greater(t, mb.EstimatedCost, 0.0)
	}

	assert.Equal(t, 8, types[models.MealBreakfast].StartTime.Hour())
	assert.GreaterOrEqual(t, types[models.MealLunch].StartTime.Hour(), 12)
	assert.GreaterOrEqual(t, types[models.MealDinner].StartTime.Hour(), 18)
}

func TestBuildMealsDisabled(t *testing.T) {
	b := newTestBuilder(t, stubDistance{})
	selected := []models.ScoredPlace{scoredPlace("museum", 0, 0, 120)}
	settings := models.DefaultSettings()
	settings.IncludeMeals = false

	schedules, _, err := b.Build(context.Background(), buildTrip(1), selected, settings)

	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Empty(t, schedules[0].MealBreaks)
}

func TestBuildSkipsUnresolvedLocations(t *testing.T) {
	b := newTestBuilder(t, stubDistance{})
	ghost := models.ScoredPlace{
		Place: models.Place{ID: "ghost", Name: "ghost", StayDurationMinutes: 60},
		Score: 0.9,
	}
	selected := []models.ScoredPlace{
		ghost,
		scoredPlace("real", 0.01, 0, 60),
	}
	settings := models.DefaultSettings()
	settings.IncludeMeals = false

	schedules, unplaced, err := b.Build(context.Background(), buildTrip(1), selected, settings)

	require.NoError(t, err)
	require.Len(t, unplaced, 1)
	assert.Equal(t, "ghost", unplaced[0].ID)
	require.Len(t, schedules, 1)
	assert.Equal(t, "real", schedules[0].Places[0].Place.ID)
}

func TestBuildOversizedPlaceDropped(t *testing.T) {
	b := newTestBuilder(t, stubDistance{})
	selected := []models.ScoredPlace{
		scoredPlace("marathon", 0, 0, 900), // longer than any day window
		scoredPlace("normal", 0.01, 0, 60),
	}
	settings := models.DefaultSettings()
	settings.IncludeMeals = false
	settings.MaxTotalDurationMinutes = 1000

	schedules, unplaced, err := b.Build(context.Background(), buildTrip(1), selected, settings)

	require.NoError(t, err)
	require.Len(t, unplaced, 1)
	assert.Equal(t, "marathon", unplaced[0].ID)
	require.Len(t, schedules, 1)
	assert.Equal(t, "normal", schedules[0].Places[0].Place.ID)
}

func TestBuildProviderFailure(t *testing.T) {
	b := newTestBuilder(t, stubDistance{err: errors.New("route service down")})
	selected := []models.ScoredPlace{
		scoredPlace("a", 0, 0, 60),
		scoredPlace("b", 0.01, 0, 60),
	}
	settings := models.DefaultSettings()
	settings.IncludeMeals = false

	_, _, err := b.Build(context.Background(), buildTrip(1), selected, settings)

	var cerr *apperrors.ClassifiedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, apperrors.ExternalServiceError, cerr.Type)
	assert.True(t, cerr.Retryable)
}

func TestBuildTotalsAccumulate(t *testing.T) {
	b := newTestBuilder(t, stubDistance{})
	selected := []models.ScoredPlace{
		scoredPlace("a", 0, 0, 60),
		scoredPlace("b", 0.001, 0, 90),
	}
	settings := models.DefaultSettings()
	settings.IncludeMeals = false

	schedules, _, err := b.Build(context.Background(), buildTrip(1), selected, settings)

	require.NoError(t, err)
	require.Len(t, schedules, 1)

	day := schedules[0]
	assert.Equal(t, 150, day.TotalVisitTimeMinutes)
	var travel int
	for _, sp := range day.Places {
		travel += sp.TravelTimeFromPreviousMinutes
	}
	assert.Equal(t, travel, day.TotalTravelTimeMinutes)
}
