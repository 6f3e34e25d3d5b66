// Package schedule lays the selected places into per-day timelines, assigning
// transport modes, arrival/departure times and meal breaks.
package schedule

import (
	"context"
	"time"

	apperrors "trip-optimizer/internal/common/errors"
	"trip-optimizer/internal/common/logger"
	"trip-optimizer/internal/models"
	"trip-optimizer/internal/spatial"
)

const stage = string(models.StageRouting)

// DistanceProvider resolves one travel leg. External collaborator; failures
// are classified and retried by the pipeline.
type DistanceProvider interface {
	TravelTime(ctx context.Context, from, to models.Location, mode models.TransportMode) (minutes int, distanceKm float64, err error)
}

type Builder struct {
	provider DistanceProvider
	cfg      Config
	logger   logger.Logger
}

func NewBuilder(provider DistanceProvider, cfg Config, log logger.Logger) *Builder {
	return &Builder{
		provider: provider,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "schedule-builder"}),
	}
}

// classifyMode picks the transport mode for a leg from its straight-line
// distance. Boundary ties resolve to the shorter-distance mode: exactly the
// car threshold is still car, not flight.
func (b *Builder) classifyMode(distKm float64, preferred models.TransportMode) models.TransportMode {
	switch {
	case distKm <= b.cfg.WalkingMaxKm:
		return models.TransportWalking
	case distKm <= b.cfg.CarMaxKm:
		if preferred == models.TransportPublic {
			return models.TransportPublic
		}
		return models.TransportCar
	case distKm <= b.cfg.FlightMinKm:
		// Car floor: intra-city legs beyond the car band still drive.
		return models.TransportCar
	default:
		return models.TransportFlight
	}
}

// Build turns the selection into one DailySchedule per trip day. Places
// without a resolvable location, and places that no day can hold, come back
// in the second return value as unscheduled.
func (b *Builder) Build(ctx context.Context, trip *models.TripContext, selected []models.ScoredPlace, settings models.Settings) ([]models.DailySchedule, []models.ScoredPlace, error) {
	var queue, unplaced []models.ScoredPlace
	for _, sp := range selected {
		if sp.Location.IsZero() {
			// Reported back, not a pipeline failure.
			unplaced = append(unplaced, sp)
			continue
		}
		queue = append(queue, sp)
	}
	if len(unplaced) > 0 {
		b.logger.Warn("places without location excluded from routing", map[string]interface{}{
			"tripId": trip.TripID,
			"count":  len(unplaced),
		})
	}

	days := trip.Days
	if days < 1 {
		days = 1
	}

	var schedules []models.DailySchedule
	qi := 0
	for day := 1; day <= days && qi < len(queue); day++ {
		ds, next, err := b.buildDay(ctx, trip, queue, qi, day, settings)
		if err != nil {
			return nil, nil, err
		}
		// A place no empty day can hold would otherwise loop forever.
		if next == qi && len(ds.Places) == 0 {
			unplaced = append(unplaced, queue[qi])
			qi++
			day--
			continue
		}
		qi = next
		if len(ds.Places) > 0 {
			schedules = append(schedules, ds)
		}
	}
	// Overflow beyond the trip span.
	unplaced = append(unplaced, queue[qi:]...)

	return schedules, unplaced, nil
}

type dayState struct {
	schedule    models.DailySchedule
	clock       time.Time
	dayEnd      time.Time
	mealsEaten  map[models.MealType]bool
	stayMinutes int
}

func (b *Builder) buildDay(ctx context.Context, trip *models.TripContext, queue []models.ScoredPlace, qi, day int, settings models.Settings) (models.DailySchedule, int, error) {
	date := trip.StartDate.AddDate(0, 0, day-1)
	loc := date.Location()
	st := &dayState{
		schedule: models.DailySchedule{
			Date: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc),
			Day:  day,
		},
		clock:      time.Date(date.Year(), date.Month(), date.Day(), settings.DayStartHour, 0, 0, 0, loc),
		dayEnd:     time.Date(date.Year(), date.Month(), date.Day(), settings.DayEndHour, 0, 0, 0, loc),
		mealsEaten: make(map[models.MealType]bool, len(b.cfg.Meals)),
	}

	var prev *models.ScheduledPlace
	for qi < len(queue) {
		sp := queue[qi]

		if settings.IncludeMeals {
			b.consumeDueMeals(st)
		}

		travel := 0
		distKm := 0.0
		mode := models.TransportWalking
		if prev != nil {
			distKm = spatial.DistanceKm(prev.Place.Location, sp.Location)
			mode = b.classifyMode(distKm, settings.PreferredTransport)
			minutes, _, err := b.provider.TravelTime(ctx, prev.Place.Location, sp.Location, mode)
			if err != nil {
				return st.schedule, qi, apperrors.NewExternalService("distance-provider", stage, err)
			}
			travel = minutes
		}

		arrival := st.clock.Add(time.Duration(travel) * time.Minute)
		departure := arrival.Add(time.Duration(sp.StayDurationMinutes) * time.Minute)

		if len(st.schedule.Places) >= settings.MaxPlacesPerDay ||
			st.stayMinutes+sp.StayDurationMinutes > settings.MaxTotalDurationMinutes ||
			departure.After(st.dayEnd) {
			break
		}

		placed := models.ScheduledPlace{
			Place:                         sp.Place,
			ArrivalTime:                   arrival,
			DepartureTime:                 departure,
			TransportMode:                 mode,
			TravelTimeFromPreviousMinutes: travel,
			OrderInDay:                    len(st.schedule.Places) + 1,
		}
		st.schedule.Places = append(st.schedule.Places, placed)
		st.schedule.TotalTravelTimeMinutes += travel
		st.schedule.TotalVisitTimeMinutes += sp.StayDurationMinutes
		st.stayMinutes += sp.StayDurationMinutes
		st.clock = departure
		prev = &st.schedule.Places[len(st.schedule.Places)-1]
		qi++
	}

	if settings.IncludeMeals && len(st.schedule.Places) > 0 {
		b.sweepRemainingMeals(st)
	}

	return st.schedule, qi, nil
}

// consumeDueMeals inserts every meal window the clock has already crossed.
func (b *Builder) consumeDueMeals(st *dayState) {
	for _, slot := range b.cfg.Meals {
		if st.mealsEaten[slot.Type] {
			continue
		}
		slotStart := time.Date(st.clock.Year(), st.clock.Month(), st.clock.Day(), slot.Hour, 0, 0, 0, st.clock.Location())
		if st.clock.Before(slotStart) {
			continue
		}
		b.insertMeal(st, slot, st.clock)
	}
}

// sweepRemainingMeals places the meals whose windows the day still covers
// once all visits are done, so a day ending before dinner time still eats.
func (b *Builder) sweepRemainingMeals(st *dayState) {
	for _, slot := range b.cfg.Meals {
		if st.mealsEaten[slot.Type] {
			continue
		}
		slotStart := time.Date(st.clock.Year(), st.clock.Month(), st.clock.Day(), slot.Hour, 0, 0, 0, st.clock.Location())
		if slotStart.After(st.dayEnd) || slotStart.Equal(st.dayEnd) {
			continue
		}
		start := st.clock
		if slotStart.After(start) {
			start = slotStart
		}
		b.insertMeal(st, slot, start)
	}
}

func (b *Builder) insertMeal(st *dayState, slot MealSlot, start time.Time) {
	end := start.Add(time.Duration(slot.DurationMinutes) * time.Minute)
	if end.After(st.dayEnd) {
		end = st.dayEnd
	}
	if !end.After(start) {
		return
	}
	st.schedule.MealBreaks = append(st.schedule.MealBreaks, models.MealBreak{
		Type:          slot.Type,
		StartTime:     start,
		EndTime:       end,
		EstimatedCost: slot.EstimatedCost,
	})
	st.mealsEaten[slot.Type] = true
	st.clock = end
}
