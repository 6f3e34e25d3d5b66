// Package pipeline sequences the optimization stages, reports progress,
// and surfaces a final result or a classified error. Stages run strictly
// sequentially; every stage invocation that may fail is wrapped by the retry
// driver, the orchestrator itself never retries stage-to-stage.
package pipeline

import (
	"context"
	"time"

	apperrors "trip-optimizer/internal/common/errors"
	"trip-optimizer/internal/common/logger"
	"trip-optimizer/internal/common/metrics"
	"trip-optimizer/internal/common/observability"
	"trip-optimizer/internal/common/retry"
	"trip-optimizer/internal/models"
	"trip-optimizer/internal/optimizer/normalize"
	"trip-optimizer/internal/optimizer/schedule"
	"trip-optimizer/internal/optimizer/score"
	"trip-optimizer/internal/optimizer/selector"
)

// TripProvider loads the read-only snapshot an optimization run works on.
type TripProvider interface {
	TripContext(ctx context.Context, tripID string) (*models.TripContext, error)
}

// ProgressFunc receives a progress update on every stage transition.
type ProgressFunc func(models.OptimizationProgress)

var stagePercentage = map[models.Stage]int{
	models.StageCollecting:  0,
	models.StageNormalizing: 10,
	models.StageSelecting:   40,
	models.StageRouting:     70,
	models.StageComplete:    100,
}

var stageMessage = map[models.Stage]string{
	models.StageCollecting:  "collecting trip data",
	models.StageNormalizing: "normalizing member preferences",
	models.StageSelecting:   "scoring and selecting places",
	models.StageRouting:     "building routes and daily schedules",
	models.StageComplete:    "optimization complete",
}

// Deps wires the pipeline's collaborators. Zero-value fields fall back to
// documented defaults; Distance and Logger are required.
type Deps struct {
	Trips          TripProvider // required only for RunTrip
	Distance       schedule.DistanceProvider
	Weights        selector.Weights
	ScheduleConfig schedule.Config
	Retry          retry.Config
	Observability  *observability.Observability
	Logger         logger.Logger
}

type Pipeline struct {
	trips      TripProvider
	normalizer *normalize.Normalizer
	selector   *selector.Selector
	builder    *schedule.Builder
	retryCfg   retry.Config
	obs        *observability.Observability
	logger     logger.Logger
}

func New(deps Deps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	weights := deps.Weights
	if weights == (selector.Weights{}) {
		weights = selector.DefaultWeights()
	}
	schedCfg := deps.ScheduleConfig
	if schedCfg.WalkingMaxKm == 0 {
		schedCfg = schedule.DefaultConfig()
	}
	retryCfg := deps.Retry
	if retryCfg.MaxRetries == 0 && retryCfg.BaseDelay == 0 {
		retryCfg = retry.DefaultConfig()
	}

	return &Pipeline{
		trips:      deps.Trips,
		normalizer: normalize.New(log),
		selector:   selector.New(weights, log),
		builder:    schedule.NewBuilder(deps.Distance, schedCfg, log),
		retryCfg:   retryCfg,
		obs:        deps.Observability,
		logger:     log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// RunTrip loads the trip snapshot through the configured TripProvider during
// the collecting stage, then optimizes it.
func (p *Pipeline) RunTrip(ctx context.Context, tripID string, settings models.Settings, onProgress ProgressFunc) (*models.OptimizationResult, error) {
	return p.execute(ctx, func(ctx context.Context) (*models.TripContext, error) {
		if p.trips == nil {
			return nil, apperrors.NewValidation(apperrors.CodeBadRequest, string(models.StageCollecting), "no trip provider configured")
		}
		return p.trips.TripContext(ctx, tripID)
	}, settings, onProgress)
}

// Run optimizes an already-loaded trip snapshot.
func (p *Pipeline) Run(ctx context.Context, trip *models.TripContext, settings models.Settings, onProgress ProgressFunc) (*models.OptimizationResult, error) {
	return p.execute(ctx, func(context.Context) (*models.TripContext, error) {
		return trip, nil
	}, settings, onProgress)
}

func (p *Pipeline) execute(ctx context.Context, collect func(context.Context) (*models.TripContext, error), settings models.Settings, onProgress ProgressFunc) (*models.OptimizationResult, error) {
	started := time.Now()

	var trip *models.TripContext
	err := p.stage(ctx, models.StageCollecting, onProgress, func(ctx context.Context) error {
		t, err := collect(ctx)
		if err != nil {
			return err
		}
		if t == nil {
			return apperrors.NewValidation(apperrors.CodeEmptyTrip, string(models.StageCollecting), "no trip snapshot supplied")
		}
		trip = t
		return nil
	})
	if err != nil {
		return nil, p.fail(ctx, onProgress, err)
	}

	var norm *normalize.Result
	err = p.stage(ctx, models.StageNormalizing, onProgress, func(context.Context) error {
		var nerr error
		norm, nerr = p.normalizer.Normalize(trip)
		return nerr
	})
	if err != nil {
		return nil, p.fail(ctx, onProgress, err)
	}

	var sel *selector.Result
	err = p.stage(ctx, models.StageSelecting, onProgress, func(context.Context) error {
		sel = p.selector.Select(trip, settings)
		return nil
	})
	if err != nil {
		return nil, p.fail(ctx, onProgress, err)
	}

	var schedules []models.DailySchedule
	var unplaced []models.ScoredPlace
	err = p.stage(ctx, models.StageRouting, onProgress, func(ctx context.Context) error {
		var berr error
		schedules, unplaced, berr = p.builder.Build(ctx, trip, sel.ScheduledPlaces, settings)
		return berr
	})
	if err != nil {
		return nil, p.fail(ctx, onProgress, err)
	}

	result := p.compose(trip, norm, sel, schedules, unplaced, settings)
	result.ExecutionTimeMs = time.Since(started).Milliseconds()

	p.report(onProgress, models.StageComplete)
	metrics.OptimizationRunsCompleted.WithLabelValues(trip.TripID).Inc()
	if p.obs != nil {
		p.obs.RecordRun(ctx, "completed")
	}

	p.logger.Info("optimization run finished", map[string]interface{}{
		"tripId":          trip.TripID,
		"days":            len(result.DailySchedules),
		"scheduled":       len(result.ScheduledPlaces),
		"unscheduled":     len(result.UnscheduledPlaces),
		"score":           result.Score.Display,
		"executionTimeMs": result.ExecutionTimeMs,
	})

	return result, nil
}

// compose assembles the final result: the selector's picks reduced to what
// the builder actually placed, everything else reported unscheduled.
func (p *Pipeline) compose(trip *models.TripContext, norm *normalize.Result, sel *selector.Result, schedules []models.DailySchedule, unplaced []models.ScoredPlace, settings models.Settings) *models.OptimizationResult {
	placedIDs := make(map[string]bool)
	for _, ds := range schedules {
		for _, sp := range ds.Places {
			placedIDs[sp.Place.ID] = true
		}
	}

	var placed []models.ScoredPlace
	for _, sp := range sel.ScheduledPlaces {
		if placedIDs[sp.ID] {
			placed = append(placed, sp)
		}
	}

	unscheduled := make([]models.ScoredPlace, 0, len(sel.UnscheduledPlaces)+len(unplaced))
	unscheduled = append(unscheduled, sel.UnscheduledPlaces...)
	unscheduled = append(unscheduled, unplaced...)

	return &models.OptimizationResult{
		DailySchedules:    schedules,
		Score:             score.Aggregate(trip, norm, sel, schedules, settings),
		ScheduledPlaces:   placed,
		UnscheduledPlaces: unscheduled,
		Reason:            sel.Reason,
	}
}

func (p *Pipeline) stage(ctx context.Context, st models.Stage, onProgress ProgressFunc, op retry.Operation) error {
	p.report(onProgress, st)

	start := time.Now()
	err := retry.Do(ctx, p.retryCfg, p.logger, string(st), op)
	elapsed := time.Since(start)

	metrics.StageDuration.WithLabelValues(string(st)).Observe(elapsed.Seconds())
	if p.obs != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		p.obs.RecordStageDuration(ctx, string(st), elapsed, status)
	}
	return err
}

func (p *Pipeline) report(onProgress ProgressFunc, st models.Stage) {
	if onProgress == nil {
		return
	}
	onProgress(models.OptimizationProgress{
		Stage:      st,
		Percentage: stagePercentage[st],
		Message:    stageMessage[st],
	})
}

func (p *Pipeline) fail(ctx context.Context, onProgress ProgressFunc, err error) error {
	cerr := apperrors.Classify(err, string(models.StageError))

	if onProgress != nil {
		onProgress(models.OptimizationProgress{
			Stage:      models.StageError,
			Percentage: 0,
			Message:    cerr.Message,
			Err:        cerr,
		})
	}

	metrics.OptimizationRunsFailed.WithLabelValues(cerr.Stage, string(cerr.Type)).Inc()
	if p.obs != nil {
		p.obs.RecordRun(ctx, "failed")
	}

	p.logger.Error("optimization run failed", map[string]interface{}{
		"stage":         cerr.Stage,
		"errorType":     string(cerr.Type),
		"errorCode":     cerr.Code,
		"retryable":     cerr.Retryable,
		"correlationId": cerr.CorrelationID,
	})

	return cerr
}
