package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"trip-optimizer/internal/common/logger"
	"trip-optimizer/internal/models"
	"trip-optimizer/internal/spatial"
)

// modeProfile models one transport mode as an average speed over a detour
// factor applied to the great-circle distance, plus a fixed overhead for
// boarding/parking.
type modeProfile struct {
	speedKmh        float64
	routeFactor     float64
	overheadMinutes int
}

var modeProfiles = map[models.TransportMode]modeProfile{
	models.TransportWalking: {speedKmh: 4.5, routeFactor: 1.3},
	models.TransportCar:     {speedKmh: 40, routeFactor: 1.4, overheadMinutes: 5},
	models.TransportPublic:  {speedKmh: 25, routeFactor: 1.5, overheadMinutes: 10},
	models.TransportFlight:  {speedKmh: 800, routeFactor: 1.1, overheadMinutes: 120},
}

type travelEstimate struct {
	Minutes    int     `json:"minutes"`
	DistanceKm float64 `json:"distanceKm"`
}

// TravelTimeProvider estimates leg travel times from great-circle distance
// and per-mode speed profiles, with a Redis cache in front. The cache is
// best-effort: Redis failures degrade to recomputation, never to a pipeline
// error.
type TravelTimeProvider struct {
	cache  *redis.Client // nil disables caching
	ttl    time.Duration
	logger logger.Logger
}

func NewTravelTimeProvider(cache *redis.Client, ttl time.Duration, log logger.Logger) *TravelTimeProvider {
	return &TravelTimeProvider{
		cache:  cache,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "travel-time"}),
	}
}

// TravelTime implements schedule.DistanceProvider.
func (p *TravelTimeProvider) TravelTime(ctx context.Context, from, to models.Location, mode models.TransportMode) (int, float64, error) {
	key := cacheKey(from, to, mode)

	if est, ok := p.lookup(ctx, key); ok {
		return est.Minutes, est.DistanceKm, nil
	}

	profile, ok := modeProfiles[mode]
	if !ok {
		return 0, 0, fmt.Errorf("unknown transport mode %q", mode)
	}

	distKm := spatial.DistanceKm(from, to)
	minutes := int(math.Ceil(distKm*profile.routeFactor/profile.speedKmh*60)) + profile.overheadMinutes
	if minutes < 1 {
		minutes = 1
	}

	p.store(ctx, key, travelEstimate{Minutes: minutes, DistanceKm: distKm})
	return minutes, distKm, nil
}

func (p *TravelTimeProvider) lookup(ctx context.Context, key string) (travelEstimate, bool) {
	if p.cache == nil {
		return travelEstimate{}, false
	}
	raw, err := p.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			p.logger.Debug("travel-time cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return travelEstimate{}, false
	}
	var est travelEstimate
	if err := json.Unmarshal(raw, &est); err != nil {
		return travelEstimate{}, false
	}
	return est, true
}

func (p *TravelTimeProvider) store(ctx context.Context, key string, est travelEstimate) {
	if p.cache == nil {
		return
	}
	raw, err := json.Marshal(est)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, raw, p.ttl).Err(); err != nil {
		p.logger.Debug("travel-time cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// cacheKey rounds coordinates to ~11m so near-identical lookups share an
// entry.
func cacheKey(from, to models.Location, mode models.TransportMode) string {
	return fmt.Sprintf("travel:%.4f,%.4f:%.4f,%.4f:%s", from.Lat, from.Lng, to.Lat, to.Lng, mode)
}
