package provider

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-optimizer/internal/common/logger"
	"trip-optimizer/internal/models"
	"trip-optimizer/internal/spatial"
)

var (
	paris  = models.Location{Lat: 48.8566, Lng: 2.3522}
	lyon   = models.Location{Lat: 45.7640, Lng: 4.8357}
	nearby = models.Location{Lat: 48.8606, Lng: 2.3376}
)

func newUncachedProvider(t *testing.T) *TravelTimeProvider {
	return NewTravelTimeProvider(nil, 0, logger.NewTestLogger(t))
}

func TestTravelTimeEstimates(t *testing.T) {
	p := newUncachedProvider(t)

	tests := []struct {
		name       string
		from, to   models.Location
		mode       models.TransportMode
		minMinutes int
		maxMinutes int
	}{
		{
			// ~1.2km at 4.5km/h with a 1.3 detour factor
			name: "walking a short hop",
			from: paris, to: nearby,
			mode:       models.TransportWalking,
			minMinutes: 15, maxMinutes: 30,
		},
		{
			// ~392km driven at 40km/h would be absurd but the mode is the
			// caller's choice; the estimate only has to be monotonic in it
			name: "driving between cities",
			from: paris, to: lyon,
			mode:       models.TransportCar,
			minMinutes: 60, maxMinutes: 900,
		},
		{
			name: "flying between cities",
			from: paris, to: lyon,
			mode:       models.TransportFlight,
			minMinutes: 120, maxMinutes: 240,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minutes, distKm, err := p.TravelTime(context.Background(), tt.from, tt.to, tt.mode)

			require.NoError(t, err)
			assert.GreaterOrEqual(t, minutes, tt.minMinutes)
			assert.LessOrEqual(t, minutes, tt.maxMinutes)
			assert.InDelta(t, spatial.DistanceKm(tt.from, tt.to), distKm, 1e-9)
		})
	}
}

func TestTravelTimeUnknownMode(t *testing.T) {
	p := newUncachedProvider(t)

	_, _, err := p.TravelTime(context.Background(), paris, lyon, models.TransportMode("teleport"))

	assert.Error(t, err)
}

func TestTravelTimeMinimumOneMinute(t *testing.T) {
	p := newUncachedProvider(t)

	minutes, _, err := p.TravelTime(context.Background(), paris, paris, models.TransportWalking)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, minutes, 1)
}

func TestTravelTimeCachesResults(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	p := NewTravelTimeProvider(client, time.Hour, logger.NewTestLogger(t))

	first, dist, err := p.TravelTime(context.Background(), paris, nearby, models.TransportWalking)
	require.NoError(t, err)

	key := cacheKey(paris, nearby, models.TransportWalking)
	raw, err := mr.Get(key)
	require.NoError(t, err, "estimate must be written to the cache")

	var est travelEstimate
	require.NoError(t, json.Unmarshal([]byte(raw), &est))
	assert.Equal(t, first, est.Minutes)
	assert.InDelta(t, dist, est.DistanceKm, 1e-9)

	// A second lookup is served from the cache.
	mr.Set(key, `{"minutes":999,"distanceKm":1.0}`)
	minutes, _, err := p.TravelTime(context.Background(), paris, nearby, models.TransportWalking)
	require.NoError(t, err)
	assert.Equal(t, 999, minutes)
}

func TestTravelTimeCacheTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	p := NewTravelTimeProvider(client, 30*time.Minute, logger.NewTestLogger(t))

	_, _, err := p.TravelTime(context.Background(), paris, nearby, models.TransportWalking)
	require.NoError(t, err)

	key := cacheKey(paris, nearby, models.TransportWalking)
	assert.Equal(t, 30*time.Minute, mr.TTL(key))
}

func TestTravelTimeSurvivesCacheFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	key := cacheKey(paris, nearby, models.TransportCar)
	mock.ExpectGet(key).SetErr(assert.AnError)
	mock.Regexp().ExpectSet(key, `.*`, time.Hour).SetErr(assert.AnError)

	p := NewTravelTimeProvider(client, time.Hour, logger.NewTestLogger(t))

	minutes, _, err := p.TravelTime(context.Background(), paris, nearby, models.TransportCar)

	require.NoError(t, err, "a broken cache degrades to recomputation")
	assert.Greater(t, minutes, 0)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTravelTimeIgnoresCorruptCacheEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	p := NewTravelTimeProvider(client, time.Hour, logger.NewTestLogger(t))

	key := cacheKey(paris, nearby, models.TransportWalking)
	require.NoError(t, mr.Set(key, "not-json"))

	minutes, _, err := p.TravelTime(context.Background(), paris, nearby, models.TransportWalking)

	require.NoError(t, err)
	assert.Greater(t, minutes, 0)
}
