// Package spatial provides great-circle geometry helpers shared by the
// selector, the schedule builder and the distance provider.
package spatial

import (
	"github.com/golang/geo/s2"

	"trip-optimizer/internal/models"
)

const (
	EarthRadiusMeters = 6371000.0
	EarthRadiusKm     = 6371.0
)

// DistanceKm returns the great-circle distance between two locations in
// kilometers.
func DistanceKm(a, b models.Location) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// DistanceMeters returns the great-circle distance in meters.
func DistanceMeters(a, b models.Location) float64 {
	return DistanceKm(a, b) * 1000
}

// Centroid returns the arithmetic center of the resolvable locations in the
// given places. The second return is false when no place has a location.
// Fine for clustering scores at city scale; not meridian-safe, which the
// selector tolerates.
func Centroid(places []models.Place) (models.Location, bool) {
	var lat, lng float64
	n := 0
	for _, p := range places {
		if p.Location.IsZero() {
			continue
		}
		lat += p.Location.Lat
		lng += p.Location.Lng
		n++
	}
	if n == 0 {
		return models.Location{}, false
	}
	return models.Location{Lat: lat / float64(n), Lng: lng / float64(n)}, true
}
