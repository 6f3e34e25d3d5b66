// Package provider implements the pipeline's external collaborators: the
// trip snapshot store, the place search source, the travel-time provider and
// the request validator.
package provider

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "trip-optimizer/internal/common/errors"
	"trip-optimizer/internal/common/logger"
	"trip-optimizer/internal/models"
)

const collectStage = "collecting"

const (
	tripQuery = `SELECT id, start_date, days FROM trips WHERE id = $1`

	membersQuery = `SELECT id, display_name, optimization_eligible
		FROM trip_members WHERE trip_id = $1 ORDER BY id`

	placesQuery = `SELECT id, name, latitude, longitude, category,
			wish_level, rating, stay_duration_minutes, member_id
		FROM trip_places WHERE trip_id = $1 ORDER BY id`
)

// TripStore loads trip snapshots from PostgreSQL.
type TripStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewTripStore(db *sql.DB, log logger.Logger) *TripStore {
	return &TripStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "trip-store"}),
	}
}

// TripContext assembles the read-only snapshot for one trip. A missing trip
// is a resource error; malformed rows are data errors.
func (s *TripStore) TripContext(ctx context.Context, tripID string) (*models.TripContext, error) {
	trip := &models.TripContext{}
	err := s.db.QueryRowContext(ctx, tripQuery, tripID).Scan(&trip.TripID, &trip.StartDate, &trip.Days)
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.ResourceError, "TRIP_NOT_FOUND", collectStage,
			fmt.Sprintf("trip %q does not exist", tripID))
	}
	if err != nil {
		return nil, apperrors.NewExternalService("postgres", collectStage, err)
	}

	if trip.Members, err = s.loadMembers(ctx, tripID); err != nil {
		return nil, err
	}
	if trip.Places, err = s.loadPlaces(ctx, tripID); err != nil {
		return nil, err
	}

	s.logger.Debug("trip snapshot loaded", map[string]interface{}{
		"tripId":  tripID,
		"members": len(trip.Members),
		"places":  len(trip.Places),
	})

	return trip, nil
}

func (s *TripStore) loadMembers(ctx context.Context, tripID string) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx, membersQuery, tripID)
	if err != nil {
		return nil, apperrors.NewExternalService("postgres", collectStage, err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.OptimizationEligible); err != nil {
			return nil, apperrors.NewData(apperrors.CodeMalformedRow, collectStage, err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalService("postgres", collectStage, err)
	}
	return members, nil
}

func (s *TripStore) loadPlaces(ctx context.Context, tripID string) ([]models.Place, error) {
	rows, err := s.db.QueryContext(ctx, placesQuery, tripID)
	if err != nil {
		return nil, apperrors.NewExternalService("postgres", collectStage, err)
	}
	defer rows.Close()

	var places []models.Place
	for rows.Next() {
		var p models.Place
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.Name, &lat, &lng, &p.Category,
			&p.WishLevel, &p.Rating, &p.StayDurationMinutes, &p.MemberID); err != nil {
			return nil, apperrors.NewData(apperrors.CodeMalformedRow, collectStage, err)
		}
		if lat.Valid && lng.Valid {
			// Unresolved locations stay at the zero value.
			p.Location = models.Location{Lat: lat.Float64, Lng: lng.Float64}
		}
		if p.WishLevel < 1 || p.WishLevel > 5 {
			return nil, apperrors.NewData(apperrors.CodeMalformedRow, collectStage,
				fmt.Errorf("place %q has wish level %d outside 1..5", p.ID, p.WishLevel))
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalService("postgres", collectStage, err)
	}
	return places, nil
}
