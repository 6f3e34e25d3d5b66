package provider

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trip-optimizer/internal/common/errors"
	"trip-optimizer/internal/common/logger"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectTripRow(mock sqlmock.Sqlmock, tripID string, days int) {
	mock.ExpectQuery(regexp.QuoteMeta(tripQuery)).
		WithArgs(tripID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_date", "days"}).
			AddRow(tripID, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), days))
}

func TestTripContextLoadsFullSnapshot(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewTripStore(db, logger.NewTestLogger(t))

	expectTripRow(mock, "t1", 3)
	mock.ExpectQuery(regexp.QuoteMeta(membersQuery)).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "optimization_eligible"}).
			AddRow("a", "Alex", true).
			AddRow("b", "Brook", false))
	mock.ExpectQuery(regexp.QuoteMeta(placesQuery)).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "latitude", "longitude", "category",
			"wish_level", "rating", "stay_duration_minutes", "member_id",
		}).
			AddRow("p1", "Old Town", 48.8566, 2.3522, "sightseeing", 5, 4.6, 90, "a").
			AddRow("p2", "Mystery Bar", nil, nil, "nightlife", 3, 4.1, 60, "b"))

	trip, err := store.TripContext(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, "t1", trip.TripID)
	assert.Equal(t, 3, trip.Days)
	require.Len(t, trip.Members, 2)
	assert.Len(t, trip.EligibleMembers(), 1)

	require.Len(t, trip.Places, 2)
	assert.False(t, trip.Places[0].Location.IsZero())
	assert.True(t, trip.Places[1].Location.IsZero(), "null coordinates stay unresolved")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripContextNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewTripStore(db, logger.NewTestLogger(t))

	mock.ExpectQuery(regexp.QuoteMeta(tripQuery)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.TripContext(context.Background(), "missing")

	var cerr *apperrors.ClassifiedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, apperrors.ResourceError, cerr.Type)
	assert.Equal(t, "TRIP_NOT_FOUND", cerr.Code)
}

func TestTripContextConnectionFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewTripStore(db, logger.NewTestLogger(t))

	mock.ExpectQuery(regexp.QuoteMeta(tripQuery)).
		WithArgs("t1").
		WillReturnError(assert.AnError)

	_, err := store.TripContext(context.Background(), "t1")

	var cerr *apperrors.ClassifiedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, apperrors.ExternalServiceError, cerr.Type)
	assert.True(t, cerr.Retryable)
}

func TestTripContextRejectsOutOfRangeWishLevel(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewTripStore(db, logger.NewTestLogger(t))

	expectTripRow(mock, "t1", 1)
	mock.ExpectQuery(regexp.QuoteMeta(membersQuery)).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "optimization_eligible"}).
			AddRow("a", "Alex", true))
	mock.ExpectQuery(regexp.QuoteMeta(placesQuery)).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "latitude", "longitude", "category",
			"wish_level", "rating", "stay_duration_minutes", "member_id",
		}).
			AddRow("p1", "Old Town", 48.85, 2.35, "sightseeing", 9, 4.6, 90, "a"))

	_, err := store.TripContext(context.Background(), "t1")

	var cerr *apperrors.ClassifiedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, apperrors.DataError, cerr.Type)
	assert.Equal(t, apperrors.CodeMalformedRow, cerr.Code)
}

func TestTripContextMalformedMemberRow(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewTripStore(db, logger.NewTestLogger(t))

	expectTripRow(mock, "t1", 1)
	mock.ExpectQuery(regexp.QuoteMeta(membersQuery)).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "optimization_eligible"}).
			AddRow("a", nil, "not-a-bool"))

	_, err := store.TripContext(context.Background(), "t1")

	var cerr *apperrors.ClassifiedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, apperrors.DataError, cerr.Type)
}
