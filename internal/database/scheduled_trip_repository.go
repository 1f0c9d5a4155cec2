package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/seat-booking-engine/internal/models"
)

// ScheduledTripRepository reads bookable departures from the catalog tables
// (scheduled_trips, trip_schedules, trip_seats)
type ScheduledTripRepository struct {
	db       *sqlx.DB
	location *time.Location
}

// NewScheduledTripRepository creates a new ScheduledTripRepository.
// Trip dates and times are stored without zone and interpreted in loc.
func NewScheduledTripRepository(db *sqlx.DB, loc *time.Location) *ScheduledTripRepository {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduledTripRepository{db: db, location: loc}
}

type scheduledTripRow struct {
	ID                   string    `db:"id"`
	BusID                string    `db:"bus_id"`
	RouteName            string    `db:"route_name"`
	TripDate             time.Time `db:"trip_date"`
	DepartureTime        string    `db:"departure_time"`
	EstimatedArrivalTime *string   `db:"estimated_arrival_time"`
	TotalSeats           int       `db:"total_seats"`
	BaseFare             float64   `db:"base_fare"`
	IsBookable           bool      `db:"is_bookable"`
	Status               string    `db:"status"`
}

// GetSchedule loads a scheduled trip and its seats
func (r *ScheduledTripRepository) GetSchedule(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	query := `
		SELECT st.id, COALESCE(st.bus_id::text, '') AS bus_id,
			   COALESCE(ts.schedule_name, '') AS route_name,
			   st.trip_date, st.departure_time::text AS departure_time,
			   st.estimated_arrival_time::text AS estimated_arrival_time,
			   st.total_seats, st.base_fare, st.is_bookable, st.status
		FROM scheduled_trips st
		LEFT JOIN trip_schedules ts ON ts.id = st.trip_schedule_id
		WHERE st.id = $1
	`

	var row scheduledTripRow
	if err := r.db.GetContext(ctx, &row, query, scheduleID); err != nil {
		return nil, notFoundOr(err, "failed to get scheduled trip")
	}

	if !row.IsBookable || (row.Status != "scheduled" && row.Status != "confirmed") {
		return nil, ErrNotFound
	}

	seatsQuery := `
		SELECT seat_number, seat_type, NULLIF(seat_price, 0) AS seat_price
		FROM trip_seats
		WHERE scheduled_trip_id = $1 AND status <> 'blocked'
		ORDER BY row_number, position
	`

	var seats []models.Seat
	if err := r.db.SelectContext(ctx, &seats, seatsQuery, scheduleID); err != nil {
		return nil, fmt.Errorf("failed to get trip seats: %w", err)
	}

	departure, err := r.combine(row.TripDate, row.DepartureTime)
	if err != nil {
		return nil, err
	}
	arrival := departure
	if row.EstimatedArrivalTime != nil {
		if arrival, err = r.combine(row.TripDate, *row.EstimatedArrivalTime); err != nil {
			return nil, err
		}
		// Overnight trips arrive on the following day
		if arrival.Before(departure) {
			arrival = arrival.AddDate(0, 0, 1)
		}
	}

	totalSeats := row.TotalSeats
	if totalSeats == 0 {
		totalSeats = len(seats)
	}

	return &models.Schedule{
		ID:            row.ID,
		BusID:         row.BusID,
		RouteName:     row.RouteName,
		DepartureTime: departure,
		ArrivalTime:   arrival,
		TotalSeats:    totalSeats,
		BaseFare:      row.BaseFare,
		Seats:         seats,
	}, nil
}

// combine joins a DATE with a TIME string (HH:MM or HH:MM:SS)
func (r *ScheduledTripRepository) combine(date time.Time, clock string) (time.Time, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, clock)
		if err == nil {
			return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), t.Second(), 0, r.location), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid trip time %q", clock)
}
