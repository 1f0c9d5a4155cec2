package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/seat-booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "sqlmock")), mock
}

var bookingColumnNames = []string{
	"id", "booking_reference", "owner_id", "schedule_id", "bus_id", "route_name",
	"passengers", "seat_ids", "total_amount", "currency", "status", "payment_status", "payment_reference",
	"departure_time", "arrival_time", "expires_at", "boarding_token", "cancellation_reason",
	"confirmed_at", "cancelled_at", "completed_at", "refund_amount", "refunded_at", "created_at", "updated_at",
}

func TestCreateHold(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	hold := &models.Hold{
		ID:         uuid.New(),
		ScheduleID: "S1",
		SeatIDs:    models.SeatIDs{"1A", "1B"},
		Owner:      "U1",
		CreatedAt:  now,
		ExpiresAt:  now.Add(15 * time.Minute),
	}

	t.Run("Success", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO seat_holds`).
			WithArgs(hold.ID, "S1", sqlmock.AnyArg(), "U1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.CreateHold(ctx, hold))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO seat_holds`).
			WillReturnError(fmt.Errorf("database error"))

		err := store.CreateHold(ctx, hold)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create hold")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetHold(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store, mock := newMockStore(t)
		id := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM seat_holds WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "schedule_id", "seat_ids", "owner_id", "created_at", "expires_at",
			}).AddRow(id.String(), "S1", []byte(`{1A,1B}`), "U1", now, now.Add(time.Minute)))

		hold, err := store.GetHold(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, hold.ID)
		assert.Equal(t, models.SeatIDs{"1A", "1B"}, hold.SeatIDs)
		assert.Equal(t, "U1", hold.Owner)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT (.+) FROM seat_holds`).
			WillReturnError(sql.ErrNoRows)

		hold, err := store.GetHold(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, hold)
	})
}

func TestDeleteHold(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store, mock := newMockStore(t)
		id := uuid.New()
		mock.ExpectExec(`DELETE FROM seat_holds WHERE id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.DeleteHold(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Gone", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`DELETE FROM seat_holds`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, store.DeleteHold(ctx, uuid.New()), ErrNotFound)
	})
}

func TestDeleteExpiredHolds(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec(`DELETE FROM seat_holds WHERE schedule_id = \$1 AND expires_at < \$2`).
		WithArgs("S1", now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := store.DeleteExpiredHolds(context.Background(), "S1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingTx(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	expires := now.Add(30 * time.Minute)
	booking := &models.Booking{
		ID:            uuid.New(),
		Reference:     "BL-20300101-0A1B2C3D",
		Owner:         "U1",
		ScheduleID:    "S1",
		Passengers:    models.Passengers{{Name: "Nimal", SeatID: "1A", Fare: 45}},
		SeatIDs:       models.SeatIDs{"1A"},
		TotalAmount:   45,
		Currency:      "LKR",
		Status:        models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		ExpiresAt:     &expires,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	t.Run("Consumes Hold", func(t *testing.T) {
		store, mock := newMockStore(t)
		holdID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM seat_holds WHERE id = \$1`).
			WithArgs(holdID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO seat_bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, store.CreateBooking(ctx, booking, &holdID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Hold Rolls Back", func(t *testing.T) {
		store, mock := newMockStore(t)
		holdID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM seat_holds`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, store.CreateBooking(ctx, booking, &holdID), ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Without Hold", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO seat_bookings`).
			WillReturnError(fmt.Errorf("duplicate key value violates unique constraint"))
		mock.ExpectRollback()

		err := store.CreateBooking(ctx, booking, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert booking")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetBookingScan(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	token := "signed-token"

	mock.ExpectQuery(`SELECT (.+) FROM seat_bookings WHERE booking_reference = \$1`).
		WithArgs("BL-20300101-0A1B2C3D").
		WillReturnRows(sqlmock.NewRows(bookingColumnNames).AddRow(
			id.String(), "BL-20300101-0A1B2C3D", "U1", "S1", "BUS-1", "Colombo - Kandy",
			[]byte(`[{"name":"Nimal","seat_id":"1A","fare":45}]`), []byte(`{1A}`), 45.0, "LKR",
			"confirmed", "paid", "PAY-1",
			now, now.Add(3*time.Hour), nil, token, nil,
			now, nil, nil, nil, nil, now, now,
		))

	booking, err := store.GetBookingByReference(context.Background(), "BL-20300101-0A1B2C3D")
	require.NoError(t, err)
	assert.Equal(t, id, booking.ID)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, models.PaymentStatusPaid, booking.PaymentStatus)
	assert.Equal(t, models.SeatIDs{"1A"}, booking.SeatIDs)
	require.Len(t, booking.Passengers, 1)
	assert.Equal(t, "Nimal", booking.Passengers[0].Name)
	require.NotNil(t, booking.BoardingToken)
	assert.Equal(t, token, *booking.BoardingToken)
	assert.Nil(t, booking.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBooking_Guarded(t *testing.T) {
	ctx := context.Background()
	readAt := time.Date(2030, 1, 2, 8, 0, 0, 0, time.UTC)
	now := readAt.Add(30 * time.Minute)
	reason := "payment window expired"
	booking := &models.Booking{
		ID:                 uuid.New(),
		Status:             models.BookingStatusCancelled,
		PaymentStatus:      models.PaymentStatusFailed,
		CancellationReason: &reason,
		CancelledAt:        &now,
		UpdatedAt:          now,
	}
	prev := models.BookingRevision{Status: models.BookingStatusPending, UpdatedAt: readAt}
	updateSQL := `UPDATE seat_bookings SET .* WHERE id = \$1 AND status = \$14 AND updated_at = \$15`
	updateArgs := []driver.Value{
		booking.ID, booking.Status, booking.PaymentStatus, nil, nil, nil, &reason,
		nil, &now, nil, nil, nil, now, prev.Status, prev.UpdatedAt,
	}

	t.Run("Applied", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(updateSQL).
			WithArgs(updateArgs...).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.UpdateBooking(ctx, booking, prev))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Changed Underneath", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(updateSQL).
			WithArgs(updateArgs...).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(booking.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := store.UpdateBooking(ctx, booking, prev)
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Row", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(updateSQL).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(booking.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := store.UpdateBooking(ctx, booking, prev)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestScheduledTripRepository_GetSchedule(t *testing.T) {
	ctx := context.Background()
	tripColumns := []string{
		"id", "bus_id", "route_name", "trip_date", "departure_time",
		"estimated_arrival_time", "total_seats", "base_fare", "is_bookable", "status",
	}
	tripDate := time.Date(2030, 1, 3, 0, 0, 0, 0, time.UTC)

	t.Run("Overnight Trip", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewScheduledTripRepository(sqlx.NewDb(db, "sqlmock"), time.UTC)

		mock.ExpectQuery(`FROM scheduled_trips st`).
			WithArgs("S1").
			WillReturnRows(sqlmock.NewRows(tripColumns).AddRow(
				"S1", "BUS-1", "Colombo - Jaffna", tripDate, "22:30:00", "05:15:00", 0, 1500.0, true, "scheduled",
			))
		mock.ExpectQuery(`FROM trip_seats`).
			WithArgs("S1").
			WillReturnRows(sqlmock.NewRows([]string{"seat_number", "seat_type", "seat_price"}).
				AddRow("1A", "standard", 1800.0).
				AddRow("1B", "standard", nil))

		schedule, err := repo.GetSchedule(ctx, "S1")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2030, 1, 3, 22, 30, 0, 0, time.UTC), schedule.DepartureTime)
		assert.Equal(t, time.Date(2030, 1, 4, 5, 15, 0, 0, time.UTC), schedule.ArrivalTime)
		assert.Equal(t, 2, schedule.TotalSeats)
		require.Len(t, schedule.Seats, 2)
		assert.Equal(t, 1800.0, schedule.SeatPrice(schedule.Seats[0]))
		assert.Equal(t, 1500.0, schedule.SeatPrice(schedule.Seats[1]))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Bookable", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewScheduledTripRepository(sqlx.NewDb(db, "sqlmock"), time.UTC)

		mock.ExpectQuery(`FROM scheduled_trips st`).
			WillReturnRows(sqlmock.NewRows(tripColumns).AddRow(
				"S1", "BUS-1", "Colombo - Jaffna", tripDate, "22:30", nil, 40, 1500.0, true, "cancelled",
			))

		_, err = repo.GetSchedule(ctx, "S1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
