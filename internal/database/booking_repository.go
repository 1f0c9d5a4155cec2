package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/seat-booking-engine/internal/models"
)

const bookingColumns = `id, booking_reference, owner_id, schedule_id, bus_id, route_name,
	passengers, seat_ids, total_amount, currency, status, payment_status, payment_reference,
	departure_time, arrival_time, expires_at, boarding_token, cancellation_reason,
	confirmed_at, cancelled_at, completed_at, refund_amount, refunded_at, created_at, updated_at`

// ============================================================================
// BOOKING OPERATIONS
// ============================================================================

// CreateBooking inserts a booking and consumes the hold in one transaction
func (s *PostgresStore) CreateBooking(ctx context.Context, booking *models.Booking, consumedHoldID *uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if consumedHoldID != nil {
		result, err := tx.ExecContext(ctx, `DELETE FROM seat_holds WHERE id = $1`, *consumedHoldID)
		if err != nil {
			return fmt.Errorf("failed to consume hold: %w", err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO seat_bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
				$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`
	_, err = tx.ExecContext(ctx, query,
		booking.ID, booking.Reference, booking.Owner, booking.ScheduleID, booking.BusID, booking.RouteName,
		booking.Passengers, booking.SeatIDs, booking.TotalAmount, booking.Currency, booking.Status,
		booking.PaymentStatus, booking.PaymentReference, booking.DepartureTime, booking.ArrivalTime,
		booking.ExpiresAt, booking.BoardingToken, booking.CancellationReason, booking.ConfirmedAt,
		booking.CancelledAt, booking.CompletedAt, booking.RefundAmount, booking.RefundedAt,
		booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	return nil
}

// GetBooking retrieves a booking by ID
func (s *PostgresStore) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM seat_bookings WHERE id = $1`

	var booking models.Booking
	if err := s.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, notFoundOr(err, "failed to get booking")
	}
	return &booking, nil
}

// GetBookingByReference retrieves a booking by its reference code
func (s *PostgresStore) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM seat_bookings WHERE booking_reference = $1`

	var booking models.Booking
	if err := s.db.GetContext(ctx, &booking, query, reference); err != nil {
		return nil, notFoundOr(err, "failed to get booking by reference")
	}
	return &booking, nil
}

// UpdateBooking writes the mutable lifecycle fields of a booking, guarded on
// the status and updated_at it was read with
func (s *PostgresStore) UpdateBooking(ctx context.Context, booking *models.Booking, prev models.BookingRevision) error {
	query := `
		UPDATE seat_bookings SET
			status = $2,
			payment_status = $3,
			payment_reference = $4,
			expires_at = $5,
			boarding_token = $6,
			cancellation_reason = $7,
			confirmed_at = $8,
			cancelled_at = $9,
			completed_at = $10,
			refund_amount = $11,
			refunded_at = $12,
			updated_at = $13
		WHERE id = $1 AND status = $14 AND updated_at = $15
	`
	result, err := s.db.ExecContext(ctx, query,
		booking.ID, booking.Status, booking.PaymentStatus, booking.PaymentReference, booking.ExpiresAt,
		booking.BoardingToken, booking.CancellationReason, booking.ConfirmedAt, booking.CancelledAt,
		booking.CompletedAt, booking.RefundAmount, booking.RefundedAt, booking.UpdatedAt,
		prev.Status, prev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM seat_bookings WHERE id = $1)`, booking.ID); err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

// ListActiveBookingsBySchedule returns PENDING and CONFIRMED bookings of a schedule
func (s *PostgresStore) ListActiveBookingsBySchedule(ctx context.Context, scheduleID string) ([]*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM seat_bookings
		WHERE schedule_id = $1 AND status IN ('pending', 'confirmed')
	`

	var bookings []*models.Booking
	if err := s.db.SelectContext(ctx, &bookings, query, scheduleID); err != nil {
		return nil, fmt.Errorf("failed to list active bookings: %w", err)
	}
	return bookings, nil
}

// ListExpiredPendingBookings returns PENDING bookings past their payment deadline
func (s *PostgresStore) ListExpiredPendingBookings(ctx context.Context, now time.Time, limit int) ([]*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM seat_bookings
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`

	var bookings []*models.Booking
	if err := s.db.SelectContext(ctx, &bookings, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to list expired bookings: %w", err)
	}
	return bookings, nil
}

// ListBookingsByOwner returns an owner's bookings, newest first
func (s *PostgresStore) ListBookingsByOwner(ctx context.Context, owner string, limit, offset int) ([]*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM seat_bookings
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var bookings []*models.Booking
	if err := s.db.SelectContext(ctx, &bookings, query, owner, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
