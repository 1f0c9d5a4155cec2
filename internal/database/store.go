package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/seat-booking-engine/internal/models"
)

// ErrNotFound is returned when a hold, booking or schedule does not exist
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a guarded write finds the record no longer
// matches the revision it was computed from
var ErrConflict = errors.New("record changed concurrently")

// HoldStore persists seat holds. Expiry is not applied here: callers decide
// whether a returned hold is still live.
type HoldStore interface {
	CreateHold(ctx context.Context, hold *models.Hold) error
	GetHold(ctx context.Context, id uuid.UUID) (*models.Hold, error)
	DeleteHold(ctx context.Context, id uuid.UUID) error
	ListHoldsBySchedule(ctx context.Context, scheduleID string) ([]*models.Hold, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*models.Hold, error)
	DeleteExpiredHolds(ctx context.Context, scheduleID string, now time.Time) (int64, error)
}

// BookingStore persists bookings
type BookingStore interface {
	// CreateBooking inserts the booking and, when consumedHoldID is set, deletes
	// that hold in the same atomic step. A missing hold yields ErrNotFound and no booking.
	CreateBooking(ctx context.Context, booking *models.Booking, consumedHoldID *uuid.UUID) error
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	// UpdateBooking writes the booking only if the stored row still carries
	// prev. A missing row yields ErrNotFound, a changed one ErrConflict.
	UpdateBooking(ctx context.Context, booking *models.Booking, prev models.BookingRevision) error
	// ListActiveBookingsBySchedule returns PENDING and CONFIRMED bookings
	ListActiveBookingsBySchedule(ctx context.Context, scheduleID string) ([]*models.Booking, error)
	ListExpiredPendingBookings(ctx context.Context, now time.Time, limit int) ([]*models.Booking, error)
	ListBookingsByOwner(ctx context.Context, owner string, limit, offset int) ([]*models.Booking, error)
}

// InventoryStore is the full persistence surface used by the booking engine
type InventoryStore interface {
	HoldStore
	BookingStore
	Ping(ctx context.Context) error
}

// ScheduleCatalog supplies read-only schedule facts. Missing or inactive
// schedules yield ErrNotFound.
type ScheduleCatalog interface {
	GetSchedule(ctx context.Context, scheduleID string) (*models.Schedule, error)
}
