package models

import (
	"time"

	"github.com/google/uuid"
)

// Hold is a short-lived claim on specific seats of a schedule.
// A hold never changes state: it exists until released, consumed or expired.
type Hold struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ScheduleID string    `json:"schedule_id" db:"schedule_id"`
	SeatIDs    SeatIDs   `json:"seat_ids" db:"seat_ids"`
	Owner      string    `json:"owner" db:"owner_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
}

// IsExpired checks if the hold is past its expiry at the given instant
func (h *Hold) IsExpired(now time.Time) bool {
	return now.After(h.ExpiresAt)
}

// Clone returns a deep copy of the hold
func (h *Hold) Clone() *Hold {
	c := *h
	c.SeatIDs = append(SeatIDs(nil), h.SeatIDs...)
	return &c
}

// CheckSeatsRequest asks whether seats of a schedule are free
type CheckSeatsRequest struct {
	ScheduleID string   `json:"schedule_id" binding:"required"`
	SeatIDs    []string `json:"seat_ids" binding:"required,min=1,dive,required,seatid"`
}

// AvailabilityResult reports which requested seats are already occupied
type AvailabilityResult struct {
	Available bool     `json:"available"`
	Conflicts []string `json:"conflicts"`
}

// ReserveSeatsRequest creates a hold on seats
type ReserveSeatsRequest struct {
	ScheduleID      string   `json:"schedule_id" binding:"required"`
	SeatIDs         []string `json:"seat_ids" binding:"required,min=1,dive,required,seatid"`
	Owner           string   `json:"owner"`
	DurationMinutes int      `json:"duration_minutes,omitempty" binding:"omitempty,min=1"`
}

// ReleaseHoldRequest releases a hold early
type ReleaseHoldRequest struct {
	Owner string `json:"owner"`
}
