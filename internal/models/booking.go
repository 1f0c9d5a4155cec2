package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefundPending PaymentStatus = "refund_pending"
	PaymentStatusRefunded      PaymentStatus = "refunded"
)

// bookingTransitions lists every legal status change
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusCompleted},
}

// ParseBookingStatus accepts a status name in any case
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(strings.ToLower(strings.TrimSpace(s)))
	switch status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return status, nil
	}
	return "", fmt.Errorf("unknown booking status: %q", s)
}

// CanTransitionTo checks whether the transition is in the transition table
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsActive reports whether a booking in this status claims its seats
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// IsTerminal reports whether no further transition is possible
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

// Booking is the monetizable record of passengers assigned to seats on a schedule
type Booking struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	Reference          string        `json:"booking_reference" db:"booking_reference"`
	Owner              string        `json:"owner" db:"owner_id"`
	ScheduleID         string        `json:"schedule_id" db:"schedule_id"`
	BusID              string        `json:"bus_id" db:"bus_id"`
	RouteName          string        `json:"route_name" db:"route_name"`
	Passengers         Passengers    `json:"passengers" db:"passengers"`
	SeatIDs            SeatIDs       `json:"seat_ids" db:"seat_ids"`
	TotalAmount        float64       `json:"total_amount" db:"total_amount"`
	Currency           string        `json:"currency" db:"currency"`
	Status             BookingStatus `json:"status" db:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentReference   *string       `json:"payment_reference,omitempty" db:"payment_reference"`
	DepartureTime      time.Time     `json:"departure_time" db:"departure_time"`
	ArrivalTime        time.Time     `json:"arrival_time" db:"arrival_time"`
	ExpiresAt          *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
	BoardingToken      *string       `json:"boarding_token,omitempty" db:"boarding_token"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	RefundAmount       *float64      `json:"refund_amount,omitempty" db:"refund_amount"`
	RefundedAt         *time.Time    `json:"refunded_at,omitempty" db:"refunded_at"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// TravelDate returns the departure date copied from the schedule
func (b *Booking) TravelDate() string {
	return b.DepartureTime.Format("2006-01-02")
}

// IsPaymentExpired checks if a PENDING booking is past its payment deadline
func (b *Booking) IsPaymentExpired(now time.Time) bool {
	return b.Status == BookingStatusPending && b.ExpiresAt != nil && now.After(*b.ExpiresAt)
}

// ClaimsSeats reports whether the booking holds its seats at the given instant
func (b *Booking) ClaimsSeats(now time.Time) bool {
	return b.Status.IsActive() && !b.IsPaymentExpired(now)
}

// Clone returns a deep copy of the booking
func (b *Booking) Clone() *Booking {
	c := *b
	c.Passengers = append(Passengers(nil), b.Passengers...)
	c.SeatIDs = append(SeatIDs(nil), b.SeatIDs...)
	return &c
}

// BookingRevision identifies the stored version a change was computed from
type BookingRevision struct {
	Status    BookingStatus
	UpdatedAt time.Time
}

// Revision returns the version marker of the booking as read
func (b *Booking) Revision() BookingRevision {
	return BookingRevision{Status: b.Status, UpdatedAt: b.UpdatedAt}
}

// ============================================================================
// REQUEST / RESPONSE TYPES
// ============================================================================

// CreateBookingRequest books seats, optionally consuming an existing hold
type CreateBookingRequest struct {
	Owner      string      `json:"owner"`
	ScheduleID string      `json:"schedule_id" binding:"required"`
	Passengers []Passenger `json:"passengers" binding:"required,min=1,dive"`
	SeatIDs    []string    `json:"seat_ids" binding:"required,min=1,dive,required,seatid"`
	HoldID     *uuid.UUID  `json:"hold_id,omitempty"`
}

// OwnerRequest carries the requesting party for owner-scoped reads
type OwnerRequest struct {
	Owner string `json:"owner" form:"owner"`
}

// CancelBookingRequest cancels a booking
type CancelBookingRequest struct {
	Owner  string `json:"owner"`
	Reason string `json:"reason" binding:"max=500"`
}

// OutcomeData carries details of the event that drove a status change.
// RefundAmount caps the refund requested when a paid booking is cancelled.
type OutcomeData struct {
	PaymentReference string   `json:"payment_reference,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	RefundAmount     *float64 `json:"refund_amount,omitempty"`
}

// UpdateBookingStatusRequest is the privileged status change request
type UpdateBookingStatusRequest struct {
	Status      string       `json:"status" binding:"required"`
	OutcomeData *OutcomeData `json:"outcome_data,omitempty"`
}

// BookingListResponse is a page of an owner's bookings
type BookingListResponse struct {
	Bookings []Booking `json:"bookings"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// VerifyBoardingRequest carries a scanned boarding token
type VerifyBoardingRequest struct {
	Token string `json:"token" binding:"required"`
}

// BoardingVerification is returned when a boarding token is valid
type BoardingVerification struct {
	Valid            bool          `json:"valid"`
	BookingReference string        `json:"booking_reference"`
	ScheduleID       string        `json:"schedule_id"`
	RouteName        string        `json:"route_name"`
	TravelDate       string        `json:"travel_date"`
	SeatIDs          []string      `json:"seat_ids"`
	Status           BookingStatus `json:"status"`
}

// SeatsUnavailableError is returned when requested seats are claimed by another hold or booking
type SeatsUnavailableError struct {
	ScheduleID string   `json:"schedule_id"`
	Conflicts  []string `json:"conflicts"`
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable on schedule %s: %s", e.ScheduleID, strings.Join(e.Conflicts, ", "))
}
