package services

import (
	"errors"
	"fmt"
)

// Domain errors returned by the booking engine. Handlers map them to transport
// status codes with errors.Is; SeatsUnavailable is reported as *models.SeatsUnavailableError.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrScheduleDeparted  = errors.New("schedule has already departed")
	ErrHoldNotFound      = errors.New("hold not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrNotOwner          = errors.New("requester does not own this resource")
	ErrHoldMismatch      = errors.New("hold does not cover the requested seats")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrAlreadyCancelled  = errors.New("booking is already cancelled")
	ErrAlreadyCompleted  = errors.New("booking is already completed")
	ErrInvalidBoarding   = errors.New("boarding token is not valid for any confirmed booking")
	ErrConcurrentUpdate  = errors.New("booking kept changing concurrently, retry later")

	// ErrHoldExpired matches ErrHoldNotFound so callers can treat both alike
	ErrHoldExpired = fmt.Errorf("%w: hold expired", ErrHoldNotFound)
)

func invalidRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
