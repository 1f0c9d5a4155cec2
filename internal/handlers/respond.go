package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/middleware"
	"github.com/smarttransit/seat-booking-engine/internal/models"
	"github.com/smarttransit/seat-booking-engine/internal/services"
	"github.com/smarttransit/seat-booking-engine/pkg/validator"
)

// errorMapping pairs a domain error with its HTTP status and client code.
// Order matters: ErrHoldExpired must match before ErrHoldNotFound.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
	{services.ErrScheduleNotFound, http.StatusNotFound, "SCHEDULE_NOT_FOUND"},
	{services.ErrScheduleDeparted, http.StatusConflict, "SCHEDULE_DEPARTED"},
	{services.ErrHoldExpired, http.StatusNotFound, "HOLD_EXPIRED"},
	{services.ErrHoldNotFound, http.StatusNotFound, "HOLD_NOT_FOUND"},
	{services.ErrBookingNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND"},
	{services.ErrNotOwner, http.StatusForbidden, "NOT_OWNER"},
	{services.ErrHoldMismatch, http.StatusConflict, "HOLD_MISMATCH"},
	{services.ErrAlreadyCancelled, http.StatusConflict, "ALREADY_CANCELLED"},
	{services.ErrAlreadyCompleted, http.StatusConflict, "ALREADY_COMPLETED"},
	{services.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{services.ErrInvalidBoarding, http.StatusUnprocessableEntity, "INVALID_BOARDING_TOKEN"},
	{services.ErrConcurrentUpdate, http.StatusConflict, "CONCURRENT_UPDATE"},
}

// respondError writes the JSON error for err. Unknown errors are logged and
// reported as 500 without internals.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var unavailable *models.SeatsUnavailableError
	if errors.As(err, &unavailable) {
		c.JSON(http.StatusConflict, gin.H{
			"error":       "seats_unavailable",
			"message":     "Some of the requested seats are no longer available",
			"code":        "SEATS_UNAVAILABLE",
			"schedule_id": unavailable.ScheduleID,
			"conflicts":   unavailable.Conflicts,
		})
		return
	}

	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{
				"error":   http.StatusText(m.status),
				"message": err.Error(),
				"code":    m.code,
			})
			return
		}
	}

	logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": "An unexpected error occurred",
		"code":    "INTERNAL_ERROR",
	})
}

// respondBindError reports a request body that failed binding or validation
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": validator.Describe(err),
		"code":    "VALIDATION_ERROR",
	})
}

// ownerResolver decides who is acting on a request. An authenticated caller
// is always the owner; without auth the owner named in the request is trusted.
type ownerResolver struct {
	authEnabled bool
}

func (r ownerResolver) resolve(c *gin.Context, requested string) (string, bool) {
	if user, ok := middleware.GetUserContext(c); ok {
		return user.UserID.String(), true
	}
	if r.authEnabled {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Authentication required",
			"code":    "MISSING_USER_CONTEXT",
		})
		return "", false
	}
	if requested == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "owner is required",
			"code":    "VALIDATION_ERROR",
		})
		return "", false
	}
	return requested, true
}
