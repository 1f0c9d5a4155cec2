package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/models"
	"github.com/smarttransit/seat-booking-engine/internal/services"
)

// BookingHandler serves the booking lifecycle
type BookingHandler struct {
	bookings *services.BookingService
	owners   ownerResolver
	logger   *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookings *services.BookingService, authEnabled bool, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		owners:   ownerResolver{authEnabled: authEnabled},
		logger:   logger,
	}
}

// CreateBooking creates a PENDING booking
// @Summary Create a booking
// @Description Books seats for passengers, consuming a hold when hold_id is given
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.Booking "Booking created, awaiting payment"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 403 {object} map[string]interface{} "Hold owned by someone else"
// @Failure 404 {object} map[string]interface{} "Schedule or hold not found"
// @Failure 409 {object} map[string]interface{} "Seats not available"
// @Security BearerAuth
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	owner, ok := h.owners.resolve(c, req.Owner)
	if !ok {
		return
	}
	req.Owner = owner

	booking, err := h.bookings.CreateBooking(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// ListBookings returns the caller's bookings, newest first
// @Summary List my bookings
// @Tags Bookings
// @Produce json
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} models.BookingListResponse
// @Security BearerAuth
// @Router /api/v1/bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	owner, ok := h.owners.resolve(c, c.Query("owner"))
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	bookings, err := h.bookings.ListBookings(c.Request.Context(), owner, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.BookingListResponse{
		Bookings: bookings,
		Limit:    limit,
		Offset:   offset,
	})
}

// GetBooking returns one of the caller's bookings
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 403 {object} map[string]interface{} "Not the owner"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Security BearerAuth
// @Router /api/v1/bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	owner, ok := h.owners.resolve(c, c.Query("owner"))
	if !ok {
		return
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), bookingID, owner)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking cancels one of the caller's bookings
// @Summary Cancel booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.CancelBookingRequest false "Cancellation reason"
// @Success 200 {object} models.Booking
// @Failure 409 {object} map[string]interface{} "Already cancelled or completed"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req models.CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	owner, ok := h.owners.resolve(c, req.Owner)
	if !ok {
		return
	}

	booking, err := h.bookings.Cancel(c.Request.Context(), bookingID, owner, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// UpdateBookingStatus applies a privileged status change
// @Summary Update booking status (admin)
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.UpdateBookingStatusRequest true "Target status"
// @Success 200 {object} models.Booking
// @Failure 409 {object} map[string]interface{} "Transition not allowed"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/status [put]
func (h *BookingHandler) UpdateBookingStatus(c *gin.Context) {
	bookingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req models.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	status, err := models.ParseBookingStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
			"code":    "VALIDATION_ERROR",
		})
		return
	}

	booking, err := h.bookings.UpdateStatus(c.Request.Context(), bookingID, status, req.OutcomeData)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// VerifyBoarding checks a scanned boarding token
func (h *BookingHandler) VerifyBoarding(c *gin.Context) {
	var req models.VerifyBoardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.bookings.VerifyBoarding(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
