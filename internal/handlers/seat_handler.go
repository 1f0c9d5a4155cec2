package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/models"
	"github.com/smarttransit/seat-booking-engine/internal/services"
)

// SeatHandler serves availability checks and seat holds
type SeatHandler struct {
	inventory *services.InventoryService
	holds     *services.HoldService
	owners    ownerResolver
	logger    *logrus.Logger
}

// NewSeatHandler creates a new SeatHandler
func NewSeatHandler(inventory *services.InventoryService, holds *services.HoldService, authEnabled bool, logger *logrus.Logger) *SeatHandler {
	return &SeatHandler{
		inventory: inventory,
		holds:     holds,
		owners:    ownerResolver{authEnabled: authEnabled},
		logger:    logger,
	}
}

// CheckSeats reports whether seats are free
// @Summary Check seat availability
// @Tags Seats
// @Accept json
// @Produce json
// @Param request body models.CheckSeatsRequest true "Seats to check"
// @Success 200 {object} models.AvailabilityResult
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 404 {object} map[string]interface{} "Schedule not found"
// @Router /api/v1/seats/check [post]
func (h *SeatHandler) CheckSeats(c *gin.Context) {
	var req models.CheckSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.inventory.CheckAvailability(c.Request.Context(), req.ScheduleID, req.SeatIDs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ReserveSeats places a hold on seats
// @Summary Hold seats
// @Tags Seats
// @Accept json
// @Produce json
// @Param request body models.ReserveSeatsRequest true "Seats to hold"
// @Success 201 {object} models.Hold
// @Failure 409 {object} map[string]interface{} "Seats unavailable"
// @Router /api/v1/seats/reserve [post]
func (h *SeatHandler) ReserveSeats(c *gin.Context) {
	var req models.ReserveSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	owner, ok := h.owners.resolve(c, req.Owner)
	if !ok {
		return
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	hold, err := h.holds.Reserve(c.Request.Context(), req.ScheduleID, req.SeatIDs, owner, duration)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, hold)
}

// GetHold returns a live hold
func (h *SeatHandler) GetHold(c *gin.Context) {
	holdID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	owner, ok := h.owners.resolve(c, c.Query("owner"))
	if !ok {
		return
	}

	hold, err := h.holds.GetHold(c.Request.Context(), holdID, owner)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, hold)
}

// ReleaseHold releases a hold before it expires
// @Summary Release a seat hold
// @Tags Seats
// @Param id path string true "Hold ID"
// @Success 204
// @Failure 404 {object} map[string]interface{} "Hold not found or expired"
// @Router /api/v1/seats/reserve/{id} [delete]
func (h *SeatHandler) ReleaseHold(c *gin.Context) {
	holdID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req models.ReleaseHoldRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	if req.Owner == "" {
		req.Owner = c.Query("owner")
	}

	owner, ok := h.owners.resolve(c, req.Owner)
	if !ok {
		return
	}

	if err := h.holds.Release(c.Request.Context(), holdID, owner); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSeatMap returns every seat of a schedule with its fare and availability
func (h *SeatHandler) GetSeatMap(c *gin.Context) {
	seatMap, err := h.inventory.SeatMap(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, seatMap)
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid " + name + " format",
			"code":    "VALIDATION_ERROR",
		})
		return uuid.Nil, false
	}
	return id, true
}
