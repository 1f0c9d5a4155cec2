package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/middleware"
	"github.com/smarttransit/seat-booking-engine/internal/services"
	"github.com/smarttransit/seat-booking-engine/pkg/jwt"
)

// Roles allowed on privileged routes
const (
	RoleAdmin     = "admin"
	RoleConductor = "conductor"
	RoleStaff     = "staff"
)

// RouteDeps carries what the HTTP surface needs
type RouteDeps struct {
	Inventory   *services.InventoryService
	Holds       *services.HoldService
	Bookings    *services.BookingService
	Publisher   EventPublisher
	Store       Pinger
	JWT         *jwt.Service
	AuthEnabled bool
	Logger      *logrus.Logger
}

// RegisterRoutes mounts the booking engine API on router. With auth disabled
// the owner is taken from the request and privileged routes are open.
func RegisterRoutes(router *gin.Engine, deps RouteDeps) {
	seats := NewSeatHandler(deps.Inventory, deps.Holds, deps.AuthEnabled, deps.Logger)
	bookings := NewBookingHandler(deps.Bookings, deps.AuthEnabled, deps.Logger)
	payments := NewPaymentHandler(deps.Publisher, deps.Logger)
	health := NewHealthHandler(deps.Store)

	router.GET("/health", health.Health)

	v1 := router.Group("/api/v1")

	// Gateway callbacks authenticate at the edge, not with user tokens
	v1.POST("/payments/webhook", payments.Webhook)
	v1.GET("/schedules/:id/seats", seats.GetSeatMap)
	v1.POST("/seats/check", seats.CheckSeats)

	protected := v1.Group("")
	if deps.AuthEnabled {
		protected.Use(middleware.AuthMiddleware(deps.JWT, deps.Logger))
	}
	{
		protected.POST("/seats/reserve", seats.ReserveSeats)
		protected.GET("/seats/reserve/:id", seats.GetHold)
		protected.DELETE("/seats/reserve/:id", seats.ReleaseHold)

		protected.POST("/bookings", bookings.CreateBooking)
		protected.GET("/bookings", bookings.ListBookings)
		protected.GET("/bookings/:id", bookings.GetBooking)
		protected.POST("/bookings/:id/cancel", bookings.CancelBooking)

		protected.PUT("/bookings/:id/status", requireRole(deps.AuthEnabled, RoleAdmin), bookings.UpdateBookingStatus)
		protected.POST("/boarding/verify", requireRole(deps.AuthEnabled, RoleAdmin, RoleConductor, RoleStaff), bookings.VerifyBoarding)
	}
}

func requireRole(authEnabled bool, roles ...string) gin.HandlerFunc {
	if !authEnabled {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RequireRole(roles...)
}
