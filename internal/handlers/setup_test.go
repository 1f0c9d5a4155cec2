package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/database"
	"github.com/smarttransit/seat-booking-engine/internal/events"
	"github.com/smarttransit/seat-booking-engine/internal/models"
	"github.com/smarttransit/seat-booking-engine/internal/services"
	"github.com/smarttransit/seat-booking-engine/pkg/jwt"
	"github.com/smarttransit/seat-booking-engine/pkg/validator"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu             sync.Mutex
	events         []any
	correlationIDs []string
	err            error
}

func (p *recordingPublisher) Publish(ctx context.Context, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	p.correlationIDs = append(p.correlationIDs, events.CorrelationIDFromContext(ctx))
	return nil
}

type testServer struct {
	router    *gin.Engine
	bookings  *services.BookingService
	publisher *recordingPublisher
	tokens    *jwt.Service
}

func price(v float64) *float64 { return &v }

func setupServer(t *testing.T, authEnabled bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validator.RegisterGinValidators())

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	departure := time.Now().Add(48 * time.Hour)
	catalog := database.NewMemoryCatalog(&models.Schedule{
		ID:            "S1",
		BusID:         "BUS-1",
		RouteName:     "Colombo - Kandy",
		DepartureTime: departure,
		ArrivalTime:   departure.Add(3 * time.Hour),
		TotalSeats:    3,
		BaseFare:      40,
		Seats: []models.Seat{
			{ID: "1A", Class: "standard", Price: price(45)},
			{ID: "1B", Class: "standard", Price: price(65)},
			{ID: "1C", Class: "standard"},
		},
	})
	store := database.NewMemoryStore()
	locks := services.NewScheduleLocks()
	config := services.DefaultEngineConfig()
	tokens := jwt.NewService("access-secret", "boarding-secret", time.Hour)

	inventory := services.NewInventoryService(store, catalog, locks)
	holds := services.NewHoldService(store, inventory, locks, config, logger)
	bookings := services.NewBookingService(store, inventory, locks, tokens, nil, config, logger)
	publisher := &recordingPublisher{}

	router := gin.New()
	RegisterRoutes(router, RouteDeps{
		Inventory:   inventory,
		Holds:       holds,
		Bookings:    bookings,
		Publisher:   publisher,
		Store:       store,
		JWT:         tokens,
		AuthEnabled: authEnabled,
		Logger:      logger,
	})

	return &testServer{
		router:    router,
		bookings:  bookings,
		publisher: publisher,
		tokens:    tokens,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]interface{}](t, w)
	code, _ := body["code"].(string)
	return code
}

func (s *testServer) createBooking(t *testing.T, owner string, seats ...string) models.Booking {
	t.Helper()

	passengers := make([]map[string]string, 0, len(seats))
	for _, seat := range seats {
		passengers = append(passengers, map[string]string{"name": "Passenger " + seat, "seat_id": seat})
	}
	w := s.do(t, http.MethodPost, "/api/v1/bookings", map[string]interface{}{
		"owner":       owner,
		"schedule_id": "S1",
		"seat_ids":    seats,
		"passengers":  passengers,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Booking](t, w)
}
