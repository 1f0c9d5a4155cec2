package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/database"
	"github.com/smarttransit/seat-booking-engine/internal/models"
	"github.com/smarttransit/seat-booking-engine/pkg/jwt"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingRefunds struct {
	mu       sync.Mutex
	requests []RefundRequest
}

func (r *recordingRefunds) RequestRefund(ctx context.Context, req RefundRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return nil
}

func (r *recordingRefunds) Requests() []RefundRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RefundRequest(nil), r.requests...)
}

// interceptingStore runs beforeUpdate once ahead of the next booking write,
// and fails every booking write with updateErr when it is set
type interceptingStore struct {
	*database.MemoryStore
	beforeUpdate func()
	updateErr    error
}

func (s *interceptingStore) UpdateBooking(ctx context.Context, booking *models.Booking, prev models.BookingRevision) error {
	if hook := s.beforeUpdate; hook != nil {
		s.beforeUpdate = nil
		hook()
	}
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.MemoryStore.UpdateBooking(ctx, booking, prev)
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type testEngine struct {
	store     *database.MemoryStore
	catalog   *database.MemoryCatalog
	inventory *InventoryService
	holds     *HoldService
	bookings  *BookingService
	sweep     *ExpirySweepService
	clock     *fakeClock
	refunds   *recordingRefunds
	tokens    *jwt.Service
	config    EngineConfig
}

func price(v float64) *float64 { return &v }

// testSchedule has seats 1A (45), 1B (65), 1C (premium class fare 80) and
// 1D (standard, schedule base fare 40)
func testSchedule(id string, departure time.Time) *models.Schedule {
	return &models.Schedule{
		ID:            id,
		BusID:         "BUS-" + id,
		RouteName:     "Colombo - Kandy",
		DepartureTime: departure,
		ArrivalTime:   departure.Add(3 * time.Hour),
		BaseFare:      40,
		ClassFares:    map[string]float64{"premium": 80},
		Seats: []models.Seat{
			{ID: "1A", Class: "standard", Price: price(45)},
			{ID: "1B", Class: "standard", Price: price(65)},
			{ID: "1C", Class: "premium"},
			{ID: "1D", Class: "standard"},
		},
	}
}

func setupEngineTest(t *testing.T) *testEngine {
	t.Helper()

	logger := discardLogger()

	clock := &fakeClock{t: time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)}
	departure := clock.Now().Add(48 * time.Hour)

	store := database.NewMemoryStore()
	catalog := database.NewMemoryCatalog(testSchedule("S1", departure), testSchedule("S2", departure))
	locks := NewScheduleLocks()
	config := DefaultEngineConfig()
	tokens := jwt.NewService("access-secret", "boarding-secret", time.Hour)
	refunds := &recordingRefunds{}

	inventory := NewInventoryService(store, catalog, locks)
	holds := NewHoldService(store, inventory, locks, config, logger)
	bookings := NewBookingService(store, inventory, locks, tokens, refunds, config, logger)
	sweep := NewExpirySweepService(store, locks, 30*time.Second, 100, logger)

	inventory.SetClock(clock.Now)
	holds.SetClock(clock.Now)
	bookings.SetClock(clock.Now)
	sweep.SetClock(clock.Now)

	return &testEngine{
		store:     store,
		catalog:   catalog,
		inventory: inventory,
		holds:     holds,
		bookings:  bookings,
		sweep:     sweep,
		clock:     clock,
		refunds:   refunds,
		tokens:    tokens,
		config:    config,
	}
}

// bookingServiceOver builds a second booking service on store with its own
// locks, as another process sharing the database would have
func (e *testEngine) bookingServiceOver(store database.InventoryStore, clock *fakeClock) *BookingService {
	bookings := NewBookingService(store, e.inventory, NewScheduleLocks(), e.tokens, e.refunds, e.config, discardLogger())
	bookings.SetClock(clock.Now)
	return bookings
}

func passengersFor(seats ...string) []models.Passenger {
	passengers := make([]models.Passenger, 0, len(seats))
	for i, seat := range seats {
		passengers = append(passengers, models.Passenger{
			Name:   "Passenger " + string(rune('A'+i)),
			SeatID: seat,
		})
	}
	return passengers
}

func (e *testEngine) book(t *testing.T, owner, scheduleID string, seats ...string) *models.Booking {
	t.Helper()
	booking, err := e.bookings.CreateBooking(context.Background(), &models.CreateBookingRequest{
		Owner:      owner,
		ScheduleID: scheduleID,
		Passengers: passengersFor(seats...),
		SeatIDs:    seats,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return booking
}
