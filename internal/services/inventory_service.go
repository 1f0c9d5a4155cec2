package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/seat-booking-engine/internal/database"
	"github.com/smarttransit/seat-booking-engine/internal/models"
)

// InventoryService derives seat occupancy of a schedule from live holds and
// PENDING/CONFIRMED bookings. Expiry is applied here, so results are correct
// even when the sweep is late.
type InventoryService struct {
	store   database.InventoryStore
	catalog database.ScheduleCatalog
	locks   *ScheduleLocks
	now     func() time.Time
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(store database.InventoryStore, catalog database.ScheduleCatalog, locks *ScheduleLocks) *InventoryService {
	return &InventoryService{
		store:   store,
		catalog: catalog,
		locks:   locks,
		now:     time.Now,
	}
}

// SetClock replaces the time source
func (s *InventoryService) SetClock(now func() time.Time) {
	s.now = now
}

// GetSchedule looks up a schedule in the catalog
func (s *InventoryService) GetSchedule(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	schedule, err := s.catalog.GetSchedule(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, scheduleID)
		}
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	return schedule, nil
}

// OccupiedSeats returns the sorted seat ids currently claimed on a schedule
func (s *InventoryService) OccupiedSeats(ctx context.Context, scheduleID string) ([]string, error) {
	unlock := s.locks.Lock(scheduleID)
	defer unlock()

	occupied, err := s.occupiedLocked(ctx, scheduleID, s.now(), nil)
	if err != nil {
		return nil, err
	}

	seats := make([]string, 0, len(occupied))
	for seatID := range occupied {
		seats = append(seats, seatID)
	}
	sort.Strings(seats)
	return seats, nil
}

// CheckAvailability reports which of the requested seats are already claimed
func (s *InventoryService) CheckAvailability(ctx context.Context, scheduleID string, seatIDs []string) (*models.AvailabilityResult, error) {
	schedule, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if unknown := schedule.UnknownSeats(seatIDs); len(unknown) > 0 {
		return nil, invalidRequest("unknown seats %v", unknown)
	}

	unlock := s.locks.Lock(scheduleID)
	defer unlock()

	conflicts, err := s.conflictsLocked(ctx, scheduleID, seatIDs, s.now(), nil)
	if err != nil {
		return nil, err
	}

	return &models.AvailabilityResult{
		Available: len(conflicts) == 0,
		Conflicts: conflicts,
	}, nil
}

// SeatMap returns every seat of a schedule with its fare and availability
func (s *InventoryService) SeatMap(ctx context.Context, scheduleID string) (*models.SeatMapResponse, error) {
	schedule, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(scheduleID)
	occupied, err := s.occupiedLocked(ctx, scheduleID, s.now(), nil)
	unlock()
	if err != nil {
		return nil, err
	}

	response := &models.SeatMapResponse{
		ScheduleID:    schedule.ID,
		BusID:         schedule.BusID,
		RouteName:     schedule.RouteName,
		DepartureTime: schedule.DepartureTime,
		TotalSeats:    schedule.TotalSeats,
		Seats:         make([]models.SeatAvailability, 0, len(schedule.Seats)),
	}
	for _, seat := range schedule.Seats {
		_, taken := occupied[seat.ID]
		if !taken {
			response.AvailableSeats++
		}
		response.Seats = append(response.Seats, models.SeatAvailability{
			Seat:      seat,
			Fare:      schedule.SeatPrice(seat),
			Available: !taken,
		})
	}
	return response, nil
}

// occupiedLocked must be called with the schedule lock held. A hold named by
// excludeHold is ignored, which lets a booking consume its own hold.
func (s *InventoryService) occupiedLocked(ctx context.Context, scheduleID string, now time.Time, excludeHold *uuid.UUID) (map[string]struct{}, error) {
	holds, err := s.store.ListHoldsBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holds: %w", err)
	}
	bookings, err := s.store.ListActiveBookingsBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}

	occupied := make(map[string]struct{})
	for _, hold := range holds {
		if hold.IsExpired(now) || (excludeHold != nil && hold.ID == *excludeHold) {
			continue
		}
		for _, seatID := range hold.SeatIDs {
			occupied[seatID] = struct{}{}
		}
	}
	for _, booking := range bookings {
		if !booking.ClaimsSeats(now) {
			continue
		}
		for _, seatID := range booking.SeatIDs {
			occupied[seatID] = struct{}{}
		}
	}
	return occupied, nil
}

// conflictsLocked returns the sorted subset of seatIDs that are occupied
func (s *InventoryService) conflictsLocked(ctx context.Context, scheduleID string, seatIDs []string, now time.Time, excludeHold *uuid.UUID) ([]string, error) {
	occupied, err := s.occupiedLocked(ctx, scheduleID, now, excludeHold)
	if err != nil {
		return nil, err
	}

	conflicts := []string{}
	for _, seatID := range seatIDs {
		if _, taken := occupied[seatID]; taken {
			conflicts = append(conflicts, seatID)
		}
	}
	sort.Strings(conflicts)
	return conflicts, nil
}

// validateSeatSelection checks a requested seat list against the schedule
func validateSeatSelection(schedule *models.Schedule, seatIDs []string, maxSeats int) error {
	if len(seatIDs) == 0 {
		return invalidRequest("at least one seat is required")
	}
	if maxSeats > 0 && len(seatIDs) > maxSeats {
		return invalidRequest("at most %d seats can be booked at once", maxSeats)
	}
	if dups := models.SeatIDs(seatIDs).Duplicates(); len(dups) > 0 {
		return invalidRequest("duplicate seats %v", dups)
	}
	if unknown := schedule.UnknownSeats(seatIDs); len(unknown) > 0 {
		return invalidRequest("unknown seats %v", unknown)
	}
	return nil
}
