package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/database"
	"github.com/smarttransit/seat-booking-engine/internal/models"
)

// HoldService grants and releases short-lived seat holds
type HoldService struct {
	store     database.InventoryStore
	inventory *InventoryService
	locks     *ScheduleLocks
	config    EngineConfig
	logger    *logrus.Logger
	now       func() time.Time
}

// NewHoldService creates a new HoldService
func NewHoldService(
	store database.InventoryStore,
	inventory *InventoryService,
	locks *ScheduleLocks,
	config EngineConfig,
	logger *logrus.Logger,
) *HoldService {
	return &HoldService{
		store:     store,
		inventory: inventory,
		locks:     locks,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the time source
func (s *HoldService) SetClock(now func() time.Time) {
	s.now = now
}

// Reserve places a hold on seats if none of them is claimed. The availability
// check and the insert happen under the schedule lock. A zero duration uses
// the configured default.
func (s *HoldService) Reserve(ctx context.Context, scheduleID string, seatIDs []string, owner string, duration time.Duration) (*models.Hold, error) {
	if owner == "" {
		return nil, invalidRequest("owner is required")
	}
	if duration == 0 {
		duration = s.config.HoldDuration
	}
	if duration < 0 || (s.config.HoldMaxDuration > 0 && duration > s.config.HoldMaxDuration) {
		return nil, invalidRequest("hold duration must be between 1 second and %s", s.config.HoldMaxDuration)
	}

	schedule, err := s.inventory.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if err := validateSeatSelection(schedule, seatIDs, s.config.MaxSeatsPerBooking); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(scheduleID)
	defer unlock()

	now := s.now()
	if schedule.HasDeparted(now) {
		return nil, ErrScheduleDeparted
	}

	conflicts, err := s.inventory.conflictsLocked(ctx, scheduleID, seatIDs, now, nil)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		s.logger.WithFields(logrus.Fields{
			"schedule_id": scheduleID,
			"owner":       owner,
			"conflicts":   conflicts,
		}).Info("Hold rejected, seats unavailable")
		return nil, &models.SeatsUnavailableError{ScheduleID: scheduleID, Conflicts: conflicts}
	}

	hold := &models.Hold{
		ID:         uuid.New(),
		ScheduleID: scheduleID,
		SeatIDs:    append(models.SeatIDs(nil), seatIDs...),
		Owner:      owner,
		CreatedAt:  now,
		ExpiresAt:  now.Add(duration),
	}
	if err := s.store.CreateHold(ctx, hold); err != nil {
		return nil, fmt.Errorf("failed to save hold: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"hold_id":     hold.ID,
		"schedule_id": scheduleID,
		"seats":       seatIDs,
		"owner":       owner,
		"expires_at":  hold.ExpiresAt,
	}).Info("Seats held")

	return hold, nil
}

// Release deletes a hold before its expiry. Expired holds report ErrHoldExpired.
func (s *HoldService) Release(ctx context.Context, holdID uuid.UUID, owner string) error {
	hold, err := s.getHold(ctx, holdID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(hold.ScheduleID)
	defer unlock()

	// Re-read under the lock: the hold may have been consumed meanwhile
	hold, err = s.getHold(ctx, holdID)
	if err != nil {
		return err
	}
	if hold.IsExpired(s.now()) {
		return ErrHoldExpired
	}
	if hold.Owner != owner {
		return ErrNotOwner
	}

	if err := s.store.DeleteHold(ctx, holdID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrHoldNotFound
		}
		return fmt.Errorf("failed to delete hold: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"hold_id":     holdID,
		"schedule_id": hold.ScheduleID,
	}).Info("Hold released")

	return nil
}

// GetHold returns a live hold owned by owner
func (s *HoldService) GetHold(ctx context.Context, holdID uuid.UUID, owner string) (*models.Hold, error) {
	hold, err := s.getHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.IsExpired(s.now()) {
		return nil, ErrHoldExpired
	}
	if hold.Owner != owner {
		return nil, ErrNotOwner
	}
	return hold, nil
}

func (s *HoldService) getHold(ctx context.Context, holdID uuid.UUID) (*models.Hold, error) {
	hold, err := s.store.GetHold(ctx, holdID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}
	return hold, nil
}
