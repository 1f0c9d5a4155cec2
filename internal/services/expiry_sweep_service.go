package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/database"
	"github.com/smarttransit/seat-booking-engine/internal/models"
)

// SweepResult summarises one sweep pass
type SweepResult struct {
	Schedules         int `json:"schedules"`
	HoldsDeleted      int `json:"holds_deleted"`
	BookingsCancelled int `json:"bookings_cancelled"`
	Failures          int `json:"failures"`
}

// ExpirySweepService periodically deletes expired holds and cancels PENDING
// bookings past their payment deadline. Each schedule is swept under its own
// lock and a failure on one schedule never stops the others.
type ExpirySweepService struct {
	store     database.InventoryStore
	locks     *ScheduleLocks
	logger    *logrus.Logger
	interval  time.Duration
	batchSize int
	cron      *cron.Cron
	now       func() time.Time
}

// NewExpirySweepService creates a new sweep service
func NewExpirySweepService(
	store database.InventoryStore,
	locks *ScheduleLocks,
	interval time.Duration,
	batchSize int,
	logger *logrus.Logger,
) *ExpirySweepService {
	if batchSize <= 0 {
		batchSize = 500
	}

	cronLogger := cron.PrintfLogger(logger)
	return &ExpirySweepService{
		store:     store,
		locks:     locks,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		now: time.Now,
	}
}

// SetClock replaces the time source
func (s *ExpirySweepService) SetClock(now func() time.Time) {
	s.now = now
}

// Start runs one sweep immediately and schedules the rest
func (s *ExpirySweepService) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}

	s.logger.WithField("interval", s.interval.String()).Info("Starting expiry sweep")
	s.RunOnce(context.Background())
	s.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish
func (s *ExpirySweepService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Expiry sweep stopped")
}

// RunOnce performs a single sweep pass. It logs failures and never returns them.
func (s *ExpirySweepService) RunOnce(ctx context.Context) SweepResult {
	var result SweepResult
	now := s.now()

	holds, err := s.store.ListExpiredHolds(ctx, now, s.batchSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list expired holds")
		result.Failures++
	}
	bookings, err := s.store.ListExpiredPendingBookings(ctx, now, s.batchSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list expired bookings")
		result.Failures++
	}

	bySchedule := make(map[string][]*models.Booking)
	for _, hold := range holds {
		if _, ok := bySchedule[hold.ScheduleID]; !ok {
			bySchedule[hold.ScheduleID] = nil
		}
	}
	for _, booking := range bookings {
		bySchedule[booking.ScheduleID] = append(bySchedule[booking.ScheduleID], booking)
	}

	scheduleIDs := make([]string, 0, len(bySchedule))
	for id := range bySchedule {
		scheduleIDs = append(scheduleIDs, id)
	}
	sort.Strings(scheduleIDs)

	for _, scheduleID := range scheduleIDs {
		deleted, cancelled, failures := s.sweepSchedule(ctx, scheduleID, bySchedule[scheduleID], now)
		result.Schedules++
		result.HoldsDeleted += deleted
		result.BookingsCancelled += cancelled
		result.Failures += failures
	}

	if result.HoldsDeleted > 0 || result.BookingsCancelled > 0 || result.Failures > 0 {
		s.logger.WithFields(logrus.Fields{
			"schedules":          result.Schedules,
			"holds_deleted":      result.HoldsDeleted,
			"bookings_cancelled": result.BookingsCancelled,
			"failures":           result.Failures,
		}).Info("Expiry sweep finished")
	}

	return result
}

func (s *ExpirySweepService) sweepSchedule(ctx context.Context, scheduleID string, bookings []*models.Booking, now time.Time) (deleted, cancelled, failures int) {
	unlock := s.locks.Lock(scheduleID)
	defer unlock()

	log := s.logger.WithField("schedule_id", scheduleID)

	n, err := s.store.DeleteExpiredHolds(ctx, scheduleID, now)
	if err != nil {
		log.WithError(err).Error("Failed to delete expired holds")
		failures++
	}
	deleted = int(n)

	for _, candidate := range bookings {
		// Re-read under the lock: payment may have confirmed it meanwhile
		booking, err := s.store.GetBooking(ctx, candidate.ID)
		if err != nil {
			log.WithError(err).WithField("booking_id", candidate.ID).Error("Failed to reload expired booking")
			failures++
			continue
		}
		if !booking.IsPaymentExpired(now) {
			continue
		}

		read := booking.Revision()
		expireBooking(booking, now)
		err = s.store.UpdateBooking(ctx, booking, read)
		if errors.Is(err, database.ErrConflict) {
			// A server or another sweeper wrote it first
			log.WithField("booking_id", booking.ID).Info("Expired booking changed concurrently, skipped")
			continue
		}
		if err != nil {
			log.WithError(err).WithField("booking_id", booking.ID).Error("Failed to cancel expired booking")
			failures++
			continue
		}
		cancelled++
		log.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"reference":  booking.Reference,
		}).Info("Booking cancelled after payment window expired")
	}

	return deleted, cancelled, failures
}
