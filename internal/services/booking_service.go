package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/database"
	"github.com/smarttransit/seat-booking-engine/internal/models"
	"github.com/smarttransit/seat-booking-engine/pkg/jwt"
)

// EngineConfig holds hold and booking timing and limits
type EngineConfig struct {
	HoldDuration       time.Duration
	HoldMaxDuration    time.Duration
	PendingBookingTTL  time.Duration
	MaxSeatsPerBooking int
	DefaultCurrency    string
}

// DefaultEngineConfig returns the default engine configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HoldDuration:       15 * time.Minute,
		HoldMaxDuration:    60 * time.Minute,
		PendingBookingTTL:  30 * time.Minute,
		MaxSeatsPerBooking: 10,
		DefaultCurrency:    "LKR",
	}
}

// BoardingTokens signs and verifies boarding tokens
type BoardingTokens interface {
	GenerateBoardingToken(claims jwt.BoardingClaims) (string, error)
	ValidateBoardingToken(token string) (*jwt.BoardingClaims, error)
}

// RefundRequest asks the payment side to refund a captured payment
type RefundRequest struct {
	BookingID        uuid.UUID
	BookingReference string
	PaymentReference string
	Amount           float64
	Currency         string
	Reason           string
}

// RefundRequester forwards refund requests to the payment boundary
type RefundRequester interface {
	RequestRefund(ctx context.Context, req RefundRequest) error
}

const (
	reasonPaymentExpired = "payment window expired"
	reasonPaymentFailed  = "payment failed"
)

// BookingService creates bookings and drives their status machine
type BookingService struct {
	store     database.InventoryStore
	inventory *InventoryService
	locks     *ScheduleLocks
	tokens    BoardingTokens
	refunds   RefundRequester
	config    EngineConfig
	logger    *logrus.Logger
	now       func() time.Time
}

// NewBookingService creates a new BookingService
func NewBookingService(
	store database.InventoryStore,
	inventory *InventoryService,
	locks *ScheduleLocks,
	tokens BoardingTokens,
	refunds RefundRequester,
	config EngineConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		store:     store,
		inventory: inventory,
		locks:     locks,
		tokens:    tokens,
		refunds:   refunds,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the time source
func (s *BookingService) SetClock(now func() time.Time) {
	s.now = now
}

// SetRefundRequester wires the payment boundary after construction
func (s *BookingService) SetRefundRequester(refunds RefundRequester) {
	s.refunds = refunds
}

// ============================================================================
// CREATE
// ============================================================================

// CreateBooking books seats for passengers. With a hold the hold is validated
// and consumed; without one the seats are checked and claimed directly. Both
// paths run under the schedule lock.
func (s *BookingService) CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, error) {
	if req.Owner == "" {
		return nil, invalidRequest("owner is required")
	}

	schedule, err := s.inventory.GetSchedule(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if err := validateSeatSelection(schedule, req.SeatIDs, s.config.MaxSeatsPerBooking); err != nil {
		return nil, err
	}

	passengers, total, err := pricePassengers(schedule, req.Passengers, req.SeatIDs)
	if err != nil {
		return nil, err
	}

	reference, err := GenerateBookingReference(s.now())
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(req.ScheduleID)
	defer unlock()

	now := s.now()
	if schedule.HasDeparted(now) {
		return nil, ErrScheduleDeparted
	}

	if req.HoldID != nil {
		if err := s.checkHoldLocked(ctx, req, now); err != nil {
			return nil, err
		}
	}

	conflicts, err := s.inventory.conflictsLocked(ctx, req.ScheduleID, req.SeatIDs, now, req.HoldID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &models.SeatsUnavailableError{ScheduleID: req.ScheduleID, Conflicts: conflicts}
	}

	expiresAt := now.Add(s.config.PendingBookingTTL)
	booking := &models.Booking{
		ID:            uuid.New(),
		Reference:     reference,
		Owner:         req.Owner,
		ScheduleID:    schedule.ID,
		BusID:         schedule.BusID,
		RouteName:     schedule.RouteName,
		Passengers:    passengers,
		SeatIDs:       append(models.SeatIDs(nil), req.SeatIDs...),
		TotalAmount:   total,
		Currency:      s.config.DefaultCurrency,
		Status:        models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		DepartureTime: schedule.DepartureTime,
		ArrivalTime:   schedule.ArrivalTime,
		ExpiresAt:     &expiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateBooking(ctx, booking, req.HoldID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"reference":   booking.Reference,
		"schedule_id": booking.ScheduleID,
		"seats":       req.SeatIDs,
		"total":       booking.TotalAmount,
		"from_hold":   req.HoldID != nil,
	}).Info("Booking created")

	return booking, nil
}

// checkHoldLocked validates the hold a booking wants to consume
func (s *BookingService) checkHoldLocked(ctx context.Context, req *models.CreateBookingRequest, now time.Time) error {
	hold, err := s.store.GetHold(ctx, *req.HoldID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrHoldNotFound
		}
		return fmt.Errorf("failed to get hold: %w", err)
	}
	if hold.IsExpired(now) {
		return ErrHoldExpired
	}
	if hold.Owner != req.Owner {
		return ErrNotOwner
	}
	if hold.ScheduleID != req.ScheduleID || !hold.SeatIDs.SameSet(req.SeatIDs) {
		return ErrHoldMismatch
	}
	return nil
}

// pricePassengers binds each passenger to one requested seat and prices it
func pricePassengers(schedule *models.Schedule, passengers []models.Passenger, seatIDs []string) (models.Passengers, float64, error) {
	if len(passengers) != len(seatIDs) {
		return nil, 0, invalidRequest("%d passengers for %d seats", len(passengers), len(seatIDs))
	}

	requested := models.SeatIDs(seatIDs)
	priced := make(models.Passengers, 0, len(passengers))
	assigned := make(map[string]bool, len(passengers))
	var total float64

	for _, p := range passengers {
		if p.Name == "" {
			return nil, 0, invalidRequest("passenger name is required")
		}
		if !requested.Contains(p.SeatID) {
			return nil, 0, invalidRequest("passenger seat %s is not among the requested seats", p.SeatID)
		}
		if assigned[p.SeatID] {
			return nil, 0, invalidRequest("seat %s is assigned to more than one passenger", p.SeatID)
		}
		assigned[p.SeatID] = true

		seat, _ := schedule.FindSeat(p.SeatID)
		p.FareClass = seat.Class
		p.Fare = schedule.SeatPrice(seat)
		total += p.Fare
		priced = append(priced, p)
	}

	return priced, math.Round(total*100) / 100, nil
}

// ============================================================================
// READ
// ============================================================================

// GetBooking returns a booking owned by owner
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID, owner string) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Owner != owner {
		return nil, ErrNotOwner
	}
	if booking.IsPaymentExpired(s.now()) {
		expired, _, err := s.mutateBooking(ctx, bookingID, func(b *models.Booking, now time.Time) (bool, error) {
			return false, nil
		})
		return expired, err
	}
	return booking, nil
}

// ListBookings returns a page of the owner's bookings, newest first.
// PENDING bookings past their deadline are reported as cancelled.
func (s *BookingService) ListBookings(ctx context.Context, owner string, limit, offset int) ([]models.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	bookings, err := s.store.ListBookingsByOwner(ctx, owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	now := s.now()
	result := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.IsPaymentExpired(now) {
			expireBooking(b, now)
		}
		result = append(result, *b)
	}
	return result, nil
}

// VerifyBoarding checks a scanned boarding token against the stored booking
func (s *BookingService) VerifyBoarding(ctx context.Context, token string) (*models.BoardingVerification, error) {
	claims, err := s.tokens.ValidateBoardingToken(token)
	if err != nil {
		return nil, ErrInvalidBoarding
	}

	booking, err := s.store.GetBookingByReference(ctx, claims.BookingReference)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidBoarding
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.Status != models.BookingStatusConfirmed || booking.BoardingToken == nil || *booking.BoardingToken != token {
		return nil, ErrInvalidBoarding
	}

	return &models.BoardingVerification{
		Valid:            true,
		BookingReference: booking.Reference,
		ScheduleID:       booking.ScheduleID,
		RouteName:        booking.RouteName,
		TravelDate:       booking.TravelDate(),
		SeatIDs:          booking.SeatIDs.Sorted(),
		Status:           booking.Status,
	}, nil
}

// ============================================================================
// STATUS TRANSITIONS
// ============================================================================

// Cancel cancels a PENDING or CONFIRMED booking on behalf of its owner.
// A captured payment triggers a refund request after the lock is released.
func (s *BookingService) Cancel(ctx context.Context, bookingID uuid.UUID, owner, reason string) (*models.Booking, error) {
	current, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Owner != owner {
		return nil, ErrNotOwner
	}

	var refund bool
	booking, _, err := s.mutateBooking(ctx, bookingID, func(b *models.Booking, now time.Time) (bool, error) {
		if b.Status.IsTerminal() {
			if b.Status == models.BookingStatusCompleted {
				return false, ErrAlreadyCompleted
			}
			return false, ErrAlreadyCancelled
		}
		refund = cancelBooking(b, reason, now)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"reference":  booking.Reference,
		"refund":     refund,
	}).Info("Booking cancelled")

	if refund {
		s.requestRefund(ctx, booking, booking.TotalAmount, reason)
	}
	return booking, nil
}

// UpdateStatus applies a privileged status change following the transition
// table. Re-confirming a CONFIRMED booking is a no-op. Cancelling a paid
// booking refunds its total unless outcome names a smaller refund amount.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status models.BookingStatus, outcome *models.OutcomeData) (*models.Booking, error) {
	if outcome == nil {
		outcome = &models.OutcomeData{}
	}
	if outcome.RefundAmount != nil {
		if status != models.BookingStatusCancelled {
			return nil, invalidRequest("refund_amount only applies to cancellation")
		}
		if *outcome.RefundAmount <= 0 {
			return nil, invalidRequest("refund_amount must be positive")
		}
	}

	var (
		refund       bool
		refundAmount float64
	)
	booking, _, err := s.mutateBooking(ctx, bookingID, func(b *models.Booking, now time.Time) (bool, error) {
		if b.Status == models.BookingStatusConfirmed && status == models.BookingStatusConfirmed {
			return false, nil
		}
		if !b.Status.CanTransitionTo(status) {
			return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, status)
		}

		switch status {
		case models.BookingStatusConfirmed:
			if err := s.confirmBooking(b, outcome.PaymentReference, now); err != nil {
				return false, err
			}
		case models.BookingStatusCancelled:
			refundAmount = b.TotalAmount
			if outcome.RefundAmount != nil {
				if b.PaymentStatus != models.PaymentStatusPaid {
					return false, invalidRequest("no captured payment to refund")
				}
				if *outcome.RefundAmount > b.TotalAmount {
					return false, invalidRequest("refund_amount %.2f exceeds booking total %.2f", *outcome.RefundAmount, b.TotalAmount)
				}
				refundAmount = *outcome.RefundAmount
			}
			refund = cancelBooking(b, outcome.Reason, now)
		case models.BookingStatusCompleted:
			b.Status = models.BookingStatusCompleted
			b.CompletedAt = &now
			b.UpdatedAt = now
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"status":     booking.Status,
	}).Info("Booking status updated")

	if refund {
		s.requestRefund(ctx, booking, refundAmount, outcome.Reason)
	}
	return booking, nil
}

// OnPaymentSucceeded confirms a PENDING booking. Duplicates on a CONFIRMED
// booking return it unchanged. A success arriving after cancellation is
// rejected and the late capture is sent back for refund once.
func (s *BookingService) OnPaymentSucceeded(ctx context.Context, bookingID uuid.UUID, paymentRef string) (*models.Booking, error) {
	var lateCapture bool
	booking, persisted, err := s.mutateBooking(ctx, bookingID, func(b *models.Booking, now time.Time) (bool, error) {
		lateCapture = false
		switch b.Status {
		case models.BookingStatusPending:
			return true, s.confirmBooking(b, paymentRef, now)
		case models.BookingStatusConfirmed:
			return false, nil
		case models.BookingStatusCancelled:
			changed := false
			if b.PaymentStatus == models.PaymentStatusPending || b.PaymentStatus == models.PaymentStatusFailed {
				lateCapture = true
				changed = true
				b.PaymentStatus = models.PaymentStatusRefundPending
				if paymentRef != "" {
					b.PaymentReference = &paymentRef
				}
				b.UpdatedAt = now
			}
			return changed, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, models.BookingStatusConfirmed)
		default:
			return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, models.BookingStatusConfirmed)
		}
	})

	// Only a stored refund_pending may be sent back for refund
	if lateCapture && persisted {
		s.requestRefund(ctx, booking, booking.TotalAmount, "payment captured after cancellation")
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"payment_ref": paymentRef,
	}).Info("Payment succeeded, booking confirmed")

	return booking, nil
}

// OnPaymentFailed cancels a PENDING booking. A CANCELLED booking is left as is.
func (s *BookingService) OnPaymentFailed(ctx context.Context, bookingID uuid.UUID, reason string) (*models.Booking, error) {
	booking, _, err := s.mutateBooking(ctx, bookingID, func(b *models.Booking, now time.Time) (bool, error) {
		switch b.Status {
		case models.BookingStatusPending:
			msg := reasonPaymentFailed
			if reason != "" {
				msg = reasonPaymentFailed + ": " + reason
			}
			cancelBooking(b, msg, now)
			b.PaymentStatus = models.PaymentStatusFailed
			return true, nil
		case models.BookingStatusCancelled:
			return false, nil
		default:
			return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, models.BookingStatusCancelled)
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"reason":     reason,
	}).Warn("Payment failed, booking cancelled")

	return booking, nil
}

// OnRefundCompleted records a refund for a cancelled booking
func (s *BookingService) OnRefundCompleted(ctx context.Context, bookingID uuid.UUID, amount float64) (*models.Booking, error) {
	booking, _, err := s.mutateBooking(ctx, bookingID, func(b *models.Booking, now time.Time) (bool, error) {
		if b.PaymentStatus == models.PaymentStatusRefunded {
			return false, nil
		}
		if b.Status != models.BookingStatusCancelled ||
			(b.PaymentStatus != models.PaymentStatusRefundPending && b.PaymentStatus != models.PaymentStatusPaid) {
			return false, fmt.Errorf("%w: refund for %s booking with payment %s", ErrInvalidTransition, b.Status, b.PaymentStatus)
		}
		b.PaymentStatus = models.PaymentStatusRefunded
		b.RefundAmount = &amount
		b.RefundedAt = &now
		b.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// ============================================================================
// HELPERS
// ============================================================================

// maxUpdateAttempts bounds how often mutateBooking re-reads a booking that
// another process changed between its read and its write
const maxUpdateAttempts = 3

// mutateBooking loads a booking under its schedule lock, applies logical
// expiry, runs fn and persists the booking if anything changed. The write
// happens even when fn returns an error, so fn may record state and reject;
// persisted reports whether it did, and the booking is returned with fn's
// error in that case. The write is guarded on the revision read under the
// lock, and a lost race re-runs fn against the fresh row.
func (s *BookingService) mutateBooking(ctx context.Context, bookingID uuid.UUID, fn func(b *models.Booking, now time.Time) (bool, error)) (*models.Booking, bool, error) {
	current, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, false, err
	}

	unlock := s.locks.Lock(current.ScheduleID)
	defer unlock()

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		booking, err := s.getBooking(ctx, bookingID)
		if err != nil {
			return nil, false, err
		}
		read := booking.Revision()

		now := s.now()
		expired := false
		if booking.IsPaymentExpired(now) {
			expireBooking(booking, now)
			expired = true
		}

		changed, fnErr := fn(booking, now)
		if !changed && !expired {
			if fnErr != nil {
				return nil, false, fnErr
			}
			return booking, false, nil
		}

		err = s.store.UpdateBooking(ctx, booking, read)
		switch {
		case err == nil:
			return booking, true, fnErr
		case errors.Is(err, database.ErrConflict):
			s.logger.WithFields(logrus.Fields{
				"booking_id": bookingID,
				"attempt":    attempt,
			}).Info("Booking changed concurrently, re-reading")
		case errors.Is(err, database.ErrNotFound):
			return nil, false, ErrBookingNotFound
		default:
			return nil, false, fmt.Errorf("failed to update booking: %w", err)
		}
	}
	return nil, false, ErrConcurrentUpdate
}

func (s *BookingService) getBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// confirmBooking moves a booking to CONFIRMED and assigns its boarding token once
func (s *BookingService) confirmBooking(b *models.Booking, paymentRef string, now time.Time) error {
	if b.BoardingToken == nil {
		token, err := s.tokens.GenerateBoardingToken(jwt.BoardingClaims{
			BookingReference: b.Reference,
			ScheduleID:       b.ScheduleID,
			RouteName:        b.RouteName,
			TravelDate:       b.TravelDate(),
			Seats:            b.SeatIDs,
		})
		if err != nil {
			return err
		}
		b.BoardingToken = &token
	}

	b.Status = models.BookingStatusConfirmed
	b.PaymentStatus = models.PaymentStatusPaid
	if paymentRef != "" {
		b.PaymentReference = &paymentRef
	}
	b.ExpiresAt = nil
	b.ConfirmedAt = &now
	b.UpdatedAt = now
	return nil
}

// cancelBooking moves a booking to CANCELLED and reports whether a captured
// payment needs refunding. Uncharged bookings need no refund.
func cancelBooking(b *models.Booking, reason string, now time.Time) bool {
	refund := b.PaymentStatus == models.PaymentStatusPaid

	b.Status = models.BookingStatusCancelled
	b.CancelledAt = &now
	b.ExpiresAt = nil
	b.UpdatedAt = now
	if reason != "" {
		b.CancellationReason = &reason
	}
	if refund {
		b.PaymentStatus = models.PaymentStatusRefundPending
	}
	return refund
}

// expireBooking cancels a PENDING booking whose payment window has passed
func expireBooking(b *models.Booking, now time.Time) {
	cancelBooking(b, reasonPaymentExpired, now)
}

// requestRefund hands the refund to the payment boundary without waiting for it
func (s *BookingService) requestRefund(ctx context.Context, b *models.Booking, amount float64, reason string) {
	if s.refunds == nil {
		s.logger.WithField("booking_id", b.ID).Warn("No refund requester configured, refund not requested")
		return
	}

	req := RefundRequest{
		BookingID:        b.ID,
		BookingReference: b.Reference,
		Amount:           amount,
		Currency:         b.Currency,
		Reason:           reason,
	}
	if b.PaymentReference != nil {
		req.PaymentReference = *b.PaymentReference
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.refunds.RequestRefund(ctx, req); err != nil {
			s.logger.WithError(err).WithField("booking_id", req.BookingID).Error("Failed to request refund")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"booking_id": req.BookingID,
			"amount":     req.Amount,
		}).Info("Refund requested")
	}()
}
