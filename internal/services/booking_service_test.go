package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/seat-booking-engine/internal/database"
	"github.com/smarttransit/seat-booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking_TotalAmount(t *testing.T) {
	e := setupEngineTest(t)

	booking := e.book(t, "U1", "S1", "1A", "1B")

	assert.Equal(t, 110.0, booking.TotalAmount)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
	require.NotNil(t, booking.ExpiresAt)
	assert.Equal(t, e.clock.Now().Add(30*time.Minute), *booking.ExpiresAt)
	assert.Regexp(t, `^BL-20300101-[0-9A-F]{8}$`, booking.Reference)
	assert.Equal(t, "Colombo - Kandy", booking.RouteName)
	assert.Equal(t, "2030-01-03", booking.TravelDate())
}

func TestCreateBooking_ClassFareFallback(t *testing.T) {
	e := setupEngineTest(t)

	booking := e.book(t, "U1", "S1", "1C", "1D")

	assert.Equal(t, 120.0, booking.TotalAmount)
	require.Len(t, booking.Passengers, 2)
	assert.Equal(t, "premium", booking.Passengers[0].FareClass)
	assert.Equal(t, 80.0, booking.Passengers[0].Fare)
	assert.Equal(t, 40.0, booking.Passengers[1].Fare)
}

func TestCreateBooking_WithoutHoldConflicts(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()

	_, err := e.holds.Reserve(ctx, "S1", []string{"1B"}, "U1", 0)
	require.NoError(t, err)

	_, err = e.bookings.CreateBooking(ctx, &models.CreateBookingRequest{
		Owner:      "U2",
		ScheduleID: "S1",
		Passengers: passengersFor("1A", "1B"),
		SeatIDs:    []string{"1A", "1B"},
	})
	var unavailable *models.SeatsUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, []string{"1B"}, unavailable.Conflicts)

	seats, err := e.inventory.OccupiedSeats(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1B"}, seats)
}

func TestCreateBooking_HoldPreconditions(t *testing.T) {
	ctx := context.Background()

	newRequest := func(owner string, holdID uuid.UUID, seats ...string) *models.CreateBookingRequest {
		return &models.CreateBookingRequest{
			Owner:      owner,
			ScheduleID: "S1",
			Passengers: passengersFor(seats...),
			SeatIDs:    seats,
			HoldID:     &holdID,
		}
	}

	t.Run("Unknown hold", func(t *testing.T) {
		e := setupEngineTest(t)
		_, err := e.bookings.CreateBooking(ctx, newRequest("U1", uuid.New(), "1A"))
		assert.ErrorIs(t, err, ErrHoldNotFound)
	})

	t.Run("Other owner", func(t *testing.T) {
		e := setupEngineTest(t)
		hold, err := e.holds.Reserve(ctx, "S1", []string{"1A"}, "U1", 0)
		require.NoError(t, err)

		_, err = e.bookings.CreateBooking(ctx, newRequest("U2", hold.ID, "1A"))
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("Seat set differs", func(t *testing.T) {
		e := setupEngineTest(t)
		hold, err := e.holds.Reserve(ctx, "S1", []string{"1A", "1B"}, "U1", 0)
		require.NoError(t, err)

		_, err = e.bookings.CreateBooking(ctx, newRequest("U1", hold.ID, "1A"))
		assert.ErrorIs(t, err, ErrHoldMismatch)

		_, err = e.holds.GetHold(ctx, hold.ID, "U1")
		assert.NoError(t, err, "hold survives a rejected booking")
	})

	t.Run("Expired hold", func(t *testing.T) {
		e := setupEngineTest(t)
		hold, err := e.holds.Reserve(ctx, "S1", []string{"1A"}, "U1", time.Minute)
		require.NoError(t, err)
		e.clock.Advance(2 * time.Minute)

		_, err = e.bookings.CreateBooking(ctx, newRequest("U1", hold.ID, "1A"))
		assert.ErrorIs(t, err, ErrHoldNotFound)
	})

	t.Run("Seat order does not matter", func(t *testing.T) {
		e := setupEngineTest(t)
		hold, err := e.holds.Reserve(ctx, "S1", []string{"1A", "1B"}, "U1", 0)
		require.NoError(t, err)

		booking, err := e.bookings.CreateBooking(ctx, newRequest("U1", hold.ID, "1B", "1A"))
		require.NoError(t, err)
		assert.Equal(t, 110.0, booking.TotalAmount)

		_, err = e.store.GetHold(ctx, hold.ID)
		assert.Error(t, err, "hold consumed")
	})
}

func TestCreateBooking_PassengerValidation(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		passengers []models.Passenger
		seats      []string
	}{
		{"Count mismatch", passengersFor("1A"), []string{"1A", "1B"}},
		{"Seat outside request", passengersFor("1A", "1C"), []string{"1A", "1B"}},
		{"Seat assigned twice", passengersFor("1A", "1A"), []string{"1A", "1B"}},
		{"Missing name", []models.Passenger{{SeatID: "1A"}}, []string{"1A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.bookings.CreateBooking(ctx, &models.CreateBookingRequest{
				Owner:      "U1",
				ScheduleID: "S1",
				Passengers: tt.passengers,
				SeatIDs:    tt.seats,
			})
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestNoDoubleAllocation_Concurrent(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()

	seatSets := [][]string{
		{"1A", "1B"}, {"1B", "1C"}, {"1C", "1D"}, {"1D", "1A"}, {"1A"}, {"1B", "1D"}, {"1C"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 70; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seats := seatSets[i%len(seatSets)]
			owner := fmt.Sprintf("U%d", i)
			if i%2 == 0 {
				_, _ = e.holds.Reserve(ctx, "S1", seats, owner, 0)
				return
			}
			_, _ = e.bookings.CreateBooking(ctx, &models.CreateBookingRequest{
				Owner:      owner,
				ScheduleID: "S1",
				Passengers: passengersFor(seats...),
				SeatIDs:    seats,
			})
		}(i)
	}
	wg.Wait()

	claims := make(map[string]int)
	holds, err := e.store.ListHoldsBySchedule(ctx, "S1")
	require.NoError(t, err)
	for _, hold := range holds {
		for _, seat := range hold.SeatIDs {
			claims[seat]++
		}
	}
	bookings, err := e.store.ListActiveBookingsBySchedule(ctx, "S1")
	require.NoError(t, err)
	for _, booking := range bookings {
		for _, seat := range booking.SeatIDs {
			claims[seat]++
		}
	}

	require.NotEmpty(t, claims)
	for seat, count := range claims {
		assert.LessOrEqual(t, count, 1, "seat %s claimed %d times", seat, count)
	}
}

func TestOnPaymentSucceeded_Idempotent(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()
	booking := e.book(t, "U1", "S1", "1A", "1B")

	first, err := e.bookings.OnPaymentSucceeded(ctx, booking.ID, "PAY-1")
	require.NoError(t, err)
	require.NotNil(t, first.BoardingToken)
	assert.Equal(t, models.BookingStatusConfirmed, first.Status)
	assert.Equal(t, models.PaymentStatusPaid, first.PaymentStatus)
	assert.Nil(t, first.ExpiresAt)

	e.clock.Advance(time.Minute)
	second, err := e.bookings.OnPaymentSucceeded(ctx, booking.ID, "PAY-1")
	require.NoError(t, err)
	assert.Equal(t, *first.BoardingToken, *second.BoardingToken)
	assert.Equal(t, first.ConfirmedAt, second.ConfirmedAt)
	assert.Equal(t, first.SeatIDs, second.SeatIDs)

	seats, err := e.inventory.OccupiedSeats(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1A", "1B"}, seats)

	claims, err := e.tokens.ValidateBoardingToken(*first.BoardingToken)
	require.NoError(t, err)
	assert.Equal(t, booking.Reference, claims.BookingReference)
}

func TestOnPaymentSucceeded_AfterCancellation(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()
	booking := e.book(t, "U1", "S1", "1A")

	_, err := e.bookings.Cancel(ctx, booking.ID, "U1", "changed plans")
	require.NoError(t, err)

	_, err = e.bookings.OnPaymentSucceeded(ctx, booking.ID, "PAY-LATE")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.bookings.OnPaymentSucceeded(ctx, booking.ID, "PAY-LATE")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Eventually(t, func() bool { return len(e.refunds.Requests()) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Len(t, e.refunds.Requests(), 1, "duplicate late success must not re-request a refund")
	assert.Equal(t, "PAY-LATE", e.refunds.Requests()[0].PaymentReference)

	stored, err := e.store.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, stored.Status)
	assert.Nil(t, stored.BoardingToken)
}

func TestOnPaymentSucceeded_LateCaptureNotStored(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()
	booking := e.book(t, "U1", "S1", "1A")

	_, err := e.bookings.Cancel(ctx, booking.ID, "U1", "changed plans")
	require.NoError(t, err)

	store := &interceptingStore{MemoryStore: e.store, updateErr: errors.New("connection reset")}
	server := e.bookingServiceOver(store, e.clock)

	_, err = server.OnPaymentSucceeded(ctx, booking.ID, "PAY-LATE")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidTransition)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, e.refunds.Requests(), "no refund without a stored refund_pending")

	stored, err := e.store.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Nil(t, stored.PaymentReference)
}

func TestMutateBooking_ConflictRetriesBounded(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()
	booking := e.book(t, "U1", "S1", "1A")

	store := &interceptingStore{MemoryStore: e.store, updateErr: database.ErrConflict}
	server := e.bookingServiceOver(store, e.clock)

	_, err := server.Cancel(ctx, booking.ID, "U1", "changed plans")
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	stored, err := e.store.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, stored.Status)
}

func TestOnPaymentSucceeded_AfterPaymentWindow(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()
	booking := e.book(t, "U1", "S1", "1A")

	e.clock.Advance(31 * time.Minute)

	_, err := e.bookings.OnPaymentSucceeded(ctx, booking.ID, "PAY-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := e.store.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, stored.Status)
}

func TestOnPaymentFailed(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()
	booking := e.book(t, "U1", "S1", "1A")

	failed, err := e.bookings.OnPaymentFailed(ctx, booking.ID, "card declined")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, failed.Status)
	assert.Equal(t, models.PaymentStatusFailed, failed.PaymentStatus)
	require.NotNil(t, failed.CancellationReason)
	assert.Equal(t, "payment failed: card declined", *failed.CancellationReason)

	seats, err := e.inventory.OccupiedSeats(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, seats)

	_, err = e.bookings.OnPaymentFailed(ctx, booking.ID, "card declined")
	assert.NoError(t, err, "duplicate failure is a no-op")

	confirmed := e.book(t, "U1", "S1", "1B")
	_, err = e.bookings.OnPaymentSucceeded(ctx, confirmed.ID, "PAY-2")
	require.NoError(t, err)
	_, err = e.bookings.OnPaymentFailed(ctx, confirmed.ID, "late failure")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("Pending booking needs no refund", func(t *testing.T) {
		e := setupEngineTest(t)
		booking := e.book(t, "U1", "S1", "1A")

		cancelled, err := e.bookings.Cancel(ctx, booking.ID, "U1", "changed plans")
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
		assert.Equal(t, models.PaymentStatusPending, cancelled.PaymentStatus)

		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, e.refunds.Requests())

		_, err = e.holds.Reserve(ctx, "S1", []string{"1A"}, "U2", 0)
		assert.NoError(t, err, "seat released")
	})

	t.Run("Confirmed booking requests refund", func(t *testing.T) {
		e := setupEngineTest(t)
		booking := e.book(t, "U1", "S1", "1A", "1B")
		_, err := e.bookings.OnPaymentSucceeded(ctx, booking.ID, "PAY-1")
		require.NoError(t, err)

		cancelled, err := e.bookings.Cancel(ctx, booking.ID, "U1", "sick")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusRefundPending, cancelled.PaymentStatus)

		assert.Eventually(t, func() bool { return len(e.refunds.Requests()) == 1 }, time.Second, 10*time.Millisecond)
		req := e.refunds.Requests()[0]
		assert.Equal(t, booking.ID, req.BookingID)
		assert.Equal(t, 110.0, req.Amount)
		assert.Equal(t, "PAY-1", req.PaymentReference)
	})

	t.Run("Already cancelled", func(t *testing.T) {
		e := setupEngineTest(t)
		booking := e.book(t, "U1", "S1", "1A")
		_, err := e.bookings.Cancel(ctx, booking.ID, "U1", "")
		require.NoError(t, err)

		_, err = e.bookings.Cancel(ctx, booking.ID, "U1", "")
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
	})

	t.Run("Already completed", func(t *testing.T) {
		e := setupEngineTest(t)
		booking := e.book(t, "U1", "S1", "1A")
		_, err := e.bookings.OnPaymentSucceeded(ctx, booking.ID, "PAY-1")
		require.NoError(t, err)
		_, err = e.bookings.UpdateStatus(ctx, booking.ID, models.BookingStatusCompleted, nil)
		require.NoError(t, err)

		_, err = e.bookings.Cancel(ctx, booking.ID, "U1", "")
		assert.ErrorIs(t, err, ErrAlreadyCompleted)
	})

	t.Run("Expired pending booking", func(t *testing.T) {
		e := setupEngineTest(t)
		booking := e.book(t, "U1", "S1", "1A")
		e.clock.Advance(31 * time.Minute)

		_, err := e.bookings.Cancel(ctx, booking.ID, "U1", "")
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
	})

	t.Run("Not owner", func(t *testing.T) {
		e := setupEngineTest(t)
		booking := e.book(t, "U1", "S1", "1A")

		_, err := e.bookings.Cancel(ctx, booking.ID, "U2", "")
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("Unknown booking", func(t *testing.T) {
		e := setupEngineTest(t)
		_, err := e.bookings.Cancel(ctx, uuid.New(), "U1", "")
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})
}

func TestUpdateStatus_TransitionLegality(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup []models.BookingStatus
		to    models.BookingStatus
		valid bool
	}{
		{"Pending to confirmed", nil, models.BookingStatusConfirmed, true},
		{"Pending to cancelled", nil, models.BookingStatusCancelled, true},
		{"Pending to completed", nil, models.BookingStatusCompleted, false},
		{"Pending to pending", nil, models.BookingStatusPending, false},
		{"Confirmed to completed", []models.BookingStatus{models.BookingStatusConfirmed}, models.BookingStatusCompleted, true},
		{"Confirmed to cancelled", []models.BookingStatus{models.BookingStatusConfirmed}, models.BookingStatusCancelled, true},
		{"Confirmed to pending", []models.BookingStatus{models.BookingStatusConfirmed}, models.BookingStatusPending, false},
		{"Cancelled to confirmed", []models.BookingStatus{models.BookingStatusCancelled}, models.BookingStatusConfirmed, false},
		{"Cancelled to pending", []models.BookingStatus{models.BookingStatusCancelled}, models.BookingStatusPending, false},
		{"Completed to pending", []models.BookingStatus{models.BookingStatusConfirmed, models.BookingStatusCompleted}, models.BookingStatusPending, false},
		{"Completed to cancelled", []models.BookingStatus{models.BookingStatusConfirmed, models.BookingStatusCompleted}, models.BookingStatusCancelled, false},
		{"Completed to confirmed", []models.BookingStatus{models.BookingStatusConfirmed, models.BookingStatusCompleted}, models.BookingStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setupEngineTest(t)
			booking := e.book(t, "U1", "S1", "1A")
			for _, status := range tt.setup {
				_, err := e.bookings.UpdateStatus(ctx, booking.ID, status, &models.OutcomeData{PaymentReference: "PAY-1"})
				require.NoError(t, err)
			}

			before, err := e.store.GetBooking(ctx, booking.ID)
			require.NoError(t, err)

			updated, err := e.bookings.UpdateStatus(ctx, booking.ID, tt.to, nil)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.to, updated.Status)
				return
			}

			assert.ErrorIs(t, err, ErrInvalidTransition)
			after, err := e.store.GetBooking(ctx, booking.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestUpdateStatus_ReconfirmIsNoop(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()
	booking := e.book(t, "U1", "S1", "1A")

	first, err := e.bookings.UpdateStatus(ctx, booking.ID, models.BookingStatusConfirmed, &models.OutcomeData{PaymentReference: "PAY-1"})
	require.NoError(t, err)

	second, err := e.bookings.UpdateStatus(ctx, booking.ID, models.BookingStatusConfirmed, &models.OutcomeData{PaymentReference: "PAY-2"})
	require.NoError(t, err)
	assert.Equal(t, *first.BoardingToken, *second.BoardingToken)
	assert.Equal(t, "PAY-1", *second.PaymentReference)
}

func TestUpdateStatus_CancelWithRefundAmount(t *testing.T) {
	ctx := context.Background()

	t.Run("Partial refund requested", func(t *testing.T) {
		e := setupEngineTest(t)
		booking := e.book(t, "U1", "S1", "1A", "1B")
		_, err := e.bookings.OnPaymentSucceeded(ctx, booking.ID, "PAY-1")
		require.NoError(t, err)

		cancelled, err := e.bookings.UpdateStatus(ctx, booking.ID, models.BookingStatusCancelled,
			&models.OutcomeData{Reason: "late cancellation fee", RefundAmount: price(80)})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusRefundPending, cancelled.PaymentStatus)

		assert.Eventually(t, func() bool { return len(e.refunds.Requests()) == 1 }, time.Second, 10*time.Millisecond)
		req := e.refunds.Requests()[0]
		assert.Equal(t, 80.0, req.Amount)
		assert.Equal(t, "late cancellation fee", req.Reason)
	})

	rejections := []struct {
		name   string
		paid   bool
		status models.BookingStatus
		amount float64
	}{
		{"More than the total", true, models.BookingStatusCancelled, 111},
		{"Not positive", true, models.BookingStatusCancelled, 0},
		{"Nothing captured", false, models.BookingStatusCancelled, 10},
		{"Not a cancellation", true, models.BookingStatusCompleted, 10},
	}
	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			e := setupEngineTest(t)
			booking := e.book(t, "U1", "S1", "1A", "1B")
			if tt.paid {
				_, err := e.bookings.OnPaymentSucceeded(ctx, booking.ID, "PAY-1")
				require.NoError(t, err)
			}
			before, err := e.store.GetBooking(ctx, booking.ID)
			require.NoError(t, err)

			_, err = e.bookings.UpdateStatus(ctx, booking.ID, tt.status, &models.OutcomeData{RefundAmount: price(tt.amount)})
			assert.ErrorIs(t, err, ErrInvalidRequest)

			after, err := e.store.GetBooking(ctx, booking.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
			assert.Empty(t, e.refunds.Requests())
		})
	}
}

func TestOnRefundCompleted(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()
	booking := e.book(t, "U1", "S1", "1A")

	_, err := e.bookings.OnRefundCompleted(ctx, booking.ID, 45)
	assert.ErrorIs(t, err, ErrInvalidTransition, "nothing was charged")

	_, err = e.bookings.OnPaymentSucceeded(ctx, booking.ID, "PAY-1")
	require.NoError(t, err)
	_, err = e.bookings.Cancel(ctx, booking.ID, "U1", "")
	require.NoError(t, err)

	refunded, err := e.bookings.OnRefundCompleted(ctx, booking.ID, 45)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.PaymentStatus)
	require.NotNil(t, refunded.RefundAmount)
	assert.Equal(t, 45.0, *refunded.RefundAmount)

	_, err = e.bookings.OnRefundCompleted(ctx, booking.ID, 45)
	assert.NoError(t, err, "duplicate refund notice is a no-op")
}

func TestGetBooking(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()
	booking := e.book(t, "U1", "S1", "1A")

	got, err := e.bookings.GetBooking(ctx, booking.ID, "U1")
	require.NoError(t, err)
	assert.Equal(t, booking.Reference, got.Reference)

	_, err = e.bookings.GetBooking(ctx, booking.ID, "U2")
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = e.bookings.GetBooking(ctx, uuid.New(), "U1")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	e.clock.Advance(31 * time.Minute)
	got, err = e.bookings.GetBooking(ctx, booking.ID, "U1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)
}

func TestListBookings(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()

	first := e.book(t, "U1", "S1", "1A")
	e.clock.Advance(time.Minute)
	second := e.book(t, "U1", "S1", "1B")
	e.book(t, "U2", "S1", "1C")

	bookings, err := e.bookings.ListBookings(ctx, "U1", 10, 0)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, second.ID, bookings[0].ID)
	assert.Equal(t, first.ID, bookings[1].ID)

	e.clock.Advance(31 * time.Minute)
	bookings, err = e.bookings.ListBookings(ctx, "U1", 10, 0)
	require.NoError(t, err)
	for _, b := range bookings {
		assert.Equal(t, models.BookingStatusCancelled, b.Status)
	}
}

func TestVerifyBoarding(t *testing.T) {
	e := setupEngineTest(t)
	ctx := context.Background()
	booking := e.book(t, "U1", "S1", "1B", "1A")

	confirmed, err := e.bookings.OnPaymentSucceeded(ctx, booking.ID, "PAY-1")
	require.NoError(t, err)

	result, err := e.bookings.VerifyBoarding(ctx, *confirmed.BoardingToken)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, []string{"1A", "1B"}, result.SeatIDs)

	_, err = e.bookings.VerifyBoarding(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidBoarding)

	_, err = e.bookings.Cancel(ctx, booking.ID, "U1", "")
	require.NoError(t, err)
	_, err = e.bookings.VerifyBoarding(ctx, *confirmed.BoardingToken)
	assert.ErrorIs(t, err, ErrInvalidBoarding)
}
