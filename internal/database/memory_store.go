package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/seat-booking-engine/internal/models"
)

// MemoryStore is an in-process InventoryStore. Every method copies records in
// and out so callers never share memory with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	holds      map[uuid.UUID]*models.Hold
	bookings   map[uuid.UUID]*models.Booking
	references map[string]uuid.UUID
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		holds:      make(map[uuid.UUID]*models.Hold),
		bookings:   make(map[uuid.UUID]*models.Booking),
		references: make(map[string]uuid.UUID),
	}
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ============================================================================
// HOLDS
// ============================================================================

func (s *MemoryStore) CreateHold(ctx context.Context, hold *models.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.holds[hold.ID] = hold.Clone()
	return nil
}

func (s *MemoryStore) GetHold(ctx context.Context, id uuid.UUID) (*models.Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hold, ok := s.holds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return hold.Clone(), nil
}

func (s *MemoryStore) DeleteHold(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.holds[id]; !ok {
		return ErrNotFound
	}
	delete(s.holds, id)
	return nil
}

func (s *MemoryStore) ListHoldsBySchedule(ctx context.Context, scheduleID string) ([]*models.Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var holds []*models.Hold
	for _, hold := range s.holds {
		if hold.ScheduleID == scheduleID {
			holds = append(holds, hold.Clone())
		}
	}
	return holds, nil
}

func (s *MemoryStore) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*models.Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var holds []*models.Hold
	for _, hold := range s.holds {
		if hold.IsExpired(now) {
			holds = append(holds, hold.Clone())
		}
	}
	sort.Slice(holds, func(i, j int) bool { return holds[i].ExpiresAt.Before(holds[j].ExpiresAt) })
	if limit > 0 && len(holds) > limit {
		holds = holds[:limit]
	}
	return holds, nil
}

func (s *MemoryStore) DeleteExpiredHolds(ctx context.Context, scheduleID string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, hold := range s.holds {
		if hold.ScheduleID == scheduleID && hold.IsExpired(now) {
			delete(s.holds, id)
			deleted++
		}
	}
	return deleted, nil
}

// ============================================================================
// BOOKINGS
// ============================================================================

func (s *MemoryStore) CreateBooking(ctx context.Context, booking *models.Booking, consumedHoldID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if consumedHoldID != nil {
		if _, ok := s.holds[*consumedHoldID]; !ok {
			return ErrNotFound
		}
		delete(s.holds, *consumedHoldID)
	}

	s.bookings[booking.ID] = booking.Clone()
	s.references[booking.Reference] = booking.ID
	return nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return booking.Clone(), nil
}

func (s *MemoryStore) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.references[reference]
	if !ok {
		return nil, ErrNotFound
	}
	return s.bookings[id].Clone(), nil
}

func (s *MemoryStore) UpdateBooking(ctx context.Context, booking *models.Booking, prev models.BookingRevision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bookings[booking.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != prev.Status || !current.UpdatedAt.Equal(prev.UpdatedAt) {
		return ErrConflict
	}
	s.bookings[booking.ID] = booking.Clone()
	return nil
}

func (s *MemoryStore) ListActiveBookingsBySchedule(ctx context.Context, scheduleID string) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []*models.Booking
	for _, booking := range s.bookings {
		if booking.ScheduleID == scheduleID && booking.Status.IsActive() {
			bookings = append(bookings, booking.Clone())
		}
	}
	return bookings, nil
}

func (s *MemoryStore) ListExpiredPendingBookings(ctx context.Context, now time.Time, limit int) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []*models.Booking
	for _, booking := range s.bookings {
		if booking.IsPaymentExpired(now) {
			bookings = append(bookings, booking.Clone())
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ExpiresAt.Before(*bookings[j].ExpiresAt) })
	if limit > 0 && len(bookings) > limit {
		bookings = bookings[:limit]
	}
	return bookings, nil
}

func (s *MemoryStore) ListBookingsByOwner(ctx context.Context, owner string, limit, offset int) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []*models.Booking
	for _, booking := range s.bookings {
		if booking.Owner == owner {
			bookings = append(bookings, booking.Clone())
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].CreatedAt.After(bookings[j].CreatedAt) })

	if offset >= len(bookings) {
		return nil, nil
	}
	bookings = bookings[offset:]
	if limit > 0 && len(bookings) > limit {
		bookings = bookings[:limit]
	}
	return bookings, nil
}
