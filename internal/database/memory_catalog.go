package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/smarttransit/seat-booking-engine/internal/models"
)

// MemoryCatalog is a ScheduleCatalog held in memory, used for development and tests
type MemoryCatalog struct {
	mu        sync.RWMutex
	schedules map[string]*models.Schedule
}

// NewMemoryCatalog creates a catalog seeded with the given schedules
func NewMemoryCatalog(schedules ...*models.Schedule) *MemoryCatalog {
	c := &MemoryCatalog{schedules: make(map[string]*models.Schedule)}
	for _, s := range schedules {
		c.Put(s)
	}
	return c
}

// LoadMemoryCatalog reads a JSON array of schedules from path
func LoadMemoryCatalog(path string) (*MemoryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog seed file: %w", err)
	}

	var schedules []*models.Schedule
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, fmt.Errorf("failed to parse catalog seed file: %w", err)
	}

	return NewMemoryCatalog(schedules...), nil
}

// Put adds or replaces a schedule
func (c *MemoryCatalog) Put(schedule *models.Schedule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if schedule.TotalSeats == 0 {
		schedule.TotalSeats = len(schedule.Seats)
	}
	c.schedules[schedule.ID] = schedule
}

// GetSchedule returns a copy of the schedule
func (c *MemoryCatalog) GetSchedule(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	schedule, ok := c.schedules[scheduleID]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *schedule
	copied.Seats = append([]models.Seat(nil), schedule.Seats...)
	return &copied, nil
}
