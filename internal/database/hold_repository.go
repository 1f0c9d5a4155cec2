package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/seat-booking-engine/internal/models"
)

// PostgresStore is the durable InventoryStore backed by the seat_holds and
// seat_bookings tables
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const holdColumns = `id, schedule_id, seat_ids, owner_id, created_at, expires_at`

// ============================================================================
// SEAT HOLD OPERATIONS
// ============================================================================

// CreateHold inserts a new hold
func (s *PostgresStore) CreateHold(ctx context.Context, hold *models.Hold) error {
	query := `
		INSERT INTO seat_holds (` + holdColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		hold.ID, hold.ScheduleID, hold.SeatIDs, hold.Owner, hold.CreatedAt, hold.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create hold: %w", err)
	}
	return nil
}

// GetHold retrieves a hold by ID
func (s *PostgresStore) GetHold(ctx context.Context, id uuid.UUID) (*models.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM seat_holds WHERE id = $1`

	var hold models.Hold
	if err := s.db.GetContext(ctx, &hold, query, id); err != nil {
		return nil, notFoundOr(err, "failed to get hold")
	}
	return &hold, nil
}

// DeleteHold removes a hold, returning ErrNotFound if it is already gone
func (s *PostgresStore) DeleteHold(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM seat_holds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete hold: %w", err)
	}
	return requireAffected(result)
}

// ListHoldsBySchedule returns every stored hold of a schedule, expired or not
func (s *PostgresStore) ListHoldsBySchedule(ctx context.Context, scheduleID string) ([]*models.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM seat_holds WHERE schedule_id = $1`

	var holds []*models.Hold
	if err := s.db.SelectContext(ctx, &holds, query, scheduleID); err != nil {
		return nil, fmt.Errorf("failed to list holds: %w", err)
	}
	return holds, nil
}

// ListExpiredHolds returns holds past their expiry, oldest first
func (s *PostgresStore) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*models.Hold, error) {
	query := `
		SELECT ` + holdColumns + `
		FROM seat_holds
		WHERE expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`

	var holds []*models.Hold
	if err := s.db.SelectContext(ctx, &holds, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to list expired holds: %w", err)
	}
	return holds, nil
}

// DeleteExpiredHolds removes every expired hold of a schedule
func (s *PostgresStore) DeleteExpiredHolds(ctx context.Context, scheduleID string, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE schedule_id = $1 AND expires_at < $2`,
		scheduleID, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired holds: %w", err)
	}
	return result.RowsAffected()
}
