package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// InitialiseSchema creates the hold and booking tables if they do not exist.
// Schedule tables (scheduled_trips, trip_seats) belong to the catalog and are not managed here.
func InitialiseSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS seat_holds (
		id          UUID PRIMARY KEY,
		schedule_id TEXT NOT NULL,
		seat_ids    TEXT[] NOT NULL,
		owner_id    TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		expires_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_seat_holds_schedule ON seat_holds (schedule_id)`,
	`CREATE INDEX IF NOT EXISTS idx_seat_holds_expires_at ON seat_holds (expires_at)`,
	`CREATE TABLE IF NOT EXISTS seat_bookings (
		id                  UUID PRIMARY KEY,
		booking_reference   TEXT NOT NULL UNIQUE,
		owner_id            TEXT NOT NULL,
		schedule_id         TEXT NOT NULL,
		bus_id              TEXT NOT NULL DEFAULT '',
		route_name          TEXT NOT NULL DEFAULT '',
		passengers          JSONB NOT NULL,
		seat_ids            TEXT[] NOT NULL,
		total_amount        NUMERIC(12,2) NOT NULL,
		currency            TEXT NOT NULL,
		status              TEXT NOT NULL,
		payment_status      TEXT NOT NULL,
		payment_reference   TEXT,
		departure_time      TIMESTAMPTZ NOT NULL,
		arrival_time        TIMESTAMPTZ NOT NULL,
		expires_at          TIMESTAMPTZ,
		boarding_token      TEXT,
		cancellation_reason TEXT,
		confirmed_at        TIMESTAMPTZ,
		cancelled_at        TIMESTAMPTZ,
		completed_at        TIMESTAMPTZ,
		refund_amount       NUMERIC(12,2),
		refunded_at         TIMESTAMPTZ,
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_seat_bookings_schedule_status ON seat_bookings (schedule_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_seat_bookings_pending_expiry ON seat_bookings (expires_at) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_seat_bookings_owner ON seat_bookings (owner_id, created_at DESC)`,
}
