package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors pkg/migrate/migrations for single-node and test deployments.
// SQLite has no row locks, so callers must serialize writers on one connection.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL UNIQUE,
		balance_cents INTEGER NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
		escrow_held_cents INTEGER NOT NULL DEFAULT 0 CHECK (escrow_held_cents >= 0),
		payout_held_cents INTEGER NOT NULL DEFAULT 0 CHECK (payout_held_cents >= 0),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_entries (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL REFERENCES wallets(id),
		owner_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount_cents INTEGER NOT NULL CHECK (amount_cents > 0),
		balance_delta_cents INTEGER NOT NULL DEFAULT 0,
		escrow_delta_cents INTEGER NOT NULL DEFAULT 0,
		payout_delta_cents INTEGER NOT NULL DEFAULT 0,
		reference_type TEXT,
		reference_id TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		price_cents INTEGER NOT NULL CHECK (price_cents > 0),
		available BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		listing_id TEXT NOT NULL UNIQUE REFERENCES listings(id),
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		amount_cents INTEGER NOT NULL CHECK (amount_cents > 0),
		fee_cents INTEGER NOT NULL,
		net_amount_cents INTEGER NOT NULL,
		status TEXT NOT NULL,
		shipment_status TEXT NOT NULL,
		payment_method TEXT NOT NULL DEFAULT 'CARD',
		payment_ref TEXT UNIQUE,
		tracking_number TEXT,
		buyer_confirmed BOOLEAN NOT NULL DEFAULT 0,
		confirmed_at DATETIME,
		funds_released BOOLEAN NOT NULL DEFAULT 0,
		released_at DATETIME,
		shipped_at DATETIME,
		delivered_at DATETIME,
		completed_at DATETIME,
		cancelled_at DATETIME,
		refunded_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CHECK (fee_cents >= 0 AND fee_cents < amount_cents),
		CHECK (net_amount_cents = amount_cents - fee_cents)
	)`,
	`CREATE TABLE IF NOT EXISTS disputes (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions(id),
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'OPEN',
		decision TEXT,
		resolution TEXT,
		resolved_by TEXT,
		resolved_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_disputes_one_open_per_transaction ON disputes (transaction_id) WHERE status = 'OPEN'`,
	`CREATE TABLE IF NOT EXISTS payout_requests (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		amount_cents INTEGER NOT NULL CHECK (amount_cents > 0),
		method TEXT NOT NULL,
		details TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		review_note TEXT,
		reviewed_by TEXT,
		resolved_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		recipient_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		entity_id TEXT,
		read_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME NOT NULL
	)`,
}

// EnsureSQLiteSchema creates the escrow tables on a SQLite connection.
func EnsureSQLiteSchema(ctx context.Context, conn *gorm.DB) error {
	for _, stmt := range sqliteSchema {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
