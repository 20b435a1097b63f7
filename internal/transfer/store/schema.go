package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the transfer store's DDL. Applied idempotently at startup and by
// integration tests; the catalog tables live here too since the pilot runs
// both stores against one database.
const Schema = `
CREATE TABLE IF NOT EXISTS districts (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	population  INTEGER NOT NULL DEFAULT 0,
	type        TEXT NOT NULL DEFAULT 'mixed',
	lat         DOUBLE PRECISION NOT NULL DEFAULT 0,
	lng         DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS medicines (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	category        TEXT NOT NULL DEFAULT '',
	unit            TEXT NOT NULL DEFAULT '',
	shelf_life_days INTEGER NOT NULL DEFAULT 0,
	cold_chain      BOOLEAN NOT NULL DEFAULT FALSE,
	units_per_case  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS transfers (
	id                    TEXT PRIMARY KEY,
	medicine_id           TEXT NOT NULL,
	quantity              INTEGER NOT NULL CHECK (quantity > 0),
	from_district_id      TEXT NOT NULL,
	to_district_id        TEXT NOT NULL CHECK (to_district_id <> from_district_id),
	status                TEXT NOT NULL,
	priority              TEXT NOT NULL DEFAULT 'normal',
	created_at            TIMESTAMPTZ NOT NULL,
	created_by            TEXT NOT NULL,
	sender_signature      TEXT NOT NULL,
	sender_notes          TEXT,
	pickup_at             TIMESTAMPTZ,
	transporter_id        TEXT,
	transporter_signature TEXT,
	pickup_lat            DOUBLE PRECISION,
	pickup_lng            DOUBLE PRECISION,
	expected_delivery_at  TIMESTAMPTZ,
	delivered_at          TIMESTAMPTZ,
	receiver_id           TEXT,
	receiver_signature    TEXT,
	received_quantity     INTEGER,
	delivery_lat          DOUBLE PRECISION,
	delivery_lng          DOUBLE PRECISION,
	receiver_notes        TEXT,
	verification_hash     TEXT,
	is_verified           BOOLEAN NOT NULL DEFAULT FALSE,
	verified_at           TIMESTAMPTZ,
	has_discrepancy       BOOLEAN NOT NULL DEFAULT FALSE,
	discrepancy_type      TEXT,
	discrepancy_notes     TEXT
);

CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfers (status);
CREATE INDEX IF NOT EXISTS idx_transfers_created_at ON transfers (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transfers_discrepancy ON transfers (has_discrepancy) WHERE has_discrepancy;

CREATE TABLE IF NOT EXISTS transfer_items (
	transfer_id          TEXT NOT NULL REFERENCES transfers (id),
	batch_qr_code        TEXT NOT NULL UNIQUE,
	batch_id             TEXT NOT NULL,
	quantity             INTEGER NOT NULL CHECK (quantity > 0),
	expiry_date          TIMESTAMPTZ,
	scanned_at_sender    BOOLEAN NOT NULL DEFAULT FALSE,
	sender_scan_time     TIMESTAMPTZ,
	scanned_at_receiver  BOOLEAN NOT NULL DEFAULT FALSE,
	receiver_scan_time   TIMESTAMPTZ,
	condition_on_receipt TEXT,
	PRIMARY KEY (transfer_id, batch_qr_code)
);
`

// ApplySchema creates the tables if they do not exist.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply transfer schema: %w", err)
	}
	return nil
}
