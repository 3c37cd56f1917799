package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

var tables = []struct {
	name string
	ddl  string
}{
	{"clients", `
CREATE TABLE IF NOT EXISTS clients (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	company_name VARCHAR(255) NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(100) NULL,
	address VARCHAR(500) NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_client_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"users", `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(32) NOT NULL,
	client_id BIGINT NULL,
	status VARCHAR(32) NOT NULL DEFAULT 'active',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_user_email (email),
	CONSTRAINT fk_users_client FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"shipments", `
CREATE TABLE IF NOT EXISTS shipments (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	tracking_number VARCHAR(64) NOT NULL,
	client_id BIGINT NOT NULL,
	origin_port VARCHAR(255) NOT NULL,
	destination_port VARCHAR(255) NOT NULL,
	weight DOUBLE NOT NULL,
	volume DOUBLE NULL,
	value DECIMAL(14,2) NOT NULL,
	currency CHAR(3) NOT NULL,
	total_cost DECIMAL(14,2) NOT NULL,
	additional_charges DECIMAL(14,2) NOT NULL DEFAULT 0,
	admin_amount_paid DECIMAL(14,2) NOT NULL DEFAULT 0,
	status VARCHAR(32) NOT NULL,
	payment_status VARCHAR(16) NOT NULL,
	container_number VARCHAR(11) NULL,
	bl_number VARCHAR(64) NULL,
	booking_number VARCHAR(64) NULL,
	enable_tracking TINYINT(1) NOT NULL DEFAULT 1,
	vessel_name VARCHAR(255) NULL,
	vessel_mmsi VARCHAR(32) NULL,
	vessel_imo VARCHAR(32) NULL,
	current_location VARCHAR(255) NULL,
	warehouse_location VARCHAR(255) NULL,
	warehouse_condition VARCHAR(64) NULL,
	delivered_at DATETIME NULL,
	notes TEXT NULL,
	version BIGINT NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE KEY uniq_tracking_number (tracking_number),
	KEY idx_client (client_id),
	KEY idx_status (status),
	CONSTRAINT fk_shipments_client FOREIGN KEY (client_id) REFERENCES clients(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"shipment_payments", `
CREATE TABLE IF NOT EXISTS shipment_payments (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	shipment_id BIGINT NOT NULL,
	amount DECIMAL(14,2) NOT NULL,
	currency CHAR(3) NOT NULL,
	method VARCHAR(32) NOT NULL,
	payment_date DATETIME NOT NULL,
	reference_number VARCHAR(128) NULL,
	notes TEXT NULL,
	recorded_by BIGINT NOT NULL,
	created_at DATETIME NOT NULL,
	KEY idx_payment_shipment (shipment_id),
	CONSTRAINT fk_payments_shipment FOREIGN KEY (shipment_id) REFERENCES shipments(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"shipment_updates", `
CREATE TABLE IF NOT EXISTS shipment_updates (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	shipment_id BIGINT NOT NULL,
	update_type VARCHAR(32) NOT NULL,
	previous_value VARCHAR(255) NOT NULL DEFAULT '',
	new_value VARCHAR(255) NOT NULL DEFAULT '',
	location VARCHAR(255) NULL,
	notes TEXT NULL,
	actor_id BIGINT NOT NULL,
	actor_role VARCHAR(32) NOT NULL,
	created_at DATETIME(6) NOT NULL,
	KEY idx_update_shipment (shipment_id, id),
	CONSTRAINT fk_updates_shipment FOREIGN KEY (shipment_id) REFERENCES shipments(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
}

// EnsureSchema creates missing tables and backfills columns added after the first release.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	for _, t := range tables {
		if HasTable(ctx, db, t.name) {
			continue
		}
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
		log.Printf("[DB] created table %s", t.name)
	}

	// Older deployments predate the optimistic-locking counter and the legacy paid field.
	if !HasColumn(ctx, db, "shipments", "version") {
		if _, err := db.ExecContext(ctx, `ALTER TABLE shipments ADD COLUMN version BIGINT NOT NULL DEFAULT 1`); err != nil {
			return fmt.Errorf("add shipments.version: %w", err)
		}
	}
	if !HasColumn(ctx, db, "shipments", "admin_amount_paid") {
		if _, err := db.ExecContext(ctx, `ALTER TABLE shipments ADD COLUMN admin_amount_paid DECIMAL(14,2) NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("add shipments.admin_amount_paid: %w", err)
		}
	}
	return nil
}
