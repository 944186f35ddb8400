package config

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema holds the tables owned by the orchestration core. The UNIQUE keys on
// screening_records.purchase_credit_id and bookings.payment_agreement_id are
// what make the find-or-create paths safe under concurrent requests.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL DEFAULT '',
		role VARCHAR(32) NOT NULL DEFAULT 'renter',
		processor_customer_id VARCHAR(64) NULL,
		payout_account_id VARCHAR(64) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_processor_customer (processor_customer_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS purchase_credits (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		kind VARCHAR(32) NOT NULL,
		is_redeemed TINYINT(1) NOT NULL DEFAULT 0,
		payment_intent_id VARCHAR(64) NULL,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		KEY idx_purchase_credits_owner (owner_id, is_redeemed, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS screening_records (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		purchase_credit_id BIGINT NOT NULL,
		status VARCHAR(32) NOT NULL,
		subject_first_name VARCHAR(128) NOT NULL,
		subject_last_name VARCHAR(128) NOT NULL,
		credit_bucket VARCHAR(32) NULL,
		vendor_order_number VARCHAR(64) NULL,
		last_error_kind VARCHAR(64) NULL,
		attempts INT NOT NULL DEFAULT 1,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_screening_records_credit (purchase_credit_id),
		KEY idx_screening_records_owner (owner_id, created_at),
		KEY idx_screening_records_order (vendor_order_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS screening_audit_events (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		screening_record_id BIGINT NOT NULL,
		event VARCHAR(64) NOT NULL,
		detail JSON NULL,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		KEY idx_screening_audit_record (screening_record_id, id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payment_agreements (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		listing_id BIGINT NOT NULL,
		trip_id BIGINT NOT NULL,
		host_id BIGINT NOT NULL,
		renter_id BIGINT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		monthly_rent_cents BIGINT NOT NULL,
		payment_instrument_id VARCHAR(64) NULL,
		payment_intent_id VARCHAR(64) NULL,
		payment_status VARCHAR(16) NOT NULL DEFAULT 'none',
		authorized_at DATETIME(3) NULL,
		captured_at DATETIME(3) NULL,
		landlord_signed_at DATETIME(3) NULL,
		tenant_signed_at DATETIME(3) NULL,
		UNIQUE KEY uq_payment_agreements_trip (listing_id, trip_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		payment_agreement_id BIGINT NOT NULL,
		renter_id BIGINT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		monthly_rent_cents BIGINT NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_bookings_agreement (payment_agreement_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS rent_payments (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		booking_id BIGINT NOT NULL,
		amount_cents BIGINT NOT NULL,
		service_fee_cents BIGINT NOT NULL,
		due_date DATE NOT NULL,
		instrument_id VARCHAR(64) NULL,
		authorized_at DATETIME(3) NULL,
		UNIQUE KEY uq_rent_payments_due (booking_id, due_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Tables lists every table Schema creates.
var Tables = []string{
	"users",
	"purchase_credits",
	"screening_records",
	"screening_audit_events",
	"payment_agreements",
	"bookings",
	"rent_payments",
}

// ApplySchema creates any missing tables.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
