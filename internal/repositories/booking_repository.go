package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intconfig "rentcore/internal/config"
	intdb "rentcore/internal/db"
	"rentcore/internal/domain"
	"rentcore/internal/domain/models"
)

type BookingRepository struct {
	DB *sql.DB
}

func (r BookingRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const bookingColumns = `id, payment_agreement_id, renter_id, start_date, end_date, monthly_rent_cents, status, created_at`

func scanBooking(row *sql.Row) (models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.PaymentAgreementID, &b.RenterID, &b.StartDate, &b.EndDate, &b.MonthlyRentCents, &b.Status, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("scan booking: %w", err)
	}
	return b, nil
}

func (r BookingRepository) GetByID(ctx context.Context, id int64) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "booking_id", Msg: "invalid id"}
	}
	return scanBooking(r.db().QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? LIMIT 1`, id))
}

func (r BookingRepository) GetByAgreementID(ctx context.Context, agreementID int64) (models.Booking, error) {
	return scanBooking(r.db().QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE payment_agreement_id = ? LIMIT 1`, agreementID))
}

// CreateWithSchedule inserts the booking and its installments in one
// transaction. A second writer for the same agreement hits the UNIQUE key on
// payment_agreement_id and gets a ConflictError; nothing is written for it.
func (r BookingRepository) CreateWithSchedule(ctx context.Context, b models.Booking, payments []models.RentPayment) (models.Booking, error) {
	err := intdb.WithTx(ctx, r.db(), func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (payment_agreement_id, renter_id, start_date, end_date, monthly_rent_cents, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.PaymentAgreementID, b.RenterID, b.StartDate, b.EndDate, b.MonthlyRentCents, b.Status, b.CreatedAt,
		)
		if intdb.IsDuplicateKey(err) {
			return domain.ConflictError{Resource: "booking", Msg: "already exists for agreement", Err: err}
		}
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("booking id: %w", err)
		}
		b.ID = id

		for _, p := range payments {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO rent_payments (booking_id, amount_cents, service_fee_cents, due_date, instrument_id, authorized_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				id, p.AmountCents, p.ServiceFeeCents, p.DueDate, intdb.NullIfEmpty(p.InstrumentID), intdb.NullTime(p.AuthorizedAt),
			); err != nil {
				return fmt.Errorf("insert rent payment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return models.Booking{}, err
	}
	return b, nil
}

func (r BookingRepository) ListPayments(ctx context.Context, bookingID int64) ([]models.RentPayment, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT id, booking_id, amount_cents, service_fee_cents, due_date, COALESCE(instrument_id, ''), authorized_at
		FROM rent_payments WHERE booking_id = ? ORDER BY due_date`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list rent payments: %w", err)
	}
	defer rows.Close()

	var out []models.RentPayment
	for rows.Next() {
		var p models.RentPayment
		var authorized sql.NullTime
		if err := rows.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.ServiceFeeCents, &p.DueDate, &p.InstrumentID, &authorized); err != nil {
			return nil, fmt.Errorf("scan rent payment: %w", err)
		}
		p.AuthorizedAt = intdb.TimePtr(authorized)
		out = append(out, p)
	}
	return out, rows.Err()
}
