package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	intconfig "rentcore/internal/config"
	intdb "rentcore/internal/db"
	"rentcore/internal/domain"
	"rentcore/internal/domain/models"
)

// Signing parties.
const (
	PartyLandlord = "landlord"
	PartyTenant   = "tenant"
)

type AgreementRepository struct {
	DB *sql.DB
}

// PaymentUpdate is what gets persisted after a successful authorization.
type PaymentUpdate struct {
	InstrumentID string
	IntentID     string
	Status       string
	AuthorizedAt time.Time
	CapturedAt   *time.Time
}

func (r AgreementRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r AgreementRepository) GetByID(ctx context.Context, id int64) (models.PaymentAgreement, error) {
	if id <= 0 {
		return models.PaymentAgreement{}, domain.ValidationError{Field: "agreement_id", Msg: "invalid id"}
	}

	var a models.PaymentAgreement
	var authorized, captured, landlord, tenant sql.NullTime
	err := r.db().QueryRowContext(ctx, `
		SELECT id, listing_id, trip_id, host_id, renter_id, start_date, end_date, monthly_rent_cents,
			COALESCE(payment_instrument_id, ''), COALESCE(payment_intent_id, ''), payment_status,
			authorized_at, captured_at, landlord_signed_at, tenant_signed_at
		FROM payment_agreements WHERE id = ? LIMIT 1`, id).Scan(
		&a.ID, &a.ListingID, &a.TripID, &a.HostID, &a.RenterID, &a.StartDate, &a.EndDate, &a.MonthlyRentCents,
		&a.PaymentInstrumentID, &a.PaymentIntentID, &a.PaymentStatus,
		&authorized, &captured, &landlord, &tenant,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PaymentAgreement{}, domain.NotFoundError{Resource: "payment agreement", Err: err}
	}
	if err != nil {
		return models.PaymentAgreement{}, fmt.Errorf("select payment agreement: %w", err)
	}
	a.AuthorizedAt = intdb.TimePtr(authorized)
	a.CapturedAt = intdb.TimePtr(captured)
	a.LandlordSignedAt = intdb.TimePtr(landlord)
	a.TenantSignedAt = intdb.TimePtr(tenant)
	return a, nil
}

// MarkAuthorized persists the authorization only while the agreement is still
// unpaid. It returns false when another request got there first.
func (r AgreementRepository) MarkAuthorized(ctx context.Context, id int64, u PaymentUpdate) (bool, error) {
	res, err := r.db().ExecContext(ctx, `
		UPDATE payment_agreements
		SET payment_instrument_id = ?, payment_intent_id = ?, payment_status = ?, authorized_at = ?, captured_at = ?
		WHERE id = ? AND payment_status = ?`,
		u.InstrumentID, u.IntentID, u.Status, u.AuthorizedAt, intdb.NullTime(u.CapturedAt),
		id, models.PaymentStatusNone,
	)
	if err != nil {
		return false, fmt.Errorf("mark authorized: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark authorized: %w", err)
	}
	return n == 1, nil
}

// MarkCaptured moves an authorized agreement to captured.
func (r AgreementRepository) MarkCaptured(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := r.db().ExecContext(ctx, `
		UPDATE payment_agreements SET payment_status = ?, captured_at = ?
		WHERE id = ? AND payment_status = ? AND authorized_at IS NOT NULL`,
		models.PaymentStatusCaptured, at, id, models.PaymentStatusAuthorized,
	)
	if err != nil {
		return false, fmt.Errorf("mark captured: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark captured: %w", err)
	}
	return n == 1, nil
}

// MarkSigned stamps the party's signature time if it is not already set.
func (r AgreementRepository) MarkSigned(ctx context.Context, id int64, party string, at time.Time) (bool, error) {
	var column string
	switch party {
	case PartyLandlord:
		column = "landlord_signed_at"
	case PartyTenant:
		column = "tenant_signed_at"
	default:
		return false, domain.ValidationError{Field: "party", Msg: "unknown signing party"}
	}

	res, err := r.db().ExecContext(ctx,
		`UPDATE payment_agreements SET `+column+` = ? WHERE id = ? AND `+column+` IS NULL`, at, id)
	if err != nil {
		return false, fmt.Errorf("mark signed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark signed: %w", err)
	}
	return n == 1, nil
}

// SignatureStatus reports which parties have signed the lease.
func (r AgreementRepository) SignatureStatus(ctx context.Context, id int64) (bool, bool, error) {
	var landlord, tenant sql.NullTime
	err := r.db().QueryRowContext(ctx,
		`SELECT landlord_signed_at, tenant_signed_at FROM payment_agreements WHERE id = ? LIMIT 1`, id,
	).Scan(&landlord, &tenant)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, domain.NotFoundError{Resource: "payment agreement", Err: err}
	}
	if err != nil {
		return false, false, fmt.Errorf("select signatures: %w", err)
	}
	return landlord.Valid, tenant.Valid, nil
}
