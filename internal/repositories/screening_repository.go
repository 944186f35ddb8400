package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	intconfig "rentcore/internal/config"
	intdb "rentcore/internal/db"
	"rentcore/internal/domain"
	"rentcore/internal/domain/models"
)

type ScreeningRepository struct {
	DB *sql.DB
}

// ScreeningUpdate carries a stage transition. Nil pointers leave the column untouched.
type ScreeningUpdate struct {
	Status            string
	CreditBucket      *string
	VendorOrderNumber *string
	LastErrorKind     string
}

func (r ScreeningRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const screeningColumns = `id, owner_id, purchase_credit_id, status, subject_first_name, subject_last_name,
	COALESCE(credit_bucket, ''), COALESCE(vendor_order_number, ''), COALESCE(last_error_kind, ''),
	created_at, updated_at`

func scanScreening(row *sql.Row) (models.ScreeningRecord, error) {
	var s models.ScreeningRecord
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.PurchaseCreditID, &s.Status, &s.SubjectFirstName, &s.SubjectLastName,
		&s.CreditBucket, &s.VendorOrderNumber, &s.LastErrorKind, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ScreeningRecord{}, domain.NotFoundError{Resource: "screening record", Err: err}
	}
	if err != nil {
		return models.ScreeningRecord{}, fmt.Errorf("scan screening record: %w", err)
	}
	return s, nil
}

func (r ScreeningRepository) GetByCreditID(ctx context.Context, creditID int64) (models.ScreeningRecord, error) {
	return scanScreening(r.db().QueryRowContext(ctx,
		`SELECT `+screeningColumns+` FROM screening_records WHERE purchase_credit_id = ? LIMIT 1`, creditID))
}

func (r ScreeningRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (models.ScreeningRecord, error) {
	return scanScreening(r.db().QueryRowContext(ctx,
		`SELECT `+screeningColumns+` FROM screening_records WHERE vendor_order_number = ? LIMIT 1`, orderNumber))
}

func (r ScreeningRepository) LatestForOwner(ctx context.Context, ownerID int64) (models.ScreeningRecord, error) {
	return scanScreening(r.db().QueryRowContext(ctx,
		`SELECT `+screeningColumns+` FROM screening_records WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, ownerID))
}

// FindOrCreate returns the record for rec.PurchaseCreditID, inserting it in
// PROCESSING_CREDIT when absent or resetting it in place when present. The
// UNIQUE key on purchase_credit_id is what keeps concurrent callers from
// creating two records; a duplicate-key error on insert falls through to the
// update path. The returned bool reports whether a row was inserted.
func (r ScreeningRepository) FindOrCreate(ctx context.Context, rec models.ScreeningRecord) (models.ScreeningRecord, bool, error) {
	existing, err := r.GetByCreditID(ctx, rec.PurchaseCreditID)
	switch {
	case err == nil:
		return r.resetForRetry(ctx, existing, rec)
	case !domain.IsNotFound(err):
		return models.ScreeningRecord{}, false, err
	}

	res, err := r.db().ExecContext(ctx, `
		INSERT INTO screening_records (owner_id, purchase_credit_id, status, subject_first_name, subject_last_name)
		VALUES (?, ?, ?, ?, ?)`,
		rec.OwnerID, rec.PurchaseCreditID, models.ScreeningProcessingCredit, rec.SubjectFirstName, rec.SubjectLastName,
	)
	if intdb.IsDuplicateKey(err) {
		existing, err := r.GetByCreditID(ctx, rec.PurchaseCreditID)
		if err != nil {
			return models.ScreeningRecord{}, false, err
		}
		return r.resetForRetry(ctx, existing, rec)
	}
	if err != nil {
		return models.ScreeningRecord{}, false, fmt.Errorf("insert screening record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.ScreeningRecord{}, false, fmt.Errorf("screening record id: %w", err)
	}
	rec.ID = id
	rec.Status = models.ScreeningProcessingCredit
	return rec, true, nil
}

// resetForRetry reuses the record for a new attempt. Once the background
// check has been submitted the record is no longer restartable. The attempts
// bump keeps the row changed even when a stuck attempt is retried with the
// same subject, so zero affected rows only means the status guard failed.
func (r ScreeningRepository) resetForRetry(ctx context.Context, existing, rec models.ScreeningRecord) (models.ScreeningRecord, bool, error) {
	if !restartable(existing.Status) {
		return models.ScreeningRecord{}, false, domain.PreconditionFailedError{
			Reason: "screening already submitted for this credit (" + existing.Status + ")",
		}
	}
	res, err := r.db().ExecContext(ctx, `
		UPDATE screening_records
		SET status = ?, subject_first_name = ?, subject_last_name = ?,
			credit_bucket = NULL, vendor_order_number = NULL, last_error_kind = NULL,
			attempts = attempts + 1
		WHERE id = ? AND status IN (?, ?, ?)`,
		models.ScreeningProcessingCredit, rec.SubjectFirstName, rec.SubjectLastName, existing.ID,
		models.ScreeningProcessingCredit, models.ScreeningCreditFailed, models.ScreeningFailed,
	)
	if err != nil {
		return models.ScreeningRecord{}, false, fmt.Errorf("reset screening record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ScreeningRecord{}, false, domain.PreconditionFailedError{
			Reason: "screening advanced concurrently for this credit",
		}
	}
	existing.Status = models.ScreeningProcessingCredit
	existing.SubjectFirstName = rec.SubjectFirstName
	existing.SubjectLastName = rec.SubjectLastName
	existing.CreditBucket = ""
	existing.VendorOrderNumber = ""
	existing.LastErrorKind = ""
	return existing, false, nil
}

func restartable(status string) bool {
	switch status {
	case models.ScreeningProcessingCredit, models.ScreeningCreditFailed, models.ScreeningFailed:
		return true
	}
	return false
}

func (r ScreeningRepository) UpdateStatus(ctx context.Context, id int64, u ScreeningUpdate) error {
	sets := "status = ?, last_error_kind = ?"
	args := []any{u.Status, intdb.NullIfEmpty(u.LastErrorKind)}
	if u.CreditBucket != nil {
		sets += ", credit_bucket = ?"
		args = append(args, *u.CreditBucket)
	}
	if u.VendorOrderNumber != nil {
		sets += ", vendor_order_number = ?"
		args = append(args, *u.VendorOrderNumber)
	}
	args = append(args, id)

	if _, err := r.db().ExecContext(ctx, `UPDATE screening_records SET `+sets+` WHERE id = ?`, args...); err != nil {
		return fmt.Errorf("update screening status: %w", err)
	}
	return nil
}

// CompleteAndRedeem marks the record COMPLETE and redeems its credit in one
// transaction. It is a no-op for a record that is already complete.
func (r ScreeningRepository) CompleteAndRedeem(ctx context.Context, recordID, creditID int64) error {
	return intdb.WithTx(ctx, r.db(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE screening_records SET status = ?, last_error_kind = NULL WHERE id = ? AND status = ?`,
			models.ScreeningComplete, recordID, models.ScreeningProcessingBGS,
		); err != nil {
			return fmt.Errorf("complete screening: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE purchase_credits SET is_redeemed = 1 WHERE id = ?`, creditID,
		); err != nil {
			return fmt.Errorf("redeem credit: %w", err)
		}
		return nil
	})
}

// AppendAudit adds one entry to the record's append-only audit log.
func (r ScreeningRepository) AppendAudit(ctx context.Context, recordID int64, event string, detail any) error {
	var payload any
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		payload = string(b)
	}
	if _, err := r.db().ExecContext(ctx,
		`INSERT INTO screening_audit_events (screening_record_id, event, detail) VALUES (?, ?, ?)`,
		recordID, event, payload,
	); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (r ScreeningRepository) ListAudit(ctx context.Context, recordID int64) ([]models.AuditEvent, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT id, screening_record_id, event, COALESCE(CAST(detail AS CHAR), ''), created_at
		FROM screening_audit_events WHERE screening_record_id = ? ORDER BY id`, recordID)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		var detail string
		if err := rows.Scan(&e.ID, &e.ScreeningRecordID, &e.Event, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if detail != "" {
			e.Detail = json.RawMessage(detail)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
