package models

import (
	"encoding/json"
	"time"
)

const (
	ScreeningProcessingCredit = "PROCESSING_CREDIT"
	ScreeningCreditFailed     = "CREDIT_FAILED"
	ScreeningProcessingBGS    = "PROCESSING_BGS"
	ScreeningFailed           = "FAILED"
	ScreeningComplete         = "COMPLETE"
)

// ScreeningRecord is one attempt, with all its retries, to screen a subject
// against a single purchase credit.
type ScreeningRecord struct {
	ID                int64     `json:"id"`
	OwnerID           int64     `json:"owner_id"`
	PurchaseCreditID  int64     `json:"purchase_credit_id"`
	Status            string    `json:"status"`
	SubjectFirstName  string    `json:"subject_first_name"`
	SubjectLastName   string    `json:"subject_last_name"`
	CreditBucket      string    `json:"credit_bucket,omitempty"`
	VendorOrderNumber string    `json:"vendor_order_number,omitempty"`
	LastErrorKind     string    `json:"last_error_kind,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AuditEvent is one append-only entry in a screening record's audit log.
type AuditEvent struct {
	ID                int64           `json:"id"`
	ScreeningRecordID int64           `json:"screening_record_id"`
	Event             string          `json:"event"`
	Detail            json.RawMessage `json:"detail,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}
