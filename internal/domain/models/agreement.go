package models

import "time"

const (
	PaymentStatusNone       = "none"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
)

// PaymentAgreement holds the economic terms between one listing and one trip.
type PaymentAgreement struct {
	ID                  int64      `json:"id"`
	ListingID           int64      `json:"listing_id"`
	TripID              int64      `json:"trip_id"`
	HostID              int64      `json:"host_id"`
	RenterID            int64      `json:"renter_id"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             time.Time  `json:"end_date"`
	MonthlyRentCents    int64      `json:"monthly_rent_cents"`
	PaymentInstrumentID string     `json:"payment_instrument_id,omitempty"`
	PaymentIntentID     string     `json:"payment_intent_id,omitempty"`
	PaymentStatus       string     `json:"payment_status"`
	AuthorizedAt        *time.Time `json:"authorized_at,omitempty"`
	CapturedAt          *time.Time `json:"captured_at,omitempty"`
	LandlordSignedAt    *time.Time `json:"landlord_signed_at,omitempty"`
	TenantSignedAt      *time.Time `json:"tenant_signed_at,omitempty"`
}

func (a PaymentAgreement) FullySigned() bool {
	return a.LandlordSignedAt != nil && a.TenantSignedAt != nil
}

func (a PaymentAgreement) PaymentAuthorized() bool {
	return a.PaymentStatus == PaymentStatusAuthorized || a.PaymentStatus == PaymentStatusCaptured
}
