package models

import "time"

const BookingStatusConfirmed = "confirmed"

// Booking is the confirmed occupancy created once a payment agreement is both
// signed and paid. At most one exists per agreement.
type Booking struct {
	ID                 int64     `json:"id"`
	PaymentAgreementID int64     `json:"payment_agreement_id"`
	RenterID           int64     `json:"renter_id"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	MonthlyRentCents   int64     `json:"monthly_rent_cents"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
}

// RentPayment is one installment of a booking's rent schedule.
type RentPayment struct {
	ID              int64      `json:"id"`
	BookingID       int64      `json:"booking_id"`
	AmountCents     int64      `json:"amount_cents"`
	ServiceFeeCents int64      `json:"service_fee_cents"`
	DueDate         time.Time  `json:"due_date"`
	InstrumentID    string     `json:"instrument_id,omitempty"`
	AuthorizedAt    *time.Time `json:"authorized_at,omitempty"`
}
