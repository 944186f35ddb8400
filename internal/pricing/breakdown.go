package pricing

import "time"

type ListingPricing struct {
	MonthlyRentCents int64
	// SecurityDepositCents overrides the default deposit of one month's rent.
	SecurityDepositCents *int64
	PetDepositCents      int64 // per pet
	PetRentCents         int64 // per pet, per month
}

type TripDetails struct {
	StartDate time.Time
	EndDate   time.Time
	PetCount  int
}

// Breakdown is what the renter sees before paying: deposits due today plus
// the recurring monthly charge.
type Breakdown struct {
	SecurityDepositCents  int64 `json:"security_deposit_cents"`
	PetDepositCents       int64 `json:"pet_deposit_cents"`
	TotalDepositsCents    int64 `json:"total_deposits_cents"`
	MonthlyRentCents      int64 `json:"monthly_rent_cents"`
	MonthlyPetRentCents   int64 `json:"monthly_pet_rent_cents"`
	TotalMonthlyRentCents int64 `json:"total_monthly_rent_cents"`
	StayMonths            int   `json:"stay_months"`
	ServiceFeeCents       int64 `json:"service_fee_cents"`
	TransferFeeCents      int64 `json:"transfer_fee_cents"`
	CardFeeCents          int64 `json:"card_fee_cents"`
	SubtotalCents         int64 `json:"subtotal_cents"`
	TotalDueTodayCents    int64 `json:"total_due_today_cents"`
}

// DepositQuote splits a deposit charge into its components.
type DepositQuote struct {
	DepositCents     int64 `json:"deposit_cents"`
	TransferFeeCents int64 `json:"transfer_fee_cents"`
	CardFeeCents     int64 `json:"card_fee_cents"`
	TotalCents       int64 `json:"total_cents"`
}

// QuoteDeposit adds the transfer fee to the deposit and, for cards, grosses
// the subtotal up by the processor surcharge.
func QuoteDeposit(depositCents int64, isCard bool) DepositQuote {
	subtotal := depositCents + TransferFee()
	total := TotalWithOptionalCardFee(subtotal, isCard)
	return DepositQuote{
		DepositCents:     depositCents,
		TransferFeeCents: TransferFee(),
		CardFeeCents:     total - subtotal,
		TotalCents:       total,
	}
}

func CalculateBreakdown(listing ListingPricing, trip TripDetails, isCard bool) Breakdown {
	security := listing.MonthlyRentCents
	if listing.SecurityDepositCents != nil {
		security = *listing.SecurityDepositCents
	}
	petDeposit := perPet(trip.PetCount, listing.PetDepositCents)
	petRent := perPet(trip.PetCount, listing.PetRentCents)

	b := Breakdown{
		SecurityDepositCents:  security,
		PetDepositCents:       petDeposit,
		TotalDepositsCents:    security + petDeposit,
		MonthlyRentCents:      listing.MonthlyRentCents,
		MonthlyPetRentCents:   petRent,
		TotalMonthlyRentCents: listing.MonthlyRentCents + petRent,
		StayMonths:            StayMonths(trip.StartDate, trip.EndDate),
	}
	b.ServiceFeeCents = ServiceFee(b.TotalMonthlyRentCents, b.StayMonths)

	q := QuoteDeposit(b.TotalDepositsCents, isCard)
	b.TransferFeeCents = q.TransferFeeCents
	b.CardFeeCents = q.CardFeeCents
	b.SubtotalCents = b.TotalDepositsCents + q.TransferFeeCents
	b.TotalDueTodayCents = q.TotalCents
	return b
}

func perPet(count int, each int64) int64 {
	if count <= 0 || each <= 0 {
		return 0
	}
	return int64(count) * each
}
