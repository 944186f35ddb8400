package pricing

import "github.com/shopspring/decimal"

// Amounts are integer cents. Intermediate math goes through decimal so the
// rounding step is the only place a fraction of a cent is dropped.

const (
	// ServiceFeeThresholdMonths is the first stay length billed at the long-term rate.
	ServiceFeeThresholdMonths = 6

	transferFeeCents = 700
)

var (
	shortTermRate = decimal.RequireFromString("0.03")
	longTermRate  = decimal.RequireFromString("0.015")
	cardFeeRate   = decimal.RequireFromString("0.03")

	one = decimal.NewFromInt(1)
)

// ServiceFeeRate returns the platform service-fee rate for a stay of the given length.
func ServiceFeeRate(stayMonths int) decimal.Decimal {
	if stayMonths < ServiceFeeThresholdMonths {
		return shortTermRate
	}
	return longTermRate
}

// ServiceFee is the per-installment platform fee, rounded half-up to the cent.
func ServiceFee(rentCents int64, stayMonths int) int64 {
	return roundCents(decimal.NewFromInt(rentCents).Mul(ServiceFeeRate(stayMonths)))
}

// TransferFee is charged once per deposit transfer.
func TransferFee() int64 {
	return transferFeeCents
}

// TotalWithCardFee grosses the base up so that after the processor keeps its
// percentage the platform nets exactly baseCents.
func TotalWithCardFee(baseCents int64) int64 {
	return roundCents(decimal.NewFromInt(baseCents).Div(one.Sub(cardFeeRate)))
}

// CardProcessorFee is the self-inclusive surcharge added on top of baseCents.
func CardProcessorFee(baseCents int64) int64 {
	return TotalWithCardFee(baseCents) - baseCents
}

// BaseFromTotalWithCardFee recovers an approximate base from a card total.
//
// It divides by (1 + rate) instead of multiplying by (1 - rate), so it is not
// the exact inverse of TotalWithCardFee and drifts by roughly 0.09% of the
// amount. Historical reconciliation depends on this formula; do not change it
// without product sign-off.
func BaseFromTotalWithCardFee(totalCents int64) int64 {
	return roundCents(decimal.NewFromInt(totalCents).Div(one.Add(cardFeeRate)))
}

func TotalWithOptionalCardFee(baseCents int64, isCard bool) int64 {
	if isCard {
		return TotalWithCardFee(baseCents)
	}
	return baseCents
}

// ApplicationFee is the platform's cut of a split payment at the given rate.
func ApplicationFee(amountCents int64, rate decimal.Decimal) int64 {
	if !rate.IsPositive() {
		return 0
	}
	return roundCents(decimal.NewFromInt(amountCents).Mul(rate))
}

// DollarsToCents converts a presentation amount to cents, rounding half-up.
func DollarsToCents(dollars float64) int64 {
	return roundCents(decimal.NewFromFloat(dollars).Mul(decimal.NewFromInt(100)))
}

// CentsToDollars is for presentation only.
func CentsToDollars(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

func roundCents(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
