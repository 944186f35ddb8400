package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rentcore/internal/domain"
	"rentcore/internal/pricing"
	"rentcore/internal/utils"
)

type feeQuote struct {
	RentCents         int64                   `json:"rent_cents"`
	StayMonths        int                     `json:"stay_months"`
	ServiceFeeRate    string                  `json:"service_fee_rate"`
	ServiceFeeCents   int64                   `json:"service_fee_cents"`
	MonthlyTotalCents int64                   `json:"monthly_total_cents"`
	FirstChargeCents  int64                   `json:"first_charge_cents"`
	Card              bool                    `json:"card"`
	Deposit           *pricing.DepositQuote   `json:"deposit,omitempty"`
	Breakdown         *pricing.Breakdown      `json:"breakdown,omitempty"`
	Schedule          []installmentView       `json:"schedule,omitempty"`
	ScheduleTotals    *pricing.ScheduleTotals `json:"schedule_totals,omitempty"`
}

type installmentView struct {
	DueDate         string `json:"due_date"`
	AmountCents     int64  `json:"amount_cents"`
	ServiceFeeCents int64  `json:"service_fee_cents"`
	Prorated        bool   `json:"prorated"`
}

// QuoteFees prices a stay without touching storage. Amounts are in cents;
// start and end (YYYY-MM-DD) optionally add the full installment schedule.
func QuoteFees(c *gin.Context) {
	var fields []domain.FieldError
	rent, err := strconv.ParseInt(c.Query("rent"), 10, 64)
	if err != nil || rent <= 0 {
		fields = append(fields, domain.FieldError{Field: "rent", Msg: "must be a positive amount in cents"})
	}
	months := 0
	if raw := c.Query("months"); raw != "" {
		months, err = strconv.Atoi(raw)
		if err != nil || months < 0 {
			fields = append(fields, domain.FieldError{Field: "months", Msg: "must be a non-negative integer"})
		}
	}
	var deposit int64
	if raw := c.Query("deposit"); raw != "" {
		deposit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || deposit < 0 {
			fields = append(fields, domain.FieldError{Field: "deposit", Msg: "must be a non-negative amount in cents"})
		}
	}
	card, _ := strconv.ParseBool(c.DefaultQuery("card", "false"))

	start, end := c.Query("start"), c.Query("end")
	hasDates := false
	startDate, serr := utils.ParseDate(start)
	endDate, eerr := utils.ParseDate(end)
	switch {
	case start == "" && end == "":
	case serr != nil || eerr != nil:
		fields = append(fields, domain.FieldError{Field: "start,end", Msg: "must both be YYYY-MM-DD"})
	case endDate.Before(startDate):
		fields = append(fields, domain.FieldError{Field: "end", Msg: "must not be before start"})
	default:
		hasDates = true
	}
	if len(fields) > 0 {
		RespondDomainError(c, domain.ValidationError{Fields: fields})
		return
	}

	if hasDates && months == 0 {
		months = pricing.StayMonths(startDate, endDate)
	}
	fee := pricing.ServiceFee(rent, months)
	q := feeQuote{
		RentCents:         rent,
		StayMonths:        months,
		ServiceFeeRate:    pricing.ServiceFeeRate(months).String(),
		ServiceFeeCents:   fee,
		MonthlyTotalCents: rent + fee,
		FirstChargeCents:  pricing.TotalWithOptionalCardFee(rent+fee, card),
		Card:              card,
	}
	if deposit > 0 {
		d := pricing.QuoteDeposit(deposit, card)
		q.Deposit = &d
	}
	if hasDates {
		listing := pricing.ListingPricing{MonthlyRentCents: rent}
		if deposit > 0 {
			listing.SecurityDepositCents = &deposit
		}
		b := pricing.CalculateBreakdown(listing, pricing.TripDetails{StartDate: startDate, EndDate: endDate}, card)
		q.Breakdown = &b

		items := pricing.GenerateSchedule(pricing.ScheduleInput{
			MonthlyRentCents: rent,
			StartDate:        startDate,
			EndDate:          endDate,
			StayMonths:       months,
		})
		for _, it := range items {
			q.Schedule = append(q.Schedule, installmentView{
				DueDate:         utils.FormatDate(it.DueDate),
				AmountCents:     it.AmountCents,
				ServiceFeeCents: it.ServiceFeeCents,
				Prorated:        it.Prorated,
			})
		}
		totals := pricing.SummarizeSchedule(items)
		q.ScheduleTotals = &totals
	}
	c.JSON(http.StatusOK, q)
}
