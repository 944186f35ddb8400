package pricing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one due rent payment.
type Installment struct {
	BookingID       int64
	DueDate         time.Time
	AmountCents     int64
	ServiceFeeCents int64
	InstrumentID    string
	Prorated        bool
	AuthorizedAt    *time.Time
}

type ScheduleInput struct {
	BookingID        int64
	MonthlyRentCents int64
	StartDate        time.Time
	EndDate          time.Time
	InstrumentID     string
	// StayMonths selects the service-fee tier; zero derives it from the dates.
	StayMonths int
}

// GenerateSchedule lays out calendar-month aligned installments between the
// start and end dates (both inclusive). A mid-month start produces a prorated
// first installment due on the start date; a mid-month end produces a
// prorated final installment due on the 1st of that month. Rounding is per
// installment and never reconciled against a running total.
func GenerateSchedule(in ScheduleInput) []Installment {
	start := civil(in.StartDate)
	end := civil(in.EndDate)
	if end.Before(start) {
		return nil
	}

	stay := in.StayMonths
	if stay <= 0 {
		stay = StayMonths(start, end)
	}

	var out []Installment
	add := func(due time.Time, amount int64, prorated bool) {
		out = append(out, Installment{
			BookingID:       in.BookingID,
			DueDate:         due,
			AmountCents:     amount,
			ServiceFeeCents: ServiceFee(amount, stay),
			InstrumentID:    in.InstrumentID,
			Prorated:        prorated,
		})
	}

	cursor := start
	if start.Day() > 1 {
		dim := daysInMonth(start)
		remaining := dim - start.Day() + 1
		add(start, prorate(in.MonthlyRentCents, remaining, dim), true)
		cursor = firstOfNextMonth(start)
	}

	for !cursor.After(end) {
		monthEnd := lastOfMonth(cursor)
		if monthEnd.After(end) && end.Day() < monthEnd.Day() {
			add(cursor, prorate(in.MonthlyRentCents, end.Day(), monthEnd.Day()), true)
		} else {
			add(cursor, in.MonthlyRentCents, false)
		}
		cursor = firstOfNextMonth(cursor)
	}
	return out
}

// StayMonths is the billable stay length: elapsed days divided by 30, rounded up, never below 1.
func StayMonths(start, end time.Time) int {
	days := civil(end).Sub(civil(start)).Hours() / 24
	months := int(math.Ceil(math.Ceil(days) / 30))
	if months < 1 {
		return 1
	}
	return months
}

// ScheduleTotals sums a schedule.
type ScheduleTotals struct {
	Installments    int   `json:"installments"`
	RentCents       int64 `json:"rent_cents"`
	ServiceFeeCents int64 `json:"service_fee_cents"`
	TotalCents      int64 `json:"total_cents"`
}

func SummarizeSchedule(items []Installment) ScheduleTotals {
	var t ScheduleTotals
	for _, it := range items {
		t.Installments++
		t.RentCents += it.AmountCents
		t.ServiceFeeCents += it.ServiceFeeCents
	}
	t.TotalCents = t.RentCents + t.ServiceFeeCents
	return t
}

func prorate(rentCents int64, days, daysInMonth int) int64 {
	if daysInMonth <= 0 {
		return 0
	}
	v := decimal.NewFromInt(rentCents).
		Mul(decimal.NewFromInt(int64(days))).
		Div(decimal.NewFromInt(int64(daysInMonth)))
	return roundCents(v)
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(t time.Time) int {
	return lastOfMonth(t).Day()
}

func lastOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

func firstOfNextMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}
