package pricing

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateSchedule_MidMonthStart(t *testing.T) {
	items := GenerateSchedule(ScheduleInput{
		BookingID:        7,
		MonthlyRentCents: 100000,
		StartDate:        day(2025, time.January, 15),
		EndDate:          day(2025, time.March, 1),
		InstrumentID:     "pm_1",
	})
	if len(items) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(items))
	}
	if !items[0].DueDate.Equal(day(2025, time.January, 15)) || items[0].AmountCents != 54839 || !items[0].Prorated {
		t.Fatalf("unexpected first installment: %+v", items[0])
	}
	if !items[1].DueDate.Equal(day(2025, time.February, 1)) || items[1].AmountCents != 100000 {
		t.Fatalf("unexpected second installment: %+v", items[1])
	}
	if !items[2].DueDate.Equal(day(2025, time.March, 1)) || items[2].AmountCents != 3226 {
		t.Fatalf("unexpected final installment: %+v", items[2])
	}
	for _, it := range items {
		if it.BookingID != 7 || it.InstrumentID != "pm_1" {
			t.Fatalf("installment lost booking/instrument: %+v", it)
		}
	}
}

func TestGenerateSchedule_MidMonthEnd(t *testing.T) {
	items := GenerateSchedule(ScheduleInput{
		MonthlyRentCents: 100000,
		StartDate:        day(2025, time.April, 1),
		EndDate:          day(2025, time.June, 20),
	})
	if len(items) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(items))
	}
	if items[0].AmountCents != 100000 || items[1].AmountCents != 100000 {
		t.Fatalf("expected full April and May, got %d and %d", items[0].AmountCents, items[1].AmountCents)
	}
	// 100000 * 20 / 30
	if items[2].AmountCents != 66667 {
		t.Fatalf("expected prorated June 66667, got %d", items[2].AmountCents)
	}
}

func TestGenerateSchedule_LeapFebruaryEnd(t *testing.T) {
	items := GenerateSchedule(ScheduleInput{
		MonthlyRentCents: 100000,
		StartDate:        day(2024, time.January, 1),
		EndDate:          day(2024, time.February, 20),
	})
	if len(items) != 2 {
		t.Fatalf("expected 2 installments, got %d", len(items))
	}
	if items[1].AmountCents != 68966 {
		t.Fatalf("expected 100000*20/29 = 68966, got %d", items[1].AmountCents)
	}
}

func TestGenerateSchedule_FullMonthsOnly(t *testing.T) {
	items := GenerateSchedule(ScheduleInput{
		MonthlyRentCents: 100000,
		StartDate:        day(2025, time.January, 1),
		EndDate:          day(2025, time.March, 31),
	})
	if len(items) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(items))
	}
	for _, it := range items {
		if it.AmountCents != 100000 || it.Prorated {
			t.Fatalf("expected full installment, got %+v", it)
		}
	}
}

func TestGenerateSchedule_EndBeforeStart(t *testing.T) {
	items := GenerateSchedule(ScheduleInput{
		MonthlyRentCents: 100000,
		StartDate:        day(2025, time.March, 1),
		EndDate:          day(2025, time.February, 1),
	})
	if items != nil {
		t.Fatalf("expected no installments, got %d", len(items))
	}
}

func TestGenerateSchedule_ServiceFeePerInstallment(t *testing.T) {
	items := GenerateSchedule(ScheduleInput{
		MonthlyRentCents: 100000,
		StartDate:        day(2025, time.January, 1),
		EndDate:          day(2025, time.April, 30),
		StayMonths:       4,
	})
	for _, it := range items {
		if it.ServiceFeeCents != 3000 {
			t.Fatalf("expected 3%% fee of 3000 on full month, got %d", it.ServiceFeeCents)
		}
	}
	totals := SummarizeSchedule(items)
	if totals.RentCents != 400000 || totals.ServiceFeeCents != 12000 || totals.TotalCents != 412000 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestGenerateSchedule_MonotonicAndAligned(t *testing.T) {
	starts := []time.Time{
		day(2024, time.January, 31),
		day(2024, time.February, 29),
		day(2025, time.March, 1),
		day(2025, time.June, 17),
		day(2025, time.December, 2),
	}
	lengths := []int{0, 10, 45, 90, 200, 400}

	for _, s := range starts {
		for _, n := range lengths {
			e := s.AddDate(0, 0, n)
			items := GenerateSchedule(ScheduleInput{MonthlyRentCents: 123456, StartDate: s, EndDate: e})
			if len(items) == 0 {
				t.Fatalf("start=%s len=%d: expected installments", s.Format("2006-01-02"), n)
			}
			if !items[0].DueDate.Equal(s) && items[0].DueDate.Day() != 1 {
				t.Fatalf("first due date must be the start or a 1st, got %s", items[0].DueDate)
			}
			for i := 1; i < len(items); i++ {
				if !items[i].DueDate.After(items[i-1].DueDate) {
					t.Fatalf("due dates not strictly increasing at %d", i)
				}
				if items[i].DueDate.Day() != 1 {
					t.Fatalf("non-first due date not on the 1st: %s", items[i].DueDate)
				}
			}
			if last := items[len(items)-1].DueDate; last.After(e) {
				t.Fatalf("installment due after lease end: %s > %s", last, e)
			}
		}
	}
}

func TestStayMonths(t *testing.T) {
	cases := []struct {
		start, end time.Time
		want       int
	}{
		{day(2025, time.January, 15), day(2025, time.March, 1), 2},
		{day(2025, time.January, 1), day(2025, time.May, 1), 4},
		{day(2025, time.January, 1), day(2025, time.January, 1), 1},
		{day(2025, time.January, 1), day(2025, time.July, 1), 7},
	}
	for _, tc := range cases {
		if got := StayMonths(tc.start, tc.end); got != tc.want {
			t.Fatalf("StayMonths(%s,%s)=%d, want %d", tc.start.Format("2006-01-02"), tc.end.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestCalculateBreakdown_WithPets(t *testing.T) {
	b := CalculateBreakdown(
		ListingPricing{MonthlyRentCents: 100000, PetDepositCents: 25000, PetRentCents: 5000},
		TripDetails{StartDate: day(2025, time.January, 1), EndDate: day(2025, time.May, 1), PetCount: 2},
		true,
	)
	if b.SecurityDepositCents != 100000 || b.PetDepositCents != 50000 || b.TotalDepositsCents != 150000 {
		t.Fatalf("unexpected deposits: %+v", b)
	}
	if b.TotalMonthlyRentCents != 110000 || b.ServiceFeeCents != 3300 {
		t.Fatalf("unexpected rent/fee: %+v", b)
	}
	if b.SubtotalCents != 150700 || b.TotalDueTodayCents != 155361 || b.CardFeeCents != 4661 {
		t.Fatalf("unexpected totals: %+v", b)
	}
}
