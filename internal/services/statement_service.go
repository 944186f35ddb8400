package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"

	"rentcore/internal/domain"
	"rentcore/internal/utils"
)

type ScheduleReader interface {
	Schedule(ctx context.Context, caller domain.Caller, bookingID int64) (BookingSchedule, error)
}

// StatementService renders a booking's rent schedule as a PDF statement.
type StatementService struct {
	Schedules ScheduleReader
	RequestID string
	Now       func() time.Time
}

func (s StatementService) BuildScheduleStatement(ctx context.Context, caller domain.Caller, bookingID int64) ([]byte, string, error) {
	sched, err := s.Schedules.Schedule(ctx, caller, bookingID)
	if err != nil {
		return nil, "", err
	}
	issued := utils.NowUTC()
	if s.Now != nil {
		issued = s.Now().UTC()
	}
	utils.LogEvent(s.RequestID, "docs", "schedule_statement", "statement generated",
		zap.Int64("booking_id", bookingID), zap.Int("installments", len(sched.Payments)))
	return buildSchedulePDF(sched, issued)
}

func buildSchedulePDF(d BookingSchedule, issued time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Rent Schedule", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "RENT SCHEDULE")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking      : #%d", d.Booking.ID),
		fmt.Sprintf("Agreement    : #%d", d.Booking.PaymentAgreementID),
		fmt.Sprintf("Lease        : %s to %s", utils.FormatDate(d.Booking.StartDate), utils.FormatDate(d.Booking.EndDate)),
		fmt.Sprintf("Monthly rent : %s", utils.FormatUSD(d.Booking.MonthlyRentCents)),
		fmt.Sprintf("Issued       : %s", utils.FormatDateTime(issued)),
	}
	for _, l := range lines {
		pdf.Cell(0, 7, l)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	widths := []float64{12, 40, 45, 45, 45}
	pdf.SetFont("Helvetica", "B", 11)
	for i, h := range []string{"#", "Due date", "Rent", "Service fee", "Total"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for i, p := range d.Payments {
		pdf.CellFormat(widths[0], 7, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 7, utils.FormatDate(p.DueDate), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], 7, utils.FormatUSD(p.AmountCents), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, utils.FormatUSD(p.ServiceFeeCents), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, utils.FormatUSD(p.AmountCents+p.ServiceFeeCents), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(widths[0]+widths[1], 8, "Total", "1", 0, "C", false, 0, "")
	pdf.CellFormat(widths[2], 8, utils.FormatUSD(d.Totals.RentCents), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, utils.FormatUSD(d.Totals.ServiceFeeCents), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[4], 8, utils.FormatUSD(d.Totals.TotalCents), "1", 0, "R", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Partial months are prorated by calendar days. Installments are due on the lease start date and on the 1st of each following month.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("SCHEDULE_%d_%s.pdf", d.Booking.ID, utils.SafeFilenamePart(utils.FormatDate(d.Booking.StartDate)))
	return buf.Bytes(), filename, nil
}
