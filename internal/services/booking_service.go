package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rentcore/internal/domain"
	"rentcore/internal/domain/models"
	"rentcore/internal/events"
	"rentcore/internal/pricing"
	"rentcore/internal/repositories"
	"rentcore/internal/utils"
)

// Reasons reported on a pending BookingOutcome.
const (
	PendingSignatures = "awaiting_signatures"
	PendingPayment    = "awaiting_payment"
)

type BookingOutcome struct {
	Booking *models.Booking `json:"booking,omitempty"`
	Created bool            `json:"created"`
	Pending string          `json:"pending,omitempty"`
}

type SignatureOutcome struct {
	Party   string         `json:"party"`
	Stamped bool           `json:"stamped"`
	Booking BookingOutcome `json:"booking"`
}

// BookingSchedule is a booking with its stored installments.
type BookingSchedule struct {
	Booking  models.Booking         `json:"booking"`
	Payments []models.RentPayment   `json:"payments"`
	Totals   pricing.ScheduleTotals `json:"totals"`
}

// BookingService creates the booking once an agreement is both signed and
// paid, whichever of the two happens last.
type BookingService struct {
	Agreements AgreementStore
	Signatures SignatureStatus
	Bookings   BookingStore
	Events     events.Publisher
	RequestID  string
	Now        func() time.Time
}

func (s BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return utils.NowUTC()
}

// EnsureBookingExists is safe to call from both the signature and the payment
// path, in any order and concurrently. The UNIQUE key on
// bookings.payment_agreement_id lets exactly one caller create the booking;
// the others read it back.
func (s BookingService) EnsureBookingExists(ctx context.Context, agreementID int64) (BookingOutcome, error) {
	if agreementID <= 0 {
		return BookingOutcome{}, domain.ValidationError{Field: "agreement_id", Msg: "invalid id"}
	}

	existing, err := s.Bookings.GetByAgreementID(ctx, agreementID)
	if err == nil {
		return BookingOutcome{Booking: &existing}, nil
	}
	if !domain.IsNotFound(err) {
		return BookingOutcome{}, err
	}

	agreement, err := s.Agreements.GetByID(ctx, agreementID)
	if err != nil {
		return BookingOutcome{}, err
	}

	signed := agreement.FullySigned()
	if s.Signatures != nil {
		landlord, tenant, err := s.Signatures.SignatureStatus(ctx, agreementID)
		if err != nil {
			return BookingOutcome{}, err
		}
		signed = landlord && tenant
	}
	if !signed {
		return BookingOutcome{Pending: PendingSignatures}, nil
	}
	if !agreement.PaymentAuthorized() {
		return BookingOutcome{Pending: PendingPayment}, nil
	}

	installments := pricing.GenerateSchedule(pricing.ScheduleInput{
		MonthlyRentCents: agreement.MonthlyRentCents,
		StartDate:        agreement.StartDate,
		EndDate:          agreement.EndDate,
		InstrumentID:     agreement.PaymentInstrumentID,
		StayMonths:       pricing.StayMonths(agreement.StartDate, agreement.EndDate),
	})
	if len(installments) == 0 {
		return BookingOutcome{}, domain.ValidationError{Field: "end_date", Msg: "lease ends before it starts"}
	}

	payments := make([]models.RentPayment, 0, len(installments))
	for i, it := range installments {
		p := models.RentPayment{
			AmountCents:     it.AmountCents,
			ServiceFeeCents: it.ServiceFeeCents,
			DueDate:         it.DueDate,
			InstrumentID:    it.InstrumentID,
		}
		// the authorization on the agreement covers the first installment
		if i == 0 {
			p.AuthorizedAt = agreement.AuthorizedAt
		}
		payments = append(payments, p)
	}

	booking, err := s.Bookings.CreateWithSchedule(ctx, models.Booking{
		PaymentAgreementID: agreement.ID,
		RenterID:           agreement.RenterID,
		StartDate:          agreement.StartDate,
		EndDate:            agreement.EndDate,
		MonthlyRentCents:   agreement.MonthlyRentCents,
		Status:             models.BookingStatusConfirmed,
		CreatedAt:          s.now(),
	}, payments)
	if domain.IsConflict(err) {
		winner, gerr := s.Bookings.GetByAgreementID(ctx, agreementID)
		if gerr != nil {
			return BookingOutcome{}, gerr
		}
		utils.LogEvent(s.RequestID, "booking", "ensure", "booking created concurrently",
			zap.Int64("agreement_id", agreementID), zap.Int64("booking_id", winner.ID))
		return BookingOutcome{Booking: &winner}, nil
	}
	if err != nil {
		return BookingOutcome{}, err
	}

	totals := pricing.SummarizeSchedule(installments)
	utils.LogEvent(s.RequestID, "booking", "ensure", "booking confirmed",
		zap.Int64("agreement_id", agreementID), zap.Int64("booking_id", booking.ID),
		zap.Int("installments", totals.Installments), zap.Int64("total_cents", totals.TotalCents))
	if s.Events != nil {
		if err := s.Events.Publish(ctx, events.BookingConfirmed, map[string]any{
			"booking_id":   booking.ID,
			"agreement_id": agreementID,
			"renter_id":    booking.RenterID,
			"totals":       totals,
		}); err != nil {
			utils.LogWarn(s.RequestID, "booking", "ensure", "publish event failed", zap.Error(err))
		}
	}
	return BookingOutcome{Booking: &booking, Created: true}, nil
}

// RecordSignature stamps the caller's side of the lease and then tries to
// create the booking.
func (s BookingService) RecordSignature(ctx context.Context, caller domain.Caller, agreementID int64) (SignatureOutcome, error) {
	if err := domain.RequireCaller(caller); err != nil {
		return SignatureOutcome{}, err
	}
	if agreementID <= 0 {
		return SignatureOutcome{}, domain.ValidationError{Field: "agreement_id", Msg: "invalid id"}
	}

	agreement, err := s.Agreements.GetByID(ctx, agreementID)
	if err != nil {
		return SignatureOutcome{}, err
	}

	var party string
	switch int64(caller.UserID) {
	case agreement.HostID:
		party = repositories.PartyLandlord
	case agreement.RenterID:
		party = repositories.PartyTenant
	default:
		return SignatureOutcome{}, domain.ForbiddenError{Action: "sign this agreement"}
	}

	stamped, err := s.Agreements.MarkSigned(ctx, agreementID, party, s.now())
	if err != nil {
		return SignatureOutcome{}, err
	}
	utils.LogEvent(s.RequestID, "booking", "sign", "signature recorded",
		zap.Int64("agreement_id", agreementID), zap.String("party", party), zap.Bool("stamped", stamped))

	outcome, err := s.EnsureBookingExists(ctx, agreementID)
	if err != nil {
		return SignatureOutcome{}, err
	}
	return SignatureOutcome{Party: party, Stamped: stamped, Booking: outcome}, nil
}

// Schedule returns the stored installments of a booking to its renter or host.
func (s BookingService) Schedule(ctx context.Context, caller domain.Caller, bookingID int64) (BookingSchedule, error) {
	if err := domain.RequireCaller(caller); err != nil {
		return BookingSchedule{}, err
	}
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return BookingSchedule{}, err
	}
	if int64(caller.UserID) != booking.RenterID {
		agreement, err := s.Agreements.GetByID(ctx, booking.PaymentAgreementID)
		if err != nil {
			return BookingSchedule{}, err
		}
		if int64(caller.UserID) != agreement.HostID {
			return BookingSchedule{}, domain.ForbiddenError{Action: "view this booking"}
		}
	}

	payments, err := s.Bookings.ListPayments(ctx, bookingID)
	if err != nil {
		return BookingSchedule{}, err
	}
	items := make([]pricing.Installment, 0, len(payments))
	for _, p := range payments {
		items = append(items, pricing.Installment{AmountCents: p.AmountCents, ServiceFeeCents: p.ServiceFeeCents})
	}
	return BookingSchedule{Booking: booking, Payments: payments, Totals: pricing.SummarizeSchedule(items)}, nil
}
