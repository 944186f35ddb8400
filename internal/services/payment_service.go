package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rentcore/internal/clients/processor"
	"rentcore/internal/domain"
	"rentcore/internal/domain/models"
	"rentcore/internal/pricing"
	"rentcore/internal/repositories"
	"rentcore/internal/utils"
)

// CapturePolicy decides when funds move and what the platform keeps.
type CapturePolicy struct {
	Name            string                `json:"name"`
	Mode            processor.CaptureMode `json:"mode"`
	PlatformFeeRate decimal.Decimal       `json:"platform_fee_rate"`
}

// HoldUntilLease places a manual hold on cards and takes no platform fee.
func HoldUntilLease() CapturePolicy {
	return CapturePolicy{Name: "hold_until_lease", Mode: processor.CaptureManual, PlatformFeeRate: decimal.Zero}
}

// SettleImmediately captures on authorization and takes rate of the amount.
func SettleImmediately(rate decimal.Decimal) CapturePolicy {
	return CapturePolicy{Name: "settle_immediately", Mode: processor.CaptureAutomatic, PlatformFeeRate: rate}
}

type AuthorizeRequest struct {
	AgreementID     int64         `json:"agreement_id"`
	InstrumentToken string        `json:"instrument_token"`
	AmountCents     int64         `json:"amount_cents"`
	Policy          CapturePolicy `json:"-"`
}

type AuthorizeResult struct {
	AgreementID         int64                    `json:"agreement_id"`
	IntentID            string                   `json:"intent_id"`
	PaymentStatus       string                   `json:"payment_status"`
	CaptureMode         processor.CaptureMode    `json:"capture_mode"`
	InstrumentType      processor.InstrumentType `json:"instrument_type"`
	ApplicationFeeCents int64                    `json:"application_fee_cents"`
	Booking             BookingOutcome           `json:"booking"`
}

type CaptureResult struct {
	AgreementID   int64          `json:"agreement_id"`
	IntentID      string         `json:"intent_id"`
	PaymentStatus string         `json:"payment_status"`
	Booking       BookingOutcome `json:"booking"`
}

// PaymentService attaches the renter's instrument, authorizes the split
// payment toward the host and hands off to booking creation.
type PaymentService struct {
	Agreements AgreementStore
	Users      UserStore
	Payouts    PayoutAccounts
	Processor  PaymentProcessor
	Bookings   BookingService
	RequestID  string
	Now        func() time.Time
}

func (s PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return utils.NowUTC()
}

func (s PaymentService) AttachAndAuthorize(ctx context.Context, caller domain.Caller, req AuthorizeRequest) (AuthorizeResult, error) {
	if err := validateAuthorize(req); err != nil {
		return AuthorizeResult{}, err
	}
	if err := domain.RequireCaller(caller); err != nil {
		return AuthorizeResult{}, err
	}

	agreement, err := s.Agreements.GetByID(ctx, req.AgreementID)
	if err != nil {
		return AuthorizeResult{}, err
	}
	if int64(caller.UserID) != agreement.RenterID {
		return AuthorizeResult{}, domain.ForbiddenError{Action: "pay for this agreement"}
	}
	if agreement.PaymentStatus != models.PaymentStatusNone {
		return AuthorizeResult{}, domain.PreconditionFailedError{Reason: "agreement payment already " + agreement.PaymentStatus}
	}
	destination, ok, err := s.Payouts.PayoutAccountFor(ctx, agreement.HostID)
	if err != nil {
		return AuthorizeResult{}, err
	}
	if !ok {
		return AuthorizeResult{}, domain.PreconditionFailedError{Reason: "host has no payout account"}
	}

	customerID, err := s.ensureCustomer(ctx, caller)
	if err != nil {
		return AuthorizeResult{}, err
	}
	instrument, err := s.Processor.AttachInstrument(ctx, customerID, strings.TrimSpace(req.InstrumentToken))
	if err != nil {
		return AuthorizeResult{}, err
	}

	mode := req.Policy.Mode
	if instrument.Type == processor.InstrumentBank {
		mode = processor.CaptureAutomatic
	}
	fee := int64(0)
	if req.Policy.PlatformFeeRate.IsPositive() {
		fee = pricing.ApplicationFee(req.AmountCents, req.Policy.PlatformFeeRate)
	}

	metadata := map[string]string{
		"agreement_id": strconv.FormatInt(agreement.ID, 10),
		"renter_id":    strconv.FormatInt(agreement.RenterID, 10),
		"host_id":      strconv.FormatInt(agreement.HostID, 10),
		"policy":       req.Policy.Name,
	}
	if instrument.Type == processor.InstrumentCard {
		base := pricing.BaseFromTotalWithCardFee(req.AmountCents)
		metadata["base_amount_cents"] = strconv.FormatInt(base, 10)
		metadata["card_fee_cents"] = strconv.FormatInt(req.AmountCents-base, 10)
	}

	auth, err := s.Processor.Authorize(ctx, processor.AuthorizeParams{
		AmountCents:         req.AmountCents,
		Currency:            "usd",
		CustomerID:          customerID,
		InstrumentID:        instrument.ID,
		InstrumentType:      instrument.Type,
		Destination:         destination,
		CaptureMode:         mode,
		ApplicationFeeCents: fee,
		IdempotencyKey:      "agreement-" + strconv.FormatInt(agreement.ID, 10) + "-" + instrument.ID,
		ReceiptEmail:        caller.Email,
		Metadata:            metadata,
	})
	if err != nil {
		return AuthorizeResult{}, err
	}

	now := s.now()
	update := repositories.PaymentUpdate{InstrumentID: instrument.ID, IntentID: auth.IntentID, AuthorizedAt: now}
	// An automatic-capture intent that is still processing (bank debits) has
	// no hold left to capture, so it is recorded as captured.
	switch {
	case auth.Status == processor.StatusSucceeded,
		auth.Status == processor.StatusProcessing && mode == processor.CaptureAutomatic:
		update.Status = models.PaymentStatusCaptured
		update.CapturedAt = &now
	case auth.Status == processor.StatusRequiresCapture, auth.Status == processor.StatusProcessing:
		update.Status = models.PaymentStatusAuthorized
	default:
		return AuthorizeResult{}, domain.ProcessorFailure{
			Op:      "authorize",
			Code:    string(auth.Status),
			Message: "payment was not authorized",
		}
	}

	stored, err := s.Agreements.MarkAuthorized(ctx, agreement.ID, update)
	if err != nil {
		return AuthorizeResult{}, err
	}
	if !stored {
		return AuthorizeResult{}, domain.PreconditionFailedError{Reason: "agreement was paid concurrently"}
	}
	utils.LogEvent(s.RequestID, "payment", "authorize", "payment authorized",
		zap.Int64("agreement_id", agreement.ID), zap.String("intent_id", auth.IntentID),
		zap.String("status", update.Status), zap.String("capture_mode", string(mode)),
		zap.Int64("application_fee_cents", fee))

	outcome, err := s.Bookings.EnsureBookingExists(ctx, agreement.ID)
	if err != nil {
		return AuthorizeResult{}, err
	}
	return AuthorizeResult{
		AgreementID:         agreement.ID,
		IntentID:            auth.IntentID,
		PaymentStatus:       update.Status,
		CaptureMode:         mode,
		InstrumentType:      instrument.Type,
		ApplicationFeeCents: fee,
		Booking:             outcome,
	}, nil
}

// CapturePayment settles a manual hold. Capturing an already captured
// agreement is a no-op.
func (s PaymentService) CapturePayment(ctx context.Context, caller domain.Caller, agreementID int64) (CaptureResult, error) {
	if agreementID <= 0 {
		return CaptureResult{}, domain.ValidationError{Field: "agreement_id", Msg: "invalid id"}
	}
	if err := domain.RequireCaller(caller); err != nil {
		return CaptureResult{}, err
	}

	agreement, err := s.Agreements.GetByID(ctx, agreementID)
	if err != nil {
		return CaptureResult{}, err
	}
	uid := int64(caller.UserID)
	if uid != agreement.RenterID && uid != agreement.HostID {
		return CaptureResult{}, domain.ForbiddenError{Action: "capture this payment"}
	}

	switch agreement.PaymentStatus {
	case models.PaymentStatusCaptured:
		return CaptureResult{AgreementID: agreementID, IntentID: agreement.PaymentIntentID, PaymentStatus: models.PaymentStatusCaptured}, nil
	case models.PaymentStatusAuthorized:
	default:
		return CaptureResult{}, domain.PreconditionFailedError{Reason: "agreement has no authorized payment"}
	}

	auth, err := s.Processor.Capture(ctx, agreement.PaymentIntentID)
	if err != nil {
		return CaptureResult{}, err
	}
	if auth.Status != processor.StatusSucceeded && auth.Status != processor.StatusProcessing {
		return CaptureResult{}, domain.ProcessorFailure{Op: "capture", Code: string(auth.Status), Message: "payment was not captured"}
	}

	if _, err := s.Agreements.MarkCaptured(ctx, agreementID, s.now()); err != nil {
		return CaptureResult{}, err
	}
	utils.LogEvent(s.RequestID, "payment", "capture", "payment captured",
		zap.Int64("agreement_id", agreementID), zap.String("intent_id", auth.IntentID))

	outcome, err := s.Bookings.EnsureBookingExists(ctx, agreementID)
	if err != nil {
		return CaptureResult{}, err
	}
	return CaptureResult{
		AgreementID:   agreementID,
		IntentID:      auth.IntentID,
		PaymentStatus: models.PaymentStatusCaptured,
		Booking:       outcome,
	}, nil
}

// ensureCustomer returns the renter's processor customer, creating it on
// first use. Two concurrent first uses converge on whichever id was stored first.
func (s PaymentService) ensureCustomer(ctx context.Context, caller domain.Caller) (string, error) {
	userID := int64(caller.UserID)
	profile, err := s.Users.PaymentProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	if profile.ProcessorCustomerID != "" {
		return profile.ProcessorCustomerID, nil
	}

	email := profile.Email
	if email == "" {
		email = caller.Email
	}
	customer, err := s.Processor.CreateCustomer(ctx, userID, email)
	if err != nil {
		return "", err
	}
	stored, err := s.Users.SetProcessorCustomerID(ctx, userID, customer.ID)
	if err != nil {
		return "", err
	}
	if stored != customer.ID {
		utils.LogWarn(s.RequestID, "payment", "customer", "processor customer created concurrently",
			zap.Int64("user_id", userID), zap.String("kept", stored), zap.String("discarded", customer.ID))
	}
	return stored, nil
}

func validateAuthorize(req AuthorizeRequest) error {
	var fields []domain.FieldError
	if req.AgreementID <= 0 {
		fields = append(fields, domain.FieldError{Field: "agreement_id", Msg: "invalid id"})
	}
	if strings.TrimSpace(req.InstrumentToken) == "" {
		fields = append(fields, domain.FieldError{Field: "instrument_token", Msg: "is required"})
	}
	if req.AmountCents <= 0 {
		fields = append(fields, domain.FieldError{Field: "amount_cents", Msg: "must be positive"})
	}
	if !req.Policy.Mode.Valid() {
		fields = append(fields, domain.FieldError{Field: "capture_mode", Msg: "must be manual or automatic"})
	}
	if req.Policy.PlatformFeeRate.IsNegative() || req.Policy.PlatformFeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		fields = append(fields, domain.FieldError{Field: "platform_fee_rate", Msg: "must be in [0, 1)"})
	}
	if len(fields) > 0 {
		return domain.ValidationError{Fields: fields}
	}
	return nil
}
