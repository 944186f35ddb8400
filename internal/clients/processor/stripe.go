// Package processor adapts the payment processor (Stripe Connect) to the
// operations the payment controller needs.
package processor

import (
	"context"
	"errors"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rentcore/internal/domain"
)

type StripeProcessor struct {
	api *client.API
}

func NewStripe(secretKey string) *StripeProcessor {
	return &StripeProcessor{api: client.New(secretKey, nil)}
}

func (p *StripeProcessor) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return otel.Tracer("rentcore/processor").Start(ctx, "processor."+op)
}

func (p *StripeProcessor) CreateCustomer(ctx context.Context, userID int64, email string) (Customer, error) {
	ctx, span := p.start(ctx, "CreateCustomer")
	defer span.End()

	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("user_id", strconv.FormatInt(userID, 10))
	params.SetIdempotencyKey("customer-" + strconv.FormatInt(userID, 10))

	c, err := p.api.Customers.New(params)
	if err != nil {
		return Customer{}, fail(span, "create_customer", err)
	}
	return Customer{ID: c.ID}, nil
}

// AttachInstrument attaches the payment method to the customer unless it is already attached there.
func (p *StripeProcessor) AttachInstrument(ctx context.Context, customerID, token string) (Instrument, error) {
	ctx, span := p.start(ctx, "AttachInstrument")
	defer span.End()

	getParams := &stripe.PaymentMethodParams{}
	getParams.Context = ctx
	pm, err := p.api.PaymentMethods.Get(token, getParams)
	if err != nil {
		return Instrument{}, fail(span, "attach_instrument", err)
	}

	if pm.Customer == nil || pm.Customer.ID != customerID {
		attach := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
		attach.Context = ctx
		pm, err = p.api.PaymentMethods.Attach(token, attach)
		if err != nil {
			return Instrument{}, fail(span, "attach_instrument", err)
		}
	}

	kind := InstrumentCard
	if pm.Type == stripe.PaymentMethodTypeUSBankAccount {
		kind = InstrumentBank
	}
	span.SetAttributes(attribute.String("payment.instrument_type", string(kind)))
	return Instrument{ID: pm.ID, Type: kind, CustomerID: customerID}, nil
}

// Authorize creates and confirms a destination-charge payment intent.
func (p *StripeProcessor) Authorize(ctx context.Context, in AuthorizeParams) (Authorization, error) {
	ctx, span := p.start(ctx, "Authorize")
	defer span.End()

	currency := in.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	captureMethod := stripe.PaymentIntentCaptureMethodAutomatic
	if in.CaptureMode == CaptureManual {
		captureMethod = stripe.PaymentIntentCaptureMethodManual
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(in.AmountCents),
		Currency:           stripe.String(currency),
		Customer:           stripe.String(in.CustomerID),
		PaymentMethod:      stripe.String(in.InstrumentID),
		PaymentMethodTypes: stripe.StringSlice([]string{string(in.InstrumentType)}),
		CaptureMethod:      stripe.String(string(captureMethod)),
		Confirm:            stripe.Bool(true),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(in.Destination),
		},
	}
	params.Context = ctx
	if in.ApplicationFeeCents > 0 {
		params.ApplicationFeeAmount = stripe.Int64(in.ApplicationFeeCents)
	}
	if in.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(in.ReceiptEmail)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	span.SetAttributes(
		attribute.Int64("payment.amount_cents", in.AmountCents),
		attribute.String("payment.capture_mode", string(in.CaptureMode)),
	)

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return Authorization{}, fail(span, "authorize", err)
	}
	return Authorization{IntentID: pi.ID, Status: IntentStatus(pi.Status), AmountCents: pi.Amount}, nil
}

func (p *StripeProcessor) Capture(ctx context.Context, intentID string) (Authorization, error) {
	ctx, span := p.start(ctx, "Capture")
	defer span.End()

	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	params.SetIdempotencyKey("capture-" + intentID)

	pi, err := p.api.PaymentIntents.Capture(intentID, params)
	if err != nil {
		return Authorization{}, fail(span, "capture", err)
	}
	return Authorization{IntentID: pi.ID, Status: IntentStatus(pi.Status), AmountCents: pi.Amount}, nil
}

// fail records err on the span and converts it into a domain.ProcessorFailure.
func fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	return toFailure(op, err)
}

func toFailure(op string, err error) domain.ProcessorFailure {
	var se *stripe.Error
	if errors.As(err, &se) {
		code := string(se.Code)
		if se.DeclineCode != "" {
			code = string(se.DeclineCode)
		}
		return domain.ProcessorFailure{Op: op, Code: code, Message: se.Msg, Err: err}
	}
	return domain.ProcessorFailure{Op: op, Message: err.Error(), Err: err}
}
