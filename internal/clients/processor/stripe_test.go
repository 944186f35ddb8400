package processor

import (
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v76"

	"rentcore/internal/domain"
)

func TestToFailure_StripeError(t *testing.T) {
	err := &stripe.Error{Code: stripe.ErrorCodeCardDeclined, DeclineCode: stripe.DeclineCodeInsufficientFunds, Msg: "Your card has insufficient funds."}

	f := toFailure("authorize", err)
	if f.Code != string(stripe.DeclineCodeInsufficientFunds) {
		t.Fatalf("expected decline code, got %q", f.Code)
	}
	if f.Message != "Your card has insufficient funds." || f.Op != "authorize" {
		t.Fatalf("unexpected failure: %+v", f)
	}
	if _, ok := domain.AsProcessorFailure(error(f)); !ok {
		t.Fatalf("expected processor failure to be matchable")
	}
}

func TestToFailure_TransportError(t *testing.T) {
	f := toFailure("capture", errors.New("connection reset"))
	if f.Code != "" || f.Message != "connection reset" {
		t.Fatalf("unexpected failure: %+v", f)
	}
	if !errors.Is(f, f.Err) {
		t.Fatalf("expected wrapped error to be preserved")
	}
}

func TestCaptureModeValid(t *testing.T) {
	if !CaptureManual.Valid() || !CaptureAutomatic.Valid() {
		t.Fatalf("known modes must be valid")
	}
	if CaptureMode("").Valid() || CaptureMode("later").Valid() {
		t.Fatalf("unknown modes must be rejected")
	}
}
