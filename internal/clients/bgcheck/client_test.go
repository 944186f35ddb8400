package bgcheck

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rentcore/internal/domain"
)

func sampleRequest() Request {
	return Request{
		Reference: "credit-9",
		FirstName: "Ada", LastName: "Lovelace", DOB: "1990-12-10", SSN: "123456789",
		Street: "1 Main St", City: "Austin", State: "tx", Zip: "78701",
		ConsentAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSubmitCheck_Accepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var o orderXML
		if err := xml.Unmarshal(body, &o); err != nil {
			t.Errorf("order is not valid XML: %v", err)
		}
		if o.Login.Account != "acct" || o.PlaceOrder.Number != "credit-9" || o.PlaceOrder.Subject.State != "TX" {
			t.Errorf("unexpected order: %+v", o)
		}
		_, _ = w.Write([]byte(`<?xml version="1.0"?><XML><order_number>BG-1001</order_number><status>pending</status><message>ok</message></XML>`))
	}))
	defer srv.Close()

	order, err := NewClient(srv.URL, "acct", "pw", time.Second).SubmitCheck(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
	if order.OrderNumber != "BG-1001" || order.Status != "pending" {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestSubmitCheck_ErrorNode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<XML><error><errortext>Invalid DOB</errortext></error></XML>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "acct", "pw", time.Second).SubmitCheck(context.Background(), sampleRequest())
	vf, ok := domain.AsVendorFailure(err)
	if !ok {
		t.Fatalf("expected vendor failure, got %v", err)
	}
	if vf.Kind != domain.KindRejected || vf.Message != "Invalid DOB" || vf.Vendor != domain.VendorBackgroundCheck {
		t.Fatalf("unexpected failure: %+v", vf)
	}
}

func TestSubmitCheck_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`maintenance`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "acct", "pw", time.Second).SubmitCheck(context.Background(), sampleRequest())
	vf, ok := domain.AsVendorFailure(err)
	if !ok || vf.Kind != domain.KindAPIError || vf.Raw != "maintenance" {
		t.Fatalf("expected api error with raw body, got %v", err)
	}
	if !vf.Retryable() {
		t.Fatalf("vendor outage should be retryable")
	}
}

func TestSubmitCheck_MissingOrderNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<XML><status>pending</status></XML>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "acct", "pw", time.Second).SubmitCheck(context.Background(), sampleRequest())
	if _, ok := domain.AsVendorFailure(err); !ok {
		t.Fatalf("expected vendor failure, got %v", err)
	}
}
