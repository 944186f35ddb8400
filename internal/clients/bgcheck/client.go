// Package bgcheck submits background-check orders to the screening vendor's XML endpoint.
package bgcheck

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"rentcore/internal/domain"
)

type Request struct {
	// Reference is echoed back by the vendor on completion.
	Reference string
	FirstName string
	LastName  string
	DOB       string // YYYY-MM-DD
	SSN       string
	Street    string
	City      string
	State     string
	Zip       string
	ConsentAt time.Time
}

// Order is an accepted submission; results arrive later by callback.
type Order struct {
	OrderNumber string
	Status      string
	Message     string
}

type Client struct {
	baseURL  string
	account  string
	username string
	password string
	client   *http.Client
}

func NewClient(baseURL, account, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  baseURL,
		account:  account,
		username: account,
		password: password,
		client:   &http.Client{Timeout: timeout},
	}
}

type orderXML struct {
	XMLName xml.Name `xml:"New_Order"`
	Login   struct {
		Account  string `xml:"account"`
		Username string `xml:"username"`
		Password string `xml:"password"`
	} `xml:"login"`
	PlaceOrder struct {
		Number  string `xml:"number,attr"`
		Subject struct {
			FirstName string `xml:"name_first"`
			LastName  string `xml:"name_last"`
			DOB       string `xml:"dob"`
			SSN       string `xml:"ssn"`
			Address   string `xml:"address"`
			City      string `xml:"city"`
			State     string `xml:"state"`
			Zip       string `xml:"zip"`
		} `xml:"subject"`
		Consent string   `xml:"consent_date"`
		Package string   `xml:"package"`
		Search  []string `xml:"search>type"`
	} `xml:"placeOrder"`
}

type responseXML struct {
	XMLName     xml.Name `xml:"XML"`
	OrderNumber string   `xml:"order_number"`
	Status      string   `xml:"status"`
	Message     string   `xml:"message"`
	Error       *struct {
		Text string `xml:"errortext"`
	} `xml:"error"`
}

// SubmitCheck places the order. A non-2xx status or an <error> node is a
// domain.VendorFailure; the raw body is kept for support.
func (c *Client) SubmitCheck(ctx context.Context, req Request) (Order, error) {
	ctx, span := otel.Tracer("rentcore/bgcheck").Start(ctx, "bgcheck.SubmitCheck")
	defer span.End()

	if c.baseURL == "" || c.account == "" || c.password == "" {
		span.SetStatus(codes.Error, "not configured")
		return Order{}, failure(domain.KindNotConfigured, "background check service temporarily unavailable", "", nil)
	}

	payload, err := c.buildOrder(req)
	if err != nil {
		return Order{}, failure(domain.KindInvalidSubmission, "could not build order", "", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return Order{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return Order{}, failure(domain.KindAPIError, "background check vendor unreachable", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Order{}, failure(domain.KindAPIError, "failed to read vendor response", "", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	var parsed responseXML
	parseErr := xml.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, "vendor error")
		msg := fmt.Sprintf("background check vendor error (%d)", resp.StatusCode)
		if parseErr == nil && parsed.Error != nil && parsed.Error.Text != "" {
			msg = parsed.Error.Text
		}
		return Order{}, failure(domain.KindAPIError, msg, string(body), nil)
	}
	if parseErr != nil {
		return Order{}, failure(domain.KindAPIError, "unreadable vendor response", string(body), parseErr)
	}
	if parsed.Error != nil {
		span.SetStatus(codes.Error, "order rejected")
		msg := strings.TrimSpace(parsed.Error.Text)
		if msg == "" {
			msg = "order rejected"
		}
		return Order{}, failure(domain.KindRejected, msg, string(body), nil)
	}
	if strings.TrimSpace(parsed.OrderNumber) == "" {
		return Order{}, failure(domain.KindAPIError, "vendor response has no order number", string(body), nil)
	}

	span.SetAttributes(attribute.String("bgcheck.order_number", parsed.OrderNumber))
	return Order{
		OrderNumber: strings.TrimSpace(parsed.OrderNumber),
		Status:      parsed.Status,
		Message:     parsed.Message,
	}, nil
}

func (c *Client) buildOrder(req Request) ([]byte, error) {
	var o orderXML
	o.Login.Account = c.account
	o.Login.Username = c.username
	o.Login.Password = c.password
	o.PlaceOrder.Number = req.Reference
	o.PlaceOrder.Subject.FirstName = req.FirstName
	o.PlaceOrder.Subject.LastName = req.LastName
	o.PlaceOrder.Subject.DOB = req.DOB
	o.PlaceOrder.Subject.SSN = req.SSN
	o.PlaceOrder.Subject.Address = req.Street
	o.PlaceOrder.Subject.City = req.City
	o.PlaceOrder.Subject.State = strings.ToUpper(req.State)
	o.PlaceOrder.Subject.Zip = req.Zip
	o.PlaceOrder.Consent = req.ConsentAt.UTC().Format(time.RFC3339)
	o.PlaceOrder.Package = "rental_screening"
	o.PlaceOrder.Search = []string{"national_criminal", "sex_offender", "eviction"}

	out, err := xml.Marshal(o)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func failure(kind, msg, raw string, err error) domain.VendorFailure {
	return domain.VendorFailure{
		Vendor:  domain.VendorBackgroundCheck,
		Kind:    kind,
		Message: msg,
		Raw:     raw,
		Err:     err,
	}
}
