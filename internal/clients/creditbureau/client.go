// Package creditbureau is a client for the soft-pull credit bureau.
package creditbureau

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"rentcore/internal/domain"
)

const defaultBucket = "Fair"

// Request is one subject to pull. SSN must be digits only.
type Request struct {
	FirstName string
	LastName  string
	Street    string
	City      string
	State     string
	Zip       string
	SSN       string
	ConsentAt time.Time
}

// Report is a passing credit check.
type Report struct {
	Bucket    string
	ReportURL string
	Raw       json.RawMessage
}

type Client struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
}

func NewClient(baseURL, apiKey, apiSecret string, timeout time.Duration) *Client {
	return &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

type bureauReport struct {
	IdentityScan *struct {
		Message string `json:"message"`
	} `json:"identity_scan"`
	FraudShield *struct {
		Indicators string `json:"Indicators"`
	} `json:"fraud_shield"`
	FailureType string `json:"failure_type"`
}

type bureauResponse struct {
	Reports struct {
		Link       string        `json:"link"`
		TransUnion *bureauReport `json:"transunion"`
		Equifax    *bureauReport `json:"equifax"`
	} `json:"reports"`
	Intelligence struct {
		Name        string `json:"name"`
		Result      string `json:"result"`
		CreditScore string `json:"credit_score"`
	} `json:"intelligence"`
}

// RunCreditCheck posts the subject and classifies the bureau's answer. Every
// failure is a domain.VendorFailure carrying the raw body.
func (c *Client) RunCreditCheck(ctx context.Context, req Request) (Report, error) {
	ctx, span := otel.Tracer("rentcore/creditbureau").Start(ctx, "creditbureau.RunCreditCheck")
	defer span.End()

	if c.baseURL == "" || c.apiKey == "" || c.apiSecret == "" {
		span.SetStatus(codes.Error, "not configured")
		return Report{}, failure(domain.KindNotConfigured, "verification service temporarily unavailable", "", nil)
	}

	form := url.Values{}
	form.Set("first_name", req.FirstName)
	form.Set("last_name", req.LastName)
	form.Set("address", req.Street)
	form.Set("city", req.City)
	form.Set("state", FullStateName(req.State))
	form.Set("zip", req.Zip)
	form.Set("ssn", req.SSN)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Report{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("api-key", c.apiKey)
	httpReq.Header.Set("api-secret", c.apiSecret)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return Report{}, failure(domain.KindAPIError, "credit bureau unreachable", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Report{}, failure(domain.KindAPIError, "failed to read credit bureau response", "", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, "bureau error")
		return Report{}, failure(domain.KindAPIError, fmt.Sprintf("credit bureau error (%d)", resp.StatusCode), string(body), nil)
	}

	var parsed bureauResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Report{}, failure(domain.KindAPIError, "unreadable credit bureau response", string(body), err)
	}

	if invalidSSN(parsed) {
		return Report{}, failure(domain.KindInvalidSSN, "the SSN provided could not be verified", string(body), nil)
	}
	if noCreditFile(parsed) {
		return Report{}, failure(domain.KindNoCreditFile, "no credit file was found for the provided information", string(body), nil)
	}

	bucket := parsed.Intelligence.Name
	if bucket == "" {
		bucket = defaultBucket
	}
	span.SetAttributes(attribute.String("credit.bucket", bucket))
	return Report{Bucket: bucket, ReportURL: parsed.Reports.Link, Raw: body}, nil
}

func invalidSSN(r bureauResponse) bool {
	for _, rep := range []*bureauReport{r.Reports.TransUnion, r.Reports.Equifax} {
		if rep == nil {
			continue
		}
		if rep.IdentityScan != nil && strings.Contains(rep.IdentityScan.Message, "INVALID") {
			return true
		}
		if rep.FraudShield != nil && strings.Contains(rep.FraudShield.Indicators, "INVALID") {
			return true
		}
	}
	return false
}

func noCreditFile(r bureauResponse) bool {
	for _, rep := range []*bureauReport{r.Reports.TransUnion, r.Reports.Equifax} {
		if rep != nil && rep.FailureType == "no-hit" {
			return true
		}
	}
	return r.Intelligence.Result == "Failed" || r.Intelligence.CreditScore == "failed"
}

func failure(kind, msg, raw string, err error) domain.VendorFailure {
	return domain.VendorFailure{
		Vendor:  domain.VendorCreditBureau,
		Kind:    kind,
		Message: msg,
		Raw:     raw,
		Err:     err,
	}
}
