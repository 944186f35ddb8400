package services

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"rentcore/internal/clients/bgcheck"
	"rentcore/internal/clients/creditbureau"
	"rentcore/internal/domain"
	"rentcore/internal/domain/models"
	"rentcore/internal/events"
	"rentcore/internal/repositories"
	"rentcore/internal/utils"
)

// Audit events written to screening_audit_events.
const (
	AuditAttemptStarted       = "attempt.started"
	AuditCreditPassed         = "credit.passed"
	AuditCreditFailed         = "credit.failed"
	AuditBackgroundSubmitted  = "background.submitted"
	AuditBackgroundFailed     = "background.failed"
	AuditScreeningCompleted   = "screening.completed"
	AuditCompletionDuplicated = "completion.duplicate"
)

var stateCode = regexp.MustCompile(`^[A-Za-z]{2}$`)

type Subject struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
	SSN       string `json:"ssn"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

// Consent holds the timestamps at which the subject agreed to each check.
type Consent struct {
	CreditCheckAt     *time.Time `json:"credit_check_at"`
	BackgroundCheckAt *time.Time `json:"background_check_at"`
}

type ScreeningRequest struct {
	Subject Subject `json:"subject"`
	Consent Consent `json:"consent"`
}

type ScreeningResult struct {
	RecordID     int64  `json:"record_id"`
	Status       string `json:"status"`
	CreditBucket string `json:"credit_bucket,omitempty"`
	OrderNumber  string `json:"order_number,omitempty"`
	LastError    string `json:"last_error_kind,omitempty"`
}

// CompletionNotice is what the background-check vendor reports when an order finishes.
type CompletionNotice struct {
	OrderNumber string `json:"order_number"`
	Outcome     string `json:"outcome"`
}

// ScreeningCompleter finishes a screening once the background check reports back.
type ScreeningCompleter interface {
	CompleteScreening(ctx context.Context, notice CompletionNotice) (ScreeningResult, error)
}

// ScreeningService runs the credit check and then the background check
// against one purchase credit, keeping one record per credit across retries.
type ScreeningService struct {
	Credits        CreditStore
	Records        ScreeningStore
	Bureau         CreditBureau
	Background     BackgroundChecker
	Events         events.Publisher
	FingerprintKey []byte
	RequestID      string
	Now            func() time.Time
}

func (s ScreeningService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return utils.NowUTC()
}

func (s ScreeningService) RunScreening(ctx context.Context, caller domain.Caller, req ScreeningRequest) (ScreeningResult, error) {
	if err := domain.RequireCaller(caller); err != nil {
		return ScreeningResult{}, err
	}
	subject, err := s.validate(req)
	if err != nil {
		return ScreeningResult{}, err
	}
	ownerID := int64(caller.UserID)

	credit, err := s.Credits.LatestUnredeemed(ctx, ownerID, models.ScreeningCreditKinds)
	if domain.IsNotFound(err) {
		return ScreeningResult{}, domain.NoEntitlementError{Entitlement: "screening"}
	}
	if err != nil {
		return ScreeningResult{}, err
	}

	rec, created, err := s.Records.FindOrCreate(ctx, models.ScreeningRecord{
		OwnerID:          ownerID,
		PurchaseCreditID: credit.ID,
		SubjectFirstName: subject.FirstName,
		SubjectLastName:  subject.LastName,
	})
	if err != nil {
		return ScreeningResult{}, err
	}
	s.audit(ctx, rec.ID, AuditAttemptStarted, map[string]any{
		"credit_id":       credit.ID,
		"retry":           !created,
		"ssn_fingerprint": utils.Fingerprint(s.FingerprintKey, subject.SSN),
	})
	utils.LogEvent(s.RequestID, "screening", "run", "attempt started",
		zap.Int64("record_id", rec.ID), zap.Int64("credit_id", credit.ID), zap.Bool("retry", !created))

	report, err := s.Bureau.RunCreditCheck(ctx, creditbureau.Request{
		FirstName: subject.FirstName,
		LastName:  subject.LastName,
		Street:    subject.Street,
		City:      subject.City,
		State:     subject.State,
		Zip:       subject.Zip,
		SSN:       subject.SSN,
		ConsentAt: *req.Consent.CreditCheckAt,
	})
	if err != nil {
		return s.fail(ctx, rec, models.ScreeningCreditFailed, AuditCreditFailed, domain.VendorCreditBureau, err)
	}

	bucket := report.Bucket
	if err := s.Records.UpdateStatus(ctx, rec.ID, repositories.ScreeningUpdate{
		Status:       models.ScreeningProcessingCredit,
		CreditBucket: &bucket,
	}); err != nil {
		return ScreeningResult{}, err
	}
	s.audit(ctx, rec.ID, AuditCreditPassed, map[string]any{"bucket": bucket})

	order, err := s.Background.SubmitCheck(ctx, bgcheck.Request{
		Reference: referenceFor(credit.ID),
		FirstName: subject.FirstName,
		LastName:  subject.LastName,
		DOB:       subject.DOB,
		SSN:       subject.SSN,
		Street:    subject.Street,
		City:      subject.City,
		State:     subject.State,
		Zip:       subject.Zip,
		ConsentAt: *req.Consent.BackgroundCheckAt,
	})
	if err != nil {
		res, ferr := s.fail(ctx, rec, models.ScreeningFailed, AuditBackgroundFailed, domain.VendorBackgroundCheck, err)
		res.CreditBucket = bucket
		return res, ferr
	}

	orderNumber := order.OrderNumber
	if err := s.Records.UpdateStatus(ctx, rec.ID, repositories.ScreeningUpdate{
		Status:            models.ScreeningProcessingBGS,
		CreditBucket:      &bucket,
		VendorOrderNumber: &orderNumber,
	}); err != nil {
		return ScreeningResult{}, err
	}
	s.audit(ctx, rec.ID, AuditBackgroundSubmitted, map[string]any{"order_number": orderNumber, "vendor_status": order.Status})
	s.publish(ctx, events.ScreeningSubmitted, map[string]any{
		"record_id":    rec.ID,
		"owner_id":     ownerID,
		"order_number": orderNumber,
		"bucket":       bucket,
	})
	utils.LogEvent(s.RequestID, "screening", "run", "background check submitted",
		zap.Int64("record_id", rec.ID), zap.String("order_number", orderNumber))

	return ScreeningResult{
		RecordID:     rec.ID,
		Status:       models.ScreeningProcessingBGS,
		CreditBucket: bucket,
		OrderNumber:  orderNumber,
	}, nil
}

// fail stores the terminal status for this attempt and returns the vendor
// failure. The purchase credit is left unredeemed.
func (s ScreeningService) fail(ctx context.Context, rec models.ScreeningRecord, status, event, vendor string, cause error) (ScreeningResult, error) {
	vf, ok := domain.AsVendorFailure(cause)
	if !ok {
		vf = domain.VendorFailure{Vendor: vendor, Kind: domain.KindAPIError, Message: cause.Error(), Err: cause}
	}

	if err := s.Records.UpdateStatus(ctx, rec.ID, repositories.ScreeningUpdate{
		Status:        status,
		LastErrorKind: vf.Kind,
	}); err != nil {
		return ScreeningResult{}, errors.Join(vf, err)
	}
	// Vendor bodies can echo applicant data; only their size is audited.
	s.audit(ctx, rec.ID, event, map[string]any{"kind": vf.Kind, "message": vf.Message, "raw_bytes": len(vf.Raw)})
	utils.LogWarn(s.RequestID, "screening", "run", "vendor failure",
		zap.Int64("record_id", rec.ID), zap.String("vendor", vf.Vendor), zap.String("kind", vf.Kind))

	return ScreeningResult{RecordID: rec.ID, Status: status, LastError: vf.Kind}, vf
}

// CompleteScreening marks a submitted screening COMPLETE and redeems its
// credit. Repeated notices for a completed order are no-ops.
func (s ScreeningService) CompleteScreening(ctx context.Context, notice CompletionNotice) (ScreeningResult, error) {
	orderNumber := strings.TrimSpace(notice.OrderNumber)
	if orderNumber == "" {
		return ScreeningResult{}, domain.ValidationError{Field: "order_number", Msg: "required"}
	}

	rec, err := s.Records.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return ScreeningResult{}, err
	}
	result := ScreeningResult{
		RecordID:     rec.ID,
		Status:       rec.Status,
		CreditBucket: rec.CreditBucket,
		OrderNumber:  rec.VendorOrderNumber,
	}

	switch rec.Status {
	case models.ScreeningComplete:
		s.audit(ctx, rec.ID, AuditCompletionDuplicated, map[string]any{"order_number": orderNumber})
		return result, nil
	case models.ScreeningProcessingBGS:
	default:
		return ScreeningResult{}, domain.PreconditionFailedError{Reason: "screening is not awaiting a background check (" + rec.Status + ")"}
	}

	if err := s.Records.CompleteAndRedeem(ctx, rec.ID, rec.PurchaseCreditID); err != nil {
		return ScreeningResult{}, err
	}
	s.audit(ctx, rec.ID, AuditScreeningCompleted, map[string]any{"order_number": orderNumber, "outcome": notice.Outcome})
	s.publish(ctx, events.ScreeningCompleted, map[string]any{
		"record_id":    rec.ID,
		"owner_id":     rec.OwnerID,
		"order_number": orderNumber,
		"outcome":      notice.Outcome,
	})
	utils.LogEvent(s.RequestID, "screening", "complete", "screening completed",
		zap.Int64("record_id", rec.ID), zap.String("order_number", orderNumber))

	result.Status = models.ScreeningComplete
	return result, nil
}

func (s ScreeningService) GetScreening(ctx context.Context, caller domain.Caller) (ScreeningResult, error) {
	if err := domain.RequireCaller(caller); err != nil {
		return ScreeningResult{}, err
	}
	rec, err := s.Records.LatestForOwner(ctx, int64(caller.UserID))
	if err != nil {
		return ScreeningResult{}, err
	}
	return ScreeningResult{
		RecordID:     rec.ID,
		Status:       rec.Status,
		CreditBucket: rec.CreditBucket,
		OrderNumber:  rec.VendorOrderNumber,
		LastError:    rec.LastErrorKind,
	}, nil
}

// AuditTrail returns the audit entries of the caller's latest screening.
// Entries carry fingerprints, never raw identifiers.
func (s ScreeningService) AuditTrail(ctx context.Context, caller domain.Caller) ([]models.AuditEvent, error) {
	if err := domain.RequireCaller(caller); err != nil {
		return nil, err
	}
	rec, err := s.Records.LatestForOwner(ctx, int64(caller.UserID))
	if err != nil {
		return nil, err
	}
	return s.Records.ListAudit(ctx, rec.ID)
}

// validate normalizes the subject and reports every bad field at once.
func (s ScreeningService) validate(req ScreeningRequest) (Subject, error) {
	sub := Subject{
		FirstName: utils.NormalizeSpace(req.Subject.FirstName),
		LastName:  utils.NormalizeSpace(req.Subject.LastName),
		DOB:       utils.TrimOrEmpty(req.Subject.DOB),
		SSN:       utils.DigitsOnly(req.Subject.SSN),
		Street:    utils.NormalizeSpace(req.Subject.Street),
		City:      utils.NormalizeSpace(req.Subject.City),
		State:     strings.ToUpper(utils.TrimOrEmpty(req.Subject.State)),
		Zip:       utils.TrimOrEmpty(req.Subject.Zip),
	}

	var fields []domain.FieldError
	required := func(field, value string) {
		if value == "" {
			fields = append(fields, domain.FieldError{Field: field, Msg: "is required"})
		}
	}
	required("first_name", sub.FirstName)
	required("last_name", sub.LastName)
	required("street", sub.Street)
	required("city", sub.City)

	if !stateCode.MatchString(sub.State) {
		fields = append(fields, domain.FieldError{Field: "state", Msg: "must be a two-letter code"})
	}
	if zip := utils.DigitsOnly(sub.Zip); len(zip) != 5 && len(zip) != 9 {
		fields = append(fields, domain.FieldError{Field: "zip", Msg: "must be 5 or 9 digits"})
	}
	if len(sub.SSN) != 9 {
		fields = append(fields, domain.FieldError{Field: "ssn", Msg: "must be 9 digits"})
	}
	if sub.DOB == "" {
		fields = append(fields, domain.FieldError{Field: "dob", Msg: "is required"})
	} else if dob, err := utils.ParseDate(sub.DOB); err != nil {
		fields = append(fields, domain.FieldError{Field: "dob", Msg: "must be YYYY-MM-DD"})
	} else if !dob.Before(s.now()) {
		fields = append(fields, domain.FieldError{Field: "dob", Msg: "must be in the past"})
	}
	if req.Consent.CreditCheckAt == nil || req.Consent.CreditCheckAt.IsZero() {
		fields = append(fields, domain.FieldError{Field: "consent.credit_check_at", Msg: "is required"})
	}
	if req.Consent.BackgroundCheckAt == nil || req.Consent.BackgroundCheckAt.IsZero() {
		fields = append(fields, domain.FieldError{Field: "consent.background_check_at", Msg: "is required"})
	}

	if len(fields) > 0 {
		return Subject{}, domain.ValidationError{Fields: fields}
	}
	return sub, nil
}

// audit is best effort; a lost audit row must not fail the screening.
func (s ScreeningService) audit(ctx context.Context, recordID int64, event string, detail any) {
	if err := s.Records.AppendAudit(ctx, recordID, event, detail); err != nil {
		utils.LogWarn(s.RequestID, "screening", "audit", "append audit failed",
			zap.Int64("record_id", recordID), zap.String("event", event), zap.Error(err))
	}
}

func (s ScreeningService) publish(ctx context.Context, key string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, key, payload); err != nil {
		utils.LogWarn(s.RequestID, "screening", "publish", "publish event failed",
			zap.String("event", key), zap.Error(err))
	}
}

func referenceFor(creditID int64) string {
	return "credit-" + strconv.FormatInt(creditID, 10)
}
