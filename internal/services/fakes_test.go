package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"rentcore/internal/clients/bgcheck"
	"rentcore/internal/clients/creditbureau"
	"rentcore/internal/clients/processor"
	"rentcore/internal/domain"
	"rentcore/internal/domain/models"
	"rentcore/internal/repositories"
)

type memCredits struct {
	mu      sync.Mutex
	credits []models.PurchaseCredit
}

func (m *memCredits) LatestUnredeemed(_ context.Context, ownerID int64, kinds []string) (models.PurchaseCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.PurchaseCredit
	for i := range m.credits {
		c := &m.credits[i]
		if c.OwnerID != ownerID || c.IsRedeemed || !contains(kinds, c.Kind) {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	if best == nil {
		return models.PurchaseCredit{}, domain.NotFoundError{Resource: "purchase credit"}
	}
	return *best, nil
}

func (m *memCredits) redeem(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.credits {
		if m.credits[i].ID == id {
			m.credits[i].IsRedeemed = true
		}
	}
}

func (m *memCredits) redeemed(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.credits {
		if c.ID == id {
			return c.IsRedeemed
		}
	}
	return false
}

type auditRow struct {
	recordID int64
	event    string
	detail   string
}

type memScreenings struct {
	mu      sync.Mutex
	credits *memCredits
	records map[int64]*models.ScreeningRecord
	audit   []auditRow
	nextID  int64
}

func newMemScreenings(credits *memCredits) *memScreenings {
	return &memScreenings{credits: credits, records: map[int64]*models.ScreeningRecord{}, nextID: 100}
}

func (m *memScreenings) find(pred func(*models.ScreeningRecord) bool) (models.ScreeningRecord, error) {
	ids := make([]int64, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	for _, id := range ids {
		if pred(m.records[id]) {
			return *m.records[id], nil
		}
	}
	return models.ScreeningRecord{}, domain.NotFoundError{Resource: "screening record"}
}

func (m *memScreenings) GetByOrderNumber(_ context.Context, orderNumber string) (models.ScreeningRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(r *models.ScreeningRecord) bool { return r.VendorOrderNumber == orderNumber })
}

func (m *memScreenings) LatestForOwner(_ context.Context, ownerID int64) (models.ScreeningRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(r *models.ScreeningRecord) bool { return r.OwnerID == ownerID })
}

func (m *memScreenings) FindOrCreate(_ context.Context, rec models.ScreeningRecord) (models.ScreeningRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.PurchaseCreditID != rec.PurchaseCreditID {
			continue
		}
		switch existing.Status {
		case models.ScreeningProcessingBGS, models.ScreeningComplete:
			return models.ScreeningRecord{}, false, domain.PreconditionFailedError{Reason: "already submitted"}
		}
		existing.Status = models.ScreeningProcessingCredit
		existing.SubjectFirstName = rec.SubjectFirstName
		existing.SubjectLastName = rec.SubjectLastName
		existing.CreditBucket = ""
		existing.VendorOrderNumber = ""
		existing.LastErrorKind = ""
		return *existing, false, nil
	}
	m.nextID++
	rec.ID = m.nextID
	rec.Status = models.ScreeningProcessingCredit
	m.records[rec.ID] = &rec
	return rec, true, nil
}

func (m *memScreenings) UpdateStatus(_ context.Context, id int64, u repositories.ScreeningUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return domain.NotFoundError{Resource: "screening record"}
	}
	r.Status = u.Status
	r.LastErrorKind = u.LastErrorKind
	if u.CreditBucket != nil {
		r.CreditBucket = *u.CreditBucket
	}
	if u.VendorOrderNumber != nil {
		r.VendorOrderNumber = *u.VendorOrderNumber
	}
	return nil
}

func (m *memScreenings) CompleteAndRedeem(_ context.Context, recordID, creditID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[recordID]; ok && r.Status == models.ScreeningProcessingBGS {
		r.Status = models.ScreeningComplete
	}
	m.credits.redeem(creditID)
	return nil
}

func (m *memScreenings) AppendAudit(_ context.Context, recordID int64, event string, detail any) error {
	b, _ := json.Marshal(detail)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, auditRow{recordID: recordID, event: event, detail: string(b)})
	return nil
}

func (m *memScreenings) ListAudit(_ context.Context, recordID int64) ([]models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditEvent
	for i, a := range m.audit {
		if a.recordID == recordID {
			out = append(out, models.AuditEvent{
				ID:                int64(i + 1),
				ScreeningRecordID: a.recordID,
				Event:             a.event,
				Detail:            json.RawMessage(a.detail),
			})
		}
	}
	return out, nil
}

func (m *memScreenings) events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.audit))
	for _, a := range m.audit {
		out = append(out, a.event)
	}
	return out
}

func (m *memScreenings) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type fakeBureau struct {
	mu     sync.Mutex
	calls  int
	report creditbureau.Report
	err    error
}

func (f *fakeBureau) RunCreditCheck(context.Context, creditbureau.Request) (creditbureau.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.report, f.err
}

type fakeBackground struct {
	mu    sync.Mutex
	calls int
	last  bgcheck.Request
	order bgcheck.Order
	err   error
}

func (f *fakeBackground) SubmitCheck(_ context.Context, req bgcheck.Request) (bgcheck.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	return f.order, f.err
}

type memAgreements struct {
	mu    sync.Mutex
	rows  map[int64]*models.PaymentAgreement
	reads int
}

func (m *memAgreements) GetByID(_ context.Context, id int64) (models.PaymentAgreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	a, ok := m.rows[id]
	if !ok {
		return models.PaymentAgreement{}, domain.NotFoundError{Resource: "payment agreement"}
	}
	return *a, nil
}

func (m *memAgreements) MarkAuthorized(_ context.Context, id int64, u repositories.PaymentUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || a.PaymentStatus != models.PaymentStatusNone {
		return false, nil
	}
	at := u.AuthorizedAt
	a.PaymentInstrumentID = u.InstrumentID
	a.PaymentIntentID = u.IntentID
	a.PaymentStatus = u.Status
	a.AuthorizedAt = &at
	a.CapturedAt = u.CapturedAt
	return true, nil
}

func (m *memAgreements) MarkCaptured(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || a.PaymentStatus != models.PaymentStatusAuthorized {
		return false, nil
	}
	a.PaymentStatus = models.PaymentStatusCaptured
	a.CapturedAt = &at
	return true, nil
}

func (m *memAgreements) MarkSigned(_ context.Context, id int64, party string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	switch party {
	case repositories.PartyLandlord:
		if a.LandlordSignedAt != nil {
			return false, nil
		}
		a.LandlordSignedAt = &at
	case repositories.PartyTenant:
		if a.TenantSignedAt != nil {
			return false, nil
		}
		a.TenantSignedAt = &at
	}
	return true, nil
}

func (m *memAgreements) SignatureStatus(_ context.Context, id int64) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return false, false, domain.NotFoundError{Resource: "payment agreement"}
	}
	return a.LandlordSignedAt != nil, a.TenantSignedAt != nil, nil
}

type memBookings struct {
	mu        sync.Mutex
	rows      map[int64]models.Booking
	payments  map[int64][]models.RentPayment
	nextID    int64
	inserts   int
	conflicts int
}

func newMemBookings() *memBookings {
	return &memBookings{rows: map[int64]models.Booking{}, payments: map[int64][]models.RentPayment{}, nextID: 500}
}

func (m *memBookings) GetByID(_ context.Context, id int64) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, nil
}

func (m *memBookings) GetByAgreementID(_ context.Context, agreementID int64) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.PaymentAgreementID == agreementID {
			return b, nil
		}
	}
	return models.Booking{}, domain.NotFoundError{Resource: "booking"}
}

func (m *memBookings) CreateWithSchedule(_ context.Context, b models.Booking, payments []models.RentPayment) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.PaymentAgreementID == b.PaymentAgreementID {
			m.conflicts++
			return models.Booking{}, domain.ConflictError{Resource: "booking", Msg: "already exists for agreement"}
		}
	}
	m.nextID++
	m.inserts++
	b.ID = m.nextID
	m.rows[b.ID] = b
	stored := make([]models.RentPayment, len(payments))
	for i, p := range payments {
		p.ID = int64(i + 1)
		p.BookingID = b.ID
		stored[i] = p
	}
	m.payments[b.ID] = stored
	return b, nil
}

func (m *memBookings) ListPayments(_ context.Context, bookingID int64) ([]models.RentPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.RentPayment(nil), m.payments[bookingID]...), nil
}

type memUsers struct {
	mu       sync.Mutex
	profiles map[int64]*repositories.PaymentProfile
	// raceWinner is stored by a concurrent request just before SetProcessorCustomerID runs.
	raceWinner string
}

func (m *memUsers) PaymentProfile(_ context.Context, userID int64) (repositories.PaymentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return repositories.PaymentProfile{}, domain.NotFoundError{Resource: "user"}
	}
	return *p, nil
}

func (m *memUsers) SetProcessorCustomerID(_ context.Context, userID int64, customerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profiles[userID]
	if m.raceWinner != "" && p.ProcessorCustomerID == "" {
		p.ProcessorCustomerID = m.raceWinner
	}
	if p.ProcessorCustomerID == "" {
		p.ProcessorCustomerID = customerID
	}
	return p.ProcessorCustomerID, nil
}

func (m *memUsers) PayoutAccountFor(_ context.Context, hostID int64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[hostID]
	if !ok || p.PayoutAccountID == "" {
		return "", false, nil
	}
	return p.PayoutAccountID, true, nil
}

type fakeProcessor struct {
	mu             sync.Mutex
	instrumentType processor.InstrumentType
	status         processor.IntentStatus
	captureStatus  processor.IntentStatus
	customers      int
	attaches       int
	authorizations []processor.AuthorizeParams
	captures       int
}

func (f *fakeProcessor) CreateCustomer(context.Context, int64, string) (processor.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers++
	return processor.Customer{ID: "cus_new"}, nil
}

func (f *fakeProcessor) AttachInstrument(_ context.Context, customerID, token string) (processor.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attaches++
	kind := f.instrumentType
	if kind == "" {
		kind = processor.InstrumentCard
	}
	return processor.Instrument{ID: token, Type: kind, CustomerID: customerID}, nil
}

func (f *fakeProcessor) Authorize(_ context.Context, in processor.AuthorizeParams) (processor.Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorizations = append(f.authorizations, in)
	status := f.status
	if status == "" {
		if in.CaptureMode == processor.CaptureManual {
			status = processor.StatusRequiresCapture
		} else {
			status = processor.StatusSucceeded
		}
	}
	return processor.Authorization{IntentID: "pi_1", Status: status, AmountCents: in.AmountCents}, nil
}

func (f *fakeProcessor) Capture(_ context.Context, intentID string) (processor.Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	status := f.captureStatus
	if status == "" {
		status = processor.StatusSucceeded
	}
	return processor.Authorization{IntentID: intentID, Status: status}, nil
}

func (f *fakeProcessor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.customers + f.attaches + len(f.authorizations) + f.captures
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
