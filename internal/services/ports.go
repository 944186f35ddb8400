package services

import (
	"context"
	"time"

	"rentcore/internal/clients/bgcheck"
	"rentcore/internal/clients/creditbureau"
	"rentcore/internal/clients/processor"
	"rentcore/internal/domain/models"
	"rentcore/internal/repositories"
)

// Collaborators consumed by the services. The repositories and clients in
// this module satisfy them; tests use in-memory fakes.

type CreditStore interface {
	LatestUnredeemed(ctx context.Context, ownerID int64, kinds []string) (models.PurchaseCredit, error)
}

type ScreeningStore interface {
	GetByOrderNumber(ctx context.Context, orderNumber string) (models.ScreeningRecord, error)
	LatestForOwner(ctx context.Context, ownerID int64) (models.ScreeningRecord, error)
	FindOrCreate(ctx context.Context, rec models.ScreeningRecord) (models.ScreeningRecord, bool, error)
	UpdateStatus(ctx context.Context, id int64, u repositories.ScreeningUpdate) error
	CompleteAndRedeem(ctx context.Context, recordID, creditID int64) error
	AppendAudit(ctx context.Context, recordID int64, event string, detail any) error
	ListAudit(ctx context.Context, recordID int64) ([]models.AuditEvent, error)
}

type CreditBureau interface {
	RunCreditCheck(ctx context.Context, req creditbureau.Request) (creditbureau.Report, error)
}

type BackgroundChecker interface {
	SubmitCheck(ctx context.Context, req bgcheck.Request) (bgcheck.Order, error)
}

type AgreementStore interface {
	GetByID(ctx context.Context, id int64) (models.PaymentAgreement, error)
	MarkAuthorized(ctx context.Context, id int64, u repositories.PaymentUpdate) (bool, error)
	MarkCaptured(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkSigned(ctx context.Context, id int64, party string, at time.Time) (bool, error)
}

// SignatureStatus reports which parties have signed the lease for an agreement.
type SignatureStatus interface {
	SignatureStatus(ctx context.Context, agreementID int64) (landlord, tenant bool, err error)
}

type BookingStore interface {
	GetByID(ctx context.Context, id int64) (models.Booking, error)
	GetByAgreementID(ctx context.Context, agreementID int64) (models.Booking, error)
	CreateWithSchedule(ctx context.Context, b models.Booking, payments []models.RentPayment) (models.Booking, error)
	ListPayments(ctx context.Context, bookingID int64) ([]models.RentPayment, error)
}

type UserStore interface {
	PaymentProfile(ctx context.Context, userID int64) (repositories.PaymentProfile, error)
	SetProcessorCustomerID(ctx context.Context, userID int64, customerID string) (string, error)
}

// PayoutAccounts resolves a host's connected payout account.
type PayoutAccounts interface {
	PayoutAccountFor(ctx context.Context, hostID int64) (string, bool, error)
}

type PaymentProcessor interface {
	CreateCustomer(ctx context.Context, userID int64, email string) (processor.Customer, error)
	AttachInstrument(ctx context.Context, customerID, token string) (processor.Instrument, error)
	Authorize(ctx context.Context, in processor.AuthorizeParams) (processor.Authorization, error)
	Capture(ctx context.Context, intentID string) (processor.Authorization, error)
}
