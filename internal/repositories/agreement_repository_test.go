package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"rentcore/internal/domain"
	"rentcore/internal/domain/models"
)

var agreementCols = []string{
	"id", "listing_id", "trip_id", "host_id", "renter_id", "start_date", "end_date", "monthly_rent_cents",
	"payment_instrument_id", "payment_intent_id", "payment_status",
	"authorized_at", "captured_at", "landlord_signed_at", "tenant_signed_at",
}

func TestAgreementGetByID_ScansNullableTimes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	authorized := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM payment_agreements WHERE id = \\?").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(agreementCols).AddRow(
			10, 4, 6, 1, 2, start, end, 100000,
			"pm_1", "pi_1", models.PaymentStatusAuthorized,
			authorized, nil, authorized, nil,
		))

	a, err := (AgreementRepository{DB: db}).GetByID(context.Background(), 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.HostID != 1 || a.RenterID != 2 || a.PaymentIntentID != "pi_1" {
		t.Fatalf("unexpected agreement %+v", a)
	}
	if a.AuthorizedAt == nil || !a.AuthorizedAt.Equal(authorized) || a.CapturedAt != nil {
		t.Fatalf("unexpected payment timestamps %+v", a)
	}
	if a.LandlordSignedAt == nil || a.TenantSignedAt != nil || a.FullySigned() {
		t.Fatalf("only the landlord has signed, got %+v", a)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAgreementGetByID_Validation(t *testing.T) {
	if _, err := (AgreementRepository{}).GetByID(context.Background(), 0); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAgreementMarkCaptured_OnlyFromAuthorized(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE payment_agreements SET payment_status = \\?, captured_at = \\?").
		WithArgs(models.PaymentStatusCaptured, at, 10, models.PaymentStatusAuthorized).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := (AgreementRepository{DB: db}).MarkCaptured(context.Background(), 10, at)
	if err != nil || ok {
		t.Fatalf("expected no change, got %v %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAgreementSignatureStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT landlord_signed_at, tenant_signed_at FROM payment_agreements").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"landlord_signed_at", "tenant_signed_at"}).AddRow(nil, time.Now()))
	mock.ExpectQuery("SELECT landlord_signed_at, tenant_signed_at FROM payment_agreements").
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"landlord_signed_at", "tenant_signed_at"}))

	repo := AgreementRepository{DB: db}
	landlord, tenant, err := repo.SignatureStatus(context.Background(), 10)
	if err != nil || landlord || !tenant {
		t.Fatalf("expected tenant only, got %v %v %v", landlord, tenant, err)
	}
	if _, _, err := repo.SignatureStatus(context.Background(), 11); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestScreeningListAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("FROM screening_audit_events WHERE screening_record_id = \\?").
		WithArgs(41).
		WillReturnRows(sqlmock.NewRows([]string{"id", "screening_record_id", "event", "detail", "created_at"}).
			AddRow(1, 41, "attempt.started", `{"retry":false}`, now).
			AddRow(2, 41, "credit.passed", "", now))

	trail, err := (ScreeningRepository{DB: db}).ListAudit(context.Background(), 41)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(trail) != 2 || trail[0].Event != "attempt.started" || string(trail[0].Detail) != `{"retry":false}` {
		t.Fatalf("unexpected trail %+v", trail)
	}
	if trail[1].Detail != nil {
		t.Fatalf("empty detail should stay nil, got %s", trail[1].Detail)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
