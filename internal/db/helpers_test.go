package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestIsDuplicateKey(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	if !IsDuplicateKey(fmt.Errorf("insert: %w", dup)) {
		t.Fatalf("wrapped 1062 must be detected")
	}
	if IsDuplicateKey(&mysql.MySQLError{Number: 1213}) || IsDuplicateKey(errors.New("1062")) {
		t.Fatalf("only MySQL 1062 is a duplicate key")
	}
}

func TestNullHelpers(t *testing.T) {
	if NullIfEmpty("") != nil || NullIfEmpty("x") != "x" {
		t.Fatalf("NullIfEmpty mismatch")
	}
	if NullTime(nil) != nil {
		t.Fatalf("nil time must be NULL")
	}
	now := time.Now()
	if TimePtr(sql.NullTime{}) != nil || !TimePtr(sql.NullTime{Time: now, Valid: true}).Equal(now) {
		t.Fatalf("TimePtr mismatch")
	}
}

func TestHasTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("bookings").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("bookings"))
	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	if !HasTable(context.Background(), db, "bookings") {
		t.Fatalf("expected bookings to exist")
	}
	if HasTable(context.Background(), db, "missing") {
		t.Fatalf("expected missing table")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = WithTx(context.Background(), db, func(*sql.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
