package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code       Code
		status     int
		publicMsg  string
		retryable  bool
		detailsOK  bool
		userFacing bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true, userFacing: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required", userFacing: true},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied", userFacing: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", userFacing: true},
		{code: CodeInvalidState, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true, userFacing: true},
		{code: CodeAlreadyResolved, status: http.StatusConflict, publicMsg: "dispute already resolved", userFacing: true},
		{code: CodeAlreadyProcessed, status: http.StatusConflict, publicMsg: "payout request already processed", userFacing: true},
		{code: CodeInsufficientFunds, status: http.StatusUnprocessableEntity, publicMsg: "insufficient funds", detailsOK: true, userFacing: true},
		{code: CodeInsufficientPending, status: http.StatusInternalServerError, publicMsg: "settlement could not be completed"},
		{code: CodeListingUnavailable, status: http.StatusConflict, publicMsg: "listing is not available for purchase", userFacing: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
		if meta.UserFacing != tt.userFacing {
			t.Fatalf("code %s expected user facing %v got %v", tt.code, tt.userFacing, meta.UserFacing)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "amount must be positive")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "amount must be positive" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "amount"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "load wallet")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if got := wrapped.Error(); got != "DEPENDENCY_ERROR: load wallet: boom" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestAsAndCodeOf(t *testing.T) {
	err := fmt.Errorf("resolve: %w", New(CodeAlreadyResolved, "dispute already resolved"))
	if got := As(err); got == nil || got.Code() != CodeAlreadyResolved {
		t.Fatalf("As failed to return typed error")
	}
	if !IsCode(err, CodeAlreadyResolved) {
		t.Fatalf("expected IsCode to match wrapped code")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("untyped errors should map to internal")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatalf("nil error should not match any code")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection reset"), "debit balance")
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(dump.Chain))
	}
	if dump.Postgres.Code != "" {
		t.Fatalf("expected no postgres code, got %q", dump.Postgres.Code)
	}
	if !dump.Retryable {
		t.Fatalf("dependency errors should dump as retryable")
	}
}

func TestDumpReadsPostgresErrorsFromEitherDriver(t *testing.T) {
	pgxErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23514", ConstraintName: "wallets_balance_nonnegative", TableName: "wallets"})
	pqErr := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "transactions_payment_ref_key"})

	if d := Dump(pgxErr); d.Postgres.Code != "23514" || d.Postgres.Constraint != "wallets_balance_nonnegative" {
		t.Fatalf("unexpected pgx detail %+v", d.Postgres)
	}
	fields := Dump(pqErr).Fields()
	if fields["pg_code"] != "23505" || fields["pg_constraint"] != "transactions_payment_ref_key" {
		t.Fatalf("unexpected pq fields %v", fields)
	}
	if _, ok := fields["pg_table"]; ok {
		t.Fatalf("empty postgres fields should be omitted")
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	errNotFound := New(CodeNotFound, "")
	err := fmt.Errorf("load dispute: %w", Newf(CodeNotFound, "dispute %s not found", "d-1"))
	if !stdErrors.Is(err, errNotFound) {
		t.Fatalf("expected errors.Is to match on code")
	}
	if stdErrors.Is(err, New(CodeConflict, "")) {
		t.Fatalf("different codes must not match")
	}
	if got := As(err).Message(); got != "dispute d-1 not found" {
		t.Fatalf("unexpected formatted message %q", got)
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(Wrap(CodeDependency, stdErrors.New("timeout"), "publish")) {
		t.Fatalf("dependency failures are retryable")
	}
	if Retryable(New(CodeInsufficientFunds, "balance too low")) {
		t.Fatalf("insufficient funds is final")
	}
	if !Retryable(stdErrors.New("untyped")) {
		t.Fatalf("untyped errors classify as internal, which is retryable")
	}
	if Retryable(nil) {
		t.Fatalf("nil is not retryable")
	}
}
