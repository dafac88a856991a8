package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/api/middleware"
	"github.com/angelmondragon/marketplace-escrow/internal/settlement"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

type fakeSettlement struct {
	recordPaymentFn   func(context.Context, settlement.RecordPaymentInput) (*settlement.PaymentResult, error)
	markShippedFn     func(context.Context, settlement.MarkShippedInput) (*settlement.TransactionResult, error)
	confirmDeliveryFn func(context.Context, settlement.ConfirmDeliveryInput) (*settlement.TransactionResult, error)
	markCompletedFn   func(context.Context, settlement.MarkCompletedInput) (*settlement.TransactionResult, error)
	requestPayoutFn   func(context.Context, settlement.RequestPayoutInput) (*settlement.PayoutResult, error)
	resolvePayoutFn   func(context.Context, settlement.ResolvePayoutInput) (*settlement.PayoutResult, error)
	openDisputeFn     func(context.Context, settlement.OpenDisputeInput) (*settlement.DisputeResult, error)
	resolveDisputeFn  func(context.Context, settlement.ResolveDisputeInput) (*settlement.DisputeResult, error)
}

func (f *fakeSettlement) RecordPayment(ctx context.Context, in settlement.RecordPaymentInput) (*settlement.PaymentResult, error) {
	if f.recordPaymentFn != nil {
		return f.recordPaymentFn(ctx, in)
	}
	return &settlement.PaymentResult{}, nil
}

func (f *fakeSettlement) MarkShipped(ctx context.Context, in settlement.MarkShippedInput) (*settlement.TransactionResult, error) {
	if f.markShippedFn != nil {
		return f.markShippedFn(ctx, in)
	}
	return &settlement.TransactionResult{}, nil
}

func (f *fakeSettlement) ConfirmDelivery(ctx context.Context, in settlement.ConfirmDeliveryInput) (*settlement.TransactionResult, error) {
	if f.confirmDeliveryFn != nil {
		return f.confirmDeliveryFn(ctx, in)
	}
	return &settlement.TransactionResult{}, nil
}

func (f *fakeSettlement) MarkCompleted(ctx context.Context, in settlement.MarkCompletedInput) (*settlement.TransactionResult, error) {
	if f.markCompletedFn != nil {
		return f.markCompletedFn(ctx, in)
	}
	return &settlement.TransactionResult{}, nil
}

func (f *fakeSettlement) RequestPayout(ctx context.Context, in settlement.RequestPayoutInput) (*settlement.PayoutResult, error) {
	if f.requestPayoutFn != nil {
		return f.requestPayoutFn(ctx, in)
	}
	return &settlement.PayoutResult{}, nil
}

func (f *fakeSettlement) ResolvePayout(ctx context.Context, in settlement.ResolvePayoutInput) (*settlement.PayoutResult, error) {
	if f.resolvePayoutFn != nil {
		return f.resolvePayoutFn(ctx, in)
	}
	return &settlement.PayoutResult{}, nil
}

func (f *fakeSettlement) OpenDispute(ctx context.Context, in settlement.OpenDisputeInput) (*settlement.DisputeResult, error) {
	if f.openDisputeFn != nil {
		return f.openDisputeFn(ctx, in)
	}
	return &settlement.DisputeResult{}, nil
}

func (f *fakeSettlement) ResolveDispute(ctx context.Context, in settlement.ResolveDisputeInput) (*settlement.DisputeResult, error) {
	if f.resolveDisputeFn != nil {
		return f.resolveDisputeFn(ctx, in)
	}
	return &settlement.DisputeResult{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return httptest.NewRequest(method, target, reader)
}

func asActor(req *http.Request, id uuid.UUID, role enums.ActorRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), id.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	rc := chi.RouteContext(req.Context())
	if rc == nil {
		rc = chi.NewRouteContext()
	}
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	return payload.Error.Code
}
