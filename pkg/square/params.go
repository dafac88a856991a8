package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

// RefundParams describes a refund against a captured card payment.
type RefundParams struct {
	PaymentID      string
	AmountCents    int64
	Currency       string
	Reason         string
	IdempotencyKey string
}

// RefundResult is the subset of the Square refund the settlement flow records.
type RefundResult struct {
	RefundID    string
	Status      string
	AmountCents int64
	// Pending is true until Square settles the refund with the card network.
	Pending bool
}

func newRefundResult(refund *sq.PaymentRefund) *RefundResult {
	result := &RefundResult{RefundID: refund.GetID()}
	if status := refund.GetStatus(); status != nil {
		result.Status = *status
	}
	if amount := refund.GetAmountMoney(); amount != nil && amount.GetAmount() != nil {
		result.AmountCents = *amount.GetAmount()
	}
	result.Pending = strings.EqualFold(result.Status, "PENDING")
	return result
}

func (p RefundParams) validate() error {
	if strings.TrimSpace(p.PaymentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id is required for a refund")
	}
	if p.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if strings.TrimSpace(p.IdempotencyKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund idempotency key is required")
	}
	return nil
}

func (p RefundParams) toSquareRequest() *sq.RefundPaymentRequest {
	req := &sq.RefundPaymentRequest{
		IdempotencyKey: strings.TrimSpace(p.IdempotencyKey),
		AmountMoney:    moneyPtr(p.AmountCents, p.Currency),
		PaymentID:      ptrString(strings.TrimSpace(p.PaymentID)),
	}
	if trimmed := strings.TrimSpace(p.Reason); trimmed != "" {
		req.Reason = ptrString(trimmed)
	}
	return req
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
