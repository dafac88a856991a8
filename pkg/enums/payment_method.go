package enums

import (
	"fmt"
	"slices"
)

// PaymentMethod describes how the buyer paid for a sale.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "CARD"
	// PaymentMethodCOD is cash on delivery; the capture event arrives before any money moves.
	PaymentMethodCOD PaymentMethod = "COD"
)

var validPaymentMethods = []PaymentMethod{PaymentMethodCard, PaymentMethodCOD}

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	return slices.Contains(validPaymentMethods, p)
}

// InitialStatus is the status a freshly captured sale starts in.
func (p PaymentMethod) InitialStatus() TransactionStatus {
	if p == PaymentMethodCOD {
		return TransactionStatusPendingCOD
	}
	return TransactionStatusPending
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	if p := PaymentMethod(value); p.IsValid() {
		return p, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
