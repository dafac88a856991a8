package enums

import "fmt"

// TransactionStatus tracks the payment side of a sale.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusPendingCOD TransactionStatus = "PENDING_COD"
	TransactionStatusShipped    TransactionStatus = "SHIPPED"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusPendingCOD,
	TransactionStatusShipped,
	TransactionStatusCompleted,
	TransactionStatusCancelled,
}

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
