package enums

import "fmt"

// PayoutStatus is the review state of a withdrawal request.
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "PENDING"
	PayoutStatusProcessed PayoutStatus = "PROCESSED"
	PayoutStatusRejected  PayoutStatus = "REJECTED"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusPending,
	PayoutStatusProcessed,
	PayoutStatusRejected,
}

// IsValid reports whether the value is a known PayoutStatus.
func (s PayoutStatus) IsValid() bool {
	for _, candidate := range validPayoutStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePayoutStatus converts raw input into a PayoutStatus.
func ParsePayoutStatus(value string) (PayoutStatus, error) {
	for _, candidate := range validPayoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout status %q", value)
}

// PayoutDecision is the admin ruling on a withdrawal request.
type PayoutDecision string

const (
	PayoutDecisionApprove PayoutDecision = "APPROVE"
	PayoutDecisionReject  PayoutDecision = "REJECT"
)

// IsValid reports whether the value is a known PayoutDecision.
func (d PayoutDecision) IsValid() bool {
	return d == PayoutDecisionApprove || d == PayoutDecisionReject
}

// ParsePayoutDecision converts raw input into a PayoutDecision.
func ParsePayoutDecision(value string) (PayoutDecision, error) {
	decision := PayoutDecision(value)
	if !decision.IsValid() {
		return "", fmt.Errorf("invalid payout decision %q", value)
	}
	return decision, nil
}

// PayoutMethod is the destination rail for a withdrawal.
type PayoutMethod string

const (
	PayoutMethodBankTransfer PayoutMethod = "BANK_TRANSFER"
	PayoutMethodPayPal       PayoutMethod = "PAYPAL"
	PayoutMethodMobileMoney  PayoutMethod = "MOBILE_MONEY"
)

var validPayoutMethods = []PayoutMethod{
	PayoutMethodBankTransfer,
	PayoutMethodPayPal,
	PayoutMethodMobileMoney,
}

// IsValid reports whether the value is a known PayoutMethod.
func (m PayoutMethod) IsValid() bool {
	for _, candidate := range validPayoutMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePayoutMethod converts raw input into a PayoutMethod.
func ParsePayoutMethod(value string) (PayoutMethod, error) {
	for _, candidate := range validPayoutMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout method %q", value)
}
