package enums

import "fmt"

// DisputeStatus is the arbitration state of a dispute.
type DisputeStatus string

const (
	DisputeStatusOpen            DisputeStatus = "OPEN"
	DisputeStatusResolvedRefund  DisputeStatus = "RESOLVED_REFUND"
	DisputeStatusResolvedRelease DisputeStatus = "RESOLVED_RELEASE"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusResolvedRefund,
	DisputeStatusResolvedRelease,
}

// IsValid reports whether the value is a known DisputeStatus.
func (s DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDisputeStatus converts raw input into a DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}

// DisputeDecision is the arbitrator's ruling.
type DisputeDecision string

const (
	DisputeDecisionRefundBuyer   DisputeDecision = "REFUND_BUYER"
	DisputeDecisionReleaseSeller DisputeDecision = "RELEASE_SELLER"
)

// IsValid reports whether the value is a known DisputeDecision.
func (d DisputeDecision) IsValid() bool {
	return d == DisputeDecisionRefundBuyer || d == DisputeDecisionReleaseSeller
}

// ResolvedStatus returns the terminal dispute status the decision produces.
func (d DisputeDecision) ResolvedStatus() DisputeStatus {
	if d == DisputeDecisionRefundBuyer {
		return DisputeStatusResolvedRefund
	}
	return DisputeStatusResolvedRelease
}

// ParseDisputeDecision converts raw input into a DisputeDecision.
func ParseDisputeDecision(value string) (DisputeDecision, error) {
	decision := DisputeDecision(value)
	if !decision.IsValid() {
		return "", fmt.Errorf("invalid dispute decision %q", value)
	}
	return decision, nil
}

// ReleaseBasis selects which amount a seller-favoured dispute credits.
type ReleaseBasis string

const (
	// ReleaseBasisGross credits the gross sale amount to balance.
	ReleaseBasisGross ReleaseBasis = "gross"
	// ReleaseBasisNet releases the escrowed net amount.
	ReleaseBasisNet ReleaseBasis = "net"
)

// ParseReleaseBasis converts raw input into a ReleaseBasis.
func ParseReleaseBasis(value string) (ReleaseBasis, error) {
	switch ReleaseBasis(value) {
	case ReleaseBasisGross, ReleaseBasisNet:
		return ReleaseBasis(value), nil
	}
	return "", fmt.Errorf("invalid release basis %q", value)
}
