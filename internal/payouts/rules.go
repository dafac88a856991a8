package payouts

import (
	"errors"
	"strings"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

const maxDetailsLength = 500

var errAlreadyResolved = errors.New("payout request no longer pending")

// IsAlreadyResolved reports whether MarkResolved lost the race for the row.
func IsAlreadyResolved(err error) bool {
	return errors.Is(err, errAlreadyResolved)
}

// ValidateRequest checks a withdrawal request before any ledger work.
func ValidateRequest(amountCents int64, method enums.PayoutMethod, details string) (string, error) {
	if amountCents <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !method.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported payout method")
	}
	details = strings.TrimSpace(details)
	if details == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payout destination required")
	}
	if len(details) > maxDetailsLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payout destination too long")
	}
	return details, nil
}

// CheckResolvable rejects a second ruling on a payout request.
func CheckResolvable(request *models.PayoutRequest) error {
	if request.Status != enums.PayoutStatusPending {
		return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "payout request already processed").WithDetails(map[string]any{
			"status": request.Status,
		})
	}
	return nil
}

// ResolvedStatus maps an admin decision onto the terminal status.
func ResolvedStatus(decision enums.PayoutDecision) enums.PayoutStatus {
	if decision == enums.PayoutDecisionApprove {
		return enums.PayoutStatusProcessed
	}
	return enums.PayoutStatusRejected
}
