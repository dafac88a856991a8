package disputes

import (
	"strings"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

const (
	maxReasonLength      = 200
	maxDescriptionLength = 4000
)

// ValidateOpen checks the buyer-supplied dispute text.
func ValidateOpen(reason, description string) (string, string, error) {
	reason = strings.TrimSpace(reason)
	description = strings.TrimSpace(description)
	if reason == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	if len(reason) > maxReasonLength || len(description) > maxDescriptionLength {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "dispute text too long")
	}
	return reason, description, nil
}

// CheckResolvable rejects a second ruling on a dispute.
func CheckResolvable(d *models.Dispute) error {
	if d.Status != enums.DisputeStatusOpen {
		return pkgerrors.New(pkgerrors.CodeAlreadyResolved, "dispute already resolved").WithDetails(map[string]any{
			"status": d.Status,
		})
	}
	return nil
}
