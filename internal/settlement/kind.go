package settlement

import (
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

// Kind is the failure taxonomy callers branch on.
type Kind string

const (
	KindNone                Kind = ""
	KindUnauthorized        Kind = "Unauthorized"
	KindInvalidState        Kind = "InvalidState"
	KindAlreadyResolved     Kind = "AlreadyResolved"
	KindAlreadyProcessed    Kind = "AlreadyProcessed"
	KindInsufficientFunds   Kind = "InsufficientFunds"
	KindInsufficientPending Kind = "InsufficientPending"
	KindListingUnavailable  Kind = "ListingUnavailable"
	KindNotFound            Kind = "NotFound"
	KindValidation          Kind = "Validation"
	KindConflict            Kind = "Conflict"
	KindInternal            Kind = "Internal"
)

var kindByCode = map[pkgerrors.Code]Kind{
	pkgerrors.CodeUnauthorized:        KindUnauthorized,
	pkgerrors.CodeForbidden:           KindUnauthorized,
	pkgerrors.CodeInvalidState:        KindInvalidState,
	pkgerrors.CodeAlreadyResolved:     KindAlreadyResolved,
	pkgerrors.CodeAlreadyProcessed:    KindAlreadyProcessed,
	pkgerrors.CodeInsufficientFunds:   KindInsufficientFunds,
	pkgerrors.CodeInsufficientPending: KindInsufficientPending,
	pkgerrors.CodeListingUnavailable:  KindListingUnavailable,
	pkgerrors.CodeNotFound:            KindNotFound,
	pkgerrors.CodeValidation:          KindValidation,
	pkgerrors.CodeConflict:            KindConflict,
	pkgerrors.CodeIdempotency:         KindConflict,
}

// KindOf maps an operation error onto the failure taxonomy. Nil maps to KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	if kind, ok := kindByCode[pkgerrors.CodeOf(err)]; ok {
		return kind
	}
	return KindInternal
}
