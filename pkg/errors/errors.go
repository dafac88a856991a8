package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeInvalidState        Code = "INVALID_STATE"
	CodeAlreadyResolved     Code = "ALREADY_RESOLVED"
	CodeAlreadyProcessed    Code = "ALREADY_PROCESSED"
	CodeInsufficientFunds   Code = "INSUFFICIENT_FUNDS"
	CodeInsufficientPending Code = "INSUFFICIENT_PENDING"
	CodeListingUnavailable  Code = "LISTING_UNAVAILABLE"
	CodeIdempotency         Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit           Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeDependency          Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	// UserFacing marks codes whose message is safe to echo back to the caller.
	UserFacing bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
		UserFacing:     true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
		UserFacing:    true,
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
		UserFacing:    true,
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
		UserFacing:    true,
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
		UserFacing:    true,
	},
	CodeInvalidState: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
		UserFacing:     true,
	},
	CodeAlreadyResolved: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "dispute already resolved",
		UserFacing:    true,
	},
	CodeAlreadyProcessed: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "payout request already processed",
		UserFacing:    true,
	},
	CodeInsufficientFunds: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "insufficient funds",
		DetailsAllowed: true,
		UserFacing:     true,
	},
	CodeInsufficientPending: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "settlement could not be completed",
	},
	CodeListingUnavailable: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "listing is not available for purchase",
		UserFacing:    true,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
		UserFacing:     true,
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		PublicMessage: "rate limit exceeded",
		UserFacing:    true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

// Metadata returns how the code is surfaced; unknown codes behave as CodeInternal.
func (c Code) Metadata() Metadata {
	if meta, ok := metadataByCode[c]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

func MetadataFor(code Code) Metadata {
	return code.Metadata()
}

// Error is a classified failure. The code decides the HTTP status and whether the
// message reaches the caller; the cause stays server side.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches any *Error with the same code, so sentinels such as
// New(CodeNotFound, "") work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.code == t.code
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if goerrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	return As(err).Code()
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Retryable reports whether the caller may safely try the same request again.
func Retryable(err error) bool {
	return err != nil && CodeOf(err).Metadata().Retryable
}
