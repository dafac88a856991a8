package square

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

// errorCodes overrides the status-derived code for Square error codes that say more.
// Rejections mean the payment cannot be refunded as asked; retrying with the same key
// never succeeds.
var errorCodes = map[sq.ErrorCode]pkgerrors.Code{
	sq.ErrorCodeIdempotencyKeyReused:                    pkgerrors.CodeIdempotency,
	sq.ErrorCode("REFUND_ALREADY_PENDING"):              pkgerrors.CodeIdempotency,
	sq.ErrorCode("PAYMENT_NOT_REFUNDABLE"):              pkgerrors.CodeInvalidState,
	sq.ErrorCode("REFUND_AMOUNT_INVALID"):               pkgerrors.CodeInvalidState,
	sq.ErrorCode("REFUND_DECLINED"):                     pkgerrors.CodeInvalidState,
	sq.ErrorCode("INSUFFICIENT_PERMISSIONS_FOR_REFUND"): pkgerrors.CodeInvalidState,
}

func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf("square %s failed", op)

	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
	code := domainCodeForStatus(apiErr.StatusCode)
	for _, sqErr := range squareErrors(apiErr) {
		if mapped, ok := errorCodes[sqErr.Code]; ok {
			code = mapped
			break
		}
		if sqErr.Category == sq.ErrorCategoryAuthenticationError {
			code = pkgerrors.CodeUnauthorized
			break
		}
	}
	return pkgerrors.Wrap(code, err, msg)
}

// squareErrors decodes the errors array Square puts in a non-2xx body.
func squareErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(inner.Error())), &body); err != nil {
		return nil
	}
	out := body.Errors[:0]
	for _, e := range body.Errors {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case status == http.StatusUnprocessableEntity:
		return pkgerrors.CodeInvalidState
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}
