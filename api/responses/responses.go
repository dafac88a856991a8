package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	"github.com/angelmondragon/marketplace-escrow/pkg/types"
)

// retryAfterSeconds is advertised on responses the client may repeat unchanged.
const retryAfterSeconds = 2

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps err onto the error envelope. Untyped errors surface as INTERNAL_ERROR;
// caller-facing codes keep their own message.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := typed.Code().Metadata()

	if logg != nil {
		logRejection(ctx, logg, err, meta.HTTPStatus)
	}
	if meta.HTTPStatus == http.StatusTooManyRequests || meta.HTTPStatus == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeJSON(w, meta.HTTPStatus, envelopeFor(typed, meta))
}

func envelopeFor(typed *pkgerrors.Error, meta pkgerrors.Metadata) types.ErrorEnvelope {
	apiErr := types.APIError{Code: string(typed.Code()), Message: meta.PublicMessage}
	if meta.UserFacing && typed.Message() != "" {
		apiErr.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}
	return types.ErrorEnvelope{Error: apiErr}
}

// logRejection writes client errors at warn and server errors at error with the full
// chain, including Postgres detail when the failure came from the database.
func logRejection(ctx context.Context, logg *logger.Logger, err error, status int) {
	fields := pkgerrors.Dump(err).Fields()
	fields["http_status"] = status
	ctx = logg.WithFields(ctx, fields)
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.rejected")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
