package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

// fieldError builds a validation error naming the offending parameter. cause may be nil.
func fieldError(field, message string, cause error, extra map[string]any) *pkgerrors.Error {
	details := map[string]any{"field": field}
	for k, v := range extra {
		details[k] = v
	}
	if cause == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, message).WithDetails(details)
}

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// ParseQueryInt returns fallback when key is absent and rejects values outside [lo, hi].
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, fieldError(key, "query parameter must be numeric", nil, nil)
	case n < lo || n > hi:
		return 0, fieldError(key, "query parameter out of range", nil, map[string]any{"min": lo, "max": hi})
	}
	return n, nil
}

func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fieldError(key, "query parameter must be a boolean", err, nil)
	}
	return b, nil
}

// ParseUUIDParam reads a chi path parameter as a uuid.
func ParseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, fieldError(key, "path parameter required", nil, nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fieldError(key, "path parameter must be a uuid", err, nil)
	}
	return id, nil
}
