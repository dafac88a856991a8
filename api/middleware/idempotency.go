package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/marketplace-escrow/api/responses"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	pkgredis "github.com/angelmondragon/marketplace-escrow/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	replayedHeader         = "Idempotent-Replayed"
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// pendingClaimTTL bounds how long a crashed request can hold its key.
	pendingClaimTTL = 2 * time.Minute
)

type routeMatcher func(string) bool

// idempotencyRule marks a mutating route. Critical rules move money and keep their
// record for criticalIdempotencyTTL regardless of the configured default.
type idempotencyRule struct {
	method   string
	matcher  routeMatcher
	critical bool
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPut, matcher: matchPrefix("/api/internal/v1/listings/")},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/v1/transactions/", "/ship")},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/v1/notifications/", "/read")},
	{method: http.MethodPost, matcher: matchExact("/api/v1/notifications/read-all")},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/admin/v1/outbox/dead-letters/", "/replay")},
	// money-moving endpoints
	{method: http.MethodPost, matcher: matchExact("/api/internal/v1/payments/captured"), critical: true},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/v1/transactions/", "/confirm-delivery"), critical: true},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/v1/transactions/", "/disputes"), critical: true},
	{method: http.MethodPost, matcher: matchExact("/api/v1/payouts"), critical: true},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/admin/v1/transactions/", "/complete"), critical: true},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/admin/v1/disputes/", "/resolve"), critical: true},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/admin/v1/payouts/", "/resolve"), critical: true},
}

const (
	recordPending   = "pending"
	recordCompleted = "completed"
)

// idempotencyRecord is the stored state of one key: claimed while the first request
// runs, then the captured response.
type idempotencyRecord struct {
	State       string            `json:"state"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency makes keyed mutating requests execute once. The key is claimed before the
// handler runs, so a concurrent duplicate is refused instead of moving money twice.
// Server failures release the claim and the caller may retry them.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ttl, ok := routeTTL(r.Method, routePattern(r), ttl)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if idempotencyKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), idempotencyKey)

			claim, _ := json.Marshal(idempotencyRecord{State: recordPending, RequestHash: requestHash})
			claimed, err := store.SetNX(ctx, key, string(claim), min(ttl, pendingClaimTTL))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayExisting(ctx, store, key, requestHash, w, logg)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := defaultStatus(rec.status)
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil {
					logError(ctx, logg, "release idempotency key", err)
				}
				return
			}

			record := idempotencyRecord{
				State:       recordCompleted,
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := rec.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}
			payload, err := json.Marshal(record)
			if err != nil {
				logError(ctx, logg, "marshal idempotency record", err)
				return
			}
			if err := store.Set(ctx, key, string(payload), ttl); err != nil {
				logError(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

// replayExisting answers a request whose key is already claimed.
func replayExisting(ctx context.Context, store pkgredis.IdempotencyStore, key, requestHash string, w http.ResponseWriter, logg *logger.Logger) {
	stored, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		// the claim expired between SETNX and GET
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	case err != nil:
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}

	record, err := decodeRecord(stored)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if record.State != recordCompleted {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	}
	writeStoredResponse(w, record)
}

func buildScope(r *http.Request) string {
	parts := []string{
		UserIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}
	return strings.Join(parts, "|")
}

func decodeRecord(payload string) (*idempotencyRecord, error) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeStoredResponse(w http.ResponseWriter, record *idempotencyRecord) {
	if record == nil {
		return
	}
	if ct, ok := record.Headers["Content-Type"]; ok && ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		// a mounted middleware only sees the partial "/prefix/*" pattern
		if pattern := ctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string, fallback time.Duration) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.method != method {
			continue
		}
		if !rule.matcher(pattern) {
			continue
		}
		if rule.critical && fallback < criticalIdempotencyTTL {
			return criticalIdempotencyTTL, true
		}
		return fallback, true
	}
	return 0, false
}

func matchExact(path string) routeMatcher {
	return func(pattern string) bool {
		return pattern == path
	}
}

func matchPrefix(prefix string) routeMatcher {
	return func(pattern string) bool {
		return strings.HasPrefix(pattern, prefix)
	}
}

func matchPrefixSuffix(prefix, suffix string) routeMatcher {
	return func(pattern string) bool {
		return strings.HasPrefix(pattern, prefix) && strings.HasSuffix(pattern, suffix)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
