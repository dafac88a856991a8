package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/config"
)

// clockSkew tolerates small drift between the session provider and this service.
const clockSkew = 30 * time.Second

var (
	signingMethod = jwt.SigningMethodHS256

	ErrMissingToken = errors.New("missing bearer token")
)

// Verifier checks HS256 access tokens issued for this marketplace.
type Verifier struct {
	key    []byte
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("jwt issuer is required")
	}
	return &Verifier{
		key: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

// Verify validates signature, issuer and lifetime, then the escrow identity claims.
func (v *Verifier) Verify(raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}); err != nil {
		return nil, err
	}
	switch {
	case claims.UserID == uuid.Nil:
		return nil, errors.New("token missing user id")
	case !claims.Role.IsValid():
		return nil, fmt.Errorf("token carries invalid role %q", claims.Role)
	case claims.ID == "":
		return nil, errors.New("token missing jti")
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value. A bare token
// without the scheme is accepted.
func BearerToken(header string) (string, error) {
	token := strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(token, " "); ok && strings.EqualFold(scheme, "bearer") {
		token = strings.TrimSpace(rest)
	}
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// MintAccessToken issues a signed token for payload. The API only verifies tokens; this
// serves operator tooling and tests.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.Expiration() <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case payload.UserID == uuid.Nil:
		return "", errors.New("user id is required")
	case !payload.Role.IsValid():
		return "", fmt.Errorf("invalid actor role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expiration())),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}
