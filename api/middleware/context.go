package middleware

import "context"

type principalKey struct{}

// principal is the authenticated caller as read from the access token.
type principal struct {
	userID string
	role   string
}

func principalFrom(ctx context.Context) principal {
	if ctx == nil {
		return principal{}
	}
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

func withPrincipal(ctx context.Context, update func(*principal)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	p := principalFrom(ctx)
	update(&p)
	return context.WithValue(ctx, principalKey{}, p)
}

// UserIDFromContext returns the caller's user id, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string { return principalFrom(ctx).userID }

// RoleFromContext returns the caller's platform role, or "".
func RoleFromContext(ctx context.Context) string { return principalFrom(ctx).role }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withPrincipal(ctx, func(p *principal) { p.userID = userID })
}

func WithRole(ctx context.Context, role string) context.Context {
	return withPrincipal(ctx, func(p *principal) { p.role = role })
}
