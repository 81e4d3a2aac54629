package internal

import (
	"context"

	"github.com/frahmantamala/supplier-portal/internal/core/user"
)

type ctxKey string

const ContextPrincipalKey ctxKey = "principal"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID string
	Role   user.Role
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(ContextPrincipalKey).(*Principal)
	return p, ok && p != nil
}

func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ContextPrincipalKey, p)
}

func UserIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.UserID
	}
	return ""
}
