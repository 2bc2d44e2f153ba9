package orgcontext

import (
	"context"
	"strings"
)

// Scope identifies the books a request operates on. Tenant and company ids are
// opaque strings supplied by the caller's auth layer.
type Scope struct {
	TenantID  string
	CompanyID string
}

// Valid reports whether both identifiers are present.
func (s Scope) Valid() bool {
	return s.TenantID != "" && s.CompanyID != ""
}

type scopeKey struct{}

type actorKey struct{}

// WithScope stores the tenant and company in the context.
func WithScope(ctx context.Context, tenantID, companyID string) context.Context {
	return context.WithValue(ctx, scopeKey{}, Scope{
		TenantID:  strings.TrimSpace(tenantID),
		CompanyID: strings.TrimSpace(companyID),
	})
}

// ScopeFromContext returns the scope from context, if set.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	scope, ok := ctx.Value(scopeKey{}).(Scope)
	if !ok || !scope.Valid() {
		return Scope{}, false
	}
	return scope, true
}

// WithActor stores the acting user id in the context.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, strings.TrimSpace(actorID))
}

// ActorFromContext returns the acting user id, or "" when unset.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// ResolveActor prefers an explicit actor over the one carried by ctx.
func ResolveActor(ctx context.Context, explicit string) string {
	if actor := strings.TrimSpace(explicit); actor != "" {
		return actor
	}
	return ActorFromContext(ctx)
}
