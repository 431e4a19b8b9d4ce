// Package auth binds the organization scope of a request. There is no login:
// the scope comes from the X-Organization-ID header set by the gateway.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// OrganizationHeader carries the caller's organization scope.
const OrganizationHeader = "X-Organization-ID"

var (
	// ErrOrganizationRequired is returned when neither the payload nor the scope names an organization.
	ErrOrganizationRequired = errors.New("organizationId is required")
	// ErrScopeMismatch is returned when a payload names a different organization than the scope.
	ErrScopeMismatch = errors.New("organization does not match authenticated scope")
)

type contextKey string

const organizationIDKey contextKey = "organizationID"

// ContextWithOrganizationID returns a new context that carries the organization scope.
func ContextWithOrganizationID(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, organizationIDKey, id)
}

// OrganizationIDFromContext retrieves the organization scope from the context, if any.
func OrganizationIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(organizationIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// EnforceOrganizationScope ensures the provided organization matches the scope when present.
func EnforceOrganizationScope(ctx context.Context, organizationID uuid.UUID) error {
	if organizationID == uuid.Nil {
		return ErrOrganizationRequired
	}
	scopedID, ok := OrganizationIDFromContext(ctx)
	if !ok {
		return nil
	}
	if scopedID != organizationID {
		return fmt.Errorf("organizationId %s: %w", organizationID, ErrScopeMismatch)
	}
	return nil
}

// ResolveOrganizationID parses raw, falling back to the scope when raw is
// blank, and enforces the scope.
func ResolveOrganizationID(ctx context.Context, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if id, ok := OrganizationIDFromContext(ctx); ok {
			return id, nil
		}
		return uuid.Nil, ErrOrganizationRequired
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid organization id: %w", err)
	}
	if err := EnforceOrganizationScope(ctx, id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Middleware binds the X-Organization-ID header into the request context.
// Requests without the header pass through unscoped.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(OrganizationHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			http.Error(w, "invalid "+OrganizationHeader+" header", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithOrganizationID(r.Context(), id)))
	})
}
