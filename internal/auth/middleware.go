package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vedamart/backend/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Verifier Verifier
}

// RequireAuth enforces that a valid bearer token is present before executing
// the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticate(r)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin enforces both a valid token and the admin role claim.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := common.Role(r.Context())
		if role != "admin" {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (m Middleware) authenticate(r *http.Request) (context.Context, error) {
	token := extractBearer(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	identity, err := m.Verifier.Parse(token)
	if err != nil {
		return r.Context(), err
	}
	ctx := common.WithUserID(r.Context(), identity.UserID)
	if identity.Role != "" {
		ctx = common.WithRole(ctx, identity.Role)
	}
	return ctx, nil
}

func extractBearer(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
