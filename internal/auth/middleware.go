package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/printforge/printforge/internal/platform/httpx"
	"github.com/printforge/printforge/internal/shared"
)

// Middleware guards routes by staff role.
type Middleware struct {
	logger  *slog.Logger
	service *Service
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(logger *slog.Logger, service *Service) Middleware {
	return Middleware{logger: logger, service: service}
}

// RequireRole ensures the request carries a valid bearer token whose actor
// holds one of the given roles. Admin passes every check.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			actor, err := m.service.Resolve(r.Context(), token)
			if err != nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !roleAllowed(actor.Role, roles) {
				m.logger.Warn("role denied", "role", actor.Role, "path", r.URL.Path)
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			ctx := shared.ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func roleAllowed(role string, allowed []string) bool {
	if role == RoleAdmin {
		return true
	}
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
