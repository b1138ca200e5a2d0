package handlers

import (
	"net/http"
	"strings"

	"eventpass/internal/services"
	"eventpass/internal/store"
	"eventpass/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// AuthMiddleware resolves the bearer credential on a request to the
// user record it names.
type AuthMiddleware struct {
	store       *store.Store
	credentials *services.CredentialService
}

func NewAuthMiddleware(store *store.Store, credentials *services.CredentialService) *AuthMiddleware {
	return &AuthMiddleware{
		store:       store,
		credentials: credentials,
	}
}

// Require guards a route with header-based credentials.
func (m *AuthMiddleware) Require(next func(*core.RequestEvent, *models.User) error) func(*core.RequestEvent) error {
	return m.require(false, next)
}

// RequireWithQueryToken additionally accepts the credential as a
// ?token= query parameter. Only the PDF route uses this: the mobile
// client opens the document in a viewer that cannot set headers.
func (m *AuthMiddleware) RequireWithQueryToken(next func(*core.RequestEvent, *models.User) error) func(*core.RequestEvent) error {
	return m.require(true, next)
}

func (m *AuthMiddleware) require(allowQuery bool, next func(*core.RequestEvent, *models.User) error) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		token := tokenFromRequest(e.Request, allowQuery)
		if token == "" {
			return apis.NewUnauthorizedError("Missing credential", nil)
		}

		claims, err := m.credentials.Verify(token)
		if err != nil {
			return apis.NewUnauthorizedError("Invalid credential", err)
		}

		user, err := m.store.GetUser(e.Request.Context(), claims.UserID)
		if err != nil {
			return apis.NewUnauthorizedError("User not found", err)
		}

		return next(e, user)
	}
}

func tokenFromRequest(r *http.Request, allowQuery bool) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}
