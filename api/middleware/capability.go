package middleware

import (
	"net/http"

	"github.com/angelmondragon/assettrack-backend/api/responses"
	"github.com/angelmondragon/assettrack-backend/internal/authz"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
)

// RequireCapability consults the gate before the handler decodes anything, so
// a denied caller never learns whether its payload was valid. Services check
// again on their own.
func RequireCapability(gate authz.Authorizer, logg *logger.Logger, capabilities ...enums.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "authorization gate unavailable"))
				return
			}
			principal, err := gate.AuthorizeAny(r.Context(), PrincipalIDFromContext(r.Context()), capabilities...)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			// The token's role claim can lag a role change; log the live one.
			if logg != nil && principal != nil {
				r = r.WithContext(logg.WithActorRole(r.Context(), string(principal.Role)))
			}
			next.ServeHTTP(w, r)
		})
	}
}
