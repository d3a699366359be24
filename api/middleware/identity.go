package middleware

import (
	"net/http"
	"strings"

	"github.com/innkeeplabs/innkeep-backend/api/responses"
	"github.com/innkeeplabs/innkeep-backend/pkg/config"
	pkgerrors "github.com/innkeeplabs/innkeep-backend/pkg/errors"
	"github.com/innkeeplabs/innkeep-backend/pkg/identity"
	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
)

// Identity validates the bearer token minted by the identity collaborator and
// seeds the request context with the holder it names.
func Identity(cfg config.IdentityConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := identity.ParseHolderToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithHolderID(r.Context(), claims.HolderID.String())
			if claims.PropertyID != nil {
				ctx = WithPropertyID(ctx, claims.PropertyID.String())
			}

			if logg != nil {
				ctx = logg.WithHolderID(ctx, claims.HolderID.String())
				if claims.PropertyID != nil {
					ctx = logg.WithPropertyID(ctx, claims.PropertyID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
