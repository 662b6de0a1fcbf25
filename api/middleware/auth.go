package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/orderdraft/api/responses"
	pkgAuth "github.com/angelmondragon/orderdraft/pkg/auth"
	"github.com/angelmondragon/orderdraft/pkg/config"
	pkgerrors "github.com/angelmondragon/orderdraft/pkg/errors"
	"github.com/angelmondragon/orderdraft/pkg/logger"
)

// Auth validates the dashboard bearer token and seeds the request context with the caller.
// The raw token is kept on the context so backend calls run as the same admin.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
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

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			userID := claims.UserID.String()
			ctx := WithUserID(r.Context(), userID)
			ctx = WithRole(ctx, claims.Role)
			ctx = pkgAuth.WithBearer(ctx, token)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    userID,
					"actor_role": claims.Role,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
