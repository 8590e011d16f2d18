package auth

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/insano70/bcos-sub014/internal/rbac"
)

// UserContextMiddleware resolves the authenticated user id into a full
// authorization snapshot and installs it on the request context. It must run
// after JWTMiddleware (or DevAuthMiddleware).
//
// A token whose subject no longer maps to an active user is rejected with
// 401: revoking a user invalidates every outstanding token the moment the
// cached snapshot expires.
func UserContextMiddleware(builder *rbac.ContextBuilder, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			sub := UserIDFromContext(ctx)
			if sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no authenticated user")
			}
			userID, err := uuid.Parse(sub)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "token subject is not a user id")
			}

			uc, err := builder.Build(ctx, userID)
			if err != nil {
				var nf *rbac.NotFoundError
				if errors.As(err, &nf) {
					return echo.NewHTTPError(http.StatusUnauthorized, "unknown or inactive user")
				}
				logger.Error().Err(err).Stringer("user_id", userID).Msg("building user context")
				return echo.NewHTTPError(http.StatusInternalServerError, "authorization unavailable")
			}

			c.SetRequest(c.Request().WithContext(rbac.NewContext(ctx, uc)))
			return next(c)
		}
	}
}

// MustUserContext returns the authorization snapshot installed by
// UserContextMiddleware, or an HTTP 401 error when the chain was
// misconfigured and no snapshot is present.
func MustUserContext(c echo.Context) (*rbac.UserContext, error) {
	uc := rbac.FromContext(c.Request().Context())
	if uc == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "no authorization context")
	}
	return uc, nil
}
