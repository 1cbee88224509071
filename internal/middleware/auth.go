package middleware // contains reusable HTTP middleware functions

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/userstack/auth-service/internal/httperr"
	"github.com/userstack/auth-service/internal/token"
)

// ctxUserID is the context key the authenticator stores the subject under.
const ctxUserID = "user_id"

// RequireAuth returns the bearer-token gate for one privilege tier.  It
// extracts the Authorization header, verifies the token against the access
// secret of the given role class, and attaches the subject's user id to the
// request context.  A route registered with the admin class only ever
// accepts tokens signed with the admin secret pair — the secret, not any
// claim, is what separates the tiers.
//
// The gate does not consult the database: tokens are stateless and may
// reference a user whose state changed after issuance.  Operations that
// need current state re-check it themselves.
func RequireAuth(codec *token.Codec, class token.RoleClass) echo.MiddlewareFunc {
	secret := codec.PairFor(class).Access
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return httperr.ErrMissingToken
			}
			raw := strings.TrimPrefix(auth, "Bearer ")
			if strings.TrimSpace(raw) == "" {
				return httperr.ErrMissingToken
			}

			claims, err := codec.Verify(raw, secret)
			if err != nil {
				return httperr.FromTokenError(err)
			}
			userID, err := claims.UserID()
			if err != nil {
				return httperr.ErrTokenInvalid
			}

			c.Set(ctxUserID, userID)
			return next(c)
		}
	}
}

// UserID retrieves the authenticated subject id stored by RequireAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok
}
