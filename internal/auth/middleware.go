package auth

import (
	"context"
	"strings"

	"github.com/abdusco/snip/internal"
	"github.com/labstack/echo/v4"
)

type userKey struct{}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *internal.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user attached by the identity middleware, if any.
func UserFromContext(ctx context.Context) (*internal.User, bool) {
	user, ok := ctx.Value(userKey{}).(*internal.User)
	return user, ok && user != nil
}

func UserFrom(c echo.Context) (*internal.User, bool) {
	return UserFromContext(c.Request().Context())
}

// NewIdentityMiddleware attaches the caller's user to the request context when
// a valid token is presented. It never rejects a request: a missing, expired
// or forged token, or a token for a deleted user, just leaves the request
// anonymous.
func NewIdentityMiddleware(auther *Authenticator) echo.MiddlewareFunc {
	type tokenSource func(c echo.Context) string
	sources := []tokenSource{
		tokenFromCookie,
		tokenFromBearer,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, source := range sources {
				token := source(c)
				if token == "" {
					continue
				}

				user, ok := auther.Identify(c.Request().Context(), token)
				if !ok {
					continue
				}

				req := c.Request()
				c.SetRequest(req.WithContext(WithUser(req.Context(), user)))
				break
			}
			return next(c)
		}
	}
}

// RequireUser rejects requests the identity middleware left anonymous.
func RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := UserFrom(c); !ok {
			return internal.ErrNoIdentity
		}
		return next(c)
	}
}

func tokenFromCookie(c echo.Context) string {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}

func tokenFromBearer(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
