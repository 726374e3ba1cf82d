package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	jwthelp "github.com/Skotchmaster/gastrodesk/pkg/jwt"
	"github.com/Skotchmaster/gastrodesk/pkg/tokens"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// ErrUnknownUser is returned by a SubjectLookup when the token's user is gone.
var ErrUnknownUser = errors.New("unknown user")

// Subject is the stored state of a token's user.
type Subject struct {
	Role   string
	Active bool
}

type SubjectLookup func(ctx context.Context, userID uint) (Subject, error)

type SimpleAuth struct {
	JWTSecret []byte
	// Lookup, when set, re-reads the user on every request; deactivation and
	// role changes then apply before the access token expires.
	Lookup SubjectLookup
}

func NewSimpleAuth(secret []byte) *SimpleAuth {
	return &SimpleAuth{JWTSecret: secret}
}

// RequireAuth accepts the access token from the accessToken cookie or an
// "Authorization: Bearer" header.
func (m *SimpleAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearer(c)
		if raw == "" {
			if cookie, err := c.Cookie(jwthelp.AccessCookie); err == nil {
				raw = cookie.Value
			}
		}
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(raw, m.JWTSecret)
		if err != nil {
			c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/"))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		userID, err := claims.UserID()
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
		}

		role := claims.Role
		if m.Lookup != nil {
			sub, err := m.Lookup(c.Request().Context(), userID)
			switch {
			case errors.Is(err, ErrUnknownUser):
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			case err != nil:
				return err
			case !sub.Active:
				return echo.NewHTTPError(http.StatusUnauthorized, "account disabled")
			}
			role = sub.Role
		}

		c.Set(CtxUserID, userID)
		c.Set(CtxRole, role)

		return next(c)
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}

func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(CtxUserID).(uint)
	return id, ok && id != 0
}

func Role(c echo.Context) string {
	role, _ := c.Get(CtxRole).(string)
	return role
}

func bearer(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
