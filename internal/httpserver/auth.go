package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gastrodesk/internal/service"
	"github.com/Skotchmaster/gastrodesk/internal/transport"
	jwthelp "github.com/Skotchmaster/gastrodesk/pkg/jwt"
	"github.com/Skotchmaster/gastrodesk/pkg/logging"
)

type AuthHTTP struct {
	Svc   *service.AuthService
	Users *service.UserService
}

func setAuthCookies(c echo.Context, res *service.LoginResult) {
	c.SetCookie(jwthelp.CreateCookie(jwthelp.AccessCookie, res.AccessToken, "/", res.AccessExp))
	c.SetCookie(jwthelp.CreateCookie(jwthelp.RefreshCookie, res.RefreshToken, "/", res.RefreshExp))
}

func loginResponse(res *service.LoginResult) transport.LoginResponse {
	return transport.LoginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		AccessExp:    res.AccessExp,
		RefreshExp:   res.RefreshExp,
		Role:         res.User.Role,
	}
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil || req.Username == "" || req.Password == "" {
		return badRequest(l, "login_error", "username and password required", err)
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return fail(l, "login_error", "cannot log in", err)
	}

	setAuthCookies(c, res)
	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, loginResponse(res))
}

// refreshToken prefers the cookie and falls back to the JSON body.
func refreshToken(c echo.Context) string {
	if cookie, err := c.Cookie(jwthelp.RefreshCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req transport.RefreshRequest
	_ = c.Bind(&req)
	return req.RefreshToken
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	token := refreshToken(c)
	if token == "" {
		l.Warn("refresh_error", "status", 401, "reason", "refresh token missing")
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	res, err := h.Svc.Refresh(ctx, token)
	if err != nil {
		c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/"))
		c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookie, "/"))
		return fail(l, "refresh_error", "cannot refresh tokens", err)
	}

	setAuthCookies(c, res)
	l.Info("refresh_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, loginResponse(res))
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if err := h.Svc.LogOut(ctx, refreshToken(c)); err != nil {
		return fail(l, "logout_error", "cannot revoke refresh token", err)
	}

	c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/"))
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookie, "/"))
	l.Info("logout_success")
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.me")

	id, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.Users.GetUser(ctx, id)
	if err != nil {
		return fail(l, "me_error", "cannot load user", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.change_password")

	id, err := currentUser(c)
	if err != nil {
		return err
	}
	var req transport.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "change_password_error", "invalid body", err)
	}

	if err := h.Svc.ChangePassword(ctx, id, req.OldPassword, req.NewPassword); err != nil {
		return fail(l, "change_password_error", "cannot change password", err)
	}

	l.Info("change_password_success", "user_id", id)
	return c.NoContent(http.StatusNoContent)
}
