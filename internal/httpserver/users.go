package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gastrodesk/internal/service"
	"github.com/Skotchmaster/gastrodesk/internal/transport"
	"github.com/Skotchmaster/gastrodesk/pkg/logging"
)

type UsersHTTP struct {
	Svc  *service.UserService
	Auth *service.AuthService
}

func (h *UsersHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	users, err := h.Svc.ListUsers(ctx)
	if err != nil {
		return fail(l, "list_users_error", "cannot list users", err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UsersHTTP) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.create")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_user_error", "invalid body", err)
	}

	user, err := h.Auth.Register(ctx, req)
	if err != nil {
		return fail(l, "create_user_error", "cannot create user", err)
	}

	l.Info("create_user_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *UsersHTTP) PatchUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.patch")

	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "patch_user_error", "invalid id", err)
	}
	var req transport.PatchUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_user_error", "invalid body", err)
	}

	user, err := h.Svc.UpdateUser(ctx, actor, id, req)
	if err != nil {
		return fail(l, "patch_user_error", "cannot update user", err)
	}

	l.Info("patch_user_success", "user_id", id)
	return c.JSON(http.StatusOK, user)
}

func (h *UsersHTTP) ToggleActive(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.toggle_active")

	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "toggle_user_error", "invalid id", err)
	}

	user, err := h.Svc.ToggleActive(ctx, actor, id)
	if err != nil {
		return fail(l, "toggle_user_error", "cannot toggle user", err)
	}

	l.Info("toggle_user_success", "user_id", id, "is_active", user.IsActive)
	return c.JSON(http.StatusOK, user)
}
