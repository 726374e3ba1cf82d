package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/Skotchmaster/gastrodesk/internal/service"
	"github.com/Skotchmaster/gastrodesk/pkg/middleware/auth"
)

type Deps struct {
	Auth    *AuthHTTP
	Users   *UsersHTTP
	Menu    *MenuHTTP
	Orders  *OrdersHTTP
	Reports *ReportsHTTP

	JWTSecret []byte
	// Ready backs /health/ready; nil reports ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := auth.NewSimpleAuth(d.JWTSecret)
	if d.Users != nil && d.Users.Svc != nil {
		authMW.Lookup = subjectLookup(d.Users.Svc)
	}
	manager := auth.RequireRole(string(models.RoleManager))

	api := e.Group("/api/v1")

	a := api.Group("/auth")
	a.POST("/login", d.Auth.Login)
	a.POST("/refresh", d.Auth.Refresh)
	a.POST("/logout", d.Auth.Logout)
	a.GET("/me", d.Auth.Me, authMW.RequireAuth)
	a.PUT("/password", d.Auth.ChangePassword, authMW.RequireAuth)

	users := api.Group("/users", authMW.RequireAuth, manager)
	users.GET("", d.Users.ListUsers)
	users.POST("", d.Users.CreateUser)
	users.PATCH("/:id", d.Users.PatchUser)
	users.POST("/:id/toggle-active", d.Users.ToggleActive)

	cats := api.Group("/categories", authMW.RequireAuth)
	cats.GET("", d.Menu.ListCategories)
	cats.GET("/:id", d.Menu.GetCategory)
	cats.POST("", d.Menu.CreateCategory, manager)
	cats.PATCH("/:id", d.Menu.PatchCategory, manager)
	cats.DELETE("/:id", d.Menu.DeleteCategory, manager)
	cats.GET("/:id/dishes/export", d.Menu.ExportDishes, manager)
	cats.POST("/:id/dishes/import", d.Menu.ImportDishes, manager)

	dishes := api.Group("/dishes", authMW.RequireAuth)
	dishes.GET("", d.Menu.ListDishes)
	dishes.GET("/search", d.Menu.SearchDishes)
	dishes.GET("/:id", d.Menu.GetDish)
	dishes.POST("", d.Menu.CreateDish, manager)
	dishes.PATCH("/:id", d.Menu.PatchDish, manager)
	dishes.POST("/:id/toggle-active", d.Menu.ToggleDish, manager)
	dishes.DELETE("/:id", d.Menu.DeleteDish, manager)

	menu := api.Group("/menu", authMW.RequireAuth, manager)
	menu.GET("/export", d.Menu.ExportMenu)
	menu.POST("/import", d.Menu.ImportMenu)

	orders := api.Group("/orders", authMW.RequireAuth)
	orders.GET("", d.Orders.ListOrders)
	orders.POST("", d.Orders.CreateOrder)
	orders.GET("/:id", d.Orders.GetOrder)
	orders.PATCH("/:id", d.Orders.PatchOrder)
	orders.DELETE("/:id", d.Orders.DeleteOrder, manager)
	orders.POST("/:id/items", d.Orders.AddItem)
	orders.PATCH("/:id/items/:itemId", d.Orders.UpdateItem)
	orders.DELETE("/:id/items/:itemId", d.Orders.RemoveItem)
	orders.PUT("/:id/status", d.Orders.ChangeStatus)

	reports := api.Group("/reports", authMW.RequireAuth, manager)
	reports.GET("/daily", d.Reports.Daily)
	reports.GET("/weekly", d.Reports.Weekly)

	admin := api.Group("/admin", authMW.RequireAuth, manager)
	admin.POST("/reindex", d.Menu.Reindex)
}

func subjectLookup(users *service.UserService) auth.SubjectLookup {
	return func(ctx context.Context, id uint) (auth.Subject, error) {
		u, err := users.GetUser(ctx, id)
		if errors.Is(err, service.ErrNotFound) {
			return auth.Subject{}, auth.ErrUnknownUser
		}
		if err != nil {
			return auth.Subject{}, err
		}
		return auth.Subject{Role: string(u.Role), Active: u.IsActive}, nil
	}
}
