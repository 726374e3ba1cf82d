package httpserver

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gastrodesk/internal/export"
	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/Skotchmaster/gastrodesk/internal/service"
	"github.com/Skotchmaster/gastrodesk/internal/transport"
	"github.com/Skotchmaster/gastrodesk/internal/util"
	"github.com/Skotchmaster/gastrodesk/pkg/logging"
)

type MenuHTTP struct {
	Svc *service.MenuService
	Now func() time.Time
}

func (h *MenuHTTP) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *MenuHTTP) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.list_categories")

	cats, err := h.Svc.ListCategories(ctx)
	if err != nil {
		return fail(l, "list_categories_error", "cannot list categories", err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *MenuHTTP) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.get_category")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_category_error", "invalid id", err)
	}
	cat, err := h.Svc.GetCategory(ctx, id)
	if err != nil {
		return fail(l, "get_category_error", "cannot load category", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *MenuHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.create_category")

	var req transport.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_category_error", "invalid body", err)
	}
	cat, err := h.Svc.CreateCategory(ctx, req)
	if err != nil {
		return fail(l, "create_category_error", "cannot create category", err)
	}

	l.Info("create_category_success", "category_id", cat.ID)
	return c.JSON(http.StatusCreated, cat)
}

func (h *MenuHTTP) PatchCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.patch_category")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "patch_category_error", "invalid id", err)
	}
	var req transport.PatchCategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_category_error", "invalid body", err)
	}
	cat, err := h.Svc.UpdateCategory(ctx, id, req)
	if err != nil {
		return fail(l, "patch_category_error", "cannot update category", err)
	}

	l.Info("patch_category_success", "category_id", id)
	return c.JSON(http.StatusOK, cat)
}

func (h *MenuHTTP) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.delete_category")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "delete_category_error", "invalid id", err)
	}
	if err := h.Svc.DeleteCategory(ctx, id); err != nil {
		return fail(l, "delete_category_error", "cannot delete category", err)
	}

	l.Info("delete_category_success", "category_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *MenuHTTP) ListDishes(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.list_dishes")

	var filter models.DishFilter
	if raw := c.QueryParam("category_id"); raw != "" {
		id, err := util.ParseUint(raw)
		if err != nil {
			return badRequest(l, "list_dishes_error", "invalid category_id", err)
		}
		filter.CategoryID = id
	}
	filter.ActiveOnly = c.QueryParam("active") == "true"

	dishes, err := h.Svc.ListDishes(ctx, filter)
	if err != nil {
		return fail(l, "list_dishes_error", "cannot list dishes", err)
	}
	return c.JSON(http.StatusOK, dishes)
}

func (h *MenuHTTP) SearchDishes(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.search_dishes")

	q := c.QueryParam("q")
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}

	total, dishes, err := h.Svc.SearchDishes(ctx, q, offset, limit)
	if err != nil {
		return fail(l, "search_dishes_error", "cannot search dishes", err)
	}

	l.Info("search_dishes_success", "q", q, "total", total)
	return c.JSON(http.StatusOK, echo.Map{
		"items": dishes,
		"meta":  transport.NewPageMeta(page, offset, limit, total),
	})
}

func (h *MenuHTTP) GetDish(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.get_dish")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_dish_error", "invalid id", err)
	}
	dish, err := h.Svc.GetDish(ctx, id)
	if err != nil {
		return fail(l, "get_dish_error", "cannot load dish", err)
	}
	return c.JSON(http.StatusOK, dish)
}

func (h *MenuHTTP) CreateDish(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.create_dish")

	var req transport.CreateDishRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_dish_error", "invalid body", err)
	}
	dish, err := h.Svc.CreateDish(ctx, req)
	if err != nil {
		return fail(l, "create_dish_error", "cannot create dish", err)
	}

	l.Info("create_dish_success", "dish_id", dish.ID)
	return c.JSON(http.StatusCreated, dish)
}

func (h *MenuHTTP) PatchDish(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.patch_dish")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "patch_dish_error", "invalid id", err)
	}
	var req transport.PatchDishRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_dish_error", "invalid body", err)
	}
	dish, err := h.Svc.UpdateDish(ctx, id, req)
	if err != nil {
		return fail(l, "patch_dish_error", "cannot update dish", err)
	}

	l.Info("patch_dish_success", "dish_id", id)
	return c.JSON(http.StatusOK, dish)
}

func (h *MenuHTTP) ToggleDish(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.toggle_dish")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "toggle_dish_error", "invalid id", err)
	}
	dish, err := h.Svc.ToggleDishActive(ctx, id)
	if err != nil {
		return fail(l, "toggle_dish_error", "cannot toggle dish", err)
	}

	l.Info("toggle_dish_success", "dish_id", id, "is_active", dish.IsActive)
	return c.JSON(http.StatusOK, dish)
}

func (h *MenuHTTP) DeleteDish(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.delete_dish")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "delete_dish_error", "invalid id", err)
	}
	if err := h.Svc.DeleteDish(ctx, id); err != nil {
		return fail(l, "delete_dish_error", "cannot delete dish", err)
	}

	l.Info("delete_dish_success", "dish_id", id)
	return c.NoContent(http.StatusNoContent)
}

// documentFormat accepts json and xml only; menus have no PDF form.
func documentFormat(c echo.Context) (export.Format, error) {
	f, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return "", err
	}
	if f == export.FormatPDF {
		return "", fmt.Errorf("%w: %q", export.ErrUnsupportedFormat, f)
	}
	return f, nil
}

// importFormat picks the decoder from ?format, then from the Content-Type.
func importFormat(c echo.Context) (export.Format, error) {
	if c.QueryParam("format") != "" {
		return documentFormat(c)
	}
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, echo.MIMEApplicationXML) || strings.HasPrefix(ct, echo.MIMETextXML) {
		return export.FormatXML, nil
	}
	return export.FormatJSON, nil
}

func attach(c echo.Context, f export.Format, name string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.%s"`, name, f))
	return c.Blob(http.StatusOK, f.ContentType(), body)
}

func (h *MenuHTTP) ExportMenu(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.export")

	f, err := documentFormat(c)
	if err != nil {
		return fail(l, "export_menu_error", "unsupported format", err)
	}
	now := h.now()
	menu, err := h.Svc.ExportMenu(ctx, now)
	if err != nil {
		return fail(l, "export_menu_error", "cannot export menu", err)
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, f, export.RootMenu, menu); err != nil {
		return fail(l, "export_menu_error", "cannot encode menu", err)
	}

	l.Info("export_menu_success", "format", f, "categories", len(menu.Categories))
	return attach(c, f, "menu_"+now.Format("20060102_150405"), buf.Bytes())
}

func (h *MenuHTTP) ImportMenu(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.import")

	f, err := importFormat(c)
	if err != nil {
		return fail(l, "import_menu_error", "unsupported format", err)
	}
	var menu models.MenuExport
	if err := export.Decode(c.Request().Body, f, export.RootMenu, &menu); err != nil {
		return badRequest(l, "import_menu_error", "invalid document", err)
	}

	res, err := h.Svc.ImportMenu(ctx, menu)
	if err != nil {
		return fail(l, "import_menu_error", "cannot import menu", err)
	}

	l.Info("import_menu_success", "categories_created", res.CategoriesCreated, "dishes_created", res.DishesCreated)
	return c.JSON(http.StatusOK, res)
}

func (h *MenuHTTP) ExportDishes(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.export_dishes")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "export_dishes_error", "invalid id", err)
	}
	f, err := documentFormat(c)
	if err != nil {
		return fail(l, "export_dishes_error", "unsupported format", err)
	}
	now := h.now()
	doc, err := h.Svc.ExportDishes(ctx, id, now)
	if err != nil {
		return fail(l, "export_dishes_error", "cannot export dishes", err)
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, f, export.RootDishes, doc); err != nil {
		return fail(l, "export_dishes_error", "cannot encode dishes", err)
	}

	l.Info("export_dishes_success", "category_id", id, "format", f)
	return attach(c, f, fmt.Sprintf("dishes_%d_%s", id, now.Format("20060102_150405")), buf.Bytes())
}

func (h *MenuHTTP) ImportDishes(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.import_dishes")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "import_dishes_error", "invalid id", err)
	}
	f, err := importFormat(c)
	if err != nil {
		return fail(l, "import_dishes_error", "unsupported format", err)
	}
	var doc models.DishesExport
	if err := export.Decode(c.Request().Body, f, export.RootDishes, &doc); err != nil {
		return badRequest(l, "import_dishes_error", "invalid document", err)
	}

	res, err := h.Svc.ImportDishes(ctx, id, doc)
	if err != nil {
		return fail(l, "import_dishes_error", "cannot import dishes", err)
	}

	l.Info("import_dishes_success", "category_id", id, "dishes_created", res.DishesCreated, "dishes_updated", res.DishesUpdated)
	return c.JSON(http.StatusOK, res)
}

func (h *MenuHTTP) Reindex(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.reindex")

	n, err := h.Svc.Reindex(ctx)
	if err != nil {
		return fail(l, "reindex_error", "cannot reindex dishes", err)
	}

	l.Info("reindex_success", "dishes", n)
	return c.JSON(http.StatusOK, echo.Map{"indexed": n})
}
