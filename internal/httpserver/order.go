package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/Skotchmaster/gastrodesk/internal/service"
	"github.com/Skotchmaster/gastrodesk/internal/transport"
	"github.com/Skotchmaster/gastrodesk/internal/util"
	"github.com/Skotchmaster/gastrodesk/pkg/logging"
)

type OrdersHTTP struct {
	Svc *service.OrderService
	// Location interprets the date/from/to query parameters.
	Location *time.Location
	Now      func() time.Time
}

func (h *OrdersHTTP) loc() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return time.Local
}

func (h *OrdersHTTP) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func orderList(orders []models.Order) []transport.OrderResponse {
	out := make([]transport.OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, transport.NewOrderResponse(&orders[i]))
	}
	return out
}

// filter builds the listing filter from the query string. date selects one
// calendar day; from/to select an inclusive range of days.
func (h *OrdersHTTP) filter(c echo.Context) (models.OrderFilter, error) {
	var f models.OrderFilter
	loc := h.loc()

	if raw := c.QueryParam("date"); raw != "" {
		day, err := util.ParseDate(raw, loc, h.now())
		if err != nil {
			return f, err
		}
		f.From, f.To = service.DayBounds(day, loc)
	}
	if raw := c.QueryParam("from"); raw != "" {
		day, err := util.ParseDate(raw, loc, h.now())
		if err != nil {
			return f, err
		}
		f.From, _ = service.DayBounds(day, loc)
	}
	if raw := c.QueryParam("to"); raw != "" {
		day, err := util.ParseDate(raw, loc, h.now())
		if err != nil {
			return f, err
		}
		_, f.To = service.DayBounds(day, loc)
	}

	f.Status = models.OrderStatus(c.QueryParam("status"))
	if raw := c.QueryParam("user_id"); raw != "" {
		id, err := util.ParseUint(raw)
		if err != nil {
			return f, err
		}
		f.UserID = id
	}
	if c.QueryParam("mine") == "true" {
		id, err := currentUser(c)
		if err != nil {
			return f, err
		}
		f.UserID = id
	}
	return f, nil
}

func (h *OrdersHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list")

	filter, err := h.filter(c)
	if err != nil {
		return badRequest(l, "list_orders_error", err.Error(), err)
	}
	page := max(util.ParseIntDefault(c.QueryParam("page"), 1), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	filter.Offset, filter.Limit = util.Calculate(page, size)

	orders, err := h.Svc.ListOrders(ctx, filter)
	if err != nil {
		return fail(l, "list_orders_error", "cannot list orders", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items": orderList(orders),
		"meta": echo.Map{
			"page":     page,
			"size":     filter.Limit,
			"has_prev": page > 1,
			"has_next": len(orders) == filter.Limit,
		},
	})
}

func (h *OrdersHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.create")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_order_error", "invalid body", err)
	}

	order, err := h.Svc.CreateOrder(ctx, req, userID)
	if err != nil {
		return fail(l, "create_order_error", "cannot create order", err)
	}

	l.Info("create_order_success", "order_id", order.ID, "user_id", userID)
	return c.JSON(http.StatusCreated, transport.NewOrderResponse(order))
}

func (h *OrdersHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.get")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_order_error", "invalid id", err)
	}
	order, err := h.Svc.GetOrder(ctx, id)
	if err != nil {
		return fail(l, "get_order_error", "cannot load order", err)
	}
	return c.JSON(http.StatusOK, transport.NewOrderResponse(order))
}

func (h *OrdersHTTP) PatchOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.patch")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "patch_order_error", "invalid id", err)
	}
	var req transport.PatchOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_order_error", "invalid body", err)
	}

	order, err := h.Svc.UpdateOrder(ctx, id, req)
	if err != nil {
		return fail(l, "patch_order_error", "cannot update order", err)
	}

	l.Info("patch_order_success", "order_id", id)
	return c.JSON(http.StatusOK, transport.NewOrderResponse(order))
}

func (h *OrdersHTTP) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.delete")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "delete_order_error", "invalid id", err)
	}
	if err := h.Svc.DeleteOrder(ctx, id); err != nil {
		return fail(l, "delete_order_error", "cannot delete order", err)
	}

	l.Info("delete_order_success", "order_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *OrdersHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.add_item")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "add_item_error", "invalid id", err)
	}
	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_item_error", "invalid body", err)
	}

	order, err := h.Svc.AddItem(ctx, id, req.DishID, req.Quantity)
	if err != nil {
		return fail(l, "add_item_error", "cannot add item", err)
	}

	l.Info("add_item_success", "order_id", id, "dish_id", req.DishID, "quantity", req.Quantity)
	return c.JSON(http.StatusOK, transport.NewOrderResponse(order))
}

func (h *OrdersHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.update_item")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "update_item_error", "invalid id", err)
	}
	itemID, err := paramID(c, "itemId")
	if err != nil {
		return badRequest(l, "update_item_error", "invalid item id", err)
	}
	var req transport.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_item_error", "invalid body", err)
	}

	order, err := h.Svc.UpdateItemQuantity(ctx, id, itemID, req.Quantity)
	if err != nil {
		return fail(l, "update_item_error", "cannot update item", err)
	}

	l.Info("update_item_success", "order_id", id, "item_id", itemID, "quantity", req.Quantity)
	return c.JSON(http.StatusOK, transport.NewOrderResponse(order))
}

func (h *OrdersHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.remove_item")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "remove_item_error", "invalid id", err)
	}
	itemID, err := paramID(c, "itemId")
	if err != nil {
		return badRequest(l, "remove_item_error", "invalid item id", err)
	}

	order, err := h.Svc.RemoveItem(ctx, id, itemID)
	if err != nil {
		return fail(l, "remove_item_error", "cannot remove item", err)
	}

	l.Info("remove_item_success", "order_id", id, "item_id", itemID)
	return c.JSON(http.StatusOK, transport.NewOrderResponse(order))
}

func (h *OrdersHTTP) ChangeStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.change_status")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "change_status_error", "invalid id", err)
	}
	var req transport.ChangeStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "change_status_error", "invalid body", err)
	}

	order, err := h.Svc.ChangeStatus(ctx, id, req.Status)
	if err != nil {
		return fail(l, "change_status_error", "cannot change status", err)
	}

	l.Info("change_status_success", "order_id", id, "status", order.Status)
	return c.JSON(http.StatusOK, transport.NewOrderResponse(order))
}
