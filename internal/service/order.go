package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/Skotchmaster/gastrodesk/internal/transport"
	"github.com/Skotchmaster/gastrodesk/pkg/logging"
)

const OrderEventsTopic = "order_events"

type OrderService struct {
	Orders OrderStore
	Dishes DishReader
	Events Publisher
	// Now defaults to time.Now; order timestamps are stored in UTC.
	Now func() time.Time

	locks keyedMutex
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OrderService) CreateOrder(ctx context.Context, req transport.CreateOrderRequest, userID uint) (*models.Order, error) {
	if req.TableNumber <= 0 {
		return nil, fmt.Errorf("%w: table_number must be > 0", ErrValidation)
	}
	if userID == 0 {
		return nil, fmt.Errorf("%w: user required", ErrValidation)
	}
	if len(req.Notes) > 500 {
		return nil, fmt.Errorf("%w: notes too long", ErrValidation)
	}

	order := &models.Order{
		TableNumber:   req.TableNumber,
		OrderDateTime: s.now(),
		Status:        models.OrderStatusActive,
		UserID:        userID,
		Notes:         strings.TrimSpace(req.Notes),
	}

	for _, it := range req.Items {
		dish, err := s.Dishes.GetDish(ctx, it.DishID)
		if err != nil {
			return nil, notFound(err, "dish", it.DishID)
		}
		if _, err := AddItem(order, dish, it.Quantity); err != nil {
			return nil, err
		}
	}
	// The dish pointers are only needed for validation; gorm must not upsert them.
	for i := range order.Items {
		order.Items[i].Dish = nil
	}

	if err := s.Orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.publish(ctx, order.ID, "order_created", map[string]any{
		"table_number": order.TableNumber,
		"user_id":      order.UserID,
		"items":        len(order.Items),
	})
	return s.GetOrder(ctx, order.ID)
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.Orders.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, fmt.Errorf("%w: date range end before start", ErrValidation)
	}
	return s.Orders.ListOrders(ctx, filter)
}

// UpdateOrder edits table number and notes of an Active order.
func (s *OrderService) UpdateOrder(ctx context.Context, id uint, req transport.PatchOrderRequest) (*models.Order, error) {
	if req.TableNumber != nil && *req.TableNumber <= 0 {
		return nil, fmt.Errorf("%w: table_number must be > 0", ErrValidation)
	}
	if req.Notes != nil && len(*req.Notes) > 500 {
		return nil, fmt.Errorf("%w: notes too long", ErrValidation)
	}

	return s.mutate(ctx, id, func(o *models.Order) error {
		if err := requireActive(o); err != nil {
			return err
		}
		if req.TableNumber != nil {
			o.TableNumber = *req.TableNumber
		}
		if req.Notes != nil {
			o.Notes = strings.TrimSpace(*req.Notes)
		}
		return nil
	})
}

func (s *OrderService) DeleteOrder(ctx context.Context, id uint) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.Orders.DeleteOrder(ctx, id); err != nil {
		return notFound(err, "order", id)
	}
	s.publish(ctx, id, "order_deleted", nil)
	return nil
}

func (s *OrderService) AddItem(ctx context.Context, orderID, dishID uint, quantity int) (*models.Order, error) {
	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}
	dish, err := s.Dishes.GetDish(ctx, dishID)
	if err != nil {
		return nil, notFound(err, "dish", dishID)
	}

	order, err := s.mutate(ctx, orderID, func(o *models.Order) error {
		_, err := AddItem(o, dish, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, orderID, "order_item_added", map[string]any{"dish_id": dishID, "quantity": quantity})
	return order, nil
}

func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uint) (*models.Order, error) {
	order, err := s.mutate(ctx, orderID, func(o *models.Order) error {
		return RemoveItem(o, itemID)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, orderID, "order_item_removed", map[string]any{"item_id": itemID})
	return order, nil
}

func (s *OrderService) UpdateItemQuantity(ctx context.Context, orderID, itemID uint, quantity int) (*models.Order, error) {
	order, err := s.mutate(ctx, orderID, func(o *models.Order) error {
		_, err := UpdateItemQuantity(o, itemID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, orderID, "order_item_updated", map[string]any{"item_id": itemID, "quantity": quantity})
	return order, nil
}

func (s *OrderService) ChangeStatus(ctx context.Context, orderID uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	var from models.OrderStatus
	order, err := s.mutate(ctx, orderID, func(o *models.Order) error {
		from = o.Status
		return ChangeStatus(o, status)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, orderID, "order_status_changed", map[string]any{
		"from":  from,
		"to":    order.Status,
		"total": order.TotalPrice().StringFixed(2),
	})
	return order, nil
}

// mutate runs fn against the stored order under the per-order lock; the store
// commits only when fn returns nil.
func (s *OrderService) mutate(ctx context.Context, id uint, fn func(*models.Order) error) (*models.Order, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	if _, err := s.Orders.UpdateOrder(ctx, id, fn); err != nil {
		return nil, notFound(err, "order", id)
	}
	return s.GetOrder(ctx, id)
}

func (s *OrderService) publish(ctx context.Context, orderID uint, typ string, payload map[string]any) {
	if s.Events == nil {
		return
	}
	l := logging.FromContext(ctx).With("svc", "order.publish")

	if payload == nil {
		payload = map[string]any{}
	}
	payload["order_id"] = orderID
	event := newEvent(typ, payload)
	event.OccurredAt = s.now()

	if err := s.Events.PublishEvent(ctx, OrderEventsTopic, fmt.Sprint(orderID), event); err != nil {
		l.Error("publish_error", "type", typ, "order_id", orderID, "error", err)
	}
}
