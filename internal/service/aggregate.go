package service

import (
	"fmt"

	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/shopspring/decimal"
)

// MaxItemQuantity caps one order line, merged quantities included.
const MaxItemQuantity = 999

func checkQuantity(quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	if quantity > MaxItemQuantity {
		return fmt.Errorf("%w: quantity must be <= %d", ErrValidation, MaxItemQuantity)
	}
	return nil
}

// TotalPrice sums unit price times quantity over all lines of the order.
func TotalPrice(order *models.Order) decimal.Decimal {
	return order.TotalPrice()
}

// AddItem merges quantity into the line already holding dish, or appends a
// new line priced at the dish's current price.
func AddItem(order *models.Order, dish *models.Dish, quantity int) (models.OrderItem, error) {
	if err := requireActive(order); err != nil {
		return models.OrderItem{}, err
	}
	if err := checkQuantity(quantity); err != nil {
		return models.OrderItem{}, err
	}
	if dish == nil {
		return models.OrderItem{}, fmt.Errorf("%w: dish required", ErrValidation)
	}
	if !dish.IsActive {
		return models.OrderItem{}, fmt.Errorf("%w: dish %d is not on the menu", ErrValidation, dish.ID)
	}

	for i := range order.Items {
		if order.Items[i].DishID == dish.ID {
			if order.Items[i].Quantity > MaxItemQuantity-quantity {
				return models.OrderItem{}, fmt.Errorf("%w: line for dish %d would exceed %d", ErrValidation, dish.ID, MaxItemQuantity)
			}
			order.Items[i].Quantity += quantity
			return order.Items[i], nil
		}
	}

	item := models.OrderItem{
		OrderID:   order.ID,
		DishID:    dish.ID,
		Quantity:  quantity,
		UnitPrice: dish.Price,
		Dish:      dish,
	}
	order.Items = append(order.Items, item)
	return item, nil
}

// RemoveItem deletes the line with itemID. A missing line is reported as
// ErrNotFound rather than ignored.
func RemoveItem(order *models.Order, itemID uint) error {
	if err := requireActive(order); err != nil {
		return err
	}
	idx := findItem(order, itemID)
	if idx < 0 {
		return fmt.Errorf("%w: order item %d", ErrNotFound, itemID)
	}
	order.Items = append(order.Items[:idx], order.Items[idx+1:]...)
	return nil
}

func UpdateItemQuantity(order *models.Order, itemID uint, quantity int) (models.OrderItem, error) {
	if err := requireActive(order); err != nil {
		return models.OrderItem{}, err
	}
	if err := checkQuantity(quantity); err != nil {
		return models.OrderItem{}, err
	}
	idx := findItem(order, itemID)
	if idx < 0 {
		return models.OrderItem{}, fmt.Errorf("%w: order item %d", ErrNotFound, itemID)
	}
	order.Items[idx].Quantity = quantity
	return order.Items[idx], nil
}

// CanTransition reports whether an order may move from one status to another.
// Only Active orders move, and only to a terminal status.
func CanTransition(from, to models.OrderStatus) bool {
	return from == models.OrderStatusActive && to.Terminal()
}

// ChangeStatus leaves the order untouched when the transition is rejected.
func ChangeStatus(order *models.Order, next models.OrderStatus) error {
	if order == nil {
		return fmt.Errorf("%w: order required", ErrValidation)
	}
	if !CanTransition(order.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
	}
	order.Status = next
	return nil
}

func requireActive(order *models.Order) error {
	if order == nil {
		return fmt.Errorf("%w: order required", ErrValidation)
	}
	if order.Status != models.OrderStatusActive {
		return fmt.Errorf("%w: order %d is %s", ErrInvalidState, order.ID, order.Status)
	}
	return nil
}

func findItem(order *models.Order, itemID uint) int {
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}
