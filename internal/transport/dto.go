package transport

import (
	"time"

	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	AccessExp    time.Time       `json:"access_exp"`
	RefreshExp   time.Time       `json:"refresh_exp"`
	Role         models.UserRole `json:"role"`
}

type RegisterRequest struct {
	Username  string          `json:"username"`
	Password  string          `json:"password"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Role      models.UserRole `json:"role"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type PatchUserRequest struct {
	Role     *models.UserRole `json:"role"`
	IsActive *bool            `json:"is_active"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type PatchCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type CreateDishRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  uint            `json:"category_id"`
	IsActive    *bool           `json:"is_active"`
}

type PatchDishRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	CategoryID  *uint            `json:"category_id"`
	IsActive    *bool            `json:"is_active"`
}

type CreateOrderItem struct {
	DishID   uint `json:"dish_id"`
	Quantity int  `json:"quantity"`
}

type CreateOrderRequest struct {
	TableNumber int               `json:"table_number"`
	Notes       string            `json:"notes"`
	Items       []CreateOrderItem `json:"items"`
}

type PatchOrderRequest struct {
	TableNumber *int    `json:"table_number"`
	Notes       *string `json:"notes"`
}

type AddItemRequest struct {
	DishID   uint `json:"dish_id"`
	Quantity int  `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

type ChangeStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type OrderResponse struct {
	models.Order
	WaiterName string          `json:"waiter_name"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func NewOrderResponse(o *models.Order) OrderResponse {
	return OrderResponse{Order: *o, WaiterName: o.WaiterName(), TotalPrice: o.TotalPrice()}
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

func NewPageMeta(page, offset, limit int, total int64) PageMeta {
	return PageMeta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
		HasPrev:    page > 1,
		HasNext:    int64(offset+limit) < total,
	}
}
