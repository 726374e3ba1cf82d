package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/gastrodesk/internal/models"
)

type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	// UpdateOrder loads the order with its items inside one transaction, hands
	// it to fn and persists the result only if fn succeeds.
	UpdateOrder(ctx context.Context, id uint, fn func(*models.Order) error) (*models.Order, error)
	DeleteOrder(ctx context.Context, id uint) error
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	GetOrdersInRange(ctx context.Context, start, end time.Time) ([]models.Order, error)
}

type DishReader interface {
	GetDish(ctx context.Context, id uint) (*models.Dish, error)
}

type MenuStore interface {
	DishReader

	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, id uint, fn func(*models.Category) error) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uint, guard func(*models.Category) error) error

	ListDishes(ctx context.Context, filter models.DishFilter) ([]models.Dish, error)
	SearchDishes(ctx context.Context, q string, offset, limit int) (int64, []models.Dish, error)
	CreateDish(ctx context.Context, dish *models.Dish) error
	UpdateDish(ctx context.Context, id uint, fn func(*models.Dish) error) (*models.Dish, error)
	DeleteDish(ctx context.Context, id uint, guard func(dish *models.Dish, referenced bool) error) error

	// SaveMenu creates categories without an ID and, per category, creates or
	// updates its dishes, all in one transaction.
	SaveMenu(ctx context.Context, categories []models.Category) error
}

// DishIndex is an optional full-text index kept in sync with the menu.
type DishIndex interface {
	IndexDish(ctx context.Context, dish models.Dish) error
	RemoveDish(ctx context.Context, id uint) error
	SearchDishes(ctx context.Context, q string, from, size int) (int64, []models.Dish, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// CreateUserIfNotExists reports false when the username is already taken.
	CreateUserIfNotExists(ctx context.Context, user *models.User) (bool, error)
	UpdateUser(ctx context.Context, id uint, fn func(*models.User) error) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type TokenStore interface {
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshByJTI(ctx context.Context, jti string) (*models.RefreshToken, error)
	// RotateRefreshToken revokes oldJTI and stores next atomically; it fails with
	// gorm.ErrRecordNotFound when oldJTI is unknown or already revoked.
	RotateRefreshToken(ctx context.Context, oldJTI string, next *models.RefreshToken) error
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}
