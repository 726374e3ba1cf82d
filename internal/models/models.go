package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "Active"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusActive, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type UserRole string

const (
	RoleWaiter  UserRole = "Waiter"
	RoleManager UserRole = "Manager"
)

func (r UserRole) Valid() bool {
	return r == RoleWaiter || r == RoleManager
}

type Category struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"     json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:500"                     json:"description"`
	Dishes      []Dish    `gorm:"foreignKey:CategoryID"        json:"dishes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Dish struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string          `gorm:"size:100;not null"         json:"name"`
	Description string          `gorm:"size:500"                  json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID  uint            `gorm:"index;not null"            json:"category_id"`
	IsActive    bool            `gorm:"not null"                  json:"is_active"`
	Category    *Category       `gorm:"foreignKey:CategoryID"     json:"category,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// OrderItem holds the dish price captured when the line was added; later menu
// price changes never reach it.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	DishID    uint            `gorm:"index;not null"              json:"dish_id"`
	Quantity  int             `gorm:"not null;check:quantity>0"   json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Dish      *Dish           `gorm:"foreignKey:DishID"           json:"dish,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (i OrderItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i OrderItem) DishName() string {
	if i.Dish == nil || i.Dish.Name == "" {
		return "Unknown"
	}
	return i.Dish.Name
}

type Order struct {
	ID            uint        `gorm:"primaryKey;autoIncrement"                     json:"id"`
	TableNumber   int         `gorm:"not null"                                     json:"table_number"`
	OrderDateTime time.Time   `gorm:"index;not null"                               json:"order_date_time"`
	Status        OrderStatus `gorm:"size:16;index;not null"                       json:"status"`
	UserID        uint        `gorm:"index;not null"                               json:"user_id"`
	User          *User       `gorm:"foreignKey:UserID"                            json:"-"`
	Items         []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Notes         string      `gorm:"size:500"                                     json:"notes"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (o *Order) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	if o == nil {
		return total
	}
	for _, item := range o.Items {
		total = total.Add(item.TotalPrice())
	}
	return total
}

func (o *Order) WaiterName() string {
	if o == nil || o.User == nil {
		return "Unknown"
	}
	return o.User.FullName()
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"    json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null"                    json:"-"`
	FirstName    string    `gorm:"size:50;not null"            json:"first_name"`
	LastName     string    `gorm:"size:50;not null"            json:"last_name"`
	Role         UserRole  `gorm:"size:16;not null"            json:"role"`
	IsActive     bool      `gorm:"not null"                    json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"        json:"id"`
	Token     string `gorm:"uniqueIndex;not null" json:"-"`
	UserID    uint   `gorm:"index;not null"    json:"user_id"`
	JTI       string `gorm:"uniqueIndex;not null" json:"jti"`
	ExpiresAt int64  `gorm:"not null"          json:"expires_at"`
	Revoked   bool   `gorm:"not null"          json:"revoked"`
}

// All lists every persisted model in migration order.
func All() []any {
	return []any{&User{}, &Category{}, &Dish{}, &Order{}, &OrderItem{}, &RefreshToken{}}
}
