package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/Skotchmaster/gastrodesk/internal/testdb"
)

type fixture struct {
	repo  *GormRepo
	user  models.User
	cat   models.Category
	pizza models.Dish
	soup  models.Dish
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	r := &GormRepo{DB: testdb.New(t)}

	f := &fixture{repo: r}
	f.user = models.User{Username: "anna", PasswordHash: "x", FirstName: "Anna", LastName: "Lee", Role: models.RoleWaiter, IsActive: true}
	created, err := r.CreateUserIfNotExists(ctx, &f.user)
	require.NoError(t, err)
	require.True(t, created)

	f.cat = models.Category{Name: "Mains"}
	require.NoError(t, r.CreateCategory(ctx, &f.cat))

	f.pizza = models.Dish{Name: "Pizza", Price: decimal.RequireFromString("12.50"), CategoryID: f.cat.ID, IsActive: true}
	f.soup = models.Dish{Name: "Soup", Price: decimal.RequireFromString("4.25"), CategoryID: f.cat.ID, IsActive: false}
	require.NoError(t, r.CreateDish(ctx, &f.pizza))
	require.NoError(t, r.CreateDish(ctx, &f.soup))
	return f
}

func (f *fixture) order(t *testing.T, at time.Time, status models.OrderStatus, items ...models.OrderItem) models.Order {
	t.Helper()
	o := models.Order{TableNumber: 3, OrderDateTime: at, Status: status, UserID: f.user.ID, Items: items}
	require.NoError(t, f.repo.CreateOrder(context.Background(), &o))
	return o
}

func TestCreateAndGetOrder(t *testing.T) {
	f := setup(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	o := f.order(t, at, models.OrderStatusActive,
		models.OrderItem{DishID: f.pizza.ID, Quantity: 2, UnitPrice: f.pizza.Price})

	got, err := f.repo.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Pizza", got.Items[0].DishName())
	assert.Equal(t, "Anna Lee", got.WaiterName())
	assert.True(t, decimal.RequireFromString("25").Equal(got.TotalPrice()))
	assert.True(t, at.Equal(got.OrderDateTime))
}

func TestUpdateOrder_SyncsItems(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.order(t, time.Now().UTC(), models.OrderStatusActive,
		models.OrderItem{DishID: f.pizza.ID, Quantity: 1, UnitPrice: f.pizza.Price},
		models.OrderItem{DishID: f.soup.ID, Quantity: 1, UnitPrice: f.soup.Price})

	_, err := f.repo.UpdateOrder(ctx, o.ID, func(o *models.Order) error {
		o.Items = o.Items[:1]
		o.Items[0].Quantity = 4
		o.Notes = "window"
		return nil
	})
	require.NoError(t, err)

	got, err := f.repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 4, got.Items[0].Quantity)
	assert.Equal(t, "window", got.Notes)

	var count int64
	require.NoError(t, f.repo.DB.Model(&models.OrderItem{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpdateOrder_RollbackOnError(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.order(t, time.Now().UTC(), models.OrderStatusActive)

	_, err := f.repo.UpdateOrder(ctx, o.ID, func(o *models.Order) error {
		o.Notes = "changed"
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := f.repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Notes)
}

func TestUpdateOrder_Missing(t *testing.T) {
	f := setup(t)
	_, err := f.repo.UpdateOrder(context.Background(), 999, func(*models.Order) error { return nil })
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetOrdersInRange(t *testing.T) {
	f := setup(t)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f.order(t, day.Add(-time.Second), models.OrderStatusCompleted)
	in1 := f.order(t, day, models.OrderStatusCompleted)
	in2 := f.order(t, day.Add(23*time.Hour+59*time.Minute), models.OrderStatusCancelled)
	f.order(t, day.Add(24*time.Hour), models.OrderStatusCompleted)

	orders, err := f.repo.GetOrdersInRange(context.Background(), day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, in1.ID, orders[0].ID)
	assert.Equal(t, in2.ID, orders[1].ID)
}

func TestListOrders_Filters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	first := f.order(t, base, models.OrderStatusCompleted)
	second := f.order(t, base.Add(time.Hour), models.OrderStatusActive)

	all, err := f.repo.ListOrders(ctx, models.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	active, err := f.repo.ListOrders(ctx, models.OrderFilter{Status: models.OrderStatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	none, err := f.repo.ListOrders(ctx, models.OrderFilter{UserID: f.user.ID + 1})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteOrder_RemovesItems(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.order(t, time.Now().UTC(), models.OrderStatusActive,
		models.OrderItem{DishID: f.pizza.ID, Quantity: 1, UnitPrice: f.pizza.Price})

	require.NoError(t, f.repo.DeleteOrder(ctx, o.ID))

	_, err := f.repo.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	var count int64
	require.NoError(t, f.repo.DB.Model(&models.OrderItem{}).Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, f.repo.DeleteOrder(ctx, o.ID), gorm.ErrRecordNotFound)
}

func TestDeleteDish_GuardSeesReferences(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.order(t, time.Now().UTC(), models.OrderStatusCompleted,
		models.OrderItem{DishID: f.pizza.ID, Quantity: 1, UnitPrice: f.pizza.Price})

	var seen bool
	err := f.repo.DeleteDish(ctx, f.pizza.ID, func(_ *models.Dish, referenced bool) error {
		seen = referenced
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.True(t, seen)

	_, err = f.repo.GetDish(ctx, f.pizza.ID)
	require.NoError(t, err)

	require.NoError(t, f.repo.DeleteDish(ctx, f.soup.ID, func(_ *models.Dish, referenced bool) error {
		assert.False(t, referenced)
		return nil
	}))
	_, err = f.repo.GetDish(ctx, f.soup.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteCategory_GuardSeesDishes(t *testing.T) {
	f := setup(t)
	err := f.repo.DeleteCategory(context.Background(), f.cat.ID, func(c *models.Category) error {
		assert.Len(t, c.Dishes, 2)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCategory_DuplicateName(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	err := f.repo.CreateCategory(ctx, &models.Category{Name: "Mains"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	drinks := models.Category{Name: "Drinks"}
	require.NoError(t, f.repo.CreateCategory(ctx, &drinks))
	_, err = f.repo.UpdateCategory(ctx, drinks.ID, func(c *models.Category) error {
		c.Name = "Mains"
		return nil
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestUniqueErr(t *testing.T) {
	assert.NoError(t, uniqueErr(nil))
	assert.ErrorIs(t, uniqueErr(&pq.Error{Code: pqUniqueViolation}), gorm.ErrDuplicatedKey)
	assert.ErrorIs(t, uniqueErr(errors.New("UNIQUE constraint failed: categories.name")), gorm.ErrDuplicatedKey)

	other := &pq.Error{Code: "23503"}
	assert.Same(t, other, uniqueErr(other))
	assert.Equal(t, assert.AnError, uniqueErr(assert.AnError))
}

func TestListDishes_ActiveOnly(t *testing.T) {
	f := setup(t)
	dishes, err := f.repo.ListDishes(context.Background(), models.DishFilter{CategoryID: f.cat.ID, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, dishes, 1)
	assert.Equal(t, "Pizza", dishes[0].Name)
	require.NotNil(t, dishes[0].Category)
	assert.Equal(t, "Mains", dishes[0].Category.Name)
}

func TestSearchDishes(t *testing.T) {
	f := setup(t)
	total, dishes, err := f.repo.SearchDishes(context.Background(), "PIZ", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, dishes, 1)
	assert.Equal(t, f.pizza.ID, dishes[0].ID)
}

func TestSaveMenu(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.pizza.Price = decimal.RequireFromString("13.00")
	menu := []models.Category{
		{ID: f.cat.ID, Name: f.cat.Name, Dishes: []models.Dish{f.pizza}},
		{Name: "Drinks", Dishes: []models.Dish{{Name: "Tea", Price: decimal.RequireFromString("2"), IsActive: true}}},
	}
	require.NoError(t, f.repo.SaveMenu(ctx, menu))

	drinks, err := f.repo.GetCategoryByName(ctx, "Drinks")
	require.NoError(t, err)
	require.Len(t, drinks.Dishes, 1)
	assert.Equal(t, "Tea", drinks.Dishes[0].Name)

	pizza, err := f.repo.GetDish(ctx, f.pizza.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("13").Equal(pizza.Price))
}

func TestUsers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	dup := models.User{Username: "anna", PasswordHash: "y", FirstName: "A", LastName: "B", Role: models.RoleWaiter}
	created, err := f.repo.CreateUserIfNotExists(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created)

	u, err := f.repo.UpdateUser(ctx, f.user.ID, func(u *models.User) error {
		u.IsActive = false
		return nil
	})
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	got, err := f.repo.GetUserByUsername(ctx, "anna")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	n, err := f.repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRotateRefreshToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Unix()

	require.NoError(t, f.repo.SaveRefreshToken(ctx, &models.RefreshToken{Token: "h1", UserID: f.user.ID, JTI: "j1", ExpiresAt: exp}))

	require.NoError(t, f.repo.RotateRefreshToken(ctx, "j1", &models.RefreshToken{Token: "h2", UserID: f.user.ID, JTI: "j2", ExpiresAt: exp}))
	old, err := f.repo.FindRefreshByJTI(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, old.Revoked)

	err = f.repo.RotateRefreshToken(ctx, "j1", &models.RefreshToken{Token: "h3", UserID: f.user.ID, JTI: "j3", ExpiresAt: exp})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, f.repo.RevokeRefreshToken(ctx, "h2"))
	cur, err := f.repo.FindRefreshByJTI(ctx, "j2")
	require.NoError(t, err)
	assert.True(t, cur.Revoked)
}
