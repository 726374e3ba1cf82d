package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/Skotchmaster/gastrodesk/internal/repo"
	"github.com/Skotchmaster/gastrodesk/internal/testdb"
	"github.com/Skotchmaster/gastrodesk/internal/transport"
)

type orderFixture struct {
	svc    *OrderService
	repo   *repo.GormRepo
	user   *models.User
	burger *models.Dish
	tea    *models.Dish
	off    *models.Dish
}

func newOrders(t *testing.T) *orderFixture {
	t.Helper()
	ctx := context.Background()
	r := &repo.GormRepo{DB: testdb.New(t)}

	u := &models.User{Username: "jan", PasswordHash: "x", FirstName: "Jan", LastName: "Novak", Role: models.RoleWaiter, IsActive: true}
	_, err := r.CreateUserIfNotExists(ctx, u)
	require.NoError(t, err)

	cat := &models.Category{Name: "Menu"}
	require.NoError(t, r.CreateCategory(ctx, cat))
	burger := &models.Dish{Name: "Burger", Price: dec("12.50"), CategoryID: cat.ID, IsActive: true}
	tea := &models.Dish{Name: "Tea", Price: dec("1.50"), CategoryID: cat.ID, IsActive: true}
	off := &models.Dish{Name: "Old special", Price: dec("9.00"), CategoryID: cat.ID}
	for _, d := range []*models.Dish{burger, tea, off} {
		require.NoError(t, r.CreateDish(ctx, d))
	}

	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	svc := &OrderService{Orders: r, Dishes: r, Now: func() time.Time { return now }}
	return &orderFixture{svc: svc, repo: r, user: u, burger: burger, tea: tea, off: off}
}

func (f *orderFixture) create(t *testing.T, items ...transport.CreateOrderItem) *models.Order {
	t.Helper()
	o, err := f.svc.CreateOrder(context.Background(), transport.CreateOrderRequest{TableNumber: 5, Items: items}, f.user.ID)
	require.NoError(t, err)
	return o
}

func TestOrderService_CreateOrder(t *testing.T) {
	f := newOrders(t)
	o := f.create(t,
		transport.CreateOrderItem{DishID: f.burger.ID, Quantity: 2},
		transport.CreateOrderItem{DishID: f.burger.ID, Quantity: 1},
		transport.CreateOrderItem{DishID: f.tea.ID, Quantity: 1},
	)

	assert.Equal(t, models.OrderStatusActive, o.Status)
	require.Len(t, o.Items, 2)
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.Equal(t, "39.00", o.TotalPrice().StringFixed(2))
	assert.Equal(t, "Jan Novak", o.WaiterName())

	ctx := context.Background()
	_, err := f.svc.CreateOrder(ctx, transport.CreateOrderRequest{TableNumber: 0}, f.user.ID)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.CreateOrder(ctx, transport.CreateOrderRequest{TableNumber: 1, Items: []transport.CreateOrderItem{{DishID: 999, Quantity: 1}}}, f.user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.CreateOrder(ctx, transport.CreateOrderRequest{TableNumber: 1, Items: []transport.CreateOrderItem{{DishID: f.off.ID, Quantity: 1}}}, f.user.ID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderService_AddItemMergesAndPersists(t *testing.T) {
	f := newOrders(t)
	ctx := context.Background()
	o := f.create(t)

	_, err := f.svc.AddItem(ctx, o.ID, f.burger.ID, 2)
	require.NoError(t, err)
	got, err := f.svc.AddItem(ctx, o.ID, f.burger.ID, 3)
	require.NoError(t, err)

	require.Len(t, got.Items, 1)
	assert.Equal(t, 5, got.Items[0].Quantity)
	assert.Equal(t, "62.50", got.TotalPrice().StringFixed(2))
}

func TestOrderService_PriceSnapshot(t *testing.T) {
	f := newOrders(t)
	ctx := context.Background()
	o := f.create(t, transport.CreateOrderItem{DishID: f.burger.ID, Quantity: 1})

	_, err := f.repo.UpdateDish(ctx, f.burger.ID, func(d *models.Dish) error {
		d.Price = dec("99.00")
		return nil
	})
	require.NoError(t, err)

	got, err := f.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.50", got.TotalPrice().StringFixed(2))
}

func TestOrderService_TerminalOrdersAreFrozen(t *testing.T) {
	f := newOrders(t)
	ctx := context.Background()
	o := f.create(t, transport.CreateOrderItem{DishID: f.tea.ID, Quantity: 1})
	itemID := o.Items[0].ID

	done, err := f.svc.ChangeStatus(ctx, o.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, done.Status)

	_, err = f.svc.ChangeStatus(ctx, o.ID, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.ChangeStatus(ctx, o.ID, models.OrderStatusActive)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.AddItem(ctx, o.ID, f.tea.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.RemoveItem(ctx, o.ID, itemID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.UpdateItemQuantity(ctx, o.ID, itemID, 9)
	assert.ErrorIs(t, err, ErrInvalidState)
	notes := "late"
	_, err = f.svc.UpdateOrder(ctx, o.ID, transport.PatchOrderRequest{Notes: &notes})
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := f.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 1, got.Items[0].Quantity)
	assert.Empty(t, got.Notes)
}

func TestOrderService_QuantityCap(t *testing.T) {
	f := newOrders(t)
	ctx := context.Background()
	o := f.create(t)

	_, err := f.svc.AddItem(ctx, o.ID, f.tea.ID, math.MaxInt)
	assert.ErrorIs(t, err, ErrValidation)

	got, err := f.svc.AddItem(ctx, o.ID, f.tea.ID, MaxItemQuantity)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, o.ID, f.tea.ID, 1)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.UpdateItemQuantity(ctx, o.ID, got.Items[0].ID, math.MaxInt)
	assert.ErrorIs(t, err, ErrValidation)

	stored, err := f.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, MaxItemQuantity, stored.Items[0].Quantity)

	_, err = f.svc.CreateOrder(ctx, transport.CreateOrderRequest{TableNumber: 2, Items: []transport.CreateOrderItem{
		{DishID: f.burger.ID, Quantity: MaxItemQuantity},
		{DishID: f.burger.ID, Quantity: math.MaxInt - 100},
	}}, f.user.ID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderService_RemoveAndUpdateItems(t *testing.T) {
	f := newOrders(t)
	ctx := context.Background()
	o := f.create(t,
		transport.CreateOrderItem{DishID: f.burger.ID, Quantity: 1},
		transport.CreateOrderItem{DishID: f.tea.ID, Quantity: 1},
	)

	got, err := f.svc.UpdateItemQuantity(ctx, o.ID, o.Items[1].ID, 4)
	require.NoError(t, err)
	assert.Equal(t, "18.50", got.TotalPrice().StringFixed(2))

	got, err = f.svc.RemoveItem(ctx, o.ID, o.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, f.tea.ID, got.Items[0].DishID)

	_, err = f.svc.RemoveItem(ctx, o.ID, o.Items[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.AddItem(ctx, 999, f.tea.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderService_ListAndDelete(t *testing.T) {
	f := newOrders(t)
	ctx := context.Background()
	a := f.create(t)
	b := f.create(t)
	_, err := f.svc.ChangeStatus(ctx, b.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	cancelled, err := f.svc.ListOrders(ctx, models.OrderFilter{Status: models.OrderStatusCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, b.ID, cancelled[0].ID)

	_, err = f.svc.ListOrders(ctx, models.OrderFilter{Status: "Paid"})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, f.svc.DeleteOrder(ctx, a.ID))
	_, err = f.svc.GetOrder(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteOrder(ctx, a.ID), ErrNotFound)
}

func TestOrderService_ConcurrentAdds(t *testing.T) {
	f := newOrders(t)
	ctx := context.Background()
	o := f.create(t)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddItem(ctx, o.ID, f.tea.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := f.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 10, got.Items[0].Quantity)
}

func TestOrderService_PublishesStatusChange(t *testing.T) {
	f := newOrders(t)
	ctx := context.Background()
	o := f.create(t, transport.CreateOrderItem{DishID: f.tea.ID, Quantity: 2})

	pub := new(MockPublisher)
	f.svc.Events = pub
	pub.On("PublishEvent", mock.Anything, OrderEventsTopic, "1", mock.MatchedBy(func(e Event) bool {
		return e.Type == "order_status_changed" && e.Data["total"] == "3.00" && e.Data["to"] == models.OrderStatusCompleted
	})).Return(assert.AnError).Once()

	// a failing broker does not fail the mutation
	_, err := f.svc.ChangeStatus(ctx, o.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	pub.AssertExpectations(t)
}
