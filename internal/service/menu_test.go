package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/Skotchmaster/gastrodesk/internal/repo"
	"github.com/Skotchmaster/gastrodesk/internal/testdb"
	"github.com/Skotchmaster/gastrodesk/internal/transport"
)

func newMenu(t *testing.T) (*MenuService, *repo.GormRepo) {
	t.Helper()
	r := &repo.GormRepo{DB: testdb.New(t)}
	return &MenuService{Store: r}, r
}

func mustCategory(t *testing.T, s *MenuService, name string) *models.Category {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), transport.CreateCategoryRequest{Name: name})
	require.NoError(t, err)
	return c
}

func mustDish(t *testing.T, s *MenuService, catID uint, name, price string) *models.Dish {
	t.Helper()
	d, err := s.CreateDish(context.Background(), transport.CreateDishRequest{Name: name, Price: dec(price), CategoryID: catID})
	require.NoError(t, err)
	return d
}

func TestCheckGuards(t *testing.T) {
	assert.NoError(t, CheckCategoryDeletable(&models.Category{Name: "Empty"}))
	assert.ErrorIs(t, CheckCategoryDeletable(&models.Category{Name: "Full", Dishes: []models.Dish{{ID: 1}}}), ErrConflict)

	assert.NoError(t, CheckDishDeletable(&models.Dish{Name: "A"}, false))
	assert.ErrorIs(t, CheckDishDeletable(&models.Dish{Name: "A"}, true), ErrConflict)
}

func TestSortDishes_ByteWise(t *testing.T) {
	drinks := &models.Category{Name: "Drinks"}
	mains := &models.Category{Name: "Mains"}
	dishes := []models.Dish{
		{ID: 1, Name: "soup", Category: mains},
		{ID: 2, Name: "Tea", Category: drinks},
		{ID: 3, Name: "Steak", Category: mains},
		{ID: 4, Name: "Beer", Category: drinks},
	}
	SortDishes(dishes)

	var names []string
	for _, d := range dishes {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Beer", "Tea", "Steak", "soup"}, names)
}

func TestCreateCategory_Validation(t *testing.T) {
	s, _ := newMenu(t)
	ctx := context.Background()

	_, err := s.CreateCategory(ctx, transport.CreateCategoryRequest{Name: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	mustCategory(t, s, "Mains")
	_, err = s.CreateCategory(ctx, transport.CreateCategoryRequest{Name: "Mains"})
	assert.ErrorIs(t, err, ErrConflict)
}

// staleNames hides existing categories from the name pre-check, as a
// concurrent writer that commits between check and insert would.
type staleNames struct {
	*repo.GormRepo
}

func (staleNames) GetCategoryByName(context.Context, string) (*models.Category, error) {
	return nil, gorm.ErrRecordNotFound
}

func TestCategory_ConcurrentDuplicateIsConflict(t *testing.T) {
	s, r := newMenu(t)
	ctx := context.Background()
	mustCategory(t, s, "Mains")
	drinks := mustCategory(t, s, "Drinks")

	racing := &MenuService{Store: staleNames{r}}
	_, err := racing.CreateCategory(ctx, transport.CreateCategoryRequest{Name: "Mains"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)

	name := "Mains"
	_, err = racing.UpdateCategory(ctx, drinks.ID, transport.PatchCategoryRequest{Name: &name})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetCategory(ctx, drinks.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drinks", got.Name)
}

func TestUpdateCategory_Rename(t *testing.T) {
	s, _ := newMenu(t)
	ctx := context.Background()
	mains := mustCategory(t, s, "Mains")
	mustCategory(t, s, "Drinks")

	taken := "Drinks"
	_, err := s.UpdateCategory(ctx, mains.ID, transport.PatchCategoryRequest{Name: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	same := "Mains"
	desc := "hot food"
	got, err := s.UpdateCategory(ctx, mains.ID, transport.PatchCategoryRequest{Name: &same, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "hot food", got.Description)

	_, err = s.UpdateCategory(ctx, 999, transport.PatchCategoryRequest{Description: &desc})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategory_BlockedByDishes(t *testing.T) {
	s, _ := newMenu(t)
	ctx := context.Background()
	cat := mustCategory(t, s, "Mains")
	d := mustDish(t, s, cat.ID, "Steak", "20")

	assert.ErrorIs(t, s.DeleteCategory(ctx, cat.ID), ErrConflict)

	require.NoError(t, s.DeleteDish(ctx, d.ID))
	require.NoError(t, s.DeleteCategory(ctx, cat.ID))
	assert.ErrorIs(t, s.DeleteCategory(ctx, cat.ID), ErrNotFound)
}

func TestDeleteDish_BlockedByOrderItems(t *testing.T) {
	s, r := newMenu(t)
	ctx := context.Background()
	cat := mustCategory(t, s, "Mains")
	d := mustDish(t, s, cat.ID, "Steak", "20")

	u := &models.User{Username: "w", PasswordHash: "x", FirstName: "W", LastName: "W", Role: models.RoleWaiter, IsActive: true}
	_, err := r.CreateUserIfNotExists(ctx, u)
	require.NoError(t, err)

	o := models.Order{TableNumber: 1, OrderDateTime: time.Now().UTC(), Status: models.OrderStatusCompleted, UserID: u.ID,
		Items: []models.OrderItem{{DishID: d.ID, Quantity: 1, UnitPrice: d.Price}}}
	require.NoError(t, r.CreateOrder(ctx, &o))

	assert.ErrorIs(t, s.DeleteDish(ctx, d.ID), ErrConflict)
	assert.ErrorIs(t, s.DeleteDish(ctx, 999), ErrNotFound)
}

func TestCreateDish_Validation(t *testing.T) {
	s, _ := newMenu(t)
	ctx := context.Background()
	cat := mustCategory(t, s, "Mains")

	_, err := s.CreateDish(ctx, transport.CreateDishRequest{Name: "X", Price: dec("-1"), CategoryID: cat.ID})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.CreateDish(ctx, transport.CreateDishRequest{Name: "", Price: dec("1"), CategoryID: cat.ID})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.CreateDish(ctx, transport.CreateDishRequest{Name: "X", Price: dec("1"), CategoryID: 999})
	assert.ErrorIs(t, err, ErrNotFound)

	inactive := false
	d, err := s.CreateDish(ctx, transport.CreateDishRequest{Name: "Free water", Price: dec("0"), CategoryID: cat.ID, IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, d.IsActive)
	require.NotNil(t, d.Category)
	assert.Equal(t, "Mains", d.Category.Name)
}

func TestToggleDishActive_IndexesAndPublishes(t *testing.T) {
	s, _ := newMenu(t)
	ctx := context.Background()
	cat := mustCategory(t, s, "Mains")
	d := mustDish(t, s, cat.ID, "Steak", "20")

	idx := new(MockIndex)
	pub := new(MockPublisher)
	s.Index = idx
	s.Events = pub

	idx.On("IndexDish", mock.Anything, mock.MatchedBy(func(d models.Dish) bool { return !d.IsActive })).Return(nil).Once()
	pub.On("PublishEvent", mock.Anything, MenuEventsTopic, "dish_toggled", mock.AnythingOfType("service.Event")).Return(nil).Once()

	got, err := s.ToggleDishActive(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	idx.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestSearchDishes_FallsBackToStore(t *testing.T) {
	s, _ := newMenu(t)
	ctx := context.Background()
	cat := mustCategory(t, s, "Mains")
	mustDish(t, s, cat.ID, "Pepper steak", "20")

	idx := new(MockIndex)
	s.Index = idx
	idx.On("SearchDishes", mock.Anything, "steak", 0, 10).Return(nil, nil, assert.AnError).Once()

	total, dishes, err := s.SearchDishes(ctx, "steak", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, dishes, 1)
	assert.Equal(t, "Pepper steak", dishes[0].Name)
	idx.AssertExpectations(t)

	_, _, err = s.SearchDishes(ctx, " ", 0, 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSearchDishes_UsesIndex(t *testing.T) {
	s, _ := newMenu(t)
	idx := new(MockIndex)
	s.Index = idx
	idx.On("SearchDishes", mock.Anything, "tea", 5, 5).Return(int64(1), []models.Dish{{ID: 3, Name: "Tea"}}, nil).Once()

	total, dishes, err := s.SearchDishes(context.Background(), "tea", 5, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Tea", dishes[0].Name)
}

func TestListCategories_Sorted(t *testing.T) {
	s, _ := newMenu(t)
	b := mustCategory(t, s, "b-side")
	mustCategory(t, s, "Alpha")
	mustDish(t, s, b.ID, "zeta", "1")
	mustDish(t, s, b.ID, "Eta", "1")

	cats, err := s.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Alpha", cats[0].Name)
	require.Len(t, cats[1].Dishes, 2)
	assert.Equal(t, "Eta", cats[1].Dishes[0].Name)
}
