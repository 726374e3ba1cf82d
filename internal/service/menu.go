package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/Skotchmaster/gastrodesk/internal/transport"
	"github.com/Skotchmaster/gastrodesk/pkg/logging"
)

const MenuEventsTopic = "menu_events"

type MenuService struct {
	Store MenuStore
	// Index and Events are optional.
	Index  DishIndex
	Events Publisher
}

// CheckCategoryDeletable rejects categories that still hold dishes.
func CheckCategoryDeletable(cat *models.Category) error {
	if len(cat.Dishes) > 0 {
		return fmt.Errorf("%w: category %q still has %d dishes", ErrConflict, cat.Name, len(cat.Dishes))
	}
	return nil
}

// CheckDishDeletable rejects dishes referenced by any order item, whatever
// the order's status.
func CheckDishDeletable(dish *models.Dish, referenced bool) error {
	if referenced {
		return fmt.Errorf("%w: dish %q is used in orders", ErrConflict, dish.Name)
	}
	return nil
}

func ToggleActive(dish *models.Dish) {
	dish.IsActive = !dish.IsActive
}

// SortCategories orders categories and each category's dishes by name using
// byte-wise comparison.
func SortCategories(cats []models.Category) {
	slices.SortStableFunc(cats, func(a, b models.Category) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	for i := range cats {
		sortByName(cats[i].Dishes)
	}
}

func sortByName(dishes []models.Dish) {
	slices.SortStableFunc(dishes, func(a, b models.Dish) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
}

// SortDishes orders by category name, then dish name.
func SortDishes(dishes []models.Dish) {
	slices.SortStableFunc(dishes, func(a, b models.Dish) int {
		return cmp.Or(
			strings.Compare(categoryName(a), categoryName(b)),
			strings.Compare(a.Name, b.Name),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

func categoryName(d models.Dish) string {
	if d.Category == nil {
		return ""
	}
	return d.Category.Name
}

func validateCategory(name, description string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: category name required", ErrValidation)
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: category name too long", ErrValidation)
	}
	if len(description) > 500 {
		return fmt.Errorf("%w: description too long", ErrValidation)
	}
	return nil
}

func validateDish(name, description string, price decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: dish name required", ErrValidation)
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: dish name too long", ErrValidation)
	}
	if len(description) > 500 {
		return fmt.Errorf("%w: description too long", ErrValidation)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	return nil
}

func (s *MenuService) ListCategories(ctx context.Context) ([]models.Category, error) {
	cats, err := s.Store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	SortCategories(cats)
	return cats, nil
}

func (s *MenuService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	cat, err := s.Store.GetCategory(ctx, id)
	if err != nil {
		return nil, notFound(err, "category", id)
	}
	sortByName(cat.Dishes)
	return cat, nil
}

func (s *MenuService) CreateCategory(ctx context.Context, req transport.CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateCategory(name, req.Description); err != nil {
		return nil, err
	}
	if err := s.ensureCategoryNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	cat := &models.Category{Name: name, Description: strings.TrimSpace(req.Description)}
	if err := s.Store.CreateCategory(ctx, cat); err != nil {
		return nil, duplicateCategory(err, name)
	}
	s.publish(ctx, "category_created", map[string]any{"category_id": cat.ID})
	return cat, nil
}

func (s *MenuService) UpdateCategory(ctx context.Context, id uint, req transport.PatchCategoryRequest) (*models.Category, error) {
	var newName string
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
		newName = name
		if err := s.ensureCategoryNameFree(ctx, name, id); err != nil {
			return nil, err
		}
	}

	cat, err := s.Store.UpdateCategory(ctx, id, func(c *models.Category) error {
		if req.Name != nil {
			c.Name = *req.Name
		}
		if req.Description != nil {
			c.Description = strings.TrimSpace(*req.Description)
		}
		return validateCategory(c.Name, c.Description)
	})
	if err != nil {
		return nil, notFound(duplicateCategory(err, newName), "category", id)
	}
	s.publish(ctx, "category_updated", map[string]any{"category_id": id})
	return cat, nil
}

func (s *MenuService) DeleteCategory(ctx context.Context, id uint) error {
	if err := s.Store.DeleteCategory(ctx, id, CheckCategoryDeletable); err != nil {
		return notFound(err, "category", id)
	}
	s.publish(ctx, "category_deleted", map[string]any{"category_id": id})
	return nil
}

// duplicateCategory maps a unique-index hit from a racing writer to ErrConflict.
func duplicateCategory(err error, name string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: category %q already exists", ErrConflict, name)
	}
	return err
}

func (s *MenuService) ensureCategoryNameFree(ctx context.Context, name string, selfID uint) error {
	existing, err := s.Store.GetCategoryByName(ctx, name)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return fmt.Errorf("%w: category %q already exists", ErrConflict, name)
	}
	return nil
}

func (s *MenuService) ListDishes(ctx context.Context, filter models.DishFilter) ([]models.Dish, error) {
	dishes, err := s.Store.ListDishes(ctx, filter)
	if err != nil {
		return nil, err
	}
	SortDishes(dishes)
	return dishes, nil
}

func (s *MenuService) GetDish(ctx context.Context, id uint) (*models.Dish, error) {
	dish, err := s.Store.GetDish(ctx, id)
	if err != nil {
		return nil, notFound(err, "dish", id)
	}
	return dish, nil
}

func (s *MenuService) CreateDish(ctx context.Context, req transport.CreateDishRequest) (*models.Dish, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateDish(name, req.Description, req.Price); err != nil {
		return nil, err
	}
	if _, err := s.Store.GetCategory(ctx, req.CategoryID); err != nil {
		return nil, notFound(err, "category", req.CategoryID)
	}

	dish := &models.Dish{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price.Round(2),
		CategoryID:  req.CategoryID,
		IsActive:    true,
	}
	if req.IsActive != nil {
		dish.IsActive = *req.IsActive
	}
	if err := s.Store.CreateDish(ctx, dish); err != nil {
		return nil, err
	}

	created, err := s.GetDish(ctx, dish.ID)
	if err != nil {
		return nil, err
	}
	s.indexDish(ctx, created)
	s.publish(ctx, "dish_created", map[string]any{"dish_id": dish.ID})
	return created, nil
}

func (s *MenuService) UpdateDish(ctx context.Context, id uint, req transport.PatchDishRequest) (*models.Dish, error) {
	if req.CategoryID != nil {
		if _, err := s.Store.GetCategory(ctx, *req.CategoryID); err != nil {
			return nil, notFound(err, "category", *req.CategoryID)
		}
	}

	return s.updateDish(ctx, id, "dish_updated", func(d *models.Dish) error {
		if req.Name != nil {
			d.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			d.Description = strings.TrimSpace(*req.Description)
		}
		if req.Price != nil {
			d.Price = req.Price.Round(2)
		}
		if req.CategoryID != nil {
			d.CategoryID = *req.CategoryID
		}
		if req.IsActive != nil {
			d.IsActive = *req.IsActive
		}
		return validateDish(d.Name, d.Description, d.Price)
	})
}

// ToggleDishActive flips availability; existing order items keep their line.
func (s *MenuService) ToggleDishActive(ctx context.Context, id uint) (*models.Dish, error) {
	return s.updateDish(ctx, id, "dish_toggled", func(d *models.Dish) error {
		ToggleActive(d)
		return nil
	})
}

func (s *MenuService) updateDish(ctx context.Context, id uint, event string, fn func(*models.Dish) error) (*models.Dish, error) {
	if _, err := s.Store.UpdateDish(ctx, id, fn); err != nil {
		return nil, notFound(err, "dish", id)
	}
	dish, err := s.GetDish(ctx, id)
	if err != nil {
		return nil, err
	}
	s.indexDish(ctx, dish)
	s.publish(ctx, event, map[string]any{"dish_id": id, "is_active": dish.IsActive})
	return dish, nil
}

func (s *MenuService) DeleteDish(ctx context.Context, id uint) error {
	if err := s.Store.DeleteDish(ctx, id, CheckDishDeletable); err != nil {
		return notFound(err, "dish", id)
	}
	if s.Index != nil {
		if err := s.Index.RemoveDish(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("index_remove_error", "dish_id", id, "error", err)
		}
	}
	s.publish(ctx, "dish_deleted", map[string]any{"dish_id": id})
	return nil
}

// SearchDishes queries the search index when configured and falls back to
// the database when it is absent or failing.
func (s *MenuService) SearchDishes(ctx context.Context, q string, offset, limit int) (int64, []models.Dish, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, nil, fmt.Errorf("%w: empty query", ErrValidation)
	}
	if s.Index != nil {
		total, dishes, err := s.Index.SearchDishes(ctx, q, offset, limit)
		if err == nil {
			return total, dishes, nil
		}
		logging.FromContext(ctx).Warn("index_search_error", "q", q, "error", err)
	}
	return s.Store.SearchDishes(ctx, q, offset, limit)
}

// Reindex pushes every dish to the search index.
func (s *MenuService) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, nil
	}
	dishes, err := s.Store.ListDishes(ctx, models.DishFilter{})
	if err != nil {
		return 0, err
	}
	for _, d := range dishes {
		if err := s.Index.IndexDish(ctx, d); err != nil {
			return 0, fmt.Errorf("index dish %d: %w", d.ID, err)
		}
	}
	return len(dishes), nil
}

func (s *MenuService) indexDish(ctx context.Context, dish *models.Dish) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexDish(ctx, *dish); err != nil {
		logging.FromContext(ctx).Warn("index_dish_error", "dish_id", dish.ID, "error", err)
	}
}

func (s *MenuService) publish(ctx context.Context, typ string, payload map[string]any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishEvent(ctx, MenuEventsTopic, typ, newEvent(typ, payload)); err != nil {
		logging.FromContext(ctx).With("svc", "menu.publish").Error("publish_error", "type", typ, "error", err)
	}
}
