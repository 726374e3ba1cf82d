package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/gastrodesk/internal/models"
)

type ImportResult struct {
	CategoriesCreated int `json:"categories_created"`
	DishesCreated     int `json:"dishes_created"`
	DishesUpdated     int `json:"dishes_updated"`
}

// BuildMenuExport lists every category with its active dishes only.
func BuildMenuExport(cats []models.Category, at time.Time) models.MenuExport {
	SortCategories(cats)
	out := models.MenuExport{ExportDate: at, Categories: make([]models.CategoryExport, 0, len(cats))}
	for _, c := range cats {
		ce := models.CategoryExport{Name: c.Name, Description: c.Description, Dishes: []models.DishExportItem{}}
		for _, d := range c.Dishes {
			if d.IsActive {
				ce.Dishes = append(ce.Dishes, exportItem(d))
			}
		}
		out.Categories = append(out.Categories, ce)
	}
	return out
}

// BuildDishesExport lists all dishes of one category, inactive ones included.
func BuildDishesExport(cat models.Category, at time.Time) models.DishesExport {
	sortByName(cat.Dishes)
	out := models.DishesExport{ExportDate: at, CategoryName: cat.Name, Dishes: make([]models.DishExportItem, 0, len(cat.Dishes))}
	for _, d := range cat.Dishes {
		out.Dishes = append(out.Dishes, exportItem(d))
	}
	return out
}

func exportItem(d models.Dish) models.DishExportItem {
	return models.DishExportItem{Name: d.Name, Description: d.Description, Price: d.Price, IsActive: d.IsActive}
}

func validateImportItem(it models.DishExportItem) error {
	return validateDish(strings.TrimSpace(it.Name), it.Description, it.Price)
}

// PlanMenuImport matches incoming categories by name and dishes by name within
// their category. It returns only what must be written: new categories, and
// new dishes (created active) under new or existing categories. Existing
// dishes are left alone.
func PlanMenuImport(existing []models.Category, incoming []models.CategoryExport) ([]models.Category, ImportResult, error) {
	var res ImportResult

	byName := make(map[string]models.Category, len(existing))
	for _, c := range existing {
		byName[c.Name] = c
	}

	var plan []models.Category
	planIdx := map[string]int{}
	known := map[string]map[string]bool{}

	for _, ic := range incoming {
		name := strings.TrimSpace(ic.Name)
		if err := validateCategory(name, ic.Description); err != nil {
			return nil, ImportResult{}, err
		}

		idx, ok := planIdx[name]
		if !ok {
			cat := models.Category{Name: name, Description: strings.TrimSpace(ic.Description)}
			names := map[string]bool{}
			if cur, found := byName[name]; found {
				cat = models.Category{ID: cur.ID, Name: cur.Name, Description: cur.Description}
				for _, d := range cur.Dishes {
					names[d.Name] = true
				}
			} else {
				res.CategoriesCreated++
			}
			plan = append(plan, cat)
			idx = len(plan) - 1
			planIdx[name] = idx
			known[name] = names
		}

		for _, it := range ic.Dishes {
			if err := validateImportItem(it); err != nil {
				return nil, ImportResult{}, fmt.Errorf("category %q: %w", name, err)
			}
			dname := strings.TrimSpace(it.Name)
			if known[name][dname] {
				continue
			}
			known[name][dname] = true
			plan[idx].Dishes = append(plan[idx].Dishes, models.Dish{
				Name:        dname,
				Description: strings.TrimSpace(it.Description),
				Price:       it.Price.Round(2),
				CategoryID:  plan[idx].ID,
				IsActive:    true,
			})
			res.DishesCreated++
		}
	}
	return plan, res, nil
}

// PlanDishesImport upserts by dish name inside cat: existing dishes get the
// incoming description, price and active flag; unknown names are created.
func PlanDishesImport(cat models.Category, incoming []models.DishExportItem) (models.Category, ImportResult, error) {
	var res ImportResult

	byName := make(map[string]models.Dish, len(cat.Dishes))
	for _, d := range cat.Dishes {
		byName[d.Name] = d
	}

	plan := models.Category{ID: cat.ID, Name: cat.Name, Description: cat.Description}
	planIdx := map[string]int{}

	for _, it := range incoming {
		if err := validateImportItem(it); err != nil {
			return models.Category{}, ImportResult{}, err
		}
		name := strings.TrimSpace(it.Name)

		dish, exists := byName[name]
		if !exists {
			dish = models.Dish{Name: name, CategoryID: cat.ID}
		}
		dish.Description = strings.TrimSpace(it.Description)
		dish.Price = it.Price.Round(2)
		dish.IsActive = it.IsActive
		dish.Category = nil

		if i, seen := planIdx[name]; seen {
			plan.Dishes[i] = dish
			continue
		}
		planIdx[name] = len(plan.Dishes)
		plan.Dishes = append(plan.Dishes, dish)
		if exists {
			res.DishesUpdated++
		} else {
			res.DishesCreated++
		}
	}
	return plan, res, nil
}

func (s *MenuService) ExportMenu(ctx context.Context, at time.Time) (models.MenuExport, error) {
	cats, err := s.Store.ListCategories(ctx)
	if err != nil {
		return models.MenuExport{}, err
	}
	return BuildMenuExport(cats, at), nil
}

func (s *MenuService) ImportMenu(ctx context.Context, menu models.MenuExport) (ImportResult, error) {
	cats, err := s.Store.ListCategories(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	plan, res, err := PlanMenuImport(cats, menu.Categories)
	if err != nil {
		return ImportResult{}, err
	}
	if err := s.Store.SaveMenu(ctx, plan); err != nil {
		return ImportResult{}, err
	}

	s.indexPlan(ctx, plan)
	s.publish(ctx, "menu_imported", map[string]any{
		"categories_created": res.CategoriesCreated,
		"dishes_created":     res.DishesCreated,
	})
	return res, nil
}

func (s *MenuService) ExportDishes(ctx context.Context, categoryID uint, at time.Time) (models.DishesExport, error) {
	cat, err := s.Store.GetCategory(ctx, categoryID)
	if err != nil {
		return models.DishesExport{}, notFound(err, "category", categoryID)
	}
	return BuildDishesExport(*cat, at), nil
}

func (s *MenuService) ImportDishes(ctx context.Context, categoryID uint, in models.DishesExport) (ImportResult, error) {
	cat, err := s.Store.GetCategory(ctx, categoryID)
	if err != nil {
		return ImportResult{}, notFound(err, "category", categoryID)
	}
	plan, res, err := PlanDishesImport(*cat, in.Dishes)
	if err != nil {
		return ImportResult{}, err
	}
	if err := s.Store.SaveMenu(ctx, []models.Category{plan}); err != nil {
		return ImportResult{}, err
	}

	s.indexPlan(ctx, []models.Category{plan})
	s.publish(ctx, "dishes_imported", map[string]any{
		"category_id":    categoryID,
		"dishes_created": res.DishesCreated,
		"dishes_updated": res.DishesUpdated,
	})
	return res, nil
}

func (s *MenuService) indexPlan(ctx context.Context, plan []models.Category) {
	if s.Index == nil {
		return
	}
	for _, c := range plan {
		for _, d := range c.Dishes {
			d.Category = &models.Category{ID: c.ID, Name: c.Name}
			s.indexDish(ctx, &d)
		}
	}
}
