package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/gastrodesk/internal/models"
)

func (r *GormRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := r.DB.WithContext(ctx).Preload("Dishes").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *GormRepo) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var cat models.Category
	if err := r.DB.WithContext(ctx).Preload("Dishes").First(&cat, id).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *GormRepo) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var cat models.Category
	if err := r.DB.WithContext(ctx).Preload("Dishes").Where("name = ?", name).First(&cat).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *GormRepo) CreateCategory(ctx context.Context, cat *models.Category) error {
	return uniqueErr(r.DB.WithContext(ctx).Omit(clause.Associations).Create(cat).Error)
}

func (r *GormRepo) UpdateCategory(ctx context.Context, id uint, fn func(*models.Category) error) (*models.Category, error) {
	var cat models.Category
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.forUpdate(tx).First(&cat, id).Error; err != nil {
			return err
		}
		if err := fn(&cat); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(&cat).Error
	})
	if err != nil {
		return nil, uniqueErr(err)
	}
	return &cat, nil
}

// DeleteCategory loads the category with its dishes and deletes it only when
// guard accepts it.
func (r *GormRepo) DeleteCategory(ctx context.Context, id uint, guard func(*models.Category) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat models.Category
		if err := r.forUpdate(tx).First(&cat, id).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Find(&cat.Dishes).Error; err != nil {
			return err
		}
		if err := guard(&cat); err != nil {
			return err
		}
		return tx.Delete(&cat).Error
	})
}

func (r *GormRepo) GetDish(ctx context.Context, id uint) (*models.Dish, error) {
	var dish models.Dish
	if err := r.DB.WithContext(ctx).Preload("Category").First(&dish, id).Error; err != nil {
		return nil, err
	}
	return &dish, nil
}

func (r *GormRepo) ListDishes(ctx context.Context, f models.DishFilter) ([]models.Dish, error) {
	q := r.DB.WithContext(ctx).Preload("Category").Model(&models.Dish{})
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var dishes []models.Dish
	if err := q.Find(&dishes).Error; err != nil {
		return nil, err
	}
	return dishes, nil
}

// SearchDishes matches q case-insensitively against name and description.
func (r *GormRepo) SearchDishes(ctx context.Context, q string, offset, limit int) (int64, []models.Dish, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	base := r.DB.WithContext(ctx).Model(&models.Dish{}).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var dishes []models.Dish
	err := base.Preload("Category").Order("name ASC").Order("id ASC").Offset(offset).Limit(limit).Find(&dishes).Error
	if err != nil {
		return 0, nil, err
	}
	return total, dishes, nil
}

func (r *GormRepo) CreateDish(ctx context.Context, dish *models.Dish) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(dish).Error
}

func (r *GormRepo) UpdateDish(ctx context.Context, id uint, fn func(*models.Dish) error) (*models.Dish, error) {
	var dish models.Dish
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.forUpdate(tx).First(&dish, id).Error; err != nil {
			return err
		}
		if err := fn(&dish); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(&dish).Error
	})
	if err != nil {
		return nil, err
	}
	return &dish, nil
}

func (r *GormRepo) DishHasOrderItems(ctx context.Context, id uint) (bool, error) {
	return dishReferenced(r.DB.WithContext(ctx), id)
}

func dishReferenced(db *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := db.Model(&models.OrderItem{}).Where("dish_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) DeleteDish(ctx context.Context, id uint, guard func(*models.Dish, bool) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dish models.Dish
		if err := r.forUpdate(tx).First(&dish, id).Error; err != nil {
			return err
		}
		referenced, err := dishReferenced(tx, id)
		if err != nil {
			return err
		}
		if err := guard(&dish, referenced); err != nil {
			return err
		}
		return tx.Delete(&dish).Error
	})
}

func (r *GormRepo) SaveMenu(ctx context.Context, categories []models.Category) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range categories {
			cat := &categories[i]
			if cat.ID == 0 {
				if err := tx.Omit(clause.Associations).Create(cat).Error; err != nil {
					return err
				}
			}
			for j := range cat.Dishes {
				dish := &cat.Dishes[j]
				dish.CategoryID = cat.ID
				dish.Category = nil
				if dish.ID == 0 {
					err := tx.Omit(clause.Associations).Create(dish).Error
					if err != nil {
						return err
					}
					continue
				}
				if err := tx.Omit(clause.Associations).Save(dish).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
