package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/gastrodesk/internal/models"
)

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Dish").
		Preload("User")
}

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
			if err := tx.Omit(clause.Associations).Create(&order.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := preloadOrder(r.DB.WithContext(ctx)).First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) UpdateOrder(ctx context.Context, id uint, fn func(*models.Order) error) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.forUpdate(tx).First(&order, id).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Order("id ASC").Find(&order.Items).Error; err != nil {
			return err
		}

		before := make(map[uint]struct{}, len(order.Items))
		for _, it := range order.Items {
			before[it.ID] = struct{}{}
		}

		if err := fn(&order); err != nil {
			return err
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			if item.ID == 0 {
				if err := tx.Omit(clause.Associations).Create(item).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Omit(clause.Associations).Save(item).Error; err != nil {
				return err
			}
			delete(before, item.ID)
		}

		if len(before) > 0 {
			removed := make([]uint, 0, len(before))
			for id := range before {
				removed = append(removed, id)
			}
			if err := tx.Where("id IN ?", removed).Delete(&models.OrderItem{}).Error; err != nil {
				return err
			}
		}

		return tx.Omit(clause.Associations).Save(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) DeleteOrder(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := r.forUpdate(tx).First(&order, id).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
}

// ListOrders returns matching orders newest first.
func (r *GormRepo) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	q := preloadOrder(r.DB.WithContext(ctx)).Model(&models.Order{})
	if !f.From.IsZero() {
		q = q.Where("order_date_time >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("order_date_time < ?", f.To.UTC())
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var orders []models.Order
	if err := q.Order("order_date_time DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrdersInRange returns orders with start <= order_date_time < end, with
// items, dishes and staff loaded.
func (r *GormRepo) GetOrdersInRange(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := preloadOrder(r.DB.WithContext(ctx)).
		Where("order_date_time >= ? AND order_date_time < ?", start.UTC(), end.UTC()).
		Order("order_date_time ASC").Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
