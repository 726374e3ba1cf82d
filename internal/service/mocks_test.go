package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Skotchmaster/gastrodesk/internal/models"
)

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) IndexDish(ctx context.Context, dish models.Dish) error {
	return m.Called(ctx, dish).Error(0)
}

func (m *MockIndex) RemoveDish(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockIndex) SearchDishes(ctx context.Context, q string, from, size int) (int64, []models.Dish, error) {
	args := m.Called(ctx, q, from, size)
	if args.Get(1) == nil {
		return 0, nil, args.Error(2)
	}
	return args.Get(0).(int64), args.Get(1).([]models.Dish), args.Error(2)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	return m.Called(ctx, topic, key, event).Error(0)
}
