package models

import "time"

// OrderFilter narrows order listings. Zero values mean "no restriction";
// From is inclusive and To exclusive.
type OrderFilter struct {
	From   time.Time
	To     time.Time
	Status OrderStatus
	UserID uint
	Offset int
	Limit  int
}

type DishFilter struct {
	CategoryID uint
	ActiveOnly bool
}
