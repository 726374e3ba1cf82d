package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuExport struct {
	ExportDate time.Time        `json:"export_date" xml:"ExportDate"`
	Categories []CategoryExport `json:"categories"  xml:"Categories>Category"`
}

type CategoryExport struct {
	Name        string           `json:"name"        xml:"Name"`
	Description string           `json:"description" xml:"Description"`
	Dishes      []DishExportItem `json:"dishes"      xml:"Dishes>Dish"`
}

type DishesExport struct {
	ExportDate   time.Time        `json:"export_date"   xml:"ExportDate"`
	CategoryName string           `json:"category_name" xml:"CategoryName"`
	Dishes       []DishExportItem `json:"dishes"        xml:"Dishes>Dish"`
}

type DishExportItem struct {
	Name        string          `json:"name"        xml:"Name"`
	Description string          `json:"description" xml:"Description"`
	Price       decimal.Decimal `json:"price"       xml:"Price"`
	IsActive    bool            `json:"is_active"   xml:"IsActive"`
}
