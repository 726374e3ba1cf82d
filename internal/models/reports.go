package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSummary struct {
	OrderID       uint            `json:"order_id"        xml:"OrderId"`
	TableNumber   int             `json:"table_number"    xml:"TableNumber"`
	OrderDateTime time.Time       `json:"order_date_time" xml:"OrderDateTime"`
	Total         decimal.Decimal `json:"total"           xml:"Total"`
	Status        OrderStatus     `json:"status"          xml:"Status"`
	WaiterName    string          `json:"waiter_name"     xml:"WaiterName"`
}

type DishSalesSummary struct {
	DishID       uint            `json:"dish_id"       xml:"DishId"`
	DishName     string          `json:"dish_name"     xml:"DishName"`
	QuantitySold int             `json:"quantity_sold" xml:"QuantitySold"`
	TotalRevenue decimal.Decimal `json:"total_revenue" xml:"TotalRevenue"`
}

// DailyRevenueReport lists every order of the day, but revenue and top dishes
// count Completed orders only.
type DailyRevenueReport struct {
	Date            time.Time          `json:"date"             xml:"Date"`
	TotalOrders     int                `json:"total_orders"     xml:"TotalOrders"`
	CompletedOrders int                `json:"completed_orders" xml:"CompletedOrders"`
	CancelledOrders int                `json:"cancelled_orders" xml:"CancelledOrders"`
	TotalRevenue    decimal.Decimal    `json:"total_revenue"    xml:"TotalRevenue"`
	Orders          []OrderSummary     `json:"orders"           xml:"Orders>OrderSummary"`
	TopDishes       []DishSalesSummary `json:"top_dishes"       xml:"TopDishes>DishSalesSummary"`
}

type WeeklyRevenueReport struct {
	StartDate           time.Time            `json:"start_date"            xml:"StartDate"`
	EndDate             time.Time            `json:"end_date"              xml:"EndDate"`
	TotalOrders         int                  `json:"total_orders"          xml:"TotalOrders"`
	TotalRevenue        decimal.Decimal      `json:"total_revenue"         xml:"TotalRevenue"`
	AverageDailyRevenue decimal.Decimal      `json:"average_daily_revenue" xml:"AverageDailyRevenue"`
	DailyReports        []DailyRevenueReport `json:"daily_reports"         xml:"DailyReports>DailyRevenueReport"`
}
