package service

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/gastrodesk/internal/models"
)

const (
	DefaultTopDishes = 10
	daysInWeek       = 7
)

type OrderRangeReader interface {
	GetOrdersInRange(ctx context.Context, start, end time.Time) ([]models.Order, error)
}

type ReportService struct {
	Orders OrderRangeReader
	// Location decides where a report day starts; nil means time.Local.
	Location *time.Location
	TopLimit int
}

func (s *ReportService) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s *ReportService) topLimit() int {
	if s.TopLimit <= 0 {
		return DefaultTopDishes
	}
	return s.TopLimit
}

func (s *ReportService) DailyRevenue(ctx context.Context, date time.Time) (models.DailyRevenueReport, error) {
	start, end := DayBounds(date, s.loc())
	orders, err := s.Orders.GetOrdersInRange(ctx, start, end)
	if err != nil {
		return models.DailyRevenueReport{}, err
	}
	return DailyRevenue(orders, date, s.loc(), s.topLimit()), nil
}

// WeeklyRevenue builds seven daily reports starting at startDate and sums them.
func (s *ReportService) WeeklyRevenue(ctx context.Context, startDate time.Time) (models.WeeklyRevenueReport, error) {
	start, _ := DayBounds(startDate, s.loc())
	days := make([]models.DailyRevenueReport, 0, daysInWeek)
	for i := range daysInWeek {
		day, err := s.DailyRevenue(ctx, start.AddDate(0, 0, i))
		if err != nil {
			return models.WeeklyRevenueReport{}, err
		}
		days = append(days, day)
	}
	return BuildWeeklyReport(start, days), nil
}

// DayBounds returns [midnight, next midnight) in loc for the calendar date of
// date as written, whatever date's own location is.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// DailyRevenue reports on the orders placed on date. Every order of the day is
// listed and counted; revenue and top dishes use Completed orders only.
func DailyRevenue(orders []models.Order, date time.Time, loc *time.Location, topLimit int) models.DailyRevenueReport {
	start, end := DayBounds(date, loc)
	day := ordersBetween(orders, start, end)

	rep := models.DailyRevenueReport{
		Date:         start,
		TotalRevenue: decimal.Zero,
		Orders:       make([]models.OrderSummary, 0, len(day)),
	}
	for i := range day {
		o := &day[i]
		rep.TotalOrders++
		switch o.Status {
		case models.OrderStatusCompleted:
			rep.CompletedOrders++
			rep.TotalRevenue = rep.TotalRevenue.Add(o.TotalPrice())
		case models.OrderStatusCancelled:
			rep.CancelledOrders++
		}
		rep.Orders = append(rep.Orders, models.OrderSummary{
			OrderID:       o.ID,
			TableNumber:   o.TableNumber,
			OrderDateTime: o.OrderDateTime.In(loc),
			Total:         o.TotalPrice(),
			Status:        o.Status,
			WaiterName:    o.WaiterName(),
		})
	}
	rep.TopDishes = TopDishes(day, date, date, topLimit, loc)
	return rep
}

// TopDishes ranks dishes of Completed orders placed between the calendar
// dates from and to, both inclusive, by quantity sold. Ties go to the dish
// name, then the dish id. limit <= 0 keeps every dish.
func TopDishes(orders []models.Order, from, to time.Time, limit int, loc *time.Location) []models.DishSalesSummary {
	start, _ := DayBounds(from, loc)
	_, end := DayBounds(to, loc)

	byDish := map[uint]*models.DishSalesSummary{}
	for _, o := range ordersBetween(orders, start, end) {
		if o.Status != models.OrderStatusCompleted {
			continue
		}
		for _, it := range o.Items {
			sum, ok := byDish[it.DishID]
			if !ok {
				sum = &models.DishSalesSummary{DishID: it.DishID, DishName: it.DishName(), TotalRevenue: decimal.Zero}
				byDish[it.DishID] = sum
			}
			sum.QuantitySold += it.Quantity
			sum.TotalRevenue = sum.TotalRevenue.Add(it.TotalPrice())
		}
	}

	out := make([]models.DishSalesSummary, 0, len(byDish))
	for _, s := range byDish {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b models.DishSalesSummary) int {
		return cmp.Or(
			cmp.Compare(b.QuantitySold, a.QuantitySold),
			strings.Compare(a.DishName, b.DishName),
			cmp.Compare(a.DishID, b.DishID),
		)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// WeeklyRevenue is the in-memory counterpart of ReportService.WeeklyRevenue.
func WeeklyRevenue(orders []models.Order, startDate time.Time, loc *time.Location, topLimit int) models.WeeklyRevenueReport {
	start, _ := DayBounds(startDate, loc)
	days := make([]models.DailyRevenueReport, 0, daysInWeek)
	for i := range daysInWeek {
		days = append(days, DailyRevenue(orders, start.AddDate(0, 0, i), loc, topLimit))
	}
	return BuildWeeklyReport(start, days)
}

// BuildWeeklyReport sums daily reports. TotalOrders counts Completed orders.
func BuildWeeklyReport(start time.Time, days []models.DailyRevenueReport) models.WeeklyRevenueReport {
	rep := models.WeeklyRevenueReport{
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, daysInWeek-1),
		TotalRevenue: decimal.Zero,
		DailyReports: days,
	}
	for _, d := range days {
		rep.TotalOrders += d.CompletedOrders
		rep.TotalRevenue = rep.TotalRevenue.Add(d.TotalRevenue)
	}
	rep.AverageDailyRevenue = rep.TotalRevenue.Div(decimal.NewFromInt(daysInWeek)).Round(2)
	return rep
}

func ordersBetween(orders []models.Order, start, end time.Time) []models.Order {
	var out []models.Order
	for _, o := range orders {
		if !o.OrderDateTime.Before(start) && o.OrderDateTime.Before(end) {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Order) int {
		return cmp.Or(a.OrderDateTime.Compare(b.OrderDateTime), cmp.Compare(a.ID, b.ID))
	})
	return out
}
