package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/gastrodesk/internal/models"
)

const (
	pageMargin = 20.0
	rowHeight  = 7.0
)

type column struct {
	title string
	width float64
	align string
}

type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string, generatedAt time.Time) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, d.tr(fmt.Sprintf("Generated on %s - GastroDesk   page %d",
			generatedAt.Format("2006-01-02 15:04:05"), pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(33, 150, 243)
	pdf.CellFormat(0, 12, d.tr(title), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
	return d
}

func (d *document) section(title string) {
	d.pdf.Ln(6)
	d.pdf.SetFont("Helvetica", "B", 14)
	d.pdf.CellFormat(0, 9, d.tr(title), "", 1, "L", false, 0, "")
}

// summary renders label/value pairs in two columns.
func (d *document) summary(rows [][2]string) {
	d.pdf.SetFont("Helvetica", "", 11)
	for _, r := range rows {
		d.pdf.CellFormat(60, rowHeight, d.tr(r[0]), "", 0, "L", false, 0, "")
		d.pdf.CellFormat(0, rowHeight, d.tr(r[1]), "", 1, "L", false, 0, "")
	}
}

func (d *document) table(cols []column, rows [][]string) {
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.SetFillColor(224, 224, 224)
	for _, c := range cols {
		d.pdf.CellFormat(c.width, rowHeight+1, d.tr(c.title), "1", 0, c.align, true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		for i, c := range cols {
			d.pdf.CellFormat(c.width, rowHeight, d.tr(row[i]), "1", 0, c.align, false, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

func (d *document) note(text string) {
	d.pdf.SetFont("Helvetica", "I", 10)
	d.pdf.CellFormat(0, rowHeight, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *document) write(w io.Writer) error {
	if err := d.pdf.Error(); err != nil {
		return err
	}
	return d.pdf.Output(w)
}

func money(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}

// DailyReportPDF renders the summary, the orders table and the top dishes.
func DailyReportPDF(w io.Writer, rep models.DailyRevenueReport, generatedAt time.Time) error {
	d := newDocument("Daily Report - "+rep.Date.Format("2006-01-02"), generatedAt)

	d.section("Summary")
	d.summary([][2]string{
		{"Total Orders:", fmt.Sprint(rep.TotalOrders)},
		{"Completed Orders:", fmt.Sprint(rep.CompletedOrders)},
		{"Cancelled Orders:", fmt.Sprint(rep.CancelledOrders)},
		{"Total Revenue:", money(rep.TotalRevenue)},
	})

	d.section("Orders")
	if len(rep.Orders) == 0 {
		d.note("No orders on this day.")
	} else {
		rows := make([][]string, 0, len(rep.Orders))
		for _, o := range rep.Orders {
			rows = append(rows, []string{
				fmt.Sprint(o.OrderID),
				fmt.Sprint(o.TableNumber),
				o.OrderDateTime.Format("15:04"),
				o.WaiterName,
				string(o.Status),
				money(o.Total),
			})
		}
		d.table([]column{
			{"ID", 15, "L"}, {"Table", 18, "L"}, {"Time", 20, "L"},
			{"Waiter", 55, "L"}, {"Status", 32, "L"}, {"Total", 30, "R"},
		}, rows)
	}

	if len(rep.TopDishes) > 0 {
		d.section("Top Selling Dishes")
		rows := make([][]string, 0, len(rep.TopDishes))
		for _, t := range rep.TopDishes {
			rows = append(rows, []string{t.DishName, fmt.Sprint(t.QuantitySold), money(t.TotalRevenue)})
		}
		d.table([]column{{"Dish", 100, "L"}, {"Qty Sold", 35, "R"}, {"Revenue", 35, "R"}}, rows)
	}

	return d.write(w)
}

// WeeklyReportPDF renders the weekly totals and one row per day.
func WeeklyReportPDF(w io.Writer, rep models.WeeklyRevenueReport, generatedAt time.Time) error {
	d := newDocument(fmt.Sprintf("Weekly Report - %s to %s",
		rep.StartDate.Format("2006-01-02"), rep.EndDate.Format("2006-01-02")), generatedAt)

	d.section("Weekly Summary")
	d.summary([][2]string{
		{"Total Orders:", fmt.Sprint(rep.TotalOrders)},
		{"Total Revenue:", money(rep.TotalRevenue)},
		{"Average Daily Revenue:", money(rep.AverageDailyRevenue)},
	})

	d.section("Daily Breakdown")
	rows := make([][]string, 0, len(rep.DailyReports))
	for _, day := range rep.DailyReports {
		rows = append(rows, []string{
			day.Date.Format("Mon, Jan 02"),
			fmt.Sprint(day.TotalOrders),
			fmt.Sprint(day.CompletedOrders),
			fmt.Sprint(day.CancelledOrders),
			money(day.TotalRevenue),
		})
	}
	d.table([]column{
		{"Date", 45, "L"}, {"Orders", 30, "R"}, {"Completed", 30, "R"},
		{"Cancelled", 30, "R"}, {"Revenue", 35, "R"},
	}, rows)

	return d.write(w)
}
