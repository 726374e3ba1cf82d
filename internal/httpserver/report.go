package httpserver

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gastrodesk/internal/export"
	"github.com/Skotchmaster/gastrodesk/internal/service"
	"github.com/Skotchmaster/gastrodesk/internal/util"
	"github.com/Skotchmaster/gastrodesk/pkg/logging"
)

type ReportsHTTP struct {
	Svc *service.ReportService
	Now func() time.Time
}

func (h *ReportsHTTP) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *ReportsHTTP) loc() *time.Location {
	if h.Svc.Location != nil {
		return h.Svc.Location
	}
	return time.Local
}

// render writes v in format f; PDF goes through pdf, the rest through export.Encode.
func render(f export.Format, root string, v any, pdf func(*bytes.Buffer) error) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if f == export.FormatPDF {
		err = pdf(&buf)
	} else {
		err = export.Encode(&buf, f, root, v)
	}
	return buf.Bytes(), err
}

func (h *ReportsHTTP) Daily(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "reports.daily")

	now := h.now()
	date, err := util.ParseDate(c.QueryParam("date"), h.loc(), now)
	if err != nil {
		return badRequest(l, "daily_report_error", err.Error(), err)
	}
	f, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return fail(l, "daily_report_error", "unsupported format", err)
	}

	rep, err := h.Svc.DailyRevenue(ctx, date)
	if err != nil {
		return fail(l, "daily_report_error", "cannot build report", err)
	}

	body, err := render(f, export.RootDaily, rep, func(b *bytes.Buffer) error {
		return export.DailyReportPDF(b, rep, now.In(h.loc()))
	})
	if err != nil {
		return fail(l, "daily_report_error", "cannot render report", err)
	}

	l.Info("daily_report_success", "date", date.Format(util.DateLayout), "format", f)
	return attach(c, f, "daily_report_"+date.Format("20060102"), body)
}

func (h *ReportsHTTP) Weekly(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "reports.weekly")

	now := h.now()
	start, err := util.ParseDate(c.QueryParam("start"), h.loc(), now)
	if err != nil {
		return badRequest(l, "weekly_report_error", err.Error(), err)
	}
	f, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return fail(l, "weekly_report_error", "unsupported format", err)
	}

	rep, err := h.Svc.WeeklyRevenue(ctx, start)
	if err != nil {
		return fail(l, "weekly_report_error", "cannot build report", err)
	}

	body, err := render(f, export.RootWeekly, rep, func(b *bytes.Buffer) error {
		return export.WeeklyReportPDF(b, rep, now.In(h.loc()))
	})
	if err != nil {
		return fail(l, "weekly_report_error", "cannot render report", err)
	}

	l.Info("weekly_report_success", "start", start.Format(util.DateLayout), "format", f)
	return attach(c, f, "weekly_report_"+start.Format("20060102"), body)
}
