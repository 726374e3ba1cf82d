package loggingmw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/gastrodesk/pkg/logging"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &rec))
	return rec
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestLogger(logging.NewWithWriter(&buf, "debug")))

	e.GET("/orders/:id", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside")
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/7", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rid-1", rec.Header().Get(echo.HeaderXRequestID))
	assert.Contains(t, buf.String(), `"msg":"inside"`)
	line := lastLine(t, &buf)
	assert.Equal(t, "request_done", line["msg"])
	assert.Equal(t, "/orders/7", line["path"])
	assert.EqualValues(t, 2, line["bytes_out"])
	assert.NotContains(t, line, "user_id")
	assert.Equal(t, "/orders/:id", line["route"])
	assert.Equal(t, "rid-1", line["request_id"])
	assert.EqualValues(t, 200, line["status"])

	buf.Reset()
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	line = lastLine(t, &buf)
	assert.Equal(t, "WARN", line["level"])
	assert.EqualValues(t, 404, line["status"])
}

func TestRequestLoggerWithConfig(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestLoggerWithConfig(Config{
		Logger:        logging.NewWithWriter(&buf, "debug"),
		Skipper:       SkipPrefixes("/health"),
		UserKey:       "user_id",
		SlowThreshold: 5 * time.Millisecond,
	}))

	setUser := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", uint(42))
			return next(c)
		}
	}
	e.GET("/health/live", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("checking db")
		return c.NoContent(http.StatusOK)
	})
	e.POST("/orders", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	}, setUser)
	e.GET("/reports/slow", func(c echo.Context) error {
		time.Sleep(20 * time.Millisecond)
		return c.NoContent(http.StatusOK)
	})
	e.GET("/boom", func(c echo.Context) error {
		return assert.AnError
	})

	t.Run("skipped path keeps context logger", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, buf.String(), `"route":"/health/live"`)
		assert.NotContains(t, buf.String(), "request_done")
	})

	t.Run("user and body size", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"table":1}`)))

		line := lastLine(t, &buf)
		assert.Equal(t, "INFO", line["level"])
		assert.EqualValues(t, 201, line["status"])
		assert.EqualValues(t, 42, line["user_id"])
		assert.EqualValues(t, 11, line["bytes_in"])
	})

	t.Run("slow request", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/slow", nil))

		line := lastLine(t, &buf)
		assert.Equal(t, "request_slow", line["msg"])
		assert.Equal(t, "WARN", line["level"])
	})

	t.Run("handler error", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		line := lastLine(t, &buf)
		assert.Equal(t, "ERROR", line["level"])
		assert.EqualValues(t, 500, line["status"])
		assert.Equal(t, assert.AnError.Error(), line["error"])
	})
}
