package loggingmw

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/gastrodesk/pkg/logging"
)

type Config struct {
	Logger *slog.Logger
	// Skipper suppresses the access line only; handlers still get a scoped logger.
	Skipper echomw.Skipper
	// UserKey names the echo context value holding the authenticated user id.
	UserKey string
	// Successful requests slower than SlowThreshold are logged at WARN. Zero disables.
	SlowThreshold time.Duration
}

// SkipPrefixes skips requests whose path starts with any of prefixes.
func SkipPrefixes(prefixes ...string) echomw.Skipper {
	return func(c echo.Context) bool {
		p := c.Request().URL.Path
		for _, pre := range prefixes {
			if strings.HasPrefix(p, pre) {
				return true
			}
		}
		return false
	}
}

func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return RequestLoggerWithConfig(Config{Logger: base})
}

// RequestLoggerWithConfig scopes a logger carrying request_id and route into
// the request context and writes one access line after the handler returns.
func RequestLoggerWithConfig(cfg Config) echo.MiddlewareFunc {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Skipper == nil {
		cfg.Skipper = echomw.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req, res := c.Request(), c.Response()

			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = res.Header().Get(echo.HeaderXRequestID)
			}
			l := cfg.Logger.With("method", req.Method, "route", c.Path())
			if rid != "" {
				l = l.With("request_id", rid)
				res.Header().Set(echo.HeaderXRequestID, rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				// commit the error response now so status and size are final
				c.Error(err)
			}
			if cfg.Skipper(c) {
				return nil
			}

			latency := time.Since(start)
			attrs := []any{
				"status", res.Status,
				"path", req.URL.Path,
				"remote_ip", c.RealIP(),
				"latency_ms", latency.Milliseconds(),
				"bytes_in", req.ContentLength,
				"bytes_out", res.Size,
			}
			if cfg.UserKey != "" {
				if uid := c.Get(cfg.UserKey); uid != nil {
					attrs = append(attrs, "user_id", uid)
				}
			}

			switch {
			case err != nil || res.Status >= 500:
				if err != nil {
					attrs = append(attrs, "error", err.Error())
				}
				l.Error("request_done", attrs...)
			case res.Status >= 400:
				l.Warn("request_done", attrs...)
			case cfg.SlowThreshold > 0 && latency > cfg.SlowThreshold:
				l.Warn("request_slow", attrs...)
			default:
				l.Info("request_done", attrs...)
			}
			return nil
		}
	}
}
