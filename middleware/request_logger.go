package middleware

import (
	"context"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestLogger logs one line per request. The error is handed to the echo error
// handler first so the logged status is the one the client saw.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	logger = logger.Named("http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", loggedURI(req.URL)),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("requestId", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("ip", c.RealIP()),
			}
			if id, err := UserIDFromContext(c); err == nil {
				fields = append(fields, zap.String("userId", id.Hex()))
			}

			level := zapcore.InfoLevel
			switch {
			case res.Status >= 500:
				level = zapcore.ErrorLevel
			case res.Status >= 400:
				level = zapcore.WarnLevel
			}
			logger.Check(level, "request").Write(fields...)
			return nil
		}
	}
}

// redactedParams never reach the log. The websocket route takes its bearer token as ?token=.
var redactedParams = []string{"token"}

func loggedURI(u *url.URL) string {
	if u.RawQuery == "" {
		return u.Path
	}
	q := u.Query()
	for _, k := range redactedParams {
		if q.Has(k) {
			q.Set(k, "redacted")
		}
	}
	return u.Path + "?" + q.Encode()
}

// RequestTimeout bounds the request context. Handlers and the database calls they
// make observe the deadline.
func RequestTimeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if d <= 0 || c.IsWebSocket() {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
