package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// DefaultCORSOrigins is used when no origin is configured
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}

// CORS allows the configured origins to call the API with a bearer token
func CORS(origins []string) echo.MiddlewareFunc {
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}
	return echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			echo.HeaderAuthorization, echo.HeaderXRequestedWith,
		},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentLength, echo.HeaderContentType, echo.HeaderXRequestID},
		MaxAge:           86400, // 24 hours
	})
}
