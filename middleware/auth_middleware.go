// middleware/auth_middleware.go
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/nestfire_backend/models"
)

// RequireAdmin lets through only callers listed in adminIDs. It must run after
// JWTMiddleware.
func RequireAdmin(adminIDs []string) echo.MiddlewareFunc {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := UserIDFromContext(c)
			if err != nil {
				return err
			}
			if _, ok := admins[id.Hex()]; !ok {
				return c.JSON(http.StatusForbidden, models.Response{
					Status:  http.StatusForbidden,
					Message: "Admin access required",
				})
			}
			return next(c)
		}
	}
}
