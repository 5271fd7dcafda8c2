package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/nestfire_backend/controllers"
)

// RegisterNotificationRoutes registers all notification routes. Listing every
// notification is reserved to admins.
func RegisterNotificationRoutes(e *echo.Echo, notificationController *controllers.NotificationController, auth, admin echo.MiddlewareFunc) {
	g := e.Group("/api/notifications", auth)
	g.POST("", notificationController.Create)
	g.GET("", notificationController.ListAll, admin)
	g.GET("/user", notificationController.ListForUser)
	g.GET("/:id", notificationController.GetByID)
	g.PUT("/:id", notificationController.SetState)
	g.DELETE("/:id", notificationController.Delete)
}
