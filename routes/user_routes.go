package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/nestfire_backend/controllers"
)

// RegisterUserRoutes sets up profile and follow routes. Reads are public.
func RegisterUserRoutes(e *echo.Echo, userController *controllers.UserController, auth echo.MiddlewareFunc) {
	g := e.Group("/api/users")
	g.GET("", userController.Search)
	g.GET("/:id", userController.GetByID)
	g.GET("/:id/qr", userController.ProfileQR)

	g.PUT("/push-token", userController.SetPushToken, auth)
	g.PUT("/:id", userController.UpdateProfile, auth)
	g.DELETE("/:id", userController.DeleteAccount, auth)
	g.PUT("/:id/follow", userController.SetFollow, auth)
	g.GET("/:id/posts", userController.ListPosts, auth)
}
