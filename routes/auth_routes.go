package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/nestfire_backend/controllers"
)

// RegisterAuthRoutes sets up the public credential routes
func RegisterAuthRoutes(e *echo.Echo, authController *controllers.AuthController) {
	g := e.Group("/api/auth")
	g.POST("/register", authController.Register)
	g.POST("/login", authController.Login)
	g.POST("/forgot-password", authController.ForgotPassword)
	g.POST("/reset-password", authController.ResetPassword)
}
