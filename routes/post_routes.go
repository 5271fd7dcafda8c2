package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/nestfire_backend/controllers"
)

// RegisterPostRoutes sets up post routes, all authenticated
func RegisterPostRoutes(e *echo.Echo, postController *controllers.PostController, auth echo.MiddlewareFunc) {
	g := e.Group("/api/posts", auth)
	g.POST("", postController.Create)
	g.GET("", postController.List)
	g.PUT("/like", postController.SetLike)
	g.GET("/:id", postController.GetByID)
	g.DELETE("/:id", postController.Delete)
}
