package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/nestfire_backend/controllers"
)

// RegisterCommentRoutes sets up comment and reply routes. Listing is public.
func RegisterCommentRoutes(e *echo.Echo, commentController *controllers.CommentController, auth echo.MiddlewareFunc) {
	g := e.Group("/api/comments")
	g.GET("/:postId", commentController.ListByPost)

	g.POST("", commentController.Create, auth)
	g.PUT("/:commentId", commentController.Edit, auth)
	g.DELETE("/:commentId", commentController.Delete, auth)
	g.POST("/:commentId/reply", commentController.AddReply, auth)
	g.DELETE("/:commentId/reply/:replyId", commentController.RemoveReply, auth)
}
