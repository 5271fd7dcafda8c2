package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/nestfire_backend/middleware"
	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/services"
)

type CommentController struct {
	comments *services.CommentService
}

func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

func (cc *CommentController) Create(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	postID, err := parseHex(req.Post, "post")
	if err != nil {
		return err
	}
	comment, err := cc.comments.Add(c.Request().Context(), acting, postID, req.Body)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Comment created successfully", comment)
}

func (cc *CommentController) ListByPost(c echo.Context) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return err
	}
	comments, err := cc.comments.ListByPost(c.Request().Context(), postID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Comments retrieved successfully", comments)
}

func (cc *CommentController) Edit(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "commentId")
	if err != nil {
		return err
	}
	var req models.CommentBodyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := cc.comments.Edit(c.Request().Context(), acting, id, req.Body)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Comment updated successfully", comment)
}

func (cc *CommentController) Delete(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "commentId")
	if err != nil {
		return err
	}
	if err := cc.comments.Delete(c.Request().Context(), acting, id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Comment deleted successfully", nil)
}

func (cc *CommentController) AddReply(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "commentId")
	if err != nil {
		return err
	}
	var req models.CommentBodyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := cc.comments.AddReply(c.Request().Context(), acting, id, req.Body)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Reply added successfully", comment)
}

func (cc *CommentController) RemoveReply(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "commentId")
	if err != nil {
		return err
	}
	replyID, err := parseID(c, "replyId")
	if err != nil {
		return err
	}
	if err := cc.comments.RemoveReply(c.Request().Context(), acting, id, replyID); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Reply removed successfully", nil)
}
