package controllers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/nestfire_backend/middleware"
	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/services"
	"github.com/HSouheill/nestfire_backend/storage"
	"github.com/HSouheill/nestfire_backend/utils"
)

var postFormFields = []string{"title", "body", "tags"}

type PostController struct {
	posts *services.PostService
}

func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

// Create stores a post. Media arrive as multipart files under "images"; a JSON body
// creates a text-only post.
func (pc *PostController) Create(c echo.Context) error {
	owner, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}

	var (
		req   models.CreatePostRequest
		files []storage.File
	)
	if isMultipart(c) {
		form, err := multipartForm(c)
		if err != nil {
			return err
		}
		if err := rejectUnknownFields(form, postFormFields, []string{"images"}); err != nil {
			return err
		}
		req.Title, _ = formValue(form, "title")
		req.Body, _ = formValue(form, "body")
		for _, v := range form.Value["tags"] {
			// tags may come repeated or comma separated
			req.Tags = append(req.Tags, strings.Split(v, ",")...)
		}
		if files, err = readFiles(form, "images"); err != nil {
			return err
		}
		req.Normalize()
		if err := c.Validate(&req); err != nil {
			return services.Invalid(utils.ValidationMessage(err))
		}
	} else if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := pc.posts.Create(c.Request().Context(), owner, &req, files)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Post created successfully", post)
}

// List pages through all posts, newest first
func (pc *PostController) List(c echo.Context) error {
	limit, page, err := pageParams(c)
	if err != nil {
		return err
	}
	posts, err := pc.posts.List(c.Request().Context(), limit, page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Posts retrieved successfully", posts)
}

func (pc *PostController) GetByID(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	post, err := pc.posts.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Post retrieved successfully", post)
}

func (pc *PostController) Delete(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := pc.posts.Delete(c.Request().Context(), acting, id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Post deleted successfully", nil)
}

// SetLike likes or unlikes the post named in the body
func (pc *PostController) SetLike(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req models.LikeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	postID, err := parseHex(req.Post, "post")
	if err != nil {
		return err
	}
	post, err := pc.posts.SetLike(c.Request().Context(), acting, postID, *req.Like)
	if err != nil {
		return err
	}
	msg := "Liked successfully"
	if !*req.Like {
		msg = "Disliked successfully"
	}
	return respond(c, http.StatusOK, msg, post)
}
