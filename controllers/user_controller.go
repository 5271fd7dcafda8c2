package controllers

import (
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/nestfire_backend/middleware"
	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/services"
	"github.com/HSouheill/nestfire_backend/storage"
	"github.com/HSouheill/nestfire_backend/utils"
)

// ProfileLinkPrefix is the deep link encoded in profile QR codes
const ProfileLinkPrefix = "nestfire://user/"

const qrSize = 256

type UserController struct {
	users   *services.UserService
	follows *services.FollowService
	posts   *services.PostService
}

func NewUserController(users *services.UserService, follows *services.FollowService, posts *services.PostService) *UserController {
	return &UserController{users: users, follows: follows, posts: posts}
}

// Search lists up to ten profiles, filtered by ?name=
func (uc *UserController) Search(c echo.Context) error {
	users, err := uc.users.Search(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Users retrieved successfully", users)
}

func (uc *UserController) GetByID(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, err := uc.users.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "User retrieved successfully", user)
}

// ProfileQR renders a PNG QR code pointing at the profile
func (uc *UserController) ProfileQR(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if _, err := uc.users.GetByID(c.Request().Context(), id); err != nil {
		return err
	}
	png, err := utils.QRCodePNG(ProfileLinkPrefix+id.Hex(), qrSize)
	if err != nil {
		return services.Wrap(err, "render qr code")
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// UpdateProfile accepts JSON, or a multipart form carrying an optional profileImage
func (uc *UserController) UpdateProfile(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	target, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var (
		req   models.UpdateProfileRequest
		image *storage.File
	)
	if isMultipart(c) {
		if image, err = profileForm(c, &req); err != nil {
			return err
		}
		req.Normalize()
		if err := c.Validate(&req); err != nil {
			return services.Invalid(utils.ValidationMessage(err))
		}
	} else if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := uc.users.UpdateProfile(c.Request().Context(), acting, target, &req, image)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "User updated successfully", user)
}

func profileForm(c echo.Context, req *models.UpdateProfileRequest) (*storage.File, error) {
	form, err := multipartForm(c)
	if err != nil {
		return nil, err
	}
	if err := rejectUnknownFields(form, models.ProfileFormFields, []string{"profileImage"}); err != nil {
		return nil, err
	}

	fields := map[string]**string{
		"firstName":      &req.FirstName,
		"lastName":       &req.LastName,
		"status":         &req.Status,
		"bio":            &req.Bio,
		"email":          &req.Email,
		"phone":          &req.Phone,
		"password":       &req.Password,
		"accountPrivacy": &req.AccountPrivacy,
	}
	for key, dst := range fields {
		if v, ok := formValue(form, key); ok {
			*dst = &v
		}
	}

	images, err := readFiles(form, "profileImage")
	if err != nil {
		return nil, err
	}
	switch len(images) {
	case 0:
		return nil, nil
	case 1:
		return &images[0], nil
	default:
		return nil, services.Invalid("Only one profileImage may be uploaded")
	}
}

func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (uc *UserController) DeleteAccount(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	target, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := uc.users.DeleteAccount(c.Request().Context(), acting, target); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "User deleted successfully", nil)
}

// SetFollow adds or removes the caller as a follower of :id
func (uc *UserController) SetFollow(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	target, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req models.FollowRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	result, err := uc.follows.SetFollow(c.Request().Context(), acting, target, req.Action)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Success", result)
}

// SetPushToken registers the caller's device for push notifications
func (uc *UserController) SetPushToken(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req models.PushTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := uc.users.SetPushToken(c.Request().Context(), acting, req.Token); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Push token saved", nil)
}

// ListPosts pages through one user's posts
func (uc *UserController) ListPosts(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	limit, page, err := pageParams(c)
	if err != nil {
		return err
	}
	posts, err := uc.posts.ListByUser(c.Request().Context(), id, limit, page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Posts retrieved successfully", posts)
}
