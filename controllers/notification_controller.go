package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/nestfire_backend/middleware"
	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/services"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// Create stores a notification for the user named in the body
func (nc *NotificationController) Create(c echo.Context) error {
	var req models.CreateNotificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	recipient, err := parseHex(req.User, "user")
	if err != nil {
		return err
	}
	n, err := nc.notifications.Create(c.Request().Context(), recipient, req.Body, req.Link)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Notification created successfully", n)
}

// ListAll is mounted behind RequireAdmin
func (nc *NotificationController) ListAll(c echo.Context) error {
	list, err := nc.notifications.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Notifications retrieved successfully", list)
}

// ListForUser returns the caller's notifications, newest first
func (nc *NotificationController) ListForUser(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	list, err := nc.notifications.ListForUser(c.Request().Context(), acting)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Notifications retrieved successfully", list)
}

func (nc *NotificationController) GetByID(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	n, err := nc.notifications.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Notification retrieved successfully", n)
}

func (nc *NotificationController) SetState(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req models.NotificationStateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	n, err := nc.notifications.SetState(c.Request().Context(), acting, id, req.State)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Notification updated successfully", n)
}

func (nc *NotificationController) Delete(c echo.Context) error {
	acting, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := nc.notifications.Delete(c.Request().Context(), acting, id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Notification deleted successfully", nil)
}
