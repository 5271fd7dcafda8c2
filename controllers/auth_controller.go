package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/services"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Register creates an account and returns its first token
func (ac *AuthController) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	result, err := ac.auth.Register(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "User registered successfully!", result)
}

func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	result, err := ac.auth.Login(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Login successful", result)
}

// ForgotPassword mails a reset link to the account
func (ac *AuthController) ForgotPassword(c echo.Context) error {
	var req models.ForgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := ac.auth.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Password reset link sent to your email.", nil)
}

func (ac *AuthController) ResetPassword(c echo.Context) error {
	var req models.ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := ac.auth.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Password has been reset", nil)
}
