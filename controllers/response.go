package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/services"
	"github.com/HSouheill/nestfire_backend/utils"
)

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, models.Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation, services.KindConflict:
		return http.StatusBadRequest
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders err in the response envelope. Internal causes are logged and
// never sent to the client.
func respondError(c echo.Context, logger *zap.Logger, err error) {
	status := statusFor(services.KindOf(err))
	msg := services.MessageOf(err)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = http.StatusText(status)
		if m, ok := he.Message.(string); ok && m != "" && status < 500 {
			msg = m
		} else if e, ok := he.Message.(error); ok && status < 500 {
			msg = e.Error()
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.String("requestId", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = respond(c, status, msg, nil)
	}
	if err != nil {
		logger.Debug("error response not written", zap.Error(err))
	}
}

// HTTPErrorHandler renders every error returned by a handler, echo's own included
func HTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	logger = logger.Named("http")
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		respondError(c, logger, err)
	}
}

// bindAndValidate decodes the body into req, normalizes and validates it
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return services.Invalid(fmt.Sprint(he.Message))
		}
		return services.Invalid("Invalid request body")
	}
	if n, ok := req.(models.Normalizer); ok {
		n.Normalize()
	}
	if err := c.Validate(req); err != nil {
		return services.Invalid(utils.ValidationMessage(err))
	}
	return nil
}

// parseID reads an ObjectID path parameter
func parseID(c echo.Context, name string) (primitive.ObjectID, error) {
	return parseHex(c.Param(name), name)
}

func parseHex(value, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, services.Invalid(fmt.Sprintf("Invalid %s", name))
	}
	return id, nil
}
