package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// StrictBinder decodes JSON bodies rejecting unknown fields. Other content types go
// through echo's default binder.
type StrictBinder struct {
	echo.DefaultBinder
}

func (b *StrictBinder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()
	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return b.DefaultBinder.Bind(i, c)
	}
	if req.ContentLength == 0 {
		return nil
	}

	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(i); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return echo.NewHTTPError(http.StatusBadRequest, typeErr.Field+" has the wrong type").SetInternal(err)
		}
		msg := strings.TrimPrefix(err.Error(), "json: ")
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+msg).SetInternal(err)
	}
	return nil
}
