package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/nestfire_backend/services"
	"github.com/HSouheill/nestfire_backend/storage"
)

// maxFormMemory is the part of a multipart body kept in memory, the rest spills to disk
const maxFormMemory = 32 << 20

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

func multipartForm(c echo.Context) (*multipart.Form, error) {
	if err := c.Request().ParseMultipartForm(maxFormMemory); err != nil {
		return nil, services.Invalid("Invalid multipart form")
	}
	return c.Request().MultipartForm, nil
}

// readFiles loads the uploaded parts of field. Files are size checked on read so an
// oversized part is never held in full.
func readFiles(form *multipart.Form, field string) ([]storage.File, error) {
	headers := form.File[field]
	files := make([]storage.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func readFile(fh *multipart.FileHeader) (storage.File, error) {
	if fh.Size > storage.MaxFileSize {
		return storage.File{}, services.Invalid(fmt.Sprintf("%s exceeds the %d MB limit", fh.Filename, storage.MaxFileSize>>20))
	}
	src, err := fh.Open()
	if err != nil {
		return storage.File{}, services.Wrap(err, "open upload")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, storage.MaxFileSize+1))
	if err != nil {
		return storage.File{}, services.Wrap(err, "read upload")
	}
	return storage.File{Name: fh.Filename, Data: data}, nil
}

// rejectUnknownFields keeps multipart bodies as strict as JSON ones
func rejectUnknownFields(form *multipart.Form, values, files []string) error {
	allowed := func(list []string, key string) bool {
		for _, k := range list {
			if k == key {
				return true
			}
		}
		return false
	}
	for key := range form.Value {
		if !allowed(values, key) {
			return services.Invalid(fmt.Sprintf("Invalid request body: unknown field %q", key))
		}
	}
	for key := range form.File {
		if !allowed(files, key) {
			return services.Invalid(fmt.Sprintf("Invalid request body: unexpected file field %q", key))
		}
	}
	return nil
}

// pageParams reads ?limit= and ?page=
func pageParams(c echo.Context) (limit, page int, err error) {
	err = echo.QueryParamsBinder(c).
		Int("limit", &limit).
		Int("page", &page).
		BindError()
	if err != nil {
		var be *echo.BindingError
		if errors.As(err, &be) {
			return 0, 0, services.Invalid(fmt.Sprintf("Invalid %s", be.Field))
		}
		return 0, 0, services.Invalid(http.StatusText(http.StatusBadRequest))
	}
	return limit, page, nil
}
