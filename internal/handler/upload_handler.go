package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ObjectLocator resolves a stored attachment key to a local file.
type ObjectLocator interface {
	Path(key string) (string, error)
}

// UploadHandler serves stored attachments as downloads; uploaded bytes are
// never rendered inline on the API origin.
type UploadHandler struct {
	store ObjectLocator
}

func NewUploadHandler(store ObjectLocator) *UploadHandler {
	return &UploadHandler{store: store}
}

func (h *UploadHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/uploads/:key", h.Download)
}

func (h *UploadHandler) Download(c echo.Context) error {
	key := c.Param("key")
	path, err := h.store.Path(key)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, echo.MIMEOctetStream)
	header.Set(echo.HeaderXContentTypeOptions, "nosniff")
	header.Set(echo.HeaderContentSecurityPolicy, "default-src 'none'; sandbox")
	return c.Attachment(path, key)
}
