package common

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OptionalFormFile returns the named multipart upload, or nil when the request carries none.
func OptionalFormFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, ErrBadRequest.WithMessage("Invalid " + field + " upload")
	}
	return fh, nil
}
