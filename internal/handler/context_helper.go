package handler

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/middleware"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
	"github.com/noah-isme/compliance-docs-api/pkg/response"
)

const uploadField = "file"

// currentSession returns the authenticated session or writes a 401 and returns nil.
func currentSession(c *gin.Context) *models.Session {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	return session
}

func invalidPayload(err error) error {
	return appErrors.Invalid(err, "invalid payload")
}

// formUpload opens the multipart file field. The returned close func is never nil.
func formUpload(c *gin.Context) (dto.FileUpload, func(), error) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		return dto.FileUpload{}, func() {}, appErrors.Clone(appErrors.ErrValidation, "a file is required in the \"file\" field")
	}
	file, err := header.Open()
	if err != nil {
		return dto.FileUpload{}, func() {}, appErrors.Invalid(err, "unreadable upload")
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(header.Filename))); byExt != "" {
			contentType = byExt
		}
	}
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = parsed
	}
	upload := dto.FileUpload{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: contentType,
		Content:     file,
	}
	return upload, func() { _ = file.Close() }, nil
}
