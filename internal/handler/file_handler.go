package handler

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
	"github.com/noah-isme/compliance-docs-api/pkg/response"
)

type tokenRedeemer interface {
	Redeem(token string) (*os.File, string, error)
}

// FileHandler serves files from the local store behind signed download links.
type FileHandler struct {
	store tokenRedeemer
}

// NewFileHandler constructs FileHandler.
func NewFileHandler(store tokenRedeemer) *FileHandler {
	return &FileHandler{store: store}
}

// Download godoc
// @Summary Download a stored file through a signed link
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /files/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, key, err := h.store.Redeem(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "download link is invalid or expired"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stat stored file"))
		return
	}
	name := path.Base(key)
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, io.Reader(file), nil)
}
