package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cultach/cultach-api/pkg/errors"
	"github.com/cultach/cultach-api/pkg/metrics"
	"github.com/cultach/cultach-api/pkg/response"
	"github.com/cultach/cultach-api/pkg/storage"
)

// maxUploadBytes caps a single image upload at 5 MiB.
const maxUploadBytes = 5 << 20

var allowedDestinations = map[string]bool{
	"events":   true,
	"venues":   true,
	"profiles": true,
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UploadHandler stores user-submitted images in the object store.
type UploadHandler struct {
	store storage.ObjectStore
}

func NewUploadHandler(store storage.ObjectStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// POST /api/uploads
//
// Accepts a multipart form with a "destination" field naming the target
// folder and a "file" part carrying the image.
func (h *UploadHandler) Upload(c *gin.Context) {
	destination := strings.TrimSpace(c.PostForm("destination"))
	if !allowedDestinations[destination] {
		metrics.ImageUploads.WithLabelValues("rejected").Inc()
		response.Error(c, errors.NewBadRequest("destination must be one of: events, venues, profiles"))
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		metrics.ImageUploads.WithLabelValues("rejected").Inc()
		response.Error(c, errors.NewBadRequest("file is required"))
		return
	}
	if header.Size > maxUploadBytes {
		metrics.ImageUploads.WithLabelValues("rejected").Inc()
		response.Error(c, errors.NewBadRequest("file exceeds the 5 MiB upload limit"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		metrics.ImageUploads.WithLabelValues("rejected").Inc()
		response.Error(c, errors.NewBadRequest("file must be a JPEG, PNG, GIF or WebP image"))
		return
	}

	file, err := header.Open()
	if err != nil {
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}

	key := h.store.UploadKey(destination, filepath.Base(header.Filename))
	url, err := h.store.Put(requestContext(c), key, body, contentType)
	if err != nil {
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		response.Error(c, errors.ErrInternalServer.WithMessage("Image upload failed"))
		return
	}

	metrics.ImageUploads.WithLabelValues("stored").Inc()
	response.Success(c, http.StatusCreated, gin.H{
		"key": key,
		"url": url,
	})
}
