package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradeboard/internal/filestore"
	"tradeboard/internal/model"
	"tradeboard/internal/service"
)

// 10 MB per attachment
const maxUploadBytes = 10 << 20

type UploadHandler struct {
	store           *filestore.S3Store
	timelineService *service.TimelineService
	logger          *zap.Logger
}

func NewUploadHandler(store *filestore.S3Store, timelineService *service.TimelineService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{store: store, timelineService: timelineService, logger: logger}
}

// Upload handles POST /projects/:id/files (multipart). The object goes to
// S3 first, then a file_upload timeline entry records the URL. If the
// timeline insert fails the object is deleted again.
func (h *UploadHandler) Upload(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer f.Close()

	key, url, err := h.store.Upload(c.Request.Context(), projectID,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), f)
	if err != nil {
		h.logger.Error("file upload failed",
			zap.Int64("project_id", projectID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	message := fileHeader.Filename
	u, err := h.timelineService.Post(c.Request.Context(), projectID, currentUserID(c),
		model.UpdateFileUpload, &message, &url, map[string]any{
			"filename":   fileHeader.Filename,
			"size_bytes": fileHeader.Size,
			"s3_key":     key,
		})
	if err != nil {
		if delErr := h.store.Delete(c.Request.Context(), key); delErr != nil {
			h.logger.Warn("orphan object left in bucket",
				zap.String("key", key), zap.Error(delErr))
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"update":   u,
		"file_url": url,
	})
}
