package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"chat-node/internal/models"
	"chat-node/internal/telemetry"
)

// MaxUploadSize bounds uploads so a file can still cross the peer transport.
const MaxUploadSize = 32 << 20

type fileService interface {
	Upload(ctx context.Context, name, mimeType string, data []byte) (models.FileInfo, error)
	Resolve(ctx context.Context, fileID, senderNode string) ([]byte, error)
}

// FileHandler serves attachment upload and download.
type FileHandler struct {
	auditor
	files fileService
}

// NewFileHandler constructs a FileHandler.
func NewFileHandler(files fileService, audit *telemetry.AuditEmitter) *FileHandler {
	return &FileHandler{auditor: auditor{audit: audit}, files: files}
}

// Upload handles POST /api/files with a multipart "file" field.
func (h *FileHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+(1<<20))

	header, err := c.FormFile("file")
	if err != nil {
		h.emitAudit(c, "ERROR", "invalid upload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if header.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}

	info, err := h.files.Upload(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.emitAudit(c, "ERROR", "upload rejected")
		writeError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "File uploaded")
	c.JSON(http.StatusCreated, info)
}

// Download handles GET /api/files/:file_id?sender_node=. The file is fetched
// from sender_node and cached when it is not held locally.
func (h *FileHandler) Download(c *gin.Context) {
	data, err := h.files.Resolve(c.Request.Context(), c.Param("file_id"), c.Query("sender_node"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}
