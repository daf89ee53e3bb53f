package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/deepchat/internal/infra/config"
	"github.com/matiasleandrokruk/deepchat/internal/infra/uploads"
)

// UploadStarter submits an upload task for an already-stored file.
type UploadStarter interface {
	StartUpload(id, fileName, filePath, contentType string) string
}

type UploadHandler struct {
	orch  UploadStarter
	store *uploads.Store
	cfg   *config.Manager
}

func NewUploadHandler(orch UploadStarter, store *uploads.Store, cfg *config.Manager) *UploadHandler {
	return &UploadHandler{orch: orch, store: store, cfg: cfg}
}

// Upload accepts a multipart file plus an optional task_id. The size cap and
// content-type whitelist are enforced before anything touches disk, so a
// rejected upload leaves no partial blob behind.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	maxSize := h.cfg.Get().UploadMaxSize

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	contentType := detectContentType(header.Header.Get(headerContentType), header.Filename)
	if contentType != "text/plain" && contentType != "application/pdf" {
		writeError(w, http.StatusBadRequest, "Unsupported file type")
		return
	}

	// Read one byte past the cap to distinguish "at the limit" from "over".
	content, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	if int64(len(content)) > maxSize {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("File size exceeds the limit (%d bytes)", maxSize))
		return
	}

	taskID := r.FormValue("task_id")
	if taskID == "" {
		taskID = uuid.NewString()
	}

	path, err := h.store.Save(taskID, header.Filename, content)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to store uploaded file")
		return
	}

	taskID = h.orch.StartUpload(taskID, filepath.Base(header.Filename), path, contentType)
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID})
}

// detectContentType prefers the declared part content type and falls back to
// the filename extension, since some clients send application/octet-stream.
func detectContentType(declared, filename string) string {
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = declared[:i]
	}
	declared = strings.TrimSpace(declared)
	if declared == "text/plain" || declared == "application/pdf" {
		return declared
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	}
	return declared
}
