package handler

import (
	"io"
	"net/http"
	"strings"
)

// maxDiagramBytes caps uploaded diagram size at 10 MiB.
const maxDiagramBytes = 10 << 20

var allowedDiagramTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"image/svg+xml":   true,
	"application/pdf": true,
}

// HandleUploadDiagram accepts a multipart upload under the "file" field,
// stores it content-addressed, and returns the artifact id.
func (h *Handler) HandleUploadDiagram(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDiagramBytes)
	if err := r.ParseMultipartForm(maxDiagramBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}
	if len(content) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	mime := strings.TrimSpace(header.Header.Get("Content-Type"))
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(content)
	}
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if !allowedDiagramTypes[mime] {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported diagram type: "+mime)
		return
	}

	id, err := h.Store.Put(r.Context(), content, mime)
	if err != nil {
		h.Log.Printf("upload-diagram: store put failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store diagram")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"fileId":   id,
		"mimeType": mime,
	})
}
