package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxUploadSize = 32 << 20

// handleUpload accepts a multipart image and stores it alongside
// generated images so the canvas and the edit tool can reference it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeJSONError(w, http.StatusBadRequest, "only image uploads are accepted")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		ext = ".png"
	}
	name := fmt.Sprintf("upload_%s_%s%s", time.Now().Format("20060102_150405"), uuid.NewString()[:8], ext)

	if err := os.MkdirAll(s.imagesDir, 0o755); err != nil {
		s.logger.Error("create upload dir failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	dst, err := os.Create(filepath.Join(s.imagesDir, name))
	if err != nil {
		s.logger.Error("create upload file failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		s.logger.Error("write upload failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	s.logger.Info("image uploaded", "filename", name, "size", header.Size)
	writeJSON(w, map[string]string{
		"url":      imagesBasePath + "/" + name,
		"filename": name,
	})
}
