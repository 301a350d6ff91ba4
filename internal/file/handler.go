package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	FileID    string `json:"file_id"`
	Name      string `json:"name"`
	PageCount int    `json:"page_count"`
	Size      int64  `json:"size"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Upload handles POST /api/files (multipart form with "file" field).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large (max 32MB)"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	f, err := h.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		FileID:    f.ID,
		Name:      f.Name,
		PageCount: len(f.Pages),
		Size:      f.Size,
	})
}

// Download handles GET /api/files/{fileId}.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	f, rd, err := h.service.Open(r.Context(), mux.Vars(r)["fileId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer rd.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", f.Name))
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	http.ServeContent(w, r, f.Name, f.CreatedAt, rd)
}

// PDFInfo handles GET /api/files/{fileId}/pdf-info.
func (h *Handler) PDFInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.Context(), mux.Vars(r)["fileId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
	case errors.Is(err, ErrNotPDF):
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "only PDF documents are supported"})
	case errors.Is(err, ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large (max 32MB)"})
	default:
		slog.Error("file service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
