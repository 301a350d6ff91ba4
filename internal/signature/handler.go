package signature

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/field"
	"github.com/signdesk/signdesk/internal/file"
)

// Signatures are PNG data URIs; a few MB covers any pad size.
const maxBodySize = 8 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Embed handles POST /api/files/{fileId}/embed-signature.
func (h *Handler) Embed(w http.ResponseWriter, r *http.Request) {
	var req document.EmbedRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.service.Embed(r.Context(), mux.Vars(r)["fileId"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Download handles GET /signed/{signatureId}?token=...
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	sig, err := h.service.Resolve(r.Context(), mux.Vars(r)["signatureId"], r.URL.Query().Get("token"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	rd, err := os.Open(sig.Path)
	if err != nil {
		handleServiceError(w, fmt.Errorf("open signed document: %w", err))
		return
	}
	defer rd.Close()

	name := sig.ID + ".pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("X-Content-Digest", "blake2b-256="+sig.Digest)
	http.ServeContent(w, r, name, sig.SignedAt, rd)
}

func handleServiceError(w http.ResponseWriter, err error) {
	var invalid *field.InvalidFieldsError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": invalid.Error()})
	case errors.Is(err, ErrNoFields):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "no signature fields defined for this document"})
	case errors.Is(err, ErrBadSignature):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "signature image is empty or not a PNG data URI"})
	case errors.Is(err, ErrSignerRequired), errors.Is(err, ErrFileMismatch):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrLinkInvalid):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "link invalid or expired"})
	case errors.Is(err, file.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "signed document not found"})
	default:
		slog.Error("signature service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
