package field

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"

	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/file"
)

const maxBodySize = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type fieldProblem struct {
	FieldID  string   `json:"field_id"`
	Problems []string `json:"problems"`
}

// List handles GET /api/files/{fileId}/signature-fields.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	fields, err := h.service.List(r.Context(), mux.Vars(r)["fileId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, document.FieldList{Fields: fields})
}

// Save handles PUT /api/files/{fileId}/signature-fields. The body is either
// {"fields": [...]} or a bare array of fields.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
		return
	}

	fields, err := decodeFields(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	saved, err := h.service.Save(r.Context(), mux.Vars(r)["fileId"], fields)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, document.FieldList{Fields: saved})
}

func decodeFields(body []byte) ([]document.SignatureField, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid request body")
	}

	root := gjson.ParseBytes(body)
	raw := root.Raw
	switch {
	case root.IsArray():
	case root.IsObject() && root.Get("fields").IsArray():
		raw = root.Get("fields").Raw
	case root.IsObject() && root.Get("fields").Exists() && root.Get("fields").Type == gjson.Null:
		return nil, nil
	default:
		return nil, errors.New(`expected {"fields": [...]} or an array of fields`)
	}

	var fields []document.SignatureField
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, errors.New("invalid field: " + err.Error())
	}
	return fields, nil
}

func handleServiceError(w http.ResponseWriter, err error) {
	var invalid *InvalidFieldsError
	switch {
	case errors.As(err, &invalid):
		details := make([]fieldProblem, len(invalid.Fields))
		for i, f := range invalid.Fields {
			details[i] = fieldProblem{FieldID: f.FieldID, Problems: f.Problems}
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   invalid.Error(),
			"details": details,
		})
	case errors.Is(err, file.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
	default:
		slog.Error("field service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
