package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/signdesk/signdesk/internal/collab"
	"github.com/signdesk/signdesk/internal/config"
	"github.com/signdesk/signdesk/internal/field"
	"github.com/signdesk/signdesk/internal/file"
	mw "github.com/signdesk/signdesk/internal/middleware"
	"github.com/signdesk/signdesk/internal/pdfdoc"
	"github.com/signdesk/signdesk/internal/signature"
	"github.com/signdesk/signdesk/internal/store"
)

func newRouter(cfg *config.Config, st store.Store, pdf pdfdoc.Processor, hub *collab.Hub) *mux.Router {
	fileService := file.NewService(st, pdf, cfg.FileDir)
	fileHandler := file.NewHandler(fileService)

	fieldHandler := field.NewHandler(field.NewService(st, fileService, hub))

	links := signature.NewLinks(cfg.LinkSecret, cfg.LinkTTL)
	signatureHandler := signature.NewHandler(signature.NewService(st, fileService, pdf, links, hub, cfg.PublicURL))

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/files", fileHandler.Upload).Methods("POST", "OPTIONS")
	api.HandleFunc("/files/{fileId}", fileHandler.Download).Methods("GET", "OPTIONS")
	api.HandleFunc("/files/{fileId}/pdf-info", fileHandler.PDFInfo).Methods("GET", "OPTIONS")
	api.HandleFunc("/files/{fileId}/signature-fields", fieldHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/files/{fileId}/signature-fields", fieldHandler.Save).Methods("PUT", "POST")
	api.HandleFunc("/files/{fileId}/embed-signature", signatureHandler.Embed).Methods("POST", "OPTIONS")

	r.HandleFunc("/signed/{signatureId}", signatureHandler.Download).Methods("GET")
	r.HandleFunc("/ws/files/{fileId}", hub.ServeWS(collab.OriginPatterns(cfg.Origins())))

	return r
}
