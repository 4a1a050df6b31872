package server

import (
	"net/http"

	"prrgen/internal/gateway/handler"
	"prrgen/internal/gateway/middleware"
)

func NewMux(h *handler.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ping", h.HandlePing)
	mux.HandleFunc("POST /api/upload-diagram", h.HandleUploadDiagram)

	// Stateless stage surface
	mux.HandleFunc("POST /api/analyze-system", h.HandleAnalyzeSystem)
	mux.HandleFunc("POST /api/analyze-destructive-tests", h.HandleAnalyzeDestructiveTests)
	mux.HandleFunc("POST /api/generate-prr", h.HandleGeneratePRR)

	// Run-tracked surface
	mux.HandleFunc("POST /api/runs", h.HandleCreateRun)
	mux.HandleFunc("GET /api/runs/{id}", h.HandleGetRun)
	mux.HandleFunc("POST /api/runs/{id}/advance", h.HandleAdvanceRun)
	mux.HandleFunc("POST /api/runs/{id}/stages/{stage}", h.HandleRunStage)
	mux.HandleFunc("GET /api/runs/{id}/watch", h.HandleWatchRun)
	mux.HandleFunc("GET /api/download-prr/{id}", h.HandleDownloadPRR)

	return middleware.CORS(mux)
}
