// Package handler exposes the analysis pipeline over HTTP.
package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"prrgen/internal/artifact"
	"prrgen/internal/runner"
)

type Handler struct {
	Store artifact.Store
	Orch  *runner.Orchestrator
	Log   *log.Logger
}

func New(store artifact.Store, orch *runner.Orchestrator, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{Store: store, Orch: orch, Log: logger}
}

func (h *Handler) HandlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
