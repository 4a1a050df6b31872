package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"prrgen/internal/export"
	"prrgen/internal/runner"
	t "prrgen/internal/types"
)

// HandleCreateRun registers a pipeline run over an uploaded diagram.
func (h *Handler) HandleCreateRun(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FileID string `json:"fileId"`
		metadataIn
	}
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}
	meta, err := in.toMetadata()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.Orch.CreateRun(meta, in.FileID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// HandleGetRun returns the current run snapshot.
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.Orch.GetRun(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandleAdvanceRun moves the run forward by one stage.
func (h *Handler) HandleAdvanceRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Orch.Advance(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, runner.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if run != nil {
			// Failed runs carry the error in the snapshot.
			writeJSON(w, http.StatusUnprocessableEntity, run)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandleRunStage re-invokes one stage, replacing its artifact and
// invalidating everything downstream.
func (h *Handler) HandleRunStage(w http.ResponseWriter, r *http.Request) {
	stage := t.StageKind(strings.TrimSpace(r.PathValue("stage")))
	switch stage {
	case t.StageExtract, t.StagePlan, t.StageSynthesize:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown stage %q", stage))
		return
	}

	run, err := h.Orch.RunStage(r.Context(), r.PathValue("id"), stage)
	if err != nil {
		if errors.Is(err, runner.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if run != nil {
			writeJSON(w, http.StatusUnprocessableEntity, run)
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandleDownloadPRR serves a completed run's document, as JSON or as a
// plain-text file for ?format=txt.
func (h *Handler) HandleDownloadPRR(w http.ResponseWriter, r *http.Request) {
	run, ok := h.Orch.GetRun(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if run.Document == nil {
		writeError(w, http.StatusConflict, "run has no document yet; advance it to completion first")
		return
	}

	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case "", "json":
		writeJSON(w, http.StatusOK, run.Document)
	case "txt", "text":
		name := strings.ReplaceAll(strings.ToLower(run.Metadata.Name), " ", "-")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"-prr.txt"))
		_, _ = w.Write([]byte(export.PlainText(run.Document)))
	default:
		writeError(w, http.StatusBadRequest, "unsupported format; use json or txt")
	}
}
