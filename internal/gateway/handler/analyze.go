package handler

import (
	"errors"
	"net/http"

	"prrgen/internal/pipeline"
	t "prrgen/internal/types"
)

type metadataIn struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	BusinessImpact string `json:"businessImpact"`
}

func (in metadataIn) toMetadata() (t.ProjectMetadata, error) {
	impact, err := t.ParseBusinessImpact(in.BusinessImpact)
	if err != nil {
		return t.ProjectMetadata{}, err
	}
	meta := t.ProjectMetadata{
		Name:           in.Name,
		Description:    in.Description,
		BusinessImpact: impact,
	}
	return meta, meta.Validate()
}

// HandleAnalyzeSystem runs architecture extraction on an uploaded diagram.
func (h *Handler) HandleAnalyzeSystem(w http.ResponseWriter, r *http.Request) {
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

	graph, status, err := h.Orch.RunArchitectureAnalysis(r.Context(), in.FileID, meta)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidArtifact) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"graph":  graph,
	})
}

// HandleAnalyzeDestructiveTests derives a chaos test plan from a graph.
func (h *Handler) HandleAnalyzeDestructiveTests(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Graph *t.ArchitectureGraph `json:"graph"`
	}
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}

	plan, status, err := h.Orch.RunResiliencePlan(r.Context(), in.Graph)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"plan":   plan,
	})
}

// HandleGeneratePRR synthesizes the final document from the upstream
// artifacts the caller accumulated.
func (h *Handler) HandleGeneratePRR(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Metadata metadataIn           `json:"metadata"`
		Graph    *t.ArchitectureGraph `json:"graph"`
		Plan     *t.ChaosTestPlan     `json:"plan"`
	}
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}
	meta, err := in.Metadata.toMetadata()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, status, err := h.Orch.RunSynthesis(r.Context(), meta, in.Graph, in.Plan)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"document": doc,
	})
}
