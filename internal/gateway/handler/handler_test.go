package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"prrgen/internal/artifact"
	"prrgen/internal/gateway/handler"
	"prrgen/internal/gateway/server"
	"prrgen/internal/llm"
	"prrgen/internal/pipeline"
	"prrgen/internal/runner"
	"prrgen/internal/types"
)

// pngMagic is enough for content sniffing to call the upload image/png.
var pngMagic = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func newTestServer(t *testing.T) (*httptest.Server, artifact.Store) {
	t.Helper()
	store := artifact.NewMemoryStore()
	cli := llm.NewFakeClient()
	orch := runner.New(
		&pipeline.Extractor{LLM: cli, Store: store},
		&pipeline.Planner{LLM: cli},
		&pipeline.Synthesizer{LLM: cli},
		nil,
	)
	srv := httptest.NewServer(server.NewMux(handler.New(store, orch, nil)))
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestPing(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/ping")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	out := decode[map[string]string](t, resp)
	if out["message"] != "pong" {
		t.Fatalf("body = %v", out)
	}
}

func TestUploadDiagram(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "diagram.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(pngMagic); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/upload-diagram", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	out := decode[map[string]string](t, resp)
	if out["fileId"] != artifact.ContentID(pngMagic) {
		t.Fatalf("fileId = %q", out["fileId"])
	}
	if out["mimeType"] != "image/png" {
		t.Fatalf("mimeType = %q", out["mimeType"])
	}
}

func TestUploadDiagramRejectsUnknownType(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "diagram.bin")
	_, _ = fw.Write([]byte("#!/bin/sh\necho hi\n"))
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/upload-diagram", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func uploadFixture(t *testing.T, store artifact.Store) string {
	t.Helper()
	id, err := store.Put(context.Background(), pngMagic, "image/png")
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestAnalyzeSystem(t *testing.T) {
	srv, store := newTestServer(t)
	fileID := uploadFixture(t, store)

	resp := postJSON(t, srv.URL+"/api/analyze-system", map[string]string{
		"fileId":         fileID,
		"name":           "Shop",
		"description":    "retail storefront",
		"businessImpact": "high",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	out := decode[struct {
		Status types.StageStatus        `json:"status"`
		Graph  *types.ArchitectureGraph `json:"graph"`
	}](t, resp)
	if out.Status != types.StageSucceeded {
		t.Fatalf("status = %s", out.Status)
	}
	if len(out.Graph.Components) != 8 || out.Graph.AvailabilityTier != types.Tier2 {
		t.Fatalf("graph = %d components, tier %s", len(out.Graph.Components), out.Graph.AvailabilityTier)
	}
}

func TestAnalyzeSystemUnknownArtifact(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/analyze-system", map[string]string{
		"fileId":         "missing",
		"name":           "Shop",
		"description":    "retail storefront",
		"businessImpact": "high",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAnalyzeSystemBadImpact(t *testing.T) {
	srv, store := newTestServer(t)
	fileID := uploadFixture(t, store)
	resp := postJSON(t, srv.URL+"/api/analyze-system", map[string]string{
		"fileId":         fileID,
		"name":           "Shop",
		"description":    "retail storefront",
		"businessImpact": "severe",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRunLifecycleOverHTTP(t *testing.T) {
	srv, store := newTestServer(t)
	fileID := uploadFixture(t, store)

	resp := postJSON(t, srv.URL+"/api/runs", map[string]string{
		"fileId":         fileID,
		"name":           "Shop",
		"description":    "retail storefront",
		"businessImpact": "critical",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	run := decode[types.PipelineRun](t, resp)
	if run.ID == "" || run.State != types.RunCreated {
		t.Fatalf("run = %+v", run)
	}

	for i := 0; i < 3; i++ {
		resp = postJSON(t, srv.URL+"/api/runs/"+run.ID+"/advance", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("advance %d status = %d", i, resp.StatusCode)
		}
		run = decode[types.PipelineRun](t, resp)
	}
	if run.State != types.RunCompleted || run.Document == nil {
		t.Fatalf("final state = %s", run.State)
	}

	// Download as plain text.
	dl, err := http.Get(srv.URL + "/api/download-prr/" + run.ID + "?format=txt")
	if err != nil {
		t.Fatal(err)
	}
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", dl.StatusCode)
	}
	if ct := dl.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %s", ct)
	}
	var body bytes.Buffer
	if _, err := body.ReadFrom(dl.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body.String(), "Shop - Production Readiness Review") {
		t.Fatalf("download body:\n%s", body.String())
	}
}

func TestDownloadBeforeCompletion(t *testing.T) {
	srv, store := newTestServer(t)
	fileID := uploadFixture(t, store)

	resp := postJSON(t, srv.URL+"/api/runs", map[string]string{
		"fileId":         fileID,
		"name":           "Shop",
		"description":    "retail storefront",
		"businessImpact": "low",
	})
	run := decode[types.PipelineRun](t, resp)

	dl, err := http.Get(srv.URL + "/api/download-prr/" + run.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d", dl.StatusCode)
	}
}

func TestRunStageEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	fileID := uploadFixture(t, store)

	resp := postJSON(t, srv.URL+"/api/runs", map[string]string{
		"fileId":         fileID,
		"name":           "Shop",
		"description":    "retail storefront",
		"businessImpact": "medium",
	})
	run := decode[types.PipelineRun](t, resp)
	for i := 0; i < 3; i++ {
		resp = postJSON(t, fmt.Sprintf("%s/api/runs/%s/advance", srv.URL, run.ID), nil)
		run = decode[types.PipelineRun](t, resp)
	}

	resp = postJSON(t, fmt.Sprintf("%s/api/runs/%s/stages/plan", srv.URL, run.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stage rerun status = %d", resp.StatusCode)
	}
	run = decode[types.PipelineRun](t, resp)
	if run.State != types.RunPlanned || run.Document != nil {
		t.Fatalf("state = %s, document = %v", run.State, run.Document != nil)
	}

	resp = postJSON(t, fmt.Sprintf("%s/api/runs/%s/stages/bogus", srv.URL, run.ID), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bogus stage status = %d", resp.StatusCode)
	}
}
