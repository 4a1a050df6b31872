package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	t "prrgen/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS is enforced at the middleware layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const watchWriteTimeout = 10 * time.Second

// HandleWatchRun streams run snapshots over a websocket: one message with the
// current state on connect, then one per transition until the run reaches a
// terminal state or the client goes away.
func (h *Handler) HandleWatchRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	run, ok := h.Orch.GetRun(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	updates, unsubscribe, err := h.Orch.Subscribe(runID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Printf("watch: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close handshakes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(snapshot *t.PipelineRun) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
		if err := conn.WriteJSON(snapshot); err != nil {
			return false
		}
		return snapshot.State != t.RunCompleted && snapshot.State != t.RunFailed
	}

	if !send(run) {
		return
	}
	for {
		select {
		case snapshot, ok := <-updates:
			if !ok || !send(snapshot) {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
