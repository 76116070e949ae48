package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const keepAliveInterval = 15 * time.Second

// Events streams status snapshots for a job as server-sent events and ends
// the stream once the job reaches a terminal state.
func (h *PodcastHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	updates, cancel, ok := h.store.Subscribe(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "error": "Job not found"})
		return
	}
	defer cancel()

	// The stream outlives the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case job, open := <-updates:
			if !open {
				fmt.Fprint(w, "event: expired\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			data, _ := json.Marshal(job.View())
			fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
			flusher.Flush()
			if job.Status.Terminal() {
				return
			}
		}
	}
}
