package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/podcastai/internal/jobstore"
	"github.com/nikhilbhutani/podcastai/internal/models"
)

const (
	maxRequestBytes   = 64 << 10
	filenameTopicRune = 30
)

// Submitter starts podcast generation for a validated request.
type Submitter interface {
	Submit(req models.PodcastRequest) (string, error)
}

type PodcastHandler struct {
	jobs  Submitter
	store *jobstore.Store
}

func NewPodcastHandler(jobs Submitter, store *jobstore.Store) *PodcastHandler {
	return &PodcastHandler{jobs: jobs, store: store}
}

func (h *PodcastHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.PodcastRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.PodcastResponse{Status: "error", Message: "Invalid JSON body"})
		return
	}

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, models.PodcastResponse{
			Status:  "error",
			Message: "Validation failed",
			Error:   err.Error(),
		})
		return
	}

	jobID, err := h.jobs.Submit(req)
	if err != nil {
		slog.Error("submit podcast job", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.PodcastResponse{
			Status:  "error",
			Message: "Failed to start podcast generation",
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, models.PodcastResponse{
		Status:  "processing",
		JobID:   jobID,
		Message: "Your podcast is being generated! Poll the status endpoint for progress.",
	})
}

func (h *PodcastHandler) Status(w http.ResponseWriter, r *http.Request) {
	job, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "error": "Job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job.View())
}

func (h *PodcastHandler) Download(w http.ResponseWriter, r *http.Request) {
	job, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found"})
		return
	}

	// Progress can read 100 a moment before the status flips, so only the
	// status and the audio itself are trusted here.
	if job.Status != models.JobStatusCompleted || len(job.Audio) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Podcast not ready yet"})
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, DownloadFilename(job.Topic)))
	w.Header().Set("Content-Length", strconv.Itoa(len(job.Audio)))
	w.WriteHeader(http.StatusOK)
	w.Write(job.Audio)
}

// DownloadFilename builds "podcast-<topic>.mp3" from the first 30 characters
// of the topic with everything but ASCII letters and digits replaced by '-'.
func DownloadFilename(topic string) string {
	runes := []rune(topic)
	if len(runes) > filenameTopicRune {
		runes = runes[:filenameTopicRune]
	}

	var b strings.Builder
	b.WriteString("podcast-")
	for _, r := range runes {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	b.WriteString(".mp3")
	return b.String()
}
