package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/podcastai/internal/jobstore"
	"github.com/nikhilbhutani/podcastai/internal/models"
)

type fakeSubmitter struct {
	store *jobstore.Store
	got   []models.PodcastRequest
	err   error
}

func (f *fakeSubmitter) Submit(req models.PodcastRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.got = append(f.got, req)
	id := "job-" + string(rune('a'+len(f.got)-1))
	f.store.Create(id, req.Topic)
	return id, nil
}

func newTestRouter(t *testing.T) (http.Handler, *fakeSubmitter, *jobstore.Store) {
	t.Helper()
	store := jobstore.New(jobstore.DefaultRetention)
	sub := &fakeSubmitter{store: store}
	h := NewPodcastHandler(sub, store)

	r := chi.NewRouter()
	r.Post("/api/generate-podcast", h.Generate)
	r.Get("/api/podcast-status/{id}", h.Status)
	r.Get("/api/podcast-download/{id}", h.Download)
	r.Get("/api/podcast-events/{id}", h.Events)
	return r, sub, store
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func complete(store *jobstore.Store, id string, audio []byte) {
	status := models.JobStatusCompleted
	progress := 100
	stage := "Complete!"
	store.Update(id, models.JobUpdate{Status: &status, Progress: &progress, Stage: &stage, Audio: audio})
}

func TestGenerateAccepted(t *testing.T) {
	h, sub, store := newTestRouter(t)

	rec := do(h, http.MethodPost, "/api/generate-podcast",
		`{"topic":"Coral reefs","urls":["https://example.com/reefs"],"duration":"1-3","tone":"educational","audience":"students"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "processing", body["status"])
	assert.Equal(t, "job-a", body["jobId"])
	assert.NotEmpty(t, body["message"])

	require.Len(t, sub.got, 1)
	assert.Equal(t, []string{"https://example.com/reefs"}, sub.got[0].URLs)
	_, ok := store.Get("job-a")
	assert.True(t, ok)
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
		errPart string
	}{
		{"invalid json", `{"topic":`, "Invalid JSON body", ""},
		{"empty topic", `{"topic":"","duration":"1-3","tone":"educational","audience":"students"}`, "Validation failed", "topic is required"},
		{"topic too long", `{"topic":"` + strings.Repeat("x", 501) + `","duration":"1-3","tone":"educational","audience":"students"}`, "Validation failed", "topic must be at most 500"},
		{"bad duration", `{"topic":"x","duration":"2-4","tone":"educational","audience":"students"}`, "Validation failed", "duration must be one of"},
		{"bad tone", `{"topic":"x","duration":"1-3","tone":"angry","audience":"students"}`, "Validation failed", "tone must be one of"},
		{"bad audience", `{"topic":"x","duration":"1-3","tone":"educational","audience":"aliens"}`, "Validation failed", "audience must be one of"},
		{"bad url", `{"topic":"x","urls":["not a url"],"duration":"1-3","tone":"educational","audience":"students"}`, "Validation failed", "invalid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sub, store := newTestRouter(t)

			rec := do(h, http.MethodPost, "/api/generate-podcast", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode(t, rec)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tt.message, body["message"])
			if tt.errPart != "" {
				assert.Contains(t, body["error"], tt.errPart)
			}
			assert.Empty(t, sub.got, "invalid requests never reach the pipeline")
			assert.Zero(t, store.Len())
		})
	}
}

func TestGenerateSubmitFailure(t *testing.T) {
	h, sub, _ := newTestRouter(t)
	sub.err = errors.New("entropy exhausted")

	rec := do(h, http.MethodPost, "/api/generate-podcast",
		`{"topic":"x","duration":"1-3","tone":"educational","audience":"students"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])
}

func TestStatus(t *testing.T) {
	h, _, store := newTestRouter(t)
	store.Create("abc", "Topic")

	rec := do(h, http.MethodGet, "/api/podcast-status/abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "processing", body["status"])
	assert.EqualValues(t, 0, body["progress"])
	assert.Equal(t, "Starting...", body["stage"])
	assert.NotContains(t, body, "error")

	failed := models.JobStatusError
	msg := "boom"
	store.Update("abc", models.JobUpdate{Status: &failed, Error: &msg})

	body = decode(t, do(h, http.MethodGet, "/api/podcast-status/abc", ""))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "boom", body["error"])
}

func TestStatusNotFound(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := do(h, http.MethodGet, "/api/podcast-status/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"status": "error", "error": "Job not found"}, decode(t, rec))
}

func TestDownload(t *testing.T) {
	h, _, store := newTestRouter(t)
	store.Create("abc", "AI & the Future: 2025 edition, part one")
	complete(store, "abc", []byte{0xFF, 0xFB, 0x90, 0x00, 0x01})

	rec := do(h, http.MethodGet, "/api/podcast-download/abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="podcast-AI---the-Future--2025-edition-.mp3"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "5", rec.Header().Get("Content-Length"))
	assert.Equal(t, []byte{0xFF, 0xFB, 0x90, 0x00, 0x01}, rec.Body.Bytes())
}

func TestDownloadNotReady(t *testing.T) {
	h, _, store := newTestRouter(t)
	store.Create("abc", "Topic")

	rec := do(h, http.MethodGet, "/api/podcast-download/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Podcast not ready yet", decode(t, rec)["error"])

	// Progress alone never makes a job downloadable.
	progress := 100
	store.Update("abc", models.JobUpdate{Progress: &progress})
	rec = do(h, http.MethodGet, "/api/podcast-download/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadCompletedWithoutAudio(t *testing.T) {
	h, _, store := newTestRouter(t)
	store.Create("abc", "Topic")
	complete(store, "abc", nil)

	rec := do(h, http.MethodGet, "/api/podcast-download/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadNotFound(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := do(h, http.MethodGet, "/api/podcast-download/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job not found", decode(t, rec)["error"])
}

func TestDownloadFilename(t *testing.T) {
	assert.Equal(t, "podcast-Hello-World.mp3", DownloadFilename("Hello World"))
	assert.Equal(t, "podcast-caf--culture.mp3", DownloadFilename("café culture"))
	assert.Equal(t, "podcast-"+strings.Repeat("a", 30)+".mp3", DownloadFilename(strings.Repeat("a", 45)))
}
