// Package podcast runs the generation pipeline for each submitted job in the
// background and records its progress in the job store.
package podcast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/podcastai/internal/audio"
	"github.com/nikhilbhutani/podcastai/internal/fetcher"
	"github.com/nikhilbhutani/podcastai/internal/jobstore"
	"github.com/nikhilbhutani/podcastai/internal/metrics"
	"github.com/nikhilbhutani/podcastai/internal/models"
	"github.com/nikhilbhutani/podcastai/internal/script"
	"github.com/nikhilbhutani/podcastai/internal/tts"
)

const (
	StageFetching = "Fetching reference content..."
	StageScript   = "Generating podcast script..."
	StageAudio    = "Generating audio..."
	StageComplete = "Complete!"
	StageFailed   = "Failed"

	progressFetching   = 2
	progressScript     = 5
	progressAudioStart = 40
	progressAudioSpan  = 55
	progressComplete   = 100

	unknownError = "Unknown error occurred"
)

type ScriptGenerator interface {
	Generate(ctx context.Context, req script.Request) ([]models.DialogueSegment, error)
}

type AudioGenerator interface {
	Generate(ctx context.Context, segments []models.DialogueSegment, onProgress audio.ProgressFunc) ([]byte, error)
}

type ContentFetcher interface {
	FetchAll(ctx context.Context, urls []string) fetcher.Result
}

// Notifier is told about every job once it reaches a terminal state.
type Notifier interface {
	Notify(job models.Job)
}

type Orchestrator struct {
	store    *jobstore.Store
	script   ScriptGenerator
	audio    AudioGenerator
	fetcher  ContentFetcher
	notifier Notifier
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// New creates an Orchestrator. A nil fetcher hands reference URLs straight
// to the script generator instead of extracting their text first.
func New(store *jobstore.Store, sg ScriptGenerator, ag AudioGenerator, cf ContentFetcher, m *metrics.Metrics, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		script:  sg,
		audio:   ag,
		fetcher: cf,
		metrics: m,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit registers a job for req and starts its pipeline without waiting
// for it. The request is expected to be validated already. Pipeline
// failures are recorded on the job and never returned here.
func (o *Orchestrator) Submit(req models.PodcastRequest) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	jobID := id.String()

	o.store.Create(jobID, req.Topic)
	o.metrics.JobSubmitted()
	slog.Info("podcast job submitted", "job_id", jobID, "duration", req.Duration, "tone", req.Tone, "audience", req.Audience, "urls", len(req.URLs))

	o.wg.Add(1)
	go o.run(jobID, req)

	return jobID, nil
}

// Wait blocks until every running pipeline has finished or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AudioProgress maps the current audio segment onto the 40..95 band.
func AudioProgress(current, total int) int {
	if total <= 0 {
		return progressAudioStart
	}
	return progressAudioStart + int(math.Round(float64(current)/float64(total)*progressAudioSpan))
}

func (o *Orchestrator) run(jobID string, req models.PodcastRequest) {
	defer o.wg.Done()

	start := time.Now()
	status := models.JobStatusError
	audioBytes := 0
	defer func() {
		o.metrics.JobFinished(string(status), time.Since(start), audioBytes)
		o.notify(jobID)
	}()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("podcast pipeline panicked", "job_id", jobID, "panic", r, "stack", string(debug.Stack()))
			o.fail(jobID, fmt.Errorf("internal error: %v", r))
		}
	}()

	// Jobs are not cancellable; they run to completion or failure.
	out, err := o.pipeline(context.Background(), jobID, req)
	if err != nil {
		slog.Error("podcast generation failed", "job_id", jobID, "error", err, "elapsed", time.Since(start))
		o.fail(jobID, err)
		return
	}

	completed := models.JobStatusCompleted
	o.store.Update(jobID, models.JobUpdate{
		Status:   &completed,
		Progress: ptr(progressComplete),
		Stage:    ptr(StageComplete),
		Audio:    out,
	})
	status = completed
	audioBytes = len(out)
	slog.Info("podcast generation completed", "job_id", jobID, "bytes", len(out), "elapsed", time.Since(start))
}

func (o *Orchestrator) pipeline(ctx context.Context, jobID string, req models.PodcastRequest) ([]byte, error) {
	scriptReq := script.Request{
		Topic:    req.Topic,
		URLs:     req.URLs,
		Duration: req.Duration,
		Tone:     req.Tone,
		Audience: req.Audience,
	}

	if o.fetcher != nil && len(req.URLs) > 0 {
		o.progress(jobID, progressFetching, StageFetching)
		res := o.fetcher.FetchAll(ctx, req.URLs)
		if len(res.Failed) > 0 {
			slog.Warn("some reference urls could not be fetched", "job_id", jobID, "failed", res.Failed)
			o.store.Update(jobID, models.JobUpdate{FailedURLs: res.Failed})
		}
		scriptReq.URLs = nil
		scriptReq.Context = res.Summaries
	}

	o.progress(jobID, progressScript, StageScript)
	segments, err := o.script.Generate(ctx, scriptReq)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, script.ErrNoSegments
	}
	slog.Info("script ready", "job_id", jobID, "segments", len(segments))

	o.progress(jobID, progressAudioStart, StageAudio)
	out, err := o.audio.Generate(ctx, segments, func(current, total int) {
		o.store.Update(jobID, models.JobUpdate{Progress: ptr(AudioProgress(current, total))})
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, tts.ErrEmptyAudio
	}
	return out, nil
}

func (o *Orchestrator) notify(jobID string) {
	if o.notifier == nil {
		return
	}
	if job, ok := o.store.Get(jobID); ok && job.Status.Terminal() {
		o.notifier.Notify(job)
	}
}

func (o *Orchestrator) progress(jobID string, progress int, stage string) {
	o.store.Update(jobID, models.JobUpdate{Progress: &progress, Stage: &stage})
}

func (o *Orchestrator) fail(jobID string, err error) {
	msg := unknownError
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	failed := models.JobStatusError
	o.store.Update(jobID, models.JobUpdate{
		Status:   &failed,
		Progress: ptr(0),
		Stage:    ptr(StageFailed),
		Error:    &msg,
	})
}

func ptr[T any](v T) *T { return &v }
