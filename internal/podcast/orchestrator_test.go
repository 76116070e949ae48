package podcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/podcastai/internal/audio"
	"github.com/nikhilbhutani/podcastai/internal/fetcher"
	"github.com/nikhilbhutani/podcastai/internal/jobstore"
	"github.com/nikhilbhutani/podcastai/internal/metrics"
	"github.com/nikhilbhutani/podcastai/internal/models"
	"github.com/nikhilbhutani/podcastai/internal/script"
	"github.com/nikhilbhutani/podcastai/internal/tts"
)

type fakeScript struct {
	fn  func(ctx context.Context, req script.Request) ([]models.DialogueSegment, error)
	got []script.Request
}

func (f *fakeScript) Generate(ctx context.Context, req script.Request) ([]models.DialogueSegment, error) {
	f.got = append(f.got, req)
	return f.fn(ctx, req)
}

type fakeAudio struct {
	fn func(ctx context.Context, segments []models.DialogueSegment, onProgress audio.ProgressFunc) ([]byte, error)
}

func (f *fakeAudio) Generate(ctx context.Context, segments []models.DialogueSegment, onProgress audio.ProgressFunc) ([]byte, error) {
	return f.fn(ctx, segments, onProgress)
}

type fakeFetcher struct {
	result fetcher.Result
	got    []string
}

func (f *fakeFetcher) FetchAll(_ context.Context, urls []string) fetcher.Result {
	f.got = urls
	return f.result
}

var twoSegments = []models.DialogueSegment{
	{Speaker: models.SpeakerHostA, Text: "Hi"},
	{Speaker: models.SpeakerHostB, Text: "Hello"},
}

var validRequest = models.PodcastRequest{
	Topic:    "Tidal energy",
	Duration: "3-5",
	Tone:     "educational",
	Audience: "students",
}

func okScript() *fakeScript {
	return &fakeScript{fn: func(context.Context, script.Request) ([]models.DialogueSegment, error) {
		return twoSegments, nil
	}}
}

func okAudio() *fakeAudio {
	return &fakeAudio{fn: func(_ context.Context, segments []models.DialogueSegment, onProgress audio.ProgressFunc) ([]byte, error) {
		for i := range segments {
			onProgress(i+1, len(segments))
		}
		return []byte("mp3-bytes"), nil
	}}
}

func waitAll(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Wait(ctx))
}

func TestAudioProgress(t *testing.T) {
	assert.Equal(t, 68, AudioProgress(2, 4))
	assert.Equal(t, 95, AudioProgress(4, 4))
	assert.Equal(t, 54, AudioProgress(1, 4))
	assert.Equal(t, 40, AudioProgress(0, 0))
}

func TestSubmitReturnsBeforePipelineRuns(t *testing.T) {
	store := jobstore.New(jobstore.DefaultRetention)
	release := make(chan struct{})
	sg := &fakeScript{fn: func(context.Context, script.Request) ([]models.DialogueSegment, error) {
		<-release
		return twoSegments, nil
	}}
	o := New(store, sg, okAudio(), nil, nil)

	id, err := o.Submit(validRequest)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, models.JobStatusProcessing, job.Status)
	assert.Equal(t, "Tidal energy", job.Topic)

	close(release)
	waitAll(t, o)
}

func TestPipelineCompletes(t *testing.T) {
	store := jobstore.New(jobstore.DefaultRetention)
	m := metrics.New()

	type seen struct {
		progress int
		stage    string
	}
	var observed []seen
	var jobID string
	record := func() {
		job, _ := store.Get(jobID)
		observed = append(observed, seen{job.Progress, job.Stage})
	}

	sg := &fakeScript{fn: func(context.Context, script.Request) ([]models.DialogueSegment, error) {
		record()
		return []models.DialogueSegment{
			{Speaker: models.SpeakerHostA, Text: "1"},
			{Speaker: models.SpeakerHostB, Text: "2"},
			{Speaker: models.SpeakerHostA, Text: "3"},
			{Speaker: models.SpeakerHostB, Text: "4"},
		}, nil
	}}
	ag := &fakeAudio{fn: func(_ context.Context, segments []models.DialogueSegment, onProgress audio.ProgressFunc) ([]byte, error) {
		record()
		for i := range segments {
			onProgress(i+1, len(segments))
			record()
		}
		return []byte("mp3-bytes"), nil
	}}

	// Block the pipeline until jobID is known to the recorder.
	start := make(chan struct{})
	gated := &fakeScript{fn: func(ctx context.Context, req script.Request) ([]models.DialogueSegment, error) {
		<-start
		return sg.Generate(ctx, req)
	}}
	o := New(store, gated, ag, nil, m)

	var err error
	jobID, err = o.Submit(validRequest)
	require.NoError(t, err)
	close(start)
	waitAll(t, o)

	assert.Equal(t, []seen{
		{5, StageScript},
		{40, StageAudio},
		{54, StageAudio},
		{68, StageAudio},
		{81, StageAudio},
		{95, StageAudio},
	}, observed)

	job, ok := store.Get(jobID)
	require.True(t, ok)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, StageComplete, job.Stage)
	assert.Equal(t, []byte("mp3-bytes"), job.Audio)
	assert.Empty(t, job.Error)

	require.Len(t, sg.got, 1)
	assert.Equal(t, script.Request{Topic: "Tidal energy", Duration: "3-5", Tone: "educational", Audience: "students"}, sg.got[0])
}

func TestPipelineScriptFailure(t *testing.T) {
	store := jobstore.New(jobstore.DefaultRetention)
	sg := &fakeScript{fn: func(context.Context, script.Request) ([]models.DialogueSegment, error) {
		return nil, script.ErrNoSegments
	}}
	audioCalled := false
	ag := &fakeAudio{fn: func(context.Context, []models.DialogueSegment, audio.ProgressFunc) ([]byte, error) {
		audioCalled = true
		return nil, nil
	}}
	o := New(store, sg, ag, nil, nil)

	id, err := o.Submit(validRequest)
	require.NoError(t, err)
	waitAll(t, o)

	job, _ := store.Get(id)
	assert.Equal(t, models.JobStatusError, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, StageFailed, job.Stage)
	assert.Equal(t, script.ErrNoSegments.Error(), job.Error)
	assert.Nil(t, job.Audio)
	assert.False(t, audioCalled)
}

func TestPipelineRejectsEmptyScript(t *testing.T) {
	store := jobstore.New(jobstore.DefaultRetention)
	sg := &fakeScript{fn: func(context.Context, script.Request) ([]models.DialogueSegment, error) {
		return []models.DialogueSegment{}, nil
	}}
	audioCalled := false
	ag := &fakeAudio{fn: func(context.Context, []models.DialogueSegment, audio.ProgressFunc) ([]byte, error) {
		audioCalled = true
		return []byte("mp3-bytes"), nil
	}}
	o := New(store, sg, ag, nil, nil)

	id, err := o.Submit(validRequest)
	require.NoError(t, err)
	waitAll(t, o)

	job, _ := store.Get(id)
	assert.Equal(t, models.JobStatusError, job.Status)
	assert.Equal(t, StageFailed, job.Stage)
	assert.Equal(t, script.ErrNoSegments.Error(), job.Error)
	assert.False(t, audioCalled)
}

func TestPipelineRejectsEmptyAudio(t *testing.T) {
	store := jobstore.New(jobstore.DefaultRetention)
	ag := &fakeAudio{fn: func(context.Context, []models.DialogueSegment, audio.ProgressFunc) ([]byte, error) {
		return nil, nil
	}}
	o := New(store, okScript(), ag, nil, nil)

	id, err := o.Submit(validRequest)
	require.NoError(t, err)
	waitAll(t, o)

	job, _ := store.Get(id)
	assert.Equal(t, models.JobStatusError, job.Status)
	assert.Equal(t, tts.ErrEmptyAudio.Error(), job.Error)
}

func TestPipelineAudioFailureWithEmptyMessage(t *testing.T) {
	store := jobstore.New(jobstore.DefaultRetention)
	ag := &fakeAudio{fn: func(context.Context, []models.DialogueSegment, audio.ProgressFunc) ([]byte, error) {
		return nil, errors.New("")
	}}
	o := New(store, okScript(), ag, nil, nil)

	id, err := o.Submit(validRequest)
	require.NoError(t, err)
	waitAll(t, o)

	job, _ := store.Get(id)
	assert.Equal(t, models.JobStatusError, job.Status)
	assert.Equal(t, "Unknown error occurred", job.Error)
}

func TestPipelinePanicBecomesJobError(t *testing.T) {
	store := jobstore.New(jobstore.DefaultRetention)
	sg := &fakeScript{fn: func(context.Context, script.Request) ([]models.DialogueSegment, error) {
		panic("nil map write")
	}}
	o := New(store, sg, okAudio(), nil, nil)

	id, err := o.Submit(validRequest)
	require.NoError(t, err)
	waitAll(t, o)

	job, _ := store.Get(id)
	assert.Equal(t, models.JobStatusError, job.Status)
	assert.Equal(t, StageFailed, job.Stage)
	assert.Contains(t, job.Error, "nil map write")
}

func TestPipelinePrefetchesReferenceContent(t *testing.T) {
	store := jobstore.New(jobstore.DefaultRetention)
	sg := okScript()
	cf := &fakeFetcher{result: fetcher.Result{
		Summaries: "Content from https://ok.example:\nTides are predictable.",
		Failed:    []string{"https://down.example"},
	}}
	o := New(store, sg, okAudio(), cf, nil)

	req := validRequest
	req.URLs = []string{"https://ok.example", "https://down.example"}
	id, err := o.Submit(req)
	require.NoError(t, err)
	waitAll(t, o)

	assert.Equal(t, req.URLs, cf.got)
	require.Len(t, sg.got, 1)
	assert.Nil(t, sg.got[0].URLs)
	assert.Equal(t, "Content from https://ok.example:\nTides are predictable.", sg.got[0].Context)

	job, _ := store.Get(id)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, []string{"https://down.example"}, job.FailedURLs)
}

func TestPipelineSkipsFetchWithoutURLs(t *testing.T) {
	store := jobstore.New(jobstore.DefaultRetention)
	cf := &fakeFetcher{}
	o := New(store, okScript(), okAudio(), cf, nil)

	_, err := o.Submit(validRequest)
	require.NoError(t, err)
	waitAll(t, o)

	assert.Nil(t, cf.got)
}

func TestConcurrentJobsAreIndependent(t *testing.T) {
	store := jobstore.New(jobstore.DefaultRetention)
	sg := &fakeScript{fn: func(_ context.Context, req script.Request) ([]models.DialogueSegment, error) {
		if req.Topic == "bad" {
			return nil, errors.New("model refused")
		}
		return twoSegments, nil
	}}
	// fakeScript.got is not safe for concurrent appends, so wrap it.
	safe := &lockedScript{inner: sg}
	o := New(store, safe, okAudio(), nil, nil)

	var good, bad []string
	for i := 0; i < 10; i++ {
		req := validRequest
		if i%2 == 0 {
			req.Topic = "bad"
		}
		id, err := o.Submit(req)
		require.NoError(t, err)
		if i%2 == 0 {
			bad = append(bad, id)
		} else {
			good = append(good, id)
		}
	}
	waitAll(t, o)

	for _, id := range good {
		job, _ := store.Get(id)
		assert.Equal(t, models.JobStatusCompleted, job.Status)
	}
	for _, id := range bad {
		job, _ := store.Get(id)
		assert.Equal(t, models.JobStatusError, job.Status)
		assert.Equal(t, "model refused", job.Error)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	store := jobstore.New(jobstore.DefaultRetention)
	release := make(chan struct{})
	sg := &fakeScript{fn: func(context.Context, script.Request) ([]models.DialogueSegment, error) {
		<-release
		return twoSegments, nil
	}}
	o := New(store, sg, okAudio(), nil, nil)
	_, err := o.Submit(validRequest)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, o.Wait(ctx), context.DeadlineExceeded)

	close(release)
	waitAll(t, o)
}

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []models.Job
}

func (n *recordingNotifier) Notify(job models.Job) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, job)
}

func TestNotifierSeesTerminalJobs(t *testing.T) {
	store := jobstore.New(jobstore.DefaultRetention)
	n := &recordingNotifier{}
	sg := &lockedScript{inner: &fakeScript{fn: func(_ context.Context, req script.Request) ([]models.DialogueSegment, error) {
		if req.Topic == "bad" {
			return nil, errors.New("refused")
		}
		return twoSegments, nil
	}}}
	o := New(store, sg, okAudio(), nil, nil, WithNotifier(n))

	okID, err := o.Submit(validRequest)
	require.NoError(t, err)
	bad := validRequest
	bad.Topic = "bad"
	badID, err := o.Submit(bad)
	require.NoError(t, err)
	waitAll(t, o)

	byID := map[string]models.Job{}
	for _, j := range n.jobs {
		byID[j.ID] = j
	}
	require.Len(t, n.jobs, 2)
	assert.Equal(t, models.JobStatusCompleted, byID[okID].Status)
	assert.Equal(t, []byte("mp3-bytes"), byID[okID].Audio)
	assert.Equal(t, models.JobStatusError, byID[badID].Status)
	assert.Equal(t, "refused", byID[badID].Error)
}
