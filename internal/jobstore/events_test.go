package jobstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/podcastai/internal/models"
)

func TestSubscribeUnknownJob(t *testing.T) {
	s, _ := newTestStore()

	_, cancel, ok := s.Subscribe("missing")
	assert.False(t, ok)
	cancel()
}

func TestSubscribeReceivesCurrentAndLatest(t *testing.T) {
	s, _ := newTestStore()
	s.Create("job-1", "topic")

	updates, cancel, ok := s.Subscribe("job-1")
	require.True(t, ok)
	defer cancel()

	first := <-updates
	assert.Equal(t, 0, first.Progress)

	s.Update("job-1", models.JobUpdate{Progress: ptr(5)})
	s.Update("job-1", models.JobUpdate{Progress: ptr(40)})

	select {
	case latest := <-updates:
		assert.Equal(t, 40, latest.Progress, "only the newest snapshot is kept")
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
}

func TestSubscriptionClosedOnSweep(t *testing.T) {
	s, clock := newTestStore()
	s.Create("job-1", "topic")

	updates, cancel, ok := s.Subscribe("job-1")
	require.True(t, ok)
	defer cancel()
	<-updates

	clock.Advance(time.Hour)
	s.Create("job-2", "topic")

	_, open := <-updates
	assert.False(t, open)
}

func TestCancelIsIdempotent(t *testing.T) {
	s, _ := newTestStore()
	s.Create("job-1", "topic")

	_, cancel, ok := s.Subscribe("job-1")
	require.True(t, ok)
	cancel()
	assert.NotPanics(t, cancel)

	assert.NotPanics(t, func() {
		s.Update("job-1", models.JobUpdate{Progress: ptr(10)})
	})
}
