package podcast

import (
	"context"
	"sync"

	"github.com/nikhilbhutani/podcastai/internal/models"
	"github.com/nikhilbhutani/podcastai/internal/script"
)

type lockedScript struct {
	mu    sync.Mutex
	inner *fakeScript
}

func (l *lockedScript) Generate(ctx context.Context, req script.Request) ([]models.DialogueSegment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Generate(ctx, req)
}
