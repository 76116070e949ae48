// Package audio turns an ordered dialogue into a single MP3 stream, one
// speech request per turn with a short pause between speakers.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/podcastai/internal/metrics"
	"github.com/nikhilbhutani/podcastai/internal/models"
	"github.com/nikhilbhutani/podcastai/internal/retry"
	"github.com/nikhilbhutani/podcastai/internal/tts"
	"github.com/nikhilbhutani/podcastai/pkg/chunker"
)

const DefaultPause = 300 * time.Millisecond

// ProgressFunc is called with the 1-based index of the segment about to be
// synthesized and the segment count.
type ProgressFunc func(current, total int)

type Options struct {
	VoiceHostA string
	VoiceHostB string
	// MaxInputChars splits longer turns into several speech requests. Zero
	// disables splitting.
	MaxInputChars int
	Pause         time.Duration
	Retry         retry.Policy
}

type Synthesizer struct {
	provider tts.Provider
	opts     Options
	silence  []byte
	metrics  *metrics.Metrics
}

func NewSynthesizer(p tts.Provider, opts Options, m *metrics.Metrics) *Synthesizer {
	if opts.VoiceHostA == "" {
		opts.VoiceHostA = "marin"
	}
	if opts.VoiceHostB == "" {
		opts.VoiceHostB = "cedar"
	}
	if opts.Pause == 0 {
		opts.Pause = DefaultPause
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	return &Synthesizer{
		provider: p,
		opts:     opts,
		silence:  Silence(opts.Pause),
		metrics:  m,
	}
}

// Voice returns the synthesis voice for a speaker.
func (s *Synthesizer) Voice(speaker models.Speaker) string {
	if speaker == models.SpeakerHostB {
		return s.opts.VoiceHostB
	}
	return s.opts.VoiceHostA
}

// Generate synthesizes every segment in order and joins them with silence.
// Any segment that still fails after its retries fails the whole call and no
// partial audio is returned.
func (s *Synthesizer) Generate(ctx context.Context, segments []models.DialogueSegment, onProgress ProgressFunc) ([]byte, error) {
	total := len(segments)
	slog.Info("generating audio", "segments", total)

	var out bytes.Buffer
	for i, seg := range segments {
		if onProgress != nil {
			onProgress(i+1, total)
		}

		clip, err := s.segment(ctx, seg)
		if err != nil {
			return nil, fmt.Errorf("segment %d/%d (%s): %w", i+1, total, seg.Speaker, err)
		}
		out.Write(clip)

		if i < total-1 {
			out.Write(s.silence)
		}
	}

	slog.Info("audio generated", "segments", total, "bytes", out.Len())
	return out.Bytes(), nil
}

func (s *Synthesizer) segment(ctx context.Context, seg models.DialogueSegment) ([]byte, error) {
	voice := s.Voice(seg.Speaker)

	var clip []byte
	for _, part := range chunker.Split(seg.Text, s.opts.MaxInputChars) {
		audio, err := s.synthesize(ctx, part, voice)
		if err != nil {
			return nil, err
		}
		clip = append(clip, audio...)
	}
	return clip, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	policy := s.opts.Retry
	policy.OnAttempt = func(_ int, err error) { s.metrics.CallAttempt(metrics.ServiceTTS, err) }

	return retry.Do(ctx, policy, "audio.synthesize", func(ctx context.Context) ([]byte, error) {
		res, err := s.provider.Synthesize(ctx, tts.SynthesisRequest{
			Input:  text,
			Voice:  voice,
			Format: "mp3",
		})
		if err != nil {
			return nil, err
		}
		return res.Audio, nil
	})
}
