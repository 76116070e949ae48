package tts

import (
	"context"
	"errors"
)

var ErrEmptyAudio = errors.New("speech service returned no audio")

// SynthesisRequest holds the parameters for text-to-speech generation.
type SynthesisRequest struct {
	Input  string `json:"input"`
	Voice  string `json:"voice"`
	Format string `json:"format,omitempty"` // defaults to mp3
}

type SynthesisResult struct {
	Audio []byte
}

// Provider is the interface for text-to-speech backends.
type Provider interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
	Name() string
}
