package tts

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for the OpenAI speech backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // default: the public OpenAI endpoint
	Model   string // default: "gpt-4o-mini-tts"
}

// OpenAITTS synthesizes speech using the OpenAI audio/speech endpoint.
type OpenAITTS struct {
	client *openai.Client
	model  string
}

func NewOpenAITTS(cfg OpenAIConfig) *OpenAITTS {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini-tts"
	}
	return &OpenAITTS{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

func (o *OpenAITTS) Name() string { return "openai-tts" }

// Synthesize converts text to audio and returns the encoded bytes.
func (o *OpenAITTS) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	format := req.Format
	if format == "" {
		format = string(openai.SpeechResponseFormatMp3)
	}

	sReq := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          req.Input,
		Voice:          openai.SpeechVoice(req.Voice),
		ResponseFormat: openai.SpeechResponseFormat(format),
	}

	resp, err := o.client.CreateSpeech(ctx, sReq)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	return &SynthesisResult{Audio: audio}, nil
}
