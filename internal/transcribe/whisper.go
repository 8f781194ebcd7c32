package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/agenthands/insightflow/internal/core/model"
)

// STT turns audio into text.
type STT interface {
	Transcribe(ctx context.Context, audio model.Audio, language string) (string, error)
}

// WhisperSTT calls the OpenAI audio transcription endpoint.
type WhisperSTT struct {
	client *openai.Client
	model  string
}

func NewWhisper(apiKey, baseURL, modelName string) *WhisperSTT {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if modelName == "" {
		modelName = openai.Whisper1
	}
	return &WhisperSTT{client: openai.NewClientWithConfig(cfg), model: modelName}
}

func (w *WhisperSTT) Transcribe(ctx context.Context, audio model.Audio, language string) (string, error) {
	filename := audio.Filename
	if filename == "" {
		filename = "audio.webm"
	}
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio.Data),
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
