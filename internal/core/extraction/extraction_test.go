package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/agenthands/insightflow/internal/config"
	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExtractElements ensures the LLM response is mapped onto raw arrays,
// including alternate collection names.
func TestExtractElements(t *testing.T) {
	mockJSON := "```json\n" + `{
		"emotions": [{"emotion": "Joy", "intensity": 4}],
		"beliefs": [{"name": "I am capable", "impact": "high"}],
		"actionItems": [{"commitment": "Walk daily"}],
		"challenges": [],
		"insights": [{"insight": "Rest helps"}]
	}` + "\n```"

	mockLLM := &MockLLMClient{Response: mockJSON}
	extractor := NewExtractor(mockLLM, config.PromptsConfig{Analysis: "Analyze: {{transcript}}"})

	raw, err := extractor.ExtractElements(context.Background(), "I walked and felt great.")
	require.NoError(t, err)

	assert.Len(t, raw.Emotions, 1)
	assert.Len(t, raw.Beliefs, 1)
	assert.Len(t, raw.ActionItems, 1)
	assert.Empty(t, raw.Challenges)
	assert.Len(t, raw.Insights, 1)

	require.Len(t, mockLLM.Prompts, 1)
	assert.Equal(t, "Analyze: I walked and felt great.", mockLLM.Prompts[0])
}

func TestExtractElements_DefaultPrompt(t *testing.T) {
	mockLLM := &MockLLMClient{Response: `{"emotions": []}`}
	extractor := NewExtractor(mockLLM, config.PromptsConfig{})

	_, err := extractor.ExtractElements(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Contains(t, mockLLM.Prompts[0], "hello world")
	assert.NotContains(t, mockLLM.Prompts[0], config.TranscriptPlaceholder)
}

func TestExtractElements_MissingTranscript(t *testing.T) {
	mockLLM := &MockLLMClient{}
	extractor := NewExtractor(mockLLM, config.PromptsConfig{})

	_, err := extractor.ExtractElements(context.Background(), "   ")
	assert.ErrorIs(t, err, model.ErrMissingTranscript)
	assert.Empty(t, mockLLM.Prompts)
}

func TestExtractElements_Errors(t *testing.T) {
	extractor := NewExtractor(&MockLLMClient{Err: errors.New("rate limited")}, config.PromptsConfig{})
	_, err := extractor.ExtractElements(context.Background(), "text")
	assert.ErrorContains(t, err, "rate limited")

	extractor = NewExtractor(&MockLLMClient{Response: "I could not find anything."}, config.PromptsConfig{})
	_, err = extractor.ExtractElements(context.Background(), "text")
	assert.ErrorContains(t, err, "failed to extract elements")
}
