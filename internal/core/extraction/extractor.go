package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/insightflow/internal/config"
	"github.com/agenthands/insightflow/internal/core/common"
	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/agenthands/insightflow/internal/core/normalize"
	"github.com/agenthands/insightflow/internal/llm"
)

// Extractor runs the analysis prompt over a transcript.
type Extractor struct {
	LLM    llm.LLMClient
	Prompt string
}

func NewExtractor(llmClient llm.LLMClient, prompts config.PromptsConfig) *Extractor {
	prompt := prompts.Analysis
	if prompt == "" {
		prompt = config.DefaultAnalysisPrompt
	}
	return &Extractor{
		LLM:    llmClient,
		Prompt: prompt,
	}
}

// ExtractElements returns the raw element arrays the LLM finds in
// transcript. A blank transcript yields model.ErrMissingTranscript.
func (e *Extractor) ExtractElements(ctx context.Context, transcript string) (model.RawElements, error) {
	if strings.TrimSpace(transcript) == "" {
		return model.RawElements{}, model.ErrMissingTranscript
	}
	prompt := strings.ReplaceAll(e.Prompt, config.TranscriptPlaceholder, transcript)

	response, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return model.RawElements{}, fmt.Errorf("failed to generate elements: %w", err)
	}

	result, err := common.ParseJSON[map[string]any](response)
	if err != nil {
		return model.RawElements{}, fmt.Errorf("failed to extract elements: %w", err)
	}
	return normalize.Collect(result), nil
}
