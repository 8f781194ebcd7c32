package llm

import (
	"context"
)

// LLMClient produces a completion for a single prompt.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
