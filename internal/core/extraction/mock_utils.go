package extraction

import (
	"context"
)

type MockLLMClient struct {
	Response string
	Err      error
	// Prompts records every prompt received.
	Prompts []string
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
