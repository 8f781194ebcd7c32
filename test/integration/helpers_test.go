//go:build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/agenthands/insightflow/internal/driver"
)

func init() {
	_ = godotenv.Load("../../.env")
}

func memgraph(t *testing.T) *driver.MemgraphDriver {
	t.Helper()
	uri := os.Getenv("MEMGRAPH_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}
	ctx := context.Background()
	d, err := driver.NewMemgraphDriver(ctx, uri, os.Getenv("MEMGRAPH_USER"), os.Getenv("MEMGRAPH_PASSWORD"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	require.NoError(t, d.BuildIndices(ctx))
	return d
}

// cannedExtractor returns a fixed analysis without calling an LLM.
type cannedExtractor struct {
	raw model.RawElements
}

func (c cannedExtractor) ExtractElements(ctx context.Context, transcript string) (model.RawElements, error) {
	return c.raw, nil
}

// noTranscriber rejects audio; these tests only exercise text sessions.
type noTranscriber struct{}

func (noTranscriber) Submit(ctx context.Context, audio model.Audio) (string, error) {
	return "", model.ErrNotFound
}

func (noTranscriber) Status(ctx context.Context, id string) (model.JobState, error) {
	return model.JobState{}, model.ErrNotFound
}

func (noTranscriber) Result(ctx context.Context, id string) (string, error) {
	return "", model.ErrNotFound
}
