package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agenthands/insightflow/internal/config"
	"github.com/agenthands/insightflow/internal/core/extraction"
	"github.com/agenthands/insightflow/internal/core/persist"
	"github.com/agenthands/insightflow/internal/core/pipeline"
	"github.com/agenthands/insightflow/internal/driver"
	"github.com/agenthands/insightflow/internal/llm"
	"github.com/agenthands/insightflow/internal/transcribe"
	"github.com/agenthands/insightflow/internal/upstream"
)

// Service is everything the pipeline and the persistence adapter need.
type Service interface {
	pipeline.Backend
	persist.Writer
}

// New builds the backend selected by cfg.Backend.Mode. The returned close
// function releases connections and stops background jobs.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Service, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(cfg.Backend.Mode) {
	case config.BackendRemote:
		c := upstream.New(cfg.Upstream.BaseURL,
			upstream.WithToken(cfg.Upstream.Token),
			upstream.WithTimeout(cfg.Upstream.Timeout()),
			upstream.WithLogger(logger),
		)
		logger.Info("using remote backend", "base_url", cfg.Upstream.BaseURL)
		return c, func() {}, nil
	case config.BackendEmbedded:
		return newEmbedded(ctx, cfg, logger)
	}
	return nil, nil, fmt.Errorf("unknown backend mode %q", cfg.Backend.Mode)
}

func newEmbedded(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Service, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, logger)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() { _ = d.Close(context.Background()) })
	if err := d.BuildIndices(ctx); err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("build indices: %w", err)
	}

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("llm client: %w", err)
	}
	if g, ok := llmClient.(*llm.GeminiClient); ok {
		closers = append(closers, func() { _ = g.Close() })
	}

	var store transcribe.Store
	switch cfg.Transcription.Store {
	case config.StoreRedis:
		rs, err := transcribe.NewRedisStore(ctx, cfg.Redis.URL, cfg.Transcription.KeyPrefix, cfg.Transcription.JobTTL())
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = rs.Close() })
		store = rs
	default:
		store = transcribe.NewMemoryStore()
	}

	stt := transcribe.NewWhisper(cfg.Transcription.APIKey, cfg.Transcription.BaseURL, cfg.Transcription.Model)
	svc := transcribe.NewService(stt, store, cfg.Pipeline.Language, logger)
	closers = append(closers, svc.Close)

	e := NewEmbedded(d, svc, extraction.NewExtractor(llmClient, cfg.Prompts), logger)
	e.Language = cfg.Pipeline.Language
	logger.Info("using embedded backend",
		"memgraph", cfg.Memgraph.URI,
		"llm", cfg.LLM.Provider,
		"transcription_store", cfg.Transcription.Store,
	)
	return e, closeAll, nil
}
