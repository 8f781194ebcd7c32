package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agenthands/insightflow/internal/backend"
	"github.com/agenthands/insightflow/internal/config"
)

// Dependencies lets tests swap the backend for a fake.
type Dependencies struct {
	OpenBackend func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backend.Service, func(), error)
}

func defaultDependencies() Dependencies {
	return Dependencies{OpenBackend: backend.New}
}

func newRootCmd(deps Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "insightctl",
		Short:         "Run session analyses and inspect their elements",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().String("config", "", "Config file path (defaults to $CONFIG_PATH or config/config.toml).")
	cmd.PersistentFlags().String("log-level", "", "Logging level: debug|info|warn|error (overrides config).")
	cmd.PersistentFlags().String("backend", "", "Backend mode: remote|embedded (overrides config).")

	cmd.AddCommand(newRunCmd(deps))
	cmd.AddCommand(newElementsCmd(deps))
	return cmd
}

// setup loads the configuration and opens the backend for one command.
func setup(cmd *cobra.Command, deps Dependencies) (*config.Config, backend.Service, func(), error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.toml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	if mode, _ := cmd.Flags().GetString("backend"); mode != "" {
		cfg.Backend.Mode = mode
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Server.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	logger := config.NewLogger(cmd.ErrOrStderr(), cfg.Server.LogLevel)
	svc, closeFn, err := deps.OpenBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, svc, closeFn, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
