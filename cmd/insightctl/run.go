package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/agenthands/insightflow/internal/core/pipeline"
)

func newRunCmd(deps Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyze text or an audio file end to end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, deps)
		},
	}
	cmd.Flags().String("text", "", "Text to analyze.")
	cmd.Flags().String("audio", "", "Path to an audio file to transcribe and analyze.")
	cmd.Flags().String("title", "", "Session title.")
	return cmd
}

func runPipeline(cmd *cobra.Command, deps Dependencies) error {
	text, _ := cmd.Flags().GetString("text")
	audioPath, _ := cmd.Flags().GetString("audio")
	title, _ := cmd.Flags().GetString("title")

	in := pipeline.Input{Title: title, Text: text}
	if audioPath != "" {
		data, err := os.ReadFile(audioPath)
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
		in.File = &model.Audio{Filename: filepath.Base(audioPath), Data: data}
	}

	cfg, svc, closeFn, err := setup(cmd, deps)
	if err != nil {
		return err
	}
	defer closeFn()

	o := pipeline.New(svc, pipeline.Config{
		PollInterval:    cfg.Polling.Interval(),
		PollMaxAttempts: cfg.Polling.MaxAttempts,
		Titles:          pipeline.Titles{Audio: cfg.Pipeline.AudioTitle, Text: cfg.Pipeline.TextTitle},
		Language:        cfg.Pipeline.Language,
	})
	stderr := cmd.ErrOrStderr()
	res := o.Run(cmd.Context(), in, func(ev pipeline.Event) {
		if ev.Progress != "" {
			fmt.Fprintln(stderr, ev.Progress)
		}
	})
	if !res.OK() {
		return errors.New(res.Err.UserMessage())
	}

	fmt.Fprintf(stderr, "session %s: %d elements\n", res.SessionID, res.Elements.Total())
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"session_id": res.SessionID,
		"elements":   res.Elements,
	})
}
