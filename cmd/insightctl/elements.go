package main

import (
	"github.com/spf13/cobra"

	"github.com/agenthands/insightflow/internal/core/editing"
)

func newElementsCmd(deps Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "elements <session-id>",
		Short: "Print the normalized, deduplicated elements of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, closeFn, err := setup(cmd, deps)
			if err != nil {
				return err
			}
			defer closeFn()

			ec, err := editing.Open(cmd.Context(), svc, args[0], nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ec.Working())
		},
	}
}
