package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/phiscan/internal/app"
	"github.com/markdave123-py/phiscan/internal/core/batchjob"
)

func newInvokeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke <event.json>",
		Short: "Answer a batch invocation event locally",
		Long: `Read an S3 Batch Operations invocation event, scan each task's object the
way the batch endpoint does and print the invocation response.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var ev batchjob.Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				return fmt.Errorf("parse event: %w", err)
			}

			a, err := app.NewApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.Invocations.Handle(cmd.Context(), ev)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	addScanFlags(cmd)
	return cmd
}
