package main

import (
	"github.com/spf13/cobra"

	"github.com/markdave123-py/phiscan/internal/app"
)

func newServeCommand() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return app.Serve(cmd.Context(), cfg, logger, workers)
		},
	}

	addScanFlags(cmd)
	cmd.Flags().String("port", "8080", "HTTP listen port")
	cmd.Flags().IntVar(&workers, "workers", 2, "Background scan job workers")
	return cmd
}
