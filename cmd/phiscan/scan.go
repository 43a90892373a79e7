package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/phiscan/internal/app"
	"github.com/markdave123-py/phiscan/internal/core/router"
	"github.com/markdave123-py/phiscan/internal/models"
)

func newScanCommand() *cobra.Command {
	var startAfter string

	cmd := &cobra.Command{
		Use:   "scan <location>...",
		Short: "Scan objects or prefixes and print findings",
		Long: `Scan one or more locations. A location naming a scannable object is scanned
on its own; anything else is treated as a prefix and every object under it is
scanned. Findings are printed as "bucket<TAB> key<TAB> tag<TAB> entity-json".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := app.NewApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			sink, err := a.NewSink(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			var total models.BatchSummary
			var failed []error
			for _, loc := range args {
				bucket, path, err := router.ParseLocation(loc)
				if err != nil {
					return err
				}

				if isObject(path, cfg.ScanDocuments) {
					findings, err := a.Router.ScanObject(ctx, bucket, path)
					total.Listed++
					switch {
					case errors.Is(err, router.ErrSkipped):
						total.Skipped++
					case err != nil:
						failed = append(failed, fmt.Errorf("%s: %w", loc, err))
						total.Failed++
					default:
						total.Scanned++
					}
					total.Findings += len(findings)
					if len(findings) > 0 {
						if err := sink.Write(ctx, findings); err != nil {
							return err
						}
					}
					continue
				}

				summary, err := a.Router.ScanPrefix(ctx, bucket, path, startAfter, sink)
				total.Listed += summary.Listed
				total.Scanned += summary.Scanned
				total.Skipped += summary.Skipped
				total.Failed += summary.Failed
				total.Findings += summary.Findings
				if err != nil {
					_ = sink.Close(ctx)
					return fmt.Errorf("%s: %w", loc, err)
				}
			}

			if err := sink.Close(ctx); err != nil {
				return err
			}
			logger.Info("Scan finished", "listed", total.Listed, "scanned", total.Scanned,
				"skipped", total.Skipped, "failed", total.Failed, "findings", total.Findings)
			return errors.Join(failed...)
		},
	}

	addScanFlags(cmd)
	cmd.Flags().StringVar(&startAfter, "start-after", "", "List keys after this one (prefix scans only)")
	return cmd
}

// isObject reports whether path names a single object the router scans.
func isObject(path string, documents bool) bool {
	if path == "" || strings.HasSuffix(path, "/") {
		return false
	}
	return router.Classify(path, documents) != router.RouteSkip
}
