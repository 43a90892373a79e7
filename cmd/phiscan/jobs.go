package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/phiscan/internal/core/awsconf"
	"github.com/markdave123-py/phiscan/internal/core/batchjob"
	objectclient "github.com/markdave123-py/phiscan/internal/core/object-client"
)

func newJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage S3 Batch Operations jobs",
	}

	var dryRun bool
	create := &cobra.Command{
		Use:   "create <jobs.yaml|jobs.json>",
		Short: "Create batch jobs from a job file",
		Long: `Create one S3 Batch Operations job per entry in the file. The account id,
request token and manifest ETag are filled in when left empty. With --dry-run
the completed requests are printed instead of submitted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			specs, err := batchjob.LoadJobSpecs(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			awsCfg, err := awsconf.LoadAWS(ctx, cfg)
			if err != nil {
				return err
			}
			objects, err := objectclient.NewS3Client(ctx, cfg, nil, logger)
			if err != nil {
				return err
			}
			creator := batchjob.NewCreator(awsCfg, objects, logger)

			out := cmd.OutOrStdout()
			for _, spec := range specs {
				if dryRun {
					prepared, err := creator.Prepare(ctx, spec)
					if err != nil {
						return err
					}
					b, err := json.MarshalIndent(prepared, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(b))
					continue
				}

				id, err := creator.Create(ctx, spec)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "jobID: %s\n", id)
			}
			return nil
		},
	}
	create.Flags().BoolVar(&dryRun, "dry-run", false, "Print the completed requests without creating jobs")

	cmd.AddCommand(create)
	return cmd
}
