package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/phiscan/internal/core/batchjob"
	objectclient "github.com/markdave123-py/phiscan/internal/core/object-client"
	"github.com/markdave123-py/phiscan/internal/core/router"
)

func newManifestCommand() *cobra.Command {
	var (
		prefix string
		upload string
	)

	cmd := &cobra.Command{
		Use:   "manifest <bucket>",
		Short: "Write a bucket,key CSV manifest for batch jobs",
		Long: `List every object under --prefix and write one "bucket,key" row per object,
the manifest format S3 Batch Operations expects. With --upload the manifest is
stored at the given location instead of printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := objectclient.NewS3Client(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}

			if upload == "" {
				rows, err := batchjob.WriteManifest(cmd.Context(), client, args[0], prefix, cmd.OutOrStdout())
				logger.Info("Manifest written", "rows", rows)
				return err
			}

			destBucket, destKey, err := router.ParseLocation(upload)
			if err != nil {
				return err
			}
			if destKey == "" {
				return fmt.Errorf("upload location %q has no key", upload)
			}
			url, rows, err := batchjob.UploadManifest(cmd.Context(), client, args[0], prefix, destBucket, destKey)
			if err != nil {
				return err
			}
			logger.Info("Manifest uploaded", "url", url, "rows", rows)
			fmt.Fprintf(cmd.OutOrStdout(), "arn:aws:s3:::%s/%s\n", destBucket, destKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "/", "Only list keys under this prefix")
	cmd.Flags().StringVar(&upload, "upload", "", "Store the manifest at this location, e.g. s3://ops/manifests/raw.csv")
	return cmd
}
