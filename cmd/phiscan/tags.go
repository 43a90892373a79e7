package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	objectclient "github.com/markdave123-py/phiscan/internal/core/object-client"
	"github.com/markdave123-py/phiscan/internal/core/rangereader"
	"github.com/markdave123-py/phiscan/internal/core/router"
	"github.com/markdave123-py/phiscan/internal/core/tiffmeta"
)

func newTagsCommand() *cobra.Command {
	var description bool

	cmd := &cobra.Command{
		Use:   "tags <location|file>",
		Short: "Print the first-page tags of a TIFF or OME-TIFF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			var r io.ReadSeeker
			if f, err := os.Open(args[0]); err == nil {
				defer f.Close()
				r = f
			} else {
				bucket, key, err := router.ParseLocation(args[0])
				if err != nil {
					return err
				}
				client, err := objectclient.NewS3Client(cmd.Context(), cfg, nil, logger)
				if err != nil {
					return err
				}
				r = rangereader.New(cmd.Context(), client, bucket, key, -1)
			}

			mode := tiffmeta.ModeAll
			if description {
				mode = tiffmeta.ModeDescription
			}
			parser := &tiffmeta.Parser{MaxValueSize: cfg.MaxTagValueBytes, Logger: logger}
			records, err := tiffmeta.NewExtractor(parser, mode).Extract(r)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, rec := range records {
				if description {
					fmt.Fprintln(out, rec.Value)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", rec.Name, rec.Value)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&description, "description", false, "Print only the ImageDescription value")
	return cmd
}
