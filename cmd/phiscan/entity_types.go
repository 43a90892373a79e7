package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/markdave123-py/phiscan/internal/core/detector"
)

func newEntityTypesCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "entity-types",
		Short: "List the entity types the detectors report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			types := detector.EntityTypes()
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(types)
			case "yaml":
				enc := yaml.NewEncoder(out)
				defer enc.Close()
				return enc.Encode(types)
			case "text":
				for _, t := range types {
					fmt.Fprintf(out, "%s\t%s\n", t.Name, t.Description)
				}
				return nil
			}
			return fmt.Errorf("unknown format %q", format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	return cmd
}
