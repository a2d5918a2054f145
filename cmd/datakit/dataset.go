// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/datakit/internal/dataset"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Create and manage datasets",
	Long: `Dataset groups the dataset operations: create, add, ls-files, unlink,
delete, rename, import, and export. Invoked without a subcommand it
lists the datasets of the current project.`,
	RunE: runDatasetList,
}

func init() {
	datasetCmd.Flags().String("format", "tabular", "output format: tabular or json")

	rootCmd.AddCommand(datasetCmd)
}

func runDatasetList(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	svc, closer, err := openService(context.Background())
	if err != nil {
		return err
	}
	defer closer()

	datasets, err := svc.Datasets.List()
	if err != nil {
		return err
	}

	switch format {
	case "tabular", "":
		dataset.FormatDatasets(datasets, os.Stdout)
		return nil
	case "json":
		return dataset.FormatDatasetsJSON(datasets, os.Stdout)
	default:
		return fmt.Errorf("unsupported format %q: use tabular or json", format)
	}
}

// plural returns the "s" suffix for counts other than one.
func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
