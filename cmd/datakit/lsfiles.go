package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/datakit/internal/dataset"
)

var lsFilesCmd = &cobra.Command{
	Use:   "ls-files [names...]",
	Short: "List the files linked into datasets",
	Long: `Ls-files lists the files of the named datasets, or of every dataset
when no name is given. Results are sorted by added time and can be
narrowed with include/exclude globs and an author filter.`,
	RunE: runLsFiles,
}

func init() {
	lsFilesCmd.Flags().StringArray("include", nil, "keep only files matching this glob (repeatable)")
	lsFilesCmd.Flags().StringArray("exclude", nil, "drop files matching this glob (repeatable)")
	lsFilesCmd.Flags().String("authors", "", "keep only files credited to these authors (comma-separated)")
	lsFilesCmd.Flags().String("format", "tabular", "output format: tabular or json")

	datasetCmd.AddCommand(lsFilesCmd)
}

func runLsFiles(cmd *cobra.Command, args []string) error {
	include, _ := cmd.Flags().GetStringArray("include")
	exclude, _ := cmd.Flags().GetStringArray("exclude")
	authorsCSV, _ := cmd.Flags().GetString("authors")
	format, _ := cmd.Flags().GetString("format")
	ctx := context.Background()

	svc, closer, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	for _, name := range args {
		if !svc.Datasets.Exists(name) {
			return fmt.Errorf("%w: %s", dataset.ErrNotFound, name)
		}
	}

	// The index is derived state and may be empty after a fresh clone.
	if err := svc.Datasets.Reindex(ctx); err != nil {
		return err
	}

	q := dataset.FileQuery{Datasets: args, Include: include, Exclude: exclude}
	for _, a := range strings.Split(authorsCSV, ",") {
		if a = strings.TrimSpace(a); a != "" {
			q.Authors = append(q.Authors, a)
		}
	}

	files, err := svc.Datasets.Files(ctx, q)
	if err != nil {
		return err
	}

	switch format {
	case "tabular", "":
		dataset.FormatFiles(files, os.Stdout)
		return nil
	case "json":
		return dataset.FormatFilesJSON(files, os.Stdout)
	default:
		return fmt.Errorf("unsupported format %q: use tabular or json", format)
	}
}
