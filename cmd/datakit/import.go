package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/datakit/internal/ingest"
	"github.com/pdiddy/datakit/internal/project"
)

var importCmd = &cobra.Command{
	Use:   "import <doi-or-url>",
	Short: "Import a dataset from the Zenodo registry",
	Long: `Import creates a new dataset from a published registry record: the
record's metadata becomes the dataset's, and every file is downloaded
into the dataset directory. The dataset is named after the record title
unless --name overrides it.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("name", "", "dataset name (default: derived from the record title)")
	importCmd.Flags().Bool("sandbox", false, "use the registry's sandbox deployment")

	datasetCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	identifier := args[0]
	name, _ := cmd.Flags().GetString("name")
	sandbox, _ := cmd.Flags().GetBool("sandbox")
	ctx := context.Background()

	svc, closer, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	var result ingest.AddResult
	message := project.CommitMessage("dataset", "import", identifier)
	err = svc.Project.Mutate(ctx, message, func() error {
		var err error
		result, err = svc.Import(ctx, identifier, ingest.ImportOptions{Name: name, Sandbox: sandbox})
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("Imported dataset %s (%d file%s).\n",
		result.Dataset, len(result.Added), plural(len(result.Added)))
	return nil
}
