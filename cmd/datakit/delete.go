package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/datakit/internal/project"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a dataset",
	Long: `Delete removes a dataset: its metadata, its file records, and its
directory under the data root. A dataset that still has linked files is
refused unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().Bool("force", false, "delete the dataset together with its files")
	deleteCmd.Flags().BoolP("verbose", "v", false, "report how many files were deleted")

	datasetCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	force, _ := cmd.Flags().GetBool("force")
	verbose, _ := cmd.Flags().GetBool("verbose")
	ctx := context.Background()

	svc, closer, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	removed := 0
	message := project.CommitMessage("dataset", "delete", name)
	err = svc.Project.Mutate(ctx, message, func() error {
		var err error
		removed, err = svc.Delete(ctx, name, force)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Println("OK")
	if verbose {
		if removed > 0 {
			fmt.Printf("\nDeleted %d file%s.\n", removed, plural(removed))
		} else {
			fmt.Println("No files to delete.")
		}
	}
	return nil
}
