package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/datakit/internal/project"
)

var renameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a dataset",
	Long: `Rename changes a dataset's name and moves its directory under the data
root. The identifier stays the same; file records follow the dataset.`,
	Args: cobra.ExactArgs(2),
	RunE: runRename,
}

func init() {
	datasetCmd.AddCommand(renameCmd)
}

func runRename(cmd *cobra.Command, args []string) error {
	oldName, newName := args[0], args[1]
	ctx := context.Background()

	svc, closer, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	message := project.CommitMessage("dataset", "rename", oldName, newName)
	err = svc.Project.Mutate(ctx, message, func() error {
		_, err := svc.Rename(ctx, oldName, newName)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Println("OK")
	return nil
}
