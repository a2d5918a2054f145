package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/datakit/internal/project"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty dataset",
	Long: `Create registers a new dataset and its directory under the data root.
The creation is committed; the dataset's author is the repository's git
identity.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().String("description", "", "dataset description")

	datasetCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	description, _ := cmd.Flags().GetString("description")
	ctx := context.Background()

	svc, closer, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	message := project.CommitMessage("dataset", "create", name)
	err = svc.Project.Mutate(ctx, message, func() error {
		fmt.Print("Creating a dataset ... ")
		_, err := svc.Create(ctx, name, description)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Println("OK")
	return nil
}
