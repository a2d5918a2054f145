package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/datakit/internal/project"
	"github.com/pdiddy/datakit/pkg/types"
)

var unlinkCmd = &cobra.Command{
	Use:   "unlink <name> <pattern>",
	Short: "Remove files from a dataset",
	Long: `Unlink removes the files matching a glob pattern from the dataset:
their records leave the registry and the files leave the dataset
directory. The pattern matches the dataset-relative path or the bare
filename. A confirmation prompt shows the match count first; pass --yes
to skip it.`,
	Args: cobra.ExactArgs(2),
	RunE: runUnlink,
}

func init() {
	unlinkCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	unlinkCmd.Flags().BoolP("verbose", "v", false, "list the removed files")

	datasetCmd.AddCommand(unlinkCmd)
}

func runUnlink(cmd *cobra.Command, args []string) error {
	name, pattern := args[0], args[1]
	yes, _ := cmd.Flags().GetBool("yes")
	verbose, _ := cmd.Flags().GetBool("verbose")
	ctx := context.Background()

	svc, closer, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	// Match first so the prompt can state what is at stake; the removal
	// below re-matches inside the commit boundary.
	matched, err := svc.MatchFiles(name, pattern)
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		fmt.Println("No files match.")
		return nil
	}

	if !yes {
		prompt := fmt.Sprintf(
			"You are about to delete %d file%s from %s dataset.\n\nDo you wish to proceed?",
			len(matched), plural(len(matched)), name)
		if !confirm(prompt) {
			return errors.New("aborted")
		}
	}

	var removed []types.FileRecord
	message := project.CommitMessage("dataset", "unlink", name, pattern)
	err = svc.Project.Mutate(ctx, message, func() error {
		var err error
		removed, err = svc.Unlink(ctx, name, pattern)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Println("OK")
	if verbose {
		fmt.Printf("\nDeleted %d file%s.\n", len(removed), plural(len(removed)))
		for _, rec := range removed {
			fmt.Println(rec.Path)
		}
	}
	return nil
}

// confirm prints a yes/no prompt and reads the answer from stdin. EOF or
// anything but an explicit yes declines.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
