package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/datakit/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Turn a git repository into a datakit project",
	Long: `Init marks a repository as a datakit project: it writes datakit.yaml,
creates the data and metadata directories, adds ignore rules for derived
state, and commits the result. The directory must be the repository
root; a directory that is no repository yet becomes one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	// git reports the resolved repository root; match it.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	p, err := project.Init(context.Background(), abs)
	if err != nil {
		return err
	}
	fmt.Printf("Initialized datakit project in %s\n", p.Root)
	return nil
}
