package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pdiddy/datakit/internal/ingest"
	"github.com/pdiddy/datakit/internal/project"
)

var addCmd = &cobra.Command{
	Use:   "add <name> <sources...>",
	Short: "Add data to a dataset",
	Long: `Add links files into a dataset. A source may be a local file or
directory, a git repository URL or local clone, or a Zenodo DOI or
record URL. Directories are walked; git sources contribute their tracked
files, optionally restricted with --target; registry records contribute
their published files.

A missing dataset is created on the fly. The batch stops at the first
failure: files linked before it stay on disk uncommitted, the rest is
never attempted.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringArrayP("target", "t", nil, "path inside a git source, or explicit destination path (repeatable)")
	addCmd.Flags().String("relative-to", "", "strip this leading directory from source paths")
	addCmd.Flags().String("rev", "", "git revision (branch, tag, or commit) to add from")
	addCmd.Flags().Bool("no-copy", false, "store content once and hard-link it into the dataset")
	addCmd.Flags().Bool("force", false, "replace files already linked at the same path")

	datasetCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	name, sources := args[0], args[1:]
	targets, _ := cmd.Flags().GetStringArray("target")
	relativeTo, _ := cmd.Flags().GetString("relative-to")
	rev, _ := cmd.Flags().GetString("rev")
	noCopy, _ := cmd.Flags().GetBool("no-copy")
	force, _ := cmd.Flags().GetBool("force")
	ctx := context.Background()

	svc, closer, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	opts := ingest.AddOptions{
		Targets:      targets,
		RelativeRoot: relativeTo,
		Rev:          rev,
		NoCopy:       noCopy,
		Force:        force,
	}

	message := project.CommitMessage(append([]string{"dataset", "add", name}, sources...)...)
	return svc.Project.Mutate(ctx, message, func() error {
		_, err := svc.Add(ctx, name, sources, opts)
		return err
	})
}
