package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pdiddy/datakit/internal/ingest"
	"github.com/pdiddy/datakit/internal/project"
	"github.com/pdiddy/datakit/internal/secrets"
)

var exportCmd = &cobra.Command{
	Use:   "export <name> <provider>",
	Short: "Export a dataset to the Zenodo registry",
	Long: `Export uploads a dataset's files and metadata to the registry as a new
deposition. Without --publish the deposition stays a draft that can be
reviewed in the registry UI; --publish finalizes it and mints the
record. The work tree must be clean, so the exported bytes are the
committed bytes.

The access token is taken from the registry configuration, then from
.secrets/zenodo-access-token, then from the ZENODO_ACCESS_TOKEN
environment variable, and prompted for as a last resort.`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().Bool("publish", false, "publish the deposition instead of leaving a draft")
	exportCmd.Flags().Bool("sandbox", false, "use the registry's sandbox deployment")

	datasetCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	name, providerName := args[0], args[1]
	if providerName != "zenodo" {
		return fmt.Errorf("unknown provider %q: only zenodo is supported", providerName)
	}
	publish, _ := cmd.Flags().GetBool("publish")
	sandbox, _ := cmd.Flags().GetBool("sandbox")
	ctx := context.Background()

	svc, closer, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	clean, err := svc.Project.Repo.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return project.ErrDirtyWorkTree
	}

	token, err := registryToken(svc.Project)
	if err != nil {
		return err
	}
	svc.Project.Config.Registry.AccessToken = token

	location, err := svc.Export(ctx, name, ingest.ExportOptions{Publish: publish, Sandbox: sandbox})
	if err != nil {
		return err
	}

	fmt.Printf("Exported to: %s\n", location)
	fmt.Println("OK")
	return nil
}

// registryToken resolves the deposit token: configuration first, then the
// secrets directory and environment, then an interactive prompt.
func registryToken(p *project.Project) (string, error) {
	if p.Config.Registry.AccessToken != "" {
		return p.Config.Registry.AccessToken, nil
	}

	loaded, err := secrets.Load(p.SecretsDir())
	if err != nil {
		return "", err
	}
	if token := secrets.Get(loaded, secrets.ZenodoAccessToken, secrets.ZenodoTokenEnv); token != "" {
		return token, nil
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "Zenodo access token: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		if token := strings.TrimSpace(string(raw)); token != "" {
			return token, nil
		}
	}

	return "", errors.New("no registry access token: create .secrets/zenodo-access-token or set ZENODO_ACCESS_TOKEN")
}
