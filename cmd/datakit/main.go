// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the datakit CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/datakit/internal/dataset"
	"github.com/pdiddy/datakit/internal/ingest"
	"github.com/pdiddy/datakit/internal/project"
	"github.com/pdiddy/datakit/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the datakit CLI.
var rootCmd = &cobra.Command{
	Use:   "datakit",
	Short: "Manage research datasets inside a git repository",
	Long: `datakit tracks research data as named datasets inside a git repository.
Files come from local paths, other git repositories, or Zenodo records;
every dataset mutation is recorded as a commit, so dataset history is
git history.

Run "datakit init" once at the repository root, then work with the
"dataset" command group.`,
}

// openProject locates the enclosing project and loads its configuration.
func openProject(ctx context.Context) (*project.Project, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	p, err := project.Find(ctx, wd, project.DefaultConfig())
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(p.Root)
	if err != nil {
		return nil, err
	}
	p.Config = cfg
	return p, nil
}

// openService opens the project's dataset registry and wires the ingest
// service around it. The returned closer releases the index database.
func openService(ctx context.Context) (*ingest.Service, func(), error) {
	p, err := openProject(ctx)
	if err != nil {
		return nil, nil, err
	}
	index, err := dataset.OpenIndex(p.IndexPath())
	if err != nil {
		return nil, nil, err
	}
	registry := dataset.NewRegistry(p.MetadataDir(), index)
	return ingest.NewService(p, registry, os.Stdout), func() { index.Close() }, nil
}

// loadConfig reads datakit.yaml over the defaults. Environment variables
// prefixed with DATAKIT_ override file values, so a token can be passed
// as DATAKIT_REGISTRY_ACCESS_TOKEN without touching the tracked config.
func loadConfig(root string) (types.ProjectConfig, error) {
	cfg := project.DefaultConfig()

	v := viper.New()
	v.SetConfigFile(filepath.Join(root, project.ConfigFile))
	v.SetEnvPrefix("DATAKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("reading %s: %w", project.ConfigFile, err)
	}

	if s := v.GetString("storage.data_dir"); s != "" {
		cfg.Storage.DataDir = s
	}
	if s := v.GetString("registry.base_url"); s != "" {
		cfg.Registry.BaseURL = s
	}
	if s := v.GetString("registry.sandbox_url"); s != "" {
		cfg.Registry.SandboxURL = s
	}
	if s := v.GetString("registry.access_token"); s != "" {
		cfg.Registry.AccessToken = s
	}
	if s := v.GetString("registry.user_agent"); s != "" {
		cfg.Registry.UserAgent = s
	}
	if d := v.GetDuration("registry.timeout"); d > 0 {
		cfg.Registry.Timeout = d
	}
	if n := v.GetInt("registry.max_retries"); n > 0 {
		cfg.Registry.MaxRetries = n
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
