package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of datakit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("datakit %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
