package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rikitraki/trackapi/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "rikitraki",
	Short:         "GPS track sharing API.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var ensureIndexCmd = &cobra.Command{
	Use:   "ensure-index",
	Short: "Create the track search index if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnsureIndex(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, ensureIndexCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
