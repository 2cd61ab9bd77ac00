// Package commands implements the logiflow CLI: serving the generated
// API, applying the schema, introspecting routes, and scaffolding
// configuration.
package commands

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/logiflow/logiflow/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logiflow",
		Short: "Logiflow logistics API server and tooling",
		Long: color.CyanString(`Logiflow - Generated Logistics API

Logiflow serves REST and GraphQL APIs synthesized from entity
descriptors at startup. Adding an entity to the catalog is all it takes
to get its full CRUD surface, capability checks, and schema.

Commands:
  serve    Start the API server
  migrate  Create or update the database schema
  routes   Show every generated route
  init     Scaffold a logiflow.yml configuration`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewRoutesCommand())
	rootCmd.AddCommand(NewInitCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(cmd.OutOrStdout(), "Logiflow version: ")
			valueColor.Fprintln(cmd.OutOrStdout(), Version)

			titleColor.Fprint(cmd.OutOrStdout(), "Git commit: ")
			valueColor.Fprintln(cmd.OutOrStdout(), GitCommit)

			titleColor.Fprint(cmd.OutOrStdout(), "Build date: ")
			valueColor.Fprintln(cmd.OutOrStdout(), BuildDate)

			titleColor.Fprint(cmd.OutOrStdout(), "Go version: ")
			valueColor.Fprintln(cmd.OutOrStdout(), goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(rootCmd.ErrOrStderr(), ui.FormatStartupError(err, false))
		return err
	}
	return nil
}
