// Package commands provides the CLI commands for quarry.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel  string
	logPretty bool
)

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "quarry - coding agent tool core",
	Long: `quarry is the execution core of a coding agent: a permission-gated
tool runner with tree-sitter code intelligence, cross-file renames,
and import dependency analysis.

Run 'quarry tools' to list the available tools, or 'quarry exec' to
run one directly.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "Human-readable log output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("quarry %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(refactorCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(debugCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
