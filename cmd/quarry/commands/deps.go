package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarry-ai/quarry/internal/tool"
)

var (
	depsDir   string
	depsDepth int
)

var depsCmd = &cobra.Command{
	Use:   "deps <operation> <target>",
	Short: "Analyze import dependencies",
	Long: `Analyze import dependencies of a file or module.

Operations:
  imports     list what a file imports
  dependents  list the files that import a module
  graph       walk the import graph from a file

Examples:
  quarry deps imports src/app.py
  quarry deps dependents pkg.util
  quarry deps graph src/app.py --depth 3`,
	Args: cobra.ExactArgs(2),
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().StringVar(&depsDir, "directory", "", "Working directory")
	depsCmd.Flags().IntVar(&depsDepth, "depth", 1, "Graph traversal depth")
}

func runDeps(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "imports", "dependents", "graph":
	default:
		return fmt.Errorf("unknown operation: %s", args[0])
	}

	app, err := newApp(depsDir, false)
	if err != nil {
		return err
	}
	defer app.Close()

	return runRegistryTool(app, "dependency_analyzer", tool.DependencyInput{
		Operation: args[0],
		Target:    args[1],
		Depth:     depsDepth,
	})
}
