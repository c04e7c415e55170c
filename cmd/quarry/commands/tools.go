package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var toolsDir string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the available tools",
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().StringVar(&toolsDir, "directory", "", "Working directory")
}

func runTools(cmd *cobra.Command, args []string) error {
	app, err := newApp(toolsDir, false)
	if err != nil {
		return err
	}
	defer app.Close()

	for _, t := range app.registry.List() {
		desc := t.Description()
		if i := strings.IndexByte(desc, '\n'); i >= 0 {
			desc = desc[:i]
		}
		fmt.Printf("  %-20s %s\n", t.Name(), desc)
	}
	return nil
}
