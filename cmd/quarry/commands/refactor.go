package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarry-ai/quarry/internal/tool"
)

var (
	refactorDir   string
	refactorScope string
	refactorApply bool
)

var refactorCmd = &cobra.Command{
	Use:   "refactor <old-name> <new-name>",
	Short: "Rename a symbol across the project",
	Long: `Rename a symbol across the project using tree-sitter reference
matching. Without --apply the rename is previewed as a unified diff.

Examples:
  quarry refactor old_helper new_helper
  quarry refactor --scope directory:src old_helper new_helper
  quarry refactor --apply old_helper new_helper`,
	Args: cobra.ExactArgs(2),
	RunE: runRefactor,
}

func init() {
	refactorCmd.Flags().StringVar(&refactorDir, "directory", "", "Working directory")
	refactorCmd.Flags().StringVar(&refactorScope, "scope", "project", "Scope (project, file:<path>, directory:<path>)")
	refactorCmd.Flags().BoolVar(&refactorApply, "apply", false, "Apply the rename instead of previewing it")
}

func runRefactor(cmd *cobra.Command, args []string) error {
	app, err := newApp(refactorDir, true)
	if err != nil {
		return err
	}
	defer app.Close()

	op := "preview"
	if refactorApply {
		op = "rename"
	}
	return runRegistryTool(app, "refactor", tool.RefactorInput{
		Operation: op,
		OldName:   args[0],
		NewName:   args[1],
		Scope:     refactorScope,
	})
}

// runRegistryTool executes a registered tool directly, outside the
// permission gate. Used by subcommands that are themselves the
// explicit user approval.
func runRegistryTool(app *app, name string, input any) error {
	t, ok := app.registry.Get(name)
	if !ok {
		return fmt.Errorf("tool not registered: %s", name)
	}

	data, err := json.Marshal(input)
	if err != nil {
		return err
	}

	res, err := t.Execute(cmdContext(), json.RawMessage(data), &tool.Context{
		SessionID: "cli",
		CallID:    name,
		Agent:     "cli",
		WorkDir:   app.workDir,
		AbortCh:   make(chan struct{}),
	})
	if err != nil {
		return err
	}

	if res.Title != "" {
		fmt.Printf("%s\n\n", res.Title)
	}
	fmt.Println(res.Output)
	return nil
}
