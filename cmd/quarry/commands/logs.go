package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarry-ai/quarry/internal/translog"
)

var logsDir string

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect interaction logs",
}

var logsLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent interaction log",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(logsDir, false)
		if err != nil {
			return err
		}
		defer app.Close()

		path := translog.FindLatest(app.logsDir(), app.cfg.Logs.Prefix)
		if path == "" {
			return fmt.Errorf("no interaction logs under %s", app.logsDir())
		}
		return printLog(path)
	},
}

var logsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the log for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(logsDir, false)
		if err != nil {
			return err
		}
		defer app.Close()

		path := translog.FindByID(app.logsDir(), app.cfg.Logs.Prefix, args[0])
		if path == "" {
			return fmt.Errorf("no log found for session %s", args[0])
		}
		return printLog(path)
	},
}

func init() {
	logsCmd.PersistentFlags().StringVar(&logsDir, "directory", "", "Working directory")
	logsCmd.AddCommand(logsLatestCmd)
	logsCmd.AddCommand(logsShowCmd)
}

func printLog(path string) error {
	messages, meta, err := translog.Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", path)
	fmt.Printf("session %s, started %s", meta.SessionID, meta.StartTime)
	if meta.GitBranch != "" {
		fmt.Printf(", branch %s", meta.GitBranch)
	}
	fmt.Printf("\n\n")

	for _, msg := range messages {
		role := msg.Role
		if msg.ToolName != "" {
			role = fmt.Sprintf("%s(%s)", msg.Role, msg.ToolName)
		}
		fmt.Printf("[%s] %s\n", role, msg.Content)
	}
	return nil
}
