package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/quarry-ai/quarry/internal/tool"
	"github.com/quarry-ai/quarry/internal/translog"
)

var (
	execDir     string
	execYes     bool
	execSession string
	execLog     bool
)

var execCmd = &cobra.Command{
	Use:   "exec <tool> [json-input]",
	Short: "Run a single tool call",
	Long: `Run a single tool call through the permission-gated executor.

Examples:
  quarry exec list_dir
  quarry exec read_file '{"path":"main.go"}'
  quarry exec --yes bash '{"command":"go vet ./..."}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExec,
}

func init() {
	execCmd.Flags().StringVar(&execDir, "directory", "", "Working directory")
	execCmd.Flags().BoolVarP(&execYes, "yes", "y", false, "Approve calls that would normally ask")
	execCmd.Flags().StringVarP(&execSession, "session", "s", "", "Session ID")
	execCmd.Flags().BoolVar(&execLog, "log", false, "Write an interaction log for this call")
}

func runExec(cmd *cobra.Command, args []string) error {
	app, err := newApp(execDir, execYes)
	if err != nil {
		return err
	}
	defer app.Close()

	input := json.RawMessage(`{}`)
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("input is not valid JSON: %s", args[1])
		}
		input = json.RawMessage(args[1])
	}

	sessionID := execSession
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	abort := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(abort)
	}()

	rec := tool.NewRecord(sessionID, args[0], input)
	res, err := app.executor.Run(ctx, rec, &tool.Context{
		SessionID: sessionID,
		CallID:    rec.ID,
		Agent:     "cli",
		WorkDir:   app.workDir,
		AbortCh:   abort,
	})

	if execLog {
		saveExecLog(app, sessionID, args[0], rec.ID, string(input), res, err)
	}
	if err != nil {
		return err
	}

	if res.Title != "" {
		fmt.Printf("%s\n\n", res.Title)
	}
	fmt.Println(res.Output)
	return nil
}

func saveExecLog(app *app, sessionID, toolName, callID, input string, res *tool.Result, execErr error) {
	logger := translog.NewLogger(translog.Options{
		Enabled: true,
		SaveDir: app.logsDir(),
		Prefix:  app.cfg.Logs.Prefix,
	}, sessionID, app.workDir, execYes)

	content := ""
	if res != nil {
		content = res.Output
	} else if execErr != nil {
		content = execErr.Error()
	}
	logger.Save([]translog.Message{
		{Role: "user", Content: input},
		{Role: "tool", ToolName: toolName, ToolCallID: callID, Content: content},
	}, nil, map[string]string{"model": app.cfg.Model})
}
