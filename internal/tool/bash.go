package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

const (
	DefaultBashTimeout = 30 * time.Second
	MaxBashTimeout     = 10 * time.Minute
	MaxOutputBytes     = 16000
)

const bashDescription = `Executes a shell command in the working directory.

Usage:
- Command is required
- Optional timeout in milliseconds (max 600000)
- Provide a brief description of what the command does
- Output is captured from stdout and stderr
- Commands run in their own process group for proper cleanup`

// BashTool executes shell commands with a bounded runtime and bounded
// output. Authorization happens before the tool runs; by the time
// Execute is called the command has already been approved.
type BashTool struct {
	workDir string
	shell   string

	defaultTimeout time.Duration
	maxTimeout     time.Duration
	maxOutput      int
}

// BashInput is the input for the bash tool.
type BashInput struct {
	Command     string `json:"command"`
	Timeout     int    `json:"timeout,omitempty"` // milliseconds
	Description string `json:"description,omitempty"`
}

// BashOptions tune the bash tool's limits. Zero values fall back to
// the package defaults.
type BashOptions struct {
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
	MaxOutputBytes int
}

// NewBashTool creates a bash tool rooted at workDir.
func NewBashTool(workDir string, opts BashOptions) *BashTool {
	t := &BashTool{
		workDir:        workDir,
		shell:          detectShell(),
		defaultTimeout: opts.DefaultTimeout,
		maxTimeout:     opts.MaxTimeout,
		maxOutput:      opts.MaxOutputBytes,
	}
	if t.defaultTimeout <= 0 {
		t.defaultTimeout = DefaultBashTimeout
	}
	if t.maxTimeout <= 0 {
		t.maxTimeout = MaxBashTimeout
	}
	if t.maxOutput <= 0 {
		t.maxOutput = MaxOutputBytes
	}
	return t
}

func detectShell() string {
	if s := os.Getenv("SHELL"); s != "" {
		// fish and nu choke on POSIX -c scripts
		base := s[strings.LastIndex(s, "/")+1:]
		if base != "fish" && base != "nu" {
			return s
		}
	}

	if runtime.GOOS == "darwin" {
		return "/bin/zsh"
	}
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec
		}
		return "cmd.exe"
	}

	if bash, err := exec.LookPath("bash"); err == nil {
		return bash
	}
	return "/bin/sh"
}

func (t *BashTool) Name() string        { return "bash" }
func (t *BashTool) Description() string { return bashDescription }

func (t *BashTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {
				"type": "string",
				"description": "The command to execute"
			},
			"timeout": {
				"type": "integer",
				"description": "Optional timeout in milliseconds (max 600000)"
			},
			"description": {
				"type": "string",
				"description": "Brief description of what this command does"
			}
		},
		"required": ["command"]
	}`)
}

func (t *BashTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params BashInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(params.Command) == "" {
		return nil, fmt.Errorf("command is required")
	}

	timeout := t.defaultTimeout
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout) * time.Millisecond
		if timeout > t.maxTimeout {
			timeout = t.maxTimeout
		}
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command(t.shell, "/c", params.Command)
	} else {
		cmd = exec.Command(t.shell, "-c", params.Command)
	}

	if tc != nil && tc.WorkDir != "" {
		cmd.Dir = tc.WorkDir
	} else if t.workDir != "" {
		cmd.Dir = t.workDir
	}
	cmd.Env = SanitizedEnv()
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if tc != nil {
		tc.SetMetadata(params.Description, map[string]any{
			"command":     params.Command,
			"description": params.Description,
		})
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var abort <-chan struct{}
	if tc != nil {
		abort = tc.AbortCh
	}

	timedOut := false
	cancelled := false
	var waitErr error

	select {
	case waitErr = <-done:
	case <-timer.C:
		timedOut = true
		killProcessTree(cmd)
		waitErr = <-done
	case <-ctx.Done():
		cancelled = true
		killProcessTree(cmd)
		waitErr = <-done
	case <-abort:
		cancelled = true
		killProcessTree(cmd)
		waitErr = <-done
	}

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}

	output := t.renderOutput(stdout.String(), stderr.String())

	if timedOut {
		return nil, &TimeoutError{
			Tool:    t.Name(),
			Command: params.Command,
			Timeout: timeout,
			Output:  output,
		}
	}
	if cancelled {
		output += "\n\n(Command was cancelled)"
	}

	if exitCode != 0 && !cancelled {
		return nil, &Error{
			Tool:     t.Name(),
			CallID:   callID(tc),
			Message:  fmt.Sprintf("command %q failed with exit code %d", params.Command, exitCode),
			Stdout:   t.capOutput(stdout.String()),
			Stderr:   t.capOutput(stderr.String()),
			ExitCode: exitCode,
			Hint:     FormatHints(CorrectionHints(params.Command, stderr.String(), exitCode)),
		}
	}

	title := params.Description
	if title == "" {
		title = params.Command
	}

	return &Result{
		Title:  title,
		Output: output,
		Metadata: map[string]any{
			"command":     params.Command,
			"description": params.Description,
			"exit":        exitCode,
			"cancelled":   cancelled,
		},
	}, nil
}

func callID(tc *Context) string {
	if tc == nil {
		return ""
	}
	return tc.CallID
}

// capOutput bounds one captured stream to the output limit.
func (t *BashTool) capOutput(s string) string {
	if len(s) > t.maxOutput {
		s = s[:t.maxOutput] + "\n\n(Output truncated)"
	}
	return strings.TrimRight(s, "\n")
}

// renderOutput merges captured streams and caps the total size.
func (t *BashTool) renderOutput(stdout, stderr string) string {
	out := stdout
	if stderr != "" {
		if out != "" && !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += stderr
	}
	if len(out) > t.maxOutput {
		out = out[:t.maxOutput] + "\n\n(Output truncated)"
	}
	return strings.TrimRight(out, "\n")
}
