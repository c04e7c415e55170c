package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

const gitDescription = `Runs a structured git operation in the working directory.

Usage:
- op selects the operation: status, diff, log, show, branch, add, commit, reset
- args are passed to the operation (paths for add/reset, a message for commit)
- Read operations run concurrently; mutating operations are serialized`

// gitReadOps run without serialization.
var gitReadOps = map[string]bool{
	"status": true,
	"diff":   true,
	"log":    true,
	"show":   true,
	"branch": true,
}

// gitMutatingOps change repository state and take the write lock.
var gitMutatingOps = map[string]bool{
	"add":    true,
	"commit": true,
	"reset":  true,
}

// GitTool exposes a fixed set of git operations. Serializing the
// mutating ones keeps concurrent batches from corrupting the index.
type GitTool struct {
	workDir string

	mu sync.Mutex // held across mutating operations
}

// GitInput is the input for the git tool.
type GitInput struct {
	Op      string   `json:"op"`
	Args    []string `json:"args,omitempty"`
	Message string   `json:"message,omitempty"` // commit only
}

// NewGitTool creates a git tool rooted at workDir.
func NewGitTool(workDir string) *GitTool {
	return &GitTool{workDir: workDir}
}

func (t *GitTool) Name() string        { return "git" }
func (t *GitTool) Description() string { return gitDescription }

func (t *GitTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"op": {
				"type": "string",
				"enum": ["status", "diff", "log", "show", "branch", "add", "commit", "reset"],
				"description": "The git operation to run"
			},
			"args": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Arguments for the operation (paths, refs, flags)"
			},
			"message": {
				"type": "string",
				"description": "Commit message (commit only)"
			}
		},
		"required": ["op"]
	}`)
}

func (t *GitTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params GitInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	args, err := t.buildArgs(params)
	if err != nil {
		return nil, err
	}

	if gitMutatingOps[params.Op] {
		t.mu.Lock()
		defer t.mu.Unlock()
	}

	dir := t.workDir
	if tc != nil && tc.WorkDir != "" {
		dir = tc.WorkDir
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = SanitizedEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" && !strings.HasSuffix(output, "\n") {
			output += "\n"
		}
		output += stderr.String()
	}
	output = strings.TrimRight(output, "\n")
	if output == "" {
		output = "(no output)"
	}

	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("git %s failed: %w", params.Op, runErr)
		}
		if hints := FormatHints(CorrectionHints("git "+params.Op, stderr.String(), exitCode)); hints != "" {
			output += "\n\n" + hints
		}
	}

	return &Result{
		Title:  fmt.Sprintf("git %s", params.Op),
		Output: output,
		Metadata: map[string]any{
			"op":   params.Op,
			"exit": exitCode,
		},
	}, nil
}

func (t *GitTool) buildArgs(params GitInput) ([]string, error) {
	if !gitReadOps[params.Op] && !gitMutatingOps[params.Op] {
		return nil, fmt.Errorf("unknown git op: %s", params.Op)
	}

	for _, a := range params.Args {
		// Refuse argument injection through embedded flags on paths.
		if params.Op == "add" || params.Op == "reset" {
			if strings.HasPrefix(a, "-") {
				return nil, fmt.Errorf("git %s does not accept flag arguments: %s", params.Op, a)
			}
		}
	}

	args := []string{params.Op}
	switch params.Op {
	case "log":
		args = append(args, "--oneline", "-20")
	case "commit":
		if strings.TrimSpace(params.Message) == "" {
			return nil, fmt.Errorf("commit requires a message")
		}
		args = append(args, "-m", params.Message)
	}
	args = append(args, params.Args...)
	return args, nil
}
