//go:build !windows

package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestBashTool_Execute(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewBashTool(tmpDir, BashOptions{})

	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"command": "echo hello"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "hello") {
		t.Errorf("output = %q, want hello", result.Output)
	}
	if result.Metadata["exit"] != 0 {
		t.Errorf("exit = %v, want 0", result.Metadata["exit"])
	}
}

func TestBashTool_NonZeroExitReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewBashTool(tmpDir, BashOptions{})

	_, err := tool.Execute(context.Background(),
		json.RawMessage(`{"command": "echo partial; echo oops >&2; exit 3"}`), testContext(tmpDir))
	if err == nil {
		t.Fatal("non-zero exit should return an error")
	}
	toolErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("err = %T, want *Error", err)
	}
	if toolErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", toolErr.ExitCode)
	}
	if !strings.Contains(toolErr.Stdout, "partial") {
		t.Errorf("stdout missing from error: %q", toolErr.Stdout)
	}
	if !strings.Contains(toolErr.Stderr, "oops") {
		t.Errorf("stderr missing from error: %q", toolErr.Stderr)
	}
	if !strings.Contains(toolErr.Error(), "exit code 3") {
		t.Errorf("message should name the exit code: %q", toolErr.Error())
	}
}

func TestBashTool_CommandNotFoundHints(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewBashTool(tmpDir, BashOptions{})

	_, err := tool.Execute(context.Background(),
		json.RawMessage(`{"command": "gti status"}`), testContext(tmpDir))
	toolErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("err = %T, want *Error", err)
	}
	if !strings.Contains(toolErr.Hint, "Correction suggestions:") {
		t.Errorf("expected correction hints, got %q", toolErr.Hint)
	}
	if !strings.Contains(toolErr.Hint, `"git"`) {
		t.Errorf("expected did-you-mean git, got %q", toolErr.Hint)
	}
	if !strings.Contains(toolErr.Display(), "Correction suggestions:") {
		t.Errorf("Display should carry the hints: %q", toolErr.Display())
	}
}

func TestBashTool_Timeout(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewBashTool(tmpDir, BashOptions{DefaultTimeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := tool.Execute(context.Background(),
		json.RawMessage(`{"command": "echo started; sleep 10"}`), testContext(tmpDir))
	if time.Since(start) > 5*time.Second {
		t.Fatal("timed-out command was not killed promptly")
	}
	timeoutErr, ok := err.(*TimeoutError)
	if !ok {
		t.Fatalf("err = %T, want *TimeoutError", err)
	}
	if !strings.Contains(timeoutErr.Error(), "sleep 10") || !strings.Contains(timeoutErr.Error(), "100ms") {
		t.Errorf("error should name command and timeout: %q", timeoutErr.Error())
	}
	if !strings.Contains(timeoutErr.Output, "started") {
		t.Errorf("partial output missing: %q", timeoutErr.Output)
	}
}

func TestBashTool_TimeoutKillsChildren(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewBashTool(tmpDir, BashOptions{DefaultTimeout: 100 * time.Millisecond})

	start := time.Now()
	// The child sleep would outlive the shell without process-group kill.
	_, err := tool.Execute(context.Background(),
		json.RawMessage(`{"command": "sleep 30 & wait"}`), testContext(tmpDir))
	if _, ok := err.(*TimeoutError); !ok {
		t.Fatalf("err = %T, want *TimeoutError", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("process tree was not killed")
	}
}

func TestBashTool_ContextCancel(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewBashTool(tmpDir, BashOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result, err := tool.Execute(ctx, json.RawMessage(`{"command": "sleep 30"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["cancelled"] != true {
		t.Errorf("cancelled = %v, want true", result.Metadata["cancelled"])
	}
}

func TestBashTool_OutputTruncation(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewBashTool(tmpDir, BashOptions{MaxOutputBytes: 100})

	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"command": "yes x | head -n 500"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "(Output truncated)") {
		t.Errorf("expected truncation note, got %d bytes", len(result.Output))
	}
}

func TestBashTool_SanitizedEnvironment(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewBashTool(tmpDir, BashOptions{})

	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"command": "echo PAGER=$PAGER CI=$CI"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "PAGER=cat") || !strings.Contains(result.Output, "CI=true") {
		t.Errorf("environment not sanitized: %q", result.Output)
	}
}

func TestBashTool_EmptyCommand(t *testing.T) {
	tool := NewBashTool(t.TempDir(), BashOptions{})
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"command": "  "}`), nil); err == nil {
		t.Error("empty command should fail")
	}
}
