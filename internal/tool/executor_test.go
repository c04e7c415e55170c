package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/quarry-ai/quarry/internal/pathguard"
	"github.com/quarry-ai/quarry/internal/permission"
)

func testGate() *PermissionGate {
	return &PermissionGate{
		Policy:      permission.NewPolicy([]string{"echo", "git status"}, []string{"vim"}, []string{"bash"}),
		AutoApprove: true,
	}
}

func testExecutor(t *testing.T, dir string, opts ...ExecutorOption) *Executor {
	t.Helper()
	r := NewRegistry()
	r.Register(NewReadTool(dir, pathguard.Options{}))
	r.Register(NewWriteTool(dir, pathguard.Options{}))
	r.Register(NewBashTool(dir, BashOptions{}))
	return NewExecutor(r, testGate(), opts...)
}

func TestExecutor_RunSuccess(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "f.txt", "content\n")
	e := testExecutor(t, tmpDir)

	rec := NewRecord("s1", "read_file", json.RawMessage(`{"path": "f.txt"}`))
	result, err := e.Run(context.Background(), rec, testContext(tmpDir))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result == nil || result.Output == "" {
		t.Fatal("expected a result")
	}
	if rec.State != StateDone {
		t.Errorf("state = %s, want %s", rec.State, StateDone)
	}
	if rec.FinishedAt.IsZero() {
		t.Error("FinishedAt not set")
	}
}

func TestExecutor_UnknownTool(t *testing.T) {
	e := testExecutor(t, t.TempDir())
	rec := NewRecord("s1", "nonexistent", json.RawMessage(`{}`))

	_, err := e.Run(context.Background(), rec, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var toolErr *Error
	if !errors.As(err, &toolErr) {
		t.Errorf("expected *Error, got %T", err)
	}
	if rec.State != StateFailed {
		t.Errorf("state = %s, want %s", rec.State, StateFailed)
	}
}

func TestExecutor_RecordConsumedOnce(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "f.txt", "x\n")
	e := testExecutor(t, tmpDir)

	rec := NewRecord("s1", "read_file", json.RawMessage(`{"path": "f.txt"}`))
	if _, err := e.Run(context.Background(), rec, testContext(tmpDir)); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if _, err := e.Run(context.Background(), rec, testContext(tmpDir)); !errors.Is(err, ErrRecordConsumed) {
		t.Errorf("second run error = %v, want ErrRecordConsumed", err)
	}
}

func TestExecutor_PolicyDenySkips(t *testing.T) {
	tmpDir := t.TempDir()
	e := testExecutor(t, tmpDir)

	rec := NewRecord("s1", "bash", json.RawMessage(`{"command": "vim main.go"}`))
	_, err := e.Run(context.Background(), rec, testContext(tmpDir))
	if !permission.IsRejectedError(err) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rec.State != StateSkipped {
		t.Errorf("state = %s, want %s", rec.State, StateSkipped)
	}
	if rec.Reason == "" {
		t.Error("skip reason not recorded")
	}
}

func TestExecutor_StandaloneDenySkips(t *testing.T) {
	tmpDir := t.TempDir()
	e := testExecutor(t, tmpDir)

	rec := NewRecord("s1", "bash", json.RawMessage(`{"command": "bash"}`))
	_, err := e.Run(context.Background(), rec, testContext(tmpDir))
	if !permission.IsRejectedError(err) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
}

func TestExecutor_DoomLoopDetection(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "f.txt", "x\n")
	e := testExecutor(t, tmpDir, WithDoomLoopDetector(permission.NewDoomLoopDetector()))

	input := json.RawMessage(`{"path": "f.txt"}`)
	var lastErr error
	for i := 0; i < permission.DoomLoopThreshold+1; i++ {
		rec := NewRecord("s1", "read_file", input)
		_, lastErr = e.Run(context.Background(), rec, testContext(tmpDir))
	}
	if lastErr == nil {
		t.Fatal("expected doom loop error after repeated identical calls")
	}
	var toolErr *Error
	if !errors.As(lastErr, &toolErr) {
		t.Errorf("expected *Error, got %T", lastErr)
	}
}

func TestGate_ReadOnlyToolsPass(t *testing.T) {
	g := &PermissionGate{Policy: permission.DefaultPolicy()}
	rec := NewRecord("s1", "grep", json.RawMessage(`{"pattern": "x"}`))
	if err := g.Authorize(context.Background(), rec, nil); err != nil {
		t.Errorf("read-only tool should pass without a checker: %v", err)
	}
}

func TestGate_MutatingToolNeedsChecker(t *testing.T) {
	g := &PermissionGate{Policy: permission.DefaultPolicy()}
	rec := NewRecord("s1", "write_file", json.RawMessage(`{"path": "x", "content": "y"}`))
	err := g.Authorize(context.Background(), rec, nil)
	if !permission.IsRejectedError(err) {
		t.Errorf("mutating tool without a checker should be refused, got %v", err)
	}
}

func TestGate_OverridesApply(t *testing.T) {
	g := &PermissionGate{
		Policy:    permission.DefaultPolicy(),
		Overrides: map[string]permission.Action{"write_file": permission.ActionAllow},
	}
	rec := NewRecord("s1", "write_file", json.RawMessage(`{"path": "x", "content": "y"}`))
	if err := g.Authorize(context.Background(), rec, nil); err != nil {
		t.Errorf("override allow should pass: %v", err)
	}

	g.Overrides["write_file"] = permission.ActionDeny
	rec = NewRecord("s1", "write_file", json.RawMessage(`{"path": "x", "content": "y"}`))
	if err := g.Authorize(context.Background(), rec, nil); !permission.IsRejectedError(err) {
		t.Errorf("override deny should refuse, got %v", err)
	}
}

func TestGate_AutoApproveDoesNotBypassDeny(t *testing.T) {
	g := &PermissionGate{
		Policy:      permission.NewPolicy(nil, []string{"rm"}, nil),
		AutoApprove: true,
	}
	rec := NewRecord("s1", "bash", json.RawMessage(`{"command": "rm -rf /tmp/x"}`))
	if err := g.Authorize(context.Background(), rec, nil); !permission.IsRejectedError(err) {
		t.Errorf("auto-approve must not bypass policy denials, got %v", err)
	}
}

func TestGate_MissingBashCommand(t *testing.T) {
	g := testGate()
	rec := NewRecord("s1", "bash", json.RawMessage(`{}`))
	if err := g.Authorize(context.Background(), rec, nil); !permission.IsRejectedError(err) {
		t.Errorf("bash without a command should be refused, got %v", err)
	}
}

func TestGate_MutatingCommandPathsBounded(t *testing.T) {
	g := &PermissionGate{
		Policy:      permission.NewPolicy([]string{"rm", "mv", "echo"}, nil, nil),
		WorkDir:     t.TempDir(),
		AutoApprove: true,
	}

	tests := []struct {
		name    string
		command string
		refused bool
	}{
		{"absolute escape", `rm /etc/passwd`, true},
		{"relative traversal", `rm ../secret.txt`, true},
		{"escape hidden in compound", `echo hi && mv notes.txt /tmp/out`, true},
		{"inside the project", `rm -f notes.txt`, false},
		{"non-mutating with outside path", `echo /etc/passwd`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord("s1", "bash", json.RawMessage(`{"command": `+string(mustJSON(t, tt.command))+`}`))
			err := g.Authorize(context.Background(), rec, nil)
			if tt.refused && !permission.IsRejectedError(err) {
				t.Errorf("command %q should be refused, got %v", tt.command, err)
			}
			if !tt.refused && err != nil {
				t.Errorf("command %q should pass, got %v", tt.command, err)
			}
		})
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
