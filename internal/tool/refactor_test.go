package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quarry-ai/quarry/internal/refactor"
)

func refactorTool(t *testing.T, dir string) *RefactorTool {
	t.Helper()
	return NewRefactorTool(dir, nil, refactor.Options{})
}

func TestRefactor_Preview(t *testing.T) {
	tmpDir := t.TempDir()
	original := "count = 1\ntotal = count + count\n"
	writeTestFile(t, tmpDir, "app.py", original)

	tool := refactorTool(t, tmpDir)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"operation": "preview", "old_name": "count", "new_name": "n"}`),
		testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, "Would rename 'count' to 'n': 3 change(s) in 1 file(s)") {
		t.Errorf("output = %q", result.Output)
	}
	if !strings.Contains(result.Output, "--- a/app.py") {
		t.Errorf("diff missing: %q", result.Output)
	}
	if result.Metadata["applied"] != false {
		t.Errorf("preview should not apply, metadata = %v", result.Metadata)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "app.py"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != original {
		t.Errorf("preview modified the file: %q", data)
	}
}

func TestRefactor_Rename(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "app.py", "count = 1\ntotal = count + count\n")

	tool := refactorTool(t, tmpDir)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"operation": "rename", "old_name": "count", "new_name": "n"}`),
		testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, "Renamed 'count' to 'n'") {
		t.Errorf("output = %q", result.Output)
	}
	if result.Metadata["applied"] != true {
		t.Errorf("rename should apply, metadata = %v", result.Metadata)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "app.py"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "n = 1\ntotal = n + n\n" {
		t.Errorf("file content = %q", data)
	}
}

func TestRefactor_NoOccurrences(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "app.py", "x = 1\n")

	tool := refactorTool(t, tmpDir)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"operation": "preview", "old_name": "ghost", "new_name": "spirit"}`),
		testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "No occurrences of 'ghost' found") {
		t.Errorf("output = %q", result.Output)
	}
}

func TestRefactor_InvalidInput(t *testing.T) {
	tool := refactorTool(t, t.TempDir())
	ctx := context.Background()

	if _, err := tool.Execute(ctx,
		json.RawMessage(`{"operation": "delete", "old_name": "a", "new_name": "b"}`), nil); err == nil {
		t.Error("unknown operation should fail")
	}
	if _, err := tool.Execute(ctx,
		json.RawMessage(`{"operation": "rename", "old_name": "", "new_name": "b"}`), nil); err == nil {
		t.Error("empty old_name should fail")
	}
	if _, err := tool.Execute(ctx,
		json.RawMessage(`{"operation": "rename", "old_name": "a", "new_name": "a"}`), nil); err == nil {
		t.Error("identical names should fail")
	}
}
