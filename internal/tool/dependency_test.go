package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/quarry-ai/quarry/internal/depgraph"
)

func dependencyTool(t *testing.T, dir string) *DependencyTool {
	t.Helper()
	return NewDependencyTool(dir, nil, depgraph.Options{})
}

func TestDependency_Imports(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "app.py", "import os\nfrom pkg.util import helper\n")

	tool := dependencyTool(t, tmpDir)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"target": "app.py"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, "Found 2 import(s) in app.py") {
		t.Errorf("output = %q", result.Output)
	}
	if !strings.Contains(result.Output, "pkg.util (helper)") {
		t.Errorf("missing import detail: %q", result.Output)
	}
}

func TestDependency_Dependents(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "util.py", "x = 1\n")
	writeTestFile(t, tmpDir, "app.py", "import util\n")

	tool := dependencyTool(t, tmpDir)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"operation": "dependents", "target": "util.py"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "Found 1 dependent(s) of util.py") {
		t.Errorf("output = %q", result.Output)
	}
	if !strings.Contains(result.Output, "app.py") {
		t.Errorf("missing dependent: %q", result.Output)
	}
}

func TestDependency_Graph(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "a.py", "import b\n")
	writeTestFile(t, tmpDir, "b.py", "x = 1\n")

	tool := dependencyTool(t, tmpDir)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"operation": "graph", "target": "a.py", "depth": 2}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "a.py -> b.py") {
		t.Errorf("output = %q", result.Output)
	}
}

func TestDependency_InvalidInput(t *testing.T) {
	tool := dependencyTool(t, t.TempDir())
	ctx := context.Background()

	if _, err := tool.Execute(ctx, json.RawMessage(`{}`), nil); err == nil {
		t.Error("missing target should fail")
	}
	if _, err := tool.Execute(ctx,
		json.RawMessage(`{"target": "a.py", "operation": "cycles"}`), nil); err == nil {
		t.Error("unknown operation should fail")
	}
	if _, err := tool.Execute(ctx,
		json.RawMessage(`{"target": "ghost.py"}`), testContext(t.TempDir())); err == nil {
		t.Error("missing file should fail")
	}
}
