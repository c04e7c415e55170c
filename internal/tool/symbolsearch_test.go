package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

const pySample = `def helper():
    return 1

def main():
    a = helper()
    b = helper()
    return a + b
`

func symbolTool(t *testing.T, dir string) *SymbolSearchTool {
	t.Helper()
	return NewSymbolSearchTool(dir, nil, SymbolSearchOptions{})
}

func TestSymbolSearch_All(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "app.py", pySample)

	tool := symbolTool(t, tmpDir)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"symbol": "helper"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// One definition plus three identifier occurrences.
	if !strings.Contains(result.Output, "Found 4 match(es) for 'helper'") {
		t.Errorf("output = %q", result.Output)
	}
	if !strings.Contains(result.Output, "app.py:1:0 [function, definition]") {
		t.Errorf("missing definition entry: %q", result.Output)
	}
	if !strings.Contains(result.Output, "[reference]") {
		t.Errorf("missing references: %q", result.Output)
	}
	if result.Metadata["total"] != 4 {
		t.Errorf("total = %v", result.Metadata["total"])
	}
}

func TestSymbolSearch_DefinitionOnly(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "app.py", pySample)

	tool := symbolTool(t, tmpDir)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"symbol": "helper", "operation": "definition"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "Found 1 match(es)") {
		t.Errorf("output = %q", result.Output)
	}
	if !strings.Contains(result.Output, "> ") {
		t.Errorf("context lines missing: %q", result.Output)
	}
}

func TestSymbolSearch_FileScope(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "a.py", "target = 1\n")
	writeTestFile(t, tmpDir, "b.py", "target = 2\n")

	tool := symbolTool(t, tmpDir)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"symbol": "target", "scope": "file:a.py"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.Contains(result.Output, "b.py") {
		t.Errorf("file scope leaked into b.py: %q", result.Output)
	}
	if !strings.Contains(result.Output, "a.py") {
		t.Errorf("expected a.py match: %q", result.Output)
	}
}

func TestSymbolSearch_ExcludesVendoredDirs(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "app.js", "const dep = 1;\n")
	writeTestFile(t, tmpDir, "node_modules/pkg/index.js", "const dep = 2;\n")

	tool := symbolTool(t, tmpDir)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"symbol": "dep"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.Contains(result.Output, "node_modules") {
		t.Errorf("node_modules should be excluded: %q", result.Output)
	}
	if !strings.Contains(result.Output, "app.js") {
		t.Errorf("expected app.js match: %q", result.Output)
	}
}

func TestSymbolSearch_MaxResults(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "app.py", pySample)

	tool := symbolTool(t, tmpDir)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"symbol": "helper", "max_results": 1}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["truncated"] != true {
		t.Errorf("expected truncation, metadata = %v", result.Metadata)
	}
	if !strings.Contains(result.Output, "(truncated)") {
		t.Errorf("output = %q", result.Output)
	}
}

func TestSymbolSearch_NoMatches(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "app.py", "x = 1\n")

	tool := symbolTool(t, tmpDir)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"symbol": "ghost"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "No matches found for 'ghost'") {
		t.Errorf("output = %q", result.Output)
	}
}

func TestSymbolSearch_InvalidInput(t *testing.T) {
	tool := symbolTool(t, t.TempDir())
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{}`), nil); err == nil {
		t.Error("missing symbol should fail")
	}
	if _, err := tool.Execute(context.Background(),
		json.RawMessage(`{"symbol": "x", "operation": "rename"}`), nil); err == nil {
		t.Error("unknown operation should fail")
	}
}
