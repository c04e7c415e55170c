package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/quarry-ai/quarry/internal/pathguard"
)

func TestListTool_Execute(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "a.go", "package a\n")
	writeTestFile(t, tmpDir, "sub/b.go", "package b\n")
	writeTestFile(t, tmpDir, "node_modules/x.js", "")

	tool := NewListTool(tmpDir, pathguard.Options{})
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, "[file] a.go") {
		t.Errorf("missing a.go: %q", result.Output)
	}
	if !strings.Contains(result.Output, "[dir ] sub") {
		t.Errorf("missing sub dir: %q", result.Output)
	}
	if strings.Contains(result.Output, "node_modules") {
		t.Errorf("node_modules should be ignored: %q", result.Output)
	}
}

func TestListTool_CustomIgnore(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "keep.txt", "")
	writeTestFile(t, tmpDir, "skip.log", "")

	tool := NewListTool(tmpDir, pathguard.Options{})
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"ignore": ["*.log"]}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.Contains(result.Output, "skip.log") {
		t.Errorf("*.log should be ignored: %q", result.Output)
	}
	if !strings.Contains(result.Output, "keep.txt") {
		t.Errorf("keep.txt missing: %q", result.Output)
	}
}

func TestListTool_RefusesEscape(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewListTool(tmpDir, pathguard.Options{})
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"path": "../"}`), testContext(tmpDir)); err == nil {
		t.Error("listing outside the root should fail")
	}
}

func TestGlobTool_Execute(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "main.go", "package main\n")
	writeTestFile(t, tmpDir, "internal/util.go", "package internal\n")
	writeTestFile(t, tmpDir, "readme.md", "# hi\n")

	tool := NewGlobTool(tmpDir, pathguard.Options{})
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"pattern": "**/*.go"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Metadata["count"] != 2 {
		t.Errorf("count = %v, want 2", result.Metadata["count"])
	}
	if !strings.Contains(result.Output, "main.go") || !strings.Contains(result.Output, "internal/util.go") {
		t.Errorf("matches missing: %q", result.Output)
	}
	if strings.Contains(result.Output, "readme.md") {
		t.Errorf("readme.md should not match: %q", result.Output)
	}
}

func TestGlobTool_NoMatches(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewGlobTool(tmpDir, pathguard.Options{})
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"pattern": "**/*.zig"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["count"] != 0 {
		t.Errorf("count = %v, want 0", result.Metadata["count"])
	}
	if !strings.Contains(result.Output, "No files matched") {
		t.Errorf("output = %q", result.Output)
	}
}

func TestGlobTool_SkipsIgnoredDirs(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "src/a.js", "")
	writeTestFile(t, tmpDir, "node_modules/dep/b.js", "")

	tool := NewGlobTool(tmpDir, pathguard.Options{})
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"pattern": "**/*.js"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.Contains(result.Output, "node_modules") {
		t.Errorf("node_modules should be skipped: %q", result.Output)
	}
}

func TestGrepTool_Execute(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "a.go", "package a\n\nfunc Hello() {}\n")
	writeTestFile(t, tmpDir, "b.go", "package b\n\nfunc World() {}\n")

	tool := NewGrepTool(tmpDir, pathguard.Options{})
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"pattern": "func \\w+\\(\\)"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Metadata["count"] != 2 {
		t.Errorf("count = %v, want 2", result.Metadata["count"])
	}
	if !strings.Contains(result.Output, "a.go:3:") {
		t.Errorf("expected line numbers: %q", result.Output)
	}
}

func TestGrepTool_IncludeFilter(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "x.go", "needle\n")
	writeTestFile(t, tmpDir, "x.txt", "needle\n")

	tool := NewGrepTool(tmpDir, pathguard.Options{})
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"pattern": "needle", "include": "*.go"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["count"] != 1 {
		t.Errorf("count = %v, want 1", result.Metadata["count"])
	}
	if strings.Contains(result.Output, "x.txt") {
		t.Errorf("include filter ignored: %q", result.Output)
	}
}

func TestGrepTool_NoMatches(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "a.txt", "nothing here\n")

	tool := NewGrepTool(tmpDir, pathguard.Options{})
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"pattern": "absent"}`), testContext(tmpDir))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "No matches found") {
		t.Errorf("output = %q", result.Output)
	}
}

func TestGrepTool_InvalidPattern(t *testing.T) {
	tool := NewGrepTool(t.TempDir(), pathguard.Options{})
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"pattern": "["}`), nil); err == nil {
		t.Error("invalid regex should fail")
	}
}
