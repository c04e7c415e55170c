package tool

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDiffFile(t *testing.T) {
	root := "/work"
	path := filepath.Join(root, "pkg", "main.go")
	before := "line one\nline two\nline three\n"
	after := "line one\nline 2\nline three\nline four\n"

	d := diffFile(path, before, after, root)
	if d.Patch == "" {
		t.Fatal("expected a patch for changed content")
	}
	if !strings.HasPrefix(d.Patch, "--- a/pkg/main.go\n+++ b/pkg/main.go\n") {
		t.Errorf("patch headers wrong:\n%s", d.Patch)
	}
	if d.Additions != 2 {
		t.Errorf("additions = %d, want 2", d.Additions)
	}
	if d.Deletions != 1 {
		t.Errorf("deletions = %d, want 1", d.Deletions)
	}
}

func TestDiffFile_EqualContent(t *testing.T) {
	d := diffFile("/work/f.txt", "same\n", "same\n", "/work")
	if d.Patch != "" || d.Additions != 0 || d.Deletions != 0 {
		t.Errorf("equal content should yield a zero diff, got %+v", d)
	}
}

func TestDiffFile_Metadata(t *testing.T) {
	d := diffFile("/work/f.txt", "a\n", "b\n", "/work")
	meta := d.metadata(map[string]any{"file": "/work/f.txt"})

	if meta["file"] != "/work/f.txt" {
		t.Error("existing keys must survive the merge")
	}
	if meta["diff"] != d.Patch {
		t.Error("diff not carried into metadata")
	}
	if meta["additions"] != 1 || meta["deletions"] != 1 {
		t.Errorf("line counts wrong: %+v", meta)
	}
}
