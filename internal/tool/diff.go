package tool

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// fileDiff summarizes one file edit for tool metadata. The patch uses
// a/ and b/ headers, the same shape the rename engine produces, so a
// consumer renders every edit source the same way.
type fileDiff struct {
	Patch     string
	Additions int
	Deletions int
}

// diffFile computes the change a write or replace made to path. The
// header paths are relative to root. Equal content yields a zero diff.
func diffFile(path, before, after, root string) fileDiff {
	if before == after {
		return fileDiff{}
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	d := fileDiff{}
	for _, part := range diffs {
		switch part.Type {
		case diffmatchpatch.DiffInsert:
			d.Additions += countLines(part.Text)
		case diffmatchpatch.DiffDelete:
			d.Deletions += countLines(part.Text)
		}
	}

	patch := dmp.PatchToText(dmp.PatchMake(before, diffs))
	if patch == "" {
		return d
	}

	if rel := relativePath(path, root); rel != "" {
		patch = fmt.Sprintf("--- a/%s\n+++ b/%s\n%s", rel, rel, patch)
	}
	d.Patch = patch
	return d
}

// metadata merges the diff into a tool result's metadata map.
func (d fileDiff) metadata(meta map[string]any) map[string]any {
	meta["diff"] = d.Patch
	meta["additions"] = d.Additions
	meta["deletions"] = d.Deletions
	return meta
}

func relativePath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if baseDir == "" {
		return path
	}
	if rel, err := filepath.Rel(baseDir, path); err == nil {
		return rel
	}
	return path
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	lines := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		lines++
	}
	return lines
}
