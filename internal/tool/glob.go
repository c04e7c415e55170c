package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/quarry-ai/quarry/internal/pathguard"
)

const globDescription = `Fast file pattern matching tool that works with any codebase size.

Usage:
- Supports glob patterns like "**/*.js" or "src/**/*.ts"
- Returns matching file paths sorted by modification time
- Use this tool when you need to find files by name patterns`

const maxGlobResults = 100

// GlobTool matches files against glob patterns.
type GlobTool struct {
	workDir string
	guard   pathguard.Options
}

// GlobInput is the input for the glob tool.
type GlobInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

// NewGlobTool creates a glob tool rooted at workDir.
func NewGlobTool(workDir string, guard pathguard.Options) *GlobTool {
	return &GlobTool{workDir: workDir, guard: guard}
}

func (t *GlobTool) Name() string        { return "glob" }
func (t *GlobTool) Description() string { return globDescription }

func (t *GlobTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pattern": {
				"type": "string",
				"description": "The glob pattern to match files against"
			},
			"path": {
				"type": "string",
				"description": "Directory to search in (default: working directory)"
			}
		},
		"required": ["pattern"]
	}`)
}

func (t *GlobTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params GlobInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Pattern == "" {
		return nil, fmt.Errorf("pattern is required")
	}

	root := t.workDir
	if tc != nil && tc.WorkDir != "" {
		root = tc.WorkDir
	}
	searchDir := root
	if params.Path != "" {
		var err error
		searchDir, err = resolveWithin(params.Path, root, t.guard)
		if err != nil {
			return nil, err
		}
	}

	fsys := os.DirFS(searchDir)
	matches, err := doublestar.Glob(fsys, params.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}

	var files []string
	for _, m := range matches {
		if isIgnoredPath(m) {
			continue
		}
		files = append(files, m)
	}
	sortByModTime(fsys, files)

	if len(files) == 0 {
		return &Result{
			Title:  "Glob search",
			Output: "No files matched the pattern",
			Metadata: map[string]any{
				"pattern": params.Pattern,
				"count":   0,
			},
		}, nil
	}

	truncated := false
	if len(files) > maxGlobResults {
		files = files[:maxGlobResults]
		truncated = true
	}

	output := strings.Join(files, "\n")
	if truncated {
		output += fmt.Sprintf("\n\n(Showing first %d matches)", maxGlobResults)
	}

	return &Result{
		Title:  fmt.Sprintf("Found %d files", len(files)),
		Output: output,
		Metadata: map[string]any{
			"pattern":   params.Pattern,
			"count":     len(files),
			"truncated": truncated,
		},
	}, nil
}

// isIgnoredPath skips results inside directories nobody searches.
func isIgnoredPath(path string) bool {
	for _, part := range strings.Split(path, "/") {
		switch part {
		case ".git", "node_modules", "__pycache__", ".venv", "venv", "dist", "build", "vendor":
			return true
		}
	}
	return false
}

// sortByModTime orders paths newest-first; unstat-able files sink.
func sortByModTime(fsys fs.FS, paths []string) {
	type stamped struct {
		path string
		mod  int64
	}
	st := make([]stamped, len(paths))
	for i, p := range paths {
		st[i] = stamped{path: p}
		if info, err := fs.Stat(fsys, p); err == nil {
			st[i].mod = info.ModTime().UnixNano()
		}
	}
	sort.SliceStable(st, func(i, j int) bool { return st[i].mod > st[j].mod })
	for i := range st {
		paths[i] = st[i].path
	}
}
