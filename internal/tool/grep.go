package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/quarry-ai/quarry/internal/pathguard"
)

const grepDescription = `Searches file contents with regular expressions.

Usage:
- Supports full regex syntax (e.g., "log.*Error", "function\\s+\\w+")
- Filter files with the include parameter (e.g., "*.js", "**/*.tsx")
- Returns matching lines with file paths and line numbers`

const maxGrepMatches = 100

// GrepTool searches file contents.
type GrepTool struct {
	workDir string
	guard   pathguard.Options
}

// GrepInput is the input for the grep tool.
type GrepInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
	Include string `json:"include,omitempty"`
}

// NewGrepTool creates a grep tool rooted at workDir.
func NewGrepTool(workDir string, guard pathguard.Options) *GrepTool {
	return &GrepTool{workDir: workDir, guard: guard}
}

func (t *GrepTool) Name() string        { return "grep" }
func (t *GrepTool) Description() string { return grepDescription }

func (t *GrepTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pattern": {
				"type": "string",
				"description": "The regex pattern to search for in file contents"
			},
			"path": {
				"type": "string",
				"description": "The directory to search in. Defaults to the working directory."
			},
			"include": {
				"type": "string",
				"description": "File pattern to include in the search (e.g. \"*.js\", \"**/*.tsx\")"
			}
		},
		"required": ["pattern"]
	}`)
}

// GrepMatch is one matching line.
type GrepMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

func (t *GrepTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params GrepInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	re, err := regexp.Compile(params.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}

	root := t.workDir
	if tc != nil && tc.WorkDir != "" {
		root = tc.WorkDir
	}
	searchDir := root
	if params.Path != "" {
		searchDir, err = resolveWithin(params.Path, root, t.guard)
		if err != nil {
			return nil, err
		}
	}

	var matches []GrepMatch
	truncated := false

	walkErr := filepath.WalkDir(searchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if isIgnoredPath(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(searchDir, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if params.Include != "" {
			matched, _ := doublestar.Match(params.Include, rel)
			if !matched {
				// Bare patterns like "*.go" should match by base name too.
				if base, _ := doublestar.Match(params.Include, d.Name()); !base {
					return nil
				}
			}
		}

		if isBinaryFile(path) {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if !re.MatchString(line) {
				continue
			}
			if len(matches) >= maxGrepMatches {
				truncated = true
				return filepath.SkipAll
			}
			matches = append(matches, GrepMatch{File: rel, Line: lineNum, Content: line})
		}
		return nil
	})
	if walkErr != nil && walkErr != filepath.SkipAll {
		return nil, walkErr
	}

	if len(matches) == 0 {
		return &Result{
			Title:  "Search results",
			Output: "No matches found",
			Metadata: map[string]any{
				"pattern": params.Pattern,
				"count":   0,
			},
		}, nil
	}

	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("%s:%d: %s\n", m.File, m.Line, m.Content))
	}
	if truncated {
		sb.WriteString(fmt.Sprintf("\n(Showing first %d matches)", maxGrepMatches))
	}

	return &Result{
		Title:  fmt.Sprintf("Found %d matches", len(matches)),
		Output: sb.String(),
		Metadata: map[string]any{
			"pattern":   params.Pattern,
			"count":     len(matches),
			"truncated": truncated,
		},
	}, nil
}
