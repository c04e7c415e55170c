package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quarry-ai/quarry/internal/event"
	"github.com/quarry-ai/quarry/internal/pathguard"
)

const writeDescription = `Writes content to a file in the project.

Usage:
- The path may be absolute or relative to the working directory
- This tool will overwrite existing files
- Parent directories will be created if they don't exist
- ALWAYS prefer editing existing files over creating new ones`

// WriteTool writes or overwrites project files.
type WriteTool struct {
	workDir string
	guard   pathguard.Options
}

// WriteInput is the input for the write_file tool.
type WriteInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// NewWriteTool creates a write_file tool rooted at workDir.
func NewWriteTool(workDir string, guard pathguard.Options) *WriteTool {
	return &WriteTool{workDir: workDir, guard: guard}
}

func (t *WriteTool) Name() string        { return "write_file" }
func (t *WriteTool) Description() string { return writeDescription }

func (t *WriteTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "The path to the file to write"
			},
			"content": {
				"type": "string",
				"description": "The content to write to the file"
			}
		},
		"required": ["path", "content"]
	}`)
}

func (t *WriteTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params WriteInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	root := t.workDir
	if tc != nil && tc.WorkDir != "" {
		root = tc.WorkDir
	}
	path, err := resolveWithin(params.Path, root, t.guard)
	if err != nil {
		return nil, err
	}

	// Capture the previous content for the diff; a missing file is
	// simply a creation.
	before := ""
	created := true
	if data, err := os.ReadFile(path); err == nil {
		before = string(data)
		created = false
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(params.Content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	event.Publish(event.Event{
		Type: event.FileModified,
		Data: event.FileModifiedData{Path: path, Tool: t.Name()},
	})

	diff := diffFile(path, before, params.Content, root)

	verb := "Updated"
	if created {
		verb = "Created"
	}
	return &Result{
		Title: fmt.Sprintf("%s %s", verb, filepath.Base(path)),
		Output: fmt.Sprintf("Successfully wrote %d bytes to %s",
			len(params.Content), path),
		Metadata: diff.metadata(map[string]any{
			"file":    path,
			"bytes":   len(params.Content),
			"created": created,
		}),
	}, nil
}
