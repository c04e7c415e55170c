package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/quarry-ai/quarry/internal/codeintel"
	"github.com/quarry-ai/quarry/internal/event"
	"github.com/quarry-ai/quarry/internal/refactor"
)

const refactorDescription = `Rename a symbol across the project using AST analysis.

Usage:
- operation='preview' shows the changes without applying them
- operation='rename' applies the changes to disk
- scope limits the operation: 'project', 'file:<path>', or 'directory:<path>'
- Always preview before renaming in a large codebase`

// RefactorTool renames symbols through the refactor engine.
type RefactorTool struct {
	workDir string
	parser  *codeintel.Parser
	opts    refactor.Options
}

// NewRefactorTool creates the refactor tool rooted at workDir.
func NewRefactorTool(workDir string, parser *codeintel.Parser, opts refactor.Options) *RefactorTool {
	if parser == nil {
		parser = codeintel.DefaultParser()
	}
	return &RefactorTool{workDir: workDir, parser: parser, opts: opts}
}

// RefactorInput is the input for the refactor tool.
type RefactorInput struct {
	Operation string `json:"operation"`
	OldName   string `json:"old_name"`
	NewName   string `json:"new_name"`
	Scope     string `json:"scope,omitempty"`
}

func (t *RefactorTool) Name() string        { return "refactor" }
func (t *RefactorTool) Description() string { return refactorDescription }

func (t *RefactorTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"operation": {
				"type": "string",
				"enum": ["preview", "rename"],
				"description": "Preview the changes or apply them"
			},
			"old_name": {
				"type": "string",
				"description": "Current symbol name"
			},
			"new_name": {
				"type": "string",
				"description": "New symbol name"
			},
			"scope": {
				"type": "string",
				"description": "Scope: 'project', 'file:<path>', or 'directory:<path>' (default: project)"
			}
		},
		"required": ["operation", "old_name", "new_name"]
	}`)
}

func (t *RefactorTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params RefactorInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	root := t.workDir
	if tc != nil && tc.WorkDir != "" {
		root = tc.WorkDir
	}
	engine := refactor.NewEngine(root, t.parser, t.opts)

	var result *refactor.Result
	var err error
	switch params.Operation {
	case "preview":
		result, err = engine.Preview(ctx, params.OldName, params.NewName, params.Scope)
	case "rename":
		result, err = engine.Rename(ctx, params.OldName, params.NewName, params.Scope)
	default:
		return nil, fmt.Errorf("unknown operation %q", params.Operation)
	}
	if err != nil {
		return nil, err
	}

	if result.Applied {
		for _, fc := range result.Files {
			path := fc.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(root, path)
			}
			event.Publish(event.Event{
				Type: event.FileModified,
				Data: event.FileModifiedData{Path: path, Tool: t.Name()},
			})
		}
	}

	return &Result{
		Title:  fmt.Sprintf("%s: %s -> %s", result.Operation, result.OldName, result.NewName),
		Output: renderRefactorResult(result),
		Metadata: map[string]any{
			"operation":      result.Operation,
			"old_name":       result.OldName,
			"new_name":       result.NewName,
			"files_modified": result.FilesModified,
			"total_changes":  result.TotalChanges,
			"applied":        result.Applied,
		},
	}, nil
}

func renderRefactorResult(r *refactor.Result) string {
	if r.TotalChanges == 0 {
		return fmt.Sprintf("No occurrences of '%s' found", r.OldName)
	}

	var b strings.Builder
	verb := "Would rename"
	if r.Applied {
		verb = "Renamed"
	}
	fmt.Fprintf(&b, "%s '%s' to '%s': %d change(s) in %d file(s)",
		verb, r.OldName, r.NewName, r.TotalChanges, r.FilesModified)
	for _, fc := range r.Files {
		fmt.Fprintf(&b, "\n\n%s (%d change(s))", fc.File, len(fc.Changes))
		if !r.Applied && fc.Diff != "" {
			b.WriteString("\n")
			b.WriteString(fc.Diff)
		}
	}
	return b.String()
}
