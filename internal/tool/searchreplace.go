package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/quarry-ai/quarry/internal/event"
	"github.com/quarry-ai/quarry/internal/pathguard"
)

const searchReplaceDescription = `Performs exact string replacements in files.

Usage:
- The path may be absolute or relative to the working directory
- The old_string must exist in the file (exact match required)
- The new_string will replace old_string
- Use replace_all to replace all occurrences
- The edit will FAIL if old_string is not unique (unless using replace_all)`

// fuzzyMatchThreshold is the minimum similarity for a fuzzy fallback
// replacement when the exact string is not found.
const fuzzyMatchThreshold = 0.7

// SearchReplaceTool edits files by string replacement, falling back to
// line-ending normalization and fuzzy matching when the exact string
// is not present.
type SearchReplaceTool struct {
	workDir string
	guard   pathguard.Options
}

// SearchReplaceInput is the input for the search_replace tool.
type SearchReplaceInput struct {
	Path       string `json:"path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

// NewSearchReplaceTool creates a search_replace tool rooted at workDir.
func NewSearchReplaceTool(workDir string, guard pathguard.Options) *SearchReplaceTool {
	return &SearchReplaceTool{workDir: workDir, guard: guard}
}

func (t *SearchReplaceTool) Name() string        { return "search_replace" }
func (t *SearchReplaceTool) Description() string { return searchReplaceDescription }

func (t *SearchReplaceTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "The path to the file to edit"
			},
			"old_string": {
				"type": "string",
				"description": "The exact text to replace"
			},
			"new_string": {
				"type": "string",
				"description": "The text to replace it with"
			},
			"replace_all": {
				"type": "boolean",
				"description": "Replace all occurrences (default: false)"
			}
		},
		"required": ["path", "old_string", "new_string"]
	}`)
}

func (t *SearchReplaceTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params SearchReplaceInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.OldString == params.NewString {
		return nil, fmt.Errorf("old_string and new_string must be different")
	}

	root := t.workDir
	if tc != nil && tc.WorkDir != "" {
		root = tc.WorkDir
	}
	path, err := resolveWithin(params.Path, root, t.guard)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	text := string(content)

	count := strings.Count(text, params.OldString)
	if count == 0 {
		return t.fuzzyReplace(path, root, text, params)
	}

	var newText string
	if params.ReplaceAll {
		newText = strings.ReplaceAll(text, params.OldString, params.NewString)
	} else {
		if count > 1 {
			return nil, fmt.Errorf("old_string appears %d times in file. Use replace_all or provide more context", count)
		}
		newText = strings.Replace(text, params.OldString, params.NewString, 1)
		count = 1
	}

	return t.commit(path, root, text, newText, count, "")
}

// fuzzyReplace looks for a near match when the exact string is absent:
// first with normalized line endings, then by levenshtein similarity
// over line windows.
func (t *SearchReplaceTool) fuzzyReplace(path, root, text string, params SearchReplaceInput) (*Result, error) {
	normalizedOld := normalizeLineEndings(params.OldString)
	normalizedText := normalizeLineEndings(text)

	if strings.Contains(normalizedText, normalizedOld) {
		newText := strings.Replace(normalizedText, normalizedOld, params.NewString, 1)
		return t.commit(path, root, text, newText, 1, "line ending normalization")
	}

	match, sim := findBestMatch(text, params.OldString)
	if match != "" && sim >= fuzzyMatchThreshold {
		newText := strings.Replace(text, match, params.NewString, 1)
		return t.commit(path, root, text, newText, 1, fmt.Sprintf("%.0f%% similarity", sim*100))
	}

	return nil, fmt.Errorf("old_string not found in file. The content may have changed or the string doesn't exist")
}

func (t *SearchReplaceTool) commit(path, root, before, after string, count int, note string) (*Result, error) {
	if err := os.WriteFile(path, []byte(after), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	event.Publish(event.Event{
		Type: event.FileModified,
		Data: event.FileModifiedData{Path: path, Tool: t.Name()},
	})

	diff := diffFile(path, before, after, root)

	output := fmt.Sprintf("Replaced %d occurrence(s)", count)
	if note != "" {
		output = fmt.Sprintf("Replaced %d occurrence(s) (%s)", count, note)
	}
	return &Result{
		Title:  fmt.Sprintf("Edited %s", filepath.Base(path)),
		Output: output,
		Metadata: diff.metadata(map[string]any{
			"file":         path,
			"replacements": count,
		}),
	}, nil
}

func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// findBestMatch finds the substring of text most similar to target,
// comparing line windows of the target's height.
func findBestMatch(text, target string) (string, float64) {
	lines := strings.Split(text, "\n")
	targetLines := strings.Split(target, "\n")

	if len(targetLines) == 1 {
		bestMatch := ""
		bestSimilarity := 0.0
		for _, line := range lines {
			if sim := similarity(line, target); sim > bestSimilarity {
				bestSimilarity = sim
				bestMatch = line
			}
		}
		return bestMatch, bestSimilarity
	}

	targetLen := len(targetLines)
	bestMatch := ""
	bestSimilarity := 0.0
	for i := 0; i <= len(lines)-targetLen; i++ {
		block := strings.Join(lines[i:i+targetLen], "\n")
		if sim := similarity(block, target); sim > bestSimilarity {
			bestSimilarity = sim
			bestMatch = block
		}
	}
	return bestMatch, bestSimilarity
}

// similarity is normalized levenshtein similarity in [0,1].
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	// Length-ratio approximation keeps pathological inputs cheap.
	if len(a) > 10000 || len(b) > 10000 {
		maxLen := max(len(a), len(b))
		minLen := min(len(a), len(b))
		return float64(minLen) / float64(maxLen)
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(max(len(a), len(b)))
}
