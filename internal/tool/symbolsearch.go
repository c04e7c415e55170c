package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/quarry-ai/quarry/internal/codeintel"
)

const (
	defaultSymbolMaxResults = 100
	defaultMaxFilesToScan   = 5000
	defaultContextLines     = 2
)

var defaultSymbolExcludes = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/venv/**",
	"**/.venv/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
}

// SymbolSearchTool finds symbol definitions and references by AST
// analysis rather than text matching.
type SymbolSearchTool struct {
	workDir string
	parser  *codeintel.Parser

	maxFilesToScan int
	contextLines   int
	excludes       []string
}

// SymbolSearchOptions tunes scan limits.
type SymbolSearchOptions struct {
	MaxFilesToScan  int
	ContextLines    int
	ExcludePatterns []string
}

// NewSymbolSearchTool creates the symbol_search tool rooted at workDir.
func NewSymbolSearchTool(workDir string, parser *codeintel.Parser, opts SymbolSearchOptions) *SymbolSearchTool {
	if parser == nil {
		parser = codeintel.DefaultParser()
	}
	if opts.MaxFilesToScan <= 0 {
		opts.MaxFilesToScan = defaultMaxFilesToScan
	}
	if opts.ContextLines <= 0 {
		opts.ContextLines = defaultContextLines
	}
	if len(opts.ExcludePatterns) == 0 {
		opts.ExcludePatterns = defaultSymbolExcludes
	}
	return &SymbolSearchTool{
		workDir:        workDir,
		parser:         parser,
		maxFilesToScan: opts.MaxFilesToScan,
		contextLines:   opts.ContextLines,
		excludes:       opts.ExcludePatterns,
	}
}

// SymbolSearchInput is the tool's parameter payload.
type SymbolSearchInput struct {
	Symbol     string `json:"symbol"`
	Operation  string `json:"operation,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Language   string `json:"language,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// SymbolMatch is one search hit.
type SymbolMatch struct {
	File         string `json:"file"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
	Kind         string `json:"kind"`
	Context      string `json:"context"`
	IsDefinition bool   `json:"is_definition"`
}

func (t *SymbolSearchTool) Name() string { return "symbol_search" }

func (t *SymbolSearchTool) Description() string {
	return "Find symbol definitions and references using AST analysis. " +
		"Use operation='definition' to find where a symbol is defined, " +
		"'references' to find all usages, or 'all' for both."
}

func (t *SymbolSearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"symbol": {
				"type": "string",
				"description": "Symbol name to search for"
			},
			"operation": {
				"type": "string",
				"enum": ["definition", "references", "all"],
				"description": "Search operation (default: all)"
			},
			"scope": {
				"type": "string",
				"description": "Search scope: 'project', 'file:<path>', or 'directory:<path>'"
			},
			"language": {
				"type": "string",
				"description": "Language filter (auto-detected if not specified)"
			},
			"max_results": {
				"type": "integer",
				"description": "Maximum number of results to return (default: 100)"
			}
		},
		"required": ["symbol"]
	}`)
}

func (t *SymbolSearchTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params SymbolSearchInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	op := params.Operation
	switch op {
	case "":
		op = "all"
	case "definition", "references", "all":
	default:
		return nil, fmt.Errorf("unknown operation %q", params.Operation)
	}

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = defaultSymbolMaxResults
	}

	root := t.workDir
	if tc != nil && tc.WorkDir != "" {
		root = tc.WorkDir
	}

	files, err := t.filesToSearch(root, params.Scope, params.Language)
	if err != nil {
		return nil, err
	}
	if len(files) > t.maxFilesToScan {
		files = files[:t.maxFilesToScan]
	}

	var matches []SymbolMatch
	totalFound := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(matches) >= maxResults {
			break
		}
		for _, m := range t.searchFile(ctx, path, root, params.Symbol, op) {
			totalFound++
			if len(matches) < maxResults {
				matches = append(matches, m)
			}
		}
	}

	truncated := totalFound > len(matches)
	return &Result{
		Title:  fmt.Sprintf("%d match(es) for '%s'", totalFound, params.Symbol),
		Output: renderSymbolMatches(params.Symbol, matches, totalFound, truncated),
		Metadata: map[string]any{
			"symbol":    params.Symbol,
			"operation": op,
			"total":     totalFound,
			"returned":  len(matches),
			"truncated": truncated,
			"matches":   matches,
		},
	}, nil
}

func (t *SymbolSearchTool) filesToSearch(root, scope, language string) ([]string, error) {
	switch {
	case strings.HasPrefix(scope, "file:"):
		path := strings.TrimPrefix(scope, "file:")
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		if _, err := os.Stat(path); err != nil || !codeintel.IsSupportedFile(path) {
			return nil, nil
		}
		return []string{path}, nil

	case strings.HasPrefix(scope, "directory:"):
		dir := strings.TrimPrefix(scope, "directory:")
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		return t.collectFiles(dir, language)

	default:
		return t.collectFiles(root, language)
	}
}

func (t *SymbolSearchTool) collectFiles(root, language string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if rel != "." && t.excluded(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !codeintel.IsSupportedFile(path) || t.excluded(rel) {
			return nil
		}
		if language != "" && codeintel.LanguageForFile(path) != language {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func (t *SymbolSearchTool) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range t.excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		// "**/node_modules/**" should also exclude the directory itself.
		if trimmed := strings.TrimSuffix(pattern, "/**"); trimmed != pattern {
			if ok, _ := doublestar.Match(trimmed, strings.TrimSuffix(rel, "/")); ok {
				return true
			}
		}
	}
	return false
}

// searchFile reads the file once; the bytes feed both the parse and the
// reference scan.
func (t *SymbolSearchTool) searchFile(ctx context.Context, path, root, symbol, op string) []SymbolMatch {
	language := codeintel.LanguageForFile(path)
	if language == "" {
		return nil
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	tree := t.parser.ParseBytes(ctx, source, language)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	rel := relativePath(path, root)

	var matches []SymbolMatch
	if op == "definition" || op == "all" {
		for _, def := range codeintel.FindDefinitions(tree, language, source, symbol) {
			matches = append(matches, SymbolMatch{
				File:         rel,
				Line:         def.Line,
				Column:       def.Column,
				Kind:         string(def.Kind),
				Context:      codeintel.ContextLines(path, def.Line, t.contextLines, t.contextLines),
				IsDefinition: true,
			})
		}
	}
	if op == "references" || op == "all" {
		for _, ref := range codeintel.FindReferences(tree, language, source, symbol) {
			if op == "all" && ref.IsDefinition {
				continue
			}
			matches = append(matches, SymbolMatch{
				File:    rel,
				Line:    ref.Line,
				Column:  ref.Column,
				Kind:    "reference",
				Context: codeintel.ContextLines(path, ref.Line, t.contextLines, t.contextLines),
			})
		}
	}
	return matches
}

func renderSymbolMatches(symbol string, matches []SymbolMatch, total int, truncated bool) string {
	if total == 0 {
		return fmt.Sprintf("No matches found for '%s'", symbol)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d match(es) for '%s'", total, symbol)
	if truncated {
		b.WriteString(" (truncated)")
	}
	for _, m := range matches {
		kind := m.Kind
		if m.IsDefinition {
			kind += ", definition"
		}
		fmt.Fprintf(&b, "\n\n%s:%d:%d [%s]", m.File, m.Line, m.Column, kind)
		if m.Context != "" {
			b.WriteString("\n")
			b.WriteString(m.Context)
		}
	}
	return b.String()
}
