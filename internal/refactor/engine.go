// Package refactor renames symbols across files using AST references.
package refactor

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/quarry-ai/quarry/internal/codeintel"
	"github.com/quarry-ai/quarry/internal/logging"
)

// Op selects preview or apply behavior.
type Op int

const (
	OpPreview Op = iota
	OpRename
)

func (op Op) String() string {
	if op == OpRename {
		return "rename"
	}
	return "preview"
}

// DefaultMaxFiles caps how many files one operation may touch.
const DefaultMaxFiles = 100

var defaultExcludes = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/venv/**",
	"**/.venv/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
}

// Change is one symbol occurrence to rewrite.
type Change struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	OldText string `json:"old_text"`
	NewText string `json:"new_text"`
}

// FileChanges collects the changes and rendered diff for one file.
type FileChanges struct {
	File    string   `json:"file"`
	Changes []Change `json:"changes"`
	Diff    string   `json:"diff"`
}

// Result summarizes a refactor operation.
type Result struct {
	Operation     string        `json:"operation"`
	OldName       string        `json:"old_name"`
	NewName       string        `json:"new_name"`
	FilesModified int           `json:"files_modified"`
	TotalChanges  int           `json:"total_changes"`
	Files         []FileChanges `json:"file_changes"`
	Applied       bool          `json:"applied"`
}

// Options tunes an Engine.
type Options struct {
	MaxFiles        int
	BackupFiles     bool
	ExcludePatterns []string
}

// Engine computes and applies cross-file renames.
type Engine struct {
	root   string
	parser *codeintel.Parser

	maxFiles int
	backup   bool
	excludes []string
}

// NewEngine creates an engine rooted at projectRoot.
func NewEngine(projectRoot string, parser *codeintel.Parser, opts Options) *Engine {
	if parser == nil {
		parser = codeintel.DefaultParser()
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if len(opts.ExcludePatterns) == 0 {
		opts.ExcludePatterns = defaultExcludes
	}
	return &Engine{
		root:     projectRoot,
		parser:   parser,
		maxFiles: opts.MaxFiles,
		backup:   opts.BackupFiles,
		excludes: opts.ExcludePatterns,
	}
}

// Preview computes the rename without touching any file.
func (e *Engine) Preview(ctx context.Context, oldName, newName, scope string) (*Result, error) {
	return e.run(ctx, OpPreview, oldName, newName, scope)
}

// Rename computes and applies the rename.
func (e *Engine) Rename(ctx context.Context, oldName, newName, scope string) (*Result, error) {
	return e.run(ctx, OpRename, oldName, newName, scope)
}

func (e *Engine) run(ctx context.Context, op Op, oldName, newName, scope string) (*Result, error) {
	if strings.TrimSpace(oldName) == "" {
		return nil, fmt.Errorf("old_name cannot be empty")
	}
	if strings.TrimSpace(newName) == "" {
		return nil, fmt.Errorf("new_name cannot be empty")
	}
	if oldName == newName {
		return nil, fmt.Errorf("old_name and new_name are the same")
	}

	files, err := e.filesInScope(scope)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Operation: op.String(),
		OldName:   oldName,
		NewName:   newName,
	}
	if len(files) == 0 {
		return result, nil
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fc, ok := e.computeFileChanges(ctx, path, oldName, newName)
		if !ok {
			continue
		}
		result.Files = append(result.Files, fc)
		result.TotalChanges += len(fc.Changes)
	}
	result.FilesModified = len(result.Files)

	if op == OpRename && len(result.Files) > 0 {
		if err := e.apply(result.Files); err != nil {
			return nil, err
		}
		result.Applied = true
	}
	return result, nil
}

func (e *Engine) filesInScope(scope string) ([]string, error) {
	switch {
	case strings.HasPrefix(scope, "file:"):
		path := strings.TrimPrefix(scope, "file:")
		if !filepath.IsAbs(path) {
			path = filepath.Join(e.root, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, nil
		}
		if !codeintel.IsSupportedFile(path) {
			// Refactoring is pure AST work; an unsupported target is an error.
			return nil, fmt.Errorf("%w: %s", codeintel.ErrParserUnavailable, path)
		}
		return []string{path}, nil

	case strings.HasPrefix(scope, "directory:"):
		dir := strings.TrimPrefix(scope, "directory:")
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(e.root, dir)
		}
		return e.collectFiles(dir)

	default:
		return e.collectFiles(e.root)
	}
}

func (e *Engine) collectFiles(root string) ([]string, error) {
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
			if rel != "." && e.excluded(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !codeintel.IsSupportedFile(path) || e.excluded(rel) {
			return nil
		}
		files = append(files, path)
		if len(files) >= e.maxFiles {
			return filepath.SkipAll
		}
		return nil
	})
	return files, err
}

func (e *Engine) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range e.excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if trimmed := strings.TrimSuffix(pattern, "/**"); trimmed != pattern {
			if ok, _ := doublestar.Match(trimmed, strings.TrimSuffix(rel, "/")); ok {
				return true
			}
		}
	}
	return false
}

func (e *Engine) computeFileChanges(ctx context.Context, path, oldName, newName string) (FileChanges, bool) {
	language := codeintel.LanguageForFile(path)
	if language == "" {
		return FileChanges{}, false
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return FileChanges{}, false
	}
	tree := e.parser.ParseBytes(ctx, source, language)
	if tree == nil {
		return FileChanges{}, false
	}
	defer tree.Close()

	refs := codeintel.FindReferences(tree, language, source, oldName)
	if len(refs) == 0 {
		return FileChanges{}, false
	}

	changes := make([]Change, 0, len(refs))
	for _, ref := range refs {
		changes = append(changes, Change{
			Line:    ref.Line,
			Column:  ref.Column,
			OldText: oldName,
			NewText: newName,
		})
	}

	before := string(source)
	after := applyChanges(before, changes)
	rel := relPath(path, e.root)
	return FileChanges{
		File:    rel,
		Changes: changes,
		Diff:    unifiedDiff(before, after, rel),
	}, true
}

// applyChanges rewrites occurrences grouped by line, replacing columns
// right to left so earlier edits never shift pending column offsets.
func applyChanges(text string, changes []Change) string {
	lines := strings.Split(text, "\n")

	byLine := make(map[int][]Change)
	for _, c := range changes {
		byLine[c.Line] = append(byLine[c.Line], c)
	}

	for lineNum, lineChanges := range byLine {
		if lineNum < 1 || lineNum > len(lines) {
			continue
		}
		sort.Slice(lineChanges, func(i, j int) bool {
			return lineChanges[i].Column > lineChanges[j].Column
		})

		line := lines[lineNum-1]
		for _, c := range lineChanges {
			end := c.Column + len(c.OldText)
			if c.Column < 0 || end > len(line) {
				continue
			}
			line = line[:c.Column] + c.NewText + line[end:]
		}
		lines[lineNum-1] = line
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) apply(fileChanges []FileChanges) error {
	for _, fc := range fileChanges {
		path := filepath.Join(e.root, fc.File)
		if filepath.IsAbs(fc.File) {
			path = fc.File
		}

		source, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", fc.File, err)
		}

		if e.backup {
			// Backup failures never abort the rename.
			if err := os.WriteFile(path+".bak", source, 0o644); err != nil {
				logging.Warn().Err(err).Str("path", path).Msg("backup failed")
			}
		}

		newText := applyChanges(string(source), fc.Changes)
		if err := os.WriteFile(path, []byte(newText), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", fc.File, err)
		}

		e.parser.Invalidate(path)
		codeintel.InvalidateFile(path)
	}
	return nil
}

func relPath(path, root string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
