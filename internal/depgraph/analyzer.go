// Package depgraph analyzes import relationships between source files.
package depgraph

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/quarry-ai/quarry/internal/codeintel"
)

// Op selects the analysis to run.
type Op int

const (
	OpImports Op = iota
	OpDependents
	OpGraph
)

func (op Op) String() string {
	switch op {
	case OpDependents:
		return "dependents"
	case OpGraph:
		return "graph"
	default:
		return "imports"
	}
}

// DefaultMaxFilesToScan bounds project-wide scans.
const DefaultMaxFilesToScan = 5000

var defaultExcludes = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/venv/**",
	"**/.venv/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
}

// ImportInfo describes one import found in a file.
type ImportInfo struct {
	SourceFile     string   `json:"source_file"`
	ImportedModule string   `json:"imported_module"`
	ImportedNames  []string `json:"imported_names,omitempty"`
	Line           int      `json:"line"`
	IsRelative     bool     `json:"is_relative"`
}

// Result holds the output of one analysis.
type Result struct {
	Target     string              `json:"target"`
	Operation  string              `json:"operation"`
	Imports    []ImportInfo        `json:"imports,omitempty"`
	Dependents []string            `json:"dependents,omitempty"`
	Graph      map[string][]string `json:"graph,omitempty"`
}

// Options tunes an Analyzer.
type Options struct {
	MaxFilesToScan  int
	ExcludePatterns []string
}

// Analyzer walks import declarations across a project.
type Analyzer struct {
	root   string
	parser *codeintel.Parser

	maxFilesToScan int
	excludes       []string
}

// NewAnalyzer creates an analyzer rooted at projectRoot.
func NewAnalyzer(projectRoot string, parser *codeintel.Parser, opts Options) *Analyzer {
	if parser == nil {
		parser = codeintel.DefaultParser()
	}
	if opts.MaxFilesToScan <= 0 {
		opts.MaxFilesToScan = DefaultMaxFilesToScan
	}
	if len(opts.ExcludePatterns) == 0 {
		opts.ExcludePatterns = defaultExcludes
	}
	return &Analyzer{
		root:           projectRoot,
		parser:         parser,
		maxFilesToScan: opts.MaxFilesToScan,
		excludes:       opts.ExcludePatterns,
	}
}

// Imports lists what the target file imports.
func (a *Analyzer) Imports(ctx context.Context, target string) (*Result, error) {
	path := a.absPath(target)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file not found: %s", target)
	}

	imports, err := a.fileImports(ctx, path)
	if err != nil {
		return nil, err
	}

	rel := a.relPath(path)
	rows := make([]ImportInfo, 0, len(imports))
	for _, imp := range imports {
		rows = append(rows, ImportInfo{
			SourceFile:     rel,
			ImportedModule: imp.Module,
			ImportedNames:  imp.Names,
			Line:           imp.Line,
			IsRelative:     imp.IsRelative,
		})
	}

	return &Result{Target: rel, Operation: OpImports.String(), Imports: rows}, nil
}

// Dependents lists project files whose imports resolve to the target.
func (a *Analyzer) Dependents(ctx context.Context, target string) (*Result, error) {
	targetPath := a.absPath(target)
	targetRel := a.relPath(targetPath)
	targetModule := pathToModule(targetRel)

	files, err := a.collectFiles(a.root)
	if err != nil {
		return nil, err
	}

	var dependents []string
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if path == targetPath {
			continue
		}
		imports, err := a.fileImports(ctx, path)
		if err != nil {
			continue
		}
		for _, imp := range imports {
			if a.importMatchesTarget(imp, path, targetRel, targetModule) {
				dependents = append(dependents, a.relPath(path))
				break
			}
		}
	}

	return &Result{Target: targetRel, Operation: OpDependents.String(), Dependents: dependents}, nil
}

// Graph builds an adjacency map of project-relative paths by BFS from
// the start file. Cycles stop expansion at revisited nodes.
func (a *Analyzer) Graph(ctx context.Context, start string, depth int) (*Result, error) {
	startPath := a.absPath(start)
	if _, err := os.Stat(startPath); err != nil {
		return nil, fmt.Errorf("file not found: %s", start)
	}
	if depth < 0 {
		depth = 0
	}

	graph := make(map[string][]string)
	visited := make(map[string]bool)

	type queueItem struct {
		path  string
		depth int
	}
	queue := []queueItem{{startPath, 0}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := queue[0]
		queue = queue[1:]

		if item.depth > depth {
			continue
		}
		rel := a.relPath(item.path)
		if visited[rel] {
			continue
		}
		visited[rel] = true

		imports, err := a.fileImports(ctx, item.path)
		if err != nil {
			continue
		}
		for _, imp := range imports {
			resolved := a.resolveImport(imp, item.path)
			if resolved == "" {
				continue
			}
			graph[rel] = append(graph[rel], resolved)
			resolvedPath := filepath.Join(a.root, resolved)
			if _, err := os.Stat(resolvedPath); err == nil && !visited[resolved] {
				queue = append(queue, queueItem{resolvedPath, item.depth + 1})
			}
		}
	}

	return &Result{Target: a.relPath(startPath), Operation: OpGraph.String(), Graph: graph}, nil
}

func (a *Analyzer) fileImports(ctx context.Context, path string) ([]codeintel.Import, error) {
	language := codeintel.LanguageForFile(path)
	if language == "" {
		return nil, fmt.Errorf("%w: %s", codeintel.ErrParserUnavailable, path)
	}
	tree, source := a.parser.ParseFile(ctx, path)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse: %s", path)
	}
	return codeintel.FindImports(tree, language, source), nil
}

func (a *Analyzer) collectFiles(root string) ([]string, error) {
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
			if rel != "." && a.excluded(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !codeintel.IsSupportedFile(path) || a.excluded(rel) {
			return nil
		}
		files = append(files, path)
		if len(files) >= a.maxFilesToScan {
			return filepath.SkipAll
		}
		return nil
	})
	return files, err
}

func (a *Analyzer) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range a.excludes {
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

func (a *Analyzer) importMatchesTarget(imp codeintel.Import, sourceFile, targetRel, targetModule string) bool {
	if imp.Module == targetModule {
		return true
	}
	if strings.HasPrefix(targetModule, imp.Module+".") {
		return true
	}
	if imp.IsRelative {
		if resolved := a.resolveImport(imp, sourceFile); resolved != "" {
			return resolved == targetRel
		}
	}
	return false
}

// resolveImport maps an import to a project-relative file path, or ""
// when the module lives outside the project.
func (a *Analyzer) resolveImport(imp codeintel.Import, sourceFile string) string {
	modulePath := strings.ReplaceAll(imp.Module, ".", "/")

	var candidates []string
	if imp.IsRelative {
		sourceDir := filepath.Dir(sourceFile)
		candidates = []string{
			filepath.Join(sourceDir, modulePath+".py"),
			filepath.Join(sourceDir, modulePath, "__init__.py"),
			filepath.Join(sourceDir, modulePath+".ts"),
			filepath.Join(sourceDir, modulePath+".js"),
		}
	} else {
		candidates = []string{
			filepath.Join(a.root, modulePath+".py"),
			filepath.Join(a.root, modulePath, "__init__.py"),
			filepath.Join(a.root, modulePath+".ts"),
			filepath.Join(a.root, modulePath+".js"),
			filepath.Join(a.root, modulePath+".tsx"),
			filepath.Join(a.root, modulePath+".jsx"),
		}
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			if rel, err := filepath.Rel(a.root, candidate); err == nil && !strings.HasPrefix(rel, "..") {
				return filepath.ToSlash(rel)
			}
		}
	}

	// JS/TS specifiers keep their slashes, so the dot-to-slash mapping
	// above misses aliased and bare package imports.
	if strings.Contains(imp.Module, "/") || imp.IsRelative {
		resolver := codeintel.NewImportResolver(a.root)
		if resolved := resolver.Resolve(imp.Module, sourceFile); resolved != "" {
			if rel, err := filepath.Rel(a.root, resolved); err == nil && !strings.HasPrefix(rel, "..") {
				return filepath.ToSlash(rel)
			}
		}
	}

	return ""
}

func (a *Analyzer) absPath(target string) string {
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(a.root, target)
}

func (a *Analyzer) relPath(path string) string {
	if rel, err := filepath.Rel(a.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// pathToModule converts a project-relative file path to a dotted module
// name, mirroring how python and js projects name modules.
func pathToModule(path string) string {
	for _, ext := range []string{".py", ".ts", ".js", ".tsx", ".jsx"} {
		if strings.HasSuffix(path, ext) {
			path = strings.TrimSuffix(path, ext)
			break
		}
	}
	path = filepath.ToSlash(path)
	return strings.ReplaceAll(path, "/", ".")
}
