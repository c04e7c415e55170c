package codeintel

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/jsonc"
)

// resolveExtensions are probed in order when an import path has no
// extension on disk.
var resolveExtensions = []string{"", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".json"}

var indexFiles = []string{"index.ts", "index.tsx", "index.js", "index.jsx", "index.mjs"}

// ImportResolver resolves import specifiers to files, with JS/TS
// ecosystem awareness (tsconfig paths, package exports, workspaces,
// node_modules).
type ImportResolver struct {
	ProjectRoot string

	baseURL        string
	tsconfigPaths  map[string][]string
	packageExports map[string]map[string]string
	workspaces     []string
}

// NewImportResolver loads resolution config from tsconfig.json and
// package.json under the project root. Missing or malformed config files
// are ignored.
func NewImportResolver(projectRoot string) *ImportResolver {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		root = projectRoot
	}
	r := &ImportResolver{
		ProjectRoot:    root,
		tsconfigPaths:  make(map[string][]string),
		packageExports: make(map[string]map[string]string),
	}
	r.loadTsconfig()
	r.loadPackageJSON()
	return r
}

func (r *ImportResolver) loadTsconfig() {
	data, err := os.ReadFile(filepath.Join(r.ProjectRoot, "tsconfig.json"))
	if err != nil {
		return
	}

	var tsconfig struct {
		CompilerOptions struct {
			BaseURL string              `json:"baseUrl"`
			Paths   map[string][]string `json:"paths"`
		} `json:"compilerOptions"`
	}
	// tsconfig.json routinely carries comments and trailing commas.
	if err := json.Unmarshal(jsonc.ToJSON(data), &tsconfig); err != nil {
		return
	}

	if tsconfig.CompilerOptions.Paths != nil {
		r.tsconfigPaths = tsconfig.CompilerOptions.Paths
	}
	baseURL := tsconfig.CompilerOptions.BaseURL
	if baseURL == "" {
		baseURL = "."
	}
	r.baseURL = filepath.Join(r.ProjectRoot, baseURL)
}

func (r *ImportResolver) loadPackageJSON() {
	data, err := os.ReadFile(filepath.Join(r.ProjectRoot, "package.json"))
	if err != nil {
		return
	}

	var pkg struct {
		Workspaces json.RawMessage `json:"workspaces"`
		Exports    json.RawMessage `json:"exports"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return
	}

	for _, ws := range parseWorkspaces(pkg.Workspaces) {
		if strings.Contains(ws, "*") {
			matches, err := doublestar.Glob(os.DirFS(r.ProjectRoot), ws)
			if err != nil {
				continue
			}
			for _, match := range matches {
				full := filepath.Join(r.ProjectRoot, match)
				if info, err := os.Stat(full); err == nil && info.IsDir() {
					r.workspaces = append(r.workspaces, full)
				}
			}
		} else {
			full := filepath.Join(r.ProjectRoot, ws)
			if info, err := os.Stat(full); err == nil && info.IsDir() {
				r.workspaces = append(r.workspaces, full)
			}
		}
	}

	if len(pkg.Exports) > 0 {
		if exports := parseExports(pkg.Exports); len(exports) > 0 {
			r.packageExports[""] = exports
		}
	}
}

func parseWorkspaces(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Packages
	}
	return nil
}

// parseExports flattens a package.json exports field, picking the first
// matching conditional key and following one level of nesting.
func parseExports(raw json.RawMessage) map[string]string {
	result := make(map[string]string)

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		result["."] = single
		return result
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return result
	}

	for key, value := range obj {
		var target string
		if err := json.Unmarshal(value, &target); err == nil {
			result[key] = target
			continue
		}

		var conditional map[string]json.RawMessage
		if err := json.Unmarshal(value, &conditional); err != nil {
			continue
		}
		for _, condition := range []string{"import", "require", "default", "types"} {
			condValue, ok := conditional[condition]
			if !ok {
				continue
			}
			if err := json.Unmarshal(condValue, &target); err == nil {
				result[key] = target
				break
			}
			var nested map[string]string
			if err := json.Unmarshal(condValue, &nested); err == nil {
				for _, nestedCond := range []string{"default", "import", "require"} {
					if t, ok := nested[nestedCond]; ok {
						result[key] = t
						break
					}
				}
				if _, ok := result[key]; ok {
					break
				}
			}
		}
	}
	return result
}

// Resolve maps an import specifier to a file path. Resolution is
// best-effort; "" means nothing matched.
func (r *ImportResolver) Resolve(importPath, fromFile string) string {
	if strings.HasPrefix(importPath, ".") {
		return r.resolveRelative(importPath, fromFile)
	}
	if resolved := r.resolveTsconfigPath(importPath); resolved != "" {
		return resolved
	}
	if resolved := r.resolvePackageExports(importPath); resolved != "" {
		return resolved
	}
	if resolved := r.resolveWorkspace(importPath); resolved != "" {
		return resolved
	}
	if resolved := r.resolveNodeModules(importPath, fromFile); resolved != "" {
		return resolved
	}
	return tryResolvePath(filepath.Join(r.ProjectRoot, importPath))
}

func (r *ImportResolver) resolveRelative(importPath, fromFile string) string {
	baseDir := fromFile
	if info, err := os.Stat(fromFile); err == nil && !info.IsDir() {
		baseDir = filepath.Dir(fromFile)
	} else if err != nil {
		baseDir = filepath.Dir(fromFile)
	}
	return tryResolvePath(filepath.Join(baseDir, importPath))
}

func (r *ImportResolver) resolveTsconfigPath(importPath string) string {
	baseURL := r.baseURL
	if baseURL == "" {
		baseURL = r.ProjectRoot
	}

	for pattern, targets := range r.tsconfigPaths {
		if strings.HasSuffix(pattern, "/*") {
			prefix := pattern[:len(pattern)-2]
			if !strings.HasPrefix(importPath, prefix+"/") {
				continue
			}
			remainder := importPath[len(prefix)+1:]
			for _, target := range targets {
				if !strings.HasSuffix(target, "/*") {
					continue
				}
				targetBase := target[:len(target)-2]
				if resolved := tryResolvePath(filepath.Join(baseURL, targetBase, remainder)); resolved != "" {
					return resolved
				}
			}
		} else if pattern == importPath {
			for _, target := range targets {
				if resolved := tryResolvePath(filepath.Join(baseURL, target)); resolved != "" {
					return resolved
				}
			}
		}
	}
	return ""
}

func (r *ImportResolver) resolvePackageExports(importPath string) string {
	for pkgName, exports := range r.packageExports {
		if pkgName != "" && !strings.HasPrefix(importPath, pkgName) {
			continue
		}
		subpath := strings.TrimPrefix(importPath, pkgName)
		if strings.HasPrefix(subpath, "/") {
			subpath = "." + subpath
		} else if subpath == "" {
			subpath = "."
		}
		if target, ok := exports[subpath]; ok {
			if resolved := tryResolvePath(filepath.Join(r.ProjectRoot, target)); resolved != "" {
				return resolved
			}
		}
	}
	return ""
}

func (r *ImportResolver) resolveWorkspace(importPath string) string {
	for _, workspace := range r.workspaces {
		data, err := os.ReadFile(filepath.Join(workspace, "package.json"))
		if err != nil {
			continue
		}
		var pkg struct {
			Name   string `json:"name"`
			Main   string `json:"main"`
			Module string `json:"module"`
		}
		if err := json.Unmarshal(data, &pkg); err != nil || pkg.Name == "" {
			continue
		}

		if importPath == pkg.Name {
			entry := pkg.Module
			if entry == "" {
				entry = pkg.Main
			}
			if entry == "" {
				entry = "index.js"
			}
			if resolved := tryResolvePath(filepath.Join(workspace, entry)); resolved != "" {
				return resolved
			}
		} else if strings.HasPrefix(importPath, pkg.Name+"/") {
			subpath := importPath[len(pkg.Name)+1:]
			if resolved := tryResolvePath(filepath.Join(workspace, subpath)); resolved != "" {
				return resolved
			}
		}
	}
	return ""
}

func (r *ImportResolver) resolveNodeModules(importPath, fromFile string) string {
	current := fromFile
	if info, err := os.Stat(fromFile); err != nil || !info.IsDir() {
		current = filepath.Dir(fromFile)
	}

	for {
		nodeModules := filepath.Join(current, "node_modules")
		if info, err := os.Stat(nodeModules); err == nil && info.IsDir() {
			if resolved := tryResolvePath(filepath.Join(nodeModules, importPath)); resolved != "" {
				return resolved
			}

			pkgName, subpath := splitPackagePath(importPath)
			pkgDir := filepath.Join(nodeModules, pkgName)
			if data, err := os.ReadFile(filepath.Join(pkgDir, "package.json")); err == nil {
				var pkg struct {
					Main   string `json:"main"`
					Module string `json:"module"`
				}
				if err := json.Unmarshal(data, &pkg); err == nil {
					if subpath != "" {
						if resolved := tryResolvePath(filepath.Join(pkgDir, subpath)); resolved != "" {
							return resolved
						}
					} else {
						entry := pkg.Module
						if entry == "" {
							entry = pkg.Main
						}
						if entry == "" {
							entry = "index.js"
						}
						if resolved := tryResolvePath(filepath.Join(pkgDir, entry)); resolved != "" {
							return resolved
						}
					}
				}
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// splitPackagePath separates a bare specifier into package name and
// subpath, handling scoped packages.
func splitPackagePath(importPath string) (string, string) {
	parts := strings.Split(importPath, "/")
	if strings.HasPrefix(parts[0], "@") && len(parts) > 1 {
		return strings.Join(parts[:2], "/"), strings.Join(parts[2:], "/")
	}
	return parts[0], strings.Join(parts[1:], "/")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// tryResolvePath probes a candidate path: exact, with replaced or
// appended extensions, then as a directory with an index file.
func tryResolvePath(path string) string {
	if isFile(path) {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for _, candidate := range resolveExtensions[1:] {
		if replaced := stem + candidate; isFile(replaced) {
			return replaced
		}
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		for _, index := range indexFiles {
			if candidate := filepath.Join(path, index); isFile(candidate) {
				return candidate
			}
		}
	}

	for _, candidate := range resolveExtensions[1:] {
		if appended := path + candidate; isFile(appended) {
			return appended
		}
	}
	return ""
}

// FindProjectRoot walks up from a file looking for package.json or
// tsconfig.json, falling back to the file's directory.
func FindProjectRoot(fromFile string) string {
	start := fromFile
	if info, err := os.Stat(fromFile); err != nil || !info.IsDir() {
		start = filepath.Dir(fromFile)
	}
	for current := start; ; {
		if isFile(filepath.Join(current, "package.json")) || isFile(filepath.Join(current, "tsconfig.json")) {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return start
		}
		current = parent
	}
}
