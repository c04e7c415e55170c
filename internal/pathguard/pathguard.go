// Package pathguard validates that file paths stay inside a project
// root. It rejects Windows device and UNC paths, directory traversal
// that escapes the root, and symlinks that point outside the root.
package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// SecurityError reports a path that failed validation.
type SecurityError struct {
	Path   string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("path %q rejected: %s", e.Path, e.Reason)
}

// Windows device paths (\\.\ or \\?\) bypass normal path parsing and
// can address raw devices. UNC paths reach remote shares.
var (
	devicePathPattern = regexp.MustCompile(`^(\\\\|//)[.?][\\/]`)
	uncPathPattern    = regexp.MustCompile(`^(\\\\|//)[^.?\\/]`)
)

// Options control optional checks.
type Options struct {
	// FollowSymlinks enables the per-component symlink walk. Each
	// symlink between the target and the root must resolve inside
	// the root.
	FollowSymlinks bool
	// WindowsRules forces the device/UNC prefix checks regardless of
	// the host OS. They always apply when running on Windows.
	WindowsRules bool
}

// Validate reports whether path is safe to touch under projectRoot.
// A nil return means the path passed every check.
func Validate(path, projectRoot string, opts Options) error {
	if path == "" {
		return &SecurityError{Path: path, Reason: "empty path"}
	}

	if runtime.GOOS == "windows" || opts.WindowsRules {
		if devicePathPattern.MatchString(path) {
			return &SecurityError{Path: path, Reason: "device path not allowed"}
		}
		if uncPathPattern.MatchString(path) {
			return &SecurityError{Path: path, Reason: "UNC path not allowed"}
		}
	}

	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return &SecurityError{Path: path, Reason: fmt.Sprintf("cannot resolve project root: %v", err)}
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(absRoot, abs)
	}
	abs = filepath.Clean(abs)

	if !within(abs, absRoot) {
		return &SecurityError{Path: path, Reason: "outside project root"}
	}

	if opts.FollowSymlinks {
		if err := checkSymlinks(abs, absRoot); err != nil {
			return err
		}
	}

	return nil
}

// within reports whether abs is absRoot or a descendant of it.
func within(abs, absRoot string) bool {
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// checkSymlinks walks each path component from the leaf up to the
// root. Any component that is a symlink must resolve to a target
// inside the root. Components that do not exist yet are treated as
// plain names.
func checkSymlinks(abs, absRoot string) error {
	current := abs
	for within(current, absRoot) && current != absRoot {
		info, err := os.Lstat(current)
		if err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(current)
			if err != nil {
				return &SecurityError{Path: abs, Reason: fmt.Sprintf("cannot resolve symlink %q", current)}
			}
			if !within(resolved, absRoot) {
				return &SecurityError{Path: abs, Reason: fmt.Sprintf("symlink %q escapes project root", current)}
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return nil
}
