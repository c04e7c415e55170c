package codeintel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// fileCache caches file contents as lines for context rendering. Writers
// invalidate entries after modifying files.
type fileCache struct {
	mu    sync.Mutex
	lines map[string][]string
}

var contents = &fileCache{lines: make(map[string][]string)}

func (c *fileCache) get(path string) []string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if lines, ok := c.lines[abs]; ok {
		return lines
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		c.lines[abs] = nil
		return nil
	}
	lines := strings.Split(string(data), "\n")
	c.lines[abs] = lines
	return lines
}

// InvalidateFile drops cached content for one file.
func InvalidateFile(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	contents.mu.Lock()
	delete(contents.lines, abs)
	contents.mu.Unlock()
}

// ClearFileCache drops all cached file content.
func ClearFileCache() {
	contents.mu.Lock()
	contents.lines = make(map[string][]string)
	contents.mu.Unlock()
}

// ContextLines renders numbered lines around a target line (1-indexed),
// marking the target with ">". Returns "" if the file cannot be read.
func ContextLines(path string, line, before, after int) string {
	lines := contents.get(path)
	if len(lines) == 0 {
		return ""
	}

	start := line - 1 - before
	if start < 0 {
		start = 0
	}
	end := line + after
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		marker := " "
		if i == line-1 {
			marker = ">"
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %4d | %s", marker, i+1, lines[i])
	}
	return b.String()
}
