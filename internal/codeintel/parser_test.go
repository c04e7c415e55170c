package codeintel

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLanguageForFile(t *testing.T) {
	assert.Equal(t, "python", LanguageForFile("app/main.py"))
	assert.Equal(t, "go", LanguageForFile("main.go"))
	assert.Equal(t, "typescript", LanguageForFile("src/index.ts"))
	assert.Equal(t, "tsx", LanguageForFile("src/App.tsx"))
	assert.Equal(t, "cpp", LanguageForFile("lib.CC"))
	assert.Equal(t, "", LanguageForFile("notes.txt"))
	assert.Equal(t, "", LanguageForFile("Makefile"))
}

func TestParseFile_CachesByMtime(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")

	p := NewParser()
	ctx := context.Background()

	tree1, src1 := p.ParseFile(ctx, path)
	require.NotNil(t, tree1)
	assert.Contains(t, string(src1), "func main")

	tree2, _ := p.ParseFile(ctx, path)
	assert.Same(t, tree1, tree2, "unchanged file should hit the cache")

	// Rewrite with a distinct mtime.
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc other() {}\n"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	tree3, src3 := p.ParseFile(ctx, path)
	require.NotNil(t, tree3)
	assert.NotSame(t, tree1, tree3)
	assert.Contains(t, string(src3), "func other")
}

func TestParseFile_Invalidate(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.py", "x = 1\n")

	p := NewParser()
	ctx := context.Background()

	tree1, _ := p.ParseFile(ctx, path)
	require.NotNil(t, tree1)

	p.Invalidate(path)
	tree2, _ := p.ParseFile(ctx, path)
	require.NotNil(t, tree2)
	assert.NotSame(t, tree1, tree2)
}

func TestParseFile_UnsupportedAndMissing(t *testing.T) {
	dir := t.TempDir()
	p := NewParser()
	ctx := context.Background()

	txt := writeFile(t, dir, "notes.txt", "hello\n")
	tree, src := p.ParseFile(ctx, txt)
	assert.Nil(t, tree)
	assert.Nil(t, src)

	tree, src = p.ParseFile(ctx, filepath.Join(dir, "missing.go"))
	assert.Nil(t, tree)
	assert.Nil(t, src)
}

func TestParseBytes(t *testing.T) {
	p := NewParser()
	tree := p.ParseBytes(context.Background(), []byte("def f():\n    pass\n"), "python")
	require.NotNil(t, tree)
	defer tree.Close()
	assert.Equal(t, "module", tree.RootNode().Type())

	assert.Nil(t, p.ParseBytes(context.Background(), []byte("x"), "cobol"))
}
