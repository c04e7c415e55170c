package refactor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-ai/quarry/internal/codeintel"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestEngine(t *testing.T, root string, opts Options) *Engine {
	t.Helper()
	return NewEngine(root, codeintel.NewParser(), opts)
}

func TestPreview_DoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	original := "count = 1\ntotal = count + count\n"
	path := writeSource(t, dir, "app.py", original)

	e := newTestEngine(t, dir, Options{})
	result, err := e.Preview(context.Background(), "count", "total_count", "project")
	require.NoError(t, err)

	assert.Equal(t, "preview", result.Operation)
	assert.False(t, result.Applied)
	assert.Equal(t, 1, result.FilesModified)
	assert.Equal(t, 3, result.TotalChanges)
	require.Len(t, result.Files, 1)
	assert.Contains(t, result.Files[0].Diff, "--- a/app.py")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestRename_MultipleOccurrencesPerLine(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "app.py", "v = 1\nw = v + v\n")

	e := newTestEngine(t, dir, Options{})
	result, err := e.Rename(context.Background(), "v", "value", "project")
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, 3, result.TotalChanges)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "value = 1\nw = value + value\n", string(data))
}

func TestRename_SecondRenameFindsNothing(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "app.py", "old_fn = 1\nx = old_fn\n")

	e := newTestEngine(t, dir, Options{})
	first, err := e.Rename(context.Background(), "old_fn", "new_fn", "project")
	require.NoError(t, err)
	assert.Equal(t, 2, first.TotalChanges)

	second, err := e.Preview(context.Background(), "old_fn", "new_fn", "project")
	require.NoError(t, err)
	assert.Equal(t, 0, second.TotalChanges)
	assert.Equal(t, 0, second.FilesModified)
}

func TestRename_Backup(t *testing.T) {
	dir := t.TempDir()
	original := "thing = 1\n"
	path := writeSource(t, dir, "app.py", original)

	e := newTestEngine(t, dir, Options{BackupFiles: true})
	_, err := e.Rename(context.Background(), "thing", "item", "project")
	require.NoError(t, err)

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, original, string(backup))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "item = 1\n", string(data))
}

func TestRename_Validation(t *testing.T) {
	e := newTestEngine(t, t.TempDir(), Options{})
	ctx := context.Background()

	_, err := e.Rename(ctx, "", "x", "project")
	assert.Error(t, err)

	_, err = e.Rename(ctx, "x", " ", "project")
	assert.Error(t, err)

	_, err = e.Rename(ctx, "x", "x", "project")
	assert.Error(t, err)
}

func TestScope_File(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.py", "shared = 1\n")
	other := writeSource(t, dir, "b.py", "shared = 2\n")

	e := newTestEngine(t, dir, Options{})
	result, err := e.Rename(context.Background(), "shared", "local", "file:a.py")
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesModified)

	data, err := os.ReadFile(other)
	require.NoError(t, err)
	assert.Equal(t, "shared = 2\n", string(data))
}

func TestScope_Directory(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "pkg/a.py", "shared = 1\n")
	writeSource(t, dir, "other/b.py", "shared = 2\n")

	e := newTestEngine(t, dir, Options{})
	result, err := e.Preview(context.Background(), "shared", "local", "directory:pkg")
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "a.py", result.Files[0].File)
}

func TestScope_UnsupportedFile(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "notes.txt", "shared = 1\n")

	e := newTestEngine(t, dir, Options{})
	_, err := e.Preview(context.Background(), "shared", "local", "file:notes.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, codeintel.ErrParserUnavailable))
}

func TestMaxFilesCap(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.py", "x = 1\n")
	writeSource(t, dir, "b.py", "x = 2\n")
	writeSource(t, dir, "c.py", "x = 3\n")

	e := newTestEngine(t, dir, Options{MaxFiles: 2})
	result, err := e.Preview(context.Background(), "x", "y", "project")
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesModified)
}

func TestExcludesVendoredDirs(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "app.js", "const dep = 1;\n")
	vendored := writeSource(t, dir, "node_modules/pkg/index.js", "const dep = 2;\n")

	e := newTestEngine(t, dir, Options{})
	result, err := e.Rename(context.Background(), "dep", "lib", "project")
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesModified)

	data, err := os.ReadFile(vendored)
	require.NoError(t, err)
	assert.Equal(t, "const dep = 2;\n", string(data))
}

func TestApplyChanges_RightToLeft(t *testing.T) {
	text := "a = fn(fn(fn(1)))"
	changes := []Change{
		{Line: 1, Column: 4, OldText: "fn", NewText: "longer_fn"},
		{Line: 1, Column: 7, OldText: "fn", NewText: "longer_fn"},
		{Line: 1, Column: 10, OldText: "fn", NewText: "longer_fn"},
	}
	assert.Equal(t, "a = longer_fn(longer_fn(longer_fn(1)))", applyChanges(text, changes))
}
