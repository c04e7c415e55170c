package translog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(Options{Enabled: true, SaveDir: dir, Prefix: "session"},
		"0123456789abcdef", t.TempDir(), true)

	messages := []Message{
		{Role: "user", Content: "rename helper to assist"},
		{Role: "assistant", Content: "Done."},
		{Role: "tool", ToolName: "refactor", ToolCallID: "call-1", Content: "3 change(s)"},
	}
	path := l.Save(messages, map[string]int{"steps": 4}, map[string]string{"model": "m"})
	require.NotEmpty(t, path)
	assert.Equal(t, path, l.Path())

	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "session_"))
	assert.True(t, strings.HasSuffix(base, "_01234567.json"))

	loaded, meta, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, messages, loaded)
	assert.Equal(t, "0123456789abcdef", meta.SessionID)
	assert.Equal(t, 3, meta.TotalMessages)
	assert.True(t, meta.AutoApprove)
	assert.NotEmpty(t, meta.Username)
	assert.NotEmpty(t, meta.StartTime)
	assert.NotEmpty(t, meta.EndTime)
}

func TestDisabledLoggerIsNoop(t *testing.T) {
	l := NewLogger(Options{Enabled: false}, "abc", t.TempDir(), false)
	assert.Empty(t, l.Path())
	assert.Empty(t, l.Save([]Message{{Role: "user", Content: "hi"}}, nil, nil))
}

func TestSave_SwallowsWriteFailure(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(Options{Enabled: true, SaveDir: dir}, "abc12345", t.TempDir(), false)

	// Replace the target with a directory so the write fails.
	require.NoError(t, os.MkdirAll(l.Path(), 0o755))
	assert.Empty(t, l.Save(nil, nil, nil))
}

func TestResetSession(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(Options{Enabled: true, SaveDir: dir}, "first-session", t.TempDir(), false)
	firstPath := l.Path()

	l.ResetSession("second-session", false)
	assert.NotEqual(t, firstPath, l.Path())
	assert.Contains(t, filepath.Base(l.Path()), "second-s")
}

func TestFindLatestAndByID(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, FindLatest(dir, ""))

	older := filepath.Join(dir, "session_20240101_000000_aaaaaaaa.json")
	newer := filepath.Join(dir, "session_20240102_000000_bbbbbbbb.json")
	require.NoError(t, os.WriteFile(older, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("{}"), 0o644))
	require.NoError(t, os.Chtimes(older, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))

	assert.Equal(t, newer, FindLatest(dir, "session"))
	assert.Equal(t, older, FindByID(dir, "session", "aaaaaaaa-1111-2222"))
	assert.Empty(t, FindByID(dir, "session", "cccccccc"))
}
