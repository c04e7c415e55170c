package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, ".config"))
	return tmpDir
}

func TestDefaults(t *testing.T) {
	isolateHome(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 30*time.Second, cfg.Bash.DefaultTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Bash.MaxTimeout)
	assert.Equal(t, 16000, cfg.Bash.MaxOutputBytes)
	assert.Equal(t, 100, cfg.Refactor.MaxFiles)
	assert.Equal(t, 5000, cfg.Depgraph.MaxFilesToScan)
	assert.Contains(t, cfg.Refactor.ExcludePatterns, "**/node_modules/**")
}

func TestLoadProjectConfig(t *testing.T) {
	isolateHome(t)
	project := t.TempDir()

	yaml := `
model: test-model
username: testuser
logging:
  level: debug
  pretty: true
bash:
  default_timeout: 45s
  max_output_bytes: 8000
refactor:
  max_files: 50
  backup: true
`
	require.NoError(t, os.WriteFile(filepath.Join(project, "quarry.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(project)
	require.NoError(t, err)

	assert.Equal(t, "test-model", cfg.Model)
	assert.Equal(t, "testuser", cfg.Username)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)
	assert.Equal(t, 45*time.Second, cfg.Bash.DefaultTimeout)
	assert.Equal(t, 8000, cfg.Bash.MaxOutputBytes)
	assert.Equal(t, 50, cfg.Refactor.MaxFiles)
	assert.True(t, cfg.Refactor.Backup)

	// Sections the file does not mention keep their defaults.
	assert.Equal(t, 5000, cfg.Depgraph.MaxFilesToScan)
}

func TestGlobalThenProjectPrecedence(t *testing.T) {
	home := isolateHome(t)
	project := t.TempDir()

	globalDir := filepath.Join(home, ".config", "quarry")
	require.NoError(t, os.MkdirAll(globalDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "quarry.yaml"),
		[]byte("model: global-model\nusername: globaluser\n"), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(project, "quarry.yaml"),
		[]byte("model: project-model\n"), 0o644))

	cfg, err := Load(project)
	require.NoError(t, err)

	assert.Equal(t, "project-model", cfg.Model)
	assert.Equal(t, "globaluser", cfg.Username)
}

func TestEnvInterpolation(t *testing.T) {
	isolateHome(t)
	t.Setenv("TEST_MODEL_NAME", "interpolated-model")
	project := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(project, "quarry.yaml"),
		[]byte("model: \"{env:TEST_MODEL_NAME}\"\n"), 0o644))

	cfg, err := Load(project)
	require.NoError(t, err)

	assert.Equal(t, "interpolated-model", cfg.Model)
}

func TestQUARRY_CONFIGOverride(t *testing.T) {
	isolateHome(t)
	tmpDir := t.TempDir()

	custom := filepath.Join(tmpDir, "custom.yaml")
	require.NoError(t, os.WriteFile(custom, []byte("model: custom-model\n"), 0o644))
	t.Setenv("QUARRY_CONFIG", custom)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "custom-model", cfg.Model)
}

func TestEnvVarOverride(t *testing.T) {
	isolateHome(t)
	project := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(project, "quarry.yaml"),
		[]byte("model: file-model\nlogging:\n  level: warn\n"), 0o644))

	t.Setenv("QUARRY_MODEL", "env-model")
	t.Setenv("QUARRY_LOG_LEVEL", "debug")
	t.Setenv("QUARRY_BASH_TIMEOUT", "90s")

	cfg, err := Load(project)
	require.NoError(t, err)

	assert.Equal(t, "env-model", cfg.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 90*time.Second, cfg.Bash.DefaultTimeout)
}

func TestDotEnvLoaded(t *testing.T) {
	isolateHome(t)
	project := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(project, ".env"),
		[]byte("QUARRY_MODEL=dotenv-model\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("QUARRY_MODEL") })

	cfg, err := Load(project)
	require.NoError(t, err)

	assert.Equal(t, "dotenv-model", cfg.Model)
}

func TestMalformedConfigFails(t *testing.T) {
	isolateHome(t)
	project := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(project, "quarry.yaml"),
		[]byte("model: [unclosed\n"), 0o644))

	_, err := Load(project)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	isolateHome(t)
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.Model = "saved-model"
	cfg.Bash.MaxOutputBytes = 1234

	path := filepath.Join(tmpDir, "out", "quarry.yaml")
	require.NoError(t, Save(cfg, path))

	loaded := Default()
	require.NoError(t, loadFile(path, loaded))

	assert.Equal(t, "saved-model", loaded.Model)
	assert.Equal(t, 1234, loaded.Bash.MaxOutputBytes)
}
