package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the agent core.
type Config struct {
	Username string `yaml:"username,omitempty"`
	Model    string `yaml:"model,omitempty"`

	Logging    LoggingConfig    `yaml:"logging"`
	Bash       BashConfig       `yaml:"bash"`
	Permission PermissionConfig `yaml:"permission"`
	Refactor   RefactorConfig   `yaml:"refactor"`
	Depgraph   DepgraphConfig   `yaml:"depgraph"`
	SubAgent   SubAgentConfig   `yaml:"subagent"`
	Logs       LogsConfig       `yaml:"logs"`
	WebFetch   WebFetchConfig   `yaml:"webfetch"`
}

// LoggingConfig controls the zerolog setup.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
	File   string `yaml:"file,omitempty"`
}

// BashConfig controls shell execution limits and the permission lists.
// Empty lists mean "use the built-in defaults".
type BashConfig struct {
	Allowlist          []string      `yaml:"allowlist,omitempty"`
	Denylist           []string      `yaml:"denylist,omitempty"`
	DenylistStandalone []string      `yaml:"denylist_standalone,omitempty"`
	DefaultTimeout     time.Duration `yaml:"default_timeout"`
	MaxTimeout         time.Duration `yaml:"max_timeout"`
	MaxOutputBytes     int           `yaml:"max_output_bytes"`
}

// PermissionConfig controls the interactive permission checker.
type PermissionConfig struct {
	// AskTimeout bounds how long a pending request waits for an
	// answer before it is treated as rejected.
	AskTimeout time.Duration `yaml:"ask_timeout"`
}

// RefactorConfig controls the rename engine.
type RefactorConfig struct {
	ExcludePatterns []string `yaml:"exclude_patterns,omitempty"`
	MaxFiles        int      `yaml:"max_files"`
	Backup          bool     `yaml:"backup"`
}

// DepgraphConfig controls dependency analysis.
type DepgraphConfig struct {
	ExcludePatterns []string `yaml:"exclude_patterns,omitempty"`
	MaxFilesToScan  int      `yaml:"max_files_to_scan"`
}

// SubAgentConfig controls sub-agent execution.
type SubAgentConfig struct {
	MaxParallel int `yaml:"max_parallel"`
}

// LogsConfig controls interaction log persistence.
type LogsConfig struct {
	SaveDir string `yaml:"save_dir,omitempty"`
	Prefix  string `yaml:"prefix"`
}

// WebFetchConfig controls the web_fetch tool.
type WebFetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	MaxRetries   int           `yaml:"max_retries"`
}

// DefaultExcludePatterns are skipped by project-wide scans.
var DefaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/venv/**",
	"**/.venv/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Bash: BashConfig{
			DefaultTimeout: 30 * time.Second,
			MaxTimeout:     10 * time.Minute,
			MaxOutputBytes: 16000,
		},
		Permission: PermissionConfig{AskTimeout: 5 * time.Minute},
		Refactor: RefactorConfig{
			ExcludePatterns: append([]string(nil), DefaultExcludePatterns...),
			MaxFiles:        100,
			Backup:          false,
		},
		Depgraph: DepgraphConfig{
			ExcludePatterns: append([]string(nil), DefaultExcludePatterns...),
			MaxFilesToScan:  5000,
		},
		SubAgent: SubAgentConfig{MaxParallel: 4},
		Logs:     LogsConfig{Prefix: "session"},
		WebFetch: WebFetchConfig{
			Timeout:      30 * time.Second,
			MaxBodyBytes: 5 * 1024 * 1024,
			MaxRetries:   3,
		},
	}
}

// Load builds the configuration for a project directory (priority order):
//  1. built-in defaults
//  2. global config (XDG config dir, quarry.yaml)
//  3. project config (quarry.yaml, .quarry/quarry.yaml)
//  4. QUARRY_CONFIG file override
//  5. environment variables
//
// A project .env file, when present, is loaded into the environment
// first so step 5 and {env:VAR} interpolation can see it.
func Load(directory string) (*Config, error) {
	if directory != "" {
		// Missing .env is the common case, not an error.
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	}

	cfg := Default()

	loaded := make(map[string]bool)
	loadOnce := func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		if loaded[abs] {
			return nil
		}
		err = loadFile(path, cfg)
		if err == nil {
			loaded[abs] = true
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		return nil
	}

	paths := []string{
		filepath.Join(GetPaths().Config, "quarry.yaml"),
	}
	if directory != "" {
		paths = append(paths,
			filepath.Join(directory, "quarry.yaml"),
			filepath.Join(directory, ".quarry", "quarry.yaml"),
		)
	}
	if override := os.Getenv("QUARRY_CONFIG"); override != "" {
		paths = append(paths, override)
	}

	for _, p := range paths {
		if err := loadOnce(p); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// loadFile merges one YAML file into cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = interpolate(data)

	return yaml.Unmarshal(data, cfg)
}

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// interpolate replaces {env:VAR} placeholders with environment values.
func interpolate(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// applyEnvOverrides applies QUARRY_* environment variables on top of
// everything loaded from files.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QUARRY_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("QUARRY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QUARRY_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("QUARRY_LOGS_DIR"); v != "" {
		cfg.Logs.SaveDir = v
	}
	if v := os.Getenv("QUARRY_BASH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Bash.DefaultTimeout = d
		}
	}
	if v := os.Getenv("QUARRY_MAX_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SubAgent.MaxParallel = n
		}
	}
}

// Save writes the configuration to a YAML file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
