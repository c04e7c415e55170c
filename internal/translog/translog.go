// Package translog writes per-session interaction logs: one JSON file
// per session with a metadata block and the full message transcript.
// Writes are best-effort and never abort the primary operation.
package translog

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/quarry-ai/quarry/internal/logging"
	"github.com/quarry-ai/quarry/internal/vcs"
)

// DefaultPrefix names log files when no prefix is configured.
const DefaultPrefix = "session"

// Options configures the logger.
type Options struct {
	Enabled bool
	SaveDir string
	Prefix  string
}

// Message is one transcript entry.
type Message struct {
	Role       string `json:"role"`
	Content    string `json:"content,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// Metadata is the header block of a log file.
type Metadata struct {
	SessionID     string            `json:"session_id"`
	StartTime     string            `json:"start_time"`
	EndTime       string            `json:"end_time,omitempty"`
	GitCommit     string            `json:"git_commit,omitempty"`
	GitBranch     string            `json:"git_branch,omitempty"`
	AutoApprove   bool              `json:"auto_approve"`
	Username      string            `json:"username"`
	Environment   map[string]string `json:"environment,omitempty"`
	TotalMessages int               `json:"total_messages"`
	Stats         any               `json:"stats,omitempty"`
	AgentConfig   any               `json:"agent_config,omitempty"`
}

type logFile struct {
	Metadata Metadata  `json:"metadata"`
	Messages []Message `json:"messages"`
}

// Logger writes interaction logs for one session at a time.
type Logger struct {
	opts      Options
	workDir   string
	sessionID string
	startTime time.Time
	path      string
	meta      Metadata
}

// NewLogger creates a logger. With Enabled false every method is a
// no-op.
func NewLogger(opts Options, sessionID, workDir string, autoApprove bool) *Logger {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	l := &Logger{opts: opts, workDir: workDir}
	if !opts.Enabled {
		return l
	}

	if err := os.MkdirAll(opts.SaveDir, 0o755); err != nil {
		logging.Debug().Err(err).Str("dir", opts.SaveDir).Msg("interaction log dir unavailable")
		l.opts.Enabled = false
		return l
	}

	l.reset(sessionID, autoApprove)
	return l
}

func (l *Logger) reset(sessionID string, autoApprove bool) {
	l.sessionID = sessionID
	l.startTime = time.Now()
	l.path = filepath.Join(l.opts.SaveDir, fmt.Sprintf("%s_%s_%s.json",
		l.opts.Prefix, l.startTime.Format("20060102_150405"), shortID(sessionID)))

	l.meta = Metadata{
		SessionID:   sessionID,
		StartTime:   l.startTime.Format(time.RFC3339),
		GitCommit:   vcs.GetCommit(l.workDir),
		GitBranch:   vcs.GetBranch(l.workDir),
		AutoApprove: autoApprove,
		Username:    username(),
		Environment: map[string]string{"working_directory": l.workDir},
	}
}

// Path returns the file this session logs to, or "" when disabled.
func (l *Logger) Path() string {
	if !l.opts.Enabled {
		return ""
	}
	return l.path
}

// Save writes the transcript. It returns the log path, or "" when
// disabled or when the write failed.
func (l *Logger) Save(messages []Message, stats any, configSnapshot any) string {
	if !l.opts.Enabled {
		return ""
	}

	meta := l.meta
	meta.EndTime = time.Now().Format(time.RFC3339)
	meta.TotalMessages = len(messages)
	meta.Stats = stats
	meta.AgentConfig = configSnapshot

	data, err := json.MarshalIndent(logFile{Metadata: meta, Messages: messages}, "", "  ")
	if err != nil {
		logging.Debug().Err(err).Msg("interaction log marshal failed")
		return ""
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		logging.Debug().Err(err).Str("path", l.path).Msg("interaction log write failed")
		return ""
	}
	return l.path
}

// ResetSession starts logging a new session to a fresh file.
func (l *Logger) ResetSession(sessionID string, autoApprove bool) {
	if !l.opts.Enabled {
		return
	}
	l.reset(sessionID, autoApprove)
}

// FindLatest returns the most recently modified log under saveDir, or
// "" when there is none.
func FindLatest(saveDir, prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return newestMatch(filepath.Join(saveDir, prefix+"_*.json"))
}

// FindByID locates a session log by full or short session id.
func FindByID(saveDir, prefix, sessionID string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	short := shortID(sessionID)

	patterns := []string{
		filepath.Join(saveDir, fmt.Sprintf("%s_*_%s.json", prefix, short)),
		filepath.Join(saveDir, fmt.Sprintf("%s_*_%s*.json", prefix, short)),
	}
	for _, pattern := range patterns {
		if path := newestMatch(pattern); path != "" {
			return path
		}
	}
	return ""
}

// Load reads a log file back.
func Load(path string) ([]Message, Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Metadata{}, err
	}
	var f logFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, Metadata{}, err
	}
	return f.Messages, f.Metadata, nil
}

func newestMatch(pattern string) string {
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return ""
	}
	newest := ""
	var newestTime time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = m
			newestTime = info.ModTime()
		}
	}
	return newest
}

func shortID(sessionID string) string {
	if len(sessionID) > 8 {
		return sessionID[:8]
	}
	return sessionID
}

func username() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "unknown"
	}
	return u.Username
}
