package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/quarry-ai/quarry/internal/codeintel"
	"github.com/quarry-ai/quarry/internal/config"
	"github.com/quarry-ai/quarry/internal/depgraph"
	"github.com/quarry-ai/quarry/internal/event"
	"github.com/quarry-ai/quarry/internal/logging"
	"github.com/quarry-ai/quarry/internal/pathguard"
	"github.com/quarry-ai/quarry/internal/permission"
	"github.com/quarry-ai/quarry/internal/refactor"
	"github.com/quarry-ai/quarry/internal/storage"
	"github.com/quarry-ai/quarry/internal/tool"
	"github.com/quarry-ai/quarry/internal/vcs"
)

// app bundles the wired-up core a command needs: configuration, the
// shared parser, the tool registry, and the permission-gated executor.
type app struct {
	cfg      *config.Config
	paths    *config.Paths
	workDir  string
	parser   *codeintel.Parser
	registry *tool.Registry
	executor *tool.Executor
	store    *storage.Store

	cleanup []func()
}

// newApp loads configuration for workDir and wires the tool core.
// With autoApprove false there is no interactive checker, so any tool
// call that would normally ask is refused instead of blocking.
func newApp(dir string, autoApprove bool) (*app, error) {
	workDir, err := GetWorkDir(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logging.Init(logging.Config{
		Level:  logging.ParseLevel(level),
		Pretty: logPretty || cfg.Logging.Pretty,
		File:   cfg.Logging.File,
	})

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		paths:   paths,
		workDir: workDir,
		parser:  codeintel.DefaultParser(),
		store:   storage.New(filepath.Join(paths.Data, "storage")),
	}

	// Keep the parse caches honest while tools modify files.
	a.cleanup = append(a.cleanup, codeintel.BindBus(event.Default(), a.parser))

	if w, err := vcs.NewWatcher(workDir); err == nil && w != nil {
		w.Start()
		a.cleanup = append(a.cleanup, func() { _ = w.Stop() })
	}

	a.registry = a.buildRegistry()

	gate := &tool.PermissionGate{
		Policy: permission.NewPolicy(
			cfg.Bash.Allowlist, cfg.Bash.Denylist, cfg.Bash.DenylistStandalone),
		WorkDir:     workDir,
		AutoApprove: autoApprove,
	}
	a.executor = tool.NewExecutor(a.registry, gate,
		tool.WithDoomLoopDetector(permission.NewDoomLoopDetector()))

	return a, nil
}

func (a *app) buildRegistry() *tool.Registry {
	cfg := a.cfg
	guard := pathguard.Options{FollowSymlinks: true}

	reg := tool.NewRegistry()
	reg.Register(tool.NewBashTool(a.workDir, tool.BashOptions{
		DefaultTimeout: cfg.Bash.DefaultTimeout,
		MaxTimeout:     cfg.Bash.MaxTimeout,
		MaxOutputBytes: cfg.Bash.MaxOutputBytes,
	}))
	reg.Register(tool.NewReadTool(a.workDir, guard))
	reg.Register(tool.NewWriteTool(a.workDir, guard))
	reg.Register(tool.NewSearchReplaceTool(a.workDir, guard))
	reg.Register(tool.NewGlobTool(a.workDir, guard))
	reg.Register(tool.NewGrepTool(a.workDir, guard))
	reg.Register(tool.NewListTool(a.workDir, guard))
	reg.Register(tool.NewGitTool(a.workDir))
	reg.Register(tool.NewPersistentTodoTool(a.store))
	reg.Register(tool.NewWebFetchTool(tool.WebFetchOptions{
		Timeout:  cfg.WebFetch.Timeout,
		Retries:  cfg.WebFetch.MaxRetries,
		MaxBytes: cfg.WebFetch.MaxBodyBytes,
	}))
	reg.Register(tool.NewSymbolSearchTool(a.workDir, a.parser, tool.SymbolSearchOptions{
		MaxFilesToScan:  cfg.Depgraph.MaxFilesToScan,
		ExcludePatterns: cfg.Depgraph.ExcludePatterns,
	}))
	reg.Register(tool.NewRefactorTool(a.workDir, a.parser, refactor.Options{
		MaxFiles:        cfg.Refactor.MaxFiles,
		BackupFiles:     cfg.Refactor.Backup,
		ExcludePatterns: cfg.Refactor.ExcludePatterns,
	}))
	reg.Register(tool.NewDependencyTool(a.workDir, a.parser, depgraph.Options{
		MaxFilesToScan:  cfg.Depgraph.MaxFilesToScan,
		ExcludePatterns: cfg.Depgraph.ExcludePatterns,
	}))
	reg.Register(tool.NewBatchTool(reg))
	return reg
}

// logsDir returns where interaction logs are written.
func (a *app) logsDir() string {
	if a.cfg.Logs.SaveDir != "" {
		return a.cfg.Logs.SaveDir
	}
	return a.paths.LogsPath()
}

// Close releases watchers and bus subscriptions.
func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// cmdContext returns a context cancelled on interrupt.
func cmdContext() context.Context {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx
}
