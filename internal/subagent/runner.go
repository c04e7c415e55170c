package subagent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/quarry-ai/quarry/internal/agent"
	"github.com/quarry-ai/quarry/internal/logging"
)

// Runner executes tasks in isolated sub-agents.
type Runner struct {
	factory agent.Factory
	workDir string
	model   string
}

// NewRunner creates a runner. Each run gets a fresh agent from the
// factory with the parent's workdir and model.
func NewRunner(factory agent.Factory, workDir, model string) *Runner {
	return &Runner{factory: factory, workDir: workDir, model: model}
}

// systemPromptFor returns the sub-agent system prompt variant.
func systemPromptFor(typ Type) string {
	cfg := ConfigFor(typ)
	return fmt.Sprintf("You are a %s running as an isolated sub-agent. %s. "+
		"Work autonomously and report a concise final answer; the parent agent "+
		"only sees your last message.", cfg.DisplayName, cfg.Description)
}

// enabledTools computes the tool set for a run. customTools overrides
// the type defaults. "task" is stripped here and additionally listed in
// DisabledTools, so an empty set (meaning "all tools") still cannot
// spawn another sub-agent.
func enabledTools(typ Type, customTools []string) []string {
	base := customTools
	if len(base) == 0 {
		base = ConfigFor(typ).EnabledTools
	}
	if len(base) == 0 {
		return nil
	}
	tools := make([]string, 0, len(base))
	for _, t := range base {
		if t != "task" {
			tools = append(tools, t)
		}
	}
	return tools
}

// Run executes a task in an isolated sub-agent and reports the outcome.
// Failures, including cancellation, are absorbed into the Result.
func (r *Runner) Run(ctx context.Context, task string, typ Type, customTools []string) *Result {
	cfg := ConfigFor(typ)

	ag, err := r.factory(agent.Config{
		WorkDir:               r.workDir,
		Model:                 r.model,
		SystemPrompt:          systemPromptFor(typ),
		EnabledTools:          enabledTools(typ, customTools),
		DisabledTools:         []string{"task"},
		IncludeProjectContext: cfg.IncludeProjectContext,
		AutoApprove:           cfg.AutoApprove,
		MaxTurns:              cfg.MaxTurns,
	})
	if err != nil {
		logging.Error().Err(err).Str("type", typ.String()).Msg("sub-agent creation failed")
		return &Result{
			Success: false,
			Result:  fmt.Sprintf("Sub-agent failed: %s", err),
			Summary: fmt.Sprintf("Error during %s execution", typ),
			Errors:  []string{err.Error()},
		}
	}

	filesRead := make(map[string]bool)
	filesModified := make(map[string]bool)
	var errs []string
	finalResponse := ""

	for ev := range ag.Events(ctx, task) {
		switch ev := ev.(type) {
		case agent.AssistantEvent:
			finalResponse = ev.Text
		case agent.ToolResultEvent:
			if ev.Path != "" {
				switch ev.ToolName {
				case "write_file", "search_replace":
					filesModified[ev.Path] = true
				case "read_file":
					filesRead[ev.Path] = true
				}
			}
			if ev.Err != "" {
				errs = append(errs, fmt.Sprintf("%s: %s", ev.ToolName, ev.Err))
			}
		}
	}

	if ctx.Err() != nil {
		return &Result{
			Success: false,
			Result:  "Sub-agent was cancelled",
			Summary: "Execution cancelled",
			Errors:  []string{ctx.Err().Error()},
		}
	}

	stats := ag.Stats()
	read := sortedKeys(filesRead)
	modified := sortedKeys(filesModified)
	return &Result{
		Success:       true,
		Result:        finalResponse,
		Summary:       generateSummary(stats, len(read), len(modified)),
		FilesRead:     read,
		FilesModified: modified,
		TokensUsed:    stats.TokensUsed,
		StepsTaken:    stats.Steps,
		Errors:        errs,
	}
}

// ParallelTask is one entry for RunParallel.
type ParallelTask struct {
	Task        string
	Type        Type
	CustomTools []string
}

// RunParallel executes tasks concurrently, bounded by maxConcurrent.
// The output slice has the same length and order as the input; a
// failed or panicked task becomes a failed Result at its index.
func (r *Runner) RunParallel(ctx context.Context, tasks []ParallelTask, maxConcurrent int64) []*Result {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}

	sem := semaphore.NewWeighted(maxConcurrent)
	results := make([]*Result, len(tasks))

	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t ParallelTask) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					logging.Error().Interface("panic", rec).Int("task", i).Msg("sub-agent panicked")
					results[i] = &Result{
						Success: false,
						Result:  fmt.Sprintf("Sub-agent failed: %v", rec),
						Summary: fmt.Sprintf("Exception in parallel task %d", i),
						Errors:  []string{fmt.Sprint(rec)},
					}
				}
			}()

			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = &Result{
					Success: false,
					Result:  "Sub-agent was cancelled",
					Summary: "Execution cancelled",
					Errors:  []string{err.Error()},
				}
				return
			}
			defer sem.Release(1)

			results[i] = r.Run(ctx, t.Task, t.Type, t.CustomTools)
		}(i, t)
	}
	wg.Wait()

	return results
}

func generateSummary(stats agent.Stats, read, modified int) string {
	summary := ""
	if read > 0 {
		summary += fmt.Sprintf("Read %d file(s). ", read)
	}
	if modified > 0 {
		summary += fmt.Sprintf("Modified %d file(s). ", modified)
	}
	return summary + fmt.Sprintf("Used %d tokens in %d steps", stats.TokensUsed, stats.Steps)
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
