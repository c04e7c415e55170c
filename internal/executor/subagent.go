// Package executor bridges the task tool to the sub-agent runner.
package executor

import (
	"context"
	"fmt"

	"github.com/quarry-ai/quarry/internal/subagent"
	"github.com/quarry-ai/quarry/internal/tool"
)

// SubagentExecutor implements tool.TaskExecutor on top of the
// sub-agent runner.
type SubagentExecutor struct {
	runner        *subagent.Runner
	maxConcurrent int64
}

// NewSubagentExecutor creates the executor. maxConcurrent bounds
// parallel task batches.
func NewSubagentExecutor(runner *subagent.Runner, maxConcurrent int64) *SubagentExecutor {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &SubagentExecutor{runner: runner, maxConcurrent: maxConcurrent}
}

// RunTask implements tool.TaskExecutor.
func (e *SubagentExecutor) RunTask(ctx context.Context, req tool.TaskRequest) (*tool.TaskOutcome, error) {
	typ, ok := subagent.ParseType(req.AgentType)
	if !ok {
		return nil, fmt.Errorf("unknown agent type: %s", req.AgentType)
	}
	return toOutcome(e.runner.Run(ctx, req.Prompt, typ, nil)), nil
}

// RunTasks implements tool.TaskExecutor. Individual task failures show
// up as failed outcomes, not as an error.
func (e *SubagentExecutor) RunTasks(ctx context.Context, reqs []tool.TaskRequest) ([]*tool.TaskOutcome, error) {
	tasks := make([]subagent.ParallelTask, len(reqs))
	for i, req := range reqs {
		typ, ok := subagent.ParseType(req.AgentType)
		if !ok {
			return nil, fmt.Errorf("task %d: unknown agent type: %s", i, req.AgentType)
		}
		tasks[i] = subagent.ParallelTask{Task: req.Prompt, Type: typ}
	}

	results := e.runner.RunParallel(ctx, tasks, e.maxConcurrent)
	outcomes := make([]*tool.TaskOutcome, len(results))
	for i, res := range results {
		outcomes[i] = toOutcome(res)
	}
	return outcomes, nil
}

func toOutcome(res *subagent.Result) *tool.TaskOutcome {
	return &tool.TaskOutcome{
		Success:       res.Success,
		Output:        res.DisplayString(),
		Summary:       res.Summary,
		FilesModified: res.FilesModified,
		Errors:        res.Errors,
		TokensUsed:    res.TokensUsed,
		StepsTaken:    res.StepsTaken,
	}
}
