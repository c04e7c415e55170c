package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const taskDescription = `Launch a sub-agent to handle a focused task autonomously.

Available agent types:
- explore: fast read-only codebase exploration
- plan: analysis and planning without making changes
- task: general-purpose agent that can modify files

Usage notes:
- Provide multiple tasks to run them concurrently
- Each sub-agent invocation is stateless
- Sub-agents cannot spawn further sub-agents`

// TaskExecutor runs sub-agent tasks. The sub-agent runner implements
// this; declaring it here keeps the dependency one-directional.
type TaskExecutor interface {
	RunTask(ctx context.Context, req TaskRequest) (*TaskOutcome, error)
	RunTasks(ctx context.Context, reqs []TaskRequest) ([]*TaskOutcome, error)
}

// TaskRequest describes one sub-agent task.
type TaskRequest struct {
	SessionID   string
	AgentType   string
	Description string
	Prompt      string
}

// TaskOutcome is what a finished sub-agent reports back.
type TaskOutcome struct {
	Success       bool     `json:"success"`
	Output        string   `json:"output"`
	Summary       string   `json:"summary,omitempty"`
	FilesModified []string `json:"filesModified,omitempty"`
	Errors        []string `json:"errors,omitempty"`
	TokensUsed    int      `json:"tokensUsed"`
	StepsTaken    int      `json:"stepsTaken"`
}

// TaskTool spawns sub-agents.
type TaskTool struct {
	executor TaskExecutor
}

// TaskSpec is one task in the tool input.
type TaskSpec struct {
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	AgentType   string `json:"agent_type"`
}

// TaskInput is the input for the task tool: a single task, or several
// to run concurrently.
type TaskInput struct {
	TaskSpec
	Tasks []TaskSpec `json:"tasks,omitempty"`
}

// NewTaskTool creates a task tool backed by an executor.
func NewTaskTool(executor TaskExecutor) *TaskTool {
	return &TaskTool{executor: executor}
}

func (t *TaskTool) Name() string        { return "task" }
func (t *TaskTool) Description() string { return taskDescription }

func (t *TaskTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"description": {
				"type": "string",
				"description": "A short (3-5 word) description of the task"
			},
			"prompt": {
				"type": "string",
				"description": "The detailed task for the sub-agent to perform"
			},
			"agent_type": {
				"type": "string",
				"description": "The type of sub-agent to use (explore, plan, task)"
			},
			"tasks": {
				"type": "array",
				"description": "Multiple tasks to run concurrently",
				"items": {
					"type": "object",
					"properties": {
						"description": {"type": "string"},
						"prompt": {"type": "string"},
						"agent_type": {"type": "string"}
					},
					"required": ["prompt", "agent_type"]
				}
			}
		}
	}`)
}

func (t *TaskTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params TaskInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if t.executor == nil {
		return nil, fmt.Errorf("sub-agent execution is not configured")
	}

	sessionID := ""
	if tc != nil {
		sessionID = tc.SessionID
	}

	specs := params.Tasks
	if len(specs) == 0 {
		if params.Prompt == "" || params.AgentType == "" {
			return nil, fmt.Errorf("prompt and agent_type are required")
		}
		specs = []TaskSpec{params.TaskSpec}
	}

	reqs := make([]TaskRequest, len(specs))
	for i, s := range specs {
		if s.Prompt == "" || s.AgentType == "" {
			return nil, fmt.Errorf("task %d: prompt and agent_type are required", i)
		}
		reqs[i] = TaskRequest{
			SessionID:   sessionID,
			AgentType:   s.AgentType,
			Description: s.Description,
			Prompt:      s.Prompt,
		}
	}

	if tc != nil {
		tc.SetMetadata(taskTitle(specs), map[string]any{
			"tasks":  len(reqs),
			"status": "running",
		})
	}

	if len(reqs) == 1 {
		outcome, err := t.executor.RunTask(ctx, reqs[0])
		if err != nil {
			return nil, err
		}
		return taskResult(specs[0], outcome), nil
	}

	outcomes, err := t.executor.RunTasks(ctx, reqs)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	succeeded := 0
	for i, outcome := range outcomes {
		label := specs[i].Description
		if label == "" {
			label = specs[i].AgentType
		}
		status := "failed"
		if outcome != nil && outcome.Success {
			status = "done"
			succeeded++
		}
		sb.WriteString(fmt.Sprintf("=== Task %d: %s (%s) ===\n", i+1, label, status))
		if outcome != nil {
			sb.WriteString(outcome.Output)
		}
		sb.WriteString("\n\n")
	}

	return &Result{
		Title:  fmt.Sprintf("Ran %d tasks (%d succeeded)", len(outcomes), succeeded),
		Output: strings.TrimRight(sb.String(), "\n"),
		Metadata: map[string]any{
			"tasks":     len(outcomes),
			"succeeded": succeeded,
		},
	}, nil
}

func taskTitle(specs []TaskSpec) string {
	if len(specs) == 1 {
		if specs[0].Description != "" {
			return specs[0].Description
		}
		return fmt.Sprintf("%s task", specs[0].AgentType)
	}
	return fmt.Sprintf("%d parallel tasks", len(specs))
}

func taskResult(spec TaskSpec, outcome *TaskOutcome) *Result {
	title := spec.Description
	if title == "" {
		title = fmt.Sprintf("%s task", spec.AgentType)
	}
	status := "completed"
	if !outcome.Success {
		status = "failed"
	}
	return &Result{
		Title:  fmt.Sprintf("%s: %s", strings.ToUpper(status[:1])+status[1:], title),
		Output: outcome.Output,
		Metadata: map[string]any{
			"agentType":     spec.AgentType,
			"status":        status,
			"summary":       outcome.Summary,
			"filesModified": outcome.FilesModified,
			"tokensUsed":    outcome.TokensUsed,
			"stepsTaken":    outcome.StepsTaken,
		},
	}
}
