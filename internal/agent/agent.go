// Package agent defines the contract between sub-agent orchestration
// and the conversation loop that drives a model. Only the contract
// lives here; the production loop is an external collaborator.
package agent

import "context"

// Event is one observable step of a running agent.
type Event interface {
	isEvent()
}

// AssistantEvent carries assistant text. The last one seen is the
// agent's final answer.
type AssistantEvent struct {
	Text string
}

// ToolResultEvent reports one finished tool call.
type ToolResultEvent struct {
	ToolName string
	// Path is the file the tool touched, when it touched one.
	Path string
	// Err is non-empty when the tool call failed.
	Err string
}

func (AssistantEvent) isEvent()  {}
func (ToolResultEvent) isEvent() {}

// Stats reports resource usage for a finished run.
type Stats struct {
	TokensUsed int
	Steps      int
}

// Config describes the conversation loop to start.
type Config struct {
	WorkDir      string
	Model        string
	SystemPrompt string
	// EnabledTools lists the tools the agent may call. Empty means all.
	EnabledTools []string
	// DisabledTools are removed from the effective set after
	// EnabledTools is resolved, so they are blocked even when
	// EnabledTools means "all".
	DisabledTools []string
	// IncludeProjectContext asks the loop to prepend the project
	// context block to the system prompt.
	IncludeProjectContext bool
	AutoApprove           bool
	MaxTurns              int
}

// Agent is a single-task conversation loop. Events streams until the
// task finishes or the context is cancelled, then the channel closes.
type Agent interface {
	Events(ctx context.Context, task string) <-chan Event
	Stats() Stats
}

// Factory creates a fresh agent for one sub-agent run.
type Factory func(cfg Config) (Agent, error)
