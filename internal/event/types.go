package event

import "time"

// ToolStartedData is the payload for tool.started events.
type ToolStartedData struct {
	SessionID string    `json:"sessionID,omitempty"`
	CallID    string    `json:"callID"`
	Tool      string    `json:"tool"`
	StartedAt time.Time `json:"startedAt"`
}

// ToolFinishedData is the payload for tool.finished events.
type ToolFinishedData struct {
	SessionID string        `json:"sessionID,omitempty"`
	CallID    string        `json:"callID"`
	Tool      string        `json:"tool"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// ToolSkippedData is the payload for tool.skipped events, emitted when
// the permission layer refuses a call before execution.
type ToolSkippedData struct {
	SessionID string `json:"sessionID,omitempty"`
	CallID    string `json:"callID"`
	Tool      string `json:"tool"`
	Reason    string `json:"reason"`
}

// FileReadData is the payload for file.read events.
type FileReadData struct {
	Path string `json:"path"`
}

// FileModifiedData is the payload for file.modified events.
type FileModifiedData struct {
	Path string `json:"path"`
	Tool string `json:"tool,omitempty"`
}

// PermissionRequiredData is the payload for permission.required events.
type PermissionRequiredData struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID,omitempty"`
	Tool      string `json:"tool"`
	Command   string `json:"command,omitempty"`
	Title     string `json:"title"`
}

// PermissionResolvedData is the payload for permission.resolved events.
// Response is "once", "always" or "reject".
type PermissionResolvedData struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID,omitempty"`
	Response  string `json:"response"`
}

// SubAgentStartedData is the payload for subagent.started events.
type SubAgentStartedData struct {
	SessionID string `json:"sessionID,omitempty"`
	AgentType string `json:"agentType"`
	Task      string `json:"task"`
}

// BranchChangedData is the payload for vcs.branch_changed events.
type BranchChangedData struct {
	Branch string `json:"branch"`
}

// SubAgentFinishedData is the payload for subagent.finished events.
type SubAgentFinishedData struct {
	SessionID  string `json:"sessionID,omitempty"`
	AgentType  string `json:"agentType"`
	Success    bool   `json:"success"`
	StepsTaken int    `json:"stepsTaken"`
	TokensUsed int    `json:"tokensUsed"`
}
