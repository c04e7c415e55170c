// Package subagent runs isolated agents for focused tasks. A sub-agent
// keeps its own message history and reports only a result back to the
// parent, which keeps multi-step operations cheap in tokens.
package subagent

import "strings"

// Type selects a specialized sub-agent profile.
type Type int

const (
	TypeExplore Type = iota
	TypePlan
	TypeTask
)

func (t Type) String() string {
	switch t {
	case TypeExplore:
		return "explore"
	case TypePlan:
		return "plan"
	default:
		return "task"
	}
}

// ParseType maps a string to a Type. The boolean is false for unknown
// values.
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(s) {
	case "explore":
		return TypeExplore, true
	case "plan":
		return TypePlan, true
	case "task":
		return TypeTask, true
	}
	return TypeTask, false
}

// Config is the immutable profile for a sub-agent type.
type Config struct {
	DisplayName string
	Description string
	// EnabledTools lists the tools available to this type. Empty means
	// all tools.
	EnabledTools          []string
	AutoApprove           bool
	MaxTurns              int
	IncludeProjectContext bool
}

var configs = map[Type]Config{
	TypeExplore: {
		DisplayName:           "Explore Agent",
		Description:           "Read-only codebase exploration with search and read tools",
		EnabledTools:          []string{"grep", "read_file", "list_dir", "symbol_search"},
		AutoApprove:           true,
		MaxTurns:              30,
		IncludeProjectContext: true,
	},
	TypePlan: {
		DisplayName:           "Plan Agent",
		Description:           "Design and plan implementation approaches",
		EnabledTools:          []string{"grep", "read_file", "list_dir", "todo", "symbol_search"},
		AutoApprove:           true,
		MaxTurns:              50,
		IncludeProjectContext: true,
	},
	TypeTask: {
		DisplayName:  "Task Agent",
		Description:  "Execute complex multi-step tasks with full tool access",
		EnabledTools: nil,
		// Approval follows the parent's permission settings.
		AutoApprove:           false,
		MaxTurns:              100,
		IncludeProjectContext: true,
	},
}

// ConfigFor returns the profile for a sub-agent type.
func ConfigFor(t Type) Config {
	return configs[t]
}
