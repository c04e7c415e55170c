// Package tool provides the tool framework: the Tool interface, the
// registry, call records, and the permission-gated executor.
package tool

import (
	"context"
	"encoding/json"
)

// Tool is one callable capability exposed to the model.
type Tool interface {
	// Name returns the tool identifier, e.g. "bash".
	Name() string

	// Description returns the tool description shown to the model.
	Description() string

	// Parameters returns the JSON Schema for the tool's input.
	Parameters() json.RawMessage

	// Execute runs the tool with the given input.
	Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error)
}

// Context provides execution context to tools.
type Context struct {
	SessionID string
	CallID    string
	Agent     string
	WorkDir   string
	AbortCh   <-chan struct{}
	Extra     map[string]any

	// OnMetadata delivers real-time progress updates.
	OnMetadata func(title string, meta map[string]any)
}

// SetMetadata publishes a progress update if a listener is attached.
func (c *Context) SetMetadata(title string, meta map[string]any) {
	if c.OnMetadata != nil {
		c.OnMetadata(title, meta)
	}
}

// IsAborted reports whether the call has been aborted.
func (c *Context) IsAborted() bool {
	select {
	case <-c.AbortCh:
		return true
	default:
		return false
	}
}

// Result is the output of a tool execution.
type Result struct {
	Title       string         `json:"title"`
	Output      string         `json:"output"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}

// Attachment is a file produced or referenced by a tool result.
type Attachment struct {
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	URL       string `json:"url"` // data: URL or file path
}

// Func adapts a function to the Tool interface for simple tools.
type Func struct {
	ToolName        string
	ToolDescription string
	ToolParameters  json.RawMessage
	Run             func(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error)
}

func (t *Func) Name() string                { return t.ToolName }
func (t *Func) Description() string         { return t.ToolDescription }
func (t *Func) Parameters() json.RawMessage { return t.ToolParameters }

func (t *Func) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	return t.Run(ctx, input, tc)
}
