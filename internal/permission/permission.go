// Package permission decides whether tool calls may execute.
//
// A Policy resolves shell commands against allow/deny lists without
// user interaction. Commands the policy cannot decide fall through to
// a Checker, which asks and waits for an answer.
package permission

// Action is the outcome of a permission decision.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
	ActionAsk   Action = "ask"
)

// Request asks for permission to run one tool call.
type Request struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Command   string         `json:"command,omitempty"`
	Pattern   []string       `json:"pattern,omitempty"`
	SessionID string         `json:"sessionID"`
	CallID    string         `json:"callID,omitempty"`
	Title     string         `json:"title"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Response is the answer to a pending Request.
// Choice is "once", "always" or "reject".
type Response struct {
	RequestID string `json:"requestID"`
	Choice    string `json:"choice"`
}

// RejectedError is returned when permission is denied, either by
// policy or by an explicit rejection.
type RejectedError struct {
	SessionID string
	Tool      string
	CallID    string
	Command   string
	Message   string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// IsRejectedError reports whether err is a permission rejection.
func IsRejectedError(err error) bool {
	_, ok := err.(*RejectedError)
	return ok
}
