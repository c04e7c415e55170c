package permission

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quarry-ai/quarry/internal/event"
)

// DefaultAskTimeout bounds how long a pending request waits for an
// answer before it is treated as rejected.
const DefaultAskTimeout = 5 * time.Minute

// Checker handles interactive permission requests. A request is
// published on the event bus and blocks until Respond is called,
// the context is cancelled, or the ask timeout expires.
type Checker struct {
	mu       sync.RWMutex
	approved map[string]map[string]bool // sessionID -> tool -> approved
	patterns map[string]map[string]bool // sessionID -> pattern -> approved
	pending  map[string]chan Response   // requestID -> response channel

	askTimeout time.Duration
}

// NewChecker creates a checker with the default ask timeout.
func NewChecker() *Checker {
	return NewCheckerWithTimeout(DefaultAskTimeout)
}

// NewCheckerWithTimeout creates a checker with an explicit ask timeout.
func NewCheckerWithTimeout(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultAskTimeout
	}
	return &Checker{
		approved:   make(map[string]map[string]bool),
		patterns:   make(map[string]map[string]bool),
		pending:    make(map[string]chan Response),
		askTimeout: timeout,
	}
}

// Check applies a resolved action to a request. Allow passes, deny
// fails terminally, ask blocks on the user.
func (c *Checker) Check(ctx context.Context, req Request, action Action) error {
	switch action {
	case ActionAllow:
		return nil
	case ActionDeny:
		return &RejectedError{
			SessionID: req.SessionID,
			Tool:      req.Tool,
			CallID:    req.CallID,
			Command:   req.Command,
			Message:   "permission denied by policy",
		}
	case ActionAsk:
		return c.Ask(ctx, req)
	}
	return nil
}

// Ask prompts for permission and waits for the answer.
func (c *Checker) Ask(ctx context.Context, req Request) error {
	c.mu.RLock()
	if c.approved[req.SessionID][req.Tool] {
		c.mu.RUnlock()
		return nil
	}
	if len(req.Pattern) > 0 {
		if sessionPatterns, ok := c.patterns[req.SessionID]; ok {
			allApproved := true
			for _, p := range req.Pattern {
				if !sessionPatterns[p] {
					allApproved = false
					break
				}
			}
			if allApproved {
				c.mu.RUnlock()
				return nil
			}
		}
	}
	c.mu.RUnlock()

	if req.ID == "" {
		req.ID = ulid.Make().String()
	}

	respChan := make(chan Response, 1)
	c.mu.Lock()
	c.pending[req.ID] = respChan
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	event.Publish(event.Event{
		Type: event.PermissionRequired,
		Data: event.PermissionRequiredData{
			ID:        req.ID,
			SessionID: req.SessionID,
			Tool:      req.Tool,
			Command:   req.Command,
			Title:     req.Title,
		},
	})

	timer := time.NewTimer(c.askTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return &RejectedError{
			SessionID: req.SessionID,
			Tool:      req.Tool,
			CallID:    req.CallID,
			Command:   req.Command,
			Message:   "permission request timed out",
		}
	case resp := <-respChan:
		switch resp.Choice {
		case "once":
			return nil
		case "always":
			c.approve(req.SessionID, req.Tool, req.Pattern)
			return nil
		case "reject":
			return &RejectedError{
				SessionID: req.SessionID,
				Tool:      req.Tool,
				CallID:    req.CallID,
				Command:   req.Command,
				Message:   "permission rejected by user",
			}
		}
	}
	return nil
}

// Respond answers a pending permission request.
func (c *Checker) Respond(requestID string, choice string) {
	c.mu.RLock()
	ch, ok := c.pending[requestID]
	c.mu.RUnlock()

	if ok {
		ch <- Response{RequestID: requestID, Choice: choice}
	}

	event.Publish(event.Event{
		Type: event.PermissionResolved,
		Data: event.PermissionResolvedData{
			ID:       requestID,
			Response: choice,
		},
	})
}

func (c *Checker) approve(sessionID, tool string, patterns []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.approved[sessionID] == nil {
		c.approved[sessionID] = make(map[string]bool)
	}
	c.approved[sessionID][tool] = true

	if len(patterns) > 0 {
		if c.patterns[sessionID] == nil {
			c.patterns[sessionID] = make(map[string]bool)
		}
		for _, p := range patterns {
			c.patterns[sessionID][p] = true
		}
	}
}

// IsApproved reports whether a tool has a standing approval.
func (c *Checker) IsApproved(sessionID, tool string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.approved[sessionID][tool]
}

// IsPatternApproved reports whether a command pattern has a standing
// approval.
func (c *Checker) IsPatternApproved(sessionID, pattern string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.patterns[sessionID][pattern]
}

// ApprovePattern grants a standing approval for a command pattern.
func (c *Checker) ApprovePattern(sessionID, pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.patterns[sessionID] == nil {
		c.patterns[sessionID] = make(map[string]bool)
	}
	c.patterns[sessionID][pattern] = true
}

// ClearSession drops all standing approvals for a session.
func (c *Checker) ClearSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.approved, sessionID)
	delete(c.patterns, sessionID)
}
