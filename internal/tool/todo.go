package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/quarry-ai/quarry/internal/logging"
	"github.com/quarry-ai/quarry/internal/storage"
)

const todoDescription = `Use this tool to create and manage a structured task list for your current coding session.

Usage:
- action "write" replaces the list with the provided todos
- action "read" (the default) returns the current list
- Track states: pending, in_progress, completed
- Keep exactly one task in_progress at a time`

// TodoItem is one entry in a session task list.
type TodoItem struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Status   string `json:"status"`
	Priority string `json:"priority,omitempty"`
}

// TodoTool keeps per-session task lists, optionally persisted so a
// resumed session sees the same list.
type TodoTool struct {
	mu     sync.Mutex
	lists  map[string][]TodoItem
	loaded map[string]bool
	store  *storage.Store
}

// TodoInput is the input for the todo tool.
type TodoInput struct {
	Action string     `json:"action,omitempty"` // "read" or "write"
	Todos  []TodoItem `json:"todos,omitempty"`
}

// NewTodoTool creates an in-memory todo tool.
func NewTodoTool() *TodoTool {
	return &TodoTool{lists: make(map[string][]TodoItem), loaded: make(map[string]bool)}
}

// NewPersistentTodoTool creates a todo tool backed by storage. Lists
// are written through on every update and loaded on first read.
func NewPersistentTodoTool(store *storage.Store) *TodoTool {
	t := NewTodoTool()
	t.store = store
	return t
}

func (t *TodoTool) Name() string        { return "todo" }
func (t *TodoTool) Description() string { return todoDescription }

func (t *TodoTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"description": "\"read\" to fetch the list, \"write\" to replace it (default: read)"
			},
			"todos": {
				"type": "array",
				"description": "The replacement todo list (write only)",
				"items": {
					"type": "object",
					"properties": {
						"id": {"type": "string", "description": "Unique identifier for the todo item"},
						"content": {"type": "string", "description": "Brief description of the task"},
						"status": {"type": "string", "description": "pending, in_progress, or completed"},
						"priority": {"type": "string", "description": "high, medium, or low"}
					},
					"required": ["id", "content", "status"]
				}
			}
		}
	}`)
}

func (t *TodoTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params TodoInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	sessionID := ""
	if tc != nil {
		sessionID = tc.SessionID
	}

	t.mu.Lock()
	switch params.Action {
	case "", "read":
		t.loadLocked(ctx, sessionID)
	case "write":
		t.lists[sessionID] = append([]TodoItem(nil), params.Todos...)
		t.persistLocked(ctx, sessionID)
	default:
		t.mu.Unlock()
		return nil, fmt.Errorf("unknown action: %s", params.Action)
	}
	todos := append([]TodoItem(nil), t.lists[sessionID]...)
	t.mu.Unlock()

	if todos == nil {
		todos = []TodoItem{}
	}
	remaining := 0
	for _, todo := range todos {
		if todo.Status != "completed" {
			remaining++
		}
	}

	output, _ := json.MarshalIndent(todos, "", "  ")
	return &Result{
		Title:  fmt.Sprintf("%d open todos", remaining),
		Output: string(output),
		Metadata: map[string]any{
			"todos": todos,
		},
	}, nil
}

// Todos returns a copy of the session's current list.
func (t *TodoTool) Todos(sessionID string) []TodoItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadLocked(context.Background(), sessionID)
	return append([]TodoItem(nil), t.lists[sessionID]...)
}

// loadLocked pulls a session's list out of storage the first time it is
// touched. Caller holds t.mu.
func (t *TodoTool) loadLocked(ctx context.Context, sessionID string) {
	if t.store == nil || t.loaded[sessionID] {
		return
	}
	t.loaded[sessionID] = true

	var items []TodoItem
	if err := t.store.Get(ctx, "todo", sessionID, &items); err == nil {
		t.lists[sessionID] = items
	}
}

// persistLocked writes the session's list through to storage. Failures
// only lose persistence, never the in-memory list. Caller holds t.mu.
func (t *TodoTool) persistLocked(ctx context.Context, sessionID string) {
	if t.store == nil {
		return
	}
	t.loaded[sessionID] = true
	if err := t.store.Put(ctx, "todo", sessionID, t.lists[sessionID]); err != nil {
		logging.Debug().Err(err).Str("session", sessionID).Msg("todo persist failed")
	}
}
