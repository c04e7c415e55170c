package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/quarry-ai/quarry/internal/storage"
)

func execTodo(t *testing.T, tool *TodoTool, input string) *Result {
	t.Helper()
	res, err := tool.Execute(context.Background(), json.RawMessage(input), testContext(t.TempDir()))
	if err != nil {
		t.Fatalf("todo execute: %v", err)
	}
	return res
}

func TestTodo_WriteAndRead(t *testing.T) {
	tool := NewTodoTool()

	res := execTodo(t, tool, `{"action":"write","todos":[
		{"id":"1","content":"rename helper","status":"completed"},
		{"id":"2","content":"update callers","status":"in_progress"}
	]}`)
	if res.Title != "1 open todos" {
		t.Errorf("title = %q, want %q", res.Title, "1 open todos")
	}

	res = execTodo(t, tool, `{"action":"read"}`)
	if !strings.Contains(res.Output, "update callers") {
		t.Errorf("read output missing item: %s", res.Output)
	}

	todos := tool.Todos("test-session")
	if len(todos) != 2 {
		t.Fatalf("got %d todos, want 2", len(todos))
	}
}

func TestTodo_EmptyListReads(t *testing.T) {
	tool := NewTodoTool()
	res := execTodo(t, tool, `{}`)
	if res.Title != "0 open todos" {
		t.Errorf("title = %q, want %q", res.Title, "0 open todos")
	}
	if strings.TrimSpace(res.Output) != "[]" {
		t.Errorf("output = %q, want empty array", res.Output)
	}
}

func TestTodo_UnknownAction(t *testing.T) {
	tool := NewTodoTool()
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"action":"append"}`), testContext(t.TempDir()))
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestTodo_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first := NewPersistentTodoTool(storage.New(dir))
	execTodo(t, first, `{"action":"write","todos":[
		{"id":"1","content":"wire the parser cache","status":"pending"}
	]}`)

	second := NewPersistentTodoTool(storage.New(dir))
	res := execTodo(t, second, `{"action":"read"}`)
	if !strings.Contains(res.Output, "wire the parser cache") {
		t.Errorf("persisted list not loaded: %s", res.Output)
	}

	todos := second.Todos("test-session")
	if len(todos) != 1 || todos[0].ID != "1" {
		t.Fatalf("unexpected todos: %+v", todos)
	}
}
