package subagent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-ai/quarry/internal/agent"
)

type fakeAgent struct {
	events []agent.Event
	stats  agent.Stats
	// block keeps the stream open until the context is cancelled.
	block bool
}

func (a *fakeAgent) Events(ctx context.Context, task string) <-chan agent.Event {
	ch := make(chan agent.Event)
	go func() {
		defer close(ch)
		for _, ev := range a.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
		if a.block {
			<-ctx.Done()
		}
	}()
	return ch
}

func (a *fakeAgent) Stats() agent.Stats { return a.stats }

// capturingFactory records every config it was asked to build.
type capturingFactory struct {
	mu      sync.Mutex
	configs []agent.Config
	agent   *fakeAgent
	err     error
}

func (f *capturingFactory) factory(cfg agent.Config) (agent.Agent, error) {
	f.mu.Lock()
	f.configs = append(f.configs, cfg)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.agent, nil
}

func TestRun_TracksFilesAndResult(t *testing.T) {
	f := &capturingFactory{agent: &fakeAgent{
		events: []agent.Event{
			agent.ToolResultEvent{ToolName: "read_file", Path: "a.go"},
			agent.AssistantEvent{Text: "working on it"},
			agent.ToolResultEvent{ToolName: "write_file", Path: "b.go"},
			agent.ToolResultEvent{ToolName: "search_replace", Path: "b.go"},
			agent.ToolResultEvent{ToolName: "grep", Err: "pattern error"},
			agent.AssistantEvent{Text: "done, b.go updated"},
		},
		stats: agent.Stats{TokensUsed: 1234, Steps: 7},
	}}
	r := NewRunner(f.factory, "/work", "test-model")

	result := r.Run(context.Background(), "update b.go", TypeTask, nil)

	assert.True(t, result.Success)
	assert.Equal(t, "done, b.go updated", result.Result)
	assert.Equal(t, []string{"a.go"}, result.FilesRead)
	assert.Equal(t, []string{"b.go"}, result.FilesModified)
	assert.Equal(t, []string{"grep: pattern error"}, result.Errors)
	assert.Equal(t, 1234, result.TokensUsed)
	assert.Equal(t, 7, result.StepsTaken)
	assert.Equal(t, "Read 1 file(s). Modified 1 file(s). Used 1234 tokens in 7 steps", result.Summary)
}

func TestRun_StripsTaskTool(t *testing.T) {
	for _, typ := range []Type{TypeExplore, TypePlan, TypeTask} {
		t.Run(typ.String(), func(t *testing.T) {
			f := &capturingFactory{agent: &fakeAgent{}}
			r := NewRunner(f.factory, "/work", "test-model")

			r.Run(context.Background(), "go", typ, []string{"task", "grep"})

			require.Len(t, f.configs, 1)
			assert.Equal(t, []string{"grep"}, f.configs[0].EnabledTools)
			assert.Contains(t, f.configs[0].DisabledTools, "task")
		})
	}
}

func TestRun_BlocksSpawningWithEmptyToolSet(t *testing.T) {
	// An empty EnabledTools means "all tools", so the block has to come
	// from DisabledTools in these cases.
	cases := []struct {
		name        string
		typ         Type
		customTools []string
	}{
		{"task defaults", TypeTask, nil},
		{"custom set strips to nothing", TypeExplore, []string{"task"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &capturingFactory{agent: &fakeAgent{}}
			r := NewRunner(f.factory, "/work", "test-model")

			r.Run(context.Background(), "go", tc.typ, tc.customTools)

			require.Len(t, f.configs, 1)
			assert.Empty(t, f.configs[0].EnabledTools)
			assert.Contains(t, f.configs[0].DisabledTools, "task")
		})
	}
}

func TestRun_TypeConfigsApplied(t *testing.T) {
	f := &capturingFactory{agent: &fakeAgent{}}
	r := NewRunner(f.factory, "/work", "test-model")

	r.Run(context.Background(), "look around", TypeExplore, nil)
	r.Run(context.Background(), "do the thing", TypeTask, nil)

	require.Len(t, f.configs, 2)

	explore := f.configs[0]
	assert.Equal(t, []string{"grep", "read_file", "list_dir", "symbol_search"}, explore.EnabledTools)
	assert.True(t, explore.AutoApprove)
	assert.True(t, explore.IncludeProjectContext)
	assert.Equal(t, 30, explore.MaxTurns)
	assert.Equal(t, "/work", explore.WorkDir)
	assert.Equal(t, "test-model", explore.Model)

	task := f.configs[1]
	assert.Empty(t, task.EnabledTools)
	assert.False(t, task.AutoApprove)
	assert.True(t, task.IncludeProjectContext)
	assert.Equal(t, 100, task.MaxTurns)
}

func TestRun_Cancelled(t *testing.T) {
	f := &capturingFactory{agent: &fakeAgent{
		events: []agent.Event{agent.AssistantEvent{Text: "partial"}},
		block:  true,
	}}
	r := NewRunner(f.factory, "/work", "test-model")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result := r.Run(ctx, "never finishes", TypeExplore, nil)

	assert.False(t, result.Success)
	assert.Equal(t, "Sub-agent was cancelled", result.Result)
	assert.Equal(t, "Execution cancelled", result.Summary)
}

func TestRun_FactoryError(t *testing.T) {
	f := &capturingFactory{err: fmt.Errorf("no backend configured")}
	r := NewRunner(f.factory, "/work", "test-model")

	result := r.Run(context.Background(), "go", TypePlan, nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Result, "Sub-agent failed")
	assert.Contains(t, result.Summary, "plan")
	assert.Equal(t, []string{"no backend configured"}, result.Errors)
}

// echoAgent answers with the task it was given, which lets the test
// check that outputs land at their input's index.
type echoAgent struct{}

func (echoAgent) Events(ctx context.Context, task string) <-chan agent.Event {
	ch := make(chan agent.Event, 1)
	ch <- agent.AssistantEvent{Text: "echo: " + task}
	close(ch)
	return ch
}

func (echoAgent) Stats() agent.Stats { return agent.Stats{} }

func TestRunParallel_PreservesOrder(t *testing.T) {
	factory := func(cfg agent.Config) (agent.Agent, error) {
		if strings.Contains(cfg.SystemPrompt, "Plan Agent") {
			return nil, fmt.Errorf("plan backend unavailable")
		}
		return echoAgent{}, nil
	}
	r := NewRunner(factory, "/work", "test-model")

	tasks := []ParallelTask{
		{Task: "one", Type: TypeExplore},
		{Task: "two", Type: TypePlan},
		{Task: "three", Type: TypeExplore},
	}
	results := r.RunParallel(context.Background(), tasks, 2)

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.Equal(t, "echo: one", results[0].Result)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Result, "Sub-agent failed")
	assert.True(t, results[2].Success)
	assert.Equal(t, "echo: three", results[2].Result)
}

func TestDisplayString(t *testing.T) {
	r := &Result{
		Result:        "All done",
		FilesModified: []string{"a.go", "b.go"},
		Errors:        []string{"grep: bad pattern", "bash: exit 1"},
	}
	out := r.DisplayString()
	assert.True(t, strings.HasPrefix(out, "All done"))
	assert.Contains(t, out, "Files modified: a.go, b.go")
	assert.Contains(t, out, "Errors encountered: grep: bad pattern; bash: exit 1")

	bare := &Result{Result: "Nothing to report"}
	assert.Equal(t, "Nothing to report", bare.DisplayString())
}

func TestParseType(t *testing.T) {
	typ, ok := ParseType("EXPLORE")
	assert.True(t, ok)
	assert.Equal(t, TypeExplore, typ)

	typ, ok = ParseType("plan")
	assert.True(t, ok)
	assert.Equal(t, TypePlan, typ)

	_, ok = ParseType("wizard")
	assert.False(t, ok)
}
