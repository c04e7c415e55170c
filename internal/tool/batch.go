package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const batchDescription = `Executes multiple independent tool calls concurrently to reduce latency. Best used for gathering context (reads, searches, listings).

Payload Format (JSON array):
[{"tool": "read_file", "parameters": {"path": "src/index.ts", "limit": 350}},{"tool": "grep", "parameters": {"pattern": "Session\\.updatePart", "include": "**/*.ts"}}]

Rules:
- 1-10 tool calls per batch
- All calls start in parallel; ordering NOT guaranteed
- Partial failures do not stop others

Disallowed Tools:
- batch (no nesting)
- search_replace and write_file (run edits separately)
- task (launch sub-agents directly)

Good Use Cases:
- Read many files
- grep + glob + read combos`

// maxBatchSize caps calls per batch.
const maxBatchSize = 10

// disallowedInBatch contains tools that cannot run inside a batch.
var disallowedInBatch = map[string]bool{
	"batch":          true,
	"search_replace": true,
	"write_file":     true,
	"task":           true,
}

// BatchTool runs several read-oriented tool calls in parallel.
type BatchTool struct {
	registry *Registry
}

// BatchInput is the input for the batch tool.
type BatchInput struct {
	ToolCalls []BatchCall `json:"tool_calls"`
}

// BatchCall is a single call within a batch.
type BatchCall struct {
	Tool       string          `json:"tool"`
	Parameters json.RawMessage `json:"parameters"`
}

// BatchResult is the result of one call in the batch.
type BatchResult struct {
	Index   int           `json:"index"`
	Tool    string        `json:"tool"`
	Success bool          `json:"success"`
	Result  *Result       `json:"result,omitempty"`
	Error   string        `json:"error,omitempty"`
	Time    time.Duration `json:"time"`
}

// NewBatchTool creates a batch tool over a registry.
func NewBatchTool(registry *Registry) *BatchTool {
	return &BatchTool{registry: registry}
}

func (t *BatchTool) Name() string        { return "batch" }
func (t *BatchTool) Description() string { return batchDescription }

func (t *BatchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"tool_calls": {
				"type": "array",
				"description": "Array of tool calls to execute in parallel",
				"items": {
					"type": "object",
					"properties": {
						"tool": {
							"type": "string",
							"description": "The name of the tool to execute"
						},
						"parameters": {
							"type": "object",
							"description": "Parameters for the tool"
						}
					},
					"required": ["tool", "parameters"]
				},
				"minItems": 1
			}
		},
		"required": ["tool_calls"]
	}`)
}

func (t *BatchTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params BatchInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if len(params.ToolCalls) == 0 {
		return nil, fmt.Errorf("tool_calls array must contain at least one tool call")
	}

	calls := params.ToolCalls
	var discarded []BatchCall
	if len(calls) > maxBatchSize {
		discarded = calls[maxBatchSize:]
		calls = calls[:maxBatchSize]
	}

	results := make([]*BatchResult, len(calls))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			result := t.executeCall(gctx, i, call, tc)
			mu.Lock()
			results[i] = result
			mu.Unlock()
			// Partial failures must not stop the others.
			return nil
		})
	}
	_ = g.Wait()

	for i, call := range discarded {
		results = append(results, &BatchResult{
			Index:   maxBatchSize + i,
			Tool:    call.Tool,
			Success: false,
			Error:   fmt.Sprintf("Maximum of %d tools allowed in batch", maxBatchSize),
		})
	}

	return t.formatResults(results)
}

func (t *BatchTool) executeCall(ctx context.Context, index int, call BatchCall, tc *Context) *BatchResult {
	start := time.Now()
	result := &BatchResult{Index: index, Tool: call.Tool}
	defer func() { result.Time = time.Since(start) }()

	if disallowedInBatch[call.Tool] {
		result.Error = fmt.Sprintf("Tool '%s' is not allowed in batch", call.Tool)
		return result
	}

	impl, ok := t.registry.Get(call.Tool)
	if !ok {
		result.Error = fmt.Sprintf("Tool '%s' not found. Available tools: %s",
			call.Tool, strings.Join(t.registry.Names(), ", "))
		return result
	}

	callCtx := &Context{}
	if tc != nil {
		callCtx = &Context{
			SessionID: tc.SessionID,
			CallID:    fmt.Sprintf("%s-batch-%d", tc.CallID, index),
			Agent:     tc.Agent,
			WorkDir:   tc.WorkDir,
			AbortCh:   tc.AbortCh,
			Extra:     tc.Extra,
		}
	}

	res, err := impl.Execute(ctx, call.Parameters, callCtx)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.Result = res
	return result
}

func (t *BatchTool) formatResults(results []*BatchResult) (*Result, error) {
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	successCount := 0
	var attachments []Attachment
	var parts []string
	details := make([]map[string]any, 0, len(results))

	for _, r := range results {
		detail := map[string]any{
			"tool":    r.Tool,
			"success": r.Success,
			"time_ms": r.Time.Milliseconds(),
		}
		if r.Success {
			successCount++
			if r.Result != nil {
				parts = append(parts, fmt.Sprintf("=== %s (success) ===\n%s", r.Tool, r.Result.Output))
				attachments = append(attachments, r.Result.Attachments...)
				detail["title"] = r.Result.Title
			}
		} else {
			parts = append(parts, fmt.Sprintf("=== %s (failed) ===\n%s", r.Tool, r.Error))
			detail["error"] = r.Error
		}
		details = append(details, detail)
	}

	failed := len(results) - successCount
	output := fmt.Sprintf("Executed %d/%d tools successfully.", successCount, len(results))
	if failed > 0 {
		output = fmt.Sprintf("Executed %d/%d tools successfully. %d failed.", successCount, len(results), failed)
	}
	output += "\n\n" + strings.Join(parts, "\n\n")

	return &Result{
		Title:       fmt.Sprintf("Batch execution (%d/%d successful)", successCount, len(results)),
		Output:      output,
		Attachments: attachments,
		Metadata: map[string]any{
			"totalCalls": len(results),
			"successful": successCount,
			"failed":     failed,
			"details":    details,
		},
	}, nil
}
