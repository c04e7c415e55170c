package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quarry-ai/quarry/internal/event"
	"github.com/quarry-ai/quarry/internal/logging"
	"github.com/quarry-ai/quarry/internal/permission"
)

// Gate authorizes a tool call before it executes. A returned
// *permission.RejectedError skips the call terminally.
type Gate interface {
	Authorize(ctx context.Context, rec *Record, tc *Context) error
}

// Executor runs tool call records through the permission gate and the
// registry. Each record is consumed exactly once: its terminal state
// is done, failed, or skipped, and a consumed record cannot run again.
type Executor struct {
	registry *Registry
	gate     Gate
	loops    *permission.DoomLoopDetector
	log      zerolog.Logger

	// MaxDuration caps any single tool call. Zero means no cap
	// beyond what the tool enforces itself.
	MaxDuration time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithDoomLoopDetector enables repeated-call detection.
func WithDoomLoopDetector(d *permission.DoomLoopDetector) ExecutorOption {
	return func(e *Executor) { e.loops = d }
}

// WithMaxDuration caps the wall-clock time of any single call.
func WithMaxDuration(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.MaxDuration = d }
}

// NewExecutor creates an executor over a registry and a gate.
func NewExecutor(registry *Registry, gate Gate, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: registry,
		gate:     gate,
		log:      logging.Component("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the executor's tool registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Run executes one record. Permission resolution strictly precedes
// execution; a denied call never reaches the tool.
func (e *Executor) Run(ctx context.Context, rec *Record, tc *Context) (*Result, error) {
	if err := rec.begin(); err != nil {
		return nil, err
	}

	t, ok := e.registry.Get(rec.Tool)
	if !ok {
		rec.finish(StateFailed)
		rec.Err = fmt.Sprintf("unknown tool: %s", rec.Tool)
		return nil, &Error{Tool: rec.Tool, CallID: rec.ID, Message: rec.Err}
	}

	if e.loops != nil && e.loops.Check(rec.SessionID, rec.Tool, string(rec.Input)) {
		rec.finish(StateFailed)
		rec.Err = "repeated identical tool call"
		e.log.Warn().Str("tool", rec.Tool).Str("call", rec.ID).Msg("doom loop detected")
		return nil, &Error{
			Tool:    rec.Tool,
			CallID:  rec.ID,
			Message: "the same call was issued repeatedly with identical input; change the input or try a different approach",
		}
	}

	if e.gate != nil {
		if err := e.gate.Authorize(ctx, rec, tc); err != nil {
			rec.finish(StateSkipped)
			rec.Reason = err.Error()
			event.Publish(event.Event{
				Type: event.ToolSkipped,
				Data: event.ToolSkippedData{
					SessionID: rec.SessionID,
					CallID:    rec.ID,
					Tool:      rec.Tool,
					Reason:    err.Error(),
				},
			})
			return nil, err
		}
	}

	started := time.Now()
	event.Publish(event.Event{
		Type: event.ToolStarted,
		Data: event.ToolStartedData{
			SessionID: rec.SessionID,
			CallID:    rec.ID,
			Tool:      rec.Tool,
			StartedAt: started,
		},
	})

	runCtx := ctx
	if e.MaxDuration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.MaxDuration)
		defer cancel()
	}

	result, err := t.Execute(runCtx, rec.Input, tc)
	duration := time.Since(started)

	if err != nil {
		rec.finish(StateFailed)
		rec.Err = err.Error()
		e.log.Debug().Str("tool", rec.Tool).Str("call", rec.ID).Dur("duration", duration).Err(err).Msg("tool call failed")
	} else {
		rec.finish(StateDone)
		rec.Result = result
		e.log.Debug().Str("tool", rec.Tool).Str("call", rec.ID).Dur("duration", duration).Msg("tool call done")
	}

	finished := event.ToolFinishedData{
		SessionID: rec.SessionID,
		CallID:    rec.ID,
		Tool:      rec.Tool,
		Duration:  duration,
	}
	if err != nil {
		finished.Error = err.Error()
	}
	event.Publish(event.Event{Type: event.ToolFinished, Data: finished})

	if err != nil {
		if _, ok := err.(*Error); ok {
			return nil, err
		}
		if _, ok := err.(*TimeoutError); ok {
			return nil, err
		}
		return nil, &Error{Tool: rec.Tool, CallID: rec.ID, Err: err}
	}
	return result, nil
}
