package tool

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RecordState is the lifecycle state of a tool call record.
type RecordState string

const (
	StatePending RecordState = "pending"
	StateRunning RecordState = "running"
	StateDone    RecordState = "done"
	StateFailed  RecordState = "failed"
	StateSkipped RecordState = "skipped"
)

// ErrRecordConsumed is returned when a record is executed twice.
var ErrRecordConsumed = errors.New("tool call record already consumed")

// Record is one tool call issued by the model: the tool name, the raw
// argument payload, and its terminal outcome. A record is consumed
// exactly once; there are no retries at this layer.
type Record struct {
	mu sync.Mutex

	ID        string          `json:"id"`
	SessionID string          `json:"sessionID,omitempty"`
	Tool      string          `json:"tool"`
	Input     json.RawMessage `json:"input"`

	CreatedAt  time.Time   `json:"createdAt"`
	FinishedAt time.Time   `json:"finishedAt,omitempty"`
	State      RecordState `json:"state"`

	Result *Result `json:"result,omitempty"`
	Err    string  `json:"error,omitempty"`
	Reason string  `json:"reason,omitempty"` // populated for skipped records
}

// NewRecord creates a pending record with a fresh ULID.
func NewRecord(sessionID, toolName string, input json.RawMessage) *Record {
	return &Record{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		Tool:      toolName,
		Input:     input,
		CreatedAt: time.Now(),
		State:     StatePending,
	}
}

// begin transitions pending -> running, enforcing single consumption.
func (r *Record) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State != StatePending {
		return ErrRecordConsumed
	}
	r.State = StateRunning
	return nil
}

func (r *Record) finish(state RecordState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = state
	r.FinishedAt = time.Now()
}

// Terminal reports whether the record has reached a final state.
func (r *Record) Terminal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.State {
	case StateDone, StateFailed, StateSkipped:
		return true
	}
	return false
}
