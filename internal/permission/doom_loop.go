package permission

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// DoomLoopThreshold is the number of identical consecutive calls
// before the detector triggers.
const DoomLoopThreshold = 3

// historyCap bounds per-session history growth.
const historyCap = 10

// DoomLoopDetector flags an agent that issues the same tool call
// with the same input over and over.
type DoomLoopDetector struct {
	mu      sync.Mutex
	history map[string][]string // sessionID -> recent call hashes
}

// NewDoomLoopDetector creates a detector with empty history.
func NewDoomLoopDetector() *DoomLoopDetector {
	return &DoomLoopDetector{
		history: make(map[string][]string),
	}
}

// Check records a call and reports whether it completes a run of
// DoomLoopThreshold identical calls.
func (d *DoomLoopDetector) Check(sessionID, toolName string, input any) bool {
	hash := hashCall(toolName, input)

	d.mu.Lock()
	defer d.mu.Unlock()

	history := d.history[sessionID]

	looping := false
	if len(history) >= DoomLoopThreshold-1 {
		looping = true
		for _, h := range history[len(history)-(DoomLoopThreshold-1):] {
			if h != hash {
				looping = false
				break
			}
		}
	}

	history = append(history, hash)
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	d.history[sessionID] = history

	return looping
}

func hashCall(toolName string, input any) string {
	data, _ := json.Marshal(map[string]any{
		"tool":  toolName,
		"input": input,
	})
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Clear drops the history for a session.
func (d *DoomLoopDetector) Clear(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.history, sessionID)
}
