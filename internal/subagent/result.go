package subagent

import (
	"fmt"
	"strings"
)

// Result is what a finished sub-agent reports to its parent.
type Result struct {
	Success       bool     `json:"success"`
	Result        string   `json:"result"`
	Summary       string   `json:"summary"`
	FilesRead     []string `json:"files_read,omitempty"`
	FilesModified []string `json:"files_modified,omitempty"`
	TokensUsed    int      `json:"tokens_used"`
	StepsTaken    int      `json:"steps_taken"`
	Errors        []string `json:"errors,omitempty"`
}

// DisplayString formats the result for the parent agent.
func (r *Result) DisplayString() string {
	parts := []string{r.Result}

	if len(r.FilesModified) > 0 {
		parts = append(parts, fmt.Sprintf("\nFiles modified: %s", strings.Join(r.FilesModified, ", ")))
	}
	if len(r.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("\nErrors encountered: %s", strings.Join(r.Errors, "; ")))
	}

	return strings.Join(parts, "\n")
}
