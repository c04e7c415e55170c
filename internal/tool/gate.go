package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quarry-ai/quarry/internal/pathguard"
	"github.com/quarry-ai/quarry/internal/permission"
)

// readOnlyTools execute without asking: they cannot modify state.
var readOnlyTools = map[string]bool{
	"read_file":     true,
	"list_dir":      true,
	"glob":          true,
	"grep":          true,
	"symbol_search": true,
	"todo":          true,
	"task":          true,
}

// PermissionGate is the standard Gate: shell commands resolve against
// the Policy, everything else against per-tool overrides, and
// undecided calls block on the Checker.
type PermissionGate struct {
	Policy    *permission.Policy
	Checker   *permission.Checker
	Overrides map[string]permission.Action // tool name -> action

	// WorkDir, when set, bounds the path arguments of mutating shell
	// commands (rm, mv, chmod, ...). A segment that names a path
	// outside it is refused before the policy is even consulted.
	WorkDir string

	// AutoApprove bypasses asking entirely; policy denials still
	// apply. Used by sub-agent types that run unattended.
	AutoApprove bool
}

// Authorize implements Gate.
func (g *PermissionGate) Authorize(ctx context.Context, rec *Record, tc *Context) error {
	if rec.Tool == "bash" {
		return g.authorizeBash(ctx, rec, tc)
	}

	if action, ok := g.Overrides[rec.Tool]; ok {
		return g.apply(ctx, action, rec, tc, nil)
	}

	if readOnlyTools[rec.Tool] {
		return nil
	}

	return g.apply(ctx, permission.ActionAsk, rec, tc, nil)
}

func (g *PermissionGate) authorizeBash(ctx context.Context, rec *Record, tc *Context) error {
	var input struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(rec.Input, &input); err != nil || input.Command == "" {
		return &permission.RejectedError{
			SessionID: rec.SessionID,
			Tool:      rec.Tool,
			CallID:    rec.ID,
			Message:   "bash call carries no command",
		}
	}

	segments := permission.SplitCommand(input.Command)

	if g.WorkDir != "" {
		for _, seg := range segments {
			if !permission.IsMutatingCommand(seg.Name) {
				continue
			}
			for _, path := range permission.ExtractPaths(seg) {
				if err := pathguard.Validate(path, g.WorkDir, pathguard.Options{FollowSymlinks: true}); err != nil {
					return &permission.RejectedError{
						SessionID: rec.SessionID,
						Tool:      rec.Tool,
						CallID:    rec.ID,
						Command:   input.Command,
						Message:   fmt.Sprintf("command touches a path outside the project: %v", err),
					}
				}
			}
		}
	}

	if g.Policy != nil {
		action, decided := g.Policy.Resolve(input.Command)
		if decided {
			if action == permission.ActionDeny {
				return &permission.RejectedError{
					SessionID: rec.SessionID,
					Tool:      rec.Tool,
					CallID:    rec.ID,
					Command:   input.Command,
					Message:   fmt.Sprintf("command refused by policy: %s", input.Command),
				}
			}
			return nil
		}
	}

	patterns := permission.BuildPatterns(segments)
	return g.apply(ctx, permission.ActionAsk, rec, tc, &askDetails{
		command:  input.Command,
		patterns: patterns,
	})
}

type askDetails struct {
	command  string
	patterns []string
}

func (g *PermissionGate) apply(ctx context.Context, action permission.Action, rec *Record, tc *Context, details *askDetails) error {
	if action == permission.ActionAsk && g.AutoApprove {
		return nil
	}
	if g.Checker == nil {
		if action == permission.ActionAsk {
			// No one to ask; refuse rather than run unapproved.
			return &permission.RejectedError{
				SessionID: rec.SessionID,
				Tool:      rec.Tool,
				CallID:    rec.ID,
				Message:   "no permission checker configured",
			}
		}
		if action == permission.ActionDeny {
			return &permission.RejectedError{
				SessionID: rec.SessionID,
				Tool:      rec.Tool,
				CallID:    rec.ID,
				Message:   "permission denied by configuration",
			}
		}
		return nil
	}

	req := permission.Request{
		Tool:      rec.Tool,
		SessionID: rec.SessionID,
		CallID:    rec.ID,
		Title:     rec.Tool,
	}
	if details != nil {
		req.Command = details.command
		req.Pattern = details.patterns
		req.Title = details.command
	}
	return g.Checker.Check(ctx, req, action)
}
