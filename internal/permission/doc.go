// Package permission controls whether tool calls may execute.
//
// # Policy resolution
//
// A Policy holds three lists:
//
//   - Allowlist: token-prefix entries that auto-approve a command
//     ("git status", "ls")
//   - Denylist: token-prefix entries that refuse a command outright
//     ("vim", "bash -i")
//   - DenylistStandalone: exact command names refused only when the
//     command has no arguments ("python" alone opens a REPL;
//     "python script.py" does not)
//
// Compound commands are split on &&, ||, ; and | using a real bash
// parser (mvdan.cc/sh) before matching, so "ls && vim x" cannot hide
// the editor behind an allowlisted prefix. A single denied segment
// denies the whole line; automatic approval requires every segment to
// be allowlisted. Anything else is undecided and falls through to the
// caller's default, normally ask.
//
// # Interactive checks
//
// The Checker publishes undecided requests on the event bus and
// blocks until Respond is called with "once", "always" or "reject",
// the context is cancelled, or the ask timeout expires (expiry counts
// as rejection). "always" answers persist for the session, keyed by
// wildcard patterns like "git commit *".
//
// # Doom loop detection
//
// DoomLoopDetector flags an agent issuing the same tool call with the
// same input three times in a row, so the executor can interrupt the
// loop instead of burning turns.
//
// All types are safe for concurrent use.
package permission
