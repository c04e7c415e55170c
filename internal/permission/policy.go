package permission

import (
	"runtime"
	"strings"
)

// Policy resolves shell commands against allow and deny lists.
//
// Denylist and Allowlist entries are token prefixes: "git diff"
// matches "git diff --stat" but not "git difftool". Standalone
// entries match only a bare command with no arguments, catching
// invocations that would open an interactive session.
type Policy struct {
	Allowlist          []string
	Denylist           []string
	DenylistStandalone []string

	standalone map[string]bool
}

// NewPolicy builds a policy from explicit lists. Empty slices fall
// back to the built-in defaults for the current platform.
func NewPolicy(allow, deny, standalone []string) *Policy {
	if allow == nil {
		allow = defaultAllowlist()
	}
	if deny == nil {
		deny = defaultDenylist()
	}
	if standalone == nil {
		standalone = defaultDenylistStandalone()
	}

	p := &Policy{
		Allowlist:          allow,
		Denylist:           deny,
		DenylistStandalone: standalone,
		standalone:         make(map[string]bool, len(standalone)),
	}
	for _, name := range standalone {
		p.standalone[name] = true
	}
	return p
}

// DefaultPolicy returns the built-in policy for the current platform.
func DefaultPolicy() *Policy {
	return NewPolicy(nil, nil, nil)
}

// Resolve decides what to do with a command line. ok is false when
// the lists say nothing about the command; the caller then applies
// its default (typically ask).
//
// Deny wins: a single denied segment denies the whole compound
// command, no matter how many other segments are allowlisted.
func (p *Policy) Resolve(command string) (action Action, ok bool) {
	segments := SplitCommand(command)
	if len(segments) == 0 {
		return ActionAsk, false
	}

	for _, seg := range segments {
		if len(seg.Args) == 0 && p.standalone[seg.Base()] {
			return ActionDeny, true
		}
		if matchAny(p.Denylist, seg) {
			return ActionDeny, true
		}
	}

	for _, seg := range segments {
		if !matchAny(p.Allowlist, seg) {
			return ActionAsk, false
		}
	}
	return ActionAllow, true
}

// matchAny reports whether any list entry is a token prefix of the
// segment. Entries match against the command basename, so absolute
// paths cannot dodge the list.
func matchAny(list []string, seg Segment) bool {
	tokens := seg.Tokens()
	baseTokens := append([]string{seg.Base()}, seg.Args...)

	for _, entry := range list {
		entryTokens := strings.Fields(entry)
		if len(entryTokens) == 0 {
			continue
		}
		if tokenPrefix(entryTokens, tokens) || tokenPrefix(entryTokens, baseTokens) {
			return true
		}
	}
	return false
}

func tokenPrefix(prefix, tokens []string) bool {
	if len(prefix) > len(tokens) {
		return false
	}
	for i, tok := range prefix {
		if tokens[i] != tok {
			return false
		}
	}
	return true
}

func defaultAllowlist() []string {
	common := []string{
		"echo", "find", "git diff", "git log", "git status", "tree", "whoami",
	}
	if runtime.GOOS == "windows" {
		return append(common, "dir", "type", "where")
	}
	return append(common,
		"cat", "file", "head", "ls", "pwd", "stat", "tail", "uname", "wc", "which",
	)
}

func defaultDenylist() []string {
	common := []string{"gdb", "pdb", "passwd"}
	if runtime.GOOS == "windows" {
		return common
	}
	return append(common,
		"nano", "vim", "vi", "emacs",
		"bash -i", "sh -i", "zsh -i", "fish -i", "dash -i",
		"screen", "tmux",
	)
}

func defaultDenylistStandalone() []string {
	common := []string{"python", "python3", "ipython"}
	if runtime.GOOS == "windows" {
		return append(common, "cmd", "powershell")
	}
	return append(common, "bash", "sh", "nohup", "vi", "vim", "emacs", "nano", "su")
}
