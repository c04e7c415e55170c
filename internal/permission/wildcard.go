package permission

import (
	"strings"
)

// subcommand returns the first non-flag argument of a segment.
func subcommand(seg Segment) string {
	for _, arg := range seg.Args {
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
	}
	return ""
}

// MatchOverride finds the configured action for a segment in a
// pattern map, most specific first: "git commit *", then "git *",
// then "git", then "*". Returns ask when nothing matches.
func MatchOverride(seg Segment, overrides map[string]Action) Action {
	if sub := subcommand(seg); sub != "" {
		if action, ok := overrides[seg.Base()+" "+sub+" *"]; ok {
			return action
		}
	}

	if action, ok := overrides[seg.Base()+" *"]; ok {
		return action
	}

	if action, ok := overrides[seg.Base()]; ok {
		return action
	}

	if action, ok := overrides["*"]; ok {
		return action
	}

	return ActionAsk
}

// BuildPattern creates the approval pattern recorded when a user
// answers "always". "git commit -m msg" becomes "git commit *",
// "ls -la" becomes "ls *".
func BuildPattern(seg Segment) string {
	if sub := subcommand(seg); sub != "" {
		return seg.Base() + " " + sub + " *"
	}
	return seg.Base() + " *"
}

// BuildPatterns creates deduplicated approval patterns for all
// segments of a command. "cd" is skipped; directory changes are
// validated separately.
func BuildPatterns(segments []Segment) []string {
	seen := make(map[string]bool)
	var patterns []string

	for _, seg := range segments {
		if seg.Base() == "cd" {
			continue
		}
		pattern := BuildPattern(seg)
		if !seen[pattern] {
			seen[pattern] = true
			patterns = append(patterns, pattern)
		}
	}

	return patterns
}
