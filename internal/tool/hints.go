package tool

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// hintRule maps a stderr pattern to correction suggestions.
type hintRule struct {
	pattern *regexp.Regexp
	hints   []string
}

var stderrRules = []hintRule{
	{
		pattern: regexp.MustCompile(`(?i)command not found|not recognized as an internal or external command`),
		hints: []string{
			"Check the command spelling",
			"Verify the tool is installed and on PATH",
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)permission denied`),
		hints: []string{
			"Check file permissions; the file may need chmod +x",
			"The path may be outside the writable project area",
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)no such file or directory|cannot find the (path|file)`),
		hints: []string{
			"Verify the path exists; list the parent directory first",
			"Relative paths resolve against the working directory",
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)not a git repository`),
		hints: []string{
			"Run the command from the repository root",
			"Initialize a repository with git init if one is expected",
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)modulenotfounderror|no module named`),
		hints: []string{
			"Install the missing module with pip",
			"Check that the right virtualenv is active",
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)enoent.*npm|npm.*enoent`),
		hints: []string{
			"Run npm install first",
			"Check that package.json exists in the working directory",
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)connection refused|could not resolve host`),
		hints: []string{
			"Check the URL or host name",
			"The target service may not be running or reachable",
		},
	},
}

// knownCommands feed the did-you-mean suggestion for exit code 127.
var knownCommands = []string{
	"awk", "cat", "cd", "chmod", "cp", "curl", "diff", "echo", "find",
	"git", "go", "grep", "head", "ls", "make", "mkdir", "mv", "node",
	"npm", "pip", "python", "python3", "rm", "sed", "sort", "tail",
	"tar", "touch", "tree", "uniq", "wc", "wget", "which",
}

// CorrectionHints derives actionable suggestions from a failed
// command: stderr patterns first, exit code semantics as fallback.
func CorrectionHints(command, stderr string, exitCode int) []string {
	for _, rule := range stderrRules {
		if rule.pattern.MatchString(stderr) {
			hints := append([]string(nil), rule.hints...)
			if strings.Contains(strings.ToLower(stderr), "command not found") {
				if s := suggestCommand(command); s != "" {
					hints = append(hints, fmt.Sprintf("Did you mean %q?", s))
				}
			}
			return hints
		}
	}

	switch {
	case exitCode == 1:
		return []string{"General error; inspect the command output for details"}
	case exitCode == 2:
		return []string{"Shell misuse; check the command syntax and arguments"}
	case exitCode == 126:
		return []string{"The file is not executable; check permissions (chmod +x)"}
	case exitCode == 127:
		hints := []string{"Command not found; verify spelling and PATH"}
		if s := suggestCommand(command); s != "" {
			hints = append(hints, fmt.Sprintf("Did you mean %q?", s))
		}
		return hints
	case exitCode == 128:
		return []string{"Invalid exit argument"}
	case exitCode > 128:
		return []string{fmt.Sprintf("Process killed by signal %d", exitCode-128)}
	}
	return nil
}

// FormatHints renders hints for the model, or "" when there are none.
func FormatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Correction suggestions:")
	for _, h := range hints {
		sb.WriteString("\n- ")
		sb.WriteString(h)
	}
	return sb.String()
}

// suggestCommand finds the closest known command to the first word of
// the failed command line, within a small edit distance.
func suggestCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	name := fields[0]

	best := ""
	bestDist := 3 // suggestions beyond 2 edits are noise
	for _, candidate := range knownCommands {
		if candidate == name {
			return ""
		}
		if d := levenshtein.ComputeDistance(name, candidate); d < bestDist {
			bestDist = d
			best = candidate
		}
	}
	return best
}
