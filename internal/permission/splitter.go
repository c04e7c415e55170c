package permission

import (
	"path/filepath"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Segment is one simple command inside a possibly compound command
// line. "git add . && git commit" yields two segments.
type Segment struct {
	Name string   // command name, e.g. "rm", "git"
	Args []string // remaining words
}

// Text renders the segment back to a normalized command string.
func (s Segment) Text() string {
	if len(s.Args) == 0 {
		return s.Name
	}
	return s.Name + " " + strings.Join(s.Args, " ")
}

// Tokens returns the segment as a flat token list.
func (s Segment) Tokens() []string {
	return append([]string{s.Name}, s.Args...)
}

// Base returns the command basename, so "/usr/bin/python" matches
// list entries written as "python".
func (s Segment) Base() string {
	return filepath.Base(s.Name)
}

// SplitCommand splits a shell command line into its simple commands.
// Compound forms (&&, ||, ;, |, subshells) each contribute their
// inner calls. When the line does not parse as bash, a plain-text
// split on the separators is used so policy checks never get skipped.
func SplitCommand(command string) []Segment {
	parser := syntax.NewParser(
		syntax.Variant(syntax.LangBash),
		syntax.KeepComments(false),
	)

	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return splitPlainText(command)
	}

	var segments []Segment
	syntax.Walk(file, func(node syntax.Node) bool {
		if call, ok := node.(*syntax.CallExpr); ok {
			if seg := segmentFromCall(call); seg != nil {
				segments = append(segments, *seg)
			}
		}
		return true
	})

	if len(segments) == 0 {
		return splitPlainText(command)
	}
	return segments
}

func segmentFromCall(call *syntax.CallExpr) *Segment {
	if len(call.Args) == 0 {
		return nil
	}

	name := wordToString(call.Args[0])
	if name == "" {
		return nil
	}

	seg := &Segment{Name: name}
	for _, arg := range call.Args[1:] {
		seg.Args = append(seg.Args, wordToString(arg))
	}
	return seg
}

// wordToString flattens a parsed word. Expansions keep a marker so
// they never accidentally equal an allowlisted literal.
func wordToString(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, qp := range p.Parts {
				if lit, ok := qp.(*syntax.Lit); ok {
					sb.WriteString(lit.Value)
				}
			}
		case *syntax.ParamExp:
			sb.WriteString("$" + p.Param.Value)
		case *syntax.CmdSubst:
			sb.WriteString("$()")
		}
	}
	return sb.String()
}

var separatorPattern = regexp.MustCompile(`&&|\|\||;|\|`)

// splitPlainText is the fallback splitter for unparseable input.
func splitPlainText(command string) []Segment {
	var segments []Segment
	for _, chunk := range separatorPattern.Split(command, -1) {
		fields := strings.Fields(chunk)
		if len(fields) == 0 {
			continue
		}
		segments = append(segments, Segment{Name: fields[0], Args: fields[1:]})
	}
	return segments
}

// MutatingCommands are commands that modify the filesystem and whose
// path arguments deserve validation before execution.
var MutatingCommands = map[string]bool{
	"cd":    true,
	"rm":    true,
	"cp":    true,
	"mv":    true,
	"mkdir": true,
	"touch": true,
	"chmod": true,
	"chown": true,
	"rmdir": true,
	"dd":    true,
}

// IsMutatingCommand reports whether the segment's command modifies
// the filesystem.
func IsMutatingCommand(name string) bool {
	return MutatingCommands[filepath.Base(name)]
}

// ExtractPaths returns the likely path arguments of a segment,
// skipping flags and chmod mode strings.
func ExtractPaths(seg Segment) []string {
	var paths []string
	for _, arg := range seg.Args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if seg.Base() == "chmod" && len(arg) > 0 {
			c := arg[0]
			if c >= '0' && c <= '9' || c == 'u' || c == 'g' || c == 'o' || c == 'a' || c == '+' || c == '=' {
				continue
			}
		}
		paths = append(paths, arg)
	}
	return paths
}
