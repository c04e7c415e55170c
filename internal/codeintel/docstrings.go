package codeintel

import (
	"math"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

type docPattern struct {
	commentPrefix     string
	altPrefix         string
	commentTypes      []string
	blockPrefix       string
	blockCommentTypes []string
}

var docPatterns = map[string]docPattern{
	"javascript": {commentPrefix: "/**", commentTypes: []string{"comment"}},
	"typescript": {commentPrefix: "/**", commentTypes: []string{"comment"}},
	"tsx":        {commentPrefix: "/**", commentTypes: []string{"comment"}},
	"go":         {commentPrefix: "//", commentTypes: []string{"comment"}},
	"rust": {
		commentPrefix: "///", commentTypes: []string{"line_comment"},
		blockPrefix: "/**", blockCommentTypes: []string{"block_comment"},
	},
	"java":   {commentPrefix: "/**", commentTypes: []string{"block_comment"}},
	"csharp": {commentPrefix: "///", commentTypes: []string{"comment"}},
	"php":    {commentPrefix: "/**", commentTypes: []string{"comment"}},
	"ruby":   {commentPrefix: "#", commentTypes: []string{"comment"}},
	"c":      {commentPrefix: "/**", commentTypes: []string{"comment"}},
	"cpp":    {commentPrefix: "/**", commentTypes: []string{"comment"}, altPrefix: "///"},
}

// ExtractDocstring finds the documentation attached to a definition node:
// the body's first string for python, preceding doc comments elsewhere.
// Returns "" when no documentation exists.
func ExtractDocstring(node *sitter.Node, language string, source []byte) string {
	if language == "python" {
		return pythonDocstring(node, source)
	}
	return commentDocstring(node, language, source)
}

func pythonDocstring(node *sitter.Node, source []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Type() != "expression_statement" {
		return ""
	}
	for i := 0; i < int(first.ChildCount()); i++ {
		if child := first.Child(i); child.Type() == "string" {
			return cleanPythonDocstring(NodeText(child, source))
		}
	}
	return ""
}

func commentDocstring(node *sitter.Node, language string, source []byte) string {
	pattern, ok := docPatterns[language]
	if !ok {
		return ""
	}

	lineTypes := make(map[string]bool, len(pattern.commentTypes))
	for _, t := range pattern.commentTypes {
		lineTypes[t] = true
	}
	blockTypes := make(map[string]bool, len(pattern.blockCommentTypes))
	for _, t := range pattern.blockCommentTypes {
		blockTypes[t] = true
	}

	var comments []string
	for prev := node.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if lineTypes[prev.Type()] {
			text := NodeText(prev, source)
			stripped := strings.TrimSpace(text)
			if (pattern.commentPrefix != "" && strings.HasPrefix(stripped, pattern.commentPrefix)) ||
				(pattern.altPrefix != "" && strings.HasPrefix(stripped, pattern.altPrefix)) {
				comments = append([]string{text}, comments...)
				continue
			}
		}

		if blockTypes[prev.Type()] {
			text := NodeText(prev, source)
			blockPrefix := pattern.blockPrefix
			if blockPrefix == "" {
				blockPrefix = "/**"
			}
			if strings.HasPrefix(strings.TrimSpace(text), blockPrefix) {
				return cleanBlockComment(text)
			}
		}

		switch prev.Type() {
		case "comment", "line_comment", "block_comment":
		default:
			// Non-comment sibling ends the scan.
			prev = nil
		}
		if prev == nil {
			break
		}
	}

	if len(comments) > 0 {
		return cleanLineComments(comments, pattern)
	}
	return ""
}

func cleanPythonDocstring(doc string) string {
	doc = strings.TrimSpace(doc)
	switch {
	case strings.HasPrefix(doc, `"""`) || strings.HasPrefix(doc, "'''"):
		doc = doc[3:]
		if len(doc) >= 3 {
			doc = doc[:len(doc)-3]
		}
	case strings.HasPrefix(doc, `"`) || strings.HasPrefix(doc, "'"):
		doc = doc[1:]
		if len(doc) >= 1 {
			doc = doc[:len(doc)-1]
		}
	}

	lines := strings.Split(doc, "\n")
	if len(lines) > 1 {
		minIndent := math.MaxInt
		for _, line := range lines[1:] {
			stripped := strings.TrimLeft(line, " \t")
			if stripped != "" {
				if indent := len(line) - len(stripped); indent < minIndent {
					minIndent = indent
				}
			}
		}
		if minIndent < math.MaxInt {
			dedented := []string{lines[0]}
			for _, line := range lines[1:] {
				if len(line) > minIndent {
					dedented = append(dedented, line[minIndent:])
				} else {
					dedented = append(dedented, line)
				}
			}
			lines = dedented
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func cleanBlockComment(comment string) string {
	comment = strings.TrimSpace(comment)
	switch {
	case strings.HasPrefix(comment, "/**"):
		comment = comment[3:]
	case strings.HasPrefix(comment, "/*"):
		comment = comment[2:]
	}
	comment = strings.TrimSuffix(comment, "*/")

	var lines []string
	for _, line := range strings.Split(comment, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "*") {
			stripped = strings.TrimLeft(stripped[1:], " \t")
		}
		lines = append(lines, stripped)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func cleanLineComments(comments []string, pattern docPattern) string {
	var lines []string
	for _, comment := range comments {
		comment = strings.TrimSpace(comment)
		switch {
		case pattern.commentPrefix != "" && strings.HasPrefix(comment, pattern.commentPrefix):
			comment = strings.TrimSpace(comment[len(pattern.commentPrefix):])
		case pattern.altPrefix != "" && strings.HasPrefix(comment, pattern.altPrefix):
			comment = strings.TrimSpace(comment[len(pattern.altPrefix):])
		}
		lines = append(lines, comment)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var jsdocTagRe = regexp.MustCompile(`^@(\w+)\s*(.*)$`)

// ParseJSDocTags extracts @tag blocks from a doc comment.
func ParseJSDocTags(docstring string) map[string][]string {
	tags := make(map[string][]string)
	var currentTag string
	var content []string

	flush := func() {
		if currentTag != "" {
			tags[currentTag] = append(tags[currentTag], strings.TrimSpace(strings.Join(content, "\n")))
		}
	}

	for _, line := range strings.Split(docstring, "\n") {
		line = strings.TrimSpace(line)
		if m := jsdocTagRe.FindStringSubmatch(line); m != nil {
			flush()
			currentTag = m[1]
			content = []string{m[2]}
		} else if currentTag != "" {
			content = append(content, line)
		}
	}
	flush()
	return tags
}
