package refactor

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// unifiedDiff renders a line-based patch with file headers for one file.
func unifiedDiff(before, after, relPath string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(before, diffs)
	diffText := dmp.PatchToText(patches)
	if diffText == "" {
		return ""
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("--- a/%s\n", relPath))
	builder.WriteString(fmt.Sprintf("+++ b/%s\n", relPath))
	builder.WriteString(diffText)
	return builder.String()
}
