package rag

import (
	"strings"

	"github.com/papercomputeco/ragloop/pkg/vector"
)

// AssembleContext formats matches as a bulleted block, one "- <text>" line
// per match in the order given. No matches yields "".
func AssembleContext(matches []vector.QueryResult) string {
	if len(matches) == 0 {
		return ""
	}

	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = "- " + m.Text
	}
	return strings.Join(lines, "\n")
}
