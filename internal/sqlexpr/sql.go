package sqlexpr

import "strings"

// SQLer is the interface for anything that renders to a complete SQL
// statement or statement fragment (a query block, a WITH clause, a raw
// snippet wrapped with Raw).
type SQLer interface {
	SQL() string
}

// IndentLines adds the given indent prefix to each line of input.
func IndentLines(input, indent string) string {
	if input == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(input), "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
