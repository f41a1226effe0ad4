package parser

import "fmt"

// ParseError carries a message and a source position (spec §7: "Parse
// errors. Carry a message and a source position. They terminate the
// translation; no partial tree is returned.").
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

func newParseError(pos Position, format string, args ...any) *ParseError {
	return &ParseError{Line: pos.Line, Column: pos.Column, Message: fmt.Sprintf(format, args...)}
}

// Result is what every parse entry point returns: exactly one of Tree or
// a non-empty Errors list is populated.
type Result struct {
	Tree   *Node
	Errors []*ParseError
}

// OK reports whether the parse produced a usable tree.
func (r Result) OK() bool { return len(r.Errors) == 0 && r.Tree != nil }
