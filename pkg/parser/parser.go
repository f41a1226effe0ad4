// Package parser implements the single Oracle SQL/PL-SQL grammar shared
// by all four entry points (SELECT, function body, procedure body,
// package specification). It produces an immutable parse tree or a
// non-empty list of ParseErrors; no partial tree is ever returned
// alongside errors (spec §4.1, §7).
package parser

// Parser holds one token-stream cursor over a single parse. It is not
// reentrant and not safe for concurrent use; one Parser parses one
// translation, matching the single-threaded-per-translation model of
// spec §5.
type Parser struct {
	toks []Token
	pos  int
}

// stopParsing is the sentinel panic value used to unwind to the entry
// point once a fatal parse error has been recorded. The grammar never
// attempts error recovery: the first offending token ends the
// translation (spec §7).
type stopParsing struct{ err *ParseError }

func newParser(src string) *Parser {
	lx := NewLexer(src)
	var toks []Token
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Kind == TokEOF {
			break
		}
	}
	return &Parser{toks: toks}
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool { return p.cur().Kind == TokEOF }

func (p *Parser) fail(format string, args ...any) {
	panic(stopParsing{err: newParseError(p.cur().Pos, format, args...)})
}

// isKW reports whether the current token is the keyword kw (case
// insensitive match on text, since keywords are recognized
// case-insensitively per spec §4.1).
func (p *Parser) isKW(kw string) bool {
	t := p.cur()
	return (t.Kind == TokKeyword || t.Kind == TokIdent) && t.Upper() == kw
}

func (p *Parser) isOp(op string) bool {
	t := p.cur()
	return t.Kind == TokOp && t.Text == op
}

func (p *Parser) expectKW(kw string) Token {
	if !p.isKW(kw) {
		p.fail("expected %s, got %q", kw, p.cur().Text)
	}
	return p.advance()
}

func (p *Parser) expectOp(op string) Token {
	if !p.isOp(op) {
		p.fail("expected %q, got %q", op, p.cur().Text)
	}
	return p.advance()
}

func (p *Parser) expectIdent() Token {
	t := p.cur()
	if t.Kind != TokIdent && t.Kind != TokKeyword {
		p.fail("expected identifier, got %q", t.Text)
	}
	return p.advance()
}

// run executes parseFn, converting any stopParsing panic into a Result
// carrying the recorded error, and any other panic into a generic parse
// error (guards against an unanticipated grammar gap becoming an
// unhandled crash of the translation).
func run(parseFn func(p *Parser) *Node, src string) (result Result) {
	p := newParser(src)
	defer func() {
		if r := recover(); r != nil {
			if sp, ok := r.(stopParsing); ok {
				result = Result{Errors: []*ParseError{sp.err}}
				return
			}
			result = Result{Errors: []*ParseError{newParseError(p.cur().Pos, "internal parser error: %v", r)}}
		}
	}()
	tree := parseFn(p)
	if !p.atEOF() {
		p.fail("unexpected trailing input at %q", p.cur().Text)
	}
	return Result{Tree: tree}
}

// ParseSelect parses a top-level SELECT statement (with optional leading
// WITH clause and trailing set operators).
func ParseSelect(src string) Result {
	return run(func(p *Parser) *Node { return p.parseSelectStatement() }, src)
}

// ParseFunctionBody parses a standalone `FUNCTION name(...) RETURN type
// IS ... BEGIN ... END;` body.
func ParseFunctionBody(src string) Result {
	return run(func(p *Parser) *Node { return p.parseFunctionOrProcedure(KindFunctionBody) }, src)
}

// ParseProcedureBody parses a standalone `PROCEDURE name(...) IS ...
// BEGIN ... END;` body.
func ParseProcedureBody(src string) Result {
	return run(func(p *Parser) *Node { return p.parseFunctionOrProcedure(KindProcedureBody) }, src)
}

// ParsePackageSpec parses a `PACKAGE name IS ... END;` specification,
// extracting its variable declarations and nested routine signatures.
func ParsePackageSpec(src string) Result {
	return run(func(p *Parser) *Node { return p.parsePackageSpec() }, src)
}
