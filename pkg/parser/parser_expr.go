package parser

import "strings"

// parseExpr is the entry point into the expression grammar: OR is the
// lowest-precedence production.
func (p *Parser) parseExpr() *Node {
	return p.parseOr()
}

func (p *Parser) parseOr() *Node {
	left := p.parseAnd()
	for p.isKW("OR") {
		pos := p.advance().Pos
		right := p.parseAnd()
		n := NewNode(KindLogicalOp, pos)
		n.SetAttr("op", "OR")
		n.Add(left, right)
		left = n
	}
	return left
}

func (p *Parser) parseAnd() *Node {
	left := p.parseNot()
	for p.isKW("AND") {
		pos := p.advance().Pos
		right := p.parseNot()
		n := NewNode(KindLogicalOp, pos)
		n.SetAttr("op", "AND")
		n.Add(left, right)
		left = n
	}
	return left
}

func (p *Parser) parseNot() *Node {
	if p.isKW("NOT") {
		pos := p.advance().Pos
		inner := p.parseNot()
		n := NewNode(KindNotOp, pos)
		n.Add(inner)
		return n
	}
	return p.parsePredicate()
}

// parsePredicate handles comparisons and the postfix predicates that
// share its precedence tier: IS [NOT] NULL, [NOT] IN (...), [NOT]
// BETWEEN ... AND ..., [NOT] LIKE ... [ESCAPE ...].
func (p *Parser) parsePredicate() *Node {
	left := p.parseConcat()

	for {
		switch {
		case p.isKW("IS"):
			pos := p.advance().Pos
			negate := false
			if p.isKW("NOT") {
				p.advance()
				negate = true
			}
			p.expectKW("NULL")
			n := NewNode(KindIsNull, pos)
			n.SetAttr("negate", boolStr(negate))
			n.Add(left)
			left = n

		case p.isKW("NOT") && (p.peekIsKW(1, "IN") || p.peekIsKW(1, "BETWEEN") || p.peekIsKW(1, "LIKE")):
			p.advance() // NOT
			left = p.parsePredicateTail(left, true)

		case p.isKW("IN"):
			left = p.parsePredicateTail(left, false)
		case p.isKW("BETWEEN"):
			left = p.parsePredicateTail(left, false)
		case p.isKW("LIKE"):
			left = p.parsePredicateTail(left, false)

		case p.isComparisonOp():
			pos := p.cur().Pos
			op := p.advance().Text
			right := p.parseConcat()
			n := NewNode(KindComparison, pos)
			n.SetAttr("op", normalizeCmpOp(op))
			n.Add(left, right)
			left = n

		default:
			return left
		}
	}
}

func (p *Parser) parsePredicateTail(left *Node, negate bool) *Node {
	switch {
	case p.isKW("IN"):
		pos := p.advance().Pos
		n := NewNode(KindInList, pos)
		n.SetAttr("negate", boolStr(negate))
		n.Add(left)
		p.expectOp("(")
		for {
			n.Add(p.parseExpr())
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
		p.expectOp(")")
		return n

	case p.isKW("BETWEEN"):
		pos := p.advance().Pos
		n := NewNode(KindBetween, pos)
		n.SetAttr("negate", boolStr(negate))
		n.Add(left)
		n.Add(p.parseConcat())
		p.expectKW("AND")
		n.Add(p.parseConcat())
		return n

	case p.isKW("LIKE"):
		pos := p.advance().Pos
		n := NewNode(KindLikeOp, pos)
		n.SetAttr("negate", boolStr(negate))
		n.Add(left)
		n.Add(p.parseConcat())
		if p.isKW("ESCAPE") {
			p.advance()
			n.Add(p.parseConcat())
		}
		return n
	}
	p.fail("expected IN/BETWEEN/LIKE")
	return nil
}

func (p *Parser) isComparisonOp() bool {
	if p.cur().Kind != TokOp {
		return false
	}
	switch p.cur().Text {
	case "=", "<>", "!=", "<", ">", "<=", ">=":
		return true
	}
	return false
}

func normalizeCmpOp(op string) string {
	if op == "!=" {
		return "<>"
	}
	return op
}

func (p *Parser) peekIsKW(offset int, kw string) bool {
	t := p.peekAt(offset)
	return (t.Kind == TokKeyword || t.Kind == TokIdent) && t.Upper() == kw
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// parseConcat handles Oracle's `||` string concatenation, left
// associative, just above the comparison tier.
func (p *Parser) parseConcat() *Node {
	left := p.parseAdditive()
	if p.isOp("||") {
		n := NewNode(KindConcatOp, p.cur().Pos)
		n.Add(left)
		for p.isOp("||") {
			p.advance()
			n.Add(p.parseAdditive())
		}
		return n
	}
	return left
}

func (p *Parser) parseAdditive() *Node {
	left := p.parseMultiplicative()
	for p.isOp("+") || p.isOp("-") {
		pos := p.cur().Pos
		op := p.advance().Text
		right := p.parseMultiplicative()
		n := NewNode(KindArithmeticOp, pos)
		n.SetAttr("op", op)
		n.Add(left, right)
		left = n
	}
	return left
}

func (p *Parser) parseMultiplicative() *Node {
	left := p.parsePower()
	for p.isOp("*") || p.isOp("/") || p.isKW("MOD") {
		pos := p.cur().Pos
		op := p.advance().Text
		if strings.EqualFold(op, "MOD") {
			op = "MOD"
		}
		right := p.parsePower()
		n := NewNode(KindArithmeticOp, pos)
		n.SetAttr("op", op)
		n.Add(left, right)
		left = n
	}
	return left
}

// parsePower handles right-associative `**`, which sits above
// multiplicative and below unary per Oracle's precedence.
func (p *Parser) parsePower() *Node {
	left := p.parseUnary()
	if p.isOp("**") {
		pos := p.advance().Pos
		right := p.parsePower()
		n := NewNode(KindArithmeticOp, pos)
		n.SetAttr("op", "**")
		n.Add(left, right)
		return n
	}
	return left
}

func (p *Parser) parseUnary() *Node {
	if p.isOp("+") || p.isOp("-") {
		pos := p.cur().Pos
		op := p.advance().Text
		operand := p.parseUnary()
		n := NewNode(KindUnaryOp, pos)
		n.SetAttr("op", op)
		n.Add(operand)
		return n
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() *Node {
	pos := p.cur().Pos

	switch {
	case p.isOp("("):
		p.advance()
		if p.isKW("SELECT") {
			inner := p.parseSetOpChain()
			p.expectOp(")")
			n := NewNode(KindScalarSubquery, pos)
			n.Add(inner)
			return p.parseOverSuffix(n)
		}
		inner := p.parseExpr()
		p.expectOp(")")
		n := NewNode(KindParen, pos)
		n.Add(inner)
		return n

	case p.cur().Kind == TokString:
		t := p.advance()
		n := &Node{Kind: KindLiteral, Text: t.Text, Pos: pos}
		n.SetAttr("type", "string")
		return n

	case p.cur().Kind == TokNumber:
		t := p.advance()
		n := &Node{Kind: KindLiteral, Text: t.Text, Pos: pos}
		n.SetAttr("type", "number")
		return n

	case p.isKW("NULL"):
		p.advance()
		n := &Node{Kind: KindLiteral, Text: "NULL", Pos: pos}
		n.SetAttr("type", "null")
		return n

	case p.isKW("TRUE"), p.isKW("FALSE"):
		t := p.advance()
		n := &Node{Kind: KindLiteral, Text: t.Upper(), Pos: pos}
		n.SetAttr("type", "boolean")
		return n

	case p.isKW("ROWNUM"):
		p.advance()
		return &Node{Kind: KindRownum, Text: "ROWNUM", Pos: pos}

	case p.isKW("SYSDATE"):
		p.advance()
		return &Node{Kind: KindSysdate, Text: "SYSDATE", Pos: pos}

	case p.isKW("LEVEL"):
		p.advance()
		return &Node{Kind: KindLevelRef, Text: "LEVEL", Pos: pos}

	case p.isKW("PRIOR"):
		p.advance()
		n := NewNode(KindUnaryOp, pos)
		n.SetAttr("op", "PRIOR")
		n.Add(p.parseUnary())
		return n

	case p.isKW("CONNECT_BY_ROOT"):
		p.advance()
		n := NewNode(KindConnectByRoot, pos)
		n.Add(p.parseUnary())
		return n

	case p.isKW("SYS_CONNECT_BY_PATH"):
		p.advance()
		p.expectOp("(")
		n := NewNode(KindSysConnectByPath, pos)
		n.Add(p.parseExpr())
		p.expectOp(",")
		n.Add(p.parseExpr())
		p.expectOp(")")
		return n

	case p.isKW("CASE"):
		return p.parseCaseExpression()

	case p.isKW("TRIM"):
		return p.parseTrimCall()

	case p.cur().Kind == TokIdent:
		return p.parseIdentOrCallOrColumn()

	case p.cur().Kind == TokBindVar:
		t := p.advance()
		n := &Node{Kind: KindLiteral, Text: ":" + t.Text, Pos: pos}
		n.SetAttr("type", "bind")
		return n
	}

	p.fail("unexpected token %q", p.cur().Text)
	return nil
}

func (p *Parser) parseCaseExpression() *Node {
	pos := p.expectKW("CASE").Pos
	n := NewNode(KindCaseExpression, pos)

	if !p.isKW("WHEN") {
		// simple CASE expr WHEN v THEN r ... END
		n.SetAttr("simple", "true")
		n.Add(p.parseExpr())
	}

	for p.isKW("WHEN") {
		p.advance()
		w := NewNode(KindCaseWhen, p.cur().Pos)
		w.Add(p.parseExpr())
		p.expectKW("THEN")
		w.Add(p.parseExpr())
		n.Add(w)
	}

	if p.isKW("ELSE") {
		p.advance()
		elseNode := NewNode(KindCaseWhen, p.cur().Pos)
		elseNode.SetAttr("else", "true")
		elseNode.Add(p.parseExpr())
		n.Add(elseNode)
	}

	p.expectKW("END")
	if p.isKW("CASE") {
		p.advance() // Oracle "END CASE" reduces to plain END on output.
	}
	return n
}

// parseTrimCall parses TRIM([LEADING|TRAILING|BOTH] [chars] FROM src).
func (p *Parser) parseTrimCall() *Node {
	pos := p.expectKW("TRIM").Pos
	p.expectOp("(")
	n := NewNode(KindFunctionCall, pos)
	n.SetAttr("name", "TRIM")

	if p.isKW("LEADING") || p.isKW("TRAILING") || p.isKW("BOTH") {
		n.SetAttr("spec", p.advance().Upper())
	}

	if !p.isKW("FROM") {
		n.Add(p.parseExpr())
	}
	if p.isKW("FROM") {
		p.advance()
		n.Add(p.parseExpr())
	}
	p.expectOp(")")
	return n
}

// parseIdentOrCallOrColumn parses a dotted name chain and decides, based
// on what follows, whether it is a function call, a sequence pseudo-
// column reference (name.NEXTVAL / name.CURRVAL), or a column reference.
// A member call written a.b.method(args) comes back as a function call
// named method with qualifier "a.b"; the rewriter tells it apart from a
// package-qualified call.
func (p *Parser) parseIdentOrCallOrColumn() *Node {
	pos := p.cur().Pos
	parts := []string{p.advance().Text}
	for p.isOp(".") {
		p.advance()
		if p.isOp("(") {
			break
		}
		parts = append(parts, p.advance().Text)
	}

	if p.isOp("(") {
		// Function call: last part is the function name, any preceding
		// parts are a package/schema qualifier.
		fname := parts[len(parts)-1]
		qualifier := strings.Join(parts[:len(parts)-1], ".")
		args := p.parseArgList()
		n := NewNode(KindFunctionCall, pos)
		n.SetAttr("name", fname)
		n.SetAttr("qualifier", qualifier)
		for _, a := range args {
			n.Add(a)
		}
		return p.parseOverSuffix(n)
	}

	last := strings.ToUpper(parts[len(parts)-1])
	if last == "NEXTVAL" || last == "CURRVAL" {
		n := NewNode(KindSequenceRef, pos)
		n.SetAttr("sequence", strings.Join(parts[:len(parts)-1], "."))
		n.SetAttr("which", strings.ToLower(last))
		return n
	}

	colNode := NewNode(KindColumnReference, pos)
	colNode.SetAttr("parts", strings.Join(parts, "."))
	for _, part := range parts {
		colNode.Add(&Node{Kind: KindLiteral, Text: part, Pos: pos})
	}

	return p.parseMemberCallChain(colNode)
}

// parseMemberCallChain parses zero or more trailing `.method(args)`
// calls on a column reference, producing nested member_call nodes
// (spec §4.5: "Chained calls nest outward").
func (p *Parser) parseMemberCallChain(recv *Node) *Node {
	for p.isOp(".") && p.peekAt(1).Kind != TokEOF && isIdentLike(p.peekAt(1)) && p.peekAt(2).Kind == TokOp && p.peekAt(2).Text == "(" {
		p.advance() // .
		method := p.advance().Text
		args := p.parseArgList()
		n := NewNode(KindMemberCall, recv.Pos)
		n.SetAttr("method", method)
		n.Add(recv)
		for _, a := range args {
			n.Add(a)
		}
		recv = n
	}
	return recv
}

func isIdentLike(t Token) bool { return t.Kind == TokIdent || t.Kind == TokKeyword }

func (p *Parser) parseArgList() []*Node {
	p.expectOp("(")
	var args []*Node
	if p.isOp("*") {
		pos := p.advance().Pos
		args = append(args, &Node{Kind: KindLiteral, Text: "*", Pos: pos})
	} else {
		for !p.isOp(")") {
			args = append(args, p.parseExpr())
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
	}
	p.expectOp(")")
	return args
}

// parseOverSuffix parses an optional `OVER (PARTITION BY ... ORDER BY
// ...)` window specification following a function call.
func (p *Parser) parseOverSuffix(call *Node) *Node {
	if !p.isKW("OVER") {
		return call
	}
	pos := p.advance().Pos
	over := NewNode(KindOverClause, pos)
	over.Add(call)
	p.expectOp("(")
	if p.isKW("PARTITION") {
		p.advance()
		p.expectKW("BY")
		for {
			over.Add(p.parseExpr())
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
	}
	if p.isKW("ORDER") {
		over.Add(p.parseOrderClause())
	}
	p.expectOp(")")
	return over
}
