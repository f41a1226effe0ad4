package parser

// parseSelectStatement parses an optional WITH clause, a set-operator
// chain of query blocks, and a trailing ORDER BY that binds to the whole
// statement (Oracle/PostgreSQL both allow ORDER BY only once, after the
// last operand).
func (p *Parser) parseSelectStatement() *Node {
	pos := p.cur().Pos
	stmt := NewNode(KindSelectStatement, pos)

	if p.isKW("WITH") {
		stmt.Add(p.parseWithClause())
	}

	body := p.parseSetOpChain()
	stmt.Add(body)

	if p.isKW("ORDER") {
		stmt.Add(p.parseOrderClause())
	}

	return stmt
}

func (p *Parser) parseWithClause() *Node {
	pos := p.expectKW("WITH").Pos
	node := NewNode(KindWithClause, pos)
	for {
		if p.isKW("FUNCTION") || p.isKW("PROCEDURE") {
			p.fail("inline PL/SQL function or procedure inside a WITH clause is not supported")
		}
		node.Add(p.parseCTEDefinition())
		if p.isOp(",") {
			p.advance()
			continue
		}
		break
	}
	return node
}

func (p *Parser) parseCTEDefinition() *Node {
	name := p.expectIdent()
	node := NewNode(KindCTEDefinition, name.Pos)
	node.SetAttr("name", name.Text)

	if p.isOp("(") {
		p.advance()
		var cols []string
		for !p.isOp(")") {
			cols = append(cols, p.expectIdent().Text)
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
		p.expectOp(")")
		node.SetAttr("columns", joinCSV(cols))
	}

	p.expectKW("AS")
	p.expectOp("(")
	if p.isKW("FUNCTION") || p.isKW("PROCEDURE") {
		p.fail("inline PL/SQL function or procedure inside a WITH clause is not supported")
	}
	node.Add(p.parseSelectStatement())
	p.expectOp(")")
	return node
}

func joinCSV(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// parseSetOpChain parses `queryBlock (UNION [ALL] | INTERSECT | MINUS
// queryBlock)*` left-associatively.
func (p *Parser) parseSetOpChain() *Node {
	left := p.parseQueryBlockOrParen()
	for p.isKW("UNION") || p.isKW("INTERSECT") || p.isKW("MINUS") {
		opTok := p.advance()
		op := opTok.Upper()
		if op == "UNION" && p.isKW("ALL") {
			p.advance()
			op = "UNION ALL"
		}
		right := p.parseQueryBlockOrParen()
		node := NewNode(KindSetOp, opTok.Pos)
		node.SetAttr("op", op)
		node.Add(left, right)
		left = node
	}
	return left
}

func (p *Parser) parseQueryBlockOrParen() *Node {
	if p.isOp("(") {
		p.advance()
		inner := p.parseSetOpChain()
		if p.isKW("ORDER") {
			wrapped := NewNode(KindSelectStatement, inner.Pos)
			wrapped.Add(inner, p.parseOrderClause())
			inner = wrapped
		}
		p.expectOp(")")
		paren := NewNode(KindParen, inner.Pos)
		paren.Add(inner)
		return paren
	}
	return p.parseQueryBlock()
}

func (p *Parser) parseQueryBlock() *Node {
	pos := p.expectKW("SELECT").Pos
	qb := NewNode(KindQueryBlock, pos)

	if p.isKW("ALL") {
		p.advance()
	} else if p.isKW("DISTINCT") {
		qb.SetAttr("distinct", "true")
		p.advance()
	}

	qb.Add(p.parseSelectList())

	if p.isKW("FROM") {
		p.advance()
		for {
			qb.Add(p.parseTableReference())
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
	}

	// START WITH and CONNECT BY may appear in either order in Oracle
	// source; both are accepted and recorded regardless of ordering.
	if p.isKW("START") {
		qb.Add(p.parseStartWithClause())
	}
	if p.isKW("CONNECT") {
		qb.Add(p.parseConnectByClause())
	}
	if p.isKW("START") {
		qb.Add(p.parseStartWithClause())
	}

	if p.isKW("WHERE") {
		p.advance()
		w := NewNode(KindWhereClause, p.cur().Pos)
		w.Add(p.parseExpr())
		qb.Add(w)
	}

	if p.isKW("GROUP") {
		p.advance()
		p.expectKW("BY")
		g := NewNode(KindGroupByClause, p.cur().Pos)
		for {
			g.Add(p.parseExpr())
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
		qb.Add(g)
	}

	if p.isKW("HAVING") {
		p.advance()
		h := NewNode(KindHavingClause, p.cur().Pos)
		h.Add(p.parseExpr())
		qb.Add(h)
	}

	return qb
}

func (p *Parser) parseStartWithClause() *Node {
	pos := p.expectKW("START").Pos
	p.expectKW("WITH")
	n := NewNode(KindStartWithClause, pos)
	n.Add(p.parseExpr())
	return n
}

func (p *Parser) parseConnectByClause() *Node {
	pos := p.expectKW("CONNECT").Pos
	p.expectKW("BY")
	n := NewNode(KindConnectByClause, pos)
	if p.isKW("NOCYCLE") {
		p.advance()
		n.SetAttr("nocycle", "true")
	}
	n.Add(p.parseExpr())
	return n
}

func (p *Parser) parseSelectList() *Node {
	pos := p.cur().Pos
	list := NewNode(KindSelectList, pos)
	for {
		list.Add(p.parseSelectItem())
		if p.isOp(",") {
			p.advance()
			continue
		}
		break
	}
	return list
}

func (p *Parser) parseSelectItem() *Node {
	pos := p.cur().Pos
	if p.isOp("*") {
		p.advance()
		item := NewNode(KindSelectItem, pos)
		item.Add(&Node{Kind: KindLiteral, Text: "*", Pos: pos})
		return item
	}
	expr := p.parseExpr()
	item := NewNode(KindSelectItem, pos)
	item.Add(expr)
	if p.isKW("AS") {
		p.advance()
		item.SetAttr("alias", p.expectIdent().Text)
	} else if (p.cur().Kind == TokIdent || (p.cur().Kind == TokKeyword && !isClauseStart(p.cur().Upper()))) && !isReservedAfterExpr(p.cur().Upper()) {
		item.SetAttr("alias", p.advance().Text)
	}
	return item
}

// isClauseStart / isReservedAfterExpr guard the optional-AS alias rule
// against consuming the next clause's leading keyword.
func isClauseStart(upper string) bool {
	switch upper {
	case "FROM", "WHERE", "GROUP", "HAVING", "ORDER", "CONNECT", "START",
		"UNION", "INTERSECT", "MINUS", "WHEN", "THEN", "ELSE", "END":
		return true
	}
	return false
}

func isReservedAfterExpr(upper string) bool {
	switch upper {
	case "AND", "OR", "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "ON":
		return true
	}
	return isClauseStart(upper)
}

func (p *Parser) parseTableReference() *Node {
	pos := p.cur().Pos
	var base *Node
	if p.isOp("(") {
		p.advance()
		inner := p.parseSetOpChain()
		p.expectOp(")")
		base = NewNode(KindSubqueryTable, pos)
		base.Add(inner)
	} else {
		name := p.parseDottedName()
		base = NewNode(KindTableReference, pos)
		base.SetAttr("name", name)
	}

	if p.isKW("AS") {
		p.advance()
		base.SetAttr("alias", p.expectIdent().Text)
	} else if p.cur().Kind == TokIdent {
		base.SetAttr("alias", p.advance().Text)
	}

	for p.isJoinStart() {
		base = p.parseJoinClause(base)
	}
	return base
}

func (p *Parser) isJoinStart() bool {
	if p.isKW("JOIN") {
		return true
	}
	switch {
	case p.isKW("INNER"), p.isKW("LEFT"), p.isKW("RIGHT"), p.isKW("FULL"), p.isKW("CROSS"):
		return true
	}
	return false
}

func (p *Parser) parseJoinClause(left *Node) *Node {
	pos := p.cur().Pos
	joinType := "INNER"
	switch {
	case p.isKW("LEFT"):
		p.advance()
		joinType = "LEFT"
		if p.isKW("OUTER") {
			p.advance()
		}
	case p.isKW("RIGHT"):
		p.advance()
		joinType = "RIGHT"
		if p.isKW("OUTER") {
			p.advance()
		}
	case p.isKW("FULL"):
		p.advance()
		joinType = "FULL"
		if p.isKW("OUTER") {
			p.advance()
		}
	case p.isKW("INNER"):
		p.advance()
		joinType = "INNER"
	case p.isKW("CROSS"):
		p.advance()
		joinType = "CROSS"
	}
	p.expectKW("JOIN")

	node := NewNode(KindJoinClause, pos)
	node.SetAttr("type", joinType)
	node.Add(left)
	node.Add(p.parseTableReferenceNoJoin())

	if joinType != "CROSS" {
		p.expectKW("ON")
		onCond := NewNode(KindWhereClause, p.cur().Pos)
		onCond.Add(p.parseExpr())
		node.Add(onCond)
	}
	return node
}

// parseTableReferenceNoJoin parses a single table/subquery operand
// without consuming a following join (the enclosing loop in
// parseTableReference handles chaining).
func (p *Parser) parseTableReferenceNoJoin() *Node {
	pos := p.cur().Pos
	var base *Node
	if p.isOp("(") {
		p.advance()
		inner := p.parseSetOpChain()
		p.expectOp(")")
		base = NewNode(KindSubqueryTable, pos)
		base.Add(inner)
	} else {
		name := p.parseDottedName()
		base = NewNode(KindTableReference, pos)
		base.SetAttr("name", name)
	}
	if p.isKW("AS") {
		p.advance()
		base.SetAttr("alias", p.expectIdent().Text)
	} else if p.cur().Kind == TokIdent {
		base.SetAttr("alias", p.advance().Text)
	}
	return base
}

func (p *Parser) parseDottedName() string {
	name := p.expectIdent().Text
	for p.isOp(".") {
		p.advance()
		name += "." + p.expectIdent().Text
	}
	return name
}

func (p *Parser) parseOrderClause() *Node {
	pos := p.expectKW("ORDER").Pos
	p.expectKW("BY")
	node := NewNode(KindOrderClause, pos)
	for {
		item := NewNode(KindOrderItem, p.cur().Pos)
		item.Add(p.parseExpr())
		item.SetAttr("direction", "ASC")
		if p.isKW("ASC") {
			p.advance()
		} else if p.isKW("DESC") {
			p.advance()
			item.SetAttr("direction", "DESC")
		}
		if p.isKW("NULLS") {
			p.advance()
			if p.isKW("FIRST") {
				p.advance()
				item.SetAttr("nulls", "FIRST")
			} else {
				p.expectKW("LAST")
				item.SetAttr("nulls", "LAST")
			}
		}
		node.Add(item)
		if p.isOp(",") {
			p.advance()
			continue
		}
		break
	}
	return node
}
