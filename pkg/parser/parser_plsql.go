package parser

// parseFunctionOrProcedure parses a standalone FUNCTION or PROCEDURE
// body. The three body regions (parameters, declarations, statements)
// are each wrapped in a KindBlock child tagged with a "role" attribute
// so the rewriter can find them without relying on positional indexing.
func (p *Parser) parseFunctionOrProcedure(_ NodeKind) *Node {
	pos := p.cur().Pos
	isFunc := p.isKW("FUNCTION")
	if isFunc {
		p.expectKW("FUNCTION")
	} else {
		p.expectKW("PROCEDURE")
	}
	name := p.expectIdent().Text

	kind := KindProcedureBody
	if isFunc {
		kind = KindFunctionBody
	}
	node := NewNode(kind, pos)
	node.SetAttr("name", name)

	params := NewNode(KindBlock, pos)
	params.SetAttr("role", "params")
	if p.isOp("(") {
		p.advance()
		for !p.isOp(")") {
			params.Add(p.parseParamDecl())
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
		p.expectOp(")")
	}
	node.Add(params)

	if isFunc {
		p.expectKW("RETURN")
		node.SetAttr("returnType", p.parseTypeRef())
	}

	if p.isKW("IS") {
		p.advance()
	} else {
		p.expectKW("AS")
	}

	decls := NewNode(KindBlock, p.cur().Pos)
	decls.SetAttr("role", "declarations")
	for !p.isKW("BEGIN") {
		decls.Add(p.parseDeclOrTypeDecl())
	}
	node.Add(decls)

	node.Add(p.parseBeginEndBody())

	if p.isKW(name) {
		p.advance() // optional trailing routine name after END
	}
	p.expectOp(";")
	return node
}

// parsePackageSpec parses `PACKAGE name IS ... END;`, collecting the
// package's variable declarations and nested routine signatures
// (spec §3 "package-variable catalog" is built from exactly this text).
func (p *Parser) parsePackageSpec() *Node {
	pos := p.expectKW("PACKAGE").Pos
	name := p.expectIdent().Text
	node := NewNode(KindPackageSpec, pos)
	node.SetAttr("name", name)

	if p.isKW("IS") {
		p.advance()
	} else {
		p.expectKW("AS")
	}

	for !p.isKW("END") {
		switch {
		case p.isKW("FUNCTION"):
			node.Add(p.parseRoutineSignature(true))
		case p.isKW("PROCEDURE"):
			node.Add(p.parseRoutineSignature(false))
		case p.isKW("TYPE"):
			node.Add(p.parseDeclOrTypeDecl())
		default:
			node.Add(p.parseDeclOrTypeDecl())
		}
	}
	p.expectKW("END")
	if p.isKW(name) {
		p.advance()
	}
	p.expectOp(";")
	return node
}

// parseRoutineSignature parses a function/procedure signature line
// inside a package spec (no body: header only, terminated by `;`).
func (p *Parser) parseRoutineSignature(isFunc bool) *Node {
	pos := p.cur().Pos
	if isFunc {
		p.expectKW("FUNCTION")
	} else {
		p.expectKW("PROCEDURE")
	}
	name := p.expectIdent().Text
	kind := KindProcedureBody
	if isFunc {
		kind = KindFunctionBody
	}
	node := NewNode(kind, pos)
	node.SetAttr("name", name)
	node.SetAttr("signatureOnly", "true")

	params := NewNode(KindBlock, pos)
	params.SetAttr("role", "params")
	if p.isOp("(") {
		p.advance()
		for !p.isOp(")") {
			params.Add(p.parseParamDecl())
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
		p.expectOp(")")
	}
	node.Add(params)

	if isFunc {
		p.expectKW("RETURN")
		node.SetAttr("returnType", p.parseTypeRef())
	}
	p.expectOp(";")
	return node
}

func (p *Parser) parseParamDecl() *Node {
	pos := p.cur().Pos
	name := p.expectIdent().Text
	mode := "IN"
	if p.isKW("IN") {
		p.advance()
		if p.isKW("OUT") {
			p.advance()
			mode = "INOUT"
		}
	} else if p.isKW("OUT") {
		p.advance()
		mode = "OUT"
	}
	typ := p.parseTypeRef()
	n := NewNode(KindParamDecl, pos)
	n.SetAttr("name", name)
	n.SetAttr("mode", mode)
	n.SetAttr("type", typ)
	if p.isOp(":=") || p.isKW("DEFAULT") {
		p.advance()
		n.Add(p.parseExpr())
	}
	return n
}

// parseTypeRef parses a dotted type name with an optional ignored
// precision/scale parenthetical, e.g. VARCHAR2(100), NUMBER(10,2),
// hr.address_t.
func (p *Parser) parseTypeRef() string {
	name := p.parseDottedName()
	if p.isOp("(") {
		depth := 0
		for {
			if p.isOp("(") {
				depth++
			} else if p.isOp(")") {
				depth--
				p.advance()
				if depth == 0 {
					break
				}
				continue
			}
			p.advance()
		}
	}
	return name
}

// parseDeclOrTypeDecl parses one declaration-section entry: either a
// `TYPE ... IS RECORD|TABLE ...` declaration or a plain variable/constant
// declaration.
func (p *Parser) parseDeclOrTypeDecl() *Node {
	if p.isKW("TYPE") {
		return p.parseTypeDecl()
	}
	return p.parseVarDecl()
}

func (p *Parser) parseTypeDecl() *Node {
	pos := p.expectKW("TYPE").Pos
	name := p.expectIdent().Text
	p.expectKW("IS")

	if p.isKW("RECORD") {
		p.advance()
		p.expectOp("(")
		n := NewNode(KindRecordTypeDecl, pos)
		n.SetAttr("name", name)
		for !p.isOp(")") {
			fpos := p.cur().Pos
			fname := p.expectIdent().Text
			ftype := p.parseTypeRef()
			field := NewNode(KindFieldDecl, fpos)
			field.SetAttr("name", fname)
			field.SetAttr("type", ftype)
			n.Add(field)
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
		p.expectOp(")")
		p.expectOp(";")
		return n
	}

	p.expectKW("TABLE")
	p.expectKW("OF")
	elemType := p.parseTypeRef()
	n := NewNode(KindCollectionTypeDecl, pos)
	n.SetAttr("name", name)
	n.SetAttr("elementType", elemType)
	if p.isKW("INDEX") {
		p.advance()
		p.expectKW("BY")
		n.SetAttr("indexType", p.parseTypeRef())
		n.SetAttr("kind", "map")
	} else {
		n.SetAttr("kind", "array")
	}
	p.expectOp(";")
	return n
}

func (p *Parser) parseVarDecl() *Node {
	pos := p.cur().Pos
	name := p.expectIdent().Text
	isConst := false
	if p.isKW("CONSTANT") {
		p.advance()
		isConst = true
	}
	typ := p.parseTypeRef()
	n := NewNode(KindDeclaration, pos)
	n.SetAttr("name", name)
	n.SetAttr("type", typ)
	n.SetAttr("const", boolStr(isConst))
	if p.isOp(":=") {
		p.advance()
		n.Add(p.parseExpr())
	}
	p.expectOp(";")
	return n
}

// parseBeginEndBody parses `BEGIN stmts [EXCEPTION handlers] END`,
// returning a KindBlock tagged role="body" (its last child is the
// exception block, if present).
func (p *Parser) parseBeginEndBody() *Node {
	pos := p.expectKW("BEGIN").Pos
	body := NewNode(KindBlock, pos)
	body.SetAttr("role", "body")
	body.Children = p.parseStatements(func() bool {
		return p.isKW("END") || p.isKW("EXCEPTION")
	})
	if p.isKW("EXCEPTION") {
		body.Add(p.parseExceptionBlock())
	}
	p.expectKW("END")
	return body
}

func (p *Parser) parseStatements(stop func() bool) []*Node {
	var stmts []*Node
	for !stop() && !p.atEOF() {
		stmts = append(stmts, p.parseStatement())
	}
	return stmts
}

func (p *Parser) parseExceptionBlock() *Node {
	pos := p.expectKW("EXCEPTION").Pos
	n := NewNode(KindExceptionBlock, pos)
	for p.isKW("WHEN") {
		hpos := p.advance().Pos
		h := NewNode(KindExceptionHandler, hpos)
		h.SetAttr("name", p.parseDottedName())
		p.expectKW("THEN")
		body := NewNode(KindBlock, hpos)
		body.Children = p.parseStatements(func() bool {
			return p.isKW("WHEN") || p.isKW("END")
		})
		h.Add(body)
		n.Add(h)
	}
	return n
}

func (p *Parser) parseStatement() *Node {
	switch {
	case p.isKW("IF"):
		return p.parseIfStatement()
	case p.isKW("WHILE"):
		return p.parseWhileLoop()
	case p.isKW("FOR"):
		return p.parseForLoop()
	case p.isKW("LOOP"):
		return p.parseBareLoop()
	case p.isKW("EXIT"):
		return p.parseExitStatement()
	case p.isKW("RETURN"):
		return p.parseReturnStatement()
	case p.isKW("NULL"):
		return p.parseNullStatement()
	case p.isKW("RAISE"):
		return p.parseRaiseStatement()
	case p.isKW("BEGIN"):
		return p.parseBeginEndBody()
	default:
		return p.parseAssignmentOrCall()
	}
}

func (p *Parser) parseIfStatement() *Node {
	pos := p.expectKW("IF").Pos
	n := NewNode(KindIfStatement, pos)
	n.Add(p.parseExpr())
	p.expectKW("THEN")

	thenBody := NewNode(KindBlock, pos)
	thenBody.Children = p.parseStatements(func() bool {
		return p.isKW("ELSIF") || p.isKW("ELSE") || p.isKW("END")
	})
	n.Add(thenBody)

	for p.isKW("ELSIF") {
		epos := p.advance().Pos
		branch := NewNode(KindElsifBranch, epos)
		branch.Add(p.parseExpr())
		p.expectKW("THEN")
		body := NewNode(KindBlock, epos)
		body.Children = p.parseStatements(func() bool {
			return p.isKW("ELSIF") || p.isKW("ELSE") || p.isKW("END")
		})
		branch.Add(body)
		n.Add(branch)
	}

	if p.isKW("ELSE") {
		p.advance()
		n.SetAttr("hasElse", "true")
		elseBody := NewNode(KindBlock, p.cur().Pos)
		elseBody.Children = p.parseStatements(func() bool { return p.isKW("END") })
		n.Add(elseBody)
	}

	p.expectKW("END")
	p.expectKW("IF")
	p.expectOp(";")
	return n
}

func (p *Parser) parseWhileLoop() *Node {
	pos := p.expectKW("WHILE").Pos
	n := NewNode(KindWhileLoop, pos)
	n.Add(p.parseExpr())
	p.expectKW("LOOP")
	body := NewNode(KindBlock, pos)
	body.Children = p.parseStatements(func() bool { return p.isKW("END") })
	n.Add(body)
	p.expectKW("END")
	p.expectKW("LOOP")
	p.expectOp(";")
	return n
}

func (p *Parser) parseForLoop() *Node {
	pos := p.expectKW("FOR").Pos
	varName := p.expectIdent().Text
	p.expectKW("IN")
	reverse := false
	if p.isKW("REVERSE") {
		p.advance()
		reverse = true
	}
	n := NewNode(KindForLoop, pos)
	n.SetAttr("var", varName)
	n.SetAttr("reverse", boolStr(reverse))
	n.Add(p.parseConcat())
	p.expectOp("..")
	n.Add(p.parseConcat())
	p.expectKW("LOOP")
	body := NewNode(KindBlock, pos)
	body.Children = p.parseStatements(func() bool { return p.isKW("END") })
	n.Add(body)
	p.expectKW("END")
	p.expectKW("LOOP")
	p.expectOp(";")
	return n
}

// parseBareLoop parses a plain `LOOP ... END LOOP;`, typically combined
// with an `EXIT WHEN` inside the body.
func (p *Parser) parseBareLoop() *Node {
	pos := p.expectKW("LOOP").Pos
	n := NewNode(KindLoopStatement, pos)
	body := NewNode(KindBlock, pos)
	body.Children = p.parseStatements(func() bool { return p.isKW("END") })
	n.Add(body)
	p.expectKW("END")
	p.expectKW("LOOP")
	p.expectOp(";")
	return n
}

func (p *Parser) parseExitStatement() *Node {
	pos := p.expectKW("EXIT").Pos
	n := NewNode(KindExitStatement, pos)
	if p.isKW("WHEN") {
		p.advance()
		n.Add(p.parseExpr())
	}
	p.expectOp(";")
	return n
}

func (p *Parser) parseReturnStatement() *Node {
	pos := p.expectKW("RETURN").Pos
	n := NewNode(KindReturnStatement, pos)
	if !p.isOp(";") {
		n.Add(p.parseExpr())
	}
	p.expectOp(";")
	return n
}

func (p *Parser) parseNullStatement() *Node {
	pos := p.expectKW("NULL").Pos
	p.expectOp(";")
	return &Node{Kind: KindNullStatement, Pos: pos}
}

func (p *Parser) parseRaiseStatement() *Node {
	pos := p.expectKW("RAISE").Pos
	n := NewNode(KindRaiseStatement, pos)
	if !p.isOp(";") {
		n.SetAttr("name", p.parseDottedName())
	}
	p.expectOp(";")
	return n
}

// parseAssignmentOrCall parses `lvalue := expr;` or a bare procedure
// call statement `name(args);`. The lvalue grammar (dotted names,
// element access, member calls) is shared with the expression primary
// parser; which shape it turns out to be is a rewrite-time decision that
// depends on whether the name resolves to a package variable, a local
// collection/record variable, or an ordinary procedure (spec §4.5).
func (p *Parser) parseAssignmentOrCall() *Node {
	lhs := p.parseIdentOrCallOrColumn()
	if p.isOp(":=") {
		p.advance()
		rhs := p.parseExpr()
		n := NewNode(KindAssignment, lhs.Pos)
		n.Add(lhs, rhs)
		p.expectOp(";")
		return n
	}
	n := NewNode(KindCallStatement, lhs.Pos)
	n.Add(lhs)
	p.expectOp(";")
	return n
}
