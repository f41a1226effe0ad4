package rewrite

import (
	"strconv"
	"strings"

	"github.com/kestrelsql/oratopg/internal/plsqlgen"
	"github.com/kestrelsql/oratopg/internal/sqlexpr"
	"github.com/kestrelsql/oratopg/pkg/parser"
)

// RewriteFunctionBody emits a complete `CREATE OR REPLACE FUNCTION ...`
// statement from a parsed standalone or package-member FUNCTION body
// (spec §4.5).
func RewriteFunctionBody(ctx Context, n *parser.Node) (string, error) {
	return rewriteRoutine(ctx, n, true)
}

// RewriteProcedureBody emits a complete `CREATE OR REPLACE FUNCTION ...`
// statement (PostgreSQL has no separate PROCEDURE wire format the rest of
// this translator's signature-free call sites depend on) from a parsed
// PROCEDURE body.
func RewriteProcedureBody(ctx Context, n *parser.Node) (string, error) {
	return rewriteRoutine(ctx, n, false)
}

func rewriteRoutine(ctx Context, n *parser.Node, isFunc bool) (string, error) {
	ctx = ctx.WithLocals()

	params := findBlock(n, "params")
	decls := findBlock(n, "declarations")
	body := findBlock(n, "body")

	args, outArgs := rewriteParams(ctx, params)

	decl, err := rewriteDecls(ctx, decls)
	if err != nil {
		return "", err
	}

	returns := "void"
	if isFunc {
		returns = mapOracleType(n.Attr("returnType"))
	} else {
		returns = procedureReturnType(outArgs)
	}

	stmts, handlers, err := rewriteBodyBlock(ctx, body)
	if err != nil {
		return "", err
	}

	fn := plsqlgen.PlpgsqlFunction{
		Schema:  ctx.ActiveSchema,
		Name:    toLower(n.Attr("name")),
		Args:    args,
		Returns: returns,
		Decls:   decl,
		Body:    stmts,
		Header:  []string{routineHeader(isFunc, n.Attr("name"))},
	}
	if ctx.CurrentPackage != "" {
		fn.PackageInit = qualifyName(ctx.ActiveSchema, toLower(ctx.CurrentPackage)+"__initialize")
	}
	fn.ExceptionHandlers = handlers

	return fn.SQL(), nil
}

func routineHeader(isFunc bool, name string) string {
	kind := "FUNCTION"
	if !isFunc {
		kind = "PROCEDURE"
	}
	return "Translated from Oracle " + kind + " " + name + "."
}

func findBlock(n *parser.Node, role string) *parser.Node {
	for _, c := range n.Children {
		if c.Kind == parser.KindBlock && c.Attr("role") == role {
			return c
		}
	}
	return nil
}

// rewriteParams builds the PL/pgSQL argument list and registers every
// parameter as a local variable so package-variable rewrites never shadow
// a routine's own arguments (spec §4.5, "local variables always win").
func rewriteParams(ctx Context, params *parser.Node) (args []plsqlgen.FuncArg, outArgs []plsqlgen.FuncArg) {
	if params == nil {
		return nil, nil
	}
	for _, p := range params.Children {
		name := p.Attr("name")
		typ := p.Attr("type")
		ctx.Locals.VarTypes[fold(name)] = toLower(typ)
		mode := p.Attr("mode")
		arg := plsqlgen.FuncArg{Name: toLower(name), Type: mapOracleType(typ), Mode: mode}
		args = append(args, arg)
		if mode == "OUT" || mode == "INOUT" {
			outArgs = append(outArgs, arg)
		}
	}
	return args, outArgs
}

// procedureReturnType derives the RETURNS clause for a PROCEDURE with no
// native PostgreSQL procedure counterpart in this translator's output
// shape: zero OUT parameters returns void, exactly one returns that
// parameter's type, more than one falls back to the generic "record" (the
// caller is expected to destructure it positionally).
func procedureReturnType(outArgs []plsqlgen.FuncArg) string {
	switch len(outArgs) {
	case 0:
		return "void"
	case 1:
		return outArgs[0].Type
	default:
		return "record"
	}
}

// rewriteDecls converts the DECLARE section: TYPE declarations register
// locally and render as a comment (spec §4.5, "the declaration is
// commented out"); variable declarations of a locally registered
// record/array/map type become jsonb with the matching literal default,
// everything else maps through mapOracleType.
func rewriteDecls(ctx Context, decls *parser.Node) ([]plsqlgen.Decl, error) {
	if decls == nil {
		return nil, nil
	}
	var out []plsqlgen.Decl
	for _, d := range decls.Children {
		switch d.Kind {
		case parser.KindRecordTypeDecl:
			registerRecordType(ctx, d)
			out = append(out, plsqlgen.Decl{CommentOnly: describeRecordType(d)})

		case parser.KindCollectionTypeDecl:
			registerCollectionType(ctx, d)
			out = append(out, plsqlgen.Decl{CommentOnly: describeCollectionType(d)})

		case parser.KindDeclaration:
			name := d.Attr("name")
			typ := d.Attr("type")
			ctx.Locals.VarTypes[fold(name)] = fold(typ)
			if localDecl, ok := ctx.Locals.Types[fold(typ)]; ok {
				out = append(out, plsqlgen.Decl{
					Name:    toLower(name),
					Type:    "jsonb",
					Const:   d.Attr("const") == "true",
					Default: jsonbLiteralDefault(localDecl.Kind),
				})
				continue
			}
			decl := plsqlgen.Decl{Name: toLower(name), Type: mapOracleType(typ), Const: d.Attr("const") == "true"}
			if d.Child(0) != nil {
				v, err := RewriteExpr(ctx, d.Child(0))
				if err != nil {
					return nil, err
				}
				decl.Default = v.SQL()
			}
			out = append(out, decl)
		}
	}
	return out, nil
}

func jsonbLiteralDefault(kind LocalTypeKind) string {
	if kind == LocalTypeArray {
		return "'[]'::jsonb"
	}
	return "'{}'::jsonb"
}

func registerRecordType(ctx Context, d *parser.Node) {
	var fields []string
	for _, f := range d.Children {
		fields = append(fields, f.Attr("name"))
	}
	ctx.Locals.Types[fold(d.Attr("name"))] = LocalTypeDecl{Kind: LocalTypeRecord, Fields: fields}
}

func describeRecordType(d *parser.Node) string {
	var parts []string
	for _, f := range d.Children {
		parts = append(parts, f.Attr("name")+" "+f.Attr("type"))
	}
	return "TYPE " + d.Attr("name") + " IS RECORD(" + strings.Join(parts, ", ") + ")"
}

func registerCollectionType(ctx Context, d *parser.Node) {
	kind := LocalTypeArray
	if d.Attr("kind") == "map" {
		kind = LocalTypeMap
	}
	ctx.Locals.Types[fold(d.Attr("name"))] = LocalTypeDecl{Kind: kind, ElementType: d.Attr("elementType")}
}

func describeCollectionType(d *parser.Node) string {
	if d.Attr("kind") == "map" {
		return "TYPE " + d.Attr("name") + " IS TABLE OF " + d.Attr("elementType") + " INDEX BY " + d.Attr("indexType")
	}
	return "TYPE " + d.Attr("name") + " IS TABLE OF " + d.Attr("elementType")
}

// mapOracleType maps an Oracle parameter/variable/return type to its
// PostgreSQL rendering (spec §4.5). Precision/scale parentheticals are
// already stripped by the parser; a type not in the table is assumed to
// be a user-defined object type and passed through lower-cased.
func mapOracleType(oracleType string) string {
	switch strings.ToUpper(strings.TrimSpace(oracleType)) {
	case "NUMBER", "INTEGER", "INT", "DECIMAL", "PLS_INTEGER", "BINARY_INTEGER", "FLOAT":
		return "numeric"
	case "VARCHAR2", "CHAR", "NCHAR", "NVARCHAR2", "VARCHAR", "CLOB", "LONG":
		return "text"
	case "DATE", "TIMESTAMP":
		return "timestamp"
	case "BOOLEAN":
		return "boolean"
	case "":
		return "void"
	default:
		return toLower(oracleType)
	}
}

// rewriteBodyBlock splits a BEGIN...END block's children into its
// statement list and optional trailing EXCEPTION block.
func rewriteBodyBlock(ctx Context, body *parser.Node) ([]plsqlgen.Stmt, []plsqlgen.ExceptionHandler, error) {
	if body == nil {
		return nil, nil, nil
	}
	var stmtNodes []*parser.Node
	var exceptionBlock *parser.Node
	for _, c := range body.Children {
		if c.Kind == parser.KindExceptionBlock {
			exceptionBlock = c
			continue
		}
		stmtNodes = append(stmtNodes, c)
	}
	stmts, err := rewriteStatements(ctx, stmtNodes)
	if err != nil {
		return nil, nil, err
	}
	var handlers []plsqlgen.ExceptionHandler
	if exceptionBlock != nil {
		for _, h := range exceptionBlock.Children {
			hstmts, err := rewriteStatements(ctx, h.Child(0).Children)
			if err != nil {
				return nil, nil, err
			}
			handlers = append(handlers, plsqlgen.ExceptionHandler{
				Condition: exceptionCondition(h.Attr("name")),
				Body:      hstmts,
			})
		}
	}
	return stmts, handlers, nil
}

// exceptionCondition maps the handful of Oracle predefined exception
// names that also exist as PL/pgSQL condition names; an unrecognized
// (user-defined) exception name is passed through as OTHERS, since
// ORATOPG emits no exception_init/PRAGMA machinery to declare it.
func exceptionCondition(name string) string {
	switch strings.ToUpper(name) {
	case "NO_DATA_FOUND":
		return "no_data_found"
	case "TOO_MANY_ROWS":
		return "too_many_rows"
	case "DUP_VAL_ON_INDEX":
		return "unique_violation"
	case "ZERO_DIVIDE":
		return "division_by_zero"
	case "OTHERS", "":
		return "OTHERS"
	default:
		return "OTHERS"
	}
}

func rewriteStatements(ctx Context, nodes []*parser.Node) ([]plsqlgen.Stmt, error) {
	stmts := make([]plsqlgen.Stmt, 0, len(nodes))
	for _, n := range nodes {
		s, err := rewriteStatement(ctx, n)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func rewriteStatement(ctx Context, n *parser.Node) (plsqlgen.Stmt, error) {
	switch n.Kind {
	case parser.KindAssignment:
		return rewriteAssignment(ctx, n)

	case parser.KindCallStatement:
		return rewriteCallStatement(ctx, n)

	case parser.KindIfStatement:
		return rewriteIfStatement(ctx, n)

	case parser.KindWhileLoop:
		cond, err := RewriteExpr(ctx, n.Child(0))
		if err != nil {
			return nil, err
		}
		body, err := rewriteStatements(ctx, n.Child(1).Children)
		if err != nil {
			return nil, err
		}
		return plsqlgen.While{Cond: cond, Body: body}, nil

	case parser.KindForLoop:
		low, err := RewriteExpr(ctx, n.Child(0))
		if err != nil {
			return nil, err
		}
		high, err := RewriteExpr(ctx, n.Child(1))
		if err != nil {
			return nil, err
		}
		body, err := rewriteStatements(ctx, n.Child(2).Children)
		if err != nil {
			return nil, err
		}
		return plsqlgen.ForRange{
			Var:     toLower(n.Attr("var")),
			Reverse: n.Attr("reverse") == "true",
			Low:     low,
			High:    high,
			Body:    body,
		}, nil

	case parser.KindLoopStatement:
		body, err := rewriteStatements(ctx, n.Child(0).Children)
		if err != nil {
			return nil, err
		}
		return plsqlgen.Loop{Body: body}, nil

	case parser.KindExitStatement:
		if n.Child(0) == nil {
			return plsqlgen.Exit{}, nil
		}
		cond, err := RewriteExpr(ctx, n.Child(0))
		if err != nil {
			return nil, err
		}
		return plsqlgen.Exit{When: cond}, nil

	case parser.KindReturnStatement:
		if n.Child(0) == nil {
			return plsqlgen.Return{}, nil
		}
		v, err := RewriteExpr(ctx, n.Child(0))
		if err != nil {
			return nil, err
		}
		return plsqlgen.ReturnValue{Value: v}, nil

	case parser.KindNullStatement:
		return plsqlgen.Null{}, nil

	case parser.KindRaiseStatement:
		name := n.Attr("name")
		if name == "" {
			return plsqlgen.RawStmt{SQLText: "RAISE;"}, nil
		}
		return plsqlgen.Raise{Message: name, ErrCode: "P0001"}, nil

	case parser.KindBlock:
		return rewriteNestedBlock(ctx, n)
	}

	return nil, newTransformError(string(n.Kind), ErrUnsupportedConstruct, "",
		"no PL/SQL statement rewrite rule for %s", n.Kind)
}

// nestedBlockStmt renders a nested BEGIN...END block (with its own
// optional EXCEPTION handlers) inline, satisfying plsqlgen.Stmt without
// plsqlgen needing to know about the rewrite package's types.
type nestedBlockStmt struct{ text string }

func (b nestedBlockStmt) StmtSQL() string { return b.text }

func rewriteNestedBlock(ctx Context, n *parser.Node) (plsqlgen.Stmt, error) {
	stmts, handlers, err := rewriteBodyBlock(ctx, n)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString("BEGIN\n")
	for _, s := range stmts {
		for _, line := range strings.Split(s.StmtSQL(), "\n") {
			sb.WriteString("    ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	if len(handlers) > 0 {
		sb.WriteString("EXCEPTION\n")
		for _, h := range handlers {
			sb.WriteString("    WHEN ")
			sb.WriteString(h.Condition)
			sb.WriteString(" THEN\n")
			for _, s := range h.Body {
				sb.WriteString("        ")
				sb.WriteString(s.StmtSQL())
				sb.WriteString("\n")
			}
		}
	}
	sb.WriteString("END;")
	return nestedBlockStmt{text: sb.String()}, nil
}

func rewriteIfStatement(ctx Context, n *parser.Node) (plsqlgen.Stmt, error) {
	cond, err := RewriteExpr(ctx, n.Child(0))
	if err != nil {
		return nil, err
	}
	thenStmts, err := rewriteStatements(ctx, n.Child(1).Children)
	if err != nil {
		return nil, err
	}

	rest := n.Children[2:]
	var elsifs []*parser.Node
	var elseBlock *parser.Node
	for _, c := range rest {
		if c.Kind == parser.KindElsifBranch {
			elsifs = append(elsifs, c)
			continue
		}
		elseBlock = c
	}

	elseStmts, err := buildElsifChain(ctx, elsifs, elseBlock)
	if err != nil {
		return nil, err
	}

	return plsqlgen.If{Cond: cond, Then: thenStmts, Else: elseStmts}, nil
}

// buildElsifChain nests ELSIF branches as single-statement IF blocks
// inside the preceding branch's ELSE, matching PL/pgSQL's own IF/ELSIF
// grammar one level of nesting at a time.
func buildElsifChain(ctx Context, elsifs []*parser.Node, elseBlock *parser.Node) ([]plsqlgen.Stmt, error) {
	if len(elsifs) == 0 {
		if elseBlock == nil {
			return nil, nil
		}
		return rewriteStatements(ctx, elseBlock.Children)
	}
	head := elsifs[0]
	cond, err := RewriteExpr(ctx, head.Child(0))
	if err != nil {
		return nil, err
	}
	thenStmts, err := rewriteStatements(ctx, head.Child(1).Children)
	if err != nil {
		return nil, err
	}
	rest, err := buildElsifChain(ctx, elsifs[1:], elseBlock)
	if err != nil {
		return nil, err
	}
	return []plsqlgen.Stmt{plsqlgen.If{Cond: cond, Then: thenStmts, Else: rest}}, nil
}

// rewriteCallStatement renders a bare procedure call statement. Its
// lvalue-shaped grammar (shared with expressions) means it can parse as
// either a function_call (args present) or a column_reference (a bare
// name with no parens); both resolve to the same qualified-call rewrite.
func rewriteCallStatement(ctx Context, n *parser.Node) (plsqlgen.Stmt, error) {
	target := n.Child(0)
	if target.Kind == parser.KindColumnReference {
		parts := strings.Split(target.Attr("parts"), ".")
		synthetic := parser.NewNode(parser.KindFunctionCall, target.Pos)
		synthetic.SetAttr("name", parts[len(parts)-1])
		synthetic.SetAttr("qualifier", strings.Join(parts[:len(parts)-1], "."))
		target = synthetic
	}
	call, err := RewriteExpr(ctx, target)
	if err != nil {
		return nil, err
	}
	return plsqlgen.CallStmt{Call: call}, nil
}

// rewriteAssignment dispatches an `lvalue := expr` statement to the
// package-variable setter, record-field jsonb_set, array/map element
// jsonb_set, or plain assignment rewrite the lvalue shape calls for (spec
// §4.5).
func rewriteAssignment(ctx Context, n *parser.Node) (plsqlgen.Stmt, error) {
	lhs, rhsNode := n.Child(0), n.Child(1)
	rhs, err := RewriteExpr(ctx, rhsNode)
	if err != nil {
		return nil, err
	}

	switch lhs.Kind {
	case parser.KindColumnReference:
		return rewriteColumnAssignment(ctx, lhs, rhs)
	case parser.KindFunctionCall:
		return rewriteElementAssignment(ctx, lhs, rhs)
	}

	return nil, newTransformError("plsql_assignment_lvalue", ErrUnsupportedConstruct, "",
		"unsupported assignment target shape %s", lhs.Kind)
}

func rewriteColumnAssignment(ctx Context, lhs *parser.Node, rhs sqlexpr.Expr) (plsqlgen.Stmt, error) {
	parts := strings.Split(lhs.Attr("parts"), ".")

	if len(parts) == 1 {
		name := parts[0]
		if ctx.Locals.IsLocalVar(name) {
			return plsqlgen.Assign{Name: toLower(name), Value: rhs}, nil
		}
		if schema, pkg, varName, ok := lookupPackageVar(ctx, parts); ok {
			fn := qualifyName(schema, toLower(pkg)+"__set_"+toLower(varName))
			return plsqlgen.Perform{Call: sqlexpr.Func{Name: fn, Args: []sqlexpr.Expr{rhs}}}, nil
		}
		return plsqlgen.Assign{Name: toLower(name), Value: rhs}, nil
	}

	if schema, pkg, varName, ok := lookupPackageVar(ctx, parts); ok {
		fn := qualifyName(schema, toLower(pkg)+"__set_"+toLower(varName))
		return plsqlgen.Perform{Call: sqlexpr.Func{Name: fn, Args: []sqlexpr.Expr{rhs}}}, nil
	}

	if decl, ok := ctx.Locals.TypeOf(parts[0]); ok && decl.Kind == LocalTypeRecord {
		return recordFieldAssign(parts[0], parts[1:], rhs), nil
	}

	return nil, newTransformError("plsql_assignment_lvalue", ErrUnsupportedConstruct, "",
		"%s does not resolve to a local or package variable", lhs.Attr("parts"))
}

// recordFieldAssign builds `v := jsonb_set(v, '{path}', to_jsonb(expr)
// [, true]);` (spec §4.5: single-field paths use the 3-argument form,
// nested paths pass create_missing = true).
func recordFieldAssign(varName string, path []string, rhs sqlexpr.Expr) plsqlgen.Stmt {
	pathLit := "{" + strings.Join(path, ",") + "}"
	args := []sqlexpr.Expr{
		sqlexpr.Col{Column: toLower(varName)},
		sqlexpr.Lit(pathLit),
		sqlexpr.Func{Name: "to_jsonb", Args: []sqlexpr.Expr{rhs}},
	}
	if len(path) > 1 {
		args = append(args, sqlexpr.Bool(true))
	}
	return plsqlgen.Assign{
		Name:  toLower(varName),
		Value: sqlexpr.Func{Name: "jsonb_set", Args: args},
	}
}

// rewriteElementAssignment handles `v(i) := expr` / `v('k') := expr`
// against a local array or map variable (spec §4.5).
func rewriteElementAssignment(ctx Context, lhs *parser.Node, rhs sqlexpr.Expr) (plsqlgen.Stmt, error) {
	if lhs.Attr("qualifier") != "" {
		return nil, newTransformError("plsql_assignment_lvalue", ErrUnsupportedConstruct, "",
			"qualified element assignment is not supported")
	}
	varName := lhs.Attr("name")
	decl, ok := ctx.Locals.TypeOf(varName)
	if !ok || (decl.Kind != LocalTypeArray && decl.Kind != LocalTypeMap) {
		return nil, newTransformError("plsql_assignment_lvalue", ErrUnsupportedConstruct, "",
			"%s is not a declared local array or map variable", varName)
	}
	index := lhs.Child(0)

	pathExpr, err := elementPathExpr(ctx, decl.Kind, index)
	if err != nil {
		return nil, err
	}

	toJSON := sqlexpr.Expr(sqlexpr.Func{Name: "to_jsonb", Args: []sqlexpr.Expr{rhs}})
	if decl.Kind == LocalTypeMap {
		toJSON = sqlexpr.Func{Name: "to_jsonb", Args: []sqlexpr.Expr{sqlexpr.Raw(rhs.SQL() + "::text")}}
	}

	return plsqlgen.Assign{
		Name: toLower(varName),
		Value: sqlexpr.Func{Name: "jsonb_set", Args: []sqlexpr.Expr{
			sqlexpr.Col{Column: toLower(varName)},
			pathExpr,
			toJSON,
		}},
	}, nil
}

// elementPathExpr renders the `'{k}'` path literal/expression for an
// array or map element write, applying the 1-based -> 0-based shift for
// array indices (spec §4.5, "the 1-based -> 0-based shift is an
// invariant").
func elementPathExpr(ctx Context, kind LocalTypeKind, index *parser.Node) (sqlexpr.Expr, error) {
	if kind == LocalTypeMap {
		if index.Kind == parser.KindLiteral && index.Attr("type") == "string" {
			return sqlexpr.Lit("{" + index.Text + "}"), nil
		}
		key, err := RewriteExpr(ctx, index)
		if err != nil {
			return nil, err
		}
		return sqlexpr.Raw("'{' || " + key.SQL() + " || '}'"), nil
	}

	if index.Kind == parser.KindLiteral && index.Attr("type") == "number" {
		n, err := strconv.Atoi(index.Text)
		if err != nil {
			return nil, newTransformError("plsql_array_index", ErrUnsupportedConstruct, "",
				"non-integer array index literal %q", index.Text)
		}
		return sqlexpr.Lit("{" + strconv.Itoa(n-1) + "}"), nil
	}
	idx, err := RewriteExpr(ctx, index)
	if err != nil {
		return nil, err
	}
	shifted := sqlexpr.Paren{Expr: sqlexpr.Sub{Left: idx, Right: sqlexpr.Int(1)}}
	return sqlexpr.Raw("'{' || " + shifted.SQL() + " || '}'"), nil
}

// lookupPackageVar resolves a dotted reference against the three package
// variable addressing patterns (spec §4.5): unqualified `g_x`, package-
// qualified `pkg.g_x`, and schema-qualified `s.pkg.g_x`. It returns the
// schema, package, and bare variable name to build a getter/setter call
// from, or ok=false if parts does not name a known package variable under
// the routine's current package.
func lookupPackageVar(ctx Context, parts []string) (schema, pkg, name string, ok bool) {
	if ctx.CurrentPackage == "" || ctx.PackageVars == nil {
		return "", "", "", false
	}
	switch len(parts) {
	case 1:
		name = parts[0]
		if ctx.Locals != nil && ctx.Locals.IsLocalVar(name) {
			return "", "", "", false
		}
		if _, found := ctx.PackageVars.Lookup(ctx.ActiveSchema, ctx.CurrentPackage, name); found {
			return ctx.ActiveSchema, ctx.CurrentPackage, name, true
		}
	case 2:
		if strings.EqualFold(parts[0], ctx.CurrentPackage) {
			if _, found := ctx.PackageVars.Lookup(ctx.ActiveSchema, ctx.CurrentPackage, parts[1]); found {
				return ctx.ActiveSchema, ctx.CurrentPackage, parts[1], true
			}
		}
	case 3:
		if strings.EqualFold(parts[0], ctx.ActiveSchema) && strings.EqualFold(parts[1], ctx.CurrentPackage) {
			if _, found := ctx.PackageVars.Lookup(ctx.ActiveSchema, ctx.CurrentPackage, parts[2]); found {
				return ctx.ActiveSchema, ctx.CurrentPackage, parts[2], true
			}
		}
	}
	return "", "", "", false
}
