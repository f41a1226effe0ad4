package rewrite

import (
	"strings"

	"github.com/kestrelsql/oratopg/internal/sqlexpr"
	"github.com/kestrelsql/oratopg/pkg/parser"
)

// RewriteExpr translates one expression subtree into a sqlexpr.Expr
// ready to render as PostgreSQL text. It is the workhorse every other
// rewrite file calls down into for WHERE/SELECT-list/ON-clause
// fragments.
func RewriteExpr(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	if n == nil {
		return sqlexpr.Null{}, nil
	}

	switch n.Kind {
	case parser.KindLiteral:
		return rewriteLiteral(n)

	case parser.KindColumnReference:
		return rewriteColumnReference(ctx, n)

	case parser.KindFunctionCall:
		return rewriteFunctionCall(ctx, n)

	case parser.KindArithmeticOp:
		return rewriteArithmeticOp(ctx, n)

	case parser.KindConcatOp:
		return rewriteConcatOp(ctx, n)

	case parser.KindUnaryOp:
		operand, err := RewriteExpr(ctx, n.Child(0))
		if err != nil {
			return nil, err
		}
		if n.Attr("op") == "PRIOR" {
			// A PRIOR reference reaching the generic expression rewriter
			// means it appeared outside the CONNECT BY join condition the
			// connect-by rewriter special-cases; there is no PostgreSQL
			// equivalent for PRIOR in that position.
			return nil, newTransformError("connect_by_prior", ErrConnectByPriorMissing, "",
				"PRIOR is only supported directly inside a CONNECT BY join condition")
		}
		return sqlexpr.Raw(n.Attr("op") + operand.SQL()), nil

	case parser.KindLogicalOp:
		left, err := RewriteExpr(ctx, n.Child(0))
		if err != nil {
			return nil, err
		}
		right, err := RewriteExpr(ctx, n.Child(1))
		if err != nil {
			return nil, err
		}
		if n.Attr("op") == "OR" {
			return sqlexpr.Or(left, right), nil
		}
		return sqlexpr.And(left, right), nil

	case parser.KindNotOp:
		inner, err := RewriteExpr(ctx, n.Child(0))
		if err != nil {
			return nil, err
		}
		return sqlexpr.Not(inner), nil

	case parser.KindComparison:
		return rewriteComparison(ctx, n)

	case parser.KindBetween:
		return rewriteBetween(ctx, n)

	case parser.KindInList:
		return rewriteInList(ctx, n)

	case parser.KindLikeOp:
		return rewriteLike(ctx, n)

	case parser.KindIsNull:
		operand, err := RewriteExpr(ctx, n.Child(0))
		if err != nil {
			return nil, err
		}
		if n.Attr("negate") == "true" {
			return sqlexpr.IsNotNull{Expr: operand}, nil
		}
		return sqlexpr.IsNull{Expr: operand}, nil

	case parser.KindParen:
		inner, err := RewriteExpr(ctx, n.Child(0))
		if err != nil {
			return nil, err
		}
		return sqlexpr.Paren{Expr: inner}, nil

	case parser.KindScalarSubquery:
		inner, err := RewriteQueryExpr(ctx, n.Child(0))
		if err != nil {
			return nil, err
		}
		return sqlexpr.Paren{Expr: sqlexpr.Raw(inner)}, nil

	case parser.KindOverClause:
		return rewriteOverClause(ctx, n)

	case parser.KindCaseExpression:
		return rewriteCaseExpression(ctx, n)

	case parser.KindSequenceRef:
		return rewriteSequenceRef(ctx, n)

	case parser.KindRownum:
		// A ROWNUM reference reaching the generic expression rewriter
		// (outside the WHERE-clause limit/row_number rewrites in
		// select_rewrite.go) is rendered as the window form; the
		// caller is responsible for the LIMIT-extraction fast path.
		return sqlexpr.Raw("row_number() OVER ()"), nil

	case parser.KindSysdate:
		return sqlexpr.Raw("CURRENT_TIMESTAMP"), nil

	case parser.KindLevelRef:
		switch ctx.Mode {
		case ModeBase:
			return sqlexpr.Int(1), nil
		case ModeRecursive:
			return sqlexpr.Raw("h.level + 1"), nil
		default:
			return sqlexpr.Col{Column: "level"}, nil
		}

	case parser.KindConnectByRoot:
		return nil, newTransformError("connect_by_root", ErrConnectByRootUnsupported, "",
			"CONNECT_BY_ROOT has no direct recursive-CTE equivalent")

	case parser.KindSysConnectByPath:
		return nil, newTransformError("sys_connect_by_path", ErrSysConnectByPathUnsupported, "",
			"SYS_CONNECT_BY_PATH has no direct recursive-CTE equivalent; carry the path as an explicit CTE column instead")

	case parser.KindMemberCall:
		return rewriteMemberCall(ctx, n)
	}

	return nil, newTransformError(string(n.Kind), ErrUnsupportedConstruct, "",
		"no expression rewrite rule for %s", n.Kind)
}

func rewriteLiteral(n *parser.Node) (sqlexpr.Expr, error) {
	switch n.Attr("type") {
	case "string":
		return sqlexpr.Lit(n.Text), nil
	case "number":
		return sqlexpr.Raw(n.Text), nil
	case "null":
		return sqlexpr.Null{}, nil
	case "boolean":
		return sqlexpr.Bool(n.Text == "TRUE"), nil
	case "bind":
		return sqlexpr.ParamRef(strings.TrimPrefix(n.Text, ":")), nil
	}
	if n.Text == "*" {
		return sqlexpr.Raw("*"), nil
	}
	return sqlexpr.Raw(n.Text), nil
}

// rewriteColumnReference resolves a (possibly qualified) column/table
// alias reference. Since Oracle and PostgreSQL share dotted
// qualification syntax, the rewrite is a pass-through of the original
// parts, except that a package variable becomes its getter call and a
// field of a local record variable becomes a jsonb field read; synonym
// resolution for bare table-alias-less single-part names
// is left to the FROM-clause rewrite, which is where Oracle table
// synonyms are actually declared.
func rewriteColumnReference(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	parts := n.Attr("parts")

	if ctx.Locals != nil && ctx.CurrentPackage != "" && ctx.PackageVars != nil {
		segments := strings.Split(parts, ".")
		if schema, pkg, varName, ok := lookupPackageVar(ctx, segments); ok {
			return sqlexpr.Func{Name: qualifyName(schema, toLower(pkg)+"__get_"+toLower(varName))}, nil
		}
	}

	if ctx.Locals != nil && strings.Contains(parts, ".") {
		segments := strings.Split(parts, ".")
		if decl, ok := ctx.Locals.TypeOf(segments[0]); ok && decl.Kind == LocalTypeRecord {
			return recordFieldRead(segments[0], segments[1:]), nil
		}
	}

	return sqlexpr.Col{Column: parts}, nil
}

// recordFieldRead renders a jsonb field read off a local record variable:
// a single-level path uses the `->>` text-extraction operator, a nested
// path uses `#>>` with a `{a,b,...}` path literal.
func recordFieldRead(varName string, path []string) sqlexpr.Expr {
	if len(path) == 1 {
		return sqlexpr.Raw(toLower(varName) + " ->> " + sqlexpr.Lit(path[0]).SQL())
	}
	return sqlexpr.Raw(toLower(varName) + " #>> '{" + strings.Join(path, ",") + "}'")
}

func rewriteArithmeticOp(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	left, err := RewriteExpr(ctx, n.Child(0))
	if err != nil {
		return nil, err
	}
	right, err := RewriteExpr(ctx, n.Child(1))
	if err != nil {
		return nil, err
	}
	switch n.Attr("op") {
	case "+":
		return sqlexpr.Add{Left: left, Right: right}, nil
	case "-":
		return sqlexpr.Sub{Left: left, Right: right}, nil
	case "**":
		return sqlexpr.Raw(left.SQL() + " ^ " + right.SQL()), nil
	case "MOD":
		return sqlexpr.Func{Name: "MOD", Args: []sqlexpr.Expr{left, right}}, nil
	default:
		return sqlexpr.Raw(left.SQL() + " " + n.Attr("op") + " " + right.SQL()), nil
	}
}

// rewriteConcatOp builds the right-nested CONCAT(a, CONCAT(b, CONCAT(c,
// d))) form that preserves Oracle's NULL-as-empty `||` semantics
// (Postgres `||` returns NULL if any operand is NULL; CONCAT() treats
// NULL as an empty string, matching Oracle's behavior where
// NULL || x = x). An N-operand chain nests N-1 CONCAT calls.
func rewriteConcatOp(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	operands := make([]sqlexpr.Expr, len(n.Children))
	for i, c := range n.Children {
		v, err := RewriteExpr(ctx, c)
		if err != nil {
			return nil, err
		}
		operands[i] = v
	}
	return nestConcat(operands), nil
}

func nestConcat(operands []sqlexpr.Expr) sqlexpr.Expr {
	if len(operands) == 1 {
		return operands[0]
	}
	return sqlexpr.Func{Name: "CONCAT", Args: []sqlexpr.Expr{operands[0], nestConcat(operands[1:])}}
}

func rewriteComparison(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	left, err := RewriteExpr(ctx, n.Child(0))
	if err != nil {
		return nil, err
	}
	right, err := RewriteExpr(ctx, n.Child(1))
	if err != nil {
		return nil, err
	}
	switch n.Attr("op") {
	case "=":
		return sqlexpr.Eq{Left: left, Right: right}, nil
	case "<>":
		return sqlexpr.Ne{Left: left, Right: right}, nil
	case "<":
		return sqlexpr.Lt{Left: left, Right: right}, nil
	case ">":
		return sqlexpr.Gt{Left: left, Right: right}, nil
	case "<=":
		return sqlexpr.Lte{Left: left, Right: right}, nil
	case ">=":
		return sqlexpr.Gte{Left: left, Right: right}, nil
	}
	return sqlexpr.Raw(left.SQL() + " " + n.Attr("op") + " " + right.SQL()), nil
}

func rewriteBetween(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	v, err := RewriteExpr(ctx, n.Child(0))
	if err != nil {
		return nil, err
	}
	lo, err := RewriteExpr(ctx, n.Child(1))
	if err != nil {
		return nil, err
	}
	hi, err := RewriteExpr(ctx, n.Child(2))
	if err != nil {
		return nil, err
	}
	not := ""
	if n.Attr("negate") == "true" {
		not = "NOT "
	}
	return sqlexpr.Raw(v.SQL() + " " + not + "BETWEEN " + lo.SQL() + " AND " + hi.SQL()), nil
}

func rewriteInList(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	v, err := RewriteExpr(ctx, n.Child(0))
	if err != nil {
		return nil, err
	}
	rendered := make([]string, len(n.Children)-1)
	for i, c := range n.Children[1:] {
		item, err := RewriteExpr(ctx, c)
		if err != nil {
			return nil, err
		}
		rendered[i] = item.SQL()
	}
	not := ""
	if n.Attr("negate") == "true" {
		not = "NOT "
	}
	return sqlexpr.Raw(v.SQL() + " " + not + "IN (" + strings.Join(rendered, ", ") + ")"), nil
}

func rewriteLike(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	v, err := RewriteExpr(ctx, n.Child(0))
	if err != nil {
		return nil, err
	}
	pattern, err := RewriteExpr(ctx, n.Child(1))
	if err != nil {
		return nil, err
	}
	not := ""
	if n.Attr("negate") == "true" {
		not = "NOT "
	}
	sql := v.SQL() + " " + not + "LIKE " + pattern.SQL()
	if n.Child(2) != nil {
		esc, err := RewriteExpr(ctx, n.Child(2))
		if err != nil {
			return nil, err
		}
		sql += " ESCAPE " + esc.SQL()
	}
	return sqlexpr.Raw(sql), nil
}

func rewriteOverClause(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	call, err := RewriteExpr(ctx, n.Child(0))
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString(call.SQL())
	sb.WriteString(" OVER (")
	wrote := false
	var partitionExprs []string
	var orderNode *parser.Node
	for _, c := range n.Children[1:] {
		if c.Kind == parser.KindOrderClause {
			orderNode = c
			continue
		}
		v, err := RewriteExpr(ctx, c)
		if err != nil {
			return nil, err
		}
		partitionExprs = append(partitionExprs, v.SQL())
	}
	if len(partitionExprs) > 0 {
		sb.WriteString("PARTITION BY ")
		sb.WriteString(strings.Join(partitionExprs, ", "))
		wrote = true
	}
	if orderNode != nil {
		if wrote {
			sb.WriteString(" ")
		}
		orderSQL, err := rewriteOrderClause(ctx, orderNode)
		if err != nil {
			return nil, err
		}
		sb.WriteString(orderSQL)
	}
	sb.WriteString(")")
	return sqlexpr.Raw(sb.String()), nil
}

func rewriteCaseExpression(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	if n.Attr("simple") == "true" {
		return rewriteSimpleCase(ctx, n)
	}
	var ce sqlexpr.CaseExpr
	for _, c := range n.Children {
		if c.Attr("else") == "true" {
			v, err := RewriteExpr(ctx, c.Child(0))
			if err != nil {
				return nil, err
			}
			ce.Else = v
			continue
		}
		cond, err := RewriteExpr(ctx, c.Child(0))
		if err != nil {
			return nil, err
		}
		result, err := RewriteExpr(ctx, c.Child(1))
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, sqlexpr.CaseWhen{Cond: cond, Result: result})
	}
	return ce, nil
}

// rewriteSimpleCase renders Oracle's `CASE expr WHEN v THEN r ... END`
// form, which PostgreSQL accepts verbatim as standard simple CASE.
func rewriteSimpleCase(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	subject, err := RewriteExpr(ctx, n.Child(0))
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString("CASE ")
	sb.WriteString(subject.SQL())
	for _, c := range n.Children[1:] {
		if c.Attr("else") == "true" {
			v, err := RewriteExpr(ctx, c.Child(0))
			if err != nil {
				return nil, err
			}
			sb.WriteString("\n        ELSE ")
			sb.WriteString(v.SQL())
			continue
		}
		cond, err := RewriteExpr(ctx, c.Child(0))
		if err != nil {
			return nil, err
		}
		result, err := RewriteExpr(ctx, c.Child(1))
		if err != nil {
			return nil, err
		}
		sb.WriteString("\n        WHEN ")
		sb.WriteString(cond.SQL())
		sb.WriteString(" THEN ")
		sb.WriteString(result.SQL())
	}
	sb.WriteString("\n    END")
	return sqlexpr.Raw(sb.String()), nil
}

// rewriteSequenceRef resolves name.NEXTVAL/name.CURRVAL, following a
// synonym if the sequence name isn't schema-qualified in source, and
// emits nextval()/currval() with the sequence name as a quoted literal
// (Postgres sequence functions take a regclass-castable text argument,
// not a bare identifier).
func rewriteSequenceRef(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	seq := n.Attr("sequence")
	schema, name := splitQualified(seq, ctx.ActiveSchema)
	if !strings.Contains(seq, ".") {
		if target, ok := ctx.Catalog.ResolveSynonym(schema, name); ok {
			schema, name = target.TargetOwner, target.TargetName
		}
	}
	fn := "nextval"
	if n.Attr("which") == "currval" {
		fn = "currval"
	}
	return sqlexpr.Func{Name: fn, Args: []sqlexpr.Expr{sqlexpr.Lit(qualifyName(schema, name))}}, nil
}

func splitQualified(name, defaultSchema string) (schema, rest string) {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[:idx], name[idx+1:]
	}
	return defaultSchema, name
}

// rewriteMemberCall renders an object-type method call using the
// receiver-as-first-argument dispatch pattern: schema.type__method(recv,
// args...). Chained calls nest outward, matching the parser's nested
// member_call tree shape (spec §4.5).
func rewriteMemberCall(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	recv, err := RewriteExpr(ctx, n.Child(0))
	if err != nil {
		return nil, err
	}
	args := []sqlexpr.Expr{recv}
	for _, a := range n.Children[1:] {
		v, err := RewriteExpr(ctx, a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	objType := inferObjectType(ctx, n.Child(0))
	fnName := qualifyName(ctx.ActiveSchema, objType+"__"+toLower(n.Attr("method")))
	return sqlexpr.Func{Name: fnName, Args: args}, nil
}

// inferObjectType resolves the receiver of a member-method call to the
// schema-local name of its declared object type, so rewriteMemberCall can
// dispatch to `type__method(...)`. The receiver is expected to be an
// `alias.column` reference; alias is looked up against the FROM-clause
// bindings collected for the enclosing query block (spec §4.5: "col is
// declared as a column of a user-defined type"). A receiver the aliases
// map can't resolve -- an unbound alias, a subquery, a non-column
// receiver -- falls back to "unknown", matching the documented
// pass-through policy for anything the catalog can't confirm.
func inferObjectType(ctx Context, recv *parser.Node) string {
	if recv == nil || recv.Kind != parser.KindColumnReference {
		return "unknown"
	}
	parts := strings.Split(recv.Attr("parts"), ".")
	if len(parts) < 2 {
		return "unknown"
	}
	alias, column := parts[len(parts)-2], parts[len(parts)-1]
	binding, ok := ctx.ResolveAlias(alias)
	if !ok {
		return "unknown"
	}
	tag := ctx.Evaluator.EvalColumn(binding.Schema, binding.Table, column)
	if tag.Kind == TypeObject && tag.ObjectType != "" {
		objParts := strings.Split(tag.ObjectType, ".")
		return objParts[len(objParts)-1]
	}
	return "unknown"
}
