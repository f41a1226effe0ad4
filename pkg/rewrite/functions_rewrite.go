package rewrite

import (
	"strconv"
	"strings"

	"github.com/kestrelsql/oratopg/internal/sqlexpr"
	"github.com/kestrelsql/oratopg/pkg/parser"
)

// rewriteFunctionCall dispatches on the uppercased function name,
// applying the Oracle-specific rewrites spec §4.3 names; anything not
// recognized is assumed to already exist in PostgreSQL under the same
// name (UPPER, LOWER, COUNT, SUM, AVG, MAX, MIN, COALESCE, ...) and is
// passed through with its arguments rewritten and, if package-qualified,
// schema-qualified per the active schema/synonym rules.
func rewriteFunctionCall(ctx Context, n *parser.Node) (sqlexpr.Expr, error) {
	name := strings.ToUpper(n.Attr("name"))

	if ctx.Locals != nil && n.Attr("qualifier") == "" && n.Child(0) != nil {
		if decl, ok := ctx.Locals.TypeOf(n.Attr("name")); ok &&
			(decl.Kind == LocalTypeArray || decl.Kind == LocalTypeMap) {
			return rewriteElementRead(ctx, n.Attr("name"), decl, n.Child(0))
		}
	}

	args, err := rewriteArgs(ctx, n.Children)
	if err != nil {
		return nil, err
	}

	switch name {
	case "NVL":
		return rewriteNvl(args), nil
	case "NVL2":
		return rewriteNvl2(args), nil
	case "DECODE":
		return rewriteDecode(args), nil
	case "SUBSTR":
		return rewriteSubstr(args), nil
	case "TO_CHAR":
		return rewriteToChar(args), nil
	case "TO_DATE", "TO_TIMESTAMP":
		return rewriteToDate(name, args), nil
	case "TRIM":
		return rewriteTrim(n, args), nil
	case "SYS_CONTEXT":
		return sqlexpr.Func{Name: "current_setting", Args: args}, nil
	}

	return rewriteQualifiedCall(ctx, n, name, args)
}

// rewriteElementRead renders `v(i)` / `v('k')` against a local array or
// map variable as a jsonb element read, applying the 1-based -> 0-based
// shift for array indices. Map reads stay an untyped text extraction per
// spec §4.5 ("Read v('k') is (v->>'k')"); array reads additionally cast
// to the collection's declared element type (`(v->>(i-1))::T` for a
// literal index, `(v->>(i-1)::int)::T` for a variable one) so the result
// can be used directly in arithmetic or comparison without a runtime
// type error (spec §4.3/§9: "arithmetic on a collection-element access
// requires inserting a cast").
func rewriteElementRead(ctx Context, varName string, decl LocalTypeDecl, index *parser.Node) (sqlexpr.Expr, error) {
	col := toLower(varName)

	if decl.Kind == LocalTypeMap {
		if index.Kind == parser.KindLiteral && index.Attr("type") == "string" {
			return sqlexpr.Raw(col + " ->> " + sqlexpr.Lit(index.Text).SQL()), nil
		}
		key, err := RewriteExpr(ctx, index)
		if err != nil {
			return nil, err
		}
		return sqlexpr.Func{Name: "jsonb_extract_path_text", Args: []sqlexpr.Expr{sqlexpr.Col{Column: col}, key}}, nil
	}

	elemType := elementPgType(decl)

	if index.Kind == parser.KindLiteral && index.Attr("type") == "number" {
		n, err := strconv.Atoi(index.Text)
		if err != nil {
			return nil, newTransformError("plsql_array_index", ErrUnsupportedConstruct, "",
				"non-integer array index literal %q", index.Text)
		}
		return sqlexpr.Raw("(" + col + " ->> " + strconv.Itoa(n-1) + ")::" + elemType), nil
	}
	idx, err := RewriteExpr(ctx, index)
	if err != nil {
		return nil, err
	}
	shifted := sqlexpr.Paren{Expr: sqlexpr.Sub{Left: idx, Right: sqlexpr.Int(1)}}
	return sqlexpr.Raw("(" + col + " ->> " + shifted.SQL() + "::int)::" + elemType), nil
}

// elementPgType maps an array TYPE declaration's element type to the
// PostgreSQL type its jsonb-extracted text reads are cast to. Unlike the
// member-method dispatch in expr_rewrite.go's inferObjectType, this has
// no need to consult the TypeEvaluator: the element type is already
// known precisely from the `TYPE ... IS TABLE OF T` declaration text the
// parser captured into decl.ElementType, which is always populated (the
// grammar requires a type after TABLE OF). The empty-string guard is
// defensive only; spec §9's "evaluator returns unknown -> ::numeric"
// default is what it falls back to.
func elementPgType(decl LocalTypeDecl) string {
	if decl.ElementType == "" {
		return "numeric"
	}
	return mapOracleType(decl.ElementType)
}

func rewriteArgs(ctx Context, children []*parser.Node) ([]sqlexpr.Expr, error) {
	args := make([]sqlexpr.Expr, len(children))
	for i, c := range children {
		v, err := RewriteExpr(ctx, c)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// rewriteNvl: NVL(a, b) -> COALESCE(a, b). Identical semantics, COALESCE
// additionally supports >2 arguments which Oracle's NVL never takes.
func rewriteNvl(args []sqlexpr.Expr) sqlexpr.Expr {
	return sqlexpr.Func{Name: "COALESCE", Args: args}
}

// rewriteNvl2: NVL2(a, b, c) -> CASE WHEN a IS NOT NULL THEN b ELSE c END.
func rewriteNvl2(args []sqlexpr.Expr) sqlexpr.Expr {
	if len(args) != 3 {
		return sqlexpr.Func{Name: "NVL2", Args: args}
	}
	return sqlexpr.CaseExpr{
		Whens: []sqlexpr.CaseWhen{{Cond: sqlexpr.IsNotNull{Expr: args[0]}, Result: args[1]}},
		Else:  args[2],
	}
}

// rewriteDecode: DECODE(expr, v1, r1, v2, r2, ..., default) -> CASE
// expr WHEN v1 THEN r1 WHEN v2 THEN r2 ... ELSE default END, with an
// Oracle-specific wrinkle: DECODE treats two NULLs as equal, so each
// comparison becomes `expr IS NOT DISTINCT FROM vN` rather than `expr =
// vN`.
func rewriteDecode(args []sqlexpr.Expr) sqlexpr.Expr {
	if len(args) < 3 {
		return sqlexpr.Func{Name: "DECODE", Args: args}
	}
	subject := args[0]
	rest := args[1:]
	var whens []sqlexpr.CaseWhen
	i := 0
	for ; i+1 < len(rest); i += 2 {
		cond := sqlexpr.Raw(subject.SQL() + " IS NOT DISTINCT FROM " + rest[i].SQL())
		whens = append(whens, sqlexpr.CaseWhen{Cond: cond, Result: rest[i+1]})
	}
	ce := sqlexpr.CaseExpr{Whens: whens}
	if i < len(rest) {
		ce.Else = rest[i]
	}
	return ce
}

// rewriteSubstr: SUBSTR(s, start [, len]) -> substring(s from start [for
// len]). The start argument is passed through unchanged; a negative start
// (Oracle counts it from the end of the string) is not translated.
func rewriteSubstr(args []sqlexpr.Expr) sqlexpr.Expr {
	if len(args) < 2 {
		return sqlexpr.Func{Name: "substring", Args: args}
	}
	sub := sqlexpr.Substring{Source: args[0], From: args[1]}
	if len(args) >= 3 {
		sub.For = args[2]
	}
	return sub
}

// rewriteToChar maps the common Oracle format models TO_CHAR uses onto
// to_char()'s PostgreSQL format model, which differs in several token
// spellings (spec §4.3). Unrecognized/absent format strings pass
// through unchanged: to_char's default (no format arg) behavior is
// close enough to Oracle's for this translator's scope.
func rewriteToChar(args []sqlexpr.Expr) sqlexpr.Expr {
	if len(args) < 2 {
		return sqlexpr.Func{Name: "to_char", Args: args}
	}
	if lit, ok := args[1].(sqlexpr.Lit); ok {
		args = append([]sqlexpr.Expr{args[0], sqlexpr.Lit(translateFormatModel(string(lit)))}, args[2:]...)
	}
	return sqlexpr.Func{Name: "to_char", Args: args}
}

// rewriteToDate maps Oracle's TO_DATE onto PostgreSQL's to_timestamp
// (spec §4.4: "TO_DATE(s, f [, nls]) -> TO_TIMESTAMP(s, f)"), since
// PostgreSQL's own to_date() truncates to a date with no time
// component, which is not what Oracle's DATE type (always a
// date+time) means.
func rewriteToDate(name string, args []sqlexpr.Expr) sqlexpr.Expr {
	fn := "to_timestamp"
	if len(args) >= 2 {
		format := args[1]
		if lit, ok := format.(sqlexpr.Lit); ok {
			format = sqlexpr.Lit(translateFormatModel(string(lit)))
		}
		args = []sqlexpr.Expr{args[0], format}
	}
	return sqlexpr.Func{Name: fn, Args: args}
}

// translateFormatModel rewrites the handful of Oracle format tokens
// that differ from PostgreSQL's to_char/to_date model (spec §4.3).
// Tokens not in the table (YYYY, MM, DD, HH24, MI, SS, ...) are already
// identical between the two and pass through untouched. RRRR must be
// replaced before RR, since RR is a prefix of it and would otherwise
// leave a stray trailing "RR" -> "YY" behind.
func translateFormatModel(format string) string {
	replacer := strings.NewReplacer(
		"RRRR", "YYYY",
		"RR", "YY",
		"FXFM", "FM",
		"FXDY", "FMDY",
		"FMDAY", "FMDay",
	)
	out := replacer.Replace(format)
	if isNumberFormatModel(out) {
		out = strings.NewReplacer("G", ",", "D", ".").Replace(out)
	}
	return out
}

// isNumberFormatModel distinguishes a number format model (e.g. "FM999G999D99")
// from a date/time one: a number model contains a digit placeholder (9 or 0)
// and none of the multi-letter date tokens (YY, MM, DD, DY, DAY, HH, MON,
// SS). Single letters are not checked, since the number tokens D and FM
// share letters with date tokens.
func isNumberFormatModel(format string) bool {
	if !strings.ContainsAny(format, "90") {
		return false
	}
	upper := strings.ToUpper(format)
	for _, tok := range []string{"YY", "MM", "DD", "DY", "DAY", "HH", "MON", "SS"} {
		if strings.Contains(upper, tok) {
			return false
		}
	}
	return true
}

// rewriteTrim re-emits TRIM(...), which PostgreSQL accepts in the same
// standard-SQL shape Oracle uses.
func rewriteTrim(n *parser.Node, args []sqlexpr.Expr) sqlexpr.Expr {
	var sb strings.Builder
	sb.WriteString("trim(")
	if spec := n.Attr("spec"); spec != "" {
		sb.WriteString(strings.ToLower(spec))
		sb.WriteString(" ")
	}
	switch len(args) {
	case 1:
		sb.WriteString("from ")
		sb.WriteString(args[0].SQL())
	case 2:
		sb.WriteString(args[0].SQL())
		sb.WriteString(" from ")
		sb.WriteString(args[1].SQL())
	}
	sb.WriteString(")")
	return sqlexpr.Raw(sb.String())
}

// rewriteQualifiedCall handles the general case: a built-in PostgreSQL
// function called unqualified, a package-qualified Oracle function call
// (schema.pkg.fn(...) or pkg.fn(...)) rewritten to the flattened
// schema.pkg__fn naming convention package bodies are emitted under when
// the catalog knows the package function or the qualifier is a synonym
// (any other qualified call keeps its qualifier, lower-cased), or
// an object-type member-method call (alias.col.method(...)) rewritten to
// the same schema.type__method dispatch rewriteMemberCall uses.
//
// The parser cannot tell these three shapes apart: `a.b.c(args)` is
// syntactically identical whether `a.b` names a schema-qualified package
// or `a` is a FROM-clause alias and `b` one of its object-typed columns
// (spec §4.5's "grammar is ambiguous; resolve using catalog + FROM-clause
// alias bindings at rewrite time, not in the parser"). This is why the
// member-call check below runs first: only a qualifier whose final
// segment is a catalog-confirmed object-typed column bound in the
// current query block is rerouted to method dispatch; everything else
// falls through to the package-call handling unchanged.
func rewriteQualifiedCall(ctx Context, n *parser.Node, name string, args []sqlexpr.Expr) (sqlexpr.Expr, error) {
	qualifier := n.Attr("qualifier")
	if qualifier == "" {
		return sqlexpr.Func{Name: strings.ToLower(name), Args: args}, nil
	}

	if recv, objType, ok := resolveMemberReceiver(ctx, qualifier, name); ok {
		fnName := qualifyName(ctx.ActiveSchema, objType+"__"+toLower(name))
		return sqlexpr.Func{Name: fnName, Args: append([]sqlexpr.Expr{recv}, args...)}, nil
	}

	schema, pkg := splitQualified(qualifier, ctx.ActiveSchema)
	if ctx.Catalog.IsPackageFunction(schema, pkg, name) {
		return sqlexpr.Func{Name: qualifyName(toLower(schema), toLower(pkg)+"__"+toLower(name)), Args: args}, nil
	}
	if target, ok := ctx.Catalog.ResolveSynonym(schema, pkg); ok {
		return sqlexpr.Func{Name: qualifyName(toLower(target.TargetOwner), toLower(target.TargetName)+"__"+toLower(name)), Args: args}, nil
	}
	return sqlexpr.Func{Name: qualifyName(toLower(qualifier), toLower(name)), Args: args}, nil
}

// resolveMemberReceiver checks whether qualifier.method is really
// alias.column.method: qualifier's last segment must name a column of a
// FROM-clause-bound alias whose declared type is a user-defined object
// type that declares method. On a match it returns the receiver
// expression (the alias.column reference itself, becoming the method
// dispatch's first argument) and the object type's bare name.
func resolveMemberReceiver(ctx Context, qualifier, method string) (sqlexpr.Expr, string, bool) {
	parts := strings.Split(qualifier, ".")
	if len(parts) < 2 {
		return nil, "", false
	}
	alias, column := parts[len(parts)-2], parts[len(parts)-1]
	binding, ok := ctx.ResolveAlias(alias)
	if !ok {
		return nil, "", false
	}
	tag := ctx.Evaluator.EvalColumn(binding.Schema, binding.Table, column)
	if tag.Kind != TypeObject || tag.ObjectType == "" {
		return nil, "", false
	}
	objParts := strings.Split(tag.ObjectType, ".")
	objSchema, objType := objParts[0], objParts[len(objParts)-1]
	if !ctx.Catalog.HasMethod(objSchema, objType, method) {
		return nil, "", false
	}
	return sqlexpr.Col{Column: alias + "." + column}, objType, true
}
