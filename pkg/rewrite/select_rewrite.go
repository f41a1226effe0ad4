package rewrite

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kestrelsql/oratopg/internal/sqlexpr"
	"github.com/kestrelsql/oratopg/pkg/parser"
)

// RewriteSelect is the entry point for translating a top-level parsed
// SELECT statement into PostgreSQL text.
func RewriteSelect(ctx Context, n *parser.Node) (string, error) {
	return RewriteQueryExpr(ctx, n)
}

// RewriteQueryExpr rewrites any query-shaped node: a full select
// statement (with its optional WITH prefix and trailing ORDER BY), a
// set-operator chain, a parenthesized subquery, or a single query block.
func RewriteQueryExpr(ctx Context, n *parser.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	switch n.Kind {
	case parser.KindSelectStatement:
		return rewriteSelectStatement(ctx, n)
	case parser.KindSetOp:
		return rewriteSetOp(ctx, n)
	case parser.KindParen:
		inner, err := RewriteQueryExpr(ctx, n.Child(0))
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	case parser.KindQueryBlock:
		return rewriteQueryBlock(ctx, n)
	}
	return "", newTransformError(string(n.Kind), ErrUnsupportedConstruct, "", "not a query node: %s", n.Kind)
}

func rewriteSelectStatement(ctx Context, n *parser.Node) (string, error) {
	var withNode, orderNode, body *parser.Node
	for _, c := range n.Children {
		switch c.Kind {
		case parser.KindWithClause:
			withNode = c
		case parser.KindOrderClause:
			orderNode = c
		default:
			body = c
		}
	}

	// A CONNECT BY query block emits its own WITH RECURSIVE hierarchy CTE.
	// When it sits under a WITH clause of its own (spec §4.4, "composes
	// with outer constructs"), the two CTE lists are merged into a single
	// WITH RECURSIVE rather than nesting one WITH inside another.
	if withNode != nil && body != nil && body.Kind == parser.KindQueryBlock &&
		findChild(body, parser.KindConnectByClause) != nil {
		return rewriteSelectWithConnectByMerge(ctx, withNode, body, orderNode)
	}

	var sb strings.Builder
	if withNode != nil {
		withSQL, err := rewriteWithClause(ctx, withNode)
		if err != nil {
			return "", err
		}
		sb.WriteString(withSQL)
		sb.WriteString("\n")
	}

	bodySQL, err := RewriteQueryExpr(ctx, body)
	if err != nil {
		return "", err
	}
	// A ROWNUM-derived LIMIT closing the query block moves after ORDER BY.
	limitSQL := ""
	if orderNode != nil && body != nil && body.Kind == parser.KindQueryBlock {
		if loc := regexp.MustCompile(`\nLIMIT \d+$`).FindStringIndex(bodySQL); loc != nil {
			bodySQL, limitSQL = bodySQL[:loc[0]], bodySQL[loc[0]:]
		}
	}
	sb.WriteString(bodySQL)

	if orderNode != nil {
		orderSQL, err := rewriteOrderClause(ctx, orderNode)
		if err != nil {
			return "", err
		}
		sb.WriteString("\n")
		sb.WriteString(orderSQL)
	}
	sb.WriteString(limitSQL)
	return sb.String(), nil
}

func rewriteSelectWithConnectByMerge(ctx Context, withNode, body, orderNode *parser.Node) (string, error) {
	parts, err := buildConnectByParts(ctx, body)
	if err != nil {
		return "", err
	}

	ctes := make([]sqlexpr.CTEDef, 0, len(withNode.Children)+1)
	for _, cte := range withNode.Children {
		cteBody, err := RewriteQueryExpr(ctx, cte.Child(0))
		if err != nil {
			return "", err
		}
		ctes = append(ctes, sqlexpr.CTEDef{
			Name:    cte.Attr("name"),
			Columns: splitColumns(cte.Attr("columns")),
			Query:   sqlexpr.Raw(cteBody),
		})
	}
	ctes = append(ctes, sqlexpr.CTEDef{Name: parts.hierarchyName, Query: sqlexpr.Raw(parts.cteBody)})

	out := sqlexpr.MultiCTE(true, ctes, sqlexpr.Raw(parts.outerSelect)).SQL()

	if orderNode != nil {
		orderSQL, err := rewriteOrderClause(ctx, orderNode)
		if err != nil {
			return "", err
		}
		out += "\n" + orderSQL
	}
	return out, nil
}

// splitColumns turns a comma-separated attribute value into a column list,
// returning nil for an empty attribute so CTEDef omits the "(...)" suffix.
func splitColumns(attr string) []string {
	if attr == "" {
		return nil
	}
	return strings.Split(attr, ",")
}

// rewriteWithClause emits a WITH clause, switching the keyword to WITH
// RECURSIVE whenever any CTE in the list references its own name in its
// body (spec §4.4: self-referential user CTEs, as distinct from the
// CONNECT BY-generated hierarchy CTE handled separately above).
func rewriteWithClause(ctx Context, n *parser.Node) (string, error) {
	var ctes []sqlexpr.CTEDef
	recursive := false
	for _, cte := range n.Children {
		body, err := RewriteQueryExpr(ctx, cte.Child(0))
		if err != nil {
			return "", err
		}
		name := cte.Attr("name")
		if isSelfReferential(name, body) {
			recursive = true
		}
		ctes = append(ctes, sqlexpr.CTEDef{
			Name:    name,
			Columns: splitColumns(cte.Attr("columns")),
			Query:   sqlexpr.Raw(body),
		})
	}
	kw := "WITH "
	if recursive {
		kw = "WITH RECURSIVE "
	}
	parts := make([]string, len(ctes))
	for i, c := range ctes {
		parts[i] = c.SQL()
	}
	return kw + strings.Join(parts, ",\n"), nil
}

func isSelfReferential(name, body string) bool {
	if name == "" {
		return false
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	return re.MatchString(body)
}

func rewriteSetOp(ctx Context, n *parser.Node) (string, error) {
	left, err := RewriteQueryExpr(ctx, n.Child(0))
	if err != nil {
		return "", err
	}
	right, err := RewriteQueryExpr(ctx, n.Child(1))
	if err != nil {
		return "", err
	}
	op := n.Attr("op")
	if op == "MINUS" {
		op = "EXCEPT"
	}
	return left + "\n" + op + "\n" + right, nil
}

// rewriteQueryBlock rewrites one SELECT ... FROM ... block. CONNECT BY
// blocks are delegated to the recursive-CTE rewriter entirely, since
// their shape bears little resemblance to a plain SELECT once
// translated.
func rewriteQueryBlock(ctx Context, qb *parser.Node) (string, error) {
	if connectBy := findChild(qb, parser.KindConnectByClause); connectBy != nil {
		return rewriteConnectBy(ctx, qb)
	}

	var selectList, whereNode, groupNode, havingNode *parser.Node
	var tables []*parser.Node
	for _, c := range qb.Children {
		switch c.Kind {
		case parser.KindSelectList:
			selectList = c
		case parser.KindWhereClause:
			whereNode = c
		case parser.KindGroupByClause:
			groupNode = c
		case parser.KindHavingClause:
			havingNode = c
		case parser.KindTableReference, parser.KindSubqueryTable, parser.KindJoinClause:
			tables = append(tables, c)
		}
	}

	limit := -1
	if whereNode != nil {
		extracted, rest := extractRownumLimit(whereNode.Child(0))
		if extracted >= 0 {
			limit = extracted
			whereNode = nil
			if rest != nil {
				whereNode = &parser.Node{Kind: parser.KindWhereClause, Children: []*parser.Node{rest}}
			}
		}
	}

	// Bind FROM-clause aliases before rewriting any expression in this
	// block, so a member-method call like `e.comp.to_usd()` can resolve
	// `e` to its real table and look up `comp`'s object type.
	bodyCtx := ctx.WithAliases(collectAliases(ctx, tables))

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if qb.Attr("distinct") == "true" {
		sb.WriteString("DISTINCT ")
	}
	listSQL, err := rewriteSelectList(bodyCtx, selectList)
	if err != nil {
		return "", err
	}
	sb.WriteString(listSQL)

	if fromSQL, err := rewriteFromClause(bodyCtx, tables); err != nil {
		return "", err
	} else if fromSQL != "" {
		sb.WriteString("\nFROM ")
		sb.WriteString(fromSQL)
	}

	if whereNode != nil {
		whereSQL, err := RewriteExpr(bodyCtx, whereNode.Child(0))
		if err != nil {
			return "", err
		}
		sb.WriteString("\nWHERE ")
		sb.WriteString(whereSQL.SQL())
	}

	if groupNode != nil {
		parts := make([]string, len(groupNode.Children))
		for i, g := range groupNode.Children {
			v, err := RewriteExpr(bodyCtx, g)
			if err != nil {
				return "", err
			}
			parts[i] = v.SQL()
		}
		sb.WriteString("\nGROUP BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if havingNode != nil {
		v, err := RewriteExpr(bodyCtx, havingNode.Child(0))
		if err != nil {
			return "", err
		}
		sb.WriteString("\nHAVING ")
		sb.WriteString(v.SQL())
	}

	if limit >= 0 {
		sb.WriteString("\nLIMIT ")
		sb.WriteString(strconv.Itoa(limit))
	}

	return sb.String(), nil
}

// extractRownumLimit looks for a top-level `ROWNUM <= N` / `ROWNUM < N`
// conjunct in a WHERE predicate and, if found, returns the equivalent
// LIMIT value and the remaining predicate tree (nil if nothing remains).
// It returns -1 if no such conjunct exists, leaving the predicate
// untouched (the caller passes the original node through unchanged).
func extractRownumLimit(pred *parser.Node) (int, *parser.Node) {
	if pred == nil {
		return -1, nil
	}
	if pred.Kind == parser.KindLogicalOp && pred.Attr("op") == "AND" {
		if lim, rest := extractRownumLimit(pred.Child(0)); lim >= 0 {
			if rest == nil {
				return lim, pred.Child(1)
			}
			merged := &parser.Node{Kind: parser.KindLogicalOp, Attrs: map[string]string{"op": "AND"}}
			merged.Add(rest, pred.Child(1))
			return lim, merged
		}
		if lim, rest := extractRownumLimit(pred.Child(1)); lim >= 0 {
			if rest == nil {
				return lim, pred.Child(0)
			}
			merged := &parser.Node{Kind: parser.KindLogicalOp, Attrs: map[string]string{"op": "AND"}}
			merged.Add(pred.Child(0), rest)
			return lim, merged
		}
		return -1, nil
	}
	if pred.Kind == parser.KindComparison && pred.Child(0).Kind == parser.KindRownum &&
		pred.Child(1).Kind == parser.KindLiteral && pred.Child(1).Attr("type") == "number" {
		n, err := strconv.Atoi(pred.Child(1).Text)
		if err != nil {
			return -1, nil
		}
		switch pred.Attr("op") {
		case "<=":
			return n, nil
		case "<":
			return n - 1, nil
		}
	}
	if pred.Kind == parser.KindComparison && pred.Child(1).Kind == parser.KindRownum &&
		pred.Child(0).Kind == parser.KindLiteral && pred.Child(0).Attr("type") == "number" {
		n, err := strconv.Atoi(pred.Child(0).Text)
		if err != nil {
			return -1, nil
		}
		switch pred.Attr("op") {
		case ">=":
			return n, nil
		case ">":
			return n - 1, nil
		}
	}
	return -1, nil
}

func rewriteSelectList(ctx Context, list *parser.Node) (string, error) {
	if list == nil {
		return "*", nil
	}
	parts := make([]string, len(list.Children))
	for i, item := range list.Children {
		expr := item.Child(0)
		if expr.Kind == parser.KindLiteral && expr.Text == "*" {
			parts[i] = "*"
			continue
		}
		if expr.Kind == parser.KindRownum {
			alias := item.Attr("alias")
			if alias == "" {
				alias = "rownum"
			}
			parts[i] = "row_number() OVER () AS " + alias
			continue
		}
		v, err := RewriteExpr(ctx, expr)
		if err != nil {
			return "", err
		}
		s := v.SQL()
		if alias := item.Attr("alias"); alias != "" {
			s += " AS " + alias
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func rewriteFromClause(ctx Context, tables []*parser.Node) (string, error) {
	if len(tables) == 1 && isBareDual(tables[0]) {
		return "", nil
	}
	parts := make([]string, len(tables))
	for i, t := range tables {
		s, err := rewriteTableExpr(ctx, t)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func isBareDual(n *parser.Node) bool {
	return n.Kind == parser.KindTableReference && strings.EqualFold(n.Attr("name"), "dual")
}

func rewriteTableExpr(ctx Context, n *parser.Node) (string, error) {
	switch n.Kind {
	case parser.KindTableReference:
		name := rewriteTableName(ctx, n.Attr("name"))
		if alias := n.Attr("alias"); alias != "" {
			name += " " + alias
		}
		return name, nil
	case parser.KindSubqueryTable:
		inner, err := RewriteQueryExpr(ctx, n.Child(0))
		if err != nil {
			return "", err
		}
		s := "(" + inner + ")"
		if alias := n.Attr("alias"); alias != "" {
			s += " " + alias
		}
		return s, nil
	case parser.KindJoinClause:
		left, err := rewriteTableExpr(ctx, n.Child(0))
		if err != nil {
			return "", err
		}
		right, err := rewriteTableExpr(ctx, n.Child(1))
		if err != nil {
			return "", err
		}
		s := left + " " + n.Attr("type") + " JOIN " + right
		if n.Attr("type") != "CROSS" && n.Child(2) != nil {
			cond, err := RewriteExpr(ctx, n.Child(2).Child(0))
			if err != nil {
				return "", err
			}
			s += " ON " + cond.SQL()
		}
		return s, nil
	}
	return "", newTransformError(string(n.Kind), ErrUnsupportedConstruct, "", "not a table expression: %s", n.Kind)
}

// rewriteTableName resolves a single dotted table name against the
// synonym catalog, schema-qualifying it with the active schema if it
// isn't already qualified and isn't a synonym target (spec: "exactly one
// synonym lookup per name").
func rewriteTableName(ctx Context, name string) string {
	schema, bare := resolveTableBinding(ctx, name)
	return qualifyName(schema, bare)
}

// resolveTableBinding applies the same synonym/active-schema resolution
// as rewriteTableName but returns the schema and bare table name
// separately, so callers that need the pair (alias-binding collection,
// for example) don't have to re-split an already-qualified string.
func resolveTableBinding(ctx Context, name string) (schema, bare string) {
	schema, bare = splitQualified(name, "")
	if schema == "" {
		if target, ok := ctx.Catalog.ResolveSynonym(ctx.ActiveSchema, bare); ok {
			return target.TargetOwner, target.TargetName
		}
		return ctx.ActiveSchema, bare
	}
	return schema, bare
}

// collectAliases walks a query block's FROM-clause table expressions and
// records what each alias (or, absent one, the bare table name itself)
// resolves to, so later expression rewrites in the same query block can
// turn `alias.col` into a real schema.table.column lookup (spec §4.5
// "object-type member methods"). Subquery tables carry no catalog-backed
// binding -- a member call through one stays on the "unknown" fallback.
func collectAliases(ctx Context, tables []*parser.Node) map[string]AliasBinding {
	aliases := map[string]AliasBinding{}
	for _, t := range tables {
		addAliasBindings(ctx, t, aliases)
	}
	return aliases
}

func addAliasBindings(ctx Context, n *parser.Node, out map[string]AliasBinding) {
	switch n.Kind {
	case parser.KindTableReference:
		schema, bare := resolveTableBinding(ctx, n.Attr("name"))
		key := n.Attr("alias")
		if key == "" {
			key = lastSegment(n.Attr("name"))
		}
		out[fold(key)] = AliasBinding{Schema: schema, Table: bare}
	case parser.KindJoinClause:
		addAliasBindings(ctx, n.Child(0), out)
		addAliasBindings(ctx, n.Child(1), out)
	}
}

func rewriteOrderClause(ctx Context, n *parser.Node) (string, error) {
	parts := make([]string, len(n.Children))
	for i, item := range n.Children {
		v, err := RewriteExpr(ctx, item.Child(0))
		if err != nil {
			return "", err
		}
		s := v.SQL() + " " + item.Attr("direction")
		// Oracle defaults ASC to NULLS LAST and DESC to NULLS FIRST, which
		// matches PostgreSQL's own ASC default; only DESC needs an explicit
		// NULLS FIRST, since PostgreSQL's DESC default is NULLS LAST. An
		// explicit source NULLS clause is always copied verbatim.
		nulls := item.Attr("nulls")
		if nulls == "" && item.Attr("direction") == "DESC" {
			nulls = "FIRST"
		}
		if nulls != "" {
			s += " NULLS " + nulls
		}
		parts[i] = s
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

func findChild(n *parser.Node, kind parser.NodeKind) *parser.Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}
