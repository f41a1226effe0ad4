package rewrite

import (
	"strings"

	"github.com/kestrelsql/oratopg/internal/sqlexpr"
	"github.com/kestrelsql/oratopg/pkg/parser"
)

// connectByParts holds the three pieces a CONNECT BY -> recursive CTE
// translation produces: the CTE name, the "base UNION ALL recursive" body
// that goes inside the WITH RECURSIVE parens, and the outer SELECT that
// replaces the original query block. Splitting these out (rather than
// returning one assembled string) lets the caller either wrap them in
// their own WITH RECURSIVE header or merge them into a surrounding WITH
// clause that already exists (spec §4.4, "composes with outer
// constructs").
type connectByParts struct {
	hierarchyName string
	cteBody       string
	outerSelect   string
}

// rewriteConnectBy is the entry point used when a CONNECT BY query block
// has no surrounding WITH clause of its own.
func rewriteConnectBy(ctx Context, qb *parser.Node) (string, error) {
	parts, err := buildConnectByParts(ctx, qb)
	if err != nil {
		return "", err
	}
	with := sqlexpr.RecursiveCTE(parts.hierarchyName, nil, sqlexpr.Raw(parts.cteBody), sqlexpr.Raw(parts.outerSelect))
	return with.SQL(), nil
}

// buildConnectByParts translates one CONNECT BY / START WITH query block
// into its recursive-CTE parts (spec §4.4 "CONNECT BY -> recursive CTE").
func buildConnectByParts(ctx Context, qb *parser.Node) (connectByParts, error) {
	var selectList, whereNode, tableNode, connectByNode, startWithNode *parser.Node
	for _, c := range qb.Children {
		switch c.Kind {
		case parser.KindSelectList:
			selectList = c
		case parser.KindWhereClause:
			whereNode = c
		case parser.KindConnectByClause:
			connectByNode = c
		case parser.KindStartWithClause:
			startWithNode = c
		case parser.KindTableReference:
			if tableNode != nil {
				return connectByParts{}, newTransformError("connect_by_multi_table", ErrConnectByMultiTable, "",
					"CONNECT BY over more than one FROM table is not supported")
			}
			tableNode = c
		case parser.KindSubqueryTable, parser.KindJoinClause:
			return connectByParts{}, newTransformError("connect_by_subquery", ErrConnectBySubquery, "",
				"CONNECT BY over a subquery or joined FROM list is not supported")
		}
	}

	if tableNode == nil {
		return connectByParts{}, newTransformError("connect_by_multi_table", ErrConnectByMultiTable, "",
			"CONNECT BY requires exactly one driving table")
	}
	if startWithNode == nil {
		return connectByParts{}, newTransformError("connect_by_no_start_with", ErrConnectByNoStartWith,
			"add an explicit START WITH clause", "CONNECT BY requires a START WITH clause")
	}
	if connectByNode.Attr("nocycle") == "true" {
		return connectByParts{}, newTransformError("connect_by_nocycle", ErrConnectByNocycle,
			"use a recursive CTE with an explicit depth-limiting WHERE clause instead of NOCYCLE",
			"NOCYCLE has no tractable PostgreSQL equivalent")
	}
	if bad := findAnyDescendant(selectList, parser.KindConnectByRoot); bad != nil {
		return connectByParts{}, newTransformError("connect_by_root", ErrConnectByRootUnsupported, "",
			"CONNECT_BY_ROOT has no direct recursive-CTE equivalent")
	}
	if bad := findAnyDescendant(selectList, parser.KindSysConnectByPath); bad != nil {
		return connectByParts{}, newTransformError("sys_connect_by_path", ErrSysConnectByPathUnsupported, "",
			"carry the path as an explicit CTE column instead of SYS_CONNECT_BY_PATH")
	}
	if whereNode != nil {
		if bad := findAnyDescendant(whereNode, parser.KindConnectByRoot); bad != nil {
			return connectByParts{}, newTransformError("connect_by_root", ErrConnectByRootUnsupported, "",
				"CONNECT_BY_ROOT has no direct recursive-CTE equivalent")
		}
		if bad := findAnyDescendant(whereNode, parser.KindSysConnectByPath); bad != nil {
			return connectByParts{}, newTransformError("sys_connect_by_path", ErrSysConnectByPathUnsupported, "",
				"carry the path as an explicit CTE column instead of SYS_CONNECT_BY_PATH")
		}
	}

	joinCond, err := buildConnectByJoin(connectByNode.Child(0))
	if err != nil {
		return connectByParts{}, err
	}

	tableName := tableNode.Attr("name")
	qualifiedTable := rewriteTableName(ctx, tableName)
	hierarchyName := toLower(lastSegment(tableName)) + "_hierarchy"

	tableSchema, tableBare := resolveTableBinding(ctx, tableName)
	binding := AliasBinding{Schema: tableSchema, Table: tableBare}
	// The base and outer arms see the driving table under its own bare
	// name (no alias in Oracle's CONNECT BY syntax); the recursive arm
	// additionally sees it as `t`, matching the join alias below.
	baseAliases := map[string]AliasBinding{fold(lastSegment(tableName)): binding}
	recAliases := map[string]AliasBinding{fold(lastSegment(tableName)): binding, "t": binding}

	baseCtx := ctx.WithMode(ModeBase).WithAliases(baseAliases)
	startCond, err := RewriteExpr(baseCtx, startWithNode.Child(0))
	if err != nil {
		return connectByParts{}, err
	}
	baseWhere := startCond.SQL()
	if whereNode != nil {
		origWhere, err := RewriteExpr(baseCtx, whereNode.Child(0))
		if err != nil {
			return connectByParts{}, err
		}
		baseWhere += " AND " + origWhere.SQL()
	}

	var base strings.Builder
	base.WriteString("SELECT *, 1 as level FROM ")
	base.WriteString(qualifiedTable)
	base.WriteString(" WHERE ")
	base.WriteString(baseWhere)

	recCtx := ctx.WithMode(ModeRecursive).WithAliases(recAliases)
	var rec strings.Builder
	rec.WriteString("SELECT t.*, h.level + 1 FROM ")
	rec.WriteString(qualifiedTable)
	rec.WriteString(" t JOIN ")
	rec.WriteString(hierarchyName)
	rec.WriteString(" h ON ")
	rec.WriteString(joinCond)
	if whereNode != nil {
		recWhere, err := RewriteExpr(recCtx, whereNode.Child(0))
		if err != nil {
			return connectByParts{}, err
		}
		rec.WriteString(" WHERE ")
		rec.WriteString(recWhere.SQL())
	}

	outerCtx := ctx.WithMode(ModeOuter).WithAliases(baseAliases)
	projectedSQL, err := rewriteSelectList(outerCtx, selectList)
	if err != nil {
		return connectByParts{}, err
	}

	return connectByParts{
		hierarchyName: hierarchyName,
		cteBody:       base.String() + "\nUNION ALL\n" + rec.String(),
		outerSelect:   "SELECT " + projectedSQL + " FROM " + hierarchyName,
	}, nil
}

// buildConnectByJoin derives the recursive-arm join condition from the
// CONNECT BY predicate's single PRIOR-marked operand (spec §4.4): `PRIOR
// a = b` joins on `h.a = t.b`; `a = PRIOR b` joins on `t.a = h.b`.
func buildConnectByJoin(cond *parser.Node) (string, error) {
	if cond == nil || cond.Kind != parser.KindComparison {
		return "", newTransformError("connect_by_prior_missing", ErrConnectByPriorMissing,
			"add PRIOR to one side of the CONNECT BY condition", "CONNECT BY clause has no PRIOR reference")
	}
	left, right := cond.Child(0), cond.Child(1)
	op := cond.Attr("op")

	if left.Kind == parser.KindUnaryOp && left.Attr("op") == "PRIOR" {
		return "h." + columnField(left.Child(0)) + " " + op + " t." + columnField(right), nil
	}
	if right.Kind == parser.KindUnaryOp && right.Attr("op") == "PRIOR" {
		return "t." + columnField(left) + " " + op + " h." + columnField(right.Child(0)), nil
	}
	return "", newTransformError("connect_by_prior_missing", ErrConnectByPriorMissing,
		"add PRIOR to one side of the CONNECT BY condition", "CONNECT BY clause has no PRIOR reference")
}

func columnField(n *parser.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind == parser.KindColumnReference {
		return toLower(lastSegment(n.Attr("parts")))
	}
	return toLower(n.Text)
}

func lastSegment(dotted string) string {
	if idx := strings.LastIndex(dotted, "."); idx >= 0 {
		return dotted[idx+1:]
	}
	return dotted
}

// findAnyDescendant returns the first node of any of the given kinds
// found anywhere in n's subtree (n included), or nil.
func findAnyDescendant(n *parser.Node, kinds ...parser.NodeKind) *parser.Node {
	if n == nil {
		return nil
	}
	for _, k := range kinds {
		if n.Kind == k {
			return n
		}
	}
	for _, c := range n.Children {
		if found := findAnyDescendant(c, kinds...); found != nil {
			return found
		}
	}
	return nil
}
