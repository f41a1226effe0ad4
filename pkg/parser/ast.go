package parser

// NodeKind is the closed tag set every parse tree node is drawn from
// (spec §3, §9 "node variants over inheritance"). Dispatch in the
// rewriter is by exhaustive switch on Kind, never by type assertion.
type NodeKind string

const (
	KindSelectStatement   NodeKind = "select_statement"
	KindWithClause        NodeKind = "with_clause"
	KindCTEDefinition     NodeKind = "cte_definition"
	KindQueryBlock        NodeKind = "query_block"
	KindSelectList        NodeKind = "select_list"
	KindSelectItem        NodeKind = "select_item"
	KindTableReference    NodeKind = "table_reference"
	KindSubqueryTable     NodeKind = "subquery_table"
	KindJoinClause        NodeKind = "join_clause"
	KindWhereClause       NodeKind = "where_clause"
	KindGroupByClause     NodeKind = "group_by_clause"
	KindHavingClause      NodeKind = "having_clause"
	KindOrderClause       NodeKind = "order_clause"
	KindOrderItem         NodeKind = "order_item"
	KindSetOp             NodeKind = "set_op"
	KindCaseExpression    NodeKind = "case_expression"
	KindCaseWhen          NodeKind = "case_when"
	KindFunctionCall      NodeKind = "function_call"
	KindColumnReference   NodeKind = "column_reference"
	KindLiteral           NodeKind = "literal"
	KindArithmeticOp      NodeKind = "arithmetic_op"
	KindConcatOp          NodeKind = "concat_op"
	KindUnaryOp           NodeKind = "unary_op"
	KindLogicalOp         NodeKind = "logical_op"
	KindNotOp             NodeKind = "not_op"
	KindComparison        NodeKind = "comparison"
	KindBetween           NodeKind = "between"
	KindInList            NodeKind = "in_list"
	KindLikeOp            NodeKind = "like_op"
	KindIsNull            NodeKind = "is_null"
	KindParen             NodeKind = "paren"
	KindScalarSubquery    NodeKind = "scalar_subquery"
	KindOverClause        NodeKind = "over_clause"
	KindSequenceRef       NodeKind = "sequence_ref"
	KindRownum            NodeKind = "rownum"
	KindSysdate           NodeKind = "sysdate"
	KindLevelRef          NodeKind = "level_ref"
	KindConnectByRoot     NodeKind = "connect_by_root"
	KindSysConnectByPath  NodeKind = "sys_connect_by_path"
	KindConnectByClause   NodeKind = "connect_by_clause"
	KindStartWithClause   NodeKind = "start_with_clause"
	KindElementAccess     NodeKind = "element_access"
	KindMemberCall        NodeKind = "member_call"

	// PL/SQL
	KindFunctionBody      NodeKind = "function_body"
	KindProcedureBody     NodeKind = "procedure_body"
	KindPackageSpec       NodeKind = "package_spec"
	KindParamDecl         NodeKind = "param_decl"
	KindFieldDecl         NodeKind = "field_decl"
	KindDeclaration       NodeKind = "declaration"
	KindRecordTypeDecl    NodeKind = "record_type_decl"
	KindCollectionTypeDecl NodeKind = "collection_type_decl"
	KindTypeRef           NodeKind = "type_ref"
	KindBlock             NodeKind = "block"
	KindAssignment        NodeKind = "assignment"
	KindIfStatement       NodeKind = "if_statement"
	KindElsifBranch       NodeKind = "elsif_branch"
	KindLoopStatement     NodeKind = "loop_statement"
	KindWhileLoop         NodeKind = "while_loop"
	KindForLoop           NodeKind = "for_loop"
	KindExitStatement     NodeKind = "exit_statement"
	KindReturnStatement   NodeKind = "return_statement"
	KindNullStatement     NodeKind = "null_statement"
	KindExceptionHandler  NodeKind = "exception_handler"
	KindExceptionBlock    NodeKind = "exception_block"
	KindRaiseStatement    NodeKind = "raise_statement"
	KindCallStatement     NodeKind = "call_statement"
)

// Node is one parse-tree node: a kind tag, an ordered (possibly empty)
// child list, literal token text for leaves, and a small attribute map
// for the handful of fixed, per-kind properties (alias, direction, join
// type, operator symbol, ...) that don't warrant their own child node.
// The tree is immutable after parsing (spec §3); rewrites never mutate a
// Node, they only read it while emitting text.
type Node struct {
	Kind     NodeKind
	Text     string
	Children []*Node
	Attrs    map[string]string
	Pos      Position
}

// NewNode constructs a Node with an initialized Attrs map.
func NewNode(kind NodeKind, pos Position) *Node {
	return &Node{Kind: kind, Pos: pos, Attrs: make(map[string]string)}
}

// Attr returns Attrs[key], or "" if unset.
func (n *Node) Attr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// SetAttr sets Attrs[key] = value.
func (n *Node) SetAttr(key, value string) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
}

// Add appends children to n and returns n, for fluent tree construction.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// Child returns the i-th child, or nil if out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}
