package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelsql/oratopg/pkg/catalog"
	"github.com/kestrelsql/oratopg/pkg/parser"
)

func mustParseSelect(t *testing.T, src string) *parser.Node {
	t.Helper()
	r := parser.ParseSelect(src)
	require.True(t, r.OK(), "%v", r.Errors)
	return r.Tree
}

func TestRewriteSelectDualElision(t *testing.T) {
	tree := mustParseSelect(t, "SELECT 1 FROM DUAL")
	ctx := NewContext("hr", nil, nil)
	out, err := RewriteSelect(ctx, tree)
	require.NoError(t, err)
	require.Equal(t, "SELECT 1", out)
}

func TestRewriteSelectSysdate(t *testing.T) {
	tree := mustParseSelect(t, "SELECT SYSDATE FROM DUAL")
	ctx := NewContext("hr", nil, nil)
	out, err := RewriteSelect(ctx, tree)
	require.NoError(t, err)
	require.Equal(t, "SELECT CURRENT_TIMESTAMP", out)
}

type objectMethodProvider struct{}

func (objectMethodProvider) Tables(schemas []string) ([]catalog.TableMetadata, error) {
	return []catalog.TableMetadata{{
		Schema: "hr",
		Name:   "employees",
		Columns: []catalog.ColumnMetadata{
			{Name: "empno", BaseType: "NUMBER"},
			{Name: "home_address", BaseType: "ADDRESS_T", TypeOwnerSchema: "hr"},
		},
	}}, nil
}

func (objectMethodProvider) ObjectTypeMethods(schemas []string) ([]catalog.MethodMetadata, error) {
	return []catalog.MethodMetadata{{Schema: "hr", Type: "address_t", Method: "format", Kind: "function"}}, nil
}

func (objectMethodProvider) PackageFunctions(schemas []string) ([]catalog.PackageFunctionMetadata, error) {
	return nil, nil
}

func (objectMethodProvider) Synonyms(schemas []string) ([]catalog.SynonymMetadata, error) {
	return nil, nil
}

// TestRewriteSelectObjectMethodCallDispatch covers spec §4.5's object-type
// member-method dispatch end to end: `e.home_address.format()`, where
// home_address is a column of the user-defined object type address_t,
// must be recognized as a method call (not a package-qualified function
// call, which is syntactically identical) and rewritten to
// schema.type__method(receiver, ...args).
func TestRewriteSelectObjectMethodCallDispatch(t *testing.T) {
	ix, err := catalog.BuildIndices(objectMethodProvider{}, []string{"hr"})
	require.NoError(t, err)

	tree := mustParseSelect(t, "SELECT e.home_address.format() FROM employees e")
	ctx := NewContext("hr", ix, NewDefaultEvaluator(ix))
	out, err := RewriteSelect(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "hr.address_t__format(e.home_address)")
	require.Contains(t, out, "FROM hr.employees e")
}

func TestRewriteSelectNvlSchemaQualified(t *testing.T) {
	tree := mustParseSelect(t, "SELECT NVL(commission,0) FROM emp")
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteSelect(ctx, tree)
	require.NoError(t, err)
	require.Equal(t, "SELECT COALESCE(commission, 0)\nFROM hr.emp", out)
}

func TestRewriteSelectRownumLimitAndOrderByDesc(t *testing.T) {
	tree := mustParseSelect(t, "SELECT empno FROM employees WHERE ROWNUM <= 10 ORDER BY salary DESC")
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteSelect(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "ORDER BY salary DESC NULLS FIRST")
	require.Contains(t, out, "LIMIT 10")
	require.Contains(t, out, "FROM hr.employees")
	require.NotContains(t, out, "WHERE")
	require.NotContains(t, out, "ROWNUM")
}

func TestRewriteSelectRownumLimitBothDirections(t *testing.T) {
	cases := []struct {
		where string
		limit string
	}{
		{"ROWNUM <= 10", "LIMIT 10"},
		{"ROWNUM < 10", "LIMIT 9"},
		{"10 >= ROWNUM", "LIMIT 10"},
		{"10 > ROWNUM", "LIMIT 9"},
	}
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	for _, c := range cases {
		tree := mustParseSelect(t, "SELECT empno FROM employees WHERE "+c.where)
		out, err := RewriteSelect(ctx, tree)
		require.NoError(t, err)
		require.Contains(t, out, c.limit, "input %q", c.where)
	}
}

func TestRewriteSelectConnectByHierarchy(t *testing.T) {
	tree := mustParseSelect(t, `SELECT emp_id, LEVEL FROM employees
		START WITH manager_id IS NULL CONNECT BY PRIOR emp_id = manager_id`)
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteSelect(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "WITH RECURSIVE employees_hierarchy AS (")
	require.Contains(t, out, "1 as level")
	require.Contains(t, out, "WHERE manager_id IS NULL")
	require.Contains(t, out, "JOIN employees_hierarchy")
	require.Contains(t, out, "h.level + 1")
	require.Contains(t, out, "SELECT emp_id, level FROM employees_hierarchy")
	require.Equal(t, 1, strCount(out, "UNION ALL"))
}

func TestRewriteSelectConnectByMergesWithOuterCTE(t *testing.T) {
	tree := mustParseSelect(t, `WITH active AS (SELECT emp_id FROM employees WHERE status = 'A')
		SELECT emp_id, LEVEL FROM employees
		START WITH manager_id IS NULL CONNECT BY PRIOR emp_id = manager_id`)
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteSelect(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "WITH RECURSIVE")
	require.Contains(t, out, "active AS (")
	require.Contains(t, out, "employees_hierarchy AS (")
	require.Contains(t, out, "SELECT emp_id, level FROM employees_hierarchy")
}

func TestRewriteSelectOrdinaryCTEUsesWithKeyword(t *testing.T) {
	tree := mustParseSelect(t, "WITH active AS (SELECT emp_id FROM employees WHERE status = 'A') SELECT emp_id FROM active")
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteSelect(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "WITH active AS (")
	require.NotContains(t, out, "WITH RECURSIVE")
}

func TestRewriteSelectSelfReferentialCTEUsesRecursiveKeyword(t *testing.T) {
	tree := mustParseSelect(t, `WITH nums AS (SELECT 1 as n FROM dual UNION ALL SELECT n + 1 FROM nums WHERE n < 10)
		SELECT n FROM nums`)
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteSelect(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "WITH RECURSIVE nums AS (")
}

func TestRewriteSelectSynonymResolution(t *testing.T) {
	provider := &fakeProvider{
		synonyms: []catalog.SynonymMetadata{
			{Owner: "hr", Name: "emps", TargetOwner: "hr", TargetName: "employees"},
		},
	}
	ix, err := catalog.BuildIndices(provider, []string{"hr"})
	require.NoError(t, err)

	tree := mustParseSelect(t, "SELECT empno FROM emps")
	ctx := NewContext("hr", ix, nil)
	out, err := RewriteSelect(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "FROM hr.employees")
}

func TestRewriteSelectConcatCountForFourOperands(t *testing.T) {
	tree := mustParseSelect(t, "SELECT a || b || c || d FROM t")
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteSelect(ctx, tree)
	require.NoError(t, err)
	require.Equal(t, 3, strCount(out, "CONCAT("))
}

func TestRewriteSelectPassThroughIdempotence(t *testing.T) {
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	tree1 := mustParseSelect(t, "SELECT empno FROM employees")
	out1, err := RewriteSelect(ctx, tree1)
	require.NoError(t, err)

	tree2 := mustParseSelect(t, "SELECT empno FROM employees")
	out2, err := RewriteSelect(ctx, tree2)
	require.NoError(t, err)

	require.Equal(t, out1, out2)
}

// fakeProvider is a minimal MetadataProvider for tests that only need one
// or two of the four enumerations populated.
type fakeProvider struct {
	tables    []catalog.TableMetadata
	methods   []catalog.MethodMetadata
	functions []catalog.PackageFunctionMetadata
	synonyms  []catalog.SynonymMetadata
}

func (p *fakeProvider) Tables([]string) ([]catalog.TableMetadata, error) { return p.tables, nil }
func (p *fakeProvider) ObjectTypeMethods([]string) ([]catalog.MethodMetadata, error) {
	return p.methods, nil
}
func (p *fakeProvider) PackageFunctions([]string) ([]catalog.PackageFunctionMetadata, error) {
	return p.functions, nil
}
func (p *fakeProvider) Synonyms([]string) ([]catalog.SynonymMetadata, error) { return p.synonyms, nil }

func strCount(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
			i += len(substr) - 1
		}
	}
	return count
}
