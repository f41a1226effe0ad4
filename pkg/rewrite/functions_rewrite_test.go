package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelsql/oratopg/pkg/catalog"
)

func rewriteSelectOK(t *testing.T, src string, ctx Context) string {
	t.Helper()
	tree := mustParseSelect(t, src)
	out, err := RewriteSelect(ctx, tree)
	require.NoError(t, err)
	return out
}

func TestRewriteNvl2ToCase(t *testing.T) {
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out := rewriteSelectOK(t, "SELECT NVL2(commission, 'yes', 'no') FROM emp", ctx)
	require.Contains(t, out, "CASE")
	require.Contains(t, out, "WHEN commission IS NOT NULL THEN 'yes'")
	require.Contains(t, out, "ELSE 'no'")
	require.Contains(t, out, "END\nFROM hr.emp")
}

func TestRewriteDecodeTreatsNullsAsEqual(t *testing.T) {
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out := rewriteSelectOK(t, "SELECT DECODE(status, 1, 'active', 2, 'inactive', 'unknown') FROM emp", ctx)
	require.Contains(t, out, "IS NOT DISTINCT FROM 1")
	require.Contains(t, out, "IS NOT DISTINCT FROM 2")
	require.Contains(t, out, "ELSE 'unknown'")
	require.Contains(t, out, "CASE")
}

func TestRewriteSubstrToSubstring(t *testing.T) {
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out := rewriteSelectOK(t, "SELECT SUBSTR(ename, 1, 3) FROM emp", ctx)
	require.Contains(t, out, "substring(ename from 1 for 3)")
}

func TestRewriteToCharDateFormatModel(t *testing.T) {
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out := rewriteSelectOK(t, "SELECT TO_CHAR(hire_date, 'RRRR-MM-DD') FROM emp", ctx)
	require.Contains(t, out, "to_char(hire_date, 'YYYY-MM-DD')")
}

func TestRewriteToCharNumberFormatModel(t *testing.T) {
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out := rewriteSelectOK(t, "SELECT TO_CHAR(salary, 'FM999G999D99') FROM emp", ctx)
	require.Contains(t, out, "to_char(salary, 'FM999,999.99')")
}

func TestRewriteToDateUsesToTimestamp(t *testing.T) {
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out := rewriteSelectOK(t, "SELECT TO_DATE(hired_on, 'RR-MM-DD') FROM emp", ctx)
	require.Contains(t, out, "to_timestamp(hired_on, 'YY-MM-DD')")
	require.NotContains(t, out, "to_date(")
}

func TestRewriteTrimLeadingSpec(t *testing.T) {
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out := rewriteSelectOK(t, "SELECT TRIM(LEADING 'x' FROM ename) FROM emp", ctx)
	require.Contains(t, out, "trim(leading 'x' from ename)")
}

func TestRewriteQualifiedCallToPackageFunction(t *testing.T) {
	provider := &fakeProvider{
		functions: []catalog.PackageFunctionMetadata{
			{Owner: "hr", Package: "payroll", Function: "tax_rate"},
		},
	}
	ix, err := catalog.BuildIndices(provider, []string{"hr"})
	require.NoError(t, err)
	ctx := NewContext("hr", ix, nil)
	out := rewriteSelectOK(t, "SELECT payroll.tax_rate(salary) FROM emp", ctx)
	require.Contains(t, out, "hr.payroll__tax_rate(salary)")
}

func TestRewriteQualifiedCallViaSynonym(t *testing.T) {
	provider := &fakeProvider{
		functions: []catalog.PackageFunctionMetadata{
			{Owner: "hr", Package: "payroll", Function: "tax_rate"},
		},
		synonyms: []catalog.SynonymMetadata{
			{Owner: "hr", Name: "pr", TargetOwner: "hr", TargetName: "payroll"},
		},
	}
	ix, err := catalog.BuildIndices(provider, []string{"hr"})
	require.NoError(t, err)
	ctx := NewContext("hr", ix, nil)
	out := rewriteSelectOK(t, "SELECT pr.tax_rate(salary) FROM emp", ctx)
	require.Contains(t, out, "hr.payroll__tax_rate(salary)")
}

func TestRewriteUnqualifiedCallPassesThroughLowercased(t *testing.T) {
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out := rewriteSelectOK(t, "SELECT UPPER(ename) FROM emp", ctx)
	require.Contains(t, out, "upper(ename)")
}
