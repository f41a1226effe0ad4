package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelsql/oratopg/pkg/catalog"
	"github.com/kestrelsql/oratopg/pkg/parser"
)

func mustParseFunction(t *testing.T, src string) *parser.Node {
	t.Helper()
	r := parser.ParseFunctionBody(src)
	require.True(t, r.OK(), "%v", r.Errors)
	return r.Tree
}

func mustParseProcedure(t *testing.T, src string) *parser.Node {
	t.Helper()
	r := parser.ParseProcedureBody(src)
	require.True(t, r.OK(), "%v", r.Errors)
	return r.Tree
}

func TestRewriteFunctionBodySimpleReturn(t *testing.T) {
	tree := mustParseFunction(t, `
		FUNCTION double_it(n NUMBER) RETURN NUMBER IS
		BEGIN
			RETURN n * 2;
		END;
	`)
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteFunctionBody(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "CREATE OR REPLACE FUNCTION hr.double_it(n numeric) RETURNS numeric")
	require.Contains(t, out, "RETURN n * 2;")
	require.Contains(t, out, "LANGUAGE plpgsql")
}

func TestRewriteFunctionBodyIfElsif(t *testing.T) {
	tree := mustParseFunction(t, `
		FUNCTION grade(score NUMBER) RETURN VARCHAR2 IS
		BEGIN
			IF score >= 90 THEN
				RETURN 'A';
			ELSIF score >= 80 THEN
				RETURN 'B';
			ELSE
				RETURN 'F';
			END IF;
		END;
	`)
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteFunctionBody(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "IF score >= 90 THEN")
	require.Contains(t, out, "ELSE")
	require.Contains(t, out, "RETURN 'F';")
}

func TestRewriteProcedureOutArgsReturnType(t *testing.T) {
	none := mustParseProcedure(t, `PROCEDURE noop IS BEGIN NULL; END;`)
	one := mustParseProcedure(t, `PROCEDURE get_one(x OUT NUMBER) IS BEGIN x := 1; END;`)
	many := mustParseProcedure(t, `PROCEDURE get_two(x OUT NUMBER, y OUT NUMBER) IS BEGIN x := 1; y := 2; END;`)

	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)

	out, err := RewriteProcedureBody(ctx, none)
	require.NoError(t, err)
	require.Contains(t, out, "RETURNS void")

	out, err = RewriteProcedureBody(ctx, one)
	require.NoError(t, err)
	require.Contains(t, out, "RETURNS numeric")

	out, err = RewriteProcedureBody(ctx, many)
	require.NoError(t, err)
	require.Contains(t, out, "RETURNS record")
}

func TestRewriteRecordFieldAssignment(t *testing.T) {
	tree := mustParseFunction(t, `
		FUNCTION build_name RETURN VARCHAR2 IS
			TYPE person_rec IS RECORD(first_name VARCHAR2, last_name VARCHAR2);
			person person_rec;
		BEGIN
			person.first_name := 'Ada';
			RETURN person.first_name;
		END;
	`)
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteFunctionBody(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "person jsonb := '{}'::jsonb;")
	require.Contains(t, out, "person := jsonb_set(person, '{first_name}', to_jsonb('Ada'));")
}

func TestRewriteArrayElementAssignmentShiftsIndex(t *testing.T) {
	tree := mustParseFunction(t, `
		FUNCTION first_tag RETURN VARCHAR2 IS
			TYPE tag_list IS TABLE OF VARCHAR2;
			tags tag_list;
		BEGIN
			tags(1) := 'urgent';
			RETURN tags(1);
		END;
	`)
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteFunctionBody(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "tags jsonb := '[]'::jsonb;")
	require.Contains(t, out, "tags := jsonb_set(tags, '{0}', to_jsonb('urgent'));")
	require.Contains(t, out, "(tags ->> 0)::text")
}

// TestRewriteArrayElementReadCastsToElementType covers spec §4.3/§9:
// arithmetic on a collection-element read requires the rewriter to
// insert the declared element type's cast, not leave a bare jsonb
// `->>` text extraction for PostgreSQL to reject at runtime.
func TestRewriteArrayElementReadCastsToElementType(t *testing.T) {
	tree := mustParseFunction(t, `
		FUNCTION total RETURN NUMBER IS
			TYPE nums IS TABLE OF NUMBER;
			n nums;
		BEGIN
			RETURN n(1) + 5;
		END;
	`)
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteFunctionBody(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "RETURN (n ->> 0)::numeric + 5;")
}

// TestRewriteArrayElementReadVariableIndexCastsToElementType covers the
// variable-index form of the same rule: the shifted index is cast to
// int before extraction, and the extracted value is cast to the
// collection's declared element type.
func TestRewriteArrayElementReadVariableIndexCastsToElementType(t *testing.T) {
	tree := mustParseFunction(t, `
		FUNCTION total(i NUMBER) RETURN NUMBER IS
			TYPE nums IS TABLE OF NUMBER;
			n nums;
		BEGIN
			RETURN n(i) + 5;
		END;
	`)
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteFunctionBody(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "RETURN (n ->> (i - 1)::int)::numeric + 5;")
}

func TestRewritePackageVariableSetterCallFromRoutine(t *testing.T) {
	tree := mustParseProcedure(t, `
		PROCEDURE raise_rate IS
		BEGIN
			tax_rate := tax_rate + 1;
		END;
	`)
	vars := catalog.NewPackageVariableCatalog()
	vars.RegisterPackage("hr", "payroll", []string{"tax_rate"}, map[string]catalog.PackageVariable{
		"tax_rate": {DataType: "NUMBER"},
	})
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil).WithCurrentPackage("payroll", vars)
	out, err := RewriteProcedureBody(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "PERFORM hr.payroll__set_tax_rate(hr.payroll__get_tax_rate() + 1);")
	require.Contains(t, out, "PERFORM hr.payroll__initialize();")
}

func TestRewriteExceptionHandlerMapping(t *testing.T) {
	tree := mustParseProcedure(t, `
		PROCEDURE lookup_emp IS
		BEGIN
			NULL;
		EXCEPTION
			WHEN NO_DATA_FOUND THEN
				NULL;
			WHEN OTHERS THEN
				NULL;
		END;
	`)
	ctx := NewContext("hr", catalog.BuildEmptyIndices(), nil)
	out, err := RewriteProcedureBody(ctx, tree)
	require.NoError(t, err)
	require.Contains(t, out, "WHEN no_data_found THEN")
	require.Contains(t, out, "WHEN OTHERS THEN")
}
