package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSelectSimple(t *testing.T) {
	r := ParseSelect("SELECT 1 FROM DUAL")
	require.True(t, r.OK(), "%v", r.Errors)
	require.Equal(t, KindSelectStatement, r.Tree.Kind)
}

func TestParseSelectJoinsAndWhere(t *testing.T) {
	r := ParseSelect(`SELECT e.empno, d.dname FROM employees e
		JOIN departments d ON e.dept_id = d.dept_id
		WHERE e.salary > 1000 AND d.active = 1`)
	require.True(t, r.OK(), "%v", r.Errors)
}

func TestParseSelectSetOps(t *testing.T) {
	r := ParseSelect("SELECT a FROM t1 UNION SELECT b FROM t2 MINUS SELECT c FROM t3")
	require.True(t, r.OK(), "%v", r.Errors)
	body := r.Tree.Children[0]
	require.Equal(t, KindSetOp, body.Kind)
}

func TestParseWithClauseRecursiveDetectionInput(t *testing.T) {
	r := ParseSelect(`WITH cte(id) AS (SELECT 1 FROM dual) SELECT id FROM cte`)
	require.True(t, r.OK(), "%v", r.Errors)
}

func TestParseConnectByStartWith(t *testing.T) {
	r := ParseSelect(`SELECT emp_id, LEVEL FROM employees START WITH manager_id IS NULL CONNECT BY PRIOR emp_id = manager_id`)
	require.True(t, r.OK(), "%v", r.Errors)
}

func TestParseInlinePlsqlInWithRejected(t *testing.T) {
	r := ParseSelect(`WITH FUNCTION f RETURN NUMBER IS BEGIN RETURN 1; END; SELECT f() FROM dual`)
	require.False(t, r.OK())
	require.Len(t, r.Errors, 1)
}

func TestParseCaseExpressions(t *testing.T) {
	r := ParseSelect(`SELECT CASE WHEN a = 1 THEN 'x' ELSE 'y' END FROM t`)
	require.True(t, r.OK(), "%v", r.Errors)
}

func TestParseFunctionBodyWithRecordType(t *testing.T) {
	src := `FUNCTION f RETURN NUMBER IS
		TYPE r IS RECORD(min_sal NUMBER, max_sal NUMBER);
		v r;
	BEGIN
		v.min_sal := 50000;
		v.max_sal := 150000;
		RETURN 0;
	END;`
	r := ParseFunctionBody(src)
	require.True(t, r.OK(), "%v", r.Errors)
	require.Equal(t, KindFunctionBody, r.Tree.Kind)
}

func TestParseProcedureBodyControlFlow(t *testing.T) {
	src := `PROCEDURE p(p_x IN NUMBER) IS
		v_total NUMBER := 0;
	BEGIN
		FOR i IN 1..10 LOOP
			v_total := v_total + i;
		END LOOP;
		IF v_total > 0 THEN
			v_total := v_total - 1;
		ELSIF v_total = 0 THEN
			NULL;
		ELSE
			v_total := 0;
		END IF;
	END;`
	r := ParseProcedureBody(src)
	require.True(t, r.OK(), "%v", r.Errors)
}

func TestParsePackageSpec(t *testing.T) {
	src := `PACKAGE emp_pkg IS
		g_counter NUMBER := 0;
		FUNCTION get_total RETURN NUMBER;
	END;`
	r := ParsePackageSpec(src)
	require.True(t, r.OK(), "%v", r.Errors)
	require.Equal(t, KindPackageSpec, r.Tree.Kind)
}

func TestParseErrorHasPosition(t *testing.T) {
	r := ParseSelect("SELECT FROM")
	require.False(t, r.OK())
	require.NotEmpty(t, r.Errors)
	require.Greater(t, r.Errors[0].Line, 0)
}
