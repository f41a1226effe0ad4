package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleFixtureYAML = `
tables:
  - schema: hr
    name: employees
    columns:
      - name: empno
        base_type: NUMBER
      - name: ename
        base_type: VARCHAR2
        length: 30
  - schema: finance
    name: invoices
    columns:
      - name: id
        base_type: NUMBER

object_type_methods:
  - schema: hr
    type: address_t
    method: format
    kind: function

package_functions:
  - owner: hr
    package: payroll
    function: tax_rate

synonyms:
  - owner: hr
    name: emps
    target_owner: hr
    target_name: employees

type_fields:
  - schema: hr
    type: address_t
    field: city
    base_type: VARCHAR2
`

func writeSampleFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metadata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFixtureYAML), 0o644))
	return path
}

func TestLoadFixtureProviderFiltersBySchema(t *testing.T) {
	path := writeSampleFixture(t)
	provider, err := LoadFixtureProvider(path)
	require.NoError(t, err)

	tables, err := provider.Tables([]string{"hr"})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.Equal(t, "employees", tables[0].Name)
	require.Len(t, tables[0].Columns, 2)

	allTables, err := provider.Tables(nil)
	require.NoError(t, err)
	require.Len(t, allTables, 2)
}

func TestLoadFixtureProviderPopulatesAllEnumerations(t *testing.T) {
	path := writeSampleFixture(t)
	provider, err := LoadFixtureProvider(path)
	require.NoError(t, err)

	methods, err := provider.ObjectTypeMethods([]string{"hr"})
	require.NoError(t, err)
	require.Len(t, methods, 1)
	require.Equal(t, "format", methods[0].Method)

	funcs, err := provider.PackageFunctions([]string{"hr"})
	require.NoError(t, err)
	require.Len(t, funcs, 1)
	require.Equal(t, "tax_rate", funcs[0].Function)

	syns, err := provider.Synonyms([]string{"hr"})
	require.NoError(t, err)
	require.Len(t, syns, 1)
	require.Equal(t, "employees", syns[0].TargetName)

	var tfp TypeFieldProvider = provider
	fields, err := tfp.TypeFields([]string{"hr"})
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.Equal(t, "city", fields[0].Field)
}

func TestLoadFixtureProviderBuildsDeterministicIndices(t *testing.T) {
	path := writeSampleFixture(t)
	provider, err := LoadFixtureProvider(path)
	require.NoError(t, err)

	ix, err := BuildIndices(provider, []string{"hr"})
	require.NoError(t, err)
	require.Equal(t, 1, ix.TableCount())
	require.Equal(t, 1, ix.ObjectTypeCount())
	require.Equal(t, 1, ix.PackageFunctionCount())
	require.True(t, ix.HasMethod("hr", "address_t", "format"))

	target, ok := ix.ResolveSynonym("hr", "emps")
	require.True(t, ok)
	require.Equal(t, "employees", target.TargetName)
}

func TestLoadFixtureProviderMissingFile(t *testing.T) {
	_, err := LoadFixtureProvider(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}
