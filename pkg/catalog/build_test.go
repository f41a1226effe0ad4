package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fixtureProvider struct {
	tables  []TableMetadata
	methods []MethodMetadata
	funcs   []PackageFunctionMetadata
	syns    []SynonymMetadata
}

func (p *fixtureProvider) Tables(schemas []string) ([]TableMetadata, error) { return p.tables, nil }
func (p *fixtureProvider) ObjectTypeMethods(schemas []string) ([]MethodMetadata, error) {
	return p.methods, nil
}
func (p *fixtureProvider) PackageFunctions(schemas []string) ([]PackageFunctionMetadata, error) {
	return p.funcs, nil
}
func (p *fixtureProvider) Synonyms(schemas []string) ([]SynonymMetadata, error) { return p.syns, nil }

func TestBuildEmptyIndices(t *testing.T) {
	ix := BuildEmptyIndices()
	_, ok := ix.Columns("hr", "employees")
	require.False(t, ok)
	require.False(t, ix.IsObjectType("hr", "address_t"))
}

func TestBuildIndicesCaseFolding(t *testing.T) {
	p := &fixtureProvider{
		tables: []TableMetadata{{
			Schema: "HR",
			Name:   "Employees",
			Columns: []ColumnMetadata{
				{Name: "EmpNo", BaseType: "NUMBER"},
				{Name: "Salary", BaseType: "NUMBER"},
			},
		}},
	}
	ix, err := BuildIndices(p, []string{"hr"})
	require.NoError(t, err)

	cols, ok := ix.Columns("HR", "EMPLOYEES")
	require.True(t, ok)
	require.Equal(t, []string{"EmpNo", "Salary"}, cols.Names())

	info, ok := cols.Lookup("empno")
	require.True(t, ok)
	require.Equal(t, "NUMBER", info.BaseType)
}

func TestSynonymResolutionOwnerBeforePublic(t *testing.T) {
	p := &fixtureProvider{
		syns: []SynonymMetadata{
			{Owner: "public", Name: "emp", TargetOwner: "hr", TargetName: "wrong"},
			{Owner: "hr", Name: "emp", TargetOwner: "hr", TargetName: "employees"},
		},
	}
	ix, err := BuildIndices(p, []string{"hr"})
	require.NoError(t, err)

	target, ok := ix.ResolveSynonym("hr", "EMP")
	require.True(t, ok)
	require.Equal(t, "employees", target.TargetName)
}

func TestSynonymResolutionFallsBackToPublic(t *testing.T) {
	p := &fixtureProvider{
		syns: []SynonymMetadata{
			{Owner: "public", Name: "dept", TargetOwner: "hr", TargetName: "departments"},
		},
	}
	ix, err := BuildIndices(p, []string{"sales"})
	require.NoError(t, err)

	target, ok := ix.ResolveSynonym("sales", "dept")
	require.True(t, ok)
	require.Equal(t, "departments", target.TargetName)
}

func TestDeterministicBuild(t *testing.T) {
	p := &fixtureProvider{
		tables: []TableMetadata{
			{Schema: "hr", Name: "b", Columns: []ColumnMetadata{{Name: "x"}}},
			{Schema: "hr", Name: "a", Columns: []ColumnMetadata{{Name: "y"}}},
		},
	}
	ix1, err := BuildIndices(p, []string{"hr"})
	require.NoError(t, err)
	ix2, err := BuildIndices(p, []string{"hr"})
	require.NoError(t, err)

	c1, _ := ix1.Columns("hr", "a")
	c2, _ := ix2.Columns("hr", "a")
	require.Equal(t, c1.Names(), c2.Names())
}

func TestPackageVariableCatalogCaseInsensitiveLookup(t *testing.T) {
	pvc := NewPackageVariableCatalog()
	pvc.RegisterPackage("hr", "emp_pkg", []string{"g_counter"}, map[string]PackageVariable{
		"g_counter": {DataType: "NUMBER"},
	})

	v, ok := pvc.Lookup("HR", "Emp_Pkg", "G_Counter")
	require.True(t, ok)
	require.Equal(t, "NUMBER", v.DataType)

	_, ok = pvc.Lookup("hr", "emp_pkg", "not_declared")
	require.False(t, ok)
}
