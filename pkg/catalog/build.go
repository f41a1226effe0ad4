package catalog

import "sort"

// BuildIndices builds the catalog once from a MetadataProvider snapshot
// for the given active schema list. Two calls with equal provider output
// produce equal Indices: tables are sorted by qualified name before their
// columns are recorded, and every collection is folded into maps keyed by
// lower-cased name (spec §4.2, "must be deterministic"). The other
// enumerations are folded in provider order.
func BuildIndices(provider MetadataProvider, schemas []string) (*Indices, error) {
	ix := emptyIndices()

	tables, err := provider.Tables(schemas)
	if err != nil {
		return nil, err
	}
	sort.Slice(tables, func(i, j int) bool {
		return qualify(tables[i].Schema, tables[i].Name) < qualify(tables[j].Schema, tables[j].Name)
	})
	for _, t := range tables {
		cols := &OrderedColumns{columns: make(map[string]ColumnTypeInfo, len(t.Columns))}
		for _, c := range t.Columns {
			key := fold(c.Name)
			if _, dup := cols.columns[key]; !dup {
				cols.order = append(cols.order, c.Name)
			}
			cols.columns[key] = ColumnTypeInfo{
				BaseType:        c.BaseType,
				TypeOwnerSchema: c.TypeOwnerSchema,
				Length:          c.Length,
				Precision:       c.Precision,
				Scale:           c.Scale,
				Nullable:        c.Nullable,
			}
		}
		ix.tableColumns[qualify(t.Schema, t.Name)] = cols
	}

	methods, err := provider.ObjectTypeMethods(schemas)
	if err != nil {
		return nil, err
	}
	for _, m := range methods {
		key := qualify(m.Schema, m.Type)
		if ix.typeMethods[key] == nil {
			ix.typeMethods[key] = make(map[string]struct{})
		}
		ix.typeMethods[key][fold(m.Method)] = struct{}{}
		ix.objectTypeNames[key] = struct{}{}
	}

	funcs, err := provider.PackageFunctions(schemas)
	if err != nil {
		return nil, err
	}
	for _, f := range funcs {
		key := fold(f.Owner) + "." + fold(f.Package) + "." + fold(f.Function)
		ix.packageFunctions[key] = struct{}{}
	}

	syns, err := provider.Synonyms(schemas)
	if err != nil {
		return nil, err
	}
	for _, s := range syns {
		owner := fold(s.Owner)
		if ix.synonyms[owner] == nil {
			ix.synonyms[owner] = make(map[string]SynonymTarget)
		}
		ix.synonyms[owner][fold(s.Name)] = SynonymTarget{
			TargetOwner: fold(s.TargetOwner),
			TargetName:  fold(s.TargetName),
		}
	}

	if tfp, ok := provider.(TypeFieldProvider); ok {
		fields, err := tfp.TypeFields(schemas)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			key := qualify(f.Schema, f.Type)
			if ix.typeFieldTypes[key] == nil {
				ix.typeFieldTypes[key] = make(map[string]FieldTypeInfo)
			}
			ix.typeFieldTypes[key][fold(f.Field)] = FieldTypeInfo{
				BaseType:        f.BaseType,
				TypeOwnerSchema: f.TypeOwnerSchema,
			}
			ix.objectTypeNames[key] = struct{}{}
		}
	}

	return ix, nil
}

// BuildEmptyIndices returns a valid, empty catalog so the rewriter can run
// on inputs that reference no known tables. Used by unit tests of pure
// syntactic rewrites (spec §4.2).
func BuildEmptyIndices() *Indices {
	return emptyIndices()
}

func emptyIndices() *Indices {
	return &Indices{
		tableColumns:     make(map[string]*OrderedColumns),
		typeMethods:      make(map[string]map[string]struct{}),
		packageFunctions: make(map[string]struct{}),
		synonyms:         make(map[string]map[string]SynonymTarget),
		typeFieldTypes:   make(map[string]map[string]FieldTypeInfo),
		objectTypeNames:  make(map[string]struct{}),
	}
}

// PackageVariableCatalog is the separate, per-package-spec extracted
// table of variable name -> {data type, default, const flag}. It is kept
// apart from Indices because it comes from parsed package-spec text, not
// relational metadata (spec §3).
type PackageVariableCatalog struct {
	vars map[string]*orderedVars
}

type orderedVars struct {
	order []string
	byKey map[string]PackageVariable
}

// NewPackageVariableCatalog returns an empty catalog ready for
// RegisterPackage calls.
func NewPackageVariableCatalog() *PackageVariableCatalog {
	return &PackageVariableCatalog{vars: make(map[string]*orderedVars)}
}

// RegisterPackage records the variable list extracted from one package
// spec's text, in declaration order.
func (c *PackageVariableCatalog) RegisterPackage(schema, pkg string, names []string, vars map[string]PackageVariable) {
	ov := &orderedVars{byKey: make(map[string]PackageVariable, len(vars))}
	for _, n := range names {
		key := fold(n)
		if _, dup := ov.byKey[key]; !dup {
			ov.order = append(ov.order, n)
		}
		ov.byKey[key] = vars[key]
	}
	c.vars[qualify(schema, pkg)] = ov
}

// Lookup returns the declared type of variable in schema.pkg, and whether
// it exists. Package variables are consulted only when current_package is
// set on the Context (spec invariant).
func (c *PackageVariableCatalog) Lookup(schema, pkg, variable string) (PackageVariable, bool) {
	ov, ok := c.vars[qualify(schema, pkg)]
	if !ok {
		return PackageVariable{}, false
	}
	v, ok := ov.byKey[fold(variable)]
	return v, ok
}

// Names returns the variable names declared in schema.pkg, in declaration
// order.
func (c *PackageVariableCatalog) Names(schema, pkg string) []string {
	ov, ok := c.vars[qualify(schema, pkg)]
	if !ok {
		return nil
	}
	out := make([]string, len(ov.order))
	copy(out, ov.order)
	return out
}
