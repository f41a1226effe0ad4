// Package catalog builds and exposes the immutable, process-wide metadata
// indices the rewrite engine consults to resolve Oracle names: table
// columns, object-type methods, package-qualified function names, synonym
// targets, object-type field types, and the set of known object-type names.
//
// The catalog is built once per run from a MetadataProvider snapshot and
// never mutated afterward. Multiple translations may hold borrowed
// references to it concurrently without locking.
package catalog

import "strings"

// PublicOwner is the distinguished synonym owner consulted as a fallback
// when a lookup in the active schema's synonym map misses.
const PublicOwner = "public"

// ColumnTypeInfo describes the declared type of one table column.
type ColumnTypeInfo struct {
	BaseType       string
	TypeOwnerSchema string
	Length         int
	Precision      int
	Scale          int
	Nullable       bool
}

// FieldTypeInfo describes the declared type of one object-type field.
type FieldTypeInfo struct {
	BaseType        string
	TypeOwnerSchema string
}

// PackageVariable describes one variable declared in a package spec.
type PackageVariable struct {
	DataType          string
	DefaultExpression string
	IsConstant        bool
}

// SynonymTarget names the object a synonym resolves to.
type SynonymTarget struct {
	TargetOwner string
	TargetName  string
}

// Indices is the immutable, process-wide set of catalog indices described
// in spec §3. All keys are folded to lower case at build time so every
// lookup the rewriter performs is already case-insensitive.
type Indices struct {
	// tableColumns maps "schema.table" to an ordered column list.
	tableColumns map[string]*OrderedColumns

	// typeMethods maps "schema.type" to the set of method names on that
	// object type.
	typeMethods map[string]map[string]struct{}

	// packageFunctions is the set of "schema.package.function" triples.
	packageFunctions map[string]struct{}

	// synonyms maps owner -> name -> target.
	synonyms map[string]map[string]SynonymTarget

	// typeFieldTypes maps "schema.type" -> field name -> type info.
	typeFieldTypes map[string]map[string]FieldTypeInfo

	// objectTypeNames is the set of "schema.type" known to be user-defined
	// object types.
	objectTypeNames map[string]struct{}
}

// OrderedColumns preserves column declaration order while allowing
// case-insensitive lookup by name.
type OrderedColumns struct {
	order   []string
	columns map[string]ColumnTypeInfo
}

// Names returns the column names in declaration order.
func (o *OrderedColumns) Names() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// Lookup returns the column type info for name (case-insensitive).
func (o *OrderedColumns) Lookup(name string) (ColumnTypeInfo, bool) {
	info, ok := o.columns[fold(name)]
	return info, ok
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func qualify(schema, name string) string { return fold(schema) + "." + fold(name) }

// Columns returns the ordered column list for schema.table, or nil if the
// table is not in the catalog (an unknown table is not an error; the
// rewriter qualifies it with the active schema and lets PostgreSQL report
// any semantic problem).
func (ix *Indices) Columns(schema, table string) (*OrderedColumns, bool) {
	c, ok := ix.tableColumns[qualify(schema, table)]
	return c, ok
}

// TypeMethods returns the method-name set declared on schema.typeName.
func (ix *Indices) TypeMethods(schema, typeName string) (map[string]struct{}, bool) {
	m, ok := ix.typeMethods[qualify(schema, typeName)]
	return m, ok
}

// HasMethod reports whether typeName in schema declares method.
func (ix *Indices) HasMethod(schema, typeName, method string) bool {
	m, ok := ix.typeMethods[qualify(schema, typeName)]
	if !ok {
		return false
	}
	_, ok = m[fold(method)]
	return ok
}

// IsPackageFunction reports whether schema.pkg.function is a known
// package-qualified function.
func (ix *Indices) IsPackageFunction(schema, pkg, function string) bool {
	key := fold(schema) + "." + fold(pkg) + "." + fold(function)
	_, ok := ix.packageFunctions[key]
	return ok
}

// ResolveSynonym looks up name in owner's synonym map, falling back to the
// public owner. It returns the resolved target and true, or false if name
// is not a synonym in either map. The rewriter performs exactly one call
// per name per spec invariant.
func (ix *Indices) ResolveSynonym(owner, name string) (SynonymTarget, bool) {
	if m, ok := ix.synonyms[fold(owner)]; ok {
		if t, ok := m[fold(name)]; ok {
			return t, true
		}
	}
	if m, ok := ix.synonyms[PublicOwner]; ok {
		if t, ok := m[fold(name)]; ok {
			return t, true
		}
	}
	return SynonymTarget{}, false
}

// FieldType returns the declared type of field on schema.typeName.
func (ix *Indices) FieldType(schema, typeName, field string) (FieldTypeInfo, bool) {
	m, ok := ix.typeFieldTypes[qualify(schema, typeName)]
	if !ok {
		return FieldTypeInfo{}, false
	}
	f, ok := m[fold(field)]
	return f, ok
}

// IsObjectType reports whether schema.typeName is a known user-defined
// object type (used to disambiguate built-in type names of the same
// spelling).
func (ix *Indices) IsObjectType(schema, typeName string) bool {
	_, ok := ix.objectTypeNames[qualify(schema, typeName)]
	return ok
}

// TableCount reports how many schema.table entries the catalog indexes.
func (ix *Indices) TableCount() int { return len(ix.tableColumns) }

// ObjectTypeCount reports how many user-defined object types the catalog
// knows about.
func (ix *Indices) ObjectTypeCount() int { return len(ix.objectTypeNames) }

// PackageFunctionCount reports how many package-qualified functions the
// catalog indexes.
func (ix *Indices) PackageFunctionCount() int { return len(ix.packageFunctions) }

// SynonymOwnerCount reports how many distinct synonym owners the catalog
// indexes (not the total synonym count, since each owner may map several
// names).
func (ix *Indices) SynonymOwnerCount() int { return len(ix.synonyms) }
