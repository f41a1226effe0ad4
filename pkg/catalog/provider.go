package catalog

// MetadataProvider is the external collaborator that supplies raw Oracle
// metadata snapshots. Extraction from a live database, connection
// management, and retries are explicitly out of scope for the core (see
// spec §1) and belong to the caller's implementation of this interface.
// Each call returns a point-in-time snapshot; the provider offers no
// transactionality across calls.
type MetadataProvider interface {
	// Tables returns every column of every table visible to the given
	// schema list.
	Tables(schemas []string) ([]TableMetadata, error)

	// ObjectTypeMethods returns every method defined on a user-defined
	// object type visible to the given schema list.
	ObjectTypeMethods(schemas []string) ([]MethodMetadata, error)

	// PackageFunctions returns every package-qualified function known to
	// exist in the given schema list.
	PackageFunctions(schemas []string) ([]PackageFunctionMetadata, error)

	// Synonyms returns every synonym visible to the given schema list,
	// already flattened: a synonym never targets another synonym.
	Synonyms(schemas []string) ([]SynonymMetadata, error)
}

// TableMetadata describes one table's columns as reported by the provider.
type TableMetadata struct {
	Schema  string
	Name    string
	Columns []ColumnMetadata
}

// ColumnMetadata is one column as reported by the provider, in table
// declaration order.
type ColumnMetadata struct {
	Name            string
	BaseType        string
	TypeOwnerSchema string
	Length          int
	Precision       int
	Scale           int
	Nullable        bool
}

// MethodMetadata names one method on one object type.
type MethodMetadata struct {
	Schema string
	Type   string
	Method string
	// Kind is "function", "procedure", "constructor", or "map"/"order"
	// member; the catalog only needs the name for dispatch, so Kind is
	// informational.
	Kind string
}

// PackageFunctionMetadata names one package-qualified function.
type PackageFunctionMetadata struct {
	Owner    string
	Package  string
	Function string
}

// SynonymMetadata names one synonym and its resolved target.
type SynonymMetadata struct {
	Owner       string
	Name        string
	TargetOwner string
	TargetName  string
}

// TypeFieldMetadata names one field of one object type. Field metadata is
// folded into TableMetadata-shaped entries in some providers and into a
// dedicated call in others; ORATOPG's provider interface keeps it
// separate so a provider backed purely by DBA_TYPE_ATTRS can implement it
// without inventing fake table rows.
type TypeFieldMetadata struct {
	Schema          string
	Type            string
	Field           string
	BaseType        string
	TypeOwnerSchema string
}

// TypeFieldProvider is an optional extension a MetadataProvider may
// implement to supply object-type field types (schema.type -> field ->
// type). It is optional because many providers translate only tables and
// routines and never need to resolve `obj.field` chains.
type TypeFieldProvider interface {
	TypeFields(schemas []string) ([]TypeFieldMetadata, error)
}
