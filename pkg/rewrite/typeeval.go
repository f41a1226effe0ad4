package rewrite

import "github.com/kestrelsql/oratopg/pkg/catalog"

// TypeKind is the coarse classification a TypeEvaluator assigns to an
// expression, sufficient to decide which rewrite applies (e.g. whether a
// NVL argument is a date, driving TO_CHAR format handling) without a full
// Oracle type system.
type TypeKind string

const (
	TypeUnknown TypeKind = "unknown"
	TypeNumber  TypeKind = "number"
	TypeChar    TypeKind = "char"
	TypeDate    TypeKind = "date"
	TypeBoolean TypeKind = "boolean"
	TypeObject  TypeKind = "object"
)

// TypeTag is the return value of a TypeEvaluator: a TypeKind, plus (for
// TypeObject) the owning schema-qualified object type name so method
// dispatch can be resolved.
type TypeTag struct {
	Kind       TypeKind
	ObjectType string // "schema.type", only meaningful when Kind == TypeObject
}

// TypeEvaluator infers the type of a parsed expression node well enough
// to drive rewrite decisions. Spec §4.3/§6 explicitly permit a
// conservative, best-effort evaluator: returning TypeUnknown is always a
// safe, legal answer, never a rewrite failure.
type TypeEvaluator interface {
	// EvalColumn returns the type of a column reference given its
	// resolved schema/table/column, or TypeUnknown if not determinable.
	EvalColumn(schema, table, column string) TypeTag
}

// TrivialEvaluator always reports TypeUnknown, per spec §4.3's sanctioned
// trivial implementation. Rewrite rules that need a concrete type to act
// (e.g. picking a TO_CHAR default format) fall back to their
// type-agnostic default behavior when given TypeUnknown.
type TrivialEvaluator struct{}

func (TrivialEvaluator) EvalColumn(_, _, _ string) TypeTag {
	return TypeTag{Kind: TypeUnknown}
}

// DefaultEvaluator is a catalog-backed TypeEvaluator that classifies a
// column reference from its declared ColumnTypeInfo, mapping common
// Oracle base-type spellings to a TypeKind. Any base type it does not
// recognize, or any column missing from the catalog, evaluates to
// TypeUnknown, never an error.
type DefaultEvaluator struct {
	Catalog *catalog.Indices
}

// NewDefaultEvaluator returns a DefaultEvaluator backed by cat. A nil cat
// behaves like TrivialEvaluator.
func NewDefaultEvaluator(cat *catalog.Indices) DefaultEvaluator {
	return DefaultEvaluator{Catalog: cat}
}

func (e DefaultEvaluator) EvalColumn(schema, table, column string) TypeTag {
	if e.Catalog == nil {
		return TypeTag{Kind: TypeUnknown}
	}
	cols, ok := e.Catalog.Columns(schema, table)
	if !ok {
		return TypeTag{Kind: TypeUnknown}
	}
	info, ok := cols.Lookup(column)
	if !ok {
		return TypeTag{Kind: TypeUnknown}
	}
	kind := classifyBaseType(info.BaseType)
	if kind == TypeObject {
		return TypeTag{Kind: TypeObject, ObjectType: qualifyName(toLower(info.TypeOwnerSchema), toLower(info.BaseType))}
	}
	return TypeTag{Kind: kind}
}

func classifyBaseType(baseType string) TypeKind {
	switch toLower(baseType) {
	case "number", "integer", "int", "float", "binary_integer", "pls_integer", "numeric", "decimal":
		return TypeNumber
	case "varchar2", "char", "nchar", "nvarchar2", "varchar", "clob", "long":
		return TypeChar
	case "date", "timestamp", "timestamp with time zone", "timestamp with local time zone":
		return TypeDate
	case "boolean":
		return TypeBoolean
	case "":
		return TypeUnknown
	default:
		// Anything else is assumed to be a user-defined object type;
		// the caller attaches ObjectType.
		return TypeObject
	}
}
