// Package rewrite is the tree walk that, for each parse-tree node shape,
// consults a Context and emits PostgreSQL text (spec §2 "Rewriter /
// Emitter", §4). Rewrites are dispatched by node kind; each rewrite rule
// is small and independent, the only coupling between them is the
// Context they share.
package rewrite

import "github.com/kestrelsql/oratopg/pkg/catalog"

// ConnectByMode names which arm of a CONNECT BY -> recursive CTE
// transform is currently being emitted, so nested expression visits know
// how to rewrite a bare LEVEL reference (spec §9 "sidecar state during
// CONNECT BY emission").
type ConnectByMode int

const (
	// ModeOuter is the default: outside any CONNECT BY rewrite, LEVEL (if
	// it somehow appears) resolves to the materialized `level` column.
	ModeOuter ConnectByMode = iota
	// ModeBase is the base arm of the recursive CTE: LEVEL becomes the
	// literal 1.
	ModeBase
	// ModeRecursive is the recursive arm: LEVEL becomes `h.level + 1`.
	ModeRecursive
)

// LocalTypeKind classifies a PL/SQL TYPE declared inside a routine body.
type LocalTypeKind string

const (
	LocalTypeRecord LocalTypeKind = "record"
	LocalTypeArray  LocalTypeKind = "array"
	LocalTypeMap    LocalTypeKind = "map"
)

// LocalTypeDecl is one `TYPE t IS RECORD|TABLE OF ...` declaration
// registered for the lifetime of a single routine (spec §9: "the inline
// type registry is per-routine... there is no cross-routine leakage").
type LocalTypeDecl struct {
	Kind        LocalTypeKind
	Fields      []string // ordered field names, record types only
	ElementType string   // element type name, array/map types only
}

// LocalScope is the per-routine scratch area holding the local TYPE
// registry and the set of locally declared variable names (used to give
// local variables precedence over package-variable getter/setter
// rewrites, per spec §4.5).
type LocalScope struct {
	Types    map[string]LocalTypeDecl // declared type name (lower) -> decl
	VarTypes map[string]string        // declared variable name (lower) -> type name (lower)
}

// NewLocalScope returns an empty, ready-to-populate LocalScope.
func NewLocalScope() *LocalScope {
	return &LocalScope{Types: map[string]LocalTypeDecl{}, VarTypes: map[string]string{}}
}

// IsLocalVar reports whether name was declared as a local variable or
// parameter of the routine currently being rewritten.
func (s *LocalScope) IsLocalVar(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.VarTypes[fold(name)]
	return ok
}

// TypeOf returns the declared local type of variable name, if registered
// as one of the routine's local record/array/map types.
func (s *LocalScope) TypeOf(varName string) (LocalTypeDecl, bool) {
	if s == nil {
		return LocalTypeDecl{}, false
	}
	typeName, ok := s.VarTypes[fold(varName)]
	if !ok {
		return LocalTypeDecl{}, false
	}
	decl, ok := s.Types[fold(typeName)]
	return decl, ok
}

// AliasBinding records what a FROM-clause table alias (or a bare table
// name used without one) resolves to, so expression rewrites that need a
// real schema/table pair for a catalog lookup -- chiefly object-type
// member-method dispatch -- can turn `alias.col` into a concrete
// EvalColumn(schema, table, column) call instead of guessing.
type AliasBinding struct {
	Schema string
	Table  string
}

// Context is the immutable, per-translation bundle threaded through
// every rewrite rule (spec §3 "Context"). It is cheap to copy: callers
// clone-with-overrides via the With* helpers rather than mutating a
// shared Context.
type Context struct {
	ActiveSchema   string
	Catalog        *catalog.Indices
	Evaluator      TypeEvaluator
	CurrentPackage string // "" means no enclosing package
	PackageVars    *catalog.PackageVariableCatalog
	Mode           ConnectByMode
	Locals         *LocalScope // nil outside of PL/SQL body rewriting
	Aliases        map[string]AliasBinding
}

// NewContext builds a Context for translating against the given active
// schema and catalog, with no enclosing package.
func NewContext(activeSchema string, cat *catalog.Indices, evaluator TypeEvaluator) Context {
	if cat == nil {
		cat = catalog.BuildEmptyIndices()
	}
	if evaluator == nil {
		evaluator = TrivialEvaluator{}
	}
	return Context{ActiveSchema: activeSchema, Catalog: cat, Evaluator: evaluator}
}

// WithMode returns a copy of ctx with Mode overridden; used when
// descending into the base or recursive arm of a CONNECT BY rewrite.
func (c Context) WithMode(m ConnectByMode) Context {
	c.Mode = m
	return c
}

// WithCurrentPackage returns a copy of ctx with CurrentPackage and
// PackageVars set, used when rewriting a routine that belongs to a
// package. Package variables are consulted only when CurrentPackage is
// non-empty (spec invariant: "standalone routines see no package
// variables").
func (c Context) WithCurrentPackage(pkg string, vars *catalog.PackageVariableCatalog) Context {
	c.CurrentPackage = pkg
	c.PackageVars = vars
	return c
}

// WithLocals returns a copy of ctx scoped to a fresh, empty LocalScope,
// used at the start of rewriting one routine body.
func (c Context) WithLocals() Context {
	c.Locals = NewLocalScope()
	return c
}

// WithAliases returns a copy of ctx carrying the given FROM-clause
// alias -> table bindings, used while rewriting one query block's select
// list, WHERE, GROUP BY and HAVING clauses.
func (c Context) WithAliases(aliases map[string]AliasBinding) Context {
	c.Aliases = aliases
	return c
}

// ResolveAlias looks up a FROM-clause alias (or bare table name) against
// the bindings collected for the query block currently being rewritten.
func (c Context) ResolveAlias(name string) (AliasBinding, bool) {
	if c.Aliases == nil {
		return AliasBinding{}, false
	}
	b, ok := c.Aliases[fold(name)]
	return b, ok
}

func fold(s string) string { return toLower(s) }
