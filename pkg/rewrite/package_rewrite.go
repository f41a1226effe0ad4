package rewrite

import (
	"fmt"
	"strings"

	"github.com/kestrelsql/oratopg/internal/plsqlgen"
	"github.com/kestrelsql/oratopg/internal/sqlexpr"
	"github.com/kestrelsql/oratopg/pkg/parser"
)

// RewritePackageSpec emits the storage functions a package's variables are
// emulated with: one getter, one setter, and one shared initializer per
// spec.md's glossary entry for "package variable" (`schema.pkg__get_name`,
// `schema.pkg__set_name`, `schema.pkg__initialize`). Storage itself rides
// on a session GUC per variable, the same `current_setting`/`set_config`
// pair SYS_CONTEXT already rewrites onto (see rewriteFunctionCall), so a
// package's state lives for the Postgres session the way a package
// instantiation lives for an Oracle session.
func RewritePackageSpec(ctx Context, n *parser.Node) (string, error) {
	if n == nil || n.Kind != parser.KindPackageSpec {
		return "", newTransformError("package_spec", ErrUnsupportedConstruct, "", "not a package specification")
	}
	pkg := toLower(n.Attr("name"))
	schema := ctx.ActiveSchema

	var out []string
	var initBody []plsqlgen.Stmt
	for _, c := range n.Children {
		if c.Kind != parser.KindDeclaration {
			continue
		}
		name := toLower(c.Attr("name"))
		pgType := mapOracleType(c.Attr("type"))
		guc := fmt.Sprintf("oratopg.%s.%s.%s", schema, pkg, name)

		out = append(out, renderGetter(schema, pkg, name, pgType, guc))
		out = append(out, renderSetter(schema, pkg, name, pgType, guc))

		if def := c.Child(0); def != nil {
			v, err := RewriteExpr(ctx, def)
			if err != nil {
				return "", err
			}
			setFn := qualifyName(schema, pkg+"__set_"+name)
			initBody = append(initBody, plsqlgen.RawStmt{
				SQLText: fmt.Sprintf("PERFORM %s(%s);", setFn, v.SQL()),
			})
		}
	}

	out = append(out, renderInitializer(schema, pkg, initBody))
	return strings.Join(out, "\n\n"), nil
}

// renderGetter emits `schema.pkg__get_name() RETURNS type`, reading the
// variable's backing GUC and casting it to the declared type; an unset GUC
// (never assigned this session) reads back as SQL NULL rather than
// raising, since `current_setting(name, true)` returns an empty string in
// that case and an empty string cast to most Oracle-mapped types is
// meaningless.
func renderGetter(schema, pkg, name, pgType, guc string) string {
	fn := plsqlgen.PlpgsqlFunction{
		Schema:  schema,
		Name:    pkg + "__get_" + name,
		Returns: pgType,
		Decls: []plsqlgen.Decl{{
			Name:    "raw",
			Type:    "text",
			Default: fmt.Sprintf("nullif(current_setting('%s', true), '')", guc),
		}},
		Body:   []plsqlgen.Stmt{plsqlgen.ReturnValue{Value: sqlexpr.Raw("raw::" + pgType)}},
		Header: []string{"Getter for package variable " + name + "."},
	}
	return fn.SQL()
}

// renderSetter emits `schema.pkg__set_name(value type) RETURNS void`,
// writing the variable's backing GUC for the current session only (the
// `is_local` argument to set_config is always false: a package variable's
// lifetime is the session, not the current transaction).
func renderSetter(schema, pkg, name, pgType, guc string) string {
	fn := plsqlgen.PlpgsqlFunction{
		Schema:  schema,
		Name:    pkg + "__set_" + name,
		Args:    []plsqlgen.FuncArg{{Name: "value", Type: pgType}},
		Returns: "void",
		Body: []plsqlgen.Stmt{
			plsqlgen.RawStmt{SQLText: fmt.Sprintf("PERFORM set_config('%s', value::text, false);", guc)},
		},
		Header: []string{"Setter for package variable " + name + "."},
	}
	return fn.SQL()
}

// renderInitializer emits `schema.pkg__initialize() RETURNS void`, applying
// every variable's declared default. Every routine belonging to the
// package calls this as its first statement (spec §4.5); repeated calls
// within one session just re-apply the same defaults, so the function is
// intentionally idempotent rather than guarded by a has-run flag.
func renderInitializer(schema, pkg string, body []plsqlgen.Stmt) string {
	fn := plsqlgen.PlpgsqlFunction{
		Schema:  schema,
		Name:    pkg + "__initialize",
		Returns: "void",
		Body:    body,
		Header:  []string{"Initializer for package " + pkg + "; applies declared variable defaults."},
	}
	if len(fn.Body) == 0 {
		fn.Body = []plsqlgen.Stmt{plsqlgen.Null{}}
	}
	return fn.SQL()
}
