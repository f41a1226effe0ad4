package catalog

import "github.com/kestrelsql/oratopg/pkg/parser"

// ExtractPackageVariables walks a parsed package spec tree and registers
// its top-level variable declarations into vars under schema.pkg (spec
// §3: "the package-variable catalog is built from exactly this text").
// Nested routine signatures and local TYPE declarations are ignored here;
// only plain KindDeclaration entries at the spec's top level are package
// variables.
func ExtractPackageVariables(vars *PackageVariableCatalog, schema string, spec *parser.Node) {
	if spec == nil || spec.Kind != parser.KindPackageSpec {
		return
	}
	pkg := spec.Attr("name")

	var names []string
	byName := make(map[string]PackageVariable)
	for _, c := range spec.Children {
		if c.Kind != parser.KindDeclaration {
			continue
		}
		name := c.Attr("name")
		key := fold(name)
		if _, dup := byName[key]; !dup {
			names = append(names, name)
		}
		byName[key] = PackageVariable{
			DataType:          c.Attr("type"),
			DefaultExpression: literalDefaultText(c.Child(0)),
			IsConstant:        c.Attr("const") == "true",
		}
	}
	vars.RegisterPackage(schema, pkg, names, byName)
}

// literalDefaultText renders the small set of default-value shapes a
// package variable declaration can carry (a bare literal) as source text;
// anything more elaborate is left blank, since the catalog only needs the
// default for documentation purposes and never evaluates it.
func literalDefaultText(n *parser.Node) string {
	if n == nil || n.Kind != parser.KindLiteral {
		return ""
	}
	return n.Text
}
