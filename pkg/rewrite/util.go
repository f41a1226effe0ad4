package rewrite

import "strings"

func toLower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func qualifyName(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}
