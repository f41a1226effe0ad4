package main

import (
	"io"
	"os"

	"github.com/kestrelsql/oratopg/internal/cli"
	"github.com/kestrelsql/oratopg/pkg/catalog"
)

// readSource reads translation input from a named file, or from stdin
// when path is empty or "-".
func readSource(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", cli.GeneralError("reading stdin", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", cli.GeneralError("reading "+path, err)
	}
	return string(data), nil
}

// writeOutput writes text to dest (flag value, falling back to the
// config's Output field), where "" or "-" means stdout.
func writeOutput(dest, text string) error {
	if dest == "" || dest == "-" {
		_, err := os.Stdout.WriteString(text)
		if err == nil {
			_, err = os.Stdout.WriteString("\n")
		}
		return err
	}
	return os.WriteFile(dest, []byte(text+"\n"), 0o644)
}

// resolveActiveSchema applies flag > config precedence for the active
// schema used to qualify unqualified names.
func resolveActiveSchema() string {
	return resolveString(flagSchema, cfg.ActiveSchema)
}

// loadIndices builds a catalog from the configured metadata fixture, or
// returns an empty catalog when none is configured (spec §4.2's
// "build_empty_indices" path, exercised whenever a translation has no
// live schema behind it).
func loadIndices() (*catalog.Indices, error) {
	fixture := resolveString(flagFixture, cfg.MetadataFixture)
	if fixture == "" {
		return catalog.BuildEmptyIndices(), nil
	}
	provider, err := catalog.LoadFixtureProvider(fixture)
	if err != nil {
		return nil, cli.ConfigError("loading metadata fixture "+fixture, err)
	}
	schemas := []string{resolveActiveSchema()}
	return catalog.BuildIndices(provider, schemas)
}
