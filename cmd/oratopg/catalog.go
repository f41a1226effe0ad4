package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelsql/oratopg/internal/cli"
	"github.com/kestrelsql/oratopg/pkg/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the metadata catalog",
}

var catalogBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the catalog from a metadata fixture and report its size",
	Long: `Build the six-index catalog (build_indices) from the configured YAML
metadata fixture, or an empty catalog (build_empty_indices) when none is
configured, and report how many entries landed in each index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fixture := resolveString(flagFixture, cfg.MetadataFixture)
		schemas := []string{resolveActiveSchema()}

		var indices *catalog.Indices
		if fixture == "" {
			indices = catalog.BuildEmptyIndices()
		} else {
			provider, err := catalog.LoadFixtureProvider(fixture)
			if err != nil {
				return cli.ConfigError("loading metadata fixture "+fixture, err)
			}
			indices, err = catalog.BuildIndices(provider, schemas)
			if err != nil {
				return cli.TransformError("building catalog", err)
			}
		}

		if !quiet {
			fmt.Printf("tables:            %d\n", indices.TableCount())
			fmt.Printf("object types:      %d\n", indices.ObjectTypeCount())
			fmt.Printf("package functions: %d\n", indices.PackageFunctionCount())
			fmt.Printf("synonym owners:    %d\n", indices.SynonymOwnerCount())
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogBuildCmd)
}
