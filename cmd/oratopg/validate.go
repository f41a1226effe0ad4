package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelsql/oratopg/internal/cli"
	"github.com/kestrelsql/oratopg/pkg/parser"
)

var validateKind string

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Parse Oracle source and report syntax errors",
	Long: `Parse Oracle source (a SELECT statement, function body, procedure
body, or package specification) and report any parse errors with their
source position. Performs no rewriting.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		src, err := readSource(path)
		if err != nil {
			return err
		}

		parse, ok := parseEntryPoints[validateKind]
		if !ok {
			return cli.GeneralError(fmt.Sprintf("unknown --kind %q", validateKind), nil)
		}

		result := parse(src)
		if !result.OK() {
			return cli.ParseError("validate", formatParseErrors(result.Errors))
		}

		if !quiet {
			fmt.Println("OK")
		}
		return nil
	},
}

var parseEntryPoints = map[string]func(string) parser.Result{
	"select":    parser.ParseSelect,
	"function":  parser.ParseFunctionBody,
	"procedure": parser.ParseProcedureBody,
	"package":   parser.ParsePackageSpec,
}

func init() {
	validateCmd.Flags().StringVar(&validateKind, "kind", "select", "one of select, function, procedure, package")
}
