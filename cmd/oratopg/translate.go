package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrelsql/oratopg/internal/cli"
	"github.com/kestrelsql/oratopg/pkg/parser"
	"github.com/kestrelsql/oratopg/pkg/rewrite"
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate an Oracle source fragment to PostgreSQL",
}

func init() {
	translateCmd.AddCommand(
		translateSubcommand("select", "Translate a SELECT statement", parser.ParseSelect, selectRewriter),
		translateSubcommand("function", "Translate a standalone FUNCTION body", parser.ParseFunctionBody, routineRewriter(true)),
		translateSubcommand("procedure", "Translate a standalone PROCEDURE body", parser.ParseProcedureBody, routineRewriter(false)),
		translateSubcommand("package", "Translate a PACKAGE specification", parser.ParsePackageSpec, packageRewriter),
	)
}

// rewriteFunc renders a parsed tree under ctx into PostgreSQL text.
type rewriteFunc func(ctx rewrite.Context, tree *parser.Node) (string, error)

func selectRewriter(ctx rewrite.Context, tree *parser.Node) (string, error) {
	return rewrite.RewriteSelect(ctx, tree)
}

func routineRewriter(isFunc bool) rewriteFunc {
	if isFunc {
		return func(ctx rewrite.Context, tree *parser.Node) (string, error) {
			return rewrite.RewriteFunctionBody(ctx, tree)
		}
	}
	return func(ctx rewrite.Context, tree *parser.Node) (string, error) {
		return rewrite.RewriteProcedureBody(ctx, tree)
	}
}

func packageRewriter(ctx rewrite.Context, tree *parser.Node) (string, error) {
	return rewrite.RewritePackageSpec(ctx, tree)
}

// translateSubcommand builds one `translate <kind>` command that reads
// source text (a file argument or stdin), runs the matching parser entry
// point, rewrites the resulting tree, and writes the output.
func translateSubcommand(name, short string, parse func(string) parser.Result, rewriteTree rewriteFunc) *cobra.Command {
	var inPackage string
	var applyDB string
	var applyDriver string

	cmd := &cobra.Command{
		Use:   name + " [file]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			src, err := readSource(path)
			if err != nil {
				return err
			}

			result := parse(src)
			if !result.OK() {
				return cli.ParseError(name+": parse failed", formatParseErrors(result.Errors))
			}

			indices, err := loadIndices()
			if err != nil {
				return err
			}
			ctx := rewrite.NewContext(resolveActiveSchema(), indices, rewrite.NewDefaultEvaluator(indices))
			if inPackage != "" {
				ctx = ctx.WithCurrentPackage(strings.ToLower(inPackage), nil)
			}

			out, err := rewriteTree(ctx, result.Tree)
			if err != nil {
				return cli.TransformError(name+": rewrite failed", err)
			}

			dest := resolveString(flagOutput, cfg.Output)
			if err := writeOutput(dest, out); err != nil {
				return cli.GeneralError("writing output", err)
			}

			if applyDB != "" || cfg.Database.URL != "" || cfg.Database.Host != "" {
				dsn := applyDB
				if dsn == "" {
					resolved, err := cfg.DSN()
					if err != nil {
						return cli.ConfigError("database configuration", err)
					}
					dsn = resolved
				}
				if dsn != "" {
					if err := applyToDatabase(dsn, applyDriver, out); err != nil {
						return err
					}
					if !quiet {
						fmt.Println("applied translated SQL to database")
					}
				}
			}
			return nil
		},
	}

	if name == "function" || name == "procedure" {
		cmd.Flags().StringVar(&inPackage, "in-package", "", "name of the enclosing package, if this routine belongs to one")
	}
	cmd.Flags().StringVar(&applyDB, "apply", "", "database URL to execute the translated SQL against, in addition to writing it")
	cmd.Flags().StringVar(&applyDriver, "driver", "pgx", "database/sql driver for --apply: pgx or lib-pq")

	return cmd
}

// formatParseErrors renders a non-empty ParseError list as a single error
// value, one message per line, each carrying its source position.
func formatParseErrors(errs []*parser.ParseError) error {
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.Error()
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}
