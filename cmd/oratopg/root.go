package main

import (
	"github.com/spf13/cobra"

	"github.com/kestrelsql/oratopg/internal/cli"
)

var (
	// Global state set during PersistentPreRunE.
	cfg        *cli.Config
	configPath string

	// Persistent flags.
	cfgFile      string
	verbose      int
	quiet        bool
	flagSchema   string
	flagFixture  string
	flagOutput   string
)

var rootCmd = &cobra.Command{
	Use:   "oratopg",
	Short: "Oracle to PostgreSQL source-to-source compiler",
	Long: `oratopg - Oracle to PostgreSQL source-to-source compiler

oratopg translates Oracle SQL and PL/SQL source text (SELECT statements,
function bodies, procedure bodies, package specifications) into
semantically equivalent PostgreSQL source text.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command group IDs.
const (
	groupTranslate = "translate"
	groupUtility   = "utility"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover oratopg.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&flagSchema, "schema", "", "active schema unqualified names resolve against")
	rootCmd.PersistentFlags().StringVar(&flagFixture, "metadata-fixture", "", "path to a YAML metadata fixture file")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "output file, or \"-\" for stdout")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupTranslate, Title: "Translate:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	translateCmd.GroupID = groupTranslate
	validateCmd.GroupID = groupTranslate
	catalogCmd.GroupID = groupTranslate
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(catalogCmd)

	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from the provided
// values, implementing flag > config > default precedence.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
