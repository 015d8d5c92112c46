package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/magpierre/pivotwider/pivot"
)

// CLI is the pivotwider command line, configured from flags, PIVOTWIDER_*
// environment variables and an optional pivotwider.yaml file.
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
	stdout    io.Writer
	stderr    io.Writer

	logger   *slog.Logger
	closeLog func() error
}

// NewCLI creates the command tree writing to stdout and stderr.
func NewCLI(stdout, stderr io.Writer) *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		stdout:    stdout,
		stderr:    stderr,
		logger:    slog.Default(),
		closeLog:  func() error { return nil },
	}

	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()

	return cli
}

// setupViperConfig configures environment variables and config file lookup.
func (cli *CLI) setupViperConfig() {
	// PIVOTWIDER_CONFIG names a config file explicitly
	if configFile := os.Getenv("PIVOTWIDER_CONFIG"); configFile != "" {
		cli.viperInst.SetConfigFile(configFile)
	} else {
		cli.viperInst.SetConfigName("pivotwider")
		cli.viperInst.SetConfigType("yaml")
		cli.viperInst.AddConfigPath(".")
		cli.viperInst.AddConfigPath("$HOME/.pivotwider")
	}

	cli.viperInst.AutomaticEnv()
	cli.viperInst.SetEnvPrefix("PIVOTWIDER")

	// --names-sep -> PIVOTWIDER_NAMES_SEP
	cli.viperInst.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Read config file if it exists (ignore errors)
	_ = cli.viperInst.ReadInConfig()
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "pivotwider [input]",
		Short: "Reshape long tables into wide ones",
		Long: `pivotwider turns a long table (one row per observation) into a wide table
(one row per id, one column per distinct names-from value).

Input is a CSV, JSON or Parquet file, or a table behind a Delta Sharing
server (--profile and --table). Output goes to --output, whose extension
picks the format, or to stdout in --format.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (PIVOTWIDER_*)
3. Configuration file (PIVOTWIDER_CONFIG, ./pivotwider.yaml, ~/.pivotwider/pivotwider.yaml)

Examples:
  # One column per station, one row per fish
  pivotwider fish.csv --names-from station --values-from seen --values-fill 0

  # Average duplicates and write Parquet
  pivotwider readings.json --names-from sensor --values-from reading --values-fn mean -o wide.parquet

  # Aggregate with a Go function defined in a file
  pivotwider sales.csv --names-from month --values-from amount --values-fn @range.go

  # Reshape according to an edited spec
  pivotwider spec us_rent.csv --names-from variable --values-from estimate,moe -o spec.yaml
  pivotwider us_rent.csv --spec spec.yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = cli.viperInst.BindPFlags(cmd.Flags())

			logger, closeLog, err := initLogging(
				cli.viperInst.GetString("log-level"),
				cli.viperInst.GetString("log-file"),
				cli.stderr,
			)
			if err != nil {
				return err
			}
			cli.logger, cli.closeLog = logger, closeLog
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return cli.closeLog()
		},
		RunE: cli.runWider,
	}

	cli.addGlobalFlags()
	cli.addPivotFlags(cli.rootCmd)
}

// addGlobalFlags adds persistent flags that apply to all commands.
func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()

	flags.String("profile", "", "Delta Sharing profile file")
	flags.String("table", "", "shared table as share.schema.table (requires --profile)")
	flags.String("file-id", "", "data file of the shared table (default: first file)")
	flags.Int("api-timeout", 60, "timeout in seconds for Delta Sharing calls")

	flags.StringP("output", "o", "", "output file; the extension selects the format")
	flags.StringP("format", "f", "csv", "stdout format: "+strings.Join(formats(), "|"))

	flags.String("log-level", "warn", "log level: debug|info|warn|error")
	flags.String("log-file", "", "also write JSON logs to this file")
}

// addPivotFlags adds the flags shared by the pivot and spec commands.
func (cli *CLI) addPivotFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringSlice("names-from", []string{pivot.DefaultNamesFrom}, "columns supplying output column names")
	flags.StringSlice("values-from", []string{pivot.DefaultValuesFrom}, "columns supplying cell values")
	flags.String("names-prefix", pivot.DefaultNamesPrefix, "prefix added to every output column name")
	flags.String("names-sep", pivot.DefaultNamesSep, "separator between name parts")
}

func (cli *CLI) addCommands() {
	flags := cli.rootCmd.Flags()
	flags.StringSlice("id-cols", nil, "columns identifying output rows (default: all remaining columns)")
	flags.String("id-cols-where", "", `selector expression for id columns, e.g. "type = Int OR name ~ geo"`)
	flags.String("values-fill", "", "value for cells with no input row")
	flags.StringSlice("values-fill-for", nil, "per value column fill as column=value")
	flags.String("values-fn", "", "aggregator for duplicate cells: "+strings.Join(aggregatorNames, "|")+" or @file.go")
	flags.StringSlice("values-fn-for", nil, "per value column aggregator as column=aggregator")
	flags.String("spec", "", "YAML spec to pivot with instead of names-from")

	specCmd := &cobra.Command{
		Use:   "spec [input]",
		Short: "Write the spec pivotwider would derive, as YAML",
		Long: `Derives the spec (one entry per output column) from the input and writes it
as YAML to --output or stdout. Edit it and pass it back with --spec to rename,
reorder or drop output columns, or to add columns for keys missing from the data.`,
		Args: cobra.MaximumNArgs(1),
		RunE: cli.runSpec,
	}
	cli.addPivotFlags(specCmd)
	cli.rootCmd.AddCommand(specCmd)

	tablesCmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables a Delta Sharing profile can read",
		Args:  cobra.NoArgs,
		RunE:  cli.runTables,
	}
	cli.rootCmd.AddCommand(tablesCmd)
}

// Execute runs the command line with args.
func (cli *CLI) Execute(args []string) error {
	cli.rootCmd.SetArgs(args)
	cli.rootCmd.SetOut(cli.stdout)
	cli.rootCmd.SetErr(cli.stderr)
	return cli.rootCmd.Execute()
}

func (cli *CLI) printf(format string, args ...interface{}) {
	fmt.Fprintf(cli.stdout, format, args...)
}
