package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magpierre/pivotwider/datatable"
	"github.com/magpierre/pivotwider/pivot"
	"github.com/magpierre/pivotwider/script"
	"github.com/magpierre/pivotwider/tableio"
)

var errNoInput = errors.New("no input: pass a file or --profile with --table")

// aggregatorNames are the built-in aggregators --values-fn accepts.
var aggregatorNames = []string{"list", "length", "sum", "mean", "median", "min", "max", "first", "last"}

func formats() []string {
	return tableio.Formats
}

func (cli *CLI) runWider(cmd *cobra.Command, args []string) error {
	tbl, err := cli.loadInput(args)
	if err != nil {
		return err
	}

	opts, err := cli.pivotOptions()
	if err != nil {
		return err
	}

	wide, err := pivot.Wider(tbl, opts...)
	if err != nil {
		return err
	}
	cli.logger.Info("pivoted", "input_rows", tbl.RowCount(), "output_rows", wide.RowCount(), "output_cols", wide.ColumnCount())

	return cli.writeOutput(wide)
}

func (cli *CLI) runSpec(cmd *cobra.Command, args []string) error {
	tbl, err := cli.loadInput(args)
	if err != nil {
		return err
	}

	spec, err := pivot.BuildSpec(tbl,
		pivot.Cols(cli.list("names-from")...),
		pivot.Cols(cli.list("values-from")...),
		cli.viperInst.GetString("names-prefix"),
		cli.viperInst.GetString("names-sep"),
	)
	if err != nil {
		return err
	}

	output := cli.viperInst.GetString("output")
	if output == "" {
		return pivot.WriteSpecYAML(cli.stdout, spec)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create spec file: %w", err)
	}
	if err := pivot.WriteSpecYAML(f, spec); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (cli *CLI) runTables(cmd *cobra.Command, args []string) error {
	profile, err := cli.profile()
	if err != nil {
		return err
	}
	if profile == "" {
		return errors.New("--profile is required")
	}

	ctx, cancel := createTimeoutContext(cli.viperInst.GetInt("api-timeout"))
	defer cancel()

	tables, err := tableio.ListSharedTables(ctx, profile)
	if err != nil {
		return err
	}
	for _, t := range tables {
		cli.printf("%s\n", t)
	}
	return nil
}

// loadInput reads the input file, or the shared table when --table is set.
func (cli *CLI) loadInput(args []string) (*datatable.Table, error) {
	if name := cli.viperInst.GetString("table"); name != "" {
		if len(args) > 0 {
			return nil, errors.New("pass either an input file or --table, not both")
		}
		return cli.loadSharedTable(name)
	}
	if len(args) == 0 {
		return nil, errNoInput
	}

	cli.logger.Debug("loading input", "path", args[0])
	return tableio.ReadFile(context.Background(), args[0])
}

func (cli *CLI) loadSharedTable(name string) (*datatable.Table, error) {
	profile, err := cli.profile()
	if err != nil {
		return nil, err
	}
	if profile == "" {
		return nil, errors.New("--table requires --profile")
	}
	table, err := tableio.ParseSharedTable(name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := createTimeoutContext(cli.viperInst.GetInt("api-timeout"))
	defer cancel()

	cli.logger.Debug("loading shared table", "table", name)
	return tableio.LoadSharedTable(ctx, profile, table, cli.viperInst.GetString("file-id"))
}

// profile returns the contents of the --profile file, or "" when unset.
func (cli *CLI) profile() (string, error) {
	path := cli.viperInst.GetString("profile")
	if path == "" {
		return "", nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read profile: %w", err)
	}
	if tableio.DetectFileType(path, content) != tableio.FileTypeDeltaSharingProfile {
		return "", fmt.Errorf("%s is not a Delta Sharing profile", path)
	}
	return string(content), nil
}

// pivotOptions translates the configuration into Wider options.
func (cli *CLI) pivotOptions() ([]pivot.Option, error) {
	v := cli.viperInst
	opts := []pivot.Option{
		pivot.WithLogger(cli.logger),
		pivot.WithNamesPrefix(v.GetString("names-prefix")),
		pivot.WithNamesSep(v.GetString("names-sep")),
	}

	if path := v.GetString("spec"); path != "" {
		spec, err := loadSpec(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pivot.WithSpec(spec))
	} else {
		opts = append(opts,
			pivot.WithNamesFrom(pivot.Cols(cli.list("names-from")...)),
			pivot.WithValuesFrom(pivot.Cols(cli.list("values-from")...)),
		)
	}

	idCols := cli.list("id-cols")
	where := v.GetString("id-cols-where")
	switch {
	case len(idCols) > 0 && where != "":
		return nil, errors.New("use either --id-cols or --id-cols-where")
	case len(idCols) > 0:
		opts = append(opts, pivot.WithIDCols(pivot.Cols(idCols...)))
	case where != "":
		sel, err := pivot.ColsWhere(where)
		if err != nil {
			return nil, fmt.Errorf("--id-cols-where: %w", err)
		}
		opts = append(opts, pivot.WithIDCols(sel))
	}

	if v.IsSet("values-fill") {
		opts = append(opts, pivot.WithValuesFill(v.GetString("values-fill")))
	}
	fills, err := assignments(cli.list("values-fill-for"))
	if err != nil {
		return nil, fmt.Errorf("--values-fill-for: %w", err)
	}
	for _, a := range fills {
		opts = append(opts, pivot.WithValuesFillFor(a[0], a[1]))
	}

	if name := v.GetString("values-fn"); name != "" {
		agg, err := aggregatorFor(name)
		if err != nil {
			return nil, fmt.Errorf("--values-fn: %w", err)
		}
		opts = append(opts, pivot.WithValuesFn(agg))
	}
	fns, err := assignments(cli.list("values-fn-for"))
	if err != nil {
		return nil, fmt.Errorf("--values-fn-for: %w", err)
	}
	for _, a := range fns {
		agg, err := aggregatorFor(a[1])
		if err != nil {
			return nil, fmt.Errorf("--values-fn-for %s: %w", a[0], err)
		}
		opts = append(opts, pivot.WithValuesFnFor(a[0], agg))
	}

	return opts, nil
}

// aggregatorFor resolves a built-in aggregator name, or a script file
// given as @path.
func aggregatorFor(name string) (pivot.Aggregator, error) {
	if path, ok := strings.CutPrefix(name, "@"); ok {
		agg, err := script.Load(path)
		if err != nil {
			return nil, err
		}
		return agg, nil
	}
	return pivot.AggregatorByName(name)
}

func loadSpec(path string) (*pivot.Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spec: %w", err)
	}
	defer f.Close()

	spec, err := pivot.LoadSpecYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// list returns a string slice setting, splitting comma separated entries
// as they arrive from environment variables.
func (cli *CLI) list(key string) []string {
	var out []string
	for _, s := range cli.viperInst.GetStringSlice(key) {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// assignments parses column=value pairs.
func assignments(items []string) ([][2]string, error) {
	out := make([][2]string, 0, len(items))
	for _, item := range items {
		col, val, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(col) == "" {
			return nil, fmt.Errorf("%q is not column=value", item)
		}
		out = append(out, [2]string{strings.TrimSpace(col), val})
	}
	return out, nil
}

// writeOutput writes t to --output, or to stdout in --format.
func (cli *CLI) writeOutput(t *datatable.Table) error {
	if output := cli.viperInst.GetString("output"); output != "" {
		cli.logger.Debug("writing output", "path", output, "format", strings.TrimPrefix(filepath.Ext(output), "."))
		return tableio.WriteFile(output, t)
	}
	return tableio.WriteTo(cli.stdout, t, cli.viperInst.GetString("format"))
}
