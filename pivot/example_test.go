package pivot_test

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/magpierre/pivotwider/datatable"
	"github.com/magpierre/pivotwider/pivot"
)

func printTable(tbl *datatable.Table) {
	fmt.Println(strings.Join(tbl.ColumnNames(), "\t"))
	for r := 0; r < tbl.RowCount(); r++ {
		row, _ := tbl.Row(r)
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = v.String()
		}
		fmt.Println(strings.Join(parts, "\t"))
	}
}

func ExampleWider() {
	long, _ := datatable.NewTableFromRows([]string{"id", "name", "value"},
		[]interface{}{1, "a", 10},
		[]interface{}{1, "b", 20},
		[]interface{}{2, "a", 30},
	)

	wide, err := pivot.Wider(long, pivot.WithValuesFill(0))
	if err != nil {
		fmt.Println(err)
		return
	}
	printTable(wide)
	// Output:
	// id	a	b
	// 1	10	20
	// 2	30	0
}

func ExampleWider_aggregate() {
	long, _ := datatable.NewTableFromRows([]string{"station", "metric", "reading"},
		[]interface{}{"north", "temp", 2.0},
		[]interface{}{"north", "temp", 4.0},
		[]interface{}{"north", "temp", 6.0},
		[]interface{}{"south", "temp", 5.0},
	)

	wide, _ := pivot.Wider(long,
		pivot.WithNamesFrom(pivot.Cols("metric")),
		pivot.WithValuesFrom(pivot.Cols("reading")),
		pivot.WithNamesPrefix("mean_"),
		pivot.WithValuesFn(pivot.Mean),
	)
	printTable(wide)
	// Output:
	// station	mean_temp
	// north	4
	// south	5
}

func ExampleWider_collisions() {
	long, _ := datatable.NewTableFromRows([]string{"id", "name", "value"},
		[]interface{}{1, "a", 2},
		[]interface{}{1, "a", 4},
	)

	wide, _ := pivot.Wider(long,
		pivot.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))),
		pivot.WithWarningHandler(func(w pivot.Warning) {
			fmt.Println(w.Code)
		}),
	)
	printTable(wide)
	// Output:
	// ambiguous-cells
	// id	a
	// 1	[2, 4]
}

func ExampleBuildSpec() {
	long, _ := datatable.NewTableFromRows([]string{"id", "variable", "estimate", "moe"},
		[]interface{}{1, "x", 1.5, 0.1},
		[]interface{}{1, "y", 2.5, 0.2},
	)

	spec, _ := pivot.BuildSpec(long, pivot.Cols("variable"), pivot.ColsOfType(datatable.TypeFloat), "", "_")
	for _, e := range spec.Entries {
		fmt.Println(e.Name, e.Value, e.Key[0])
	}
	// Output:
	// estimate_x estimate x
	// estimate_y estimate y
	// moe_x moe x
	// moe_y moe y
}

func ExampleWriteSpecYAML() {
	long, _ := datatable.NewTableFromRows([]string{"id", "name", "value"},
		[]interface{}{1, "a", 10},
		[]interface{}{1, "b", 20},
	)

	spec, _ := pivot.BuildSpec(long, pivot.Cols("name"), pivot.Cols("value"), "", "_")
	_ = pivot.WriteSpecYAML(os.Stdout, spec)
	// Output:
	// key_columns:
	//   - name: name
	//     type: String
	// columns:
	//   - name: a
	//     value: value
	//     key: [a]
	//   - name: b
	//     value: value
	//     key: [b]
}
