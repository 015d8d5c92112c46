package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/pivotwider/pivot"
)

const longCSV = "id,name,value\n1,a,10\n1,b,20\n2,a,30\n"

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := NewCLI(&stdout, &stderr).Execute(args)
	return stdout.String(), stderr.String(), err
}

func TestPivotCSVToStdout(t *testing.T) {
	in := writeTemp(t, "long.csv", longCSV)

	out, _, err := run(t, in, "--values-fill", "0")
	require.NoError(t, err)
	assert.Equal(t, "id,a,b\n1,10,20\n2,30,0\n", out)
}

func TestPivotWithoutFillLeavesEmptyCells(t *testing.T) {
	in := writeTemp(t, "long.csv", longCSV)

	out, _, err := run(t, in)
	require.NoError(t, err)
	assert.Equal(t, "id,a,b\n1,10,20\n2,30,\n", out)
}

func TestPivotAggregates(t *testing.T) {
	in := writeTemp(t, "dup.csv", "id,name,value\n1,a,2\n1,a,4\n1,a,6\n")

	out, _, err := run(t, in, "--values-fn", "mean")
	require.NoError(t, err)
	assert.Equal(t, "id,a\n1,4\n", out)

	out, _, err = run(t, in, "--values-fn-for", "value=length")
	require.NoError(t, err)
	assert.Equal(t, "id,a\n1,3\n", out)
}

func TestPivotCollisionsWarn(t *testing.T) {
	in := writeTemp(t, "dup.csv", "id,name,value\n1,a,2\n1,a,4\n")

	out, stderr, err := run(t, in)
	require.NoError(t, err)
	assert.Equal(t, "id,a\n1,\"[2, 4]\"\n", out)
	assert.Contains(t, stderr, "not uniquely identified")
}

func TestPivotScriptAggregator(t *testing.T) {
	in := writeTemp(t, "dup.csv", "id,name,value\n1,a,3\n1,a,8\n2,a,5\n")
	src := writeTemp(t, "range.go", `
func Aggregate(values []interface{}) interface{} {
	lo, hi := values[0].(int64), values[0].(int64)
	for _, v := range values {
		if x := v.(int64); x < lo {
			lo = x
		} else if x > hi {
			hi = x
		}
	}
	return hi - lo
}
`)

	out, _, err := run(t, in, "--values-fn", "@"+src)
	require.NoError(t, err)
	assert.Equal(t, "id,a\n1,5\n2,0\n", out)
}

func TestPivotMultipleValueColumns(t *testing.T) {
	in := writeTemp(t, "rent.csv", "GEOID,variable,estimate,moe\n01,income,24476,136\n01,rent,747,3\n")

	out, _, err := run(t, in, "--names-from", "variable", "--values-from", "estimate,moe", "-f", "json")
	require.NoError(t, err)
	assert.Equal(t,
		"[\n  {\"GEOID\": 1, \"estimate_income\": 24476, \"estimate_rent\": 747, \"moe_income\": 136, \"moe_rent\": 3}\n]\n",
		out)
}

func TestSpecRoundTrip(t *testing.T) {
	in := writeTemp(t, "long.csv", longCSV)
	specPath := filepath.Join(t.TempDir(), "spec.yaml")

	_, _, err := run(t, "spec", in, "-o", specPath)
	require.NoError(t, err)

	f, err := os.Open(specPath)
	require.NoError(t, err)
	spec, err := pivot.LoadSpecYAML(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, spec.Names())

	out, _, err := run(t, in, "--spec", specPath)
	require.NoError(t, err)
	assert.Equal(t, "id,a,b\n1,10,20\n2,30,\n", out)
}

func TestSpecToStdout(t *testing.T) {
	in := writeTemp(t, "long.csv", longCSV)

	out, _, err := run(t, "spec", in, "--names-prefix", "k_")
	require.NoError(t, err)
	assert.Contains(t, out, "key_columns")
	assert.Contains(t, out, "k_a")
	assert.Contains(t, out, "k_b")
}

func TestWriteOutputFile(t *testing.T) {
	in := writeTemp(t, "long.csv", longCSV)
	outPath := filepath.Join(t.TempDir(), "wide.tsv")

	stdout, _, err := run(t, in, "-o", outPath, "--values-fill", "0")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "id\ta\tb\n1\t10\t20\n2\t30\t0\n", string(content))
}

func TestEnvironmentConfig(t *testing.T) {
	in := writeTemp(t, "long.csv", longCSV)
	t.Setenv("PIVOTWIDER_VALUES_FILL", "-1")
	t.Setenv("PIVOTWIDER_NAMES_PREFIX", "k_")

	out, _, err := run(t, in)
	require.NoError(t, err)
	assert.Equal(t, "id,k_a,k_b\n1,10,20\n2,30,-1\n", out)

	// flags win over the environment
	out, _, err = run(t, in, "--names-prefix", "")
	require.NoError(t, err)
	assert.Equal(t, "id,a,b\n1,10,20\n2,30,-1\n", out)
}

func TestConfigFile(t *testing.T) {
	in := writeTemp(t, "long.csv", "id,key,v\n1,a,10\n2,b,20\n")
	cfg := writeTemp(t, "pivotwider.yaml", "names-from: [key]\nvalues-from: [v]\nformat: tsv\n")
	t.Setenv("PIVOTWIDER_CONFIG", cfg)

	out, _, err := run(t, in)
	require.NoError(t, err)
	assert.Equal(t, "id\ta\tb\n1\t10\t\n2\t\t20\n", out)
}

func TestLogFile(t *testing.T) {
	in := writeTemp(t, "long.csv", longCSV)
	logPath := filepath.Join(t.TempDir(), "pivot.log")

	_, stderr, err := run(t, in, "--log-level", "debug", "--log-file", logPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "resolved rows")

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"pivoted"`)
}

func TestErrors(t *testing.T) {
	in := writeTemp(t, "long.csv", longCSV)

	_, _, err := run(t)
	assert.ErrorIs(t, err, errNoInput)

	_, _, err = run(t, in, "--values-fn", "mode")
	assert.ErrorContains(t, err, "unknown aggregator")

	_, _, err = run(t, in, "--values-fill-for", "value")
	assert.ErrorContains(t, err, "column=value")

	_, _, err = run(t, in, "--values-fill-for", "nope=1")
	assert.ErrorIs(t, err, pivot.ErrUnknownValueColumn)

	_, _, err = run(t, in, "--id-cols", "id", "--id-cols-where", "type = Int")
	assert.Error(t, err)

	_, _, err = run(t, "--table", "a.b.c")
	assert.ErrorContains(t, err, "--profile")

	_, _, err = run(t, "tables")
	assert.ErrorContains(t, err, "--profile")

	_, _, err = run(t, in, "-f", "xlsx")
	assert.Error(t, err)
}

func TestAssignments(t *testing.T) {
	got, err := assignments([]string{"a=1", " b = x=y"})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"a", "1"}, {"b", " x=y"}}, got)

	_, err = assignments([]string{"=1"})
	assert.Error(t, err)
}

func TestCreateTimeoutContext(t *testing.T) {
	ctx, cancel := createTimeoutContext(0)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.True(t, ok)
}
