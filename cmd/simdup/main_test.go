package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/internal/config"
	"github.com/ludo-technologies/simdup/internal/lsh"
	"github.com/ludo-technologies/simdup/internal/version"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

const records = `[
  {"id": "tv-1", "text": "Samsung 55 inch 4K UHD Smart LED TV UN55TU7000 black", "group": "un55tu7000"},
  {"id": "tv-2", "text": "Samsung 55 inch 4K UHD Smart LED TV UN55TU7000", "group": "un55tu7000"},
  {"id": "tv-3", "text": "LG OLED evo C3 65 webOS television", "group": "oled65c3"},
  {"id": "tv-4", "tokens": []}
]`

func TestDedupeCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.json"), []byte(records), 0o644))

	stdout, _, err := execute(t, "dedupe", "--bands", "32", "--rows", "4", "--json", ".")
	require.NoError(t, err)

	var resp domain.DedupeResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Pairs, 1)
	assert.Equal(t, "tv-1", resp.Pairs[0].A)
	assert.Equal(t, "tv-2", resp.Pairs[0].B)
	assert.True(t, resp.Pairs[0].Duplicate)
	assert.Equal(t, lsh.Standard(32, 4), resp.Statistics.Params)
	assert.Equal(t, domain.ParamsFromFlags, resp.Statistics.ParamsSource)
	assert.Equal(t, 1, resp.Statistics.EmptyItems)
	require.NotNil(t, resp.Evaluation)
	assert.Equal(t, 100.0, resp.Evaluation.PairCompleteness)
}

func TestDedupeCommand_OutputFileAndMetrics(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.json"), []byte(records), 0o644))

	_, stderr, err := execute(t, "dedupe", "--no-cache", "--threshold", "0.6",
		"--csv", "--output", "out/pairs.csv", "--metrics", "out/run.prom", ".")
	require.NoError(t, err)
	assert.Contains(t, stderr, "CSV report generated")

	data, err := os.ReadFile(filepath.Join(dir, "out", "pairs.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "a,b,similarity,duplicate\n"))

	metrics, err := os.ReadFile(filepath.Join(dir, "out", "run.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "simdup_items_total 4")
	assert.Contains(t, string(metrics), "simdup_param_cache_misses_total 1")
	assert.NoDirExists(t, filepath.Join(dir, ".simdup"))
}

func TestDedupeCommand_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := execute(t, "dedupe", "--bands", "10", "--rows", "10", ".")
	assert.Equal(t, domain.ErrCodeParamsMismatch, domain.ErrorCode(err))

	_, _, err = execute(t, "dedupe", "missing-dir")
	assert.Equal(t, domain.ErrCodeFileNotFound, domain.ErrorCode(err))

	_, _, err = execute(t, "dedupe", "--json", "--yaml", ".")
	assert.Equal(t, domain.ErrCodeInvalidInput, domain.ErrorCode(err))
}

func TestParamsOptimizeCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	stdout, _, err := execute(t, "params", "optimize", "--threshold", "0.8", "--num-perm", "64", "--json", "--cache", "params.json")
	require.NoError(t, err)

	var resp domain.ParamsResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.False(t, resp.Cached)
	assert.Equal(t, 64, resp.Params.Length())
	assert.FileExists(t, filepath.Join(dir, "params.json"))

	stdout, _, err = execute(t, "params", "optimize", "--threshold", "0.8", "--num-perm", "64", "--json", "--cache", "params.json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.True(t, resp.Cached)

	stdout, _, err = execute(t, "params", "report", "--cache", "params.json", "--csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 2)
}

func TestParamsPrecomputeCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	stdout, _, err := execute(t, "params", "precompute", "--thresholds", "0.5,0.8", "--num-perms", "32", "--mode", "standard", "--json", "--cache", "p.json")
	require.NoError(t, err)

	var resp domain.PrecomputeResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, 2, resp.Computed)
	assert.Equal(t, 2, resp.Records)

	_, _, err = execute(t, "params", "precompute", "--mode", "sideways")
	assert.Equal(t, domain.ErrCodeInvalidInput, domain.ErrorCode(err))
}

func TestParamsThresholdCommand(t *testing.T) {
	stdout, _, err := execute(t, "params", "threshold", "--bands", "20", "--rows", "5")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Params: b=20 r=5")
	assert.Contains(t, stdout, "Steepest point: 0.5")
	assert.Contains(t, stdout, "Approximation: 0.5493")
}

func TestParseThresholds(t *testing.T) {
	got, err := parseThresholds("0.05:0.95:0.05")
	require.NoError(t, err)
	require.Len(t, got, 19)
	assert.Equal(t, 0.05, got[0])
	assert.Equal(t, 0.5, got[9])
	assert.Equal(t, 0.95, got[18])

	got, err = parseThresholds("0.5, 0.123")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.12}, got)

	for _, bad := range []string{"", "0.1:0.2", "0.9:0.1:0.1", "x"} {
		_, err := parseThresholds(bad)
		assert.Error(t, err, bad)
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	stdout, _, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration file created: .simdup.toml")

	cfg, err := config.LoadConfig(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	_, _, err = execute(t, "init")
	assert.Error(t, err)
	_, _, err = execute(t, "init", "--force")
	assert.NoError(t, err)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Short()+"\n", stdout)

	stdout, _, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "simdup")
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, domain.NewParamsMismatchError("bands (10) x rows (10) must equal num_perm (128)", nil), false)
	assert.Contains(t, buf.String(), "Configuration file or settings error")
	assert.Contains(t, buf.String(), "bands x rows must equal num_perm")

	buf.Reset()
	reportError(&buf, errors.New("strange"), false)
	assert.NotContains(t, buf.String(), "Suggestions")

	assert.True(t, verboseFromArgs([]string{"dedupe", "-v", "."}))
	assert.False(t, verboseFromArgs([]string{"dedupe", "."}))
}
