package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/internal/evaluation"
	"github.com/ludo-technologies/simdup/internal/lsh"
	"github.com/ludo-technologies/simdup/internal/optimizer"
)

func sampleDedupeResponse() *domain.DedupeResponse {
	return &domain.DedupeResponse{
		Pairs: []domain.CandidatePair{
			{A: "a", B: "b", Similarity: 0.875, Duplicate: true},
			{A: "c", B: "d", Similarity: 0.5},
		},
		Failures: []domain.ItemFailure{{Source: "x.json", Index: 3, Error: "malformed record"}},
		Statistics: &domain.DedupeStatistics{
			Files: 1, Records: 1200, Items: 1199, Failures: 1,
			SketchType: domain.SketchMinHash, NumPerm: 128,
			Params: lsh.Standard(32, 4), ParamsSource: domain.ParamsFromCache,
			CandidatePairs: 2, ReportedPairs: 2,
		},
		Evaluation: &evaluation.Report{Groups: 1, DuplicatePairs: 1, DuplicatesFound: 1, PairQuality: 50, PairCompleteness: 100},
		Duration:   12,
	}
}

func TestDedupeFormatter_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDedupeFormatter().Write(sampleDedupeResponse(), domain.OutputFormatText, &buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Near-Duplicate Candidates\n"))
	assert.Contains(t, out, "SUMMARY")
	assert.Contains(t, out, "Records: 1,200")
	assert.Contains(t, out, "b=32 r=4 (cache)")
	assert.Contains(t, out, "EVALUATION")
	assert.Contains(t, out, "Pair completeness: 100.0%")
	assert.Contains(t, out, "0.875  a  b  [duplicate]")
	assert.Contains(t, out, "0.500  c  d\n")
	assert.Contains(t, out, "x.json#3: malformed record")
}

func TestDedupeFormatter_EmptyText(t *testing.T) {
	var buf bytes.Buffer
	resp := &domain.DedupeResponse{Statistics: &domain.DedupeStatistics{}}
	require.NoError(t, NewDedupeFormatter().Write(resp, "", &buf))
	assert.Contains(t, buf.String(), "No candidate pairs.")
	assert.NotContains(t, buf.String(), "EVALUATION")
	assert.NotContains(t, buf.String(), "FAILURES")
}

func TestDedupeFormatter_Structured(t *testing.T) {
	f := NewDedupeFormatter()

	var js bytes.Buffer
	require.NoError(t, f.Write(sampleDedupeResponse(), domain.OutputFormatJSON, &js))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Contains(t, decoded, "pairs")
	stats := decoded["statistics"].(map[string]interface{})
	assert.Equal(t, []interface{}{[]interface{}{32.0, 1.0}, []interface{}{4.0, 1.0}}, stats["params"])

	var ym bytes.Buffer
	require.NoError(t, f.Write(sampleDedupeResponse(), domain.OutputFormatYAML, &ym))
	var ydecoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &ydecoded))
	assert.Len(t, ydecoded["pairs"], 2)

	var cs bytes.Buffer
	require.NoError(t, f.Write(sampleDedupeResponse(), domain.OutputFormatCSV, &cs))
	rows, err := csv.NewReader(&cs).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"a", "b", "similarity", "duplicate"},
		{"a", "b", "0.875000", "true"},
		{"c", "d", "0.500000", "false"},
	}, rows)

	err = f.Write(sampleDedupeResponse(), domain.OutputFormat("html"), &bytes.Buffer{})
	assert.Equal(t, domain.ErrCodeUnsupportedFormat, domain.ErrorCode(err))
}

func TestParamsFormatter_WriteParams(t *testing.T) {
	resp := &domain.ParamsResponse{
		Threshold: 0.5, NumPerm: 128,
		Params: lsh.Standard(32, 4), Error: 0.0123, FP: 0.01, FN: 0.0146,
		EffectiveThreshold: lsh.Standard(32, 4).Threshold(),
		Enumerated: 1500, Scored: 12,
	}
	f := NewParamsFormatter()

	var text bytes.Buffer
	require.NoError(t, f.WriteParams(resp, domain.OutputFormatText, &text))
	assert.Contains(t, text.String(), "Params: b=32 r=4")
	assert.Contains(t, text.String(), "Source: search")
	assert.Contains(t, text.String(), "1,500 enumerated, 12 scored")

	var cs bytes.Buffer
	require.NoError(t, f.WriteParams(resp, domain.OutputFormatCSV, &cs))
	rows, err := csv.NewReader(&cs).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"0.5", "128", "false", "32", "4", "1", "1", "0.0123", "0.01", "0.0146", "false"}, rows[1])
}

func TestParamsFormatter_WriteReport(t *testing.T) {
	change := 25.0
	resp := &domain.ReportResponse{
		CachePath: "params.json",
		Records: []optimizer.Annotated{
			{Record: optimizer.Record{Threshold: 0.5, NumPerm: 128, Params: lsh.Standard(32, 4)}, B1: 32, R1: 4, B2: 1, R2: 1, WeightedError: 0.02},
			{Record: optimizer.Record{Threshold: 0.5, NumPerm: 128, Amplified: true, Params: lsh.Amplified(4, 4, 2, 4)}, B1: 4, R1: 4, B2: 2, R2: 4, WeightedError: 0.016, PercentageChange: &change},
		},
	}
	f := NewParamsFormatter()

	var text bytes.Buffer
	require.NoError(t, f.WriteReport(resp, domain.OutputFormatText, &text))
	assert.Contains(t, text.String(), "b1=4 r1=4 b2=2 r2=4")
	assert.Contains(t, text.String(), "25.0%")

	var cs bytes.Buffer
	require.NoError(t, f.WriteReport(resp, domain.OutputFormatCSV, &cs))
	rows, err := csv.NewReader(&cs).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "", rows[1][10])
	assert.Equal(t, "25", rows[2][10])

	var empty bytes.Buffer
	require.NoError(t, f.WriteReport(&domain.ReportResponse{}, domain.OutputFormatText, &empty))
	assert.Contains(t, empty.String(), "No cached parameters.")
}

func TestOutputFormatResolver(t *testing.T) {
	r := NewOutputFormatResolver()

	format, ext, err := r.Determine(false, false, false, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutputFormatText, format)
	assert.Equal(t, "txt", ext)

	format, ext, err = r.Determine(false, true, false, domain.OutputFormatJSON)
	require.NoError(t, err)
	assert.Equal(t, domain.OutputFormatCSV, format)
	assert.Equal(t, "csv", ext)

	_, _, err = r.Determine(true, false, true, "")
	assert.Error(t, err)
}

func TestFileOutputWriter(t *testing.T) {
	var status bytes.Buffer
	w := NewFileOutputWriter(&status)

	var direct bytes.Buffer
	require.NoError(t, w.Write(&direct, "", domain.OutputFormatText, func(out io.Writer) error {
		_, err := out.Write([]byte("hello"))
		return err
	}))
	assert.Equal(t, "hello", direct.String())
	assert.Empty(t, status.String())

	path := filepath.Join(t.TempDir(), "reports", "out.json")
	require.NoError(t, w.Write(nil, path, domain.OutputFormatJSON, func(out io.Writer) error {
		return WriteJSON(out, map[string]int{"n": 1})
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n": 1}`, string(data))
	assert.Contains(t, status.String(), "JSON report generated:")
}

func TestErrorCategorizer(t *testing.T) {
	ec := NewErrorCategorizer()

	assert.Nil(t, ec.Categorize(nil))
	assert.Equal(t, domain.ErrorCategoryConfig, ec.Categorize(domain.NewParamsMismatchError("bad", nil)).Category)
	assert.Equal(t, domain.ErrorCategoryInput, ec.Categorize(domain.NewFileNotFoundError("x", nil)).Category)
	assert.Equal(t, domain.ErrorCategoryProcessing, ec.Categorize(domain.NewIncomparableSignatureError("x", nil)).Category)
	assert.Equal(t, domain.ErrorCategoryTimeout, ec.Categorize(errors.New("context deadline exceeded")).Category)
	assert.Equal(t, domain.ErrorCategoryUnknown, ec.Categorize(errors.New("strange")).Category)

	assert.NotEmpty(t, ec.GetRecoverySuggestions(domain.ErrorCategoryConfig))
}
