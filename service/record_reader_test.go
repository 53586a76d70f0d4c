package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/internal/ingest"
)

func writeTestFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRecordReader_CollectRecordFiles(t *testing.T) {
	root := t.TempDir()
	a := writeTestFile(t, filepath.Join(root, "a.json"), "[]")
	b := writeTestFile(t, filepath.Join(root, "nested", "b.json"), "[]")
	writeTestFile(t, filepath.Join(root, "nested", "notes.txt"), "")
	writeTestFile(t, filepath.Join(root, "fixtures", "c.json"), "[]")
	writeTestFile(t, filepath.Join(root, ".hidden", "d.json"), "[]")
	explicit := writeTestFile(t, filepath.Join(t.TempDir(), "records.data"), "[]")

	r := NewRecordReader(zerolog.Nop())
	files, err := r.CollectRecordFiles(
		[]string{root, explicit, a},
		[]string{"**/*.json"},
		[]string{"fixtures/**"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, explicit}, files)
}

func TestRecordReader_CollectErrors(t *testing.T) {
	r := NewRecordReader(zerolog.Nop())

	_, err := r.CollectRecordFiles([]string{filepath.Join(t.TempDir(), "missing")}, nil, nil)
	assert.Equal(t, domain.ErrCodeFileNotFound, domain.ErrorCode(err))

	empty := t.TempDir()
	writeTestFile(t, filepath.Join(empty, "readme.md"), "")
	_, err = r.CollectRecordFiles([]string{empty}, []string{"**/*.json"}, nil)
	assert.Equal(t, domain.ErrCodeInvalidInput, domain.ErrorCode(err))
}

func TestRecordReader_ReadRecords(t *testing.T) {
	dir := t.TempDir()
	one := writeTestFile(t, filepath.Join(dir, "one.json"), `[{"id": "x", "tokens": ["a", "b"]}, {"id": "y", "text": "Hello world"}]`)
	two := writeTestFile(t, filepath.Join(dir, "two.json"), `{"items": [{"id": "x", "tokens": ["c"]}, {"tokens": ["d"]}]}`)

	n := 0
	r := NewRecordReader(zerolog.Nop(), ingest.WithIDGenerator(func() string {
		n++
		return "generated"
	}))
	results, err := r.ReadRecords(context.Background(), []string{one, two})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].OK())
	assert.Equal(t, []string{"hello", "world"}, results[1].Item.Tokens)
	assert.ErrorIs(t, results[2].Err, ingest.ErrDuplicateID)
	assert.Equal(t, two, results[2].Source)
	assert.Equal(t, "generated", results[3].Item.ID)
	assert.Equal(t, 1, n)
}

func TestRecordReader_ReadRecordsErrors(t *testing.T) {
	r := NewRecordReader(zerolog.Nop())

	bad := writeTestFile(t, filepath.Join(t.TempDir(), "bad.json"), `"not records"`)
	_, err := r.ReadRecords(context.Background(), []string{bad})
	assert.Equal(t, domain.ErrCodeParseError, domain.ErrorCode(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.ReadRecords(ctx, []string{bad})
	assert.ErrorIs(t, err, context.Canceled)
}
