package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobingest/internal/store/memory"
)

type failingRows struct{ err error }

func (f failingRows) QueryAll(context.Context) ([]string, [][]any, error) { return nil, nil, f.err }

func TestCell(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"Engineer", "Engineer"},
		{37.5, "37.5"},
		{int32(7), "7"},
		{true, "true"},
		{ts, "2024-01-01T10:00:00+00:00"},
		{[]any{"eng", "remote"}, `["eng", "remote"]`},
		{map[string]any{"b": 1.0, "a": "x"}, `{"a": "x", "b": 1}`},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Cell(tc.in))
	}
}

func TestWriteDocumentsUnionsKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteDocuments(&buf, []map[string]any{
		{"_id": "66a", "title": "Engineer", "categories": []any{"eng"}},
		{"_id": "66b", "req_id": "A2"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"_id,categories,req_id,title\n66a,\"[\"\"eng\"\"]\",,Engineer\n66b,,A2,\n",
		buf.String())
}

func TestRunWritesBothFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rel := memory.NewRelational("raw_table")
	require.NoError(t, rel.EnsureSchema(ctx))
	require.NoError(t, rel.ExecuteWrite(ctx, "INSERT INTO raw_table (req_id, title) VALUES ($1, $2)", "A1", "Engineer"))
	doc := memory.NewDocument()
	require.NoError(t, doc.InsertOne(ctx, map[string]any{"req_id": "A1", "tags": []any{"go"}}))

	dir := filepath.Join(t.TempDir(), "out")
	res, err := Run(ctx, rel, doc, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	assert.Equal(t, 1, res.Documents)
	require.Len(t, res.Files, 2)

	pg, err := os.ReadFile(filepath.Join(dir, RelationalFile))
	require.NoError(t, err)
	assert.Equal(t, "id,req_id,title\n1,A1,Engineer\n", string(pg))

	mg, err := os.ReadFile(filepath.Join(dir, DocumentFile))
	require.NoError(t, err)
	assert.Equal(t, "req_id,tags\nA1,\"[\"\"go\"\"]\"\n", string(mg))
}

func TestRunContinuesAfterRelationalFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("relation does not exist")
	doc := memory.NewDocument()
	require.NoError(t, doc.InsertOne(ctx, map[string]any{"req_id": "A1"}))

	dir := t.TempDir()
	res, err := Run(ctx, failingRows{err: boom}, doc, dir)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, res.Documents)
	assert.FileExists(t, filepath.Join(dir, DocumentFile))
	assert.NoFileExists(t, filepath.Join(dir, RelationalFile))
}
