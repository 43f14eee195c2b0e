package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobingest/internal/record"
)

func TestBuildInsert(t *testing.T) {
	t.Parallel()

	rec := record.Record{
		"title":       record.String("Engineer"),
		"req_id":      record.String("A1"),
		"latitude":    record.Number(37.5),
		"internal":    record.Bool(false),
		"categories":  record.List(record.String("eng")),
		"update_date": record.Null(),
	}
	query, args, err := BuildInsert("raw_table", JobColumnTypes(), rec)
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO raw_table (categories, internal, latitude, req_id, title, update_date) VALUES ($1, $2, $3, $4, $5, $6)",
		query)
	assert.Equal(t, []any{`["eng"]`, false, 37.5, "A1", "Engineer", nil}, args)
}

func TestBuildInsertRendersScalarsForTextColumns(t *testing.T) {
	t.Parallel()

	rec := record.Record{
		"req_id":          record.Number(1234),
		"postal_code":     record.Number(94105),
		"brand":           record.Bool(true),
		"promotion_value": record.Number(2.5),
		"salary_value":    record.Number(120000),
		"searchable":      record.Bool(true),
		"state":           record.Null(),
	}
	query, args, err := BuildInsert("raw_table", JobColumnTypes(), rec)
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO raw_table (brand, postal_code, promotion_value, req_id, salary_value, searchable, state) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		query)
	assert.Equal(t, []any{"true", "94105", "2.5", "1234", 120000.0, true, nil}, args)
}

func TestBuildInsertRejectsBadIdentifiers(t *testing.T) {
	t.Parallel()

	_, _, err := BuildInsert("raw_table; DROP TABLE x", JobColumnTypes(), record.Record{"a": record.Null()})
	require.Error(t, err)
	_, _, err = BuildInsert("raw_table", JobColumnTypes(), record.Record{"bad col": record.Null()})
	require.Error(t, err)
	_, _, err = BuildInsert("raw_table", JobColumnTypes(), record.Record{})
	require.Error(t, err)
}

func TestNewDualSinkWriterValidation(t *testing.T) {
	t.Parallel()

	_, err := NewDualSinkWriter(nil, &fakeDocument{}, "raw_table")
	require.Error(t, err)
	_, err = NewDualSinkWriter(&fakeRelational{}, &fakeDocument{}, "1table")
	require.Error(t, err)
}

func TestPersistOutcomes(t *testing.T) {
	t.Parallel()

	flat := record.Record{"req_id": record.String("A1"), "tags": record.String(`["go"]`)}
	structured := record.Record{"req_id": record.String("A1"), "tags": record.List(record.String("go"))}
	boom := errors.New("boom")

	t.Run("both commit", func(t *testing.T) {
		t.Parallel()
		rel, doc := &fakeRelational{}, &fakeDocument{}
		w, err := NewDualSinkWriter(rel, doc, "raw_table")
		require.NoError(t, err)

		res, err := w.Persist(context.Background(), flat, structured)
		require.NoError(t, err)
		assert.True(t, res.Complete())
		require.Len(t, doc.docs, 1)
		assert.Equal(t, []any{"go"}, doc.docs[0]["tags"])
	})

	t.Run("relational failure skips document", func(t *testing.T) {
		t.Parallel()
		rel, doc := &fakeRelational{err: boom}, &fakeDocument{}
		w, err := NewDualSinkWriter(rel, doc, "raw_table")
		require.NoError(t, err)

		res, err := w.Persist(context.Background(), flat, structured)
		require.ErrorIs(t, err, ErrPersistRelational)
		require.ErrorIs(t, err, boom)
		assert.Equal(t, PersistResult{Relational: SinkFailed, Document: SinkSkipped}, res)
		assert.Zero(t, doc.writes())
	})

	t.Run("document failure keeps relational commit", func(t *testing.T) {
		t.Parallel()
		rel, doc := &fakeRelational{}, &fakeDocument{err: boom}
		w, err := NewDualSinkWriter(rel, doc, "raw_table")
		require.NoError(t, err)

		res, err := w.Persist(context.Background(), flat, structured)
		require.ErrorIs(t, err, ErrPersistDocument)
		assert.Equal(t, PersistResult{Relational: SinkCommitted, Document: SinkFailed}, res)
		assert.Equal(t, 1, rel.writes())
		assert.False(t, res.Complete())
	})
}
