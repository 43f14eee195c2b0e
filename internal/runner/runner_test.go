package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/pipeline"
	memorypublisher "github.com/JakeFAU/jobingest/internal/publisher/memory"
	"github.com/JakeFAU/jobingest/internal/record"
	"github.com/JakeFAU/jobingest/internal/store/memory"
)

type fakeSource struct {
	feeds map[string][]record.Record
}

func (s fakeSource) Records(_ context.Context, location string) ([]record.Record, error) {
	recs, ok := s.feeds[location]
	if !ok {
		return nil, fmt.Errorf("open %s: not found", location)
	}
	return recs, nil
}

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakeIDGen struct{ id string }

func (g fakeIDGen) NewID() (string, error) { return g.id, nil }

type stubProcessor struct {
	res pipeline.PersistResult
	err error
}

func (p stubProcessor) Process(context.Context, record.Record) (pipeline.PersistResult, error) {
	return p.res, p.err
}

func job(reqID, title string) record.Record {
	return record.Record{
		jobs.FieldReqID: record.String(reqID),
		jobs.FieldTitle: record.String(title),
	}
}

func newPipeline(t *testing.T) (*pipeline.Pipeline, *memory.Relational, *memory.Document) {
	t.Helper()
	rel := memory.NewRelational("raw_table")
	require.NoError(t, rel.EnsureSchema(context.Background()))
	doc := memory.NewDocument()
	w, err := pipeline.NewDualSinkWriter(rel, doc, "raw_table")
	require.NoError(t, err)
	p := pipeline.New(pipeline.NewGate(memory.NewKV()), w, pipeline.Options{
		Required: jobs.RequiredFields(),
		Types:    pipeline.JobFieldTypes(),
	})
	return p, rel, doc
}

func TestRunProcessesAllLocations(t *testing.T) {
	t.Parallel()

	proc, rel, doc := newPipeline(t)
	pub := memorypublisher.New(nil)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	r := New(proc, pub, fakeClock{now: now}, fakeIDGen{id: "run-1"}, Config{Workers: 4, QueueDepth: 2}, zap.NewNop())

	src := fakeSource{feeds: map[string][]record.Record{
		"s01.json": {job("A1", "Engineer"), job("A2", "Designer"), job("A3", "")},
		"s02.json": {job("A1", "Engineer"), job("A4", "Analyst"), job("A5", "Manager"), job("A6", "Writer")},
	}}

	summary, err := r.Run(context.Background(), src, []string{"s01.json", "missing.json", "s02.json"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, now, summary.Started)
	assert.Equal(t, 7, summary.Seen)
	assert.Equal(t, 5, summary.Persisted)
	assert.Equal(t, map[string]int{"duplicate": 1, "missing_field": 1}, summary.Drops)
	assert.Equal(t, 2, summary.Dropped())
	assert.Equal(t, 1, summary.FeedErrors)

	assert.Len(t, rel.Statements(), 5)
	docs, err := doc.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 5)

	msgs := pub.Messages()
	require.Len(t, msgs, 6)
	persisted := 0
	for _, m := range msgs[:5] {
		require.Equal(t, EventRecordPersisted, m.Event)
		n, ok := m.Payload.(Notification)
		require.True(t, ok)
		assert.Equal(t, "run-1", n.RunID)
		persisted++
	}
	assert.Equal(t, 5, persisted)
	assert.Equal(t, EventRunFinished, msgs[5].Event)
	final, ok := msgs[5].Payload.(Summary)
	require.True(t, ok)
	assert.Equal(t, 5, final.Persisted)
}

func TestRunNotificationRendersNumericReqID(t *testing.T) {
	t.Parallel()

	proc, rel, _ := newPipeline(t)
	pub := memorypublisher.New(nil)
	r := New(proc, pub, fakeClock{now: time.Now()}, fakeIDGen{id: "run-3"}, Config{Workers: 1}, nil)

	rec := record.Record{
		jobs.FieldReqID: record.Number(42),
		jobs.FieldTitle: record.String("Engineer"),
	}
	src := fakeSource{feeds: map[string][]record.Record{"s01.json": {rec}}}
	summary, err := r.Run(context.Background(), src, []string{"s01.json"})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Persisted)

	stmts := rel.Statements()
	require.Len(t, stmts, 1)
	assert.Equal(t, []any{"42", "Engineer"}, stmts[0].Args)

	persisted := pub.Events(EventRecordPersisted)
	require.Len(t, persisted, 1)
	n, ok := persisted[0].Payload.(Notification)
	require.True(t, ok)
	assert.Equal(t, "42", n.ReqID)
}

func TestRunPublishFailureIsNotADrop(t *testing.T) {
	t.Parallel()

	proc, _, _ := newPipeline(t)
	pub := memorypublisher.New(nil)
	pub.FailWith(errors.New("topic not found"))
	r := New(proc, pub, fakeClock{now: time.Now()}, fakeIDGen{id: "run-2"}, Config{Workers: 2}, nil)

	src := fakeSource{feeds: map[string][]record.Record{"s01.json": {job("B1", "Engineer")}}}
	summary, err := r.Run(context.Background(), src, []string{"s01.json"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Persisted)
	assert.Empty(t, summary.Drops)
}

func TestRunCountsPartialWrites(t *testing.T) {
	t.Parallel()

	proc := stubProcessor{
		res: pipeline.PersistResult{Relational: pipeline.SinkCommitted, Document: pipeline.SinkFailed},
		err: &pipeline.DropError{ReqID: "C1", Kind: pipeline.ErrPersistDocument, Err: errors.New("not primary")},
	}
	r := New(proc, nil, fakeClock{now: time.Now()}, fakeIDGen{id: "run-3"}, Config{Workers: 1}, nil)

	src := fakeSource{feeds: map[string][]record.Record{"s01.json": {job("C1", "Engineer"), job("C2", "Engineer")}}}
	summary, err := r.Run(context.Background(), src, []string{"s01.json"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.PartialWrites)
	assert.Equal(t, map[string]int{"persist_document": 2}, summary.Drops)
	assert.Zero(t, summary.Persisted)
}

func TestRunStopsQueueingWhenCanceled(t *testing.T) {
	t.Parallel()

	proc, rel, _ := newPipeline(t)
	r := New(proc, nil, fakeClock{now: time.Now()}, fakeIDGen{id: "run-4"}, Config{Workers: 1, QueueDepth: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := fakeSource{feeds: map[string][]record.Record{"s01.json": {job("D1", "Engineer")}}}
	summary, err := r.Run(ctx, src, []string{"s01.json"})
	require.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, summary.Seen, 1)
	assert.LessOrEqual(t, len(rel.Statements()), 1)
}
