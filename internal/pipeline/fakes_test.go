package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/JakeFAU/jobingest/internal/record"
)

type fakeRelational struct {
	mu      sync.Mutex
	err     error
	queries []string
	args    [][]any
}

func (f *fakeRelational) ExecuteWrite(_ context.Context, sql string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	return nil
}

func (f *fakeRelational) EnsureSchema(context.Context) error { return nil }

func (f *fakeRelational) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeDocument struct {
	mu   sync.Mutex
	err  error
	docs []map[string]any
}

func (f *fakeDocument) InsertOne(_ context.Context, doc map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeDocument) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

type brokenKV struct{}

var errKVDown = errors.New("connection refused")

func (brokenKV) SetIfAbsent(context.Context, string) (bool, error) { return false, errKVDown }
func (brokenKV) Exists(context.Context, string) (bool, error)      { return false, errKVDown }
func (brokenKV) Delete(context.Context, string) error              { return errKVDown }

func mustRecord(m map[string]any) record.Record {
	rec, err := record.FromMap(m)
	if err != nil {
		panic(err)
	}
	return rec
}
