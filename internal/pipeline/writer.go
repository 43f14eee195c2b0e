package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/record"
)

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ColumnTypes maps column names to their Postgres types.
type ColumnTypes map[string]string

// JobColumnTypes returns the column types of the jobs table.
func JobColumnTypes() ColumnTypes {
	return ColumnTypes(jobs.ColumnTypes())
}

// SinkOutcome is the result of a single sink write.
type SinkOutcome string

// Sink outcomes.
const (
	SinkSkipped   SinkOutcome = "skipped"
	SinkCommitted SinkOutcome = "committed"
	SinkFailed    SinkOutcome = "failed"
)

// PersistResult reports each sink independently. There is no coordinator
// between the two stores, so a document failure can follow a relational commit.
type PersistResult struct {
	Relational SinkOutcome
	Document   SinkOutcome
}

// Complete reports whether both sinks committed.
func (r PersistResult) Complete() bool {
	return r.Relational == SinkCommitted && r.Document == SinkCommitted
}

// DualSinkWriter persists a record into the relational store and then into the
// document store.
type DualSinkWriter struct {
	relational RelationalStore
	document   DocumentStore
	table      string
	columns    ColumnTypes
}

// NewDualSinkWriter builds a writer that inserts into table.
func NewDualSinkWriter(relational RelationalStore, document DocumentStore, table string) (*DualSinkWriter, error) {
	if relational == nil || document == nil {
		return nil, fmt.Errorf("relational and document stores are required")
	}
	if !validIdentifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &DualSinkWriter{
		relational: relational,
		document:   document,
		table:      table,
		columns:    JobColumnTypes(),
	}, nil
}

// Persist inserts flat as one relational row, then structured as one document.
// A relational failure skips the document insert. A document failure leaves the
// committed relational row in place.
func (w *DualSinkWriter) Persist(ctx context.Context, flat, structured record.Record) (PersistResult, error) {
	result := PersistResult{Relational: SinkSkipped, Document: SinkSkipped}
	reqID := Identity(flat)

	query, args, err := BuildInsert(w.table, w.columns, flat)
	if err != nil {
		result.Relational = SinkFailed
		return result, &DropError{ReqID: reqID, Kind: ErrPersistRelational, Err: err}
	}
	if err := w.relational.ExecuteWrite(ctx, query, args...); err != nil {
		result.Relational = SinkFailed
		return result, &DropError{ReqID: reqID, Kind: ErrPersistRelational, Err: err}
	}
	result.Relational = SinkCommitted

	if err := w.document.InsertOne(ctx, structured.Native()); err != nil {
		result.Document = SinkFailed
		return result, &DropError{ReqID: reqID, Kind: ErrPersistDocument, Err: err}
	}
	result.Document = SinkCommitted
	return result, nil
}

// BuildInsert renders a parameterized INSERT naming every field of rec in
// ascending column order. Scalars bound to TEXT columns are rendered as text,
// since pgx will not encode a number or bool into a text parameter.
func BuildInsert(table string, types ColumnTypes, rec record.Record) (string, []any, error) {
	if !validIdentifier.MatchString(table) {
		return "", nil, fmt.Errorf("invalid table name %q", table)
	}
	if len(rec) == 0 {
		return "", nil, fmt.Errorf("record has no fields")
	}
	columns := rec.Keys()
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		if !validIdentifier.MatchString(col) {
			return "", nil, fmt.Errorf("invalid column name %q", col)
		}
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = sqlArg(rec[col], types[col])
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	return query, args, nil
}

func sqlArg(v record.Value, column string) any {
	if v.Composite() {
		return v.CanonicalJSON()
	}
	if column == "TEXT" {
		return textArg(v)
	}
	return v.Interface()
}

func textArg(v record.Value) any {
	switch v.Kind() {
	case record.KindNull:
		return nil
	case record.KindNumber:
		f, _ := v.Num()
		return strconv.FormatFloat(f, 'f', -1, 64)
	case record.KindBool:
		b, _ := v.BoolValue()
		return strconv.FormatBool(b)
	case record.KindTime:
		t, _ := v.TimeValue()
		return record.FormatTimestamp(t)
	default:
		s, _ := v.Str()
		return s
	}
}
