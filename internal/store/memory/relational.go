// Package memory provides in-process stores for local runs and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/jobingest/internal/jobs"
)

var insertPattern = regexp.MustCompile(`^INSERT INTO (\w+) \(([^)]*)\) VALUES`)

// Statement is one executed write.
type Statement struct {
	SQL  string
	Args []any
}

// Relational keeps inserted rows in memory. It understands the INSERT
// statements produced by the pipeline writer, checks each argument against the
// jobs table column types and records every statement.
type Relational struct {
	mu         sync.RWMutex
	table      string
	columns    map[string]string
	ensured    bool
	statements []Statement
	rows       []map[string]any
}

// NewRelational constructs a Relational store for table.
func NewRelational(table string) *Relational {
	return &Relational{table: table, columns: jobs.ColumnTypes()}
}

// EnsureSchema marks the table as created.
func (s *Relational) EnsureSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = true
	return nil
}

// ExecuteWrite applies an INSERT into the configured table.
func (s *Relational) ExecuteWrite(_ context.Context, sql string, args ...any) error {
	m := insertPattern.FindStringSubmatch(sql)
	if m == nil {
		return fmt.Errorf("unsupported statement: %s", sql)
	}
	if m[1] != s.table {
		return fmt.Errorf("relation %q does not exist", m[1])
	}
	columns := strings.Split(m[2], ",")
	if len(columns) != len(args) {
		return fmt.Errorf("got %d args for %d columns", len(args), len(columns))
	}
	row := make(map[string]any, len(columns)+1)
	for i, col := range columns {
		col = strings.TrimSpace(col)
		typ, ok := s.columns[col]
		if !ok {
			return fmt.Errorf("column %q of relation %q does not exist", col, s.table)
		}
		if !bindable(typ, args[i]) {
			return fmt.Errorf("cannot encode %T into %s column %q", args[i], typ, col)
		}
		row[col] = args[i]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ensured {
		return errors.New("table not created")
	}
	row["id"] = int64(len(s.rows) + 1)
	s.rows = append(s.rows, row)
	s.statements = append(s.statements, Statement{SQL: sql, Args: append([]any(nil), args...)})
	return nil
}

// QueryAll returns every row; columns are "id" followed by the sorted union
// of inserted columns.
func (s *Relational) QueryAll(_ context.Context) ([]string, [][]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, row := range s.rows {
		for col := range row {
			if col != "id" {
				seen[col] = struct{}{}
			}
		}
	}
	columns := make([]string, 0, len(seen)+1)
	for col := range seen {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	columns = append([]string{"id"}, columns...)

	rows := make([][]any, len(s.rows))
	for i, row := range s.rows {
		values := make([]any, len(columns))
		for j, col := range columns {
			values[j] = row[col]
		}
		rows[i] = values
	}
	return columns, rows, nil
}

// Statements returns a copy of the executed writes.
func (s *Relational) Statements() []Statement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Statement(nil), s.statements...)
}

// Close is a no-op.
func (s *Relational) Close() {}

// bindable follows pgx encoding: text binds to any column, other Go values
// only to a column of the matching type.
func bindable(column string, arg any) bool {
	switch arg.(type) {
	case nil, string:
		return true
	case float64, float32, int, int32, int64:
		return column == "DOUBLE PRECISION" || column == "NUMERIC"
	case bool:
		return column == "BOOLEAN"
	case time.Time:
		return column == "TIMESTAMPTZ"
	default:
		return false
	}
}
