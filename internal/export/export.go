// Package export dumps both sinks to CSV files.
package export

import (
	"context"
	"database/sql/driver"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/JakeFAU/jobingest/internal/record"
)

// Output file names.
const (
	RelationalFile = "postgres_data.csv"
	DocumentFile   = "mongodb_data.csv"
)

// RowSource lists every row of the relational table.
type RowSource interface {
	QueryAll(ctx context.Context) ([]string, [][]any, error)
}

// DocumentSource lists every stored document.
type DocumentSource interface {
	FindAll(ctx context.Context) ([]map[string]any, error)
}

// Result reports what was written.
type Result struct {
	Rows      int
	Documents int
	Files     []string
}

// Run writes RelationalFile and DocumentFile into outDir. A failure on one
// sink does not prevent the other from being exported.
func Run(ctx context.Context, rows RowSource, docs DocumentSource, outDir string) (Result, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}
	var (
		res  Result
		errs []error
	)

	columns, values, err := rows.QueryAll(ctx)
	if err == nil {
		path := filepath.Join(outDir, RelationalFile)
		err = writeFile(path, func(w io.Writer) error { return WriteRows(w, columns, values) })
		if err == nil {
			res.Rows = len(values)
			res.Files = append(res.Files, path)
		}
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("export relational: %w", err))
	}

	documents, err := docs.FindAll(ctx)
	if err == nil {
		path := filepath.Join(outDir, DocumentFile)
		err = writeFile(path, func(w io.Writer) error { return WriteDocuments(w, documents) })
		if err == nil {
			res.Documents = len(documents)
			res.Files = append(res.Files, path)
		}
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("export documents: %w", err))
	}

	return res, errors.Join(errs...)
}

func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fill(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// WriteRows writes a header followed by one line per row.
func WriteRows(w io.Writer, columns []string, rows [][]any) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	line := make([]string, len(columns))
	for _, row := range rows {
		for i := range line {
			line[i] = ""
			if i < len(row) {
				line[i] = Cell(row[i])
			}
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteDocuments writes documents using the union of their keys as columns,
// "_id" first and the rest sorted.
func WriteDocuments(w io.Writer, docs []map[string]any) error {
	seen := map[string]struct{}{}
	for _, doc := range docs {
		for k := range doc {
			seen[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		if k != "_id" {
			columns = append(columns, k)
		}
	}
	sort.Strings(columns)
	if _, ok := seen["_id"]; ok {
		columns = append([]string{"_id"}, columns...)
	}

	rows := make([][]any, len(docs))
	for i, doc := range docs {
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = doc[col]
		}
		rows[i] = row
	}
	return WriteRows(w, columns, rows)
}

// Cell renders one value as CSV text. Nested values become canonical JSON.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Time:
		return record.FormatTimestamp(t)
	case []any, map[string]any:
		val, err := record.FromAny(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return val.CanonicalJSON()
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil {
			return ""
		}
		return Cell(dv)
	default:
		return fmt.Sprint(t)
	}
}
