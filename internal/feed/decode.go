// Package feed reads job postings from crawl output files.
package feed

import (
	"fmt"
	"io"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/record"
)

type document struct {
	Jobs []struct {
		Data map[string]any `json:"data"`
	} `json:"jobs"`
}

// Decode reads a {"jobs":[{"data":{...}}]} document and returns one record per
// job. Only schema fields are kept; absent fields get the schema default, or
// null when the field has none. create_date and update_date also accept
// date-only and offset-less text, read as UTC.
func Decode(r io.Reader) ([]record.Record, error) {
	var doc document
	if err := gojson.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	out := make([]record.Record, 0, len(doc.Jobs))
	for i, job := range doc.Jobs {
		rec, err := fromData(job.Data)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func fromData(data map[string]any) (record.Record, error) {
	rec := make(record.Record, len(jobs.Schema))
	for _, field := range jobs.Schema {
		raw, ok := data[field.Name]
		if !ok {
			if field.Default != nil {
				rec[field.Name] = field.Default()
			} else {
				rec[field.Name] = record.Null()
			}
			continue
		}
		v, err := record.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		if field.LenientDate {
			v = lenientDate(v)
		}
		rec[field.Name] = v
	}
	return rec, nil
}

// lenientDate parses date strings the way the crawl producer does. Values it
// cannot parse are passed through for the normalizer to reject.
func lenientDate(v record.Value) record.Value {
	s, ok := v.Str()
	if !ok || strings.TrimSpace(s) == "" {
		return v
	}
	t, err := record.ParseTimestampLenient(s)
	if err != nil {
		return v
	}
	return record.Time(t)
}
