package pipeline

import "github.com/JakeFAU/jobingest/internal/record"

// Encode returns the relational projection of rec: every list or nested map is
// replaced with its canonical JSON text, scalars pass through. rec is not
// modified, so the caller keeps it as the document projection.
func Encode(rec record.Record) record.Record {
	out := make(record.Record, len(rec))
	for name, v := range rec {
		if v.Composite() {
			out[name] = record.String(v.CanonicalJSON())
			continue
		}
		out[name] = v
	}
	return out
}
