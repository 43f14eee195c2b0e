package pipeline

import (
	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/record"
)

// Validate checks that every required field is present and truthy. An empty
// string counts as absent. It has no side effects.
func Validate(rec record.Record, required []string) error {
	for _, name := range required {
		v, ok := rec.Get(name)
		if !ok || !v.Truthy() {
			return &DropError{
				ReqID: Identity(rec),
				Kind:  ErrMissingField,
				Field: name,
			}
		}
	}
	return nil
}

// Identity renders the record identity used for dedup keys, logs and
// notifications. Non-string identities fall back to their canonical JSON text.
func Identity(rec record.Record) string {
	v, ok := rec.Get(jobs.FieldReqID)
	if !ok || v.IsNull() {
		return ""
	}
	if s, isStr := v.Str(); isStr {
		return s
	}
	return v.CanonicalJSON()
}
