// Package jobs describes the job-posting schema shared by the feed reader, the
// normalizer's type map and the relational table definition.
package jobs

import (
	"github.com/JakeFAU/jobingest/internal/record"
)

// Identity and title fields.
const (
	FieldReqID = "req_id"
	FieldTitle = "title"
)

// DedupKeyPrefix namespaces admission markers in the key-value store.
const DedupKeyPrefix = "job:"

// DedupKey derives the key-value marker for a record identity.
func DedupKey(reqID string) string {
	return DedupKeyPrefix + reqID
}

// RequiredFields lists the fields a record must carry (non-empty) to be accepted.
func RequiredFields() []string {
	return []string{FieldTitle, FieldReqID}
}

// Semantic is the declared type the normalizer coerces a field into.
type Semantic int

// Declared semantic types.
const (
	SemanticNone Semantic = iota
	SemanticFloat
	SemanticTimestamp
)

// FieldSpec describes one schema field.
type FieldSpec struct {
	Name string
	// Column is the Postgres column type.
	Column string
	// Semantic drives string coercion in the normalizer.
	Semantic Semantic
	// LenientDate marks date fields the producer parses leniently: date-only
	// and offset-less values are accepted, the latter as UTC.
	LenientDate bool
	// Default is applied by the producer when the source omits the field.
	// A nil Default leaves the field null.
	Default func() record.Value
}

func emptyString() record.Value { return record.String("") }
func zero() record.Value        { return record.Number(0) }
func no() record.Value          { return record.Bool(false) }
func emptyList() record.Value   { return record.List() }
func emptyMap() record.Value    { return record.Map(nil) }

// Schema is the fixed job-posting field set, in table column order.
var Schema = []FieldSpec{
	{Name: "slug", Column: "TEXT", Default: emptyString},
	{Name: "language", Column: "TEXT", Default: emptyString},
	{Name: "languages", Column: "TEXT", Default: emptyList},
	{Name: FieldReqID, Column: "TEXT", Default: emptyString},
	{Name: FieldTitle, Column: "TEXT", Default: emptyString},
	{Name: "description", Column: "TEXT", Default: emptyString},
	{Name: "street_address", Column: "TEXT", Default: emptyString},
	{Name: "city", Column: "TEXT", Default: emptyString},
	{Name: "state", Column: "TEXT", Default: emptyString},
	{Name: "country_code", Column: "TEXT", Default: emptyString},
	{Name: "postal_code", Column: "TEXT", Default: emptyString},
	{Name: "location_type", Column: "TEXT", Default: emptyString},
	{Name: "latitude", Column: "DOUBLE PRECISION", Semantic: SemanticFloat, Default: zero},
	{Name: "longitude", Column: "DOUBLE PRECISION", Semantic: SemanticFloat, Default: zero},
	{Name: "categories", Column: "TEXT", Default: emptyList},
	{Name: "tags", Column: "TEXT", Default: emptyList},
	{Name: "tags5", Column: "TEXT", Default: emptyList},
	{Name: "tags6", Column: "TEXT", Default: emptyList},
	{Name: "brand", Column: "TEXT", Default: emptyString},
	{Name: "promotion_value", Column: "TEXT", Default: zero},
	{Name: "salary_currency", Column: "TEXT", Default: emptyString},
	{Name: "salary_value", Column: "NUMERIC", Semantic: SemanticFloat, Default: zero},
	{Name: "salary_min_value", Column: "NUMERIC", Semantic: SemanticFloat, Default: zero},
	{Name: "salary_max_value", Column: "NUMERIC", Semantic: SemanticFloat, Default: zero},
	{Name: "benefits", Column: "TEXT", Default: emptyList},
	{Name: "employment_type", Column: "TEXT", Default: emptyString},
	{Name: "hiring_organization", Column: "TEXT", Default: emptyString},
	{Name: "source", Column: "TEXT", Default: emptyString},
	{Name: "apply_url", Column: "TEXT", Default: emptyString},
	{Name: "internal", Column: "BOOLEAN", Default: no},
	{Name: "searchable", Column: "BOOLEAN", Default: no},
	{Name: "applyable", Column: "BOOLEAN", Default: no},
	{Name: "li_easy_applyable", Column: "BOOLEAN", Default: no},
	{Name: "ats_code", Column: "TEXT", Default: emptyString},
	{Name: "meta_data", Column: "TEXT", Default: emptyMap},
	{Name: "update_date", Column: "TIMESTAMPTZ", Semantic: SemanticTimestamp, LenientDate: true},
	{Name: "create_date", Column: "TIMESTAMPTZ", Semantic: SemanticTimestamp, LenientDate: true},
	{Name: "created_at", Column: "TIMESTAMPTZ", Semantic: SemanticTimestamp},
	{Name: "updated_at", Column: "TIMESTAMPTZ", Semantic: SemanticTimestamp},
	{Name: "category", Column: "TEXT", Default: emptyList},
	{Name: "full_location", Column: "TEXT", Default: emptyString},
	{Name: "short_location", Column: "TEXT", Default: emptyString},
}

// ColumnTypes maps every schema field to its Postgres column type.
func ColumnTypes() map[string]string {
	out := make(map[string]string, len(Schema))
	for _, spec := range Schema {
		out[spec.Name] = spec.Column
	}
	return out
}
