package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobingest/internal/jobs"
)

const sampleFeed = `{
  "jobs": [
    {"data": {
      "req_id": "A1",
      "title": "Engineer",
      "latitude": "37.5",
      "categories": ["eng", "remote"],
      "meta_data": {"googlejobs": {"derivedInfo": {"x": 1}}},
      "create_date": "2024-01-01T10:00:00+0000",
      "unknown_field": "ignored"
    }},
    {"data": {"req_id": "A2"}},
    {}
  ]
}`

func TestDecodeAppliesDefaults(t *testing.T) {
	t.Parallel()

	recs, err := Decode(strings.NewReader(sampleFeed))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	first := recs[0]
	assert.Equal(t, "A1", first.Text("req_id"))
	assert.Equal(t, "37.5", first.Text("latitude"), "strings are left for the normalizer")
	items, ok := first["categories"].Items()
	require.True(t, ok)
	assert.Len(t, items, 2)
	_, hasUnknown := first["unknown_field"]
	assert.False(t, hasUnknown)
	assert.Len(t, first, len(jobs.Schema))

	second := recs[1]
	assert.Equal(t, "", second.Text("title"))
	lon, _ := second["longitude"].Num()
	assert.Zero(t, lon)
	internal, isBool := second["internal"].BoolValue()
	assert.True(t, isBool)
	assert.False(t, internal)
	meta, isMap := second["meta_data"].Fields()
	assert.True(t, isMap)
	assert.Empty(t, meta)
	assert.True(t, second["update_date"].IsNull())
	assert.True(t, second["created_at"].IsNull())

	assert.Equal(t, "", recs[2].Text("req_id"))
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader(`{"jobs": [`))
	require.Error(t, err)
}

func TestDecodeEmptyFeed(t *testing.T) {
	t.Parallel()

	recs, err := Decode(strings.NewReader(`{"jobs": []}`))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDecodeParsesProducerDatesLeniently(t *testing.T) {
	t.Parallel()

	recs, err := Decode(strings.NewReader(`{"jobs": [{"data": {
	  "req_id": "A1",
	  "create_date": "2024-01-15",
	  "update_date": "2024-01-15T09:30:00",
	  "created_at": "2024-01-15"
	}}, {"data": {"req_id": "A2", "create_date": "soon", "update_date": ""}}]}`))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	created, ok := recs[0]["create_date"].TimeValue()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), created)
	updated, ok := recs[0]["update_date"].TimeValue()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), updated)
	assert.Equal(t, "2024-01-15", recs[0].Text("created_at"), "created_at keeps the strict offset rule")

	assert.Equal(t, "soon", recs[1].Text("create_date"))
	assert.Equal(t, "", recs[1].Text("update_date"))
}
