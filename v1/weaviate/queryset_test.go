package weaviate

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weavebench/fanout/v1/dispatcher"
)

const fixture = `[
  {
    "query_text": "love and heartbreak",
    "search_type": "bm25",
    "limit": 10,
    "queries": [
      {"collection": "SongLyrics", "graphql": "{ Get { SongLyrics(limit: 10) { title } } }"},
      {"collection": "SongLyrics_10k", "graphql": "{ Get { SongLyrics_10k(limit: 10) { title } } }"}
    ]
  },
  {
    "query_text": "rain",
    "search_type": "hybrid_0.9",
    "alpha": 0.9,
    "limit": 5,
    "queries": [
      {"collection": "SongLyrics", "graphql": "{ Get { SongLyrics(limit: 5) { title } } }"}
    ]
  }
]`

func TestLoadQuerySets(t *testing.T) {
	sets, err := LoadQuerySets(strings.NewReader(fixture))
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Equal(t, "love and heartbreak", sets[0].QueryText)
	assert.Equal(t, []string{"SongLyrics", "SongLyrics_10k"}, sets[0].Collections())
	assert.Equal(t, 0.9, sets[1].Alpha)
	assert.Equal(t, "hybrid_0.9", sets[1].SearchType)
}

func TestLoadQuerySetsRejectsBadInput(t *testing.T) {
	_, err := LoadQuerySets(strings.NewReader("{"))
	assert.Error(t, err)

	_, err = LoadQuerySets(strings.NewReader(`[{"queries": []}]`))
	assert.ErrorContains(t, err, "no queries")

	_, err = LoadQuerySets(strings.NewReader(`[{"queries": [{"collection": "A"}]}]`))
	assert.ErrorContains(t, err, "needs both")
}

func TestSaveAndLoadFile(t *testing.T) {
	sets, err := LoadQuerySets(strings.NewReader(fixture))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "queries.json")
	var buf bytes.Buffer
	require.NoError(t, SaveQuerySets(&buf, sets))
	assert.NotContains(t, buf.String(), `<`)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	loaded, err := LoadQuerySetsFile(path)
	require.NoError(t, err)
	assert.Equal(t, sets, loaded)

	_, err = LoadQuerySetsFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestQuerySetBatch(t *testing.T) {
	sets, err := LoadQuerySets(strings.NewReader(fixture))
	require.NoError(t, err)

	batch, err := sets[0].Batch("b-1", 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, batch.Validate())

	assert.Equal(t, "b-1", batch.ID)
	assert.Equal(t, 2*time.Second, batch.Deadline)
	require.Len(t, batch.Members, 2)

	m := batch.Members[1]
	assert.Equal(t, "SongLyrics_10k", m.ID)
	assert.Equal(t, http.MethodPost, m.Request.Method)
	assert.Equal(t, GraphQLPath, m.Request.Path)
	assert.Equal(t, "application/json", m.Request.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(m.Request.Body, &body))
	assert.Equal(t, sets[0].Queries[1].GraphQL, body["query"])
}

func TestQuerySetBatchDuplicateCollectionsFailValidation(t *testing.T) {
	set := QuerySet{Queries: []CollectionQuery{
		{Collection: "A", GraphQL: "{}"},
		{Collection: "A", GraphQL: "{}"},
	}}
	batch, err := set.Batch("dup", time.Second)
	require.NoError(t, err)
	assert.True(t, dispatcher.IsValidationError(batch.Validate()))
}
