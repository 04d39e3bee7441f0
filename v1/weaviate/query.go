package weaviate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// GraphQLPath is where Weaviate accepts GraphQL queries.
const GraphQLPath = "/v1/graphql"

// DefaultCollections are the lyrics collections searched in parallel, from
// the full corpus down to the smallest sample.
var DefaultCollections = []string{
	"SongLyrics",
	"SongLyrics_400k",
	"SongLyrics_200k",
	"SongLyrics_50k",
	"SongLyrics_30k",
	"SongLyrics_20k",
	"SongLyrics_15k",
	"SongLyrics_12k",
	"SongLyrics_10k",
}

// ResultProperties are returned for every hit.
var ResultProperties = []string{
	"title",
	"tag",
	"artist",
	"year",
	"views",
	"features",
	"lyrics",
	"song_id",
	"language_cld3",
	"language_ft",
	"language",
}

// SearchProperties are the text properties BM25 and hybrid search run against.
var SearchProperties = []string{"title", "lyrics"}

// Search describes one search independent of the collection it runs on.
// A hybrid search with no Vector lets Weaviate vectorize Text itself.
type Search struct {
	Hybrid bool
	Text   string
	Vector []float64
	Alpha  float64
	Limit  int
}

// BM25Query renders a keyword search over one collection.
func BM25Query(collection, text string, limit int) string {
	return render([]string{collection}, Search{Text: text, Limit: limit})
}

// HybridQuery renders a hybrid search over one collection. alpha weights the
// vector side: 0 is pure keyword, 1 is pure vector.
func HybridQuery(collection, text string, vector []float64, alpha float64, limit int) string {
	return render([]string{collection}, Search{Hybrid: true, Text: text, Vector: vector, Alpha: alpha, Limit: limit})
}

// MultiCollectionQuery renders one request that runs s against every collection.
func MultiCollectionQuery(collections []string, s Search) string {
	return render(collections, s)
}

// GraphQLBody wraps a query in the JSON envelope Weaviate expects.
func GraphQLBody(query string) ([]byte, error) {
	return json.Marshal(struct {
		Query string `json:"query"`
	}{Query: query})
}

func render(collections []string, s Search) string {
	var b strings.Builder
	b.WriteString("{\n  Get {\n")
	for _, c := range collections {
		fmt.Fprintf(&b, "    %s(\n", c)
		writeClause(&b, s)
		fmt.Fprintf(&b, "      limit: %d\n", s.Limit)
		b.WriteString("    ) {\n")
		for _, p := range ResultProperties {
			fmt.Fprintf(&b, "      %s\n", p)
		}
		b.WriteString("      _additional { score }\n")
		b.WriteString("    }\n")
	}
	b.WriteString("  }\n}")
	return b.String()
}

func writeClause(b *strings.Builder, s Search) {
	props := quoteList(SearchProperties)
	if !s.Hybrid {
		fmt.Fprintf(b, "      bm25: {query: %s, properties: %s}\n", quote(s.Text), props)
		return
	}
	b.WriteString("      hybrid: {\n")
	fmt.Fprintf(b, "        query: %s\n", quote(s.Text))
	fmt.Fprintf(b, "        alpha: %s\n", strconv.FormatFloat(s.Alpha, 'f', -1, 64))
	if len(s.Vector) > 0 {
		fmt.Fprintf(b, "        vector: %s\n", formatVector(s.Vector))
	}
	fmt.Fprintf(b, "        properties: %s\n", props)
	b.WriteString("      }\n")
}

// quote renders s as a GraphQL string literal. GraphQL string escapes are a
// subset of JSON's, so the JSON encoding is always valid.
func quote(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = quote(it)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
