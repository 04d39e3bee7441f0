package weaviate

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/weavebench/fanout/v1/dispatcher"
)

// CollectionQuery is one collection's share of a query set.
type CollectionQuery struct {
	Collection string `json:"collection"`
	GraphQL    string `json:"graphql"`
}

// QuerySet is one logical search rendered for every collection.
type QuerySet struct {
	QueryText  string            `json:"query_text,omitempty"`
	SearchType string            `json:"search_type,omitempty"`
	Alpha      float64           `json:"alpha,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Queries    []CollectionQuery `json:"queries"`
}

// Collections returns the collection names in order.
func (s QuerySet) Collections() []string {
	names := make([]string, len(s.Queries))
	for i, q := range s.Queries {
		names[i] = q.Collection
	}
	return names
}

// Batch converts the set into a dispatcher batch with one member per
// collection. Each member POSTs its GraphQL query to GraphQLPath.
func (s QuerySet) Batch(id string, deadline time.Duration) (dispatcher.QueryBatch, error) {
	members := make([]dispatcher.QueryMember, 0, len(s.Queries))
	for _, q := range s.Queries {
		body, err := GraphQLBody(q.GraphQL)
		if err != nil {
			return dispatcher.QueryBatch{}, fmt.Errorf("weaviate: encode query for %s: %w", q.Collection, err)
		}
		members = append(members, dispatcher.QueryMember{
			ID: q.Collection,
			Request: dispatcher.Request{
				Method: http.MethodPost,
				Path:   GraphQLPath,
				Header: http.Header{"Content-Type": []string{"application/json"}},
				Body:   body,
			},
		})
	}
	return dispatcher.QueryBatch{ID: id, Members: members, Deadline: deadline}, nil
}

// LoadQuerySets decodes a JSON array of query sets.
func LoadQuerySets(r io.Reader) ([]QuerySet, error) {
	var sets []QuerySet
	if err := json.NewDecoder(r).Decode(&sets); err != nil {
		return nil, fmt.Errorf("weaviate: decode query sets: %w", err)
	}
	for i, s := range sets {
		if len(s.Queries) == 0 {
			return nil, fmt.Errorf("weaviate: query set [%d] has no queries", i)
		}
		for j, q := range s.Queries {
			if q.Collection == "" || q.GraphQL == "" {
				return nil, fmt.Errorf("weaviate: query set [%d] query [%d] needs both collection and graphql", i, j)
			}
		}
	}
	return sets, nil
}

// LoadQuerySetsFile reads a fixture file written by SaveQuerySets.
func LoadQuerySetsFile(path string) ([]QuerySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("weaviate: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadQuerySets(f)
}

// SaveQuerySets writes sets as an indented JSON array.
func SaveQuerySets(w io.Writer, sets []QuerySet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(sets)
}
