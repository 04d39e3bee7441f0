package weaviate

import (
	"context"
	"errors"
	"fmt"
)

// SearchTexts are the stock lyrics searches used to build fixtures.
var SearchTexts = []string{
	"love and heartbreak",
	"summer party vibes",
	"feeling lonely at night",
	"dancing until sunrise",
	"broken dreams and hope",
	"driving down the highway",
	"missing you every day",
	"rain on my window",
	"money power and fame",
	"growing up in the city",
	"friends forever",
	"fire in my heart",
	"lost in the music",
	"chasing the stars",
	"tears in the dark",
	"rebel without a cause",
	"hometown memories",
	"falling in love again",
	"fighting my demons",
	"sunshine and good times",
	"midnight city lights",
	"never give up",
	"dreams come true",
	"cold winter nights",
	"wild and free",
	"whiskey and regret",
	"ocean waves and freedom",
	"gangsta life on the streets",
	"faith and redemption",
	"goodbye my friend",
}

// Embedder turns a search text into a query vector. *embedding.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ErrNoEmbedder is returned when a hybrid set is requested without an Embedder.
var ErrNoEmbedder = errors.New("weaviate: hybrid search needs an embedder")

// Generator renders query sets over a fixed list of collections.
type Generator struct {
	collections []string
	embedder    Embedder
}

// NewGenerator builds a generator. With no collections it uses DefaultCollections.
// embedder may be nil when only BM25 sets are generated.
func NewGenerator(embedder Embedder, collections ...string) *Generator {
	if len(collections) == 0 {
		collections = DefaultCollections
	}
	return &Generator{collections: collections, embedder: embedder}
}

// Collections returns the collections the generator targets.
func (g *Generator) Collections() []string {
	return g.collections
}

// ParallelSet renders text as one query per collection.
func (g *Generator) ParallelSet(ctx context.Context, text string, kind Kind, limit int) (QuerySet, error) {
	s, err := g.search(ctx, text, kind, limit)
	if err != nil {
		return QuerySet{}, err
	}
	set := QuerySet{
		QueryText:  text,
		SearchType: string(kind),
		Alpha:      kind.Alpha(),
		Limit:      limit,
		Queries:    make([]CollectionQuery, 0, len(g.collections)),
	}
	for _, c := range g.collections {
		set.Queries = append(set.Queries, CollectionQuery{
			Collection: c,
			GraphQL:    render([]string{c}, s),
		})
	}
	return set, nil
}

// MultiCollectionSet renders text as a single query spanning every
// collection. The set has one entry whose collection is "multi".
func (g *Generator) MultiCollectionSet(ctx context.Context, text string, kind Kind, limit int) (QuerySet, error) {
	s, err := g.search(ctx, text, kind, limit)
	if err != nil {
		return QuerySet{}, err
	}
	return QuerySet{
		QueryText:  text,
		SearchType: string(kind),
		Alpha:      kind.Alpha(),
		Limit:      limit,
		Queries: []CollectionQuery{{
			Collection: "multi",
			GraphQL:    MultiCollectionQuery(g.collections, s),
		}},
	}, nil
}

// MixedSets renders texts split into three equal runs: BM25 first, then
// hybrid with alpha 0.1, then hybrid with alpha 0.9. A remainder goes to the
// last run.
func (g *Generator) MixedSets(ctx context.Context, texts []string, limit int) ([]QuerySet, error) {
	third := len(texts) / 3
	sets := make([]QuerySet, 0, len(texts))
	for i, text := range texts {
		kind := KindHybrid09
		switch {
		case i < third:
			kind = KindBM25
		case i < 2*third:
			kind = KindHybrid01
		}
		set, err := g.ParallelSet(ctx, text, kind, limit)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func (g *Generator) search(ctx context.Context, text string, kind Kind, limit int) (Search, error) {
	if text == "" {
		return Search{}, errors.New("weaviate: empty search text")
	}
	if limit <= 0 {
		return Search{}, fmt.Errorf("weaviate: limit must be positive, got %d", limit)
	}
	s := Search{Hybrid: kind.Hybrid(), Text: text, Alpha: kind.Alpha(), Limit: limit}
	if !kind.Hybrid() {
		return s, nil
	}
	if g.embedder == nil {
		return Search{}, ErrNoEmbedder
	}
	vector, err := g.embedder.Embed(ctx, text)
	if err != nil {
		return Search{}, fmt.Errorf("weaviate: embed %q: %w", text, err)
	}
	s.Vector = vector
	return s, nil
}
