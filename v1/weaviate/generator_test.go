package weaviate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	calls []string
	err   error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	s.calls = append(s.calls, text)
	if s.err != nil {
		return nil, s.err
	}
	return []float64{float64(len(text)), 0.5}, nil
}

func TestParallelSetBM25(t *testing.T) {
	emb := &stubEmbedder{}
	gen := NewGenerator(emb)

	set, err := gen.ParallelSet(context.Background(), "summer party vibes", KindBM25, 10)
	require.NoError(t, err)

	assert.Equal(t, DefaultCollections, set.Collections())
	assert.Equal(t, "bm25", set.SearchType)
	assert.Equal(t, 10, set.Limit)
	assert.Empty(t, emb.calls, "bm25 needs no vector")
	for _, q := range set.Queries {
		assert.Equal(t, BM25Query(q.Collection, "summer party vibes", 10), q.GraphQL)
	}
}

func TestParallelSetHybridEmbedsOnce(t *testing.T) {
	emb := &stubEmbedder{}
	gen := NewGenerator(emb, "A", "B")

	set, err := gen.ParallelSet(context.Background(), "rain", KindHybrid01, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"rain"}, emb.calls)
	assert.Equal(t, 0.1, set.Alpha)
	require.Len(t, set.Queries, 2)
	assert.Equal(t, HybridQuery("B", "rain", []float64{4, 0.5}, 0.1, 5), set.Queries[1].GraphQL)
}

func TestParallelSetErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewGenerator(nil).ParallelSet(ctx, "x", KindHybrid09, 1)
	assert.ErrorIs(t, err, ErrNoEmbedder)

	boom := errors.New("boom")
	_, err = NewGenerator(&stubEmbedder{err: boom}).ParallelSet(ctx, "x", KindHybrid09, 1)
	assert.ErrorIs(t, err, boom)

	_, err = NewGenerator(nil).ParallelSet(ctx, "", KindBM25, 1)
	assert.Error(t, err)

	_, err = NewGenerator(nil).ParallelSet(ctx, "x", KindBM25, 0)
	assert.Error(t, err)
}

func TestMultiCollectionSet(t *testing.T) {
	gen := NewGenerator(nil, "A", "B")
	set, err := gen.MultiCollectionSet(context.Background(), "x", KindBM25, 2)
	require.NoError(t, err)

	require.Len(t, set.Queries, 1)
	assert.Equal(t, "multi", set.Queries[0].Collection)
	assert.Equal(t, 2, strings.Count(set.Queries[0].GraphQL, "bm25:"))
}

func TestMixedSets(t *testing.T) {
	gen := NewGenerator(&stubEmbedder{}, "A")
	sets, err := gen.MixedSets(context.Background(), SearchTexts, 10)
	require.NoError(t, err)
	require.Len(t, sets, 30)

	assert.Equal(t, "bm25", sets[0].SearchType)
	assert.Equal(t, "bm25", sets[9].SearchType)
	assert.Equal(t, "hybrid_01", sets[10].SearchType)
	assert.Equal(t, "hybrid_01", sets[19].SearchType)
	assert.Equal(t, "hybrid_09", sets[20].SearchType)
	assert.Equal(t, "hybrid_09", sets[29].SearchType)
}
