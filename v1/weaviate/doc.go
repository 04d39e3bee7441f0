// Package weaviate builds the per-collection GraphQL searches that the
// dispatcher fans out, and loads and stores them as query-set fixtures.
//
// A search corpus is split across several Weaviate collections of different
// sizes (SongLyrics, SongLyrics_400k, ... SongLyrics_10k). One logical search
// becomes one QuerySet: the same BM25 or hybrid query rendered once per
// collection. QuerySet.Batch turns it into a dispatcher.QueryBatch whose
// members POST {"query": ...} to /v1/graphql.
//
// # Building queries
//
//	q := weaviate.BM25Query("SongLyrics_50k", "summer party vibes", 10)
//	h := weaviate.HybridQuery("SongLyrics", "summer party vibes", vector, 0.9, 10)
//
// For comparison runs MultiCollectionQuery renders a single request that
// searches every collection at once. It is dispatched as an ordinary
// one-member batch.
//
// # Generating query sets
//
//	gen := weaviate.NewGenerator(embeddingClient)
//	set, err := gen.ParallelSet(ctx, "love and heartbreak", weaviate.KindHybrid01, 10)
//	batch, err := set.Batch(uuid.NewString(), 2*time.Second)
//	result, err := d.Dispatch(ctx, batch)
//
// # Fixtures
//
// Fixture files hold a JSON array of query sets:
//
//	[{"query_text": "...", "search_type": "bm25", "limit": 10,
//	  "queries": [{"collection": "SongLyrics", "graphql": "{ Get { ... } }"}]}]
//
// LoadQuerySets and SaveQuerySets read and write that format.
package weaviate
