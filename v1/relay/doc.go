// Package relay serves parallel GraphQL search over HTTP.
//
// Routes:
//
//	GET  /                 liveness: {"status":"ok","message":"Parallel search relay"}
//	GET  /health           checks the Weaviate readiness endpoint
//	POST /parallel-search  dispatches one query per collection under one deadline
//
// A search request names the collections and their GraphQL queries:
//
//	{"batch_id": "optional", "deadline_ms": 2000,
//	 "queries": [{"collection": "SongLyrics", "graphql": "{ Get { ... } }"}]}
//
// The response reports every collection, including the ones that timed out,
// and counts a collection as successful only when Weaviate answered 200
// without GraphQL errors. Malformed bodies and invalid batches get 400.
//
// Requests without deadline_ms use the dispatcher's DefaultDeadline.
// When a sink.Publisher is attached, every dispatched batch is published too;
// publish failures are logged and do not affect the response.
package relay
