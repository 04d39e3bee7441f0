package relay

import (
	"encoding/json"
)

// SearchRequest is the body of POST /parallel-search.
type SearchRequest struct {
	BatchID    string        `json:"batch_id,omitempty"`
	DeadlineMs int64         `json:"deadline_ms,omitempty"`
	Queries    []SearchQuery `json:"queries"`
}

// SearchQuery is one collection's GraphQL query.
type SearchQuery struct {
	Collection string `json:"collection"`
	GraphQL    string `json:"graphql"`
}

// SearchResponse aggregates one dispatched batch.
//
// Successful counts collections that answered 200 without GraphQL errors.
// Errors is everything else, so Successful+Errors == TotalCollections.
// Failed and TimedOut break down the members that got no response at all.
type SearchResponse struct {
	BatchID          string             `json:"batch_id"`
	TotalCollections int                `json:"total_collections"`
	Successful       int                `json:"successful"`
	Errors           int                `json:"errors"`
	Failed           int                `json:"failed"`
	TimedOut         int                `json:"timed_out"`
	TotalLatencyMs   float64            `json:"total_latency_ms"`
	Results          []CollectionResult `json:"results"`
}

// CollectionResult is the outcome for one collection.
type CollectionResult struct {
	Collection string          `json:"collection"`
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code,omitempty"`
	LatencyMs  float64         `json:"latency_ms"`
	Error      string          `json:"error,omitempty"`
	Response   json.RawMessage `json:"response,omitempty"`
}

// Result statuses reported per collection.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultTimeout = "timeout"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	APIStatus      string `json:"api_status"`
	WeaviateStatus string `json:"weaviate_status"`
	WeaviateURL    string `json:"weaviate_url"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}
