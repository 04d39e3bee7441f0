package weaviate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message string `json:"message"`
}

// GraphQLResponse is the envelope Weaviate returns from /v1/graphql.
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// Err joins the GraphQL errors, or returns nil if there are none.
func (r GraphQLResponse) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return fmt.Errorf("weaviate: graphql: %s", strings.Join(msgs, "; "))
}

// Hits counts the objects returned per collection under data.Get.
func (r GraphQLResponse) Hits() (map[string]int, error) {
	if len(r.Data) == 0 {
		return map[string]int{}, nil
	}
	var data struct {
		Get map[string][]json.RawMessage `json:"Get"`
	}
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return nil, fmt.Errorf("weaviate: decode data: %w", err)
	}
	hits := make(map[string]int, len(data.Get))
	for c, objs := range data.Get {
		hits[c] = len(objs)
	}
	return hits, nil
}

// ParseResponse decodes a /v1/graphql response body.
func ParseResponse(body []byte) (GraphQLResponse, error) {
	var r GraphQLResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return GraphQLResponse{}, fmt.Errorf("weaviate: decode response: %w", err)
	}
	return r, nil
}
