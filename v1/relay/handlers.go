package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/weavebench/fanout/v1/dispatcher"
	"github.com/weavebench/fanout/v1/weaviate"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Message: "Parallel search relay"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{APIStatus: "ok", WeaviateStatus: "ok", WeaviateURL: s.endpoint}
	if err := s.checkReady(r.Context()); err != nil {
		resp.WeaviateStatus = "error"
		s.logWarn(r.Context(), "downstream readiness check failed", err, map[string]interface{}{
			"endpoint": s.endpoint,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) checkReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+ReadyPath, nil)
	if err != nil {
		return err
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	resp, err := s.health.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay: readiness check returned %d", resp.StatusCode)
	}
	return nil
}

func (s *Server) handleParallelSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.DeadlineMs < 0 {
		writeError(w, http.StatusBadRequest, "deadline_ms must not be negative")
		return
	}

	batch, err := s.batchFor(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.client.Dispatch(ctx, batch)
	if err != nil {
		if dispatcher.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logError(ctx, "dispatch failed", err, map[string]interface{}{"batch_id": batch.ID})
		writeError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, result); err != nil {
			s.logWarn(ctx, "failed to publish batch result", err, map[string]interface{}{"batch_id": result.BatchID})
		}
	}

	writeJSON(w, http.StatusOK, buildResponse(result))
}

func (s *Server) batchFor(req SearchRequest) (dispatcher.QueryBatch, error) {
	id := req.BatchID
	if id == "" {
		id = s.newID()
	}
	deadline := s.defaultDeadline
	if req.DeadlineMs > 0 {
		deadline = time.Duration(req.DeadlineMs) * time.Millisecond
	}

	set := weaviate.QuerySet{Queries: make([]weaviate.CollectionQuery, len(req.Queries))}
	for i, q := range req.Queries {
		set.Queries[i] = weaviate.CollectionQuery{Collection: q.Collection, GraphQL: q.GraphQL}
	}
	return set.Batch(id, deadline)
}

func buildResponse(result *dispatcher.BatchResult) SearchResponse {
	resp := SearchResponse{
		BatchID:          result.BatchID,
		TotalCollections: len(result.Outcomes),
		Failed:           result.FailedCount,
		TimedOut:         result.TimedOutCount,
		TotalLatencyMs:   durationMs(result.TotalLatency),
		Results:          make([]CollectionResult, 0, len(result.Outcomes)),
	}
	for _, o := range result.Outcomes {
		cr := collectionResult(o)
		if cr.Status == ResultSuccess {
			resp.Successful++
		} else {
			resp.Errors++
		}
		resp.Results = append(resp.Results, cr)
	}
	return resp
}

// collectionResult interprets a member outcome as a GraphQL answer. A
// response only counts as a success when it is a complete 200 carrying no
// GraphQL errors.
func collectionResult(o dispatcher.MemberOutcome) CollectionResult {
	cr := CollectionResult{
		Collection: o.MemberID,
		StatusCode: o.StatusCode,
		LatencyMs:  durationMs(o.Latency),
	}
	switch o.Status {
	case dispatcher.StatusTimedOut:
		cr.Status, cr.Error = ResultTimeout, o.Error
		return cr
	case dispatcher.StatusFailed:
		cr.Status, cr.Error = ResultError, o.Error
		return cr
	}

	if json.Valid(o.Body) && !o.Truncated {
		cr.Response = o.Body
	}

	cr.Status = ResultError
	switch {
	case o.StatusCode != http.StatusOK:
		cr.Error = fmt.Sprintf("HTTP %d", o.StatusCode)
	case o.Truncated:
		cr.Error = "response truncated"
	default:
		gql, err := weaviate.ParseResponse(o.Body)
		if err == nil {
			err = gql.Err()
		}
		if err != nil {
			cr.Error = err.Error()
		} else {
			cr.Status = ResultSuccess
		}
	}
	return cr
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func (s *Server) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (s *Server) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}

func (s *Server) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}
