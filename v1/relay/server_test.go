package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weavebench/fanout/v1/dispatcher"
	"github.com/weavebench/fanout/v1/observability"
)

// fakeWeaviate answers /v1/graphql based on the query text and /v1/.well-known/ready
// with readyCode.
func fakeWeaviate(t *testing.T, readyCode int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ReadyPath:
			w.WriteHeader(readyCode)
			return
		case "/v1/graphql":
		default:
			http.NotFound(w, r)
			return
		}

		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch body.Query {
		case "ok":
			_, _ = w.Write([]byte(`{"data":{"Get":{"A":[{"title":"x"}]}}}`))
		case "gql-error":
			_, _ = w.Write([]byte(`{"errors":[{"message":"class B not found"}]}`))
		case "server-error":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
		case "hang":
			<-r.Context().Done()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type recordingPublisher struct {
	mu      sync.Mutex
	results []*dispatcher.BatchResult
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, r *dispatcher.BatchResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, r)
	return p.err
}

func newTestServer(t *testing.T, target *httptest.Server, apiKey string) *Server {
	t.Helper()
	dcfg := dispatcher.DefaultConfig()
	dcfg.Endpoint = target.URL
	dcfg.APIKey = apiKey
	dcfg.DefaultDeadline = 5 * time.Second
	pool := dispatcher.NewPool(dcfg)
	t.Cleanup(pool.Close)

	cfg := DefaultConfig()
	cfg.HealthTimeout = time.Second
	return NewServer(cfg, dispatcher.NewDispatcher(dcfg, pool), dcfg)
}

func do(t *testing.T, h http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoot(t *testing.T) {
	s := newTestServer(t, fakeWeaviate(t, http.StatusOK), "")

	rec := do(t, s.Handler(), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"Parallel search relay"}`, rec.Body.String())

	rec = do(t, s.Handler(), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	up := fakeWeaviate(t, http.StatusOK)
	s := newTestServer(t, up, "")

	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, HealthResponse{APIStatus: "ok", WeaviateStatus: "ok", WeaviateURL: up.URL}, resp)

	down := newTestServer(t, fakeWeaviate(t, http.StatusServiceUnavailable), "")
	rec = do(t, down.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.APIStatus)
	assert.Equal(t, "error", resp.WeaviateStatus)
}

func TestHealthSendsAPIKey(t *testing.T) {
	var auth string
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}))
	defer target.Close()

	s := newTestServer(t, target, "secret")
	do(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, "Bearer secret", auth)
}

func TestParallelSearchMixedOutcomes(t *testing.T) {
	s := newTestServer(t, fakeWeaviate(t, http.StatusOK), "")
	pub := &recordingPublisher{}
	s.WithPublisher(pub)

	body := `{
		"batch_id": "b-42",
		"deadline_ms": 300,
		"queries": [
			{"collection": "A", "graphql": "ok"},
			{"collection": "B", "graphql": "gql-error"},
			{"collection": "C", "graphql": "server-error"},
			{"collection": "D", "graphql": "hang"}
		]
	}`
	start := time.Now()
	rec := do(t, s.Handler(), http.MethodPost, "/parallel-search", body)
	assert.Less(t, time.Since(start), 300*time.Millisecond+500*time.Millisecond)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "b-42", resp.BatchID)
	assert.Equal(t, 4, resp.TotalCollections)
	assert.Equal(t, 1, resp.Successful)
	assert.Equal(t, 3, resp.Errors)
	assert.Equal(t, 0, resp.Failed)
	assert.Equal(t, 1, resp.TimedOut)
	require.Len(t, resp.Results, 4)

	a, b, c, d := resp.Results[0], resp.Results[1], resp.Results[2], resp.Results[3]
	assert.Equal(t, "A", a.Collection)
	assert.Equal(t, ResultSuccess, a.Status)
	assert.JSONEq(t, `{"data":{"Get":{"A":[{"title":"x"}]}}}`, string(a.Response))

	assert.Equal(t, ResultError, b.Status)
	assert.Equal(t, http.StatusOK, b.StatusCode)
	assert.Contains(t, b.Error, "class B not found")

	assert.Equal(t, ResultError, c.Status)
	assert.Equal(t, http.StatusInternalServerError, c.StatusCode)
	assert.Equal(t, "HTTP 500", c.Error)

	assert.Equal(t, ResultTimeout, d.Status)
	assert.Equal(t, dispatcher.CauseDeadlineExceeded, d.Error)
	assert.Zero(t, d.StatusCode)
	assert.LessOrEqual(t, d.LatencyMs, 300.0)

	require.Len(t, pub.results, 1)
	assert.Equal(t, "b-42", pub.results[0].BatchID)
}

func TestParallelSearchGeneratesBatchID(t *testing.T) {
	s := newTestServer(t, fakeWeaviate(t, http.StatusOK), "")
	s.newID = func() string { return "generated" }
	s.WithPublisher(&recordingPublisher{err: errors.New("broker down")})

	rec := do(t, s.Handler(), http.MethodPost, "/parallel-search", `{"queries":[{"collection":"A","graphql":"ok"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, "publish errors must not fail the request")

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "generated", resp.BatchID)
	assert.Equal(t, 1, resp.Successful)
}

func TestParallelSearchBadRequests(t *testing.T) {
	s := newTestServer(t, fakeWeaviate(t, http.StatusOK), "")

	cases := map[string]string{
		"malformed json":    `{"queries": [`,
		"no queries":        `{"queries": []}`,
		"duplicate":         `{"queries":[{"collection":"A","graphql":"ok"},{"collection":"A","graphql":"ok"}]}`,
		"empty collection":  `{"queries":[{"collection":"","graphql":"ok"}]}`,
		"negative deadline": `{"deadline_ms": -1, "queries":[{"collection":"A","graphql":"ok"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/parallel-search", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestParallelSearchBodyLimit(t *testing.T) {
	s := newTestServer(t, fakeWeaviate(t, http.StatusOK), "")
	s.cfg.MaxBodyBytes = 16

	rec := do(t, s.Handler(), http.MethodPost, "/parallel-search", `{"queries":[{"collection":"A","graphql":"ok"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type failingClient struct{}

func (failingClient) Dispatch(context.Context, dispatcher.QueryBatch) (*dispatcher.BatchResult, error) {
	return nil, errors.New("unexpected")
}

func TestObserverSeesRouteAndCode(t *testing.T) {
	var (
		mu  sync.Mutex
		ops []observability.OperationContext
	)
	observer := observability.ObserverFunc(func(op observability.OperationContext) {
		mu.Lock()
		defer mu.Unlock()
		ops = append(ops, op)
	})

	s := NewServer(DefaultConfig(), failingClient{}, dispatcher.DefaultConfig()).WithObserver(observer)
	do(t, s.Handler(), http.MethodGet, "/", "")
	rec := do(t, s.Handler(), http.MethodPost, "/parallel-search", `{"queries":[{"collection":"A","graphql":"ok"}]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	require.Len(t, ops, 2)
	assert.Equal(t, "relay", ops[0].Component)
	assert.Equal(t, "request", ops[0].Operation)
	assert.Equal(t, "root", ops[0].Resource)
	assert.Equal(t, http.StatusOK, ops[0].Metadata["code"])
	assert.NoError(t, ops[0].Error)

	assert.Equal(t, "parallel_search", ops[1].Resource)
	assert.Equal(t, http.StatusInternalServerError, ops[1].Metadata["code"])
	assert.Error(t, ops[1].Error)
}

func TestServeAndShutdown(t *testing.T) {
	target := fakeWeaviate(t, http.StatusOK)
	s := newTestServer(t, target, "")
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()

	resp, err := http.Post("http://"+l.Addr().String()+"/parallel-search", "application/json",
		bytes.NewReader([]byte(`{"queries":[{"collection":"A","graphql":"ok"}]}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}

func TestConfig(t *testing.T) {
	t.Setenv("RELAY_ADDRESS", ":9999")
	t.Setenv("RELAY_HEALTH_TIMEOUT", "2s")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Address)
	assert.Equal(t, 2*time.Second, cfg.HealthTimeout)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.MaxBodyBytes)

	filled := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), filled)
}
