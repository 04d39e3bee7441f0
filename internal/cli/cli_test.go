package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/weavebench/fanout/v1/dispatcher"
	"github.com/weavebench/fanout/v1/weaviate"
)

// scriptedClient answers each Dispatch with a result derived from the batch:
// members whose ID starts with "slow" time out, everything else succeeds.
type scriptedClient struct {
	batches []dispatcher.QueryBatch
	err     error
}

func (c *scriptedClient) Dispatch(_ context.Context, b dispatcher.QueryBatch) (*dispatcher.BatchResult, error) {
	c.batches = append(c.batches, b)
	if c.err != nil {
		return nil, c.err
	}
	r := &dispatcher.BatchResult{BatchID: b.ID, TotalLatency: 40 * time.Millisecond}
	for _, m := range b.Members {
		o := dispatcher.MemberOutcome{MemberID: m.ID, Status: dispatcher.StatusSucceeded, StatusCode: 200, Latency: 10 * time.Millisecond}
		if strings.HasPrefix(m.ID, "slow") {
			o = dispatcher.MemberOutcome{MemberID: m.ID, Status: dispatcher.StatusTimedOut, Latency: b.Deadline, Error: dispatcher.CauseDeadlineExceeded}
			r.TimedOutCount++
		} else {
			r.SucceededCount++
		}
		r.Outcomes = append(r.Outcomes, o)
	}
	return r, nil
}

type countingPublisher struct {
	ids []string
}

func (p *countingPublisher) Publish(_ context.Context, r *dispatcher.BatchResult) error {
	p.ids = append(p.ids, r.BatchID)
	return nil
}

func fixtureSets() []weaviate.QuerySet {
	return []weaviate.QuerySet{
		{QueryText: "love and heartbreak", SearchType: "bm25", Queries: []weaviate.CollectionQuery{
			{Collection: "A", GraphQL: "{}"}, {Collection: "B", GraphQL: "{}"},
		}},
		{QueryText: "rain", SearchType: "hybrid_09", Queries: []weaviate.CollectionQuery{
			{Collection: "A", GraphQL: "{}"}, {Collection: "slow-B", GraphQL: "{}"},
		}},
	}
}

func TestReplay(t *testing.T) {
	client := &scriptedClient{}
	pub := &countingPublisher{}
	var out bytes.Buffer

	n := 0
	newID := func() string { n++; return "batch-" + string(rune('0'+n)) }

	totals, err := replay(context.Background(), &out, fixtureSets(), client, pub, 750*time.Millisecond, newID)
	require.NoError(t, err)

	require.Len(t, client.batches, 2)
	assert.Equal(t, "batch-1", client.batches[0].ID)
	assert.Equal(t, 750*time.Millisecond, client.batches[1].Deadline)
	assert.Equal(t, weaviate.GraphQLPath, client.batches[0].Members[0].Request.Path)

	assert.Equal(t, 2, totals.Batches)
	assert.Equal(t, 1, totals.Complete)
	assert.Equal(t, 4, totals.Members)
	assert.Equal(t, 3, totals.Succeeded)
	assert.Equal(t, 1, totals.TimedOut)
	assert.Equal(t, 2, totals.Published)
	assert.Equal(t, 40*time.Millisecond, totals.MeanLatency())
	assert.Equal(t, []string{"batch-1", "batch-2"}, pub.ids)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "2/2 ok")
	assert.Contains(t, lines[1], "1/2 ok")
	assert.Contains(t, lines[1], "(0 failed, 1 timed out)")

	out.Reset()
	totals.print(&out)
	assert.Contains(t, out.String(), "3 succeeded, 0 failed, 1 timed out")
	assert.Contains(t, out.String(), "published: 2")
}

func TestReplayStopsOnDispatchError(t *testing.T) {
	boom := &dispatcher.ValidationError{Reason: "bad"}
	client := &scriptedClient{err: boom}

	_, err := replay(context.Background(), &bytes.Buffer{}, fixtureSets(), client, &countingPublisher{}, time.Second, func() string { return "x" })
	assert.ErrorIs(t, err, dispatcher.ErrValidation)
	assert.Len(t, client.batches, 1)
}

func TestReplayHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedClient{}
	_, err := replay(ctx, &bytes.Buffer{}, fixtureSets(), client, &countingPublisher{}, time.Second, func() string { return "x" })
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, client.batches)
}

func TestGenerate(t *testing.T) {
	gen := weaviate.NewGenerator(nil, "A", "B")

	sets, err := generate(context.Background(), gen, []string{"x", "y"}, "bm25", 5, false)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, []string{"A", "B"}, sets[0].Collections())

	sets, err = generate(context.Background(), gen, []string{"x"}, "bm25", 5, true)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, []string{"multi"}, sets[0].Collections())

	_, err = generate(context.Background(), gen, []string{"x"}, "hybrid_09", 5, false)
	assert.ErrorIs(t, err, weaviate.ErrNoEmbedder)

	_, err = generate(context.Background(), gen, []string{"x"}, "vector", 5, false)
	assert.Error(t, err)

	_, err = generate(context.Background(), gen, []string{"x"}, kindMixed, 5, true)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "fanout "+version+"\n", out.String())
}

func TestRelayAppGraph(t *testing.T) {
	require.NoError(t, fx.ValidateApp(relayModules()))
}
