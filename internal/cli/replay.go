package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/weavebench/fanout/v1/dispatcher"
	"github.com/weavebench/fanout/v1/logger"
	"github.com/weavebench/fanout/v1/sink"
	"github.com/weavebench/fanout/v1/tracer"
	"github.com/weavebench/fanout/v1/weaviate"
)

var (
	replayQueries  string
	replayLimit    int
	replayDeadline time.Duration
	replayPublish  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Dispatch every query set in a fixture file once",
	Long: "Loads a query-set fixture, dispatches each set as one batch against DISPATCHER_ENDPOINT\n" +
		"and prints one line per batch followed by totals.",
	RunE: runReplayCmd,
}

func init() {
	replayCmd.Flags().StringVarP(&replayQueries, "queries", "q", "", "query-set fixture file (required)")
	replayCmd.Flags().IntVarP(&replayLimit, "limit", "n", 0, "replay at most N query sets (0 = all)")
	replayCmd.Flags().DurationVarP(&replayDeadline, "deadline", "d", 0, "batch deadline (default DISPATCHER_DEFAULT_DEADLINE)")
	replayCmd.Flags().BoolVar(&replayPublish, "publish", false, "publish results to Kafka even if SINK_KAFKA_ENABLED is unset")
	_ = replayCmd.MarkFlagRequired("queries")
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sets, err := weaviate.LoadQuerySetsFile(replayQueries)
	if err != nil {
		return err
	}
	if replayLimit > 0 && replayLimit < len(sets) {
		sets = sets[:replayLimit]
	}

	logCfg, err := logger.NewConfig()
	if err != nil {
		return err
	}
	log := logger.NewLoggerClient(logCfg)
	defer func() { _ = log.Zap.Sync() }()

	dcfg, err := dispatcher.NewConfig()
	if err != nil {
		return err
	}
	if err := dcfg.Validate(); err != nil {
		return err
	}
	pool := dispatcher.NewPool(dcfg)
	defer pool.Close()
	d := dispatcher.NewDispatcher(dcfg, pool).WithLogger(log)

	tcfg, err := tracer.NewConfig()
	if err != nil {
		return err
	}
	if tcfg.EnableExport {
		t, err := tracer.NewClient(tcfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = t.Shutdown(context.Background()) }()
		d.WithTracer(t)
	}

	var pub sink.Publisher = sink.Discard
	scfg, err := sink.NewConfig()
	if err != nil {
		return err
	}
	if replayPublish || scfg.Enabled {
		scfg.Enabled = true
		if err := scfg.Validate(); err != nil {
			return err
		}
		s, err := sink.NewSink(scfg, log)
		if err != nil {
			return err
		}
		defer s.Close()
		pub = s
	}

	deadline := replayDeadline
	if deadline <= 0 {
		deadline = d.Config().DefaultDeadline
	}

	totals, err := replay(ctx, cmd.OutOrStdout(), sets, d, pub, deadline, uuid.NewString)
	if err != nil {
		return err
	}
	totals.print(cmd.OutOrStdout())
	return nil
}

type replayTotals struct {
	Batches   int
	Complete  int
	Members   int
	Succeeded int
	Failed    int
	TimedOut  int
	Published int

	totalLatency time.Duration
	MaxLatency   time.Duration
}

// MeanLatency is the average batch latency.
func (t replayTotals) MeanLatency() time.Duration {
	if t.Batches == 0 {
		return 0
	}
	return t.totalLatency / time.Duration(t.Batches)
}

// replay dispatches the sets one after the other. It stops early only when ctx
// is cancelled or a batch is rejected as invalid.
func replay(ctx context.Context, out io.Writer, sets []weaviate.QuerySet, client dispatcher.Client,
	pub sink.Publisher, deadline time.Duration, newID func() string,
) (replayTotals, error) {
	var totals replayTotals
	for i, set := range sets {
		if ctx.Err() != nil {
			return totals, ctx.Err()
		}

		batch, err := set.Batch(newID(), deadline)
		if err != nil {
			return totals, err
		}
		result, err := client.Dispatch(ctx, batch)
		if err != nil {
			return totals, fmt.Errorf("query set %d: %w", i+1, err)
		}

		totals.Batches++
		totals.Members += len(result.Outcomes)
		totals.Succeeded += result.SucceededCount
		totals.Failed += result.FailedCount
		totals.TimedOut += result.TimedOutCount
		totals.totalLatency += result.TotalLatency
		if result.TotalLatency > totals.MaxLatency {
			totals.MaxLatency = result.TotalLatency
		}
		if result.Complete() {
			totals.Complete++
		}

		if err := pub.Publish(ctx, result); err != nil {
			fmt.Fprintln(out, color.RedString("  publish failed: %v", err))
		} else if pub != sink.Discard {
			totals.Published++
		}

		printBatchLine(out, i+1, len(sets), set, result)
	}
	return totals, nil
}

func printBatchLine(out io.Writer, n, total int, set weaviate.QuerySet, r *dispatcher.BatchResult) {
	paint := color.GreenString
	switch {
	case r.SucceededCount == 0:
		paint = color.RedString
	case !r.Complete():
		paint = color.YellowString
	}

	label := set.SearchType
	if label == "" {
		label = "query"
	}
	fmt.Fprintf(out, "[%*d/%d] %-10s %-32q %s %8.1fms",
		len(fmt.Sprint(total)), n, total, label, truncate(set.QueryText, 30),
		paint("%d/%d ok", r.SucceededCount, len(r.Outcomes)), durationMs(r.TotalLatency))
	if r.FailedCount > 0 || r.TimedOutCount > 0 {
		fmt.Fprintf(out, "  (%d failed, %d timed out)", r.FailedCount, r.TimedOutCount)
	}
	fmt.Fprintln(out)
}

func (t replayTotals) print(out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, color.New(color.Bold).Sprint("Summary"))
	fmt.Fprintf(out, "  batches:   %d (%d complete)\n", t.Batches, t.Complete)
	fmt.Fprintf(out, "  members:   %d succeeded, %d failed, %d timed out\n", t.Succeeded, t.Failed, t.TimedOut)
	fmt.Fprintf(out, "  latency:   mean %.1fms, max %.1fms\n", durationMs(t.MeanLatency()), durationMs(t.MaxLatency))
	if t.Published > 0 {
		fmt.Fprintf(out, "  published: %d\n", t.Published)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
