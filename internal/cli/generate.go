package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weavebench/fanout/v1/embedding"
	"github.com/weavebench/fanout/v1/logger"
	"github.com/weavebench/fanout/v1/weaviate"
)

const kindMixed = "mixed"

var (
	generateOut         string
	generateKind        string
	generateLimit       int
	generateCollections []string
	generateMulti       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a query-set fixture for the stock lyrics searches",
	Long: "Renders the stock searches as BM25 or hybrid GraphQL queries, one per collection,\n" +
		"and writes them as a fixture for replay. Hybrid kinds need EMBEDDING_* configuration.",
	RunE: runGenerateCmd,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "-", "output file, - for stdout")
	generateCmd.Flags().StringVarP(&generateKind, "kind", "k", string(weaviate.KindBM25), "bm25, hybrid_01, hybrid_09 or mixed")
	generateCmd.Flags().IntVarP(&generateLimit, "limit", "n", 10, "results per collection")
	generateCmd.Flags().StringSliceVar(&generateCollections, "collections", nil, "collections to search (default: all lyrics collections)")
	generateCmd.Flags().BoolVar(&generateMulti, "multi", false, "render one multi-collection query per search instead of one per collection")
}

func runGenerateCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var embedder weaviate.Embedder
	if generateKind != string(weaviate.KindBM25) {
		logCfg, err := logger.NewConfig()
		if err != nil {
			return err
		}
		ecfg, err := embedding.NewConfig()
		if err != nil {
			return err
		}
		client, err := embedding.NewClient(ecfg)
		if err != nil {
			return err
		}
		defer client.Close()
		embedder = client.WithLogger(logger.NewLoggerClient(logCfg))
	}

	gen := weaviate.NewGenerator(embedder, generateCollections...)
	sets, err := generate(ctx, gen, weaviate.SearchTexts, generateKind, generateLimit, generateMulti)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if generateOut != "-" {
		f, err := os.Create(generateOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := weaviate.SaveQuerySets(out, sets); err != nil {
		return err
	}
	if generateOut != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d query sets over %s to %s\n",
			len(sets), strings.Join(gen.Collections(), ", "), generateOut)
	}
	return nil
}

func generate(ctx context.Context, gen *weaviate.Generator, texts []string, kind string, limit int, multi bool) ([]weaviate.QuerySet, error) {
	if kind == kindMixed {
		if multi {
			return nil, fmt.Errorf("--multi cannot be combined with --kind mixed")
		}
		return gen.MixedSets(ctx, texts, limit)
	}

	k, err := weaviate.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	sets := make([]weaviate.QuerySet, 0, len(texts))
	for _, text := range texts {
		var set weaviate.QuerySet
		if multi {
			set, err = gen.MultiCollectionSet(ctx, text, k, limit)
		} else {
			set, err = gen.ParallelSet(ctx, text, k, limit)
		}
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}
