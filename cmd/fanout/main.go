// Command fanout runs the parallel search relay and replays query-set fixtures
// against a Weaviate cluster.
package main

import (
	"os"

	"github.com/weavebench/fanout/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
