// Package batch fans a list of file paths out across a worker pool,
// running one analysis per file. Directories are not walked.
package batch

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mycophonic/transcodescan"
)

// Outcome is one file's analysis result or the error that prevented it.
type Outcome struct {
	Path   string
	Result transcodescan.AnalysisResult
	Err    error
}

// Run analyzes every path in paths concurrently across a worker pool sized
// to GOMAXPROCS, and returns one Outcome per path in input order. Workers
// share no mutable state beyond the immutable Options value.
func Run(ctx context.Context, paths []string, opts transcodescan.Options, logger zerolog.Logger) []Outcome {
	outcomes := make([]Outcome, len(paths))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(paths) {
		workers = len(paths)
	}

	if workers < 1 {
		return outcomes
	}

	jobs := make(chan int)

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				outcomes[i] = analyzeOne(ctx, paths[i], opts, logger)
			}
		}()
	}

	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()

			return outcomes
		}
	}

	close(jobs)
	wg.Wait()

	return outcomes
}

func analyzeOne(ctx context.Context, path string, opts transcodescan.Options, logger zerolog.Logger) Outcome {
	f, err := os.Open(path)
	if err != nil {
		return Outcome{Path: path, Err: fmt.Errorf("opening %s: %w", path, err)}
	}
	defer f.Close()

	result, err := transcodescan.Analyze(ctx, path, f, opts, logger)
	if err != nil {
		return Outcome{Path: path, Err: err}
	}

	return Outcome{Path: path, Result: result}
}
