// Package parallel runs independent jobs with a concurrency limit and
// reports per-job progress.
package parallel

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/msalah0e/meshview/internal/ui"
	"golang.org/x/sync/errgroup"
)

// Result holds the outcome of a task.
type Result struct {
	Name    string
	OK      bool
	Err     error
	Output  string
	Elapsed time.Duration
}

// Task is one unit of work. Output is a short human-readable summary.
type Task struct {
	Name string
	Fn   func(ctx context.Context) (string, error)
}

// Run executes tasks with at most concurrency running at once and returns
// results in submission order. A failing task never cancels the others.
// Progress lines go to progress; pass nil to run quietly. Tasks not yet
// started when ctx is done are reported with ctx's error.
func Run(ctx context.Context, tasks []Task, concurrency int, progress io.Writer) []Result {
	if concurrency < 1 {
		concurrency = 4
	}
	if progress == nil {
		progress = io.Discard
	}

	results := make([]Result, len(tasks))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for i, task := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Name: task.Name, Err: err}
				return nil
			}

			start := time.Now()
			output, err := task.Fn(ctx)
			elapsed := time.Since(start)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[i] = Result{Name: task.Name, Err: err, Output: output, Elapsed: elapsed}
				fmt.Fprintf(progress, "  %s %s %s\n", ui.StatusIcon(false), task.Name, ui.Bad.Sprintf("(%v)", err))
				return nil
			}
			results[i] = Result{Name: task.Name, OK: true, Output: output, Elapsed: elapsed}
			fmt.Fprintf(progress, "  %s %s %s\n", ui.StatusIcon(true), task.Name, ui.Subtle.Sprintf("%s %.2fs", output, elapsed.Seconds()))
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// FirstError returns the first failed result's error, wrapped with its name.
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("%s: %w", r.Name, r.Err)
		}
	}
	return nil
}
