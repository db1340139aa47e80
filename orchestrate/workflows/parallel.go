package workflows

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tailored-agentic-units/recommender/observability"
	"github.com/tailored-agentic-units/recommender/orchestrate/config"
)

// TaskProcessor handles one independent item.
type TaskProcessor[TItem, TResult any] func(ctx context.Context, item TItem) (TResult, error)

// ParallelResult is the outcome of ProcessParallel.
//
// Results is aligned with the input slice. Entries for items that failed, or
// never ran because a fail-fast run was cancelled, hold the zero value. Errors
// is sorted by Index.
type ParallelResult[TItem, TResult any] struct {
	Results   []TResult
	Errors    []TaskError[TItem]
	Processed int
}

// Succeeded reports how many items completed without error.
func (r ParallelResult[TItem, TResult]) Succeeded() int {
	return r.Processed - len(r.Errors)
}

// Failed reports whether the item at index produced an error.
func (r ParallelResult[TItem, TResult]) Failed(index int) bool {
	i := sort.Search(len(r.Errors), func(i int) bool { return r.Errors[i].Index >= index })
	return i < len(r.Errors) && r.Errors[i].Index == index
}

// ProcessParallel runs processor over items on a bounded worker pool.
//
// With FailFast the first failure cancels the shared context and the call returns
// a *ParallelError. Without it every item runs and a *ParallelError is returned
// only when all of them failed. Cancellation of ctx itself is reported as a
// wrapped context error. Partial results are returned in every case.
func ProcessParallel[TItem, TResult any](
	ctx context.Context,
	cfg config.ParallelConfig,
	items []TItem,
	processor TaskProcessor[TItem, TResult],
	progress ProgressFunc[TResult],
) (ParallelResult[TItem, TResult], error) {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return ParallelResult[TItem, TResult]{}, fmt.Errorf("failed to resolve observer: %w", err)
	}

	const source = "workflows.ProcessParallel"
	started := time.Now()
	failFast := cfg.FailFast()
	workers := workerCount(cfg.MaxWorkers, cfg.WorkerCap, len(items))

	observability.Emit(ctx, observer, EventParallelStart, observability.LevelInfo, source, map[string]any{
		"item_count":   len(items),
		"worker_count": workers,
		"fail_fast":    failFast,
	})

	result := ParallelResult[TItem, TResult]{
		Results: make([]TResult, len(items)),
		Errors:  []TaskError[TItem]{},
	}

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if failFast {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		completed atomic.Int32
		queue     = make(chan int, len(items))
	)

	for i := range items {
		queue <- i
	}
	close(queue)

	for w := range workers {
		wg.Go(func() {
			for index := range queue {
				if runCtx.Err() != nil {
					return
				}

				observability.Emit(runCtx, observer, EventWorkerStart, observability.LevelVerbose, source, map[string]any{
					"worker_id":  w,
					"item_index": index,
				})

				out, err := processor(runCtx, items[index])

				mu.Lock()
				result.Processed++
				if err != nil {
					result.Errors = append(result.Errors, TaskError[TItem]{Index: index, Item: items[index], Err: err})
				} else {
					result.Results[index] = out
				}
				mu.Unlock()

				observability.Emit(runCtx, observer, EventWorkerComplete, observability.LevelVerbose, source, map[string]any{
					"worker_id":  w,
					"item_index": index,
					"error":      err != nil,
				})

				if err != nil {
					if failFast {
						cancel()
					}
					continue
				}

				done := int(completed.Add(1))
				if progress != nil {
					progress(done, len(items), out)
				}
			}
		})
	}
	wg.Wait()

	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].Index < result.Errors[j].Index
	})

	var runErr error
	switch {
	case ctx.Err() != nil:
		runErr = fmt.Errorf("parallel execution cancelled: %w", ctx.Err())
	case len(result.Errors) > 0 && (failFast || result.Succeeded() == 0):
		runErr = &ParallelError[TItem]{Errors: result.Errors}
	}

	level := observability.LevelInfo
	if runErr != nil {
		level = observability.LevelWarning
	}
	observability.Emit(ctx, observer, EventParallelComplete, level, source, map[string]any{
		"items_processed": result.Processed,
		"items_failed":    len(result.Errors),
		"duration_ms":     time.Since(started).Milliseconds(),
		"error":           runErr != nil,
	})

	return result, runErr
}

func workerCount(maxWorkers, workerCap, itemCount int) int {
	if maxWorkers > 0 {
		return max(min(maxWorkers, itemCount), 1)
	}
	if workerCap <= 0 {
		workerCap = runtime.NumCPU() * 2
	}
	return max(min(runtime.NumCPU()*2, workerCap, itemCount), 1)
}
