// Package workflows runs ordered stages and independent tasks.
//
// ProcessChain folds a slice of steps over an accumulated state, stopping at the
// first failing step. The recommendation pipeline uses it to run retrieve, filter,
// score, personalize, deduplicate and rank over a request-local working set:
//
//	result, err := workflows.ProcessChain(ctx, cfg, stages, working, runStage, nil)
//	if err != nil {
//	    var chainErr *workflows.ChainError[stage, *workingSet]
//	    if errors.As(err, &chainErr) {
//	        log.Printf("stage %v failed", chainErr.Item)
//	    }
//	}
//
// ProcessParallel fans independent items out to a bounded worker pool. Results are
// index-aligned with the input so callers can pair each outcome with its request:
//
//	result, err := workflows.ProcessParallel(ctx, cfg, requests, recommend, nil)
//	for _, taskErr := range result.Errors {
//	    log.Printf("request %d failed: %v", taskErr.Index, taskErr.Err)
//	}
//
// Both functions resolve their observer by name from the observability registry
// and emit start and completion events for the whole run and for each unit.
package workflows
