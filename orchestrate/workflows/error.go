package workflows

import (
	"fmt"
	"sort"
	"strings"
)

// ChainError reports the step at which ProcessChain stopped, together with the
// item and the state that step received.
type ChainError[TItem, TContext any] struct {
	StepIndex int
	Item      TItem
	State     TContext
	Err       error
}

func (e *ChainError[TItem, TContext]) Error() string {
	return fmt.Sprintf("chain failed at step %d: %v", e.StepIndex, e.Err)
}

func (e *ChainError[TItem, TContext]) Unwrap() error {
	return e.Err
}

// TaskError is one failed ProcessParallel item. Index is its position in the
// input slice.
type TaskError[TItem any] struct {
	Index int
	Item  TItem
	Err   error
}

// ParallelError aggregates the task failures of a ProcessParallel run.
// Unwrap exposes every underlying error to errors.Is and errors.As.
type ParallelError[TItem any] struct {
	Errors []TaskError[TItem]
}

// Error summarises failures. A single failure is reported with its index;
// several are grouped by message, most frequent first.
func (e *ParallelError[TItem]) Error() string {
	switch len(e.Errors) {
	case 0:
		return "parallel execution failed"
	case 1:
		return fmt.Sprintf("parallel execution failed: item %d: %v", e.Errors[0].Index, e.Errors[0].Err)
	}

	counts := make(map[string]int)
	for _, taskErr := range e.Errors {
		counts[taskErr.Err.Error()]++
	}

	messages := make([]string, 0, len(counts))
	for msg := range counts {
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool {
		if counts[messages[i]] != counts[messages[j]] {
			return counts[messages[i]] > counts[messages[j]]
		}
		return messages[i] < messages[j]
	})

	parts := make([]string, len(messages))
	for i, msg := range messages {
		unit := "items"
		if counts[msg] == 1 {
			unit = "item"
		}
		parts[i] = fmt.Sprintf("'%s' (%d %s)", msg, counts[msg], unit)
	}

	return fmt.Sprintf(
		"parallel execution failed: %d items failed with %d error types: %s",
		len(e.Errors), len(counts), strings.Join(parts, ", "),
	)
}

func (e *ParallelError[TItem]) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, taskErr := range e.Errors {
		errs[i] = taskErr.Err
	}
	return errs
}
