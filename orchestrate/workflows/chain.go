package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/recommender/observability"
	"github.com/tailored-agentic-units/recommender/orchestrate/config"
)

// StepProcessor applies one step to the accumulated state and returns the
// updated state. A non-nil error stops the chain.
type StepProcessor[TItem, TContext any] func(
	ctx context.Context,
	item TItem,
	state TContext,
) (TContext, error)

// ProgressFunc is called after each successful step or task with the number
// completed so far, the total, and the latest state or result.
type ProgressFunc[T any] func(completed int, total int, latest T)

// ChainResult is the outcome of ProcessChain.
//
// Intermediate is populated only when ChainConfig.CaptureIntermediateStates is
// set; index 0 holds the initial state and index N the state after step N.
type ChainResult[TContext any] struct {
	Final        TContext
	Intermediate []TContext
	Steps        int
}

// ProcessChain runs processor over items in order, threading state from one
// step into the next. Cancellation is checked before every step. On failure the
// returned result carries the state reached by the last successful step and the
// error is a *ChainError.
//
// Step events carry a "step" attribute holding the item's fmt.Stringer form when
// it implements one, and "duration_ms" for completed steps.
func ProcessChain[TItem, TContext any](
	ctx context.Context,
	cfg config.ChainConfig,
	items []TItem,
	initial TContext,
	processor StepProcessor[TItem, TContext],
	progress ProgressFunc[TContext],
) (ChainResult[TContext], error) {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return ChainResult[TContext]{}, fmt.Errorf("failed to resolve observer: %w", err)
	}

	const source = "workflows.ProcessChain"
	started := time.Now()

	observability.Emit(ctx, observer, EventChainStart, observability.LevelVerbose, source, map[string]any{
		"item_count":           len(items),
		"capture_intermediate": cfg.CaptureIntermediateStates,
	})

	result := ChainResult[TContext]{Final: initial}
	if cfg.CaptureIntermediateStates {
		result.Intermediate = make([]TContext, 0, len(items)+1)
		result.Intermediate = append(result.Intermediate, initial)
	}

	complete := func(steps int, errType string) {
		data := map[string]any{
			"steps_completed": steps,
			"duration_ms":     time.Since(started).Milliseconds(),
			"error":           errType != "",
		}
		level := observability.LevelVerbose
		if errType != "" {
			data["error_type"] = errType
			level = observability.LevelWarning
		}
		observability.Emit(ctx, observer, EventChainComplete, level, source, data)
	}

	state := initial
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			complete(i, "cancellation")
			return result, &ChainError[TItem, TContext]{
				StepIndex: i,
				Item:      item,
				State:     state,
				Err:       fmt.Errorf("processing cancelled: %w", err),
			}
		}

		name := stepName(item, i)
		observability.Emit(ctx, observer, EventStepStart, observability.LevelVerbose, source, map[string]any{
			"step":        name,
			"step_index":  i,
			"total_steps": len(items),
		})

		stepStarted := time.Now()
		updated, err := processor(ctx, item, state)
		stepData := map[string]any{
			"step":        name,
			"step_index":  i,
			"total_steps": len(items),
			"duration_ms": time.Since(stepStarted).Milliseconds(),
			"error":       err != nil,
		}

		if err != nil {
			observability.Emit(ctx, observer, EventStepComplete, observability.LevelWarning, source, stepData)
			complete(i, "processor")
			return result, &ChainError[TItem, TContext]{
				StepIndex: i,
				Item:      item,
				State:     state,
				Err:       err,
			}
		}

		observability.Emit(ctx, observer, EventStepComplete, observability.LevelVerbose, source, stepData)

		state = updated
		result.Final = state
		result.Steps = i + 1
		if cfg.CaptureIntermediateStates {
			result.Intermediate = append(result.Intermediate, state)
		}

		if progress != nil {
			progress(i+1, len(items), state)
		}
	}

	complete(len(items), "")
	return result, nil
}

func stepName(item any, index int) string {
	if s, ok := item.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("step-%d", index)
}
