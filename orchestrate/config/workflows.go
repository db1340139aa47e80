package config

// ChainConfig configures workflows.ProcessChain.
type ChainConfig struct {
	// CaptureIntermediateStates keeps the state after every step in
	// ChainResult.Intermediate.
	CaptureIntermediateStates bool `json:"capture_intermediate_states"`

	// Observer names a registered observer ("noop", "slog", ...).
	Observer string `json:"observer"`
}

func DefaultChainConfig() ChainConfig {
	return ChainConfig{Observer: "slog"}
}

func (c *ChainConfig) Merge(source *ChainConfig) {
	if source.CaptureIntermediateStates {
		c.CaptureIntermediateStates = true
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// ParallelConfig configures workflows.ProcessParallel.
//
// MaxWorkers > 0 fixes the pool size (never above the item count). Otherwise
// the pool is min(NumCPU*2, WorkerCap, items). FailFast defaults to true when
// unset; an explicit false collects every task error instead of cancelling.
type ParallelConfig struct {
	MaxWorkers  int    `json:"max_workers"`
	WorkerCap   int    `json:"worker_cap"`
	FailFastNil *bool  `json:"fail_fast"`
	Observer    string `json:"observer"`
}

func (c *ParallelConfig) FailFast() bool {
	if c.FailFastNil == nil {
		return true
	}
	return *c.FailFastNil
}

func DefaultParallelConfig() ParallelConfig {
	failFast := true
	return ParallelConfig{
		WorkerCap:   16,
		FailFastNil: &failFast,
		Observer:    "slog",
	}
}

func (c *ParallelConfig) Merge(source *ParallelConfig) {
	if source.MaxWorkers > 0 {
		c.MaxWorkers = source.MaxWorkers
	}

	if source.WorkerCap > 0 {
		c.WorkerCap = source.WorkerCap
	}

	if source.FailFastNil != nil {
		c.FailFastNil = source.FailFastNil
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
