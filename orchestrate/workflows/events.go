package workflows

import "github.com/tailored-agentic-units/recommender/observability"

// Chain events. Step events carry the step name and index.
const (
	EventChainStart    observability.EventType = "workflow.chain.start"
	EventChainComplete observability.EventType = "workflow.chain.complete"
	EventStepStart     observability.EventType = "workflow.step.start"
	EventStepComplete  observability.EventType = "workflow.step.complete"
)

// Worker pool events. Worker events carry worker_id and item_index.
const (
	EventParallelStart    observability.EventType = "workflow.parallel.start"
	EventParallelComplete observability.EventType = "workflow.parallel.complete"
	EventWorkerStart      observability.EventType = "workflow.worker.start"
	EventWorkerComplete   observability.EventType = "workflow.worker.complete"
)
