package observability

// Hub events.
const (
	EventAgentRegister    EventType = "hub.agent.register"
	EventAgentReplace     EventType = "hub.agent.replace"
	EventAgentUnregister  EventType = "hub.agent.unregister"
	EventRoute            EventType = "hub.route"
	EventRouteDrop        EventType = "hub.route.drop"
	EventBroadcast        EventType = "hub.broadcast"
	EventDispatchComplete EventType = "hub.dispatch.complete"
)

// Agent events.
const (
	EventMessageHandle  EventType = "agent.message.handle"
	EventMessageUnknown EventType = "agent.message.unknown"
	EventMessageFailed  EventType = "agent.message.failed"
)

// Pipeline events.
const (
	EventPipelineStart      EventType = "pipeline.start"
	EventPipelineComplete   EventType = "pipeline.complete"
	EventStageComplete      EventType = "pipeline.stage.complete"
	EventRetrievalDegraded  EventType = "pipeline.retrieval.degraded"
	EventBatchStart         EventType = "pipeline.batch.start"
	EventBatchComplete      EventType = "pipeline.batch.complete"
	EventClassifierDegraded EventType = "classifier.degraded"
)

// Retriever events.
const (
	EventRetrieverFailure      EventType = "retriever.failure"
	EventRetrieverBreakerState EventType = "retriever.breaker.state"
)
