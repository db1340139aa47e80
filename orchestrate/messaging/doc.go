// Package messaging provides the message primitives agents exchange through
// the hub.
//
// # Kinds
//
// Every message carries a Kind drawn from a closed set. Request kinds
// (get_recommendations, detect_trends, classify_text, ...) each map to the
// result kind a successful reply carries; error_response is the reply to any
// request that failed:
//
//	result, ok := messaging.KindDetectTrends.ResultKind()
//	// result == messaging.KindTrendAnalysisResult
//
// # Construction
//
// Messages are built with a fluent builder. The ID is a UUIDv7 assigned at
// construction and the default priority is PriorityLow:
//
//	msg := messaging.NewMessage("api", "suggestion_001", messaging.KindGetRecommendations, req).
//	    Priority(messaging.PriorityHigh).
//	    Build()
//
//	reply := messaging.NewResponse("suggestion_001", "api", msg.ID,
//	    messaging.KindRecommendationResult, result).Build()
//
// # Payloads
//
// Payloads are typed structs when produced in-process and generic mappings
// when produced by callers outside the module. Decode accepts both:
//
//	req, err := messaging.Decode[suggestion.Request](msg)
//
// A payload that cannot be decoded yields an error wrapping ErrInvalidPayload.
package messaging
