// Package suggestion synthesizes book recommendations from a retriever and the
// popularity scorer.
//
// A request moves through a fixed sequence of request-local stages:
//
//	retrieve → filter → score → [personalize] → deduplicate → rank/truncate
//
// Retrieval failures degrade to an empty candidate set; malformed requests are
// rejected before any stage runs.
package suggestion

import (
	"context"

	"github.com/tailored-agentic-units/recommender/agent"
	"github.com/tailored-agentic-units/recommender/orchestrate/messaging"
)

const ID = "suggestion"

// Agent serves the pipeline over the hub.
type Agent struct {
	*agent.Base
	pipeline *Pipeline
}

func New(pipeline *Pipeline, opts ...agent.Option) *Agent {
	a := &Agent{pipeline: pipeline}
	a.Base = agent.NewBase(ID, "Suggestion Agent", map[messaging.Kind]agent.Handler{
		messaging.KindGetRecommendations:             a.handleRecommend,
		messaging.KindGetPersonalizedRecommendations: a.handlePersonalized,
		messaging.KindSemanticSearch:                 a.handleSearch,
		messaging.KindAnalyzeUserPreferences:         a.handleAnalyze,
	}, opts...)
	return a
}

func (a *Agent) Pipeline() *Pipeline {
	return a.pipeline
}

func (a *Agent) handleRecommend(ctx context.Context, msg *messaging.Message) (any, error) {
	req, err := messaging.Decode[Request](msg)
	if err != nil {
		return nil, err
	}
	return a.pipeline.Recommend(ctx, req)
}

func (a *Agent) handlePersonalized(ctx context.Context, msg *messaging.Message) (any, error) {
	req, err := messaging.Decode[Request](msg)
	if err != nil {
		return nil, err
	}
	return a.pipeline.Personalized(ctx, req)
}

func (a *Agent) handleSearch(ctx context.Context, msg *messaging.Message) (any, error) {
	req, err := messaging.Decode[SearchRequest](msg)
	if err != nil {
		return nil, err
	}
	return a.pipeline.Search(ctx, req)
}

func (a *Agent) handleAnalyze(ctx context.Context, msg *messaging.Message) (any, error) {
	req, err := messaging.Decode[AnalyzeRequest](msg)
	if err != nil {
		return nil, err
	}
	return a.pipeline.AnalyzePreferences(req)
}
