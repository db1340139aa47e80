// Package classification serves text, emotion and book categorization over
// the hub on top of an external Classifier.
package classification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tailored-agentic-units/recommender/agent"
	"github.com/tailored-agentic-units/recommender/catalog"
	"github.com/tailored-agentic-units/recommender/observability"
	"github.com/tailored-agentic-units/recommender/orchestrate/messaging"
	"github.com/tailored-agentic-units/recommender/validation"
)

const ID = "classification"

var (
	ErrInvalidConfig     = errors.New("invalid classification config")
	ErrClassifierTimeout = errors.New("classifier timed out")
)

type Config struct {
	Timeout time.Duration `json:"timeout"`
}

func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second}
}

func (c *Config) Merge(source *Config) {
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

type ClassifyRequest struct {
	Text       string   `json:"text" validate:"required"`
	Categories []string `json:"categories,omitempty" validate:"omitempty,dive,required"`
}

type ClassificationResult struct {
	OriginalText      string       `json:"original_text"`
	PredictedCategory string       `json:"predicted_category"`
	ConfidenceScores  Distribution `json:"confidence_scores"`
	ClassifiedAt      time.Time    `json:"classified_at"`
}

type EmotionRequest struct {
	Text string `json:"text" validate:"required"`
}

type EmotionResult struct {
	OriginalText      string       `json:"original_text"`
	DominantEmotion   string       `json:"dominant_emotion"`
	EmotionConfidence float64      `json:"emotion_confidence"`
	AllEmotions       Distribution `json:"all_emotions"`
	DetectedAt        time.Time    `json:"detected_at"`
}

type CategorizeRequest struct {
	Book catalog.Record `json:"book_data"`
}

type CategorizationResult struct {
	BookKey           string    `json:"book_key"`
	OriginalCategory  string    `json:"original_category"`
	PredictedCategory string    `json:"predicted_category"`
	SimpleCategory    string    `json:"simple_category"`
	Confidence        float64   `json:"confidence"`
	CategorizedAt     time.Time `json:"categorized_at"`
}

// Agent answers classify_text, detect_emotion and categorize_book. Every
// classifier call is bounded by Config.Timeout.
type Agent struct {
	*agent.Base
	classifier Classifier
	cfg        Config
}

func New(classifier Classifier, cfg Config, opts ...agent.Option) (*Agent, error) {
	merged := DefaultConfig()
	merged.Merge(&cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if classifier == nil {
		return nil, fmt.Errorf("%w: classifier is required", ErrInvalidConfig)
	}

	a := &Agent{classifier: classifier, cfg: merged}
	a.Base = agent.NewBase(ID, "Classification Agent", map[messaging.Kind]agent.Handler{
		messaging.KindClassifyText:   a.handleClassify,
		messaging.KindDetectEmotion:  a.handleEmotion,
		messaging.KindCategorizeBook: a.handleCategorize,
	}, opts...)
	return a, nil
}

func (a *Agent) handleClassify(ctx context.Context, msg *messaging.Message) (any, error) {
	req, err := messaging.Decode[ClassifyRequest](msg)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	labels := req.Categories
	if len(labels) == 0 {
		labels = DefaultLabels
	}

	dist, err := a.call(ctx, "classify", func(ctx context.Context) (Distribution, error) {
		return a.classifier.Classify(ctx, req.Text, labels)
	})
	if err != nil {
		return nil, err
	}

	predicted, _ := dist.Top()
	return ClassificationResult{
		OriginalText:      req.Text,
		PredictedCategory: predicted,
		ConfidenceScores:  dist,
		ClassifiedAt:      time.Now(),
	}, nil
}

func (a *Agent) handleEmotion(ctx context.Context, msg *messaging.Message) (any, error) {
	req, err := messaging.Decode[EmotionRequest](msg)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	dist, err := a.call(ctx, "detect_emotion", func(ctx context.Context) (Distribution, error) {
		return a.classifier.DetectEmotion(ctx, req.Text)
	})
	if err != nil {
		return nil, err
	}

	dominant, confidence := dist.Top()
	return EmotionResult{
		OriginalText:      req.Text,
		DominantEmotion:   dominant,
		EmotionConfidence: confidence,
		AllEmotions:       dist,
		DetectedAt:        time.Now(),
	}, nil
}

// handleCategorize keeps an existing category at full confidence and only
// classifies the description of books that have none.
func (a *Agent) handleCategorize(ctx context.Context, msg *messaging.Message) (any, error) {
	req, err := messaging.Decode[CategorizeRequest](msg)
	if err != nil {
		return nil, err
	}
	book := req.Book

	result := CategorizationResult{
		BookKey:           book.CatalogKey,
		OriginalCategory:  book.Category,
		PredictedCategory: book.Category,
		Confidence:        1.0,
	}

	if book.Category == "" {
		if book.Description == "" {
			return nil, validation.Field("book_data.description", "required", "is required when the book has no category")
		}
		dist, err := a.call(ctx, "categorize", func(ctx context.Context) (Distribution, error) {
			return a.classifier.Classify(ctx, book.Description, CategoryLabels())
		})
		if err != nil {
			return nil, err
		}
		result.PredictedCategory, result.Confidence = dist.Top()
	}

	result.SimpleCategory = SimpleCategory(result.PredictedCategory)
	result.CategorizedAt = time.Now()
	return result, nil
}

// call runs fn under the configured timeout. Failures are reported as
// agent.ErrInternal so they reach the caller as an internal_error response.
func (a *Agent) call(ctx context.Context, op string, fn func(context.Context) (Distribution, error)) (Distribution, error) {
	cctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	type outcome struct {
		dist Distribution
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("classifier panic: %v", r)}
			}
		}()
		dist, err := fn(cctx)
		done <- outcome{dist: dist, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-cctx.Done():
		out.err = fmt.Errorf("%w after %s", ErrClassifierTimeout, a.cfg.Timeout)
	}

	if out.err == nil && len(out.dist) == 0 {
		out.err = errors.New("classifier returned no labels")
	}
	if out.err != nil {
		a.Logger().WarnContext(ctx, "classifier degraded",
			slog.String("op", op),
			slog.String("error", out.err.Error()))
		observability.Emit(ctx, a.Observer(), observability.EventClassifierDegraded, observability.LevelWarning, a.ID(), map[string]any{
			"op":    op,
			"error": out.err.Error(),
		})
		return nil, fmt.Errorf("%w: %s: %w", agent.ErrInternal, op, out.err)
	}
	return out.dist, nil
}
