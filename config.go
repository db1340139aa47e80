package recommender

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tailored-agentic-units/recommender/agent/classification"
	"github.com/tailored-agentic-units/recommender/agent/popularity"
	"github.com/tailored-agentic-units/recommender/agent/suggestion"
	"github.com/tailored-agentic-units/recommender/catalog"
	"github.com/tailored-agentic-units/recommender/orchestrate/config"
)

// EnvPrefix marks environment variables read by LoadConfig. A double
// underscore separates nesting levels:
//
//	RECOMMENDER_SUGGESTION__DEFAULT_TOP_K=5  →  suggestion.default_top_k
const EnvPrefix = "RECOMMENDER_"

var ErrInvalidConfig = errors.New("invalid recommender config")

// Config holds one section per component.
type Config struct {
	Hub        config.HubConfig         `json:"hub"`
	Popularity popularity.Config        `json:"popularity"`
	Suggestion suggestion.Config        `json:"suggestion"`
	Retriever  catalog.ResilienceConfig `json:"retriever"`
	Classifier classification.Config    `json:"classifier"`
	Batch      config.ParallelConfig    `json:"batch"`

	// Observer names the registered observer events are logged through, in
	// addition to the metrics observer.
	Observer string `json:"observer"`
}

func DefaultConfig() Config {
	hub := config.DefaultHubConfig()
	hub.Name = "recommender"

	batch := config.DefaultParallelConfig()
	failFast := false
	batch.FailFastNil = &failFast

	return Config{
		Hub:        hub,
		Popularity: popularity.DefaultConfig(),
		Suggestion: suggestion.DefaultConfig(),
		Retriever:  catalog.DefaultResilienceConfig(),
		Classifier: classification.DefaultConfig(),
		Batch:      batch,
		Observer:   "slog",
	}
}

func (c *Config) Merge(source *Config) {
	c.Hub.Merge(&source.Hub)
	c.Popularity.Merge(&source.Popularity)
	c.Suggestion.Merge(&source.Suggestion)
	c.Retriever.Merge(&source.Retriever)
	c.Classifier.Merge(&source.Classifier)
	c.Batch.Merge(&source.Batch)

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

func (c *Config) Validate() error {
	if c.Observer == "" {
		return fmt.Errorf("%w: observer is required", ErrInvalidConfig)
	}
	if c.Hub.MailboxSize <= 0 || c.Hub.HistorySize <= 0 {
		return fmt.Errorf("%w: hub mailbox and history sizes must be positive", ErrInvalidConfig)
	}
	if c.Retriever.Timeout <= 0 || c.Retriever.FailureThreshold == 0 {
		return fmt.Errorf("%w: retriever timeout and failure threshold must be positive", ErrInvalidConfig)
	}
	if err := c.Popularity.Validate(); err != nil {
		return fmt.Errorf("popularity: %w", err)
	}
	if err := c.Suggestion.Validate(); err != nil {
		return fmt.Errorf("suggestion: %w", err)
	}
	if err := c.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	return nil
}

// LoadConfig layers DefaultConfig, the YAML file at path (skipped when path is
// empty) and RECOMMENDER_ environment variables, then validates the result.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "json"), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	merged := DefaultConfig()
	merged.Merge(&cfg)
	if err := merged.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return merged, nil
}

// envKey maps RECOMMENDER_SUGGESTION__DEFAULT_TOP_K to suggestion.default_top_k.
func envKey(name string) string {
	name = strings.TrimPrefix(name, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(name), "__", ".")
}
