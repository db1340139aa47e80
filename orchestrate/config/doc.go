// Package config provides configuration structures for orchestration components.
//
// This package defines configuration types for the hub and the workflow
// runners, establishing sensible defaults while allowing customization for
// different deployment scenarios.
//
// # Hub Configuration
//
// HubConfig defines settings for hub instances:
//
//	cfg := config.HubConfig{
//	    Name:           "recommender",
//	    MailboxSize:    256,
//	    HistorySize:    1000,
//	    DefaultTimeout: 30 * time.Second,
//	    Logger:         slog.New(slog.NewJSONHandler(os.Stdout, nil)),
//	}
//
//	h := hub.New(ctx, cfg)
//
// MailboxSize bounds each registered agent's pending queue; a full mailbox
// makes delivery fail the same way an unknown receiver does. HistorySize
// bounds the routed-message log, evicting the oldest entry first.
// DefaultTimeout applies to Dispatch when the caller's context carries no
// deadline.
//
// # Design Principles
//
//   - Configuration only exists during initialization
//   - Does not persist into runtime components
//   - Validation happens at point of use (hub/workflows packages)
//   - No circular dependencies with domain packages
//
// # Configuration Merging
//
// All configuration types support a Merge pattern. This enables layered
// configuration where loaded configs merge over defaults:
//
//	cfg := config.DefaultHubConfig()
//	var loaded config.HubConfig
//	json.Unmarshal(data, &loaded)
//	cfg.Merge(&loaded)
//
// Merge semantics by field type:
//
//   - Strings: Merge if source is non-empty
//   - Integers: Merge if source is greater than zero
//   - Durations: Merge if source is greater than zero
//   - Pointers: Merge if source is non-nil
//   - Nested configs: Recursive merge
//
// # Boolean Fields with Non-False Defaults
//
// For boolean fields where the default is true (e.g., ParallelConfig.FailFast),
// a pointer type (*bool) is used with an accessor method to distinguish between:
//
//   - nil: Field not specified, accessor returns default value
//   - &false: Explicitly set to false, accessor returns false
//   - &true: Explicitly set to true, accessor returns true
//
// The convention is to name the field with a "Nil" suffix (e.g., FailFastNil)
// and provide an accessor method with the original name (e.g., FailFast()).
// Unspecified boolean fields in a partial config then cannot override a true
// default with their zero value.
package config
