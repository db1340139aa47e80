package config

import (
	"log/slog"
	"time"
)

// HubConfig defines configuration for a Hub instance.
type HubConfig struct {
	// Hub identity
	Name string `json:"name"`

	// Delivery settings
	MailboxSize    int           `json:"mailbox_size"`
	HistorySize    int           `json:"history_size"`
	DefaultTimeout time.Duration `json:"default_timeout"`

	// Observability
	Observer string       `json:"observer"`
	Logger   *slog.Logger `json:"-"`
}

// DefaultHubConfig returns a HubConfig with sensible defaults.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		Name:           "default",
		MailboxSize:    256,
		HistorySize:    1000,
		DefaultTimeout: 30 * time.Second,
		Observer:       "slog",
		Logger:         slog.Default(),
	}
}

func (c *HubConfig) Merge(source *HubConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.MailboxSize > 0 {
		c.MailboxSize = source.MailboxSize
	}

	if source.HistorySize > 0 {
		c.HistorySize = source.HistorySize
	}

	if source.DefaultTimeout > 0 {
		c.DefaultTimeout = source.DefaultTimeout
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.Logger != nil {
		c.Logger = source.Logger
	}
}
