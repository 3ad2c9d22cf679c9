/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

// Package config binds edunet settings to viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/abrekhov/edunet/pkg/negotiation"
	"github.com/abrekhov/edunet/pkg/transfer"
	"github.com/abrekhov/edunet/pkg/transport"
	"github.com/spf13/viper"
)

// Keys understood in the config file, as flags and as EDUNET_* variables.
const (
	KeyICEServers    = "ice-servers"
	KeyAnswerTimeout = "answer-timeout"
	KeyTicketFormat  = "ticket-format"
	KeyDownloadDir   = "download-dir"
	KeyMaxFileSize   = "max-file-size"
	KeyPoliteOffers  = "polite-offers"
)

// Ticket text formats.
const (
	FormatJSON    = "json"
	FormatCompact = "compact"
)

// EnvPrefix prefixes environment overrides, e.g. EDUNET_ANSWER_TIMEOUT.
const EnvPrefix = "EDUNET"

// Config holds the resolved settings.
type Config struct {
	ICEServers    []string      `mapstructure:"ice-servers"`
	AnswerTimeout time.Duration `mapstructure:"answer-timeout"`
	TicketFormat  string        `mapstructure:"ticket-format"`
	DownloadDir   string        `mapstructure:"download-dir"`
	MaxFileSize   int64         `mapstructure:"max-file-size"`
	PoliteOffers  bool          `mapstructure:"polite-offers"`
}

// SetDefaults registers defaults and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyICEServers, transport.DefaultICEServers)
	v.SetDefault(KeyAnswerTimeout, negotiation.DefaultAnswerTimeout)
	v.SetDefault(KeyTicketFormat, FormatCompact)
	v.SetDefault(KeyDownloadDir, ".")
	v.SetDefault(KeyMaxFileSize, transfer.DefaultMaxFileSize)
	v.SetDefault(KeyPoliteOffers, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	// A comma separated env value arrives as a single element.
	if len(c.ICEServers) == 1 && strings.Contains(c.ICEServers[0], ",") {
		c.ICEServers = strings.Split(c.ICEServers[0], ",")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the session cannot run with.
func (c *Config) Validate() error {
	switch c.TicketFormat {
	case FormatJSON, FormatCompact:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", KeyTicketFormat, FormatJSON, FormatCompact, c.TicketFormat)
	}
	if c.AnswerTimeout < 0 {
		return fmt.Errorf("%s cannot be negative", KeyAnswerTimeout)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("%s must be positive", KeyMaxFileSize)
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("%s cannot be empty", KeyDownloadDir)
	}
	for _, s := range c.ICEServers {
		if !strings.HasPrefix(s, "stun:") && !strings.HasPrefix(s, "turn:") && !strings.HasPrefix(s, "turns:") {
			return fmt.Errorf("unsupported ICE server URL %q", s)
		}
	}
	return nil
}

// EngineOptions maps the settings onto negotiation options.
func (c *Config) EngineOptions() []negotiation.Option {
	opts := []negotiation.Option{negotiation.WithAnswerTimeout(c.AnswerTimeout)}
	if c.PoliteOffers {
		opts = append(opts, negotiation.WithPoliteOffers())
	}
	return opts
}
