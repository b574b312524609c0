package ownref

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/randalmurphal/ownref/pkg/ownref/config"
)

// Policy selects the read-side locking discipline for an owner.
type Policy int

const (
	// PolicyCached gives each reader an atomic snapshot of the value.
	// Lock never blocks and readers never contend with each other;
	// a reader sees a Reset on its next Lock. This is the default.
	PolicyCached Policy = iota

	// PolicyStrict serializes all reads through the owner. Lock blocks
	// while another reader holds the value and always returns the
	// current value. Reset and Close wait on the same serialization
	// point instead of spinning.
	PolicyStrict
)

// String returns the config-file spelling of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	default:
		return "cached"
	}
}

// ParsePolicy converts a config-file spelling into a Policy.
// Accepted values (case-insensitive): "cached", "strict".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cached":
		return PolicyCached, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return PolicyCached, fmt.Errorf("unknown policy %q", s)
	}
}

// ownerConfig holds construction-time owner settings.
type ownerConfig struct {
	name    string
	policy  Policy
	logger  *slog.Logger
	metrics bool
	tracing bool
}

// defaultOwnerConfig returns the default owner settings.
func defaultOwnerConfig() ownerConfig {
	return ownerConfig{policy: PolicyCached}
}

// OwnerOption configures an owner at construction time.
type OwnerOption func(*ownerConfig)

// WithName sets a stable identifier for the owner, used in logs,
// metrics, and traces. Default: a generated "own-xxxxxxxx" ID.
func WithName(name string) OwnerOption {
	return func(c *ownerConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithPolicy selects the read-side locking discipline.
// Default: PolicyCached.
func WithPolicy(p Policy) OwnerOption {
	return func(c *ownerConfig) {
		c.policy = p
	}
}

// WithLogger sets a structured logger for lifecycle events
// (attach, detach, reset, teardown). Default: no logging.
func WithLogger(logger *slog.Logger) OwnerOption {
	return func(c *ownerConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics for this owner.
// Uses the global meter provider. Default: disabled (no-op recorder).
func WithMetrics(enabled bool) OwnerOption {
	return func(c *ownerConfig) {
		c.metrics = enabled
	}
}

// WithTracing enables OpenTelemetry spans for Reset and Close.
// Uses the global tracer provider. Default: disabled (no-op spans).
func WithTracing(enabled bool) OwnerOption {
	return func(c *ownerConfig) {
		c.tracing = enabled
	}
}

// FromConfig translates a loaded configuration into owner options.
//
// Recognized keys:
//   - name: string, owner identifier
//   - policy: "cached" or "strict" (unknown values fall back to cached)
//   - metrics: bool
//   - tracing: bool
//
// Example:
//
//	cfg, err := config.FromFile("ownref.yaml")
//	if err != nil { ... }
//	owner := ownref.OwnerOf(&v, ownref.FromConfig(cfg)...)
func FromConfig(cfg config.Config) []OwnerOption {
	var opts []OwnerOption
	if name := cfg.String("name", ""); name != "" {
		opts = append(opts, WithName(name))
	}
	if policy, err := ParsePolicy(cfg.String("policy", "cached")); err == nil {
		opts = append(opts, WithPolicy(policy))
	}
	opts = append(opts,
		WithMetrics(cfg.Bool("metrics", false)),
		WithTracing(cfg.Bool("tracing", false)),
	)
	return opts
}
