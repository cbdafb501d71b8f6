package workflow

import (
	"time"
)

const (
	// DefaultMaxConcurrency bounds the scheduler worker pool
	DefaultMaxConcurrency = 4
	// DefaultOperationTimeout applies to operations without their own timeout
	DefaultOperationTimeout = 30 * time.Second
)

// Config represents the process execution configuration
type Config struct {
	// Maximum operations running at once under Schedule
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// Timeout applied to each operation run; zero disables it
	OperationTimeout time.Duration `json:"operation_timeout" yaml:"operation_timeout"`

	// Per-key overrides of OperationTimeout
	OperationTimeouts map[string]time.Duration `json:"operation_timeouts" yaml:"operation_timeouts"`

	// Whether End writes a DOT diagram of the run
	EnableDiagrams bool   `json:"enable_diagrams" yaml:"enable_diagrams"`
	DiagramDir     string `json:"diagram_dir" yaml:"diagram_dir"`

	// Cancel outstanding tasks as soon as one fails
	FailFast bool `json:"fail_fast" yaml:"fail_fast"`
}

// NewConfig returns the default process configuration
func NewConfig() *Config {
	return &Config{
		MaxConcurrency:    DefaultMaxConcurrency,
		OperationTimeout:  DefaultOperationTimeout,
		OperationTimeouts: make(map[string]time.Duration),
		EnableDiagrams:    false,
		DiagramDir:        "data/diagrams",
		FailFast:          false,
	}
}

// GetOperationTimeout returns the timeout for the step stored under key
func (c *Config) GetOperationTimeout(key string) time.Duration {
	if timeout, ok := c.OperationTimeouts[key]; ok {
		return timeout
	}
	return c.OperationTimeout
}

// ConfigBuilder provides a fluent interface for building configurations
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a builder seeded with the defaults
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: NewConfig()}
}

// WithMaxConcurrency sets the worker pool size
func (b *ConfigBuilder) WithMaxConcurrency(n int) *ConfigBuilder {
	b.config.MaxConcurrency = n
	return b
}

// WithOperationTimeout sets the default operation timeout
func (b *ConfigBuilder) WithOperationTimeout(timeout time.Duration) *ConfigBuilder {
	b.config.OperationTimeout = timeout
	return b
}

// WithStepTimeout overrides the timeout of one step
func (b *ConfigBuilder) WithStepTimeout(key string, timeout time.Duration) *ConfigBuilder {
	b.config.OperationTimeouts[key] = timeout
	return b
}

// WithDiagrams enables DOT output into dir
func (b *ConfigBuilder) WithDiagrams(enabled bool, dir string) *ConfigBuilder {
	b.config.EnableDiagrams = enabled
	if dir != "" {
		b.config.DiagramDir = dir
	}
	return b
}

// WithFailFast cancels sibling tasks after the first failure
func (b *ConfigBuilder) WithFailFast(failFast bool) *ConfigBuilder {
	b.config.FailFast = failFast
	return b
}

// Build returns the built configuration
func (b *ConfigBuilder) Build() *Config {
	if b.config.MaxConcurrency < 1 {
		b.config.MaxConcurrency = 1
	}
	return b.config
}
