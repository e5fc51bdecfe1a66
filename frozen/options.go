package frozen

import (
	"errors"
	"time"
)

// DefaultMaxDepth is the default nesting limit for freezing and unfreezing.
const DefaultMaxDepth = 32

const (
	logMsgNodeFrozen      = "node frozen"
	logMsgNodeUnfrozen    = "node unfrozen"
	logMsgFreezeFailed    = "freezing failed"
	logMsgUnfreezeFailed  = "unfreezing failed"
	logMsgFrozenPassedOn  = "already frozen value passed through"
	logAttrError          = "error"
	logAttrModel          = "model"
	logAttrAttributeCount = "attribute_count"
	logAttrDepth          = "depth"
	logAttrAttribute      = "attribute"
)

type engineConfig struct {
	registry TypeRegistry
	maxDepth int
	clock    func() time.Time
	logger   Logger
	schemas  SchemaProvider
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		registry: defaultTypeRegistry,
		maxDepth: DefaultMaxDepth,
		clock:    time.Now,
	}
}

func buildEngineConfig(options []Option) (engineConfig, error) {
	cfg := defaultEngineConfig()
	for _, option := range options {
		if err := option(&cfg); err != nil {
			return engineConfig{}, err
		}
	}

	return cfg, nil
}

// Option defines a functional option for configuring a Freezer or an Unfreezer.
type Option func(*engineConfig) error

// WithTypeRegistry sets the registry used to check type tags when freezing and to cast values when unfreezing.
func WithTypeRegistry(registry TypeRegistry) Option {
	return func(cfg *engineConfig) error {
		if registry.casters == nil {
			return errors.Join(ErrInvalidOption, errors.New("type registry is empty"))
		}

		cfg.registry = registry

		return nil
	}
}

// WithMaxDepth limits how deep relations may be nested. The root is at depth 1.
func WithMaxDepth(maxDepth int) Option {
	return func(cfg *engineConfig) error {
		if maxDepth < 1 {
			return errors.Join(ErrInvalidOption, errors.New("max depth must be at least 1"))
		}

		cfg.maxDepth = maxDepth

		return nil
	}
}

// WithClock sets the source of the frozen-at timestamps.
func WithClock(clock func() time.Time) Option {
	return func(cfg *engineConfig) error {
		if clock == nil {
			return errors.Join(ErrInvalidOption, errors.New("clock is nil"))
		}

		cfg.clock = clock

		return nil
	}
}

// WithLogger sets the logger.
// Debug level: one message per frozen or unfrozen node.
// Error level: the failure which aborted a freeze or unfreeze.
func WithLogger(logger Logger) Option {
	return func(cfg *engineConfig) error {
		cfg.logger = logger
		return nil
	}
}

// WithSchemaProvider lets unfrozen nodes tell apart attributes which were excluded from the snapshot
// from attributes the model never had.
func WithSchemaProvider(provider SchemaProvider) Option {
	return func(cfg *engineConfig) error {
		cfg.schemas = provider
		return nil
	}
}
