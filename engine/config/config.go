// Package config reads the animation runtime settings from OXY_ANIM_* environment variables.
package config

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/caarlos0/env/v11"
)

const (
	// PoolBucket selects the size-bucketed bone matrix pool.
	PoolBucket = "bucket"
	// PoolAlloc selects the allocating bone matrix pool.
	PoolAlloc = "alloc"
)

// ErrInvalid is wrapped by every validation failure returned from Load.
var ErrInvalid = errors.New("invalid config")

// Config holds the runtime settings shared by the engine loop, the animator and the CLI.
type Config struct {
	TickRate           float64              `env:"OXY_ANIM_TICK_RATE" envDefault:"60"`
	TimestampFrequency int64                `env:"OXY_ANIM_TIMESTAMP_FREQUENCY" envDefault:"1000000000"`
	RepeatMode         animation.RepeatMode `env:"OXY_ANIM_REPEAT_MODE" envDefault:"loop"`
	Workers            int                  `env:"OXY_ANIM_WORKERS" envDefault:"4"`
	WorkerQueue        int                  `env:"OXY_ANIM_WORKER_QUEUE" envDefault:"256"`
	Pool               string               `env:"OXY_ANIM_POOL" envDefault:"bucket"`
	Profile            bool                 `env:"OXY_ANIM_PROFILE" envDefault:"false"`
	PoseAppName        string               `env:"OXY_ANIM_POSE_APP_NAME" envDefault:"oxy-anim"`
	DebugAssertions    bool                 `env:"OXY_ANIM_DEBUG_ASSERTIONS" envDefault:"false"`
	OTelEndpoint       string               `env:"OXY_ANIM_OTEL_ENDPOINT"`
	OTelEnabled        bool                 `env:"OXY_ANIM_OTEL_ENABLED" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config and validates it.
//
// Returns:
//   - Config: the parsed settings
//   - error: a parse error, or an error wrapping ErrInvalid
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that is out of range.
func (c Config) Validate() error {
	switch {
	case c.TickRate <= 0:
		return fmt.Errorf("%w: tick rate %v must be positive", ErrInvalid, c.TickRate)
	case c.TimestampFrequency <= 0:
		return fmt.Errorf("%w: timestamp frequency %d must be positive", ErrInvalid, c.TimestampFrequency)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers %d must be positive", ErrInvalid, c.Workers)
	case c.WorkerQueue <= 0:
		return fmt.Errorf("%w: worker queue %d must be positive", ErrInvalid, c.WorkerQueue)
	case c.Pool != PoolBucket && c.Pool != PoolAlloc:
		return fmt.Errorf("%w: pool %q, want %q or %q", ErrInvalid, c.Pool, PoolBucket, PoolAlloc)
	case c.PoseAppName == "":
		return fmt.Errorf("%w: pose app name is empty", ErrInvalid)
	}
	return nil
}

// BoneMatrixPool returns a fresh pool of the configured kind.
func (c Config) BoneMatrixPool() animation.BoneMatrixPool {
	if c.Pool == PoolAlloc {
		return animation.NewAllocatingPool()
	}
	return animation.NewBucketPool()
}

// UpdaterOptions returns the updater options implied by the settings.
func (c Config) UpdaterOptions() []animation.UpdaterBuilderOption {
	return []animation.UpdaterBuilderOption{
		animation.WithRepeatMode(c.RepeatMode),
		animation.WithDebugAssertions(c.DebugAssertions),
		animation.WithBoneMatrixPool(c.BoneMatrixPool()),
	}
}
