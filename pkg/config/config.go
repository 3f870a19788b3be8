// Package config loads pipeline configuration from files and the environment
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jzx17/resilience/pkg/backoff"
	"github.com/jzx17/resilience/pkg/pipeline"
	"github.com/jzx17/resilience/pkg/retry"
	"github.com/jzx17/resilience/pkg/types"
)

// DefaultEnvPrefix namespaces environment overrides, e.g.
// RESILIENCE_RETRY_COUNT=5.
const DefaultEnvPrefix = "RESILIENCE_"

// fileConfig mirrors the YAML/env configuration surface. Keys use
// single-word segments so environment variable names map cleanly.
type fileConfig struct {
	Timeouts struct {
		Overall time.Duration `koanf:"overall" validate:"gte=0"`
		Attempt time.Duration `koanf:"attempt" validate:"gte=0"`
	} `koanf:"timeouts"`

	Retry struct {
		Count    int           `koanf:"count" validate:"gte=0"`
		Strategy string        `koanf:"strategy" validate:"omitempty,oneof=constant linear exponential jitter"`
		Delay    time.Duration `koanf:"delay" validate:"gte=0"`
		Cap      time.Duration `koanf:"cap" validate:"gte=0"`
	} `koanf:"retry"`

	Breaker struct {
		Threshold  float64       `koanf:"threshold" validate:"gte=0,lte=1"`
		Throughput int           `koanf:"throughput" validate:"gte=0"`
		Sampling   time.Duration `koanf:"sampling" validate:"gte=0"`
		Cooldown   time.Duration `koanf:"cooldown" validate:"gte=0"`
		PerHost    bool          `koanf:"perhost"`
	} `koanf:"breaker"`

	Limits struct {
		Concurrency int64   `koanf:"concurrency" validate:"gte=0"`
		Rate        float64 `koanf:"rate" validate:"gte=0"`
		Burst       int     `koanf:"burst" validate:"gte=0"`
	} `koanf:"limits"`
}

// Load reads a YAML file and environment overrides with the default
// prefix. The file is optional when the environment supplies values.
func Load(path string) (*pipeline.Config, error) {
	return LoadWithEnv(path, DefaultEnvPrefix)
}

// LoadWithEnv reads a YAML file and applies environment overrides with
// the given prefix. Environment variables take priority, with
// underscores mapping to key separators (PREFIX_BREAKER_THRESHOLD ->
// breaker.threshold).
func LoadWithEnv(path, prefix string) (*pipeline.Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix: prefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, prefix)
			key = strings.ReplaceAll(strings.ToLower(key), "_", ".")
			return key, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var fc fileConfig
	if err := k.Unmarshal("", &fc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&fc); err != nil {
		return nil, types.NewConfigError("config", err.Error())
	}

	return build(&fc)
}

// build converts the file surface into a pipeline configuration,
// resolving the backoff strategy into a delay function.
func build(fc *fileConfig) (*pipeline.Config, error) {
	cfg := &pipeline.Config{
		OverallTimeout: fc.Timeouts.Overall,
		AttemptTimeout: fc.Timeouts.Attempt,
		HostSpecific:   fc.Breaker.PerHost,
		MaxConcurrent:  fc.Limits.Concurrency,
		RateLimit:      fc.Limits.Rate,
		RateBurst:      fc.Limits.Burst,
	}

	cfg.Breaker.FailureThreshold = fc.Breaker.Threshold
	cfg.Breaker.MinimumThroughput = fc.Breaker.Throughput
	cfg.Breaker.SamplingDuration = fc.Breaker.Sampling
	cfg.Breaker.BreakDuration = fc.Breaker.Cooldown

	cfg.Retry = retry.Settings{Count: fc.Retry.Count}
	if fc.Retry.Count > 0 {
		strategy := backoff.Jitter
		if fc.Retry.Strategy != "" {
			parsed, err := backoff.ParseStrategy(fc.Retry.Strategy)
			if err != nil {
				return nil, err
			}
			strategy = parsed
		}

		delay := fc.Retry.Delay
		if delay == 0 {
			if strategy == backoff.Jitter {
				delay = pipeline.DefaultMedianJitterDelay
			} else {
				delay = pipeline.DefaultInitialDelay
			}
		}

		var opts []backoff.Option
		if fc.Retry.Cap > 0 {
			opts = append(opts, backoff.WithCap(fc.Retry.Cap))
		}
		fn, err := backoff.Func(strategy, delay, opts...)
		if err != nil {
			return nil, err
		}
		cfg.Retry.Delay = fn
	}

	return cfg, nil
}
