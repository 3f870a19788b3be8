package pipeline

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// installLogHooks fills unset observer callbacks with zerolog-backed
// ones. Caller-supplied hooks are never replaced.
func installLogHooks(cfg *Config, logger zerolog.Logger) {
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = func(attempt int, resp *http.Response, err error, delay time.Duration) {
			logger.Debug().
				Int("attempt", attempt).
				Int("status", statusCode(resp)).
				Err(err).
				Dur("delay", delay).
				Msg("retrying request")
		}
	}
	if cfg.Breaker.OnBreak == nil {
		cfg.Breaker.OnBreak = func(ratio float64) {
			logger.Warn().
				Float64("failure_ratio", ratio).
				Msg("circuit opened")
		}
	}
	if cfg.Breaker.OnReset == nil {
		cfg.Breaker.OnReset = func() {
			logger.Info().Msg("circuit closed")
		}
	}
	if cfg.Breaker.OnHalfOpen == nil {
		cfg.Breaker.OnHalfOpen = func() {
			logger.Info().Msg("circuit half-open, probing recovery")
		}
	}
}

func statusCode(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
