package resilience

import (
	"time"

	"github.com/tirthgodhni98/giftcard-api/pkg/config"
)

// Defaults used when a LEDGER_BREAKER_* knob is unset or not positive
const (
	defaultBreakerInterval = time.Minute
	defaultBreakerTimeout  = 30 * time.Second
	defaultFailureLimit    = 5
	defaultSuccessLimit    = 1
)

// SettingsFromConfig builds breaker settings for one dependency. isFailure
// classifies errors; nil counts every error.
func SettingsFromConfig(name string, cfg config.BreakerConfig, isFailure func(error) bool) Settings {
	return Settings{
		Name:             name,
		Interval:         secondsOr(cfg.IntervalSeconds, defaultBreakerInterval),
		Timeout:          secondsOr(cfg.TimeoutSeconds, defaultBreakerTimeout),
		FailureThreshold: positiveOr(cfg.FailureThreshold, defaultFailureLimit),
		SuccessThreshold: positiveOr(cfg.SuccessThreshold, defaultSuccessLimit),
		IsFailure:        isFailure,
	}
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func positiveOr(n int, fallback uint32) uint32 {
	if n <= 0 {
		return fallback
	}
	return uint32(n)
}
