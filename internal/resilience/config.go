package resilience

import (
	"time"
)

// FromConfig builds a Policy from config values, keeping defaults for zeros.
func FromConfig(retries, initialBackoffMs, timeoutSecs int) Policy {
	p := DefaultPolicy()
	if retries >= 0 {
		p.MaxAttempts = retries + 1
	}
	if initialBackoffMs > 0 {
		p.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if timeoutSecs > 0 {
		p.AttemptTimeout = time.Duration(timeoutSecs) * time.Second
	}
	return p
}

// FromCircuitConfig builds a CircuitBreakerConfig. A threshold of zero
// disables the breaker.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) CircuitBreakerConfig {
	cfg := CircuitBreakerConfig{
		FailureThreshold: failureThreshold,
		ResetTimeout:     30 * time.Second,
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}
