package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Default policy values. The base delay doubles on every consecutive
// failure and is capped at MaxDelay; once MaxRetries retries have been
// spent the caller is expected to stop retrying entirely.
const (
	DefaultBaseDelay  = 5 * time.Second
	DefaultMaxDelay   = 80 * time.Second
	DefaultMaxRetries = 3
	DefaultFactor     = 2.0

	// exponentCap bounds the exponent so the float math can never
	// overflow regardless of how large the failure count grows.
	exponentCap = 10
)

// Policy computes retry delays from a consecutive-failure count.
// The zero value is not usable; use Default or fill the fields explicitly.
// Policy is a pure value type and safe to copy and share.
type Policy struct {
	// BaseDelay is the delay after the first failure.
	BaseDelay time.Duration

	// MaxDelay clamps the computed delay.
	MaxDelay time.Duration

	// MaxRetries is the number of consecutive failures after which
	// ShouldContinue reports false.
	MaxRetries int

	// Factor is the exponential growth factor between attempts.
	Factor float64

	// JitterFactor spreads delays by ±JitterFactor to avoid coordinated
	// retry storms. Zero keeps delays deterministic, which the engine
	// relies on for its scheduling tests.
	JitterFactor float64
}

// Default returns the policy the engine ships with: 5s base, doubling,
// capped at 80s, giving up after 3 spent retries, no jitter.
func Default() Policy {
	return Policy{
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		MaxRetries: DefaultMaxRetries,
		Factor:     DefaultFactor,
	}
}

// NextDelay returns the delay to wait before the retry following the given
// number of consecutive failures. The first failure (consecutiveFailures=1)
// yields BaseDelay.
func (p Policy) NextDelay(consecutiveFailures int) time.Duration {
	if consecutiveFailures <= 0 {
		return 0
	}

	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	factor := p.Factor
	if factor <= 1 {
		factor = DefaultFactor
	}

	exponent := consecutiveFailures - 1
	if exponent > exponentCap {
		exponent = exponentCap
	}

	delay := float64(base) * math.Pow(factor, float64(exponent))

	if p.JitterFactor > 0 {
		// Random factor in (1-jitter, 1+jitter).
		delay *= 1 + (rand.Float64()*2-1)*p.JitterFactor
	}

	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}

	return time.Duration(delay)
}

// ShouldContinue reports whether another retry attempt is allowed after the
// given number of consecutive failures. After n failures, n-1 retries have
// already been spent, so the policy permits MaxRetries scheduled retries in
// total before giving up. Once it reports false the caller must stop
// scheduling retries; silently retrying forever would mask a persistent
// outage from the user.
func (p Policy) ShouldContinue(consecutiveFailures int) bool {
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return consecutiveFailures <= maxRetries
}
