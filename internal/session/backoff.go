package session

import (
	"math/rand"
	"time"
)

// NextBackoffDelay computes the reconnect delay for a 1-based attempt
// count: geometric growth from InitialDelay capped at MaxDelay, optionally
// jittered into [delay/2, 3*delay/2) so rejoining clients spread out.
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	mult := cfg.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}

	delay := float64(cfg.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= mult
		if cfg.MaxDelay > 0 && delay >= float64(cfg.MaxDelay) {
			delay = float64(cfg.MaxDelay)
			break
		}
	}
	if cfg.Jitter && rng != nil {
		delay *= 0.5 + rng.Float64()
	}
	return time.Duration(delay)
}
