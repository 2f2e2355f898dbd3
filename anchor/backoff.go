// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package anchor

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes bounded exponential delays with jitter.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64 // between 0 and 1
}

// Delay returns the wait after the given failed attempt, counting from 1.
// The base delay grows by Multiplier per attempt up to Max; the result is
// the base shifted by a random offset within ±Jitter of it.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}

	base := float64(b.Initial) * math.Pow(mult, float64(attempt-1))
	if b.Max > 0 && base > float64(b.Max) {
		base = float64(b.Max)
	}

	offset := (rand.Float64()*2 - 1) * b.Jitter * base
	delay := time.Duration(base + offset)
	if delay < 0 {
		delay = 0
	}
	return delay
}
