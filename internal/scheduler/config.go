package scheduler

import "time"

// TierConfig describes one rung of a worker's steal-attempt backoff ladder
// (spec.md §4.4): a number of steal attempts to make against random victims
// before moving to the next, more relaxed, tier, and the sleep interval
// between attempts within this tier (zero for the aggressive first tier).
type TierConfig struct {
	Attempts int
	Sleep    time.Duration
}

// Config is the scheduler's slice of the runtime's configuration contract
// (spec.md §6): worker count, the three-tier polling ladder, and the
// per-quantum throughput bound. Config values are read once, at New, and
// apply for the lifetime of the pool.
type Config struct {
	// Workers is the number of worker goroutines in the pool. Zero means
	// runtime.GOMAXPROCS(0).
	Workers int

	// Aggressive, Moderate, and Relaxed are the three backoff tiers a
	// worker cycles through once its local deque is empty, before
	// parking on the pool's condition variable.
	Aggressive TierConfig
	Moderate   TierConfig
	Relaxed    TierConfig

	// MaxThroughput bounds the number of envelopes a worker runs for one
	// ACB before re-queuing it at the bottom of its local deque, giving
	// every other runnable ACB a turn (spec.md §4.4's "per-step
	// fairness"). Zero means unbounded (run until the mailbox empties).
	MaxThroughput int

	// HeartbeatInterval is the period of the ticker each worker starts in
	// run; it must be positive. Nothing reads that ticker, so no heartbeat
	// is logged and the value has no effect on scheduling.
	HeartbeatInterval time.Duration
}

// DefaultConfig returns the scheduler's out-of-the-box tuning: a handful of
// zero-sleep steal attempts, then a short-sleep tier, then a long-sleep
// tier, with an unbounded throughput quantum.
func DefaultConfig() Config {
	return Config{
		Aggressive:        TierConfig{Attempts: 32, Sleep: 0},
		Moderate:          TierConfig{Attempts: 16, Sleep: 50 * time.Microsecond},
		Relaxed:           TierConfig{Attempts: 8, Sleep: 2 * time.Millisecond},
		MaxThroughput:     0,
		HeartbeatInterval: 5 * time.Second,
	}
}
