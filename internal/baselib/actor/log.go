package actor

import "github.com/btcsuite/btclog/v2"

// Subsystem is this package's four-letter subsystem tag, used by
// cmd/greenroomd to prefix its log lines the way lnd-derived subsystems do.
const Subsystem = "ACTR"

// log is the package-level subsystem logger for actor lifecycle events. It
// is disabled by default; callers that want actor log output must call
// UseLogger, typically wiring it to a btclog.Handler tagged "ACTR" the same
// way cmd/greenroomd wires every subsystem's logger through a single
// HandlerSet.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-wide logger used by the actor package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
