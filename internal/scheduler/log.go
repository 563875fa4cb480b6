package scheduler

import "github.com/btcsuite/btclog/v2"

// Subsystem is this package's four-letter subsystem tag.
const Subsystem = "SCHD"

// log is the package-level subsystem logger, disabled until UseLogger is
// called (typically by cmd/greenroomd, wiring every subsystem's logger
// through a single HandlerSet).
var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-wide logger used by the scheduler package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
