package stream

import "github.com/btcsuite/btclog/v2"

// Subsystem is this package's four-letter subsystem tag.
const Subsystem = "STRM"

// log is the package-level subsystem logger, disabled until UseLogger is
// called.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-wide logger used by the stream package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
