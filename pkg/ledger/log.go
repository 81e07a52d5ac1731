package ledger

import "github.com/btcsuite/btclog"

// log is this package's subsystem logger. It defaults to btclog.Disabled
// so library consumers that never call UseLogger pay no logging cost.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the subsystem logger used by the ledger package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
