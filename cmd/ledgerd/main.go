// Command ledgerd is a small demonstration harness for the ledger core:
// it loads a JSON playback file describing a genesis mint and a
// sequence of entries, replays them through an Engine, and prints the
// resulting balances. It has no network listener and no persistence
// layer -- wiring a real transport is explicitly out of scope.
package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	goerrors "github.com/go-errors/errors"
	"github.com/lightningnetwork/lnd/clock"

	"github.com/hleb-albau/ledgercore/internal/walletkey"
	"github.com/hleb-albau/ledgercore/pkg/ledger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	setupLogging(cfg.LogLevel)

	pf, err := loadPlayback(cfg.PlaybackFile)
	if err != nil {
		return err
	}

	clk := clock.NewDefaultClock()
	engine, accounts, sigByID, err := runPlayback(pf, clk, cfg.WindowSize)
	if engine == nil {
		return err
	}
	if err != nil {
		// Wrapping here (rather than at the point of origin) captures
		// this frame's stack, which is as close to "operator-visible"
		// as a one-shot playback run gets.
		wrapped := goerrors.Wrap(err, 1)
		log.Errorf("playback stopped early: %s", wrapped.ErrorStack())
	}

	printReport(engine, accounts, sigByID)
	return err
}

func printReport(engine *ledger.Engine, accounts map[string]walletkey.Account, sigByID map[string]walletkey.Signature) {
	fmt.Printf("transaction_count: %d\n", engine.TransactionCount())
	fmt.Printf("fingerprint_window_len: %d\n", engine.FingerprintWindowLen())

	fmt.Println("balances:")
	for name, account := range accounts {
		balance, ok := engine.Balance(account)
		if !ok {
			continue
		}
		fmt.Printf("  %-16s %d\n", name, balance)
	}

	if len(sigByID) > 0 {
		fmt.Println("recorded signatures:")
		for id, sig := range sigByID {
			fmt.Printf("  %-16s %x\n", id, sig[:8])
		}
	}
}

// setupLogging installs a real btclog backend at the configured level,
// replacing the package-level btclog.Disabled default every subsystem
// starts with.
func setupLogging(level string) {
	backend := btclog.NewBackend(os.Stdout)
	subLog := backend.Logger("LEDG")
	subLog.SetLevel(parseLevel(level))

	log = subLog
	ledger.UseLogger(subLog)
}

func parseLevel(level string) btclog.Level {
	switch level {
	case "trace":
		return btclog.LevelTrace
	case "debug":
		return btclog.LevelDebug
	case "info":
		return btclog.LevelInfo
	case "warn":
		return btclog.LevelWarn
	case "error":
		return btclog.LevelError
	case "critical":
		return btclog.LevelCritical
	case "off":
		return btclog.LevelOff
	default:
		return btclog.LevelInfo
	}
}

var log btclog.Logger = btclog.Disabled
