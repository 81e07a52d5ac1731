package main

import (
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogLevel   = "info"
	defaultWindowSize = 4096
)

// config is the demo node's full set of runtime options. There is no
// listen address or persistence path: per the Non-goals this binary
// never opens a network port or a database.
type config struct {
	PlaybackFile string `short:"f" long:"playback" description:"path to a JSON playback file (mint + entries)" required:"true"`
	LogLevel     string `short:"l" long:"loglevel" description:"subsystem log level (trace, debug, info, warn, error, critical, off)" default:"info"`
	WindowSize   int    `short:"w" long:"windowsize" description:"fingerprint window capacity override"`
}

// loadConfig parses command-line flags into a config, applying defaults
// the struct tags can't express (the window size needs the package
// constant, not a literal).
func loadConfig() (*config, error) {
	cfg := config{
		LogLevel:   defaultLogLevel,
		WindowSize: defaultWindowSize,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("windowsize must be positive, got %d", cfg.WindowSize)
	}

	return &cfg, nil
}
