package config

import (
	"flag"
	"os"
	"time"

	"github.com/saleel/nymdrive/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-r string   WebSocket URL of the local relay daemon
//	-p string   relay address of the blob storage service
//	-d string   data directory
//	-t int      correlated request timeout in seconds (0 = wait forever)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-p", "-d", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.RelayURL, "r", cfg.RelayURL, "websocket url of the relay daemon")
	fs.StringVar(&cfg.ProviderAddress, "p", cfg.ProviderAddress, "relay address of the storage provider")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds, 0 waits forever)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
