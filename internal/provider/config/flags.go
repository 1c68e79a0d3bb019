package config

import (
	"flag"
	"os"

	"github.com/saleel/nymdrive/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-r string   WebSocket URL of the local relay daemon
//	-s string   storage backend ("minio" or "memory")
//	-b string   bucket name for the minio backend
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-s", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.RelayURL, "r", cfg.RelayURL, "websocket url of the relay daemon")
	fs.StringVar(&cfg.StorageBackend, "s", cfg.StorageBackend, "storage backend (minio or memory)")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "bucket name")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
