package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   GraphQL endpoint URL
//	-d string   local database path
//	-i int      online check interval in seconds
//	-b int      scans per sync batch
//
// Only the flags above are kept from os.Args (see flagx.FilterArgs), so the
// -c/-config flag consumed by parseJson does not trip the parser.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-i", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIEndpoint, "a", cfg.APIEndpoint, "GraphQL endpoint URL")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local database")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.IntVar(&cfg.ScanBatchSize, "b", cfg.ScanBatchSize, "number of scans sent per sync request")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
