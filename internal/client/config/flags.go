package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/idgate/internal/flagx"
)

// parseFlags overlays Config with command-line flags.
//
//	-a string   base URL of the server
//	-t int      request timeout in seconds
//	-s string   session database file
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-s"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the idgate server")
	fs.StringVar(&cfg.SessionPath, "s", cfg.SessionPath, "session database file")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
