package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/srpkeeper/internal/flagx"
)

// parseFlags overlays command-line flags on config.
//
//	-a string   HTTP listen address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-n string   NATS server URL
//	-l string   log level (debug, info, warn, error)
//	-h bool     hide unknown accounts at login-init ("-h false" works too)
//	-k string   key for decoy credentials (derived from -s when empty)
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-n", "-l", "-h", "-k"}, "-h")

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.NatsURL, "n", config.NatsURL, "NATS server URL")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.HideUnknownAccounts, "h", config.HideUnknownAccounts, "hide unknown accounts at login")
	fs.StringVar(&config.DecoyKey, "k", config.DecoyKey, "decoy credential key")

	return fs.Parse(args)
}
