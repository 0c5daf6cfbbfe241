// Package flags configures process-wide flags shared by every command in
// this repository.
package flags

import (
	"flag"

	log "github.com/sirupsen/logrus"
)

// ConfigureAndParse adds flags that are common to all processes in this
// repository and parses fs against args. Unlike the upstream helper this
// is derived from, it does not touch the global flag.CommandLine set, so
// callers can compose it with their own subcommand flags.
func ConfigureAndParse(fs *flag.FlagSet, args []string) error {
	logLevel := fs.String("log-level", log.InfoLevel.String(),
		"log level, must be one of: panic, fatal, error, warn, info, debug")

	if err := fs.Parse(args); err != nil {
		return err
	}

	return setLogLevel(*logLevel)
}

func setLogLevel(logLevel string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	return nil
}
