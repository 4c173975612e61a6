// Command forensicscan inspects audio files for signs that a file claiming
// to be lossless or high-bitrate was actually produced from a lower-quality
// lossy source.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/mycophonic/transcodescan/version"
)

func main() {
	logger := newLogger()

	app := &cli.Command{
		Name:    "forensicscan",
		Usage:   "detect transcoded / re-encoded audio from decoded or binary evidence",
		Version: version.Version(),
		Commands: []*cli.Command{
			scanCommand(logger),
			decodeCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Error().Err(err).Msg("forensicscan: fatal")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel

	if os.Getenv("FORENSICSCAN_DEBUG") != "" {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
