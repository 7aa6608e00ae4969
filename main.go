package main

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configureLogging(os.Stderr)

	os.Exit(execute(context.Background(), os.Args[1:], streams{
		in:  os.Stdin,
		out: os.Stdout,
		err: os.Stderr,
	}))
}

func configureLogging(w io.Writer) {
	// Set global level to the minimum: allows the Open Telemetry logging to be
	// configured separately. However, it means that any logger that sets its
	// level will log as this effectively disables the global level.
	zerolog.SetGlobalLevel(zerolog.Level(-128))

	// stdout carries the command output, so logs always go to w
	log.Logger = log.
		Output(zerolog.ConsoleWriter{Out: w}).
		Level(zerolog.InfoLevel)

	if os.Getenv("ENV") == "development" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}

	zerolog.DefaultContextLogger = &log.Logger
}

func enableDebugLogging() {
	log.Logger = log.Logger.Level(zerolog.DebugLevel)
	zerolog.DefaultContextLogger = &log.Logger
}

func logBuildInfo() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	ev := log.Debug().Str("module", buildInfo.Main.Path).Str("version", buildInfo.Main.Version)
	for _, v := range buildInfo.Settings {
		if strings.HasPrefix(v.Key, "vcs.") ||
			strings.HasPrefix(v.Key, "GO") ||
			v.Key == "CGO_ENABLED" {
			ev = ev.Str(v.Key, v.Value)
		}
	}

	ev.Msg("build information")
}
