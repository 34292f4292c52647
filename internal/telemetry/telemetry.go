// Package telemetry provides the one logger constructor: a
// zerolog.Logger whose level comes from the environment, with no global
// package-level logger, so every component takes its logger explicitly.
package telemetry

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New builds a logger whose level is controlled by the RUST_LOG
// environment variable (warn, info, debug, trace; warn by default),
// writing to w in a human-readable console format when w is a terminal
// and as JSON lines otherwise.
func New(w io.Writer) zerolog.Logger {
	level := levelFromEnv(os.Getenv("RUST_LOG"))

	out := w
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func levelFromEnv(v string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "":
		return zerolog.WarnLevel
	default:
		return zerolog.WarnLevel
	}
}
