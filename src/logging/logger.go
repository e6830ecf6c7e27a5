package logging

import (
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide structured logger. Init replaces it.
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the global logger for a service.
func Init(level, service string, pretty bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	}

	Logger = zerolog.New(out).With().
		Timestamp().
		Str("service", service).
		Logger()

	// Route libraries that only speak the standard logger through zerolog.
	log.SetFlags(0)
	log.SetOutput(Logger)
}

// For returns a sub-logger tagged with a component name.
func For(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// StdLogger adapts a component logger to *log.Logger for APIs such as the gorm logger.
func StdLogger(component string, level zerolog.Level) *log.Logger {
	l := For(component)
	return log.New(levelWriter{logger: l, level: level}, "", 0)
}

type levelWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func (w levelWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.logger.WithLevel(w.level).Msg(msg)
	}
	return len(p), nil
}
