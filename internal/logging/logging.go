package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Settings selects the log level and destination.
type Settings struct {
	Level string
	// File, when set, receives all logs. The chat UI owns the terminal, so
	// it always logs to a file or not at all.
	File string
	// Discard drops all output when no file is configured.
	Discard bool
}

// Setup configures the global zerolog logger and returns it along with a
// closer for the log file, if any.
func Setup(s Settings) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if s.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(s.Level))
		if err != nil {
			return zerolog.Nop(), nil, errors.Wrapf(err, "parse log level %q", s.Level)
		}
		level = parsed
	}

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch {
	case s.File != "":
		f, err := os.OpenFile(s.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), nil, errors.Wrapf(err, "open log file %s", s.File)
		}
		w, closer = f, f
	case s.Discard:
		w = io.Discard
	default:
		w = stderrWriter()
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer, nil
}

func stderrWriter() io.Writer {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return os.Stderr
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
