package internal

import (
	"io"

	"github.com/starford/clipper/internal/clock"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	args   []string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	clock  clock.Clock
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithArgs sets the positional invocation arguments. A native-messaging
// origin among them selects the helper mode.
func WithArgs(args []string) Option {
	return func(a *application) {
		a.args = args
	}
}

// WithStdio replaces the process standard streams. stdout carries protocol
// frames; logs go to stderr unless a log file is configured.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(a *application) {
		a.stdin = stdin
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithClock sets the clock used for capture timestamps.
func WithClock(c clock.Clock) Option {
	return func(a *application) {
		a.clock = c
	}
}
