// File: endpoint/options.go
//
// Author: rmstar
// License: Apache-2.0
//
// Construction options shared by the endpoint backends.

package endpoint

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/rmstar/grpc/api"
)

const (
	// DefaultReadSliceSize is the buffer size requested per read.
	DefaultReadSliceSize = 8192

	// DefaultWatchdogTimeout bounds how long a submitted read may sit
	// without its notification being serviced.
	DefaultWatchdogTimeout = 60 * time.Second

	// stallDrainSize is the diagnostic read performed when the watchdog
	// trips, sized to swallow the largest expected message.
	stallDrainSize = 4 * 1024 * 1024
)

// StallPolicy selects what a tripped read watchdog does after its
// diagnostics.
type StallPolicy int

const (
	// StallAbort terminates the process. A stalled notification queue is
	// unrecoverable and leaves the connection permanently wedged, so the
	// default is to fail loudly.
	StallAbort StallPolicy = iota

	// StallSurface shuts the endpoint down with a deadline-exceeded status
	// instead, letting the pending read complete with an error.
	StallSurface
)

// Config collects endpoint construction parameters. Zero fields take
// defaults at construction.
type Config struct {
	// Logger receives endpoint diagnostics. Defaults to a nop logger.
	Logger *zap.Logger

	// Scheduler runs completion callbacks. When nil the endpoint starts a
	// private worker pool and closes it on release.
	Scheduler api.Scheduler

	// Clock drives the watchdog timer. Defaults to the wall clock; tests
	// inject a mock.
	Clock clock.Clock

	// ReadSliceSize is the quota allocation per read.
	ReadSliceSize int

	// WatchdogTimeout is the stalled-read deadline.
	WatchdogTimeout time.Duration

	// StallPolicy selects the watchdog's terminal action.
	StallPolicy StallPolicy

	// StallHandler, when set, replaces the process termination performed
	// under StallAbort. Tests use it to observe the abort decision.
	StallHandler func()

	// NoDelay disables Nagle batching on TCP endpoints where the platform
	// supports it.
	NoDelay bool

	// RefTracing logs every reference count change at Debug level through
	// Logger. Off unless a leak is being chased.
	RefTracing bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ReadSliceSize:   DefaultReadSliceSize,
		WatchdogTimeout: DefaultWatchdogTimeout,
		StallPolicy:     StallAbort,
	}
}

// Option mutates a Config during construction.
type Option func(*Config)

// WithLogger injects the endpoint's logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithScheduler injects the completion-callback scheduler.
func WithScheduler(s api.Scheduler) Option {
	return func(c *Config) { c.Scheduler = s }
}

// WithClock injects the watchdog clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Config) { c.Clock = clk }
}

// WithReadSliceSize sets the per-read buffer size.
func WithReadSliceSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ReadSliceSize = n
		}
	}
}

// WithWatchdogTimeout sets the stalled-read deadline.
func WithWatchdogTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.WatchdogTimeout = d
		}
	}
}

// WithStallPolicy selects the watchdog's terminal action.
func WithStallPolicy(p StallPolicy) Option {
	return func(c *Config) { c.StallPolicy = p }
}

// WithStallHandler replaces the StallAbort process termination.
func WithStallHandler(h func()) Option {
	return func(c *Config) { c.StallHandler = h }
}

// WithNoDelay toggles TCP_NODELAY on TCP endpoints.
func WithNoDelay(enabled bool) Option {
	return func(c *Config) { c.NoDelay = enabled }
}

// WithRefTracing toggles Debug logging of reference count changes.
func WithRefTracing(enabled bool) Option {
	return func(c *Config) { c.RefTracing = enabled }
}

func buildConfig(opts []Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}

// refLogger is the logger handed to the reference counter. Silent unless
// tracing was requested.
func (c Config) refLogger() *zap.Logger {
	if c.RefTracing {
		return c.Logger
	}
	return zap.NewNop()
}
