package reactive

import "log/slog"

// Option configures an Event or a Property.
type Option func(*config)

// config contains settings shared by events and properties.
type config struct {
	// name labels the registry in logs, errors and statistics.
	name string

	// logger receives diagnostics. Callback panics are logged at error level
	// and garbage-collected subscriptions at debug level.
	logger *slog.Logger
}

// defaultConfig returns the default configuration.
func defaultConfig() config {
	return config{
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithName sets the name used to identify the registry.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
