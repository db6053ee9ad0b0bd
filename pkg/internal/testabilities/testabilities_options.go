package testabilities

import "log/slog"

type Options struct {
	logger *slog.Logger
	http   bool
	auth   bool
}

func WithLogger(logger *slog.Logger) func(*Options) {
	return func(options *Options) {
		options.logger = logger
	}
}

func WithoutLogging() func(*Options) {
	return func(options *Options) {
		options.logger = slog.New(slog.DiscardHandler)
	}
}

// WithHTTPTransport connects the parties through a MessageBox server instead of directly to the hub.
func WithHTTPTransport() func(*Options) {
	return func(options *Options) {
		options.http = true
	}
}

// WithAuthenticatedHTTPTransport is WithHTTPTransport with BRC-103 authentication between parties and the server.
func WithAuthenticatedHTTPTransport() func(*Options) {
	return func(options *Options) {
		options.http = true
		options.auth = true
	}
}
