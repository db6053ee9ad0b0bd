package httpclient

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultLiveAckTimeout is how long a live send waits for the server acknowledgment before falling back to REST.
const DefaultLiveAckTimeout = 10 * time.Second

type Options struct {
	Logger         *slog.Logger
	Originator     string
	PlainHTTP      bool
	HTTPClient     *http.Client
	LiveAckTimeout time.Duration
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) func(*Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithOriginator sets the originator passed to the wallet.
func WithOriginator(originator string) func(*Options) {
	return func(o *Options) {
		o.Originator = originator
	}
}

// WithPlainHTTP disables BRC-103 mutual authentication.
// The client asserts its identity with the identity key header instead, which only dev servers accept.
func WithPlainHTTP() func(*Options) {
	return func(o *Options) {
		o.PlainHTTP = true
	}
}

// WithHTTPClient sets the http client used for REST calls.
func WithHTTPClient(client *http.Client) func(*Options) {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// WithLiveAckTimeout sets how long a live send waits for the server acknowledgment.
func WithLiveAckTimeout(timeout time.Duration) func(*Options) {
	return func(o *Options) {
		o.LiveAckTimeout = timeout
	}
}
