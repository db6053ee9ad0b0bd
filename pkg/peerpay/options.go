package peerpay

import (
	"log/slog"

	"github.com/bsv-blockchain/go-peerpay/pkg/defs"
)

type Options struct {
	Logger     *slog.Logger
	Originator string
	Signing    SigningCapability
	Network    defs.BSVNetwork
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) func(*Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithOriginator sets the originator passed to every wallet call.
func WithOriginator(originator string) func(*Options) {
	return func(o *Options) {
		o.Originator = originator
	}
}

// WithSigningCapability sets the capability used to claim incoming payments.
// By default payments are claimed with the client wallet. The capability's wallet must hold the
// same identity key as the client wallet, otherwise claims fail with ErrSigningIdentityMismatch.
func WithSigningCapability(signing SigningCapability) func(*Options) {
	return func(o *Options) {
		o.Signing = signing
	}
}

// WithNetwork sets the network payment addresses are encoded for.
func WithNetwork(network defs.BSVNetwork) func(*Options) {
	return func(o *Options) {
		o.Network = network
	}
}
