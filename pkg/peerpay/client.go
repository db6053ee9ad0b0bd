// Package peerpay implements peer-to-peer payments delivered as payment tokens through a message box.
//
// A sender derives a one-time key for the recipient (BRC-29), funds an output locked to it and delivers
// the transaction with the derivation data to the recipient's payment inbox. The recipient lists or
// listens for incoming payments and either accepts (claims) or rejects (refunds) them.
package peerpay

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bsv-blockchain/go-peerpay/pkg/defs"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/go-softwarelab/common/pkg/to"
)

// Client sends and receives payment tokens on behalf of the wallet owner.
type Client struct {
	wallet     wallet.Interface
	transport  messagebox.Transport
	signing    SigningCapability
	originator string
	network    defs.BSVNetwork
	logger     *slog.Logger

	signingVerified atomic.Bool

	listenMu  sync.Mutex
	listening messagebox.Subscription
}

// New creates a payment client. The transport must act as the identity of the given wallet.
func New(w wallet.Interface, transport messagebox.Transport, opts ...func(*Options)) *Client {
	if w == nil {
		panic("wallet must be provided to create a payment client")
	}
	if transport == nil {
		panic("message box transport must be provided to create a payment client")
	}

	options := to.OptionsWithDefault(Options{
		Logger:  slog.Default(),
		Network: defs.NetworkMainnet,
	}, opts...)

	signing := options.Signing
	if signing == nil {
		signing = AmbientSigning(w)
	}

	logger := logging.Child(options.Logger, "PeerPay")
	logger.Debug("Payment client created", slog.String("signing", string(signing.Kind())), slog.String("network", string(options.Network)))

	return &Client{
		wallet:     w,
		transport:  transport,
		signing:    signing,
		originator: options.Originator,
		network:    options.Network,
		logger:     logger,
	}
}
