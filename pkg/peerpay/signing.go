package peerpay

import (
	"context"
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/wallet"
)

// ErrSigningIdentityMismatch is returned when the claiming wallet holds a different identity than the client wallet.
// Tokens are addressed to the client identity, so another wallet could neither claim them nor derive refunds
// the original sender can spend.
var ErrSigningIdentityMismatch = errors.New("claiming wallet identity does not match the client wallet")

type SigningKind string

const (
	// SigningKindAmbient claims payments with the wallet the client was created with (or another delegated one).
	SigningKindAmbient SigningKind = "ambient"

	// SigningKindLocalKey claims payments with a wallet built from a locally held private key.
	SigningKindLocalKey SigningKind = "local-key"
)

// SigningCapability provides the wallet that claims incoming payments.
// It is chosen once, when the client is created, and its wallet must share the client wallet's identity key.
type SigningCapability interface {
	ClaimingWallet(ctx context.Context) (wallet.Interface, error)
	Kind() SigningKind
}

type ambientSigning struct {
	wallet wallet.Interface
}

// AmbientSigning claims payments with the given wallet.
func AmbientSigning(w wallet.Interface) SigningCapability {
	if w == nil {
		panic("wallet must be provided for ambient signing")
	}
	return &ambientSigning{wallet: w}
}

func (s *ambientSigning) ClaimingWallet(context.Context) (wallet.Interface, error) {
	return s.wallet, nil
}

func (s *ambientSigning) Kind() SigningKind {
	return SigningKindAmbient
}

// claimingWallet returns the signing capability's wallet once its identity matches the client wallet.
func (c *Client) claimingWallet(ctx context.Context) (wallet.Interface, error) {
	claimer, err := c.signing.ClaimingWallet(ctx)
	if err != nil {
		return nil, err
	}
	if c.signingVerified.Load() {
		return claimer, nil
	}

	expected, err := c.identityKey(ctx, c.wallet)
	if err != nil {
		return nil, err
	}
	actual, err := c.identityKey(ctx, claimer)
	if err != nil {
		return nil, err
	}
	if expected != actual {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrSigningIdentityMismatch, expected, actual)
	}

	c.signingVerified.Store(true)
	return claimer, nil
}

func (c *Client) identityKey(ctx context.Context, w wallet.Interface) (string, error) {
	res, err := w.GetPublicKey(ctx, wallet.GetPublicKeyArgs{IdentityKey: true}, c.originator)
	if err != nil {
		return "", fmt.Errorf("failed to get identity key: %w", err)
	}
	return res.PublicKey.ToDERHex(), nil
}
