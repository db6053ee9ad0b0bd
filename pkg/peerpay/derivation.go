package peerpay

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/brc29"
	"github.com/go-softwarelab/common/pkg/to"
)

// GetP2PKHOutputInfo derives a fresh one-time key for the recipient and the P2PKH locking script paying it.
func (c *Client) GetP2PKHOutputInfo(ctx context.Context, recipientIdentityKey string) (*DerivationInfo, error) {
	return c.outputInfo(ctx, c.wallet, recipientIdentityKey)
}

func (c *Client) outputInfo(ctx context.Context, w wallet.Interface, recipientIdentityKey string) (*DerivationInfo, error) {
	recipient, err := parseIdentityKey(recipientIdentityKey)
	if err != nil {
		return nil, err
	}

	prefix, err := newNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate derivation prefix: %w", err)
	}
	suffix, err := newNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate derivation suffix: %w", err)
	}

	info := &DerivationInfo{
		DerivationPrefix: prefix,
		DerivationSuffix: suffix,
	}

	info.DerivedPublicKey, err = c.derivePublicKey(ctx, w, info.KeyID(), recipient, false)
	if err != nil {
		return nil, err
	}

	info.LockingScript, err = c.lockingScript(info.DerivedPublicKey)
	if err != nil {
		return nil, err
	}

	return info, nil
}

// DeriveIncomingLockingScript re-derives, on the recipient side, the locking script a sender paid to.
func (c *Client) DeriveIncomingLockingScript(ctx context.Context, senderIdentityKey string, derivationPrefix string, derivationSuffix string) (*script.Script, error) {
	sender, err := ec.PublicKeyFromString(senderIdentityKey)
	if err != nil {
		return nil, fmt.Errorf("invalid sender identity key: %w", err)
	}

	keyID := brc29.KeyID{DerivationPrefix: derivationPrefix, DerivationSuffix: derivationSuffix}
	key, err := c.derivePublicKey(ctx, c.wallet, keyID, sender, true)
	if err != nil {
		return nil, err
	}

	return c.lockingScript(key)
}

func (c *Client) derivePublicKey(ctx context.Context, w wallet.Interface, keyID brc29.KeyID, counterparty *ec.PublicKey, forSelf bool) (*ec.PublicKey, error) {
	args := wallet.GetPublicKeyArgs{
		EncryptionArgs: wallet.EncryptionArgs{
			ProtocolID: Protocol,
			KeyID:      keyID.String(),
			Counterparty: wallet.Counterparty{
				Type:         wallet.CounterpartyTypeOther,
				Counterparty: counterparty,
			},
		},
	}
	if forSelf {
		args.ForSelf = to.Ptr(true)
	}

	res, err := w.GetPublicKey(ctx, args, c.originator)
	if err != nil {
		return nil, fmt.Errorf("failed to derive payment key: %w", err)
	}
	return res.PublicKey, nil
}

func (c *Client) lockingScript(key *ec.PublicKey) (*script.Script, error) {
	address, err := script.NewAddressFromPublicKey(key, c.network.IsMainnet())
	if err != nil {
		return nil, fmt.Errorf("failed to create address from derived key: %w", err)
	}

	lockingScript, err := p2pkh.Lock(address)
	if err != nil {
		return nil, fmt.Errorf("failed to create P2PKH locking script: %w", err)
	}
	return lockingScript, nil
}

func parseIdentityKey(identityKey string) (*ec.PublicKey, error) {
	key, err := ec.PublicKeyFromString(identityKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecipient, err)
	}
	return key, nil
}

// newNonce returns 10 bytes from the system CSPRNG, base64 encoded.
func newNonce() (string, error) {
	b := make([]byte, nonceSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
