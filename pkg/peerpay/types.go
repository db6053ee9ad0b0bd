package peerpay

import (
	"encoding/json"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/brc29"
)

// DerivationInfo is the one-time output of a single payment.
type DerivationInfo struct {
	DerivationPrefix string
	DerivationSuffix string
	DerivedPublicKey *ec.PublicKey
	LockingScript    *script.Script
}

// KeyID returns the BRC-29 key id of the derived key.
func (d *DerivationInfo) KeyID() brc29.KeyID {
	return brc29.KeyID{DerivationPrefix: d.DerivationPrefix, DerivationSuffix: d.DerivationSuffix}
}

// Payment describes an outgoing payment.
type Payment struct {
	// Recipient is the identity key (DER hex) of the payee.
	Recipient string
	Amount    uint64
}

// PaymentToken is the message body delivered to the recipient's payment inbox.
type PaymentToken struct {
	DerivationPrefix string           `json:"derivationPrefix"`
	Transaction      TokenTransaction `json:"transaction"`
	Amount           uint64           `json:"amount"`
}

// TokenTransaction carries the transaction paying the recipient, as returned by the sender's wallet.
type TokenTransaction struct {
	TxID    string           `json:"txid,omitempty"`
	Tx      wallet.BytesList `json:"tx"`
	Outputs []TokenOutput    `json:"outputs"`
}

// TokenOutput points at the transaction output paying the recipient.
type TokenOutput struct {
	Vout             uint32 `json:"vout"`
	Satoshis         uint64 `json:"satoshis"`
	DerivationSuffix string `json:"derivationSuffix"`
}

// Output returns the single output of the token. Call Validate first.
func (t *PaymentToken) Output() TokenOutput {
	return t.Transaction.Outputs[0]
}

// KeyID returns the BRC-29 key id the paid output was derived with.
func (t *PaymentToken) KeyID() brc29.KeyID {
	return brc29.KeyID{DerivationPrefix: t.DerivationPrefix, DerivationSuffix: t.Output().DerivationSuffix}
}

// Validate checks the token carries everything needed to claim it.
func (t *PaymentToken) Validate() error {
	if t.DerivationPrefix == "" {
		return fmt.Errorf("%w: derivation prefix is missing", ErrMalformedToken)
	}
	if t.Amount == 0 {
		return fmt.Errorf("%w: amount is zero", ErrMalformedToken)
	}
	if len(t.Transaction.Tx) == 0 {
		return fmt.Errorf("%w: transaction is missing", ErrMalformedToken)
	}
	if len(t.Transaction.Outputs) != 1 {
		return fmt.Errorf("%w: expected exactly one output, got %d", ErrMalformedToken, len(t.Transaction.Outputs))
	}
	if t.Output().DerivationSuffix == "" {
		return fmt.Errorf("%w: derivation suffix is missing", ErrMalformedToken)
	}
	return nil
}

// ParsePaymentToken decodes and validates a message body.
func ParsePaymentToken(body string) (*PaymentToken, error) {
	var token PaymentToken
	if err := json.Unmarshal([]byte(body), &token); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if err := token.Validate(); err != nil {
		return nil, err
	}
	return &token, nil
}

// IncomingPayment is a payment token waiting in the payment inbox.
type IncomingPayment struct {
	MessageID string
	// Sender is the identity key (DER hex) of the payer.
	Sender string
	Amount uint64
	Token  PaymentToken
}

// PaymentResult is the outcome of a successfully accepted payment.
type PaymentResult struct {
	Payment       IncomingPayment
	PaymentResult *wallet.InternalizeActionResult
}

// SendResult is the outcome of a sent payment.
type SendResult struct {
	MessageID string
	Token     PaymentToken
	// Live is true when the token was delivered over the live channel.
	Live bool
}

type RefundOutcome string

const (
	// RefundOutcomeDust means the payment was too small to refund and was only acknowledged.
	RefundOutcomeDust RefundOutcome = "dust"

	// RefundOutcomeRefunded means the payment was claimed and the amount less RefundFee was sent back.
	RefundOutcomeRefunded RefundOutcome = "refunded"
)

// RefundResult is the outcome of a rejected payment.
type RefundResult struct {
	Outcome      RefundOutcome
	Accepted     *PaymentResult
	RefundAmount uint64
	Refund       *SendResult
}

// ListenArgs configures ListenForLivePayments.
type ListenArgs struct {
	OnPayment func(IncomingPayment)
	// AutoAcknowledge removes each delivered payment from the inbox once OnPayment returns.
	AutoAcknowledge bool
}
