package peerpay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/wallet"
)

// AcceptPayment claims the payment into the wallet of the signing capability and removes it from the inbox.
//
// Accepting a payment that was already acknowledged is not an error, so redelivered payments can be accepted again.
// Every failure is returned as *PaymentFailure.
func (c *Client) AcceptPayment(ctx context.Context, payment IncomingPayment) (*PaymentResult, error) {
	log := c.logger.With(slog.String("messageId", payment.MessageID), slog.String("sender", payment.Sender))

	result, failure := c.claim(ctx, payment)
	if failure == nil {
		if err := c.acknowledge(ctx, payment.MessageID); err != nil {
			failure = newFailure(FailureKindAcknowledge, payment.MessageID, err)
		}
	}
	if failure != nil {
		log.WarnContext(ctx, "Failed to accept payment", slog.String("kind", string(failure.Kind)), logging.Error(failure.Err))
		return nil, failure
	}

	log.InfoContext(ctx, "Payment accepted", slog.Uint64("amount", payment.Amount))
	return &PaymentResult{
		Payment:       payment,
		PaymentResult: result,
	}, nil
}

func (c *Client) claim(ctx context.Context, payment IncomingPayment) (*wallet.InternalizeActionResult, *PaymentFailure) {
	claimer, err := c.claimingWallet(ctx)
	if err != nil {
		return nil, newFailure(FailureKindSigner, payment.MessageID, err)
	}

	args, err := internalizeArgs(payment)
	if err != nil {
		return nil, newFailure(FailureKindClaim, payment.MessageID, err)
	}

	result, err := claimer.InternalizeAction(ctx, *args, c.originator)
	if err != nil {
		return nil, newFailure(FailureKindClaim, payment.MessageID, err)
	}
	if result == nil || !result.Accepted {
		return nil, newFailure(FailureKindRejected, payment.MessageID, errNotAccepted)
	}
	return result, nil
}

func internalizeArgs(payment IncomingPayment) (*wallet.InternalizeActionArgs, error) {
	token := payment.Token
	if err := token.Validate(); err != nil {
		return nil, err
	}

	sender, err := ec.PublicKeyFromString(payment.Sender)
	if err != nil {
		return nil, fmt.Errorf("invalid sender identity key: %w", err)
	}

	prefix, err := base64.StdEncoding.DecodeString(token.DerivationPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: derivation prefix must be base64: %w", ErrMalformedToken, err)
	}

	output := token.Output()
	suffix, err := base64.StdEncoding.DecodeString(output.DerivationSuffix)
	if err != nil {
		return nil, fmt.Errorf("%w: derivation suffix must be base64: %w", ErrMalformedToken, err)
	}

	return &wallet.InternalizeActionArgs{
		Tx: token.Transaction.Tx,
		Outputs: []wallet.InternalizeOutput{
			{
				OutputIndex: output.Vout,
				Protocol:    wallet.InternalizeProtocolWalletPayment,
				PaymentRemittance: &wallet.Payment{
					DerivationPrefix:  prefix,
					DerivationSuffix:  suffix,
					SenderIdentityKey: sender,
				},
			},
		},
		Labels:      []string{paymentLabel},
		Description: claimDescription,
	}, nil
}

// acknowledge removes the message from the inbox, tolerating a message that is already gone.
func (c *Client) acknowledge(ctx context.Context, messageID string) error {
	err := c.transport.AcknowledgeMessage(ctx, []string{messageID})
	if errors.Is(err, messagebox.ErrAlreadyAcknowledged) {
		c.logger.DebugContext(ctx, "Payment message already acknowledged", slog.String("messageId", messageID))
		return nil
	}
	return err
}
