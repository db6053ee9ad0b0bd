package peerpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/go-softwarelab/common/pkg/to"
)

type customInstructions struct {
	DerivationPrefix string `json:"derivationPrefix"`
	DerivationSuffix string `json:"derivationSuffix"`
	Payee            string `json:"payee"`
}

// CreatePaymentToken funds a new output paying the recipient and wraps it as a payment token.
// Every call derives a new key, so it is not idempotent.
func (c *Client) CreatePaymentToken(ctx context.Context, payment Payment) (*PaymentToken, error) {
	return c.createPaymentToken(ctx, c.wallet, payment)
}

func (c *Client) createPaymentToken(ctx context.Context, w wallet.Interface, payment Payment) (*PaymentToken, error) {
	if payment.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	derivation, err := c.outputInfo(ctx, w, payment.Recipient)
	if err != nil {
		return nil, err
	}

	instructions, err := json.Marshal(customInstructions{
		DerivationPrefix: derivation.DerivationPrefix,
		DerivationSuffix: derivation.DerivationSuffix,
		Payee:            payment.Recipient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode output instructions: %w", err)
	}

	action, err := w.CreateAction(ctx, wallet.CreateActionArgs{
		Description: paymentDescription,
		Outputs: []wallet.CreateActionOutput{
			{
				LockingScript:      derivation.LockingScript.Bytes(),
				Satoshis:           payment.Amount,
				OutputDescription:  outputDescription,
				CustomInstructions: string(instructions),
			},
		},
		Options: &wallet.CreateActionOptions{
			RandomizeOutputs: to.Ptr(false),
		},
	}, c.originator)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment transaction: %w", err)
	}
	if len(action.Tx) == 0 {
		return nil, errors.New("wallet returned no transaction for the payment")
	}

	c.logger.DebugContext(ctx, "Payment transaction created",
		slog.String("txid", action.Txid.String()),
		slog.Uint64("amount", payment.Amount),
	)

	return &PaymentToken{
		DerivationPrefix: derivation.DerivationPrefix,
		Transaction: TokenTransaction{
			TxID: action.Txid.String(),
			Tx:   action.Tx,
			Outputs: []TokenOutput{
				{
					Vout:             0,
					Satoshis:         payment.Amount,
					DerivationSuffix: derivation.DerivationSuffix,
				},
			},
		},
		Amount: payment.Amount,
	}, nil
}
