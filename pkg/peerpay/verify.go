package peerpay

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"
)

// VerifyIncomingPayment checks, before claiming, that the token transaction really pays this wallet:
// the output at vout carries the token amount and is locked to the key re-derived from the token.
func (c *Client) VerifyIncomingPayment(ctx context.Context, payment IncomingPayment) error {
	token := payment.Token
	if err := token.Validate(); err != nil {
		return err
	}

	tx, err := parseTransaction(token.Transaction.Tx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	output := token.Output()
	paid := tx.OutputIdx(int(output.Vout))
	if paid == nil {
		return fmt.Errorf("%w: transaction has no output %d", ErrPaymentMismatch, output.Vout)
	}
	if paid.Satoshis != output.Satoshis || output.Satoshis != token.Amount {
		return fmt.Errorf("%w: output pays %d satoshis, token claims %d", ErrPaymentMismatch, paid.Satoshis, token.Amount)
	}

	expected, err := c.DeriveIncomingLockingScript(ctx, payment.Sender, token.DerivationPrefix, output.DerivationSuffix)
	if err != nil {
		return err
	}
	if paid.LockingScript == nil || !bytes.Equal(paid.LockingScript.Bytes(), expected.Bytes()) {
		return fmt.Errorf("%w: output is not locked to the derived key", ErrPaymentMismatch)
	}
	return nil
}

// parseTransaction accepts BEEF (atomic or not) and raw transaction bytes.
func parseTransaction(raw []byte) (*transaction.Transaction, error) {
	if tx, err := transaction.NewTransactionFromBEEF(raw); err == nil && tx != nil {
		return tx, nil
	}

	tx, err := transaction.NewTransactionFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("transaction is neither BEEF nor raw: %w", err)
	}
	return tx, nil
}
