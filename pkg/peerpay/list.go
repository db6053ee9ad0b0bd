package peerpay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
)

// ListIncomingPayments returns the payments waiting in the inbox, in transport order.
// Nothing is acknowledged. Messages that are not valid payment tokens are skipped.
func (c *Client) ListIncomingPayments(ctx context.Context) ([]IncomingPayment, error) {
	messages, err := c.transport.ListMessages(ctx, MessageBox)
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming payments: %w", err)
	}

	payments := make([]IncomingPayment, 0, len(messages))
	for _, msg := range messages {
		payment, err := toIncomingPayment(msg)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping malformed payment message", slog.String("messageId", msg.MessageID), logging.Error(err))
			continue
		}
		payments = append(payments, *payment)
	}
	return payments, nil
}

func toIncomingPayment(msg messagebox.PeerMessage) (*IncomingPayment, error) {
	token, err := ParsePaymentToken(msg.Body)
	if err != nil {
		return nil, err
	}

	return &IncomingPayment{
		MessageID: msg.MessageID,
		Sender:    msg.Sender,
		Amount:    token.Amount,
		Token:     *token,
	}, nil
}
