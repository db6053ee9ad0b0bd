package peerpay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
	"github.com/bsv-blockchain/go-sdk/wallet"
)

// SendPayment creates a payment token and stores it in the recipient's payment inbox.
func (c *Client) SendPayment(ctx context.Context, payment Payment) (*SendResult, error) {
	return c.sendPayment(ctx, c.wallet, payment, c.transport.SendMessage)
}

// SendLivePayment creates a payment token and pushes it to the recipient over the live channel.
// The transport falls back to the inbox when the recipient is not connected.
func (c *Client) SendLivePayment(ctx context.Context, payment Payment) (*SendResult, error) {
	return c.sendPayment(ctx, c.wallet, payment, c.transport.SendLiveMessage)
}

type sendFunc func(ctx context.Context, args messagebox.SendMessageArgs) (*messagebox.SendMessageResult, error)

func (c *Client) sendPayment(ctx context.Context, w wallet.Interface, payment Payment, send sendFunc) (*SendResult, error) {
	token, err := c.createPaymentToken(ctx, w, payment)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment token: %w", err)
	}

	res, err := send(ctx, messagebox.SendMessageArgs{
		Recipient:  payment.Recipient,
		MessageBox: MessageBox,
		Body:       string(body),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deliver payment token: %w", err)
	}

	c.logger.InfoContext(ctx, "Payment sent",
		slog.String("messageId", res.MessageID),
		slog.String("recipient", payment.Recipient),
		slog.Uint64("amount", payment.Amount),
		slog.Bool("live", res.Live),
	)

	return &SendResult{
		MessageID: res.MessageID,
		Token:     *token,
		Live:      res.Live,
	}, nil
}
