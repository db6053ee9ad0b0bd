package peerpay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
)

// ListenForLivePayments delivers payments arriving over the live channel to args.OnPayment.
// Only one listener per client may run at a time. It stops when the returned subscription
// is closed or ctx is done, after which no more callbacks are made.
func (c *Client) ListenForLivePayments(ctx context.Context, args ListenArgs) (messagebox.Subscription, error) {
	if args.OnPayment == nil {
		return nil, ErrNoPaymentHandler
	}

	c.listenMu.Lock()
	defer c.listenMu.Unlock()

	if c.listening != nil && !isDone(c.listening) {
		return nil, ErrAlreadyListening
	}

	sub, err := c.transport.SubscribeLive(ctx, messagebox.SubscribeArgs{
		MessageBox: MessageBox,
		OnMessage: func(msg messagebox.PeerMessage) {
			c.handleLiveMessage(ctx, msg, args)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to listen for live payments: %w", err)
	}

	c.listening = sub
	c.logger.InfoContext(ctx, "Listening for live payments", slog.Bool("autoAcknowledge", args.AutoAcknowledge))
	return sub, nil
}

func (c *Client) handleLiveMessage(ctx context.Context, msg messagebox.PeerMessage, args ListenArgs) {
	payment, err := toIncomingPayment(msg)
	if err != nil {
		c.logger.WarnContext(ctx, "Skipping malformed live payment", slog.String("messageId", msg.MessageID), logging.Error(err))
		return
	}

	args.OnPayment(*payment)

	if !args.AutoAcknowledge {
		return
	}
	if err := c.acknowledge(ctx, msg.MessageID); err != nil {
		c.logger.WarnContext(ctx, "Failed to acknowledge live payment", slog.String("messageId", msg.MessageID), logging.Error(err))
	}
}

func isDone(sub messagebox.Subscription) bool {
	select {
	case <-sub.Done():
		return true
	default:
		return false
	}
}
