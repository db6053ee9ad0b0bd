package peerpay

import (
	"context"
	"log/slog"

	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
)

// RejectPayment returns the payment to its sender, less RefundFee.
//
// Payments too small to refund are only acknowledged. Otherwise the payment is first accepted into the
// claiming wallet and then that wallet sends a new payment of the remaining amount to the sender, so for
// a short time the rejected funds are held together with the wallet's own.
func (c *Client) RejectPayment(ctx context.Context, payment IncomingPayment) (*RefundResult, error) {
	log := c.logger.With(slog.String("messageId", payment.MessageID), slog.String("sender", payment.Sender))

	if payment.Amount < RefundFee+DustThreshold {
		if err := c.acknowledge(ctx, payment.MessageID); err != nil {
			log.WarnContext(ctx, "Failed to drop dust payment", logging.Error(err))
			return nil, newFailure(FailureKindAcknowledge, payment.MessageID, err)
		}

		log.InfoContext(ctx, "Payment too small to refund, dropped", slog.Uint64("amount", payment.Amount))
		return &RefundResult{Outcome: RefundOutcomeDust}, nil
	}

	accepted, err := c.AcceptPayment(ctx, payment)
	if err != nil {
		return nil, err
	}

	refundAmount := payment.Amount - RefundFee

	claimer, err := c.claimingWallet(ctx)
	if err != nil {
		log.WarnContext(ctx, "Signing capability unavailable for refund", logging.Error(err))
		return nil, newFailure(FailureKindRefund, payment.MessageID, err)
	}

	refund, err := c.sendPayment(ctx, claimer, Payment{Recipient: payment.Sender, Amount: refundAmount}, c.transport.SendMessage)
	if err != nil {
		log.WarnContext(ctx, "Failed to send refund", slog.Uint64("refundAmount", refundAmount), logging.Error(err))
		return nil, newFailure(FailureKindRefund, payment.MessageID, err)
	}

	log.InfoContext(ctx, "Payment refunded", slog.Uint64("refundAmount", refundAmount), slog.String("refundMessageId", refund.MessageID))
	return &RefundResult{
		Outcome:      RefundOutcomeRefunded,
		Accepted:     accepted,
		RefundAmount: refundAmount,
		Refund:       refund,
	}, nil
}
