package peerpay

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is returned when a payment amount is zero.
	ErrInvalidAmount = errors.New("payment amount must be greater than zero")

	// ErrInvalidRecipient is returned when the recipient is not a valid identity key.
	ErrInvalidRecipient = errors.New("recipient must be a valid identity key")

	// ErrMalformedToken is returned when a message body is not a valid payment token.
	ErrMalformedToken = errors.New("malformed payment token")

	// ErrAlreadyListening is returned when a client already has a running live listener.
	ErrAlreadyListening = errors.New("already listening for live payments")

	// ErrNoPaymentHandler is returned when listening without a payment callback.
	ErrNoPaymentHandler = errors.New("payment handler must be provided")

	// ErrPaymentMismatch is returned when the token transaction does not pay what the token claims.
	ErrPaymentMismatch = errors.New("payment transaction does not match the token")
)

// FailureKind tells which step of claiming an incoming payment failed.
type FailureKind string

const (
	FailureKindSigner      FailureKind = "signer"
	FailureKindClaim       FailureKind = "claim"
	FailureKindRejected    FailureKind = "rejected"
	FailureKindAcknowledge FailureKind = "acknowledge"
	FailureKindRefund      FailureKind = "refund"
)

// PaymentFailure is returned by AcceptPayment and RejectPayment when the payment could not be processed.
// The payment is left in the inbox (unless the failure is of FailureKindRefund) so it can be retried.
type PaymentFailure struct {
	Kind      FailureKind
	MessageID string
	Err       error
}

func (f *PaymentFailure) Error() string {
	switch f.Kind {
	case FailureKindSigner:
		return fmt.Sprintf("payment %s: signing capability unavailable: %v", f.MessageID, f.Err)
	case FailureKindClaim:
		return fmt.Sprintf("payment %s: failed to claim: %v", f.MessageID, f.Err)
	case FailureKindRejected:
		return fmt.Sprintf("payment %s: claim not accepted by wallet", f.MessageID)
	case FailureKindAcknowledge:
		return fmt.Sprintf("payment %s: claimed but failed to acknowledge: %v", f.MessageID, f.Err)
	case FailureKindRefund:
		return fmt.Sprintf("payment %s: claimed but failed to send refund: %v", f.MessageID, f.Err)
	default:
		return fmt.Sprintf("payment %s: %v", f.MessageID, f.Err)
	}
}

func (f *PaymentFailure) Unwrap() error {
	return f.Err
}

var errNotAccepted = errors.New("internalize action not accepted")

func newFailure(kind FailureKind, messageID string, err error) *PaymentFailure {
	return &PaymentFailure{Kind: kind, MessageID: messageID, Err: err}
}
