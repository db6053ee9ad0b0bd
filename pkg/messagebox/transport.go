// Package messagebox defines the store-and-forward message transport the payment protocol is layered on.
//
// A message box is a named inbox of one identity on a MessageBox server. Messages stay in the box until
// the recipient acknowledges them. A transport may also offer a live channel, which pushes messages to
// connected recipients as soon as they arrive.
package messagebox

import (
	"context"
	"time"
)

// PeerMessage is a message stored in (or pushed from) a message box.
type PeerMessage struct {
	MessageID string    `json:"messageId"`
	Body      string    `json:"body"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// SendMessageArgs describes a message to deliver into the recipient's message box.
// When MessageID is empty the transport assigns one.
type SendMessageArgs struct {
	Recipient  string
	MessageBox string
	Body       string
	MessageID  string
}

// SendMessageResult is the transport acknowledgment of a sent message.
type SendMessageResult struct {
	MessageID string
	Status    string
	// Live is true when the message was pushed over the live channel.
	Live bool
}

// SubscribeArgs configures a live subscription on one of the caller's own message boxes.
type SubscribeArgs struct {
	MessageBox string
	OnMessage  func(PeerMessage)
}

// Subscription is a running live subscription.
// After Close returns no further OnMessage calls are made.
type Subscription interface {
	Close() error
	Done() <-chan struct{}
}

// Transport is the set of message box primitives the payment protocol needs.
// Implementations must be safe for concurrent use.
type Transport interface {
	// SendMessage stores the message in the recipient's box (store-and-forward).
	SendMessage(ctx context.Context, args SendMessageArgs) (*SendMessageResult, error)

	// SendLiveMessage pushes the message to the recipient if it is connected,
	// otherwise it falls back to SendMessage.
	SendLiveMessage(ctx context.Context, args SendMessageArgs) (*SendMessageResult, error)

	// ListMessages returns all unacknowledged messages of the caller's box, in arrival order.
	ListMessages(ctx context.Context, messageBox string) ([]PeerMessage, error)

	// AcknowledgeMessage removes the messages from the caller's boxes.
	// Acknowledging a message that is no longer present returns ErrAlreadyAcknowledged.
	AcknowledgeMessage(ctx context.Context, messageIDs []string) error

	// SubscribeLive starts delivering messages arriving at the caller's box to args.OnMessage.
	// The subscription ends when Close is called or ctx is done.
	SubscribeLive(ctx context.Context, args SubscribeArgs) (Subscription, error)
}
