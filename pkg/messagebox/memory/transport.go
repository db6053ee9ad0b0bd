package memory

import (
	"context"

	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
)

var _ messagebox.Transport = (*Transport)(nil)

// Transport is the messagebox.Transport of a single identity on a Hub.
type Transport struct {
	hub         *Hub
	identityKey string
}

// IdentityKey returns the identity this transport sends and receives as.
func (t *Transport) IdentityKey() string {
	return t.identityKey
}

func (t *Transport) SendMessage(ctx context.Context, args messagebox.SendMessageArgs) (*messagebox.SendMessageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.hub.store(t.identityKey, args, false)
}

func (t *Transport) SendLiveMessage(ctx context.Context, args messagebox.SendMessageArgs) (*messagebox.SendMessageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.hub.store(t.identityKey, args, true)
}

func (t *Transport) ListMessages(ctx context.Context, messageBox string) ([]messagebox.PeerMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if messageBox == "" {
		return nil, messagebox.ErrEmptyMessageBox
	}
	return t.hub.list(t.identityKey, messageBox), nil
}

func (t *Transport) AcknowledgeMessage(ctx context.Context, messageIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(messageIDs) == 0 {
		return messagebox.ErrNoMessageIDs
	}
	return t.hub.acknowledge(t.identityKey, messageIDs)
}

func (t *Transport) SubscribeLive(ctx context.Context, args messagebox.SubscribeArgs) (messagebox.Subscription, error) {
	return t.hub.subscribe(ctx, t.identityKey, args)
}
