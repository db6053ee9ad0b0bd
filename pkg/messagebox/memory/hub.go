// Package memory provides an in-process MessageBox: a Hub holding every identity's message boxes,
// and a Transport per identity talking to it.
//
// It is suitable for tests and single-process setups. Messages are lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
	"github.com/go-softwarelab/common/pkg/to"
	"github.com/google/uuid"
)

type HubOptions struct {
	Logger *slog.Logger
	Clock  func() time.Time
}

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) func(*HubOptions) {
	return func(o *HubOptions) {
		o.Logger = logger
	}
}

// WithClock overrides the time source used for message timestamps.
func WithClock(clock func() time.Time) func(*HubOptions) {
	return func(o *HubOptions) {
		o.Clock = clock
	}
}

type boxKey struct {
	owner string
	box   string
}

// Hub stores messages of all identities. It is safe for concurrent use.
type Hub struct {
	mu    sync.Mutex
	boxes map[boxKey][]messagebox.PeerMessage
	rooms map[string]map[*messagebox.QueuedSubscription]struct{}

	logger *slog.Logger
	clock  func() time.Time
}

// NewHub creates an empty hub.
func NewHub(opts ...func(*HubOptions)) *Hub {
	options := to.OptionsWithDefault(HubOptions{
		Logger: slog.Default(),
		Clock:  time.Now,
	}, opts...)

	return &Hub{
		boxes:  make(map[boxKey][]messagebox.PeerMessage),
		rooms:  make(map[string]map[*messagebox.QueuedSubscription]struct{}),
		logger: logging.Child(options.Logger, "MessageBoxHub"),
		clock:  options.Clock,
	}
}

// TransportFor returns the transport used by the given identity.
func (h *Hub) TransportFor(identityKey string) *Transport {
	return &Transport{
		hub:         h,
		identityKey: identityKey,
	}
}

// Pending returns the number of unacknowledged messages in the box of the given identity.
func (h *Hub) Pending(identityKey string, messageBox string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.boxes[boxKey{owner: identityKey, box: messageBox}])
}

// Listeners returns the number of live subscriptions on the box of the given identity.
func (h *Hub) Listeners(identityKey string, messageBox string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.rooms[messagebox.RoomID(identityKey, messageBox)])
}

func (h *Hub) store(sender string, args messagebox.SendMessageArgs, live bool) (*messagebox.SendMessageResult, error) {
	if err := messagebox.ValidateSendArgs(args); err != nil {
		return nil, err
	}

	messageID := args.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	now := h.clock()
	msg := messagebox.PeerMessage{
		MessageID: messageID,
		Body:      args.Body,
		Sender:    sender,
		CreatedAt: now,
		UpdatedAt: now,
	}

	key := boxKey{owner: args.Recipient, box: args.MessageBox}

	h.mu.Lock()
	if slices.ContainsFunc(h.boxes[key], func(m messagebox.PeerMessage) bool { return m.MessageID == messageID }) {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", messagebox.ErrDuplicateMessage, messageID)
	}
	h.boxes[key] = append(h.boxes[key], msg)

	var listeners []*messagebox.QueuedSubscription
	if live {
		for sub := range h.rooms[messagebox.RoomID(args.Recipient, args.MessageBox)] {
			listeners = append(listeners, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range listeners {
		sub.Push(msg)
	}

	h.logger.Debug("Message stored",
		slog.String("messageId", messageID),
		slog.String("messageBox", args.MessageBox),
		slog.Bool("live", len(listeners) > 0),
	)

	return &messagebox.SendMessageResult{
		MessageID: messageID,
		Status:    "success",
		Live:      len(listeners) > 0,
	}, nil
}

func (h *Hub) list(owner string, messageBox string) []messagebox.PeerMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	return slices.Clone(h.boxes[boxKey{owner: owner, box: messageBox}])
}

func (h *Hub) acknowledge(owner string, messageIDs []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var missing []string
	for _, id := range messageIDs {
		if !h.removeLocked(owner, id) {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", messagebox.ErrAlreadyAcknowledged, missing)
	}
	return nil
}

func (h *Hub) removeLocked(owner string, messageID string) bool {
	for key, messages := range h.boxes {
		if key.owner != owner {
			continue
		}
		idx := slices.IndexFunc(messages, func(m messagebox.PeerMessage) bool { return m.MessageID == messageID })
		if idx >= 0 {
			h.boxes[key] = slices.Delete(messages, idx, idx+1)
			return true
		}
	}
	return false
}

func (h *Hub) subscribe(ctx context.Context, owner string, args messagebox.SubscribeArgs) (*messagebox.QueuedSubscription, error) {
	if args.MessageBox == "" {
		return nil, messagebox.ErrEmptyMessageBox
	}
	if args.OnMessage == nil {
		return nil, messagebox.ErrNoMessageHandler
	}

	room := messagebox.RoomID(owner, args.MessageBox)

	// hub lock is held until sub is registered, so onClose never observes a partially registered subscription.
	h.mu.Lock()
	var sub *messagebox.QueuedSubscription
	sub = messagebox.NewQueuedSubscription(ctx, args.OnMessage, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.rooms[room], sub)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	})
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*messagebox.QueuedSubscription]struct{})
	}
	h.rooms[room][sub] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("Joined live room", slog.String("room", room))
	return sub, nil
}
