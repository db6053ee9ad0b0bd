package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-peerpay/pkg/constants"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
	"golang.org/x/net/websocket"
)

var (
	// ErrAlreadySubscribed is returned when subscribing twice to the same message box.
	ErrAlreadySubscribed = errors.New("already subscribed to this message box")

	errAckTimeout = errors.New("timed out waiting for live send acknowledgment")
)

// SendLiveMessage pushes the message over the live channel and waits for the server acknowledgment.
// On any live channel failure the message is sent with SendMessage, under the same message id.
func (c *Client) SendLiveMessage(ctx context.Context, args messagebox.SendMessageArgs) (*messagebox.SendMessageResult, error) {
	msg, err := c.prepare(ctx, args)
	if err != nil {
		return nil, err
	}

	live, err := c.liveChannel(ctx)
	if err == nil {
		err = live.sendMessage(ctx, msg, c.ackTimeout)
		if err == nil {
			return &messagebox.SendMessageResult{
				MessageID: msg.MessageID,
				Status:    constants.StatusSuccess,
				Live:      true,
			}, nil
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.logger.WarnContext(ctx, "Live send failed, falling back to store-and-forward",
		slog.String("messageId", msg.MessageID),
		logging.Error(err),
	)

	result, err := c.send(ctx, msg)
	if errors.Is(err, messagebox.ErrDuplicateMessage) {
		// the live send reached the server after all
		return &messagebox.SendMessageResult{MessageID: msg.MessageID, Status: constants.StatusSuccess}, nil
	}
	return result, err
}

// SubscribeLive joins the live room of the client's own message box.
func (c *Client) SubscribeLive(ctx context.Context, args messagebox.SubscribeArgs) (messagebox.Subscription, error) {
	if args.MessageBox == "" {
		return nil, messagebox.ErrEmptyMessageBox
	}
	if args.OnMessage == nil {
		return nil, messagebox.ErrNoMessageHandler
	}

	identityKey, err := c.IdentityKey(ctx)
	if err != nil {
		return nil, err
	}

	live, err := c.liveChannel(ctx)
	if err != nil {
		return nil, err
	}

	return live.subscribe(ctx, messagebox.RoomID(identityKey, args.MessageBox), args.OnMessage)
}

func (c *Client) liveChannel(ctx context.Context) (*liveChannel, error) {
	c.liveMu.Lock()
	defer c.liveMu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.live != nil && !c.live.isClosed() {
		return c.live, nil
	}

	identityKey, err := c.IdentityKey(ctx)
	if err != nil {
		return nil, err
	}

	live, err := dialLive(ctx, c.baseURL, identityKey, c.logger)
	if err != nil {
		return nil, err
	}
	c.live = live
	return live, nil
}

type liveChannel struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu    sync.Mutex
	rooms map[string]*messagebox.QueuedSubscription
	acks  map[string]chan frame

	done      chan struct{}
	closeOnce sync.Once
}

func dialLive(ctx context.Context, baseURL string, identityKey string, logger *slog.Logger) (*liveChannel, error) {
	wsURL, err := liveURL(baseURL)
	if err != nil {
		return nil, err
	}

	config, err := websocket.NewConfig(wsURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid live channel config: %w", err)
	}
	config.Header.Set(constants.HeaderIdentityKey, identityKey)

	conn, err := config.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect live channel %s: %w", wsURL, err)
	}

	l := &liveChannel{
		conn:   conn,
		logger: logger.With(slog.String("channel", "live")),
		rooms:  make(map[string]*messagebox.QueuedSubscription),
		acks:   make(map[string]chan frame),
		done:   make(chan struct{}),
	}
	go l.receive()

	l.logger.Debug("Live channel connected", slog.String("url", wsURL))
	return l, nil
}

func liveURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid MessageBox server url %q: %w", baseURL, err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += constants.LivePath
	return u.String(), nil
}

func (l *liveChannel) subscribe(ctx context.Context, room string, onMessage func(messagebox.PeerMessage)) (*messagebox.QueuedSubscription, error) {
	l.mu.Lock()
	if l.isClosed() {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	if _, exists := l.rooms[room]; exists {
		l.mu.Unlock()
		return nil, ErrAlreadySubscribed
	}

	var sub *messagebox.QueuedSubscription
	sub = messagebox.NewQueuedSubscription(ctx, onMessage, func() {
		l.mu.Lock()
		if l.rooms[room] == sub {
			delete(l.rooms, room)
		}
		l.mu.Unlock()

		if !l.isClosed() {
			if err := l.send(frame{Type: constants.FrameLeaveRoom, RoomID: room}); err != nil {
				l.logger.Debug("Failed to leave room", slog.String("room", room), logging.Error(err))
			}
		}
	})
	l.rooms[room] = sub
	l.mu.Unlock()

	if err := l.send(frame{Type: constants.FrameJoinRoom, RoomID: room}); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to join room %s: %w", room, err)
	}

	l.logger.Debug("Joined live room", slog.String("room", room))
	return sub, nil
}

func (l *liveChannel) sendMessage(ctx context.Context, msg wireMessage, timeout time.Duration) error {
	ack := make(chan frame, 1)

	l.mu.Lock()
	if l.isClosed() {
		l.mu.Unlock()
		return ErrClosed
	}
	l.acks[msg.MessageID] = ack
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.acks, msg.MessageID)
		l.mu.Unlock()
	}()

	err := l.send(frame{
		Type:    constants.FrameSendMessage,
		RoomID:  messagebox.RoomID(msg.Recipient, msg.MessageBox),
		Message: &msg,
	})
	if err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-ack:
		if f.Status != constants.StatusSuccess {
			return fmt.Errorf("live send rejected by server: %s", f.Description)
		}
		return nil
	case <-timer.C:
		return errAckTimeout
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *liveChannel) send(f frame) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := websocket.JSON.Send(l.conn, f); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", f.Type, err)
	}
	return nil
}

func (l *liveChannel) receive() {
	for {
		var f frame
		if err := websocket.JSON.Receive(l.conn, &f); err != nil {
			l.shutdown(err)
			return
		}

		switch f.Type {
		case constants.FrameMessage:
			l.deliver(f)
		case constants.FrameSendMessageAck:
			l.acknowledge(f)
		default:
			l.logger.Debug("Ignoring live frame", slog.String("type", f.Type), slog.String("room", f.RoomID))
		}
	}
}

func (l *liveChannel) deliver(f frame) {
	if f.Message == nil {
		l.logger.Warn("Live message frame without message", slog.String("room", f.RoomID))
		return
	}

	l.mu.Lock()
	sub := l.rooms[f.RoomID]
	l.mu.Unlock()

	if sub == nil {
		l.logger.Debug("Live message for a room not joined", slog.String("room", f.RoomID))
		return
	}

	sub.Push(messagebox.PeerMessage{
		MessageID: f.Message.MessageID,
		Body:      f.Message.Body,
		Sender:    f.Message.Sender,
	})
}

func (l *liveChannel) acknowledge(f frame) {
	if f.Message == nil {
		l.logger.Warn("Live send ack without message id", slog.String("room", f.RoomID))
		return
	}

	l.mu.Lock()
	ack, ok := l.acks[f.Message.MessageID]
	l.mu.Unlock()

	if !ok {
		return
	}
	select {
	case ack <- f:
	default:
	}
}

// shutdown closes the connection and ends every subscription of this channel.
func (l *liveChannel) shutdown(cause error) {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		close(l.done)
		subs := make([]*messagebox.QueuedSubscription, 0, len(l.rooms))
		for _, sub := range l.rooms {
			subs = append(subs, sub)
		}
		l.mu.Unlock()

		_ = l.conn.Close()
		for _, sub := range subs {
			_ = sub.Close()
		}

		if !errors.Is(cause, ErrClosed) {
			l.logger.Warn("Live channel disconnected", logging.Error(cause))
		}
	})
}

func (l *liveChannel) isClosed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}
