// Package httpclient is a messagebox.Transport talking to a remote MessageBox server:
// REST for store-and-forward and a websocket for the live channel.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-peerpay/pkg/constants"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
	clients "github.com/bsv-blockchain/go-sdk/auth/clients/authhttp"
	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/go-resty/resty/v2"
	"github.com/go-softwarelab/common/pkg/to"
)

var _ messagebox.Transport = (*Client)(nil)

// Client is a MessageBox server client acting as the identity of its wallet.
type Client struct {
	baseURL    string
	wallet     wallet.Interface
	originator string
	logger     *slog.Logger
	requester  requester
	ackTimeout time.Duration

	identityMu  sync.Mutex
	identityKey string

	liveMu sync.Mutex
	live   *liveChannel
	closed bool
}

// New creates a client of the MessageBox server at baseURL.
func New(baseURL string, w wallet.Interface, opts ...func(*Options)) *Client {
	if w == nil {
		panic("wallet must be provided to create a MessageBox client")
	}

	options := to.OptionsWithDefault(Options{
		Logger:         slog.Default(),
		HTTPClient:     http.DefaultClient,
		LiveAckTimeout: DefaultLiveAckTimeout,
	}, opts...)

	logger := logging.Child(logging.DefaultIfNil(options.Logger), "MessageBoxClient")

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		wallet:     w,
		originator: options.Originator,
		logger:     logger,
		ackTimeout: options.LiveAckTimeout,
	}

	if options.PlainHTTP {
		c.requester = &plainRequester{
			client:      resty.NewWithClient(options.HTTPClient),
			identityKey: c.IdentityKey,
		}
	} else {
		c.requester = &authRequester{
			fetch: clients.New(w, clients.WithLogger(logger), clients.WithHttpClient(options.HTTPClient)),
		}
	}

	return c
}

// IdentityKey returns the identity key of the client wallet, as DER hex.
func (c *Client) IdentityKey(ctx context.Context) (string, error) {
	c.identityMu.Lock()
	defer c.identityMu.Unlock()

	if c.identityKey != "" {
		return c.identityKey, nil
	}

	res, err := c.wallet.GetPublicKey(ctx, wallet.GetPublicKeyArgs{IdentityKey: true}, c.originator)
	if err != nil {
		return "", fmt.Errorf("failed to get identity key from wallet: %w", err)
	}
	c.identityKey = res.PublicKey.ToDERHex()
	return c.identityKey, nil
}

func (c *Client) SendMessage(ctx context.Context, args messagebox.SendMessageArgs) (*messagebox.SendMessageResult, error) {
	msg, err := c.prepare(ctx, args)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, msg)
}

func (c *Client) ListMessages(ctx context.Context, messageBox string) ([]messagebox.PeerMessage, error) {
	if messageBox == "" {
		return nil, messagebox.ErrEmptyMessageBox
	}

	var res listMessagesResponse
	if err := c.call(ctx, constants.ListMessagesPath, listMessagesRequest{MessageBox: messageBox}, &res); err != nil {
		return nil, fmt.Errorf("failed to list messages of %s: %w", messageBox, err)
	}
	return res.Messages, nil
}

func (c *Client) AcknowledgeMessage(ctx context.Context, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return messagebox.ErrNoMessageIDs
	}

	if err := c.call(ctx, constants.AcknowledgeMessagePath, acknowledgeMessageRequest{MessageIDs: messageIDs}, nil); err != nil {
		return fmt.Errorf("failed to acknowledge messages: %w", err)
	}
	return nil
}

// Close disconnects the live channel, ending all live subscriptions.
func (c *Client) Close() error {
	c.liveMu.Lock()
	defer c.liveMu.Unlock()

	c.closed = true
	if c.live != nil {
		c.live.shutdown(ErrClosed)
		c.live = nil
	}
	return nil
}

func (c *Client) prepare(ctx context.Context, args messagebox.SendMessageArgs) (wireMessage, error) {
	if err := messagebox.ValidateSendArgs(args); err != nil {
		return wireMessage{}, err
	}

	messageID := args.MessageID
	if messageID == "" {
		var err error
		messageID, err = messagebox.NewMessageID(ctx, c.wallet, args.Recipient, args.Body, c.originator)
		if err != nil {
			return wireMessage{}, err
		}
	}

	return wireMessage{
		MessageID:  messageID,
		Recipient:  args.Recipient,
		MessageBox: args.MessageBox,
		Body:       args.Body,
	}, nil
}

func (c *Client) send(ctx context.Context, msg wireMessage) (*messagebox.SendMessageResult, error) {
	var res sendMessageResponse
	if err := c.call(ctx, constants.SendMessagePath, sendMessageRequest{Message: msg}, &res); err != nil {
		return nil, fmt.Errorf("failed to send message to %s: %w", msg.MessageBox, err)
	}

	c.logger.DebugContext(ctx, "Message sent", slog.String("messageId", msg.MessageID), slog.String("messageBox", msg.MessageBox))

	return &messagebox.SendMessageResult{
		MessageID: msg.MessageID,
		Status:    res.Status,
	}, nil
}

func (c *Client) call(ctx context.Context, path string, request any, out any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	res, err := c.requester.post(ctx, c.baseURL+path, body)
	if err != nil {
		return err
	}

	if err := checkResponse(res); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("failed to parse response of %s: %w", path, err)
	}
	return nil
}

func checkResponse(res *response) error {
	var envelope errorResponse
	parseErr := json.Unmarshal(res.body, &envelope)

	if res.statusCode < http.StatusBadRequest && envelope.Status != constants.StatusError {
		return nil
	}

	serverErr := &ServerError{
		StatusCode:  res.statusCode,
		Code:        envelope.Code,
		Description: envelope.Description,
	}
	if parseErr != nil {
		serverErr.Description = strings.TrimSpace(string(res.body))
	}
	return serverErr
}
