package httpclient_test

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-peerpay/pkg/constants"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/testabilities"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/testabilities/testusers"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox/httpclient"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inbox = "payment_inbox"

type fixture struct {
	server testabilities.MessageBoxServerFixture
	alice  *httpclient.Client
	bob    *httpclient.Client
	aliceU *testusers.UserWithWallet
	bobU   *testusers.UserWithWallet
}

func given(t *testing.T, middleware ...func(next http.Handler) http.Handler) *fixture {
	logger := logging.NewTestLogger(t)

	server := testabilities.NewMessageBoxServerFixture(t, memory.NewHub(memory.WithLogger(logger)), logger)
	for _, m := range middleware {
		server.WithMiddlewareFunc(m)
	}
	cleanup := server.Started()
	t.Cleanup(cleanup)

	alice := testusers.NewAlice(t)
	bob := testusers.NewBob(t)

	f := &fixture{
		server: server,
		aliceU: alice,
		bobU:   bob,
		alice:  httpclient.New(server.URL(), alice.Wallet(), httpclient.WithPlainHTTP(), httpclient.WithLogger(logger), httpclient.WithLiveAckTimeout(time.Second)),
		bob:    httpclient.New(server.URL(), bob.Wallet(), httpclient.WithPlainHTTP(), httpclient.WithLogger(logger)),
	}
	t.Cleanup(func() {
		_ = f.alice.Close()
		_ = f.bob.Close()
	})
	return f
}

func TestStoreAndForwardOverHTTP(t *testing.T) {
	t.Run("sends lists and acknowledges messages", func(t *testing.T) {
		// given:
		f := given(t)
		bobKey := f.bobU.IdentityKey(t)

		// when:
		sent, err := f.alice.SendMessage(t.Context(), messagebox.SendMessageArgs{Recipient: bobKey, MessageBox: inbox, Body: "hello"})

		// then:
		require.NoError(t, err)
		assert.Len(t, sent.MessageID, 64)
		assert.Equal(t, constants.StatusSuccess, sent.Status)
		assert.False(t, sent.Live)

		// when:
		messages, err := f.bob.ListMessages(t.Context(), inbox)

		// then:
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, sent.MessageID, messages[0].MessageID)
		assert.Equal(t, "hello", messages[0].Body)
		assert.Equal(t, f.aliceU.IdentityKey(t), messages[0].Sender)

		// when:
		err = f.bob.AcknowledgeMessage(t.Context(), []string{sent.MessageID})

		// then:
		require.NoError(t, err)
		assert.Zero(t, f.server.Hub().Pending(bobKey, inbox))
	})

	t.Run("second acknowledgment maps to already acknowledged", func(t *testing.T) {
		// given:
		f := given(t)
		sent, err := f.alice.SendMessage(t.Context(), messagebox.SendMessageArgs{Recipient: f.bobU.IdentityKey(t), MessageBox: inbox, Body: "x"})
		require.NoError(t, err)
		require.NoError(t, f.bob.AcknowledgeMessage(t.Context(), []string{sent.MessageID}))

		// when:
		err = f.bob.AcknowledgeMessage(t.Context(), []string{sent.MessageID})

		// then:
		require.ErrorIs(t, err, messagebox.ErrAlreadyAcknowledged)
		var serverErr *httpclient.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, constants.CodeInvalidAcknowledgment, serverErr.Code)
	})

	t.Run("uses explicit message id", func(t *testing.T) {
		// given:
		f := given(t)

		// when:
		sent, err := f.alice.SendMessage(t.Context(), messagebox.SendMessageArgs{Recipient: f.bobU.IdentityKey(t), MessageBox: inbox, Body: "x", MessageID: "explicit"})

		// then:
		require.NoError(t, err)
		assert.Equal(t, "explicit", sent.MessageID)
	})

	t.Run("returns server error for non json failure", func(t *testing.T) {
		// given:
		f := given(t, func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "maintenance", http.StatusServiceUnavailable)
			})
		})

		// when:
		_, err := f.bob.ListMessages(t.Context(), inbox)

		// then:
		var serverErr *httpclient.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, http.StatusServiceUnavailable, serverErr.StatusCode)
		assert.Equal(t, "maintenance", serverErr.Description)
		assert.NotErrorIs(t, err, messagebox.ErrAlreadyAcknowledged)
	})

	t.Run("validates arguments before calling server", func(t *testing.T) {
		// given:
		f := given(t)

		// when:
		_, errSend := f.alice.SendMessage(t.Context(), messagebox.SendMessageArgs{MessageBox: inbox})
		_, errList := f.alice.ListMessages(t.Context(), "")
		errAck := f.alice.AcknowledgeMessage(t.Context(), nil)

		// then:
		require.ErrorIs(t, errSend, messagebox.ErrEmptyRecipient)
		require.ErrorIs(t, errList, messagebox.ErrEmptyMessageBox)
		require.ErrorIs(t, errAck, messagebox.ErrNoMessageIDs)
	})
}

type received struct {
	mu       sync.Mutex
	messages []messagebox.PeerMessage
}

func (r *received) OnMessage(msg messagebox.PeerMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *received) All() []messagebox.PeerMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]messagebox.PeerMessage(nil), r.messages...)
}

func TestLiveChannel(t *testing.T) {
	t.Run("pushes live message to subscribed recipient", func(t *testing.T) {
		// given:
		f := given(t)
		got := &received{}
		sub, err := f.bob.SubscribeLive(t.Context(), messagebox.SubscribeArgs{MessageBox: inbox, OnMessage: got.OnMessage})
		require.NoError(t, err)
		defer func() { _ = sub.Close() }()

		// and: join is processed by the server before the send
		require.Eventually(t, func() bool {
			return joined(t, f)
		}, time.Second, 10*time.Millisecond)

		// when:
		sent, err := f.alice.SendLiveMessage(t.Context(), messagebox.SendMessageArgs{Recipient: f.bobU.IdentityKey(t), MessageBox: inbox, Body: "live"})

		// then:
		require.NoError(t, err)
		assert.True(t, sent.Live)
		require.Eventually(t, func() bool {
			for _, msg := range got.All() {
				if msg.MessageID == sent.MessageID {
					return msg.Body == "live" && msg.Sender == f.aliceU.IdentityKey(t)
				}
			}
			return false
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("falls back to store and forward when live channel is unavailable", func(t *testing.T) {
		// given:
		f := given(t, func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == constants.LivePath {
					http.NotFound(w, r)
					return
				}
				next.ServeHTTP(w, r)
			})
		})
		bobKey := f.bobU.IdentityKey(t)

		// when:
		sent, err := f.alice.SendLiveMessage(t.Context(), messagebox.SendMessageArgs{Recipient: bobKey, MessageBox: inbox, Body: "later"})

		// then:
		require.NoError(t, err)
		assert.False(t, sent.Live)
		assert.Equal(t, 1, f.server.Hub().Pending(bobKey, inbox))
	})

	t.Run("rejects second subscription to the same box", func(t *testing.T) {
		// given:
		f := given(t)
		sub, err := f.bob.SubscribeLive(t.Context(), messagebox.SubscribeArgs{MessageBox: inbox, OnMessage: func(messagebox.PeerMessage) {}})
		require.NoError(t, err)
		defer func() { _ = sub.Close() }()

		// when:
		_, err = f.bob.SubscribeLive(t.Context(), messagebox.SubscribeArgs{MessageBox: inbox, OnMessage: func(messagebox.PeerMessage) {}})

		// then:
		require.ErrorIs(t, err, httpclient.ErrAlreadySubscribed)
	})

	t.Run("closing the client ends subscriptions", func(t *testing.T) {
		// given:
		f := given(t)
		sub, err := f.bob.SubscribeLive(t.Context(), messagebox.SubscribeArgs{MessageBox: inbox, OnMessage: func(messagebox.PeerMessage) {}})
		require.NoError(t, err)

		// when:
		require.NoError(t, f.bob.Close())

		// then:
		select {
		case <-sub.Done():
		case <-time.After(time.Second):
			assert.Fail(t, "subscription should end when client is closed")
		}

		// and:
		_, err = f.bob.SubscribeLive(t.Context(), messagebox.SubscribeArgs{MessageBox: inbox, OnMessage: func(messagebox.PeerMessage) {}})
		require.ErrorIs(t, err, httpclient.ErrClosed)
	})
}

func joined(t *testing.T, f *fixture) bool {
	t.Helper()
	return f.server.Hub().Listeners(f.bobU.IdentityKey(t), inbox) > 0
}
