package messagebox_test

import (
	"encoding/hex"
	"testing"

	"github.com/bsv-blockchain/go-peerpay/pkg/internal/testabilities/testusers"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageID(t *testing.T) {
	t.Run("recipient can verify the id derived by sender", func(t *testing.T) {
		// given:
		alice := testusers.NewAlice(t)
		bob := testusers.NewBob(t)
		body := `{"amount":1000}`

		// when:
		id, err := messagebox.NewMessageID(t.Context(), alice.Wallet(), bob.IdentityKey(t), body, "")

		// then:
		require.NoError(t, err)
		raw, err := hex.DecodeString(id)
		require.NoError(t, err)
		require.Len(t, raw, 32)

		// and:
		verified, err := bob.Wallet().VerifyHMAC(t.Context(), wallet.VerifyHMACArgs{
			EncryptionArgs: wallet.EncryptionArgs{
				ProtocolID:   messagebox.MessageIDProtocol,
				KeyID:        "1",
				Counterparty: wallet.Counterparty{Type: wallet.CounterpartyTypeOther, Counterparty: alice.PublicKey(t)},
			},
			Data: []byte(body),
			HMAC: [32]byte(raw),
		}, "")
		require.NoError(t, err)
		assert.True(t, verified.Valid)
	})

	t.Run("id depends on the body", func(t *testing.T) {
		// given:
		alice := testusers.NewAlice(t)
		recipient := testusers.Bob.IdentityKey(t)

		// when:
		first, err := messagebox.NewMessageID(t.Context(), alice.Wallet(), recipient, "a", "")
		require.NoError(t, err)
		again, err := messagebox.NewMessageID(t.Context(), alice.Wallet(), recipient, "a", "")
		require.NoError(t, err)
		other, err := messagebox.NewMessageID(t.Context(), alice.Wallet(), recipient, "b", "")
		require.NoError(t, err)

		// then:
		assert.Equal(t, first, again)
		assert.NotEqual(t, first, other)
	})

	t.Run("fails on invalid recipient key", func(t *testing.T) {
		// given:
		alice := testusers.NewAlice(t)

		// when:
		_, err := messagebox.NewMessageID(t.Context(), alice.Wallet(), "not-a-key", "a", "")

		// then:
		require.Error(t, err)
	})
}

func TestRoomID(t *testing.T) {
	assert.Equal(t, "02ab-payment_inbox", messagebox.RoomID("02ab", "payment_inbox"))
}
