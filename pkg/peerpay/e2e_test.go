package peerpay_test

import (
	"testing"
	"time"

	"github.com/bsv-blockchain/go-peerpay/pkg/internal/testabilities"
	"github.com/bsv-blockchain/go-peerpay/pkg/peerpay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRoundTrip(t *testing.T) {
	transports := map[string][]func(*testabilities.Options){
		"in memory":                     nil,
		"over MessageBox":               {testabilities.WithHTTPTransport()},
		"over authenticated MessageBox": {testabilities.WithAuthenticatedHTTPTransport()},
	}
	for name, opts := range transports {
		t.Run(name, func(t *testing.T) {
			// given:
			given, then := testabilities.New(t, opts...)
			alice, bob := given.Alice(), given.Bob()
			given.Ledger().Fund(alice.User, 25_000)

			// when:
			sent, err := alice.Client.SendPayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: 10_000})
			require.NoError(t, err)

			payments, err := bob.Client.ListIncomingPayments(t.Context())
			require.NoError(t, err)

			// then:
			require.Len(t, payments, 1)
			assert.Equal(t, sent.MessageID, payments[0].MessageID)
			assert.Equal(t, alice.IdentityKey(t), payments[0].Sender)
			require.NoError(t, bob.Client.VerifyIncomingPayment(t.Context(), payments[0]))

			// when:
			_, err = bob.Client.AcceptPayment(t.Context(), payments[0])
			require.NoError(t, err)
			_, err = bob.Client.AcceptPayment(t.Context(), payments[0])
			require.NoError(t, err)

			// then:
			then.Party(bob).
				HasBalance(10_000).
				HasPendingPayments(0)
			then.Party(alice).HasBalance(15_000)

			payments, err = bob.Client.ListIncomingPayments(t.Context())
			require.NoError(t, err)
			assert.Empty(t, payments)
		})
	}
}

func TestLivePaymentOverMessageBox(t *testing.T) {
	// given:
	given, then := testabilities.New(t, testabilities.WithHTTPTransport())
	alice, bob := given.Alice(), given.Bob()
	given.Ledger().Fund(alice.User, 25_000)

	got := &received{}
	sub, err := bob.Client.ListenForLivePayments(t.Context(), peerpay.ListenArgs{OnPayment: got.OnPayment})
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	require.Eventually(t, func() bool {
		return given.Hub().Listeners(bob.IdentityKey(t), peerpay.MessageBox) > 0
	}, time.Second, 5*time.Millisecond)

	// when:
	result, err := alice.Client.SendLivePayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: 10_000})

	// then:
	require.NoError(t, err)
	assert.True(t, result.Live)
	require.Eventually(t, func() bool { return got.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// when:
	_, err = bob.Client.RejectPayment(t.Context(), got.First())

	// then:
	require.NoError(t, err)
	then.Party(bob).
		HasBalance(1_000).
		HasPendingPayments(0)
	then.Party(alice).
		HasBalance(15_000).
		HasPendingPayments(1)
}
