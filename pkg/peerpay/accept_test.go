package peerpay_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bsv-blockchain/go-peerpay/pkg/internal/testabilities"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
	"github.com/bsv-blockchain/go-peerpay/pkg/peerpay"
	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListIncomingPayments(t *testing.T) {
	t.Run("lists pending payments without acknowledging them", func(t *testing.T) {
		// given:
		given, then := testabilities.New(t)
		alice, bob := given.Alice(), given.Bob()
		given.Ledger().Fund(alice.User, 50_000)

		for _, amount := range []uint64{1_000, 2_000, 3_000} {
			_, err := alice.Client.SendPayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: amount})
			require.NoError(t, err)
		}

		// when:
		payments, err := bob.Client.ListIncomingPayments(t.Context())

		// then:
		require.NoError(t, err)
		require.Len(t, payments, 3)
		for i, amount := range []uint64{1_000, 2_000, 3_000} {
			assert.Equal(t, amount, payments[i].Amount)
			assert.Equal(t, alice.IdentityKey(t), payments[i].Sender)
			assert.NotEmpty(t, payments[i].MessageID)
		}
		then.Party(bob).HasPendingPayments(3)
	})

	t.Run("skips messages that are not payment tokens", func(t *testing.T) {
		// given:
		given, _ := testabilities.New(t)
		alice, bob := given.Alice(), given.Bob()
		given.Ledger().Fund(alice.User, 50_000)

		for _, body := range []string{"not json", `{"amount":5}`} {
			_, err := alice.Transport.SendMessage(t.Context(), messagebox.SendMessageArgs{
				Recipient:  bob.IdentityKey(t),
				MessageBox: peerpay.MessageBox,
				Body:       body,
			})
			require.NoError(t, err)
		}
		_, err := alice.Client.SendPayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: 1_000})
		require.NoError(t, err)

		// when:
		payments, err := bob.Client.ListIncomingPayments(t.Context())

		// then:
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, uint64(1_000), payments[0].Amount)
	})

	t.Run("empty inbox", func(t *testing.T) {
		// given:
		given, _ := testabilities.New(t)

		// when:
		payments, err := given.Bob().Client.ListIncomingPayments(t.Context())

		// then:
		require.NoError(t, err)
		assert.Empty(t, payments)
	})
}

func TestAcceptPayment(t *testing.T) {
	t.Run("claims the payment and removes it from the inbox", func(t *testing.T) {
		// given:
		given, then := testabilities.New(t)
		alice, bob := given.Alice(), given.Bob()
		given.Ledger().Fund(alice.User, 50_000)
		_, err := alice.Client.SendPayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: 10_000})
		require.NoError(t, err)
		payment := singlePayment(t, bob)

		// when:
		result, err := bob.Client.AcceptPayment(t.Context(), payment)

		// then:
		require.NoError(t, err)
		assert.True(t, result.PaymentResult.Accepted)
		assert.Equal(t, payment.MessageID, result.Payment.MessageID)

		then.Party(bob).
			HasBalance(10_000).
			HasPendingPayments(0)
		then.Party(alice).HasBalance(40_000)
	})

	t.Run("internalizes with the payment remittance", func(t *testing.T) {
		// given:
		given, _ := testabilities.New(t)
		alice, bob := given.Alice(), given.Bob()
		given.Ledger().Fund(alice.User, 50_000)
		_, err := alice.Client.SendPayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: 10_000})
		require.NoError(t, err)
		payment := singlePayment(t, bob)

		var captured wallet.InternalizeActionArgs
		bob.Wallet().OnInternalizeAction().Expect(func(_ context.Context, args wallet.InternalizeActionArgs, _ string) {
			captured = args
		}).ReturnSuccess(&wallet.InternalizeActionResult{Accepted: true})

		// when:
		_, err = bob.Client.AcceptPayment(t.Context(), payment)

		// then:
		require.NoError(t, err)
		assert.Equal(t, "PeerPay Payment", captured.Description)
		assert.Equal(t, []string{"peerpay"}, captured.Labels)
		assert.Equal(t, []byte(payment.Token.Transaction.Tx), captured.Tx)

		require.Len(t, captured.Outputs, 1)
		output := captured.Outputs[0]
		assert.Equal(t, wallet.InternalizeProtocolWalletPayment, output.Protocol)
		assert.Equal(t, uint32(0), output.OutputIndex)
		require.NotNil(t, output.PaymentRemittance)
		assert.Len(t, output.PaymentRemittance.DerivationPrefix, 10)
		assert.Len(t, output.PaymentRemittance.DerivationSuffix, 10)
		assert.Equal(t, alice.IdentityKey(t), output.PaymentRemittance.SenderIdentityKey.ToDERHex())
	})

	t.Run("accepting twice credits once", func(t *testing.T) {
		// given:
		given, then := testabilities.New(t)
		alice, bob := given.Alice(), given.Bob()
		given.Ledger().Fund(alice.User, 50_000)
		_, err := alice.Client.SendPayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: 10_000})
		require.NoError(t, err)
		payment := singlePayment(t, bob)

		_, err = bob.Client.AcceptPayment(t.Context(), payment)
		require.NoError(t, err)

		// when:
		_, err = bob.Client.AcceptPayment(t.Context(), payment)

		// then:
		require.NoError(t, err)
		then.Party(bob).
			HasBalance(10_000).
			HasPendingPayments(0)
	})

	t.Run("claim failure leaves the payment in the inbox", func(t *testing.T) {
		// given:
		given, then := testabilities.New(t)
		alice, bob := given.Alice(), given.Bob()
		given.Ledger().Fund(alice.User, 50_000)
		_, err := alice.Client.SendPayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: 10_000})
		require.NoError(t, err)
		payment := singlePayment(t, bob)

		storageErr := errors.New("storage unavailable")
		bob.Wallet().OnInternalizeAction().ReturnError(storageErr)

		// when:
		_, err = bob.Client.AcceptPayment(t.Context(), payment)

		// then:
		failure := requirePaymentFailure(t, err, peerpay.FailureKindClaim)
		assert.Equal(t, payment.MessageID, failure.MessageID)
		require.ErrorIs(t, err, storageErr)

		then.Party(bob).
			HasBalance(0).
			HasPendingPayments(1)
	})

	t.Run("wallet refuses the payment", func(t *testing.T) {
		// given:
		given, then := testabilities.New(t)
		alice, bob := given.Alice(), given.Bob()
		given.Ledger().Fund(alice.User, 50_000)
		_, err := alice.Client.SendPayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: 10_000})
		require.NoError(t, err)
		payment := singlePayment(t, bob)

		bob.Wallet().OnInternalizeAction().ReturnSuccess(&wallet.InternalizeActionResult{Accepted: false})

		// when:
		_, err = bob.Client.AcceptPayment(t.Context(), payment)

		// then:
		requirePaymentFailure(t, err, peerpay.FailureKindRejected)
		then.Party(bob).HasPendingPayments(1)
	})

	t.Run("signing capability unavailable", func(t *testing.T) {
		// given:
		given, then := testabilities.New(t)
		alice := given.Alice()
		bob := given.Bob(peerpay.WithSigningCapability(unavailableSigning{}))
		given.Ledger().Fund(alice.User, 50_000)
		_, err := alice.Client.SendPayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: 10_000})
		require.NoError(t, err)
		payment := singlePayment(t, bob)

		// when:
		_, err = bob.Client.AcceptPayment(t.Context(), payment)

		// then:
		requirePaymentFailure(t, err, peerpay.FailureKindSigner)
		require.ErrorIs(t, err, errSignerLocked)
		then.Party(bob).
			HasBalance(0).
			HasPendingPayments(1)
	})

	t.Run("signing wallet of another identity", func(t *testing.T) {
		// given:
		given, then := testabilities.New(t)
		alice := given.Alice()
		bob := given.Bob(peerpay.WithSigningCapability(peerpay.AmbientSigning(alice.Wallet())))
		given.Ledger().Fund(alice.User, 50_000)
		_, err := alice.Client.SendPayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: 10_000})
		require.NoError(t, err)
		payment := singlePayment(t, bob)

		// when:
		_, err = bob.Client.AcceptPayment(t.Context(), payment)

		// then:
		requirePaymentFailure(t, err, peerpay.FailureKindSigner)
		require.ErrorIs(t, err, peerpay.ErrSigningIdentityMismatch)
		then.Party(bob).
			HasBalance(0).
			HasPendingPayments(1)
	})

	t.Run("claimed but acknowledgment fails", func(t *testing.T) {
		// given:
		given, then := testabilities.New(t)
		alice, bob := given.Alice(), given.Bob()
		given.Ledger().Fund(alice.User, 50_000)
		_, err := alice.Client.SendPayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: 10_000})
		require.NoError(t, err)
		payment := singlePayment(t, bob)

		ackErr := errors.New("message box unreachable")
		client := peerpay.New(bob.Wallet(), &failingAckTransport{Transport: bob.Transport, err: ackErr})

		// when:
		_, err = client.AcceptPayment(t.Context(), payment)

		// then:
		requirePaymentFailure(t, err, peerpay.FailureKindAcknowledge)
		require.ErrorIs(t, err, ackErr)
		then.Party(bob).
			HasBalance(10_000).
			HasPendingPayments(1)

		// when:
		_, err = bob.Client.AcceptPayment(t.Context(), payment)

		// then:
		require.NoError(t, err)
		then.Party(bob).
			HasBalance(10_000).
			HasPendingPayments(0)
	})

	t.Run("malformed token is not claimed", func(t *testing.T) {
		// given:
		given, then := testabilities.New(t)
		alice, bob := given.Alice(), given.Bob()
		given.Ledger().Fund(alice.User, 50_000)
		_, err := alice.Client.SendPayment(t.Context(), peerpay.Payment{Recipient: bob.IdentityKey(t), Amount: 10_000})
		require.NoError(t, err)
		payment := singlePayment(t, bob)
		payment.Token.DerivationPrefix = "%%%"

		// when:
		_, err = bob.Client.AcceptPayment(t.Context(), payment)

		// then:
		requirePaymentFailure(t, err, peerpay.FailureKindClaim)
		require.ErrorIs(t, err, peerpay.ErrMalformedToken)
		then.Party(bob).HasBalance(0)
	})
}

func singlePayment(t *testing.T, party *testabilities.Party) peerpay.IncomingPayment {
	t.Helper()
	payments, err := party.Client.ListIncomingPayments(t.Context())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	return payments[0]
}

func requirePaymentFailure(t *testing.T, err error, kind peerpay.FailureKind) *peerpay.PaymentFailure {
	t.Helper()
	var failure *peerpay.PaymentFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, kind, failure.Kind)
	return failure
}

var errSignerLocked = errors.New("signer locked")

type unavailableSigning struct{}

func (unavailableSigning) ClaimingWallet(context.Context) (wallet.Interface, error) {
	return nil, errSignerLocked
}

func (unavailableSigning) Kind() peerpay.SigningKind {
	return peerpay.SigningKindLocalKey
}

type failingAckTransport struct {
	messagebox.Transport
	err error
}

func (f *failingAckTransport) AcknowledgeMessage(context.Context, []string) error {
	return f.err
}
