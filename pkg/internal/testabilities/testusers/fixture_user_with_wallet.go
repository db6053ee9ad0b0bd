package testusers

import (
	"log/slog"
	"testing"

	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/go-softwarelab/common/pkg/slogx"
	"github.com/go-softwarelab/common/pkg/to"
)

type UserWithWalletOptions struct {
	logger *slog.Logger
}

func WithLogger(logger *slog.Logger) func(options *UserWithWalletOptions) {
	return func(options *UserWithWalletOptions) {
		options.logger = logger
	}
}

func WithoutLogging() func(*UserWithWalletOptions) {
	return func(options *UserWithWalletOptions) {
		options.logger = slog.New(slog.DiscardHandler)
	}
}

// UserWithWallet is a test user with a key-only wallet.
// Key derivation, HMAC and signatures work, actions are no-ops unless mocked with On<Method>.
type UserWithWallet struct {
	User
	wallet *wallet.TestWallet
}

// NewAlice creates new Alice with wallet (as UserWithWallet) that can be used in tests.
func NewAlice(t testing.TB, opts ...func(*UserWithWalletOptions)) *UserWithWallet {
	return newUserWithWallet(t, Alice, opts...)
}

// NewBob creates new Bob with wallet (as UserWithWallet) that can be used in tests.
func NewBob(t testing.TB, opts ...func(*UserWithWalletOptions)) *UserWithWallet {
	return newUserWithWallet(t, Bob, opts...)
}

// NewMessageBoxServer creates the MessageBox server identity with a wallet.
func NewMessageBoxServer(t testing.TB, opts ...func(*UserWithWalletOptions)) *UserWithWallet {
	return newUserWithWallet(t, MessageBoxServer, opts...)
}

func newUserWithWallet(t testing.TB, user User, opts ...func(*UserWithWalletOptions)) *UserWithWallet {
	options := to.OptionsWithDefault(UserWithWalletOptions{
		logger: slogx.NewTestLogger(t),
	}, opts...)

	logger := options.logger.With("actor", user.Name)

	return &UserWithWallet{
		User:   user,
		wallet: wallet.NewTestWallet(t, wallet.PrivHex(user.PrivKey), wallet.WithTestWalletLogger(logger), wallet.WithTestWalletName(user.Name)),
	}
}

func (u *UserWithWallet) Wallet() *wallet.TestWallet {
	return u.wallet
}
