package testusers

import (
	"testing"

	primitives "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/stretchr/testify/require"
)

var Alice = User{
	Name:    "Alice",
	PrivKey: "143ab18a84d3b25e1a13cefa90038411e5d2014590a2a4a57263d1593c8dee1c",
}

var Bob = User{
	Name:    "Bob",
	PrivKey: "0881208859876fc227d71bfb8b91814462c5164b6fee27e614798f6e85d2547d",
}

// MessageBoxServer is the identity of the MessageBox server in authenticated tests.
var MessageBoxServer = User{
	Name:    "MessageBoxServer",
	PrivKey: "0882d7ea0aab1ce2cc1e5b70030fda0aa2abb065f781e1d915000bd153b5df6d",
}

type User struct {
	Name    string
	PrivKey string
}

func (u User) IdentityKey(t testing.TB) string {
	t.Helper()
	return u.PublicKey(t).ToDERHex()
}

func (u User) PrivateKey(t testing.TB) *primitives.PrivateKey {
	t.Helper()

	priv, err := primitives.PrivateKeyFromHex(u.PrivKey)
	require.NoErrorf(t, err, "User %s has invalid private key hex %q", u.Name, u.PrivKey)
	return priv
}

func (u User) PublicKey(t testing.TB) *primitives.PublicKey {
	t.Helper()
	return u.PrivateKey(t).PubKey()
}
