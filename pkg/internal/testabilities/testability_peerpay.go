package testabilities

import (
	"log/slog"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/testabilities/testusers"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox/httpclient"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox/memory"
	"github.com/bsv-blockchain/go-peerpay/pkg/peerpay"
	"github.com/go-softwarelab/common/pkg/to"
)

type PeerPayTestsFixture interface {
	Ledger() *Ledger
	Hub() *memory.Hub

	// Alice returns Alice's party, created on first use.
	Alice(opts ...func(*peerpay.Options)) *Party
	// Bob returns Bob's party, created on first use.
	Bob(opts ...func(*peerpay.Options)) *Party
}

type PeerPayTestsAssertion interface {
	Party(party *Party) PartyAssertion
}

// Party is a test user with a wallet attached to the ledger and a payment client.
type Party struct {
	*testusers.UserWithWallet
	Client    *peerpay.Client
	Transport messagebox.Transport
}

func New(t testing.TB, opts ...func(*Options)) (PeerPayTestsFixture, PeerPayTestsAssertion) {
	given := Given(t, opts...)
	return given, Then(t, given)
}

func Given(t testing.TB, opts ...func(*Options)) PeerPayTestsFixture {
	options := to.OptionsWithDefault(Options{
		logger: logging.NewTestLogger(t),
	}, opts...)

	f := &peerPayTestsFixture{
		TB:      t,
		logger:  options.logger,
		ledger:  newLedger(t, options.logger),
		hub:     memory.NewHub(memory.WithLogger(options.logger)),
		parties: make(map[string]*Party),
	}

	if options.http {
		f.server = NewMessageBoxServerFixture(t, f.hub, options.logger)
		if options.auth {
			f.server.WithAuthentication(testusers.NewMessageBoxServer(t, testusers.WithLogger(options.logger)).Wallet())
		}
		f.authenticated = options.auth
		t.Cleanup(f.server.Started())
	}

	return f
}

func Then(t testing.TB, given PeerPayTestsFixture) PeerPayTestsAssertion {
	return &peerPayTestsAssertion{
		TB:     t,
		ledger: given.Ledger(),
		hub:    given.Hub(),
	}
}

type peerPayTestsFixture struct {
	testing.TB
	logger  *slog.Logger
	ledger  *Ledger
	hub     *memory.Hub
	server  MessageBoxServerFixture
	parties map[string]*Party

	authenticated bool
}

func (f *peerPayTestsFixture) Ledger() *Ledger {
	return f.ledger
}

func (f *peerPayTestsFixture) Hub() *memory.Hub {
	return f.hub
}

func (f *peerPayTestsFixture) Alice(opts ...func(*peerpay.Options)) *Party {
	return f.party(testusers.Alice, opts...)
}

func (f *peerPayTestsFixture) Bob(opts ...func(*peerpay.Options)) *Party {
	return f.party(testusers.Bob, opts...)
}

func (f *peerPayTestsFixture) party(user testusers.User, opts ...func(*peerpay.Options)) *Party {
	if party, ok := f.parties[user.Name]; ok {
		return party
	}

	var u *testusers.UserWithWallet
	switch user.Name {
	case testusers.Bob.Name:
		u = testusers.NewBob(f, testusers.WithLogger(f.logger))
	default:
		u = testusers.NewAlice(f, testusers.WithLogger(f.logger))
	}
	f.ledger.Attach(u)

	var transport messagebox.Transport
	if f.server != nil {
		clientOpts := []func(*httpclient.Options){
			httpclient.WithLogger(f.logger),
			httpclient.WithLiveAckTimeout(time.Second),
		}
		if !f.authenticated {
			clientOpts = append(clientOpts, httpclient.WithPlainHTTP())
		}
		client := httpclient.New(f.server.URL(), u.Wallet(), clientOpts...)
		f.Cleanup(func() { _ = client.Close() })
		transport = client
	} else {
		transport = f.hub.TransportFor(user.IdentityKey(f))
	}

	party := &Party{
		UserWithWallet: u,
		Transport:      transport,
		Client:         peerpay.New(u.Wallet(), transport, append([]func(*peerpay.Options){peerpay.WithLogger(f.logger)}, opts...)...),
	}
	f.parties[user.Name] = party
	return party
}

type peerPayTestsAssertion struct {
	testing.TB
	ledger *Ledger
	hub    *memory.Hub
}

func (a *peerPayTestsAssertion) Party(party *Party) PartyAssertion {
	return &partyAssertion{
		TB:     a,
		party:  party,
		ledger: a.ledger,
		hub:    a.hub,
	}
}
