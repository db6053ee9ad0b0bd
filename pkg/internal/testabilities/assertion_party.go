package testabilities

import (
	"testing"

	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox/memory"
	"github.com/bsv-blockchain/go-peerpay/pkg/peerpay"
	"github.com/stretchr/testify/assert"
)

type PartyAssertion interface {
	HasBalance(satoshis uint64) PartyAssertion
	HasPendingPayments(count int) PartyAssertion
}

type partyAssertion struct {
	testing.TB
	party  *Party
	ledger *Ledger
	hub    *memory.Hub
}

func (a *partyAssertion) HasBalance(satoshis uint64) PartyAssertion {
	a.Helper()
	assert.Equalf(a, satoshis, a.ledger.Balance(a.party.User), "%s should have balance %d", a.party.Name, satoshis)
	return a
}

func (a *partyAssertion) HasPendingPayments(count int) PartyAssertion {
	a.Helper()
	pending := a.hub.Pending(a.party.IdentityKey(a), peerpay.MessageBox)
	assert.Equalf(a, count, pending, "%s should have %d payments in the inbox", a.party.Name, count)
	return a
}
