package testabilities

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/bsv-blockchain/go-peerpay/pkg/internal/testabilities/testusers"
	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/brc29"
)

var errInsufficientFunds = errors.New("insufficient funds")

// Ledger plays the chain and the wallet storage behind test wallets.
// Created actions spend from the creator balance, internalized BRC-29 outputs credit the claimer.
type Ledger struct {
	t      testing.TB
	logger *slog.Logger

	mu       sync.Mutex
	balances map[string]uint64
	claimed  map[transaction.Outpoint]string
	created  []wallet.CreateActionArgs
	nonce    uint64
}

func newLedger(t testing.TB, logger *slog.Logger) *Ledger {
	return &Ledger{
		t:        t,
		logger:   logger.With("actor", "Ledger"),
		balances: make(map[string]uint64),
		claimed:  make(map[transaction.Outpoint]string),
	}
}

// Fund adds satoshis to the user balance.
func (l *Ledger) Fund(user testusers.User, satoshis uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[user.PrivKey] += satoshis
}

// Balance returns the spendable satoshis of the user.
func (l *Ledger) Balance(user testusers.User) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[user.PrivKey]
}

// CreatedActions returns the arguments of every action created so far.
func (l *Ledger) CreatedActions() []wallet.CreateActionArgs {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]wallet.CreateActionArgs(nil), l.created...)
}

// Attach makes the user's test wallet create and internalize actions on this ledger.
func (l *Ledger) Attach(user *testusers.UserWithWallet) {
	user.Wallet().OnCreateAction().Do(func(ctx context.Context, args wallet.CreateActionArgs, originator string) (*wallet.CreateActionResult, error) {
		return l.createAction(user.User, args)
	})
	user.Wallet().OnInternalizeAction().Do(func(ctx context.Context, args wallet.InternalizeActionArgs, originator string) (*wallet.InternalizeActionResult, error) {
		return l.internalizeAction(user.User, args)
	})
}

func (l *Ledger) createAction(user testusers.User, args wallet.CreateActionArgs) (*wallet.CreateActionResult, error) {
	var total uint64
	for _, output := range args.Outputs {
		total += output.Satoshis
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[user.PrivKey] < total {
		return nil, fmt.Errorf("%w: %s has %d, needs %d", errInsufficientFunds, user.Name, l.balances[user.PrivKey], total)
	}

	l.nonce++
	funding := chainhash.DoubleHashH(fmt.Appendf(nil, "%s:%d", user.Name, l.nonce))

	tx := transaction.NewTransaction()
	tx.Inputs = append(tx.Inputs, &transaction.TransactionInput{
		SourceTXID:       &funding,
		SourceTxOutIndex: 0,
		UnlockingScript:  &script.Script{},
		SequenceNumber:   0xffffffff,
	})
	for _, output := range args.Outputs {
		tx.Outputs = append(tx.Outputs, &transaction.TransactionOutput{
			Satoshis:      output.Satoshis,
			LockingScript: script.NewFromBytes(output.LockingScript),
		})
	}

	l.balances[user.PrivKey] -= total
	l.created = append(l.created, args)

	txid := tx.TxID()
	l.logger.Debug("Action created", slog.String("creator", user.Name), slog.String("txid", txid.String()), slog.Uint64("satoshis", total))

	return &wallet.CreateActionResult{
		Txid: *txid,
		Tx:   tx.Bytes(),
	}, nil
}

func (l *Ledger) internalizeAction(user testusers.User, args wallet.InternalizeActionArgs) (*wallet.InternalizeActionResult, error) {
	tx, err := transaction.NewTransactionFromBytes(args.Tx)
	if err != nil {
		return nil, fmt.Errorf("cannot parse transaction: %w", err)
	}
	txid := tx.TxID()

	var credits []transaction.Outpoint
	var total uint64
	for _, output := range args.Outputs {
		paid := tx.OutputIdx(int(output.OutputIndex))
		if paid == nil {
			return nil, fmt.Errorf("transaction has no output %d", output.OutputIndex)
		}
		if output.Protocol != wallet.InternalizeProtocolWalletPayment || output.PaymentRemittance == nil {
			return nil, fmt.Errorf("output %d is not a wallet payment", output.OutputIndex)
		}

		remittance := output.PaymentRemittance
		keyID := brc29.KeyID{
			DerivationPrefix: base64.StdEncoding.EncodeToString(remittance.DerivationPrefix),
			DerivationSuffix: base64.StdEncoding.EncodeToString(remittance.DerivationSuffix),
		}
		expected, err := brc29.LockForSelf(remittance.SenderIdentityKey, keyID, brc29.PrivHex(user.PrivKey), brc29.WithMainNet())
		if err != nil {
			return nil, fmt.Errorf("cannot derive locking script: %w", err)
		}
		if !bytes.Equal(expected.Bytes(), paid.LockingScript.Bytes()) {
			return nil, fmt.Errorf("output %d is not spendable by %s", output.OutputIndex, user.Name)
		}

		credits = append(credits, transaction.Outpoint{Txid: *txid, Index: output.OutputIndex})
		total += paid.Satoshis
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, outpoint := range credits {
		if owner, ok := l.claimed[outpoint]; ok {
			l.logger.Debug("Output already internalized", slog.String("outpoint", outpoint.String()), slog.String("owner", owner))
			return &wallet.InternalizeActionResult{Accepted: true}, nil
		}
	}
	for _, outpoint := range credits {
		l.claimed[outpoint] = user.Name
	}
	l.balances[user.PrivKey] += total

	l.logger.Debug("Action internalized", slog.String("claimer", user.Name), slog.String("txid", txid.String()), slog.Uint64("satoshis", total))
	return &wallet.InternalizeActionResult{Accepted: true}, nil
}
