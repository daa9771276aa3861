// Package ledger abstracts the collateral asset behind a debit/credit
// capability the matching engine uses to move funds between participant
// accounts and its own escrow, without knowing anything about the asset
// itself (on-chain framing, token contracts, gas).
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrInsufficientBalance is returned by Debit when the participant's
// spendable balance cannot cover amount.
var ErrInsufficientBalance = errors.New("ledger: insufficient balance")

// CollateralLedger atomically moves collateral between participant
// accounts and the engine's escrow account. Debit and Credit are the two
// primitives the engine composes every settlement out of; TransferWithin is
// an optional convenience equivalent to Debit(from) + Credit(to).
type CollateralLedger interface {
	// Debit moves amount from the participant's spendable balance into
	// escrow. Fails with ErrInsufficientBalance if the balance can't cover
	// it.
	Debit(from common.Address, amount *uint256.Int) error
	// Credit moves amount from escrow to the participant.
	Credit(to common.Address, amount *uint256.Int)
	// TransferWithin moves amount directly from one participant to
	// another without round-tripping through escrow accounting.
	TransferWithin(from, to common.Address, amount *uint256.Int) error
}

// InMemory is a reference CollateralLedger backed by a plain map, the way
// the teacher's account package caches balances in memory. It is not
// durable; pkg/storage's journal is what gives a deployment replay-based
// durability on top of this.
type InMemory struct {
	mu       sync.Mutex
	balances map[common.Address]*uint256.Int
	escrow   *uint256.Int
}

// NewInMemory returns an empty ledger with zero escrow.
func NewInMemory() *InMemory {
	return &InMemory{
		balances: make(map[common.Address]*uint256.Int),
		escrow:   uint256.NewInt(0),
	}
}

// Deposit credits a participant's spendable balance directly (off-chain
// bridge equivalent), bypassing escrow. Not part of the CollateralLedger
// interface; a harness uses it to fund test participants.
func (l *InMemory) Deposit(addr common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.creditLocked(addr, amount)
}

// BalanceOf returns a participant's current spendable balance.
func (l *InMemory) BalanceOf(addr common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Set(l.balanceLocked(addr))
}

// Escrow returns the ledger's current escrow total.
func (l *InMemory) Escrow() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Set(l.escrow)
}

func (l *InMemory) balanceLocked(addr common.Address) *uint256.Int {
	bal, ok := l.balances[addr]
	if !ok {
		bal = uint256.NewInt(0)
		l.balances[addr] = bal
	}
	return bal
}

func (l *InMemory) creditLocked(addr common.Address, amount *uint256.Int) {
	bal := l.balanceLocked(addr)
	bal.Add(bal, amount)
}

// Debit implements CollateralLedger.
func (l *InMemory) Debit(from common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balanceLocked(from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, bal, amount)
	}
	bal.Sub(bal, amount)
	l.escrow.Add(l.escrow, amount)
	return nil
}

// Credit implements CollateralLedger.
func (l *InMemory) Credit(to common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.escrow.Sub(l.escrow, amount)
	l.creditLocked(to, amount)
}

// TransferWithin implements CollateralLedger.
func (l *InMemory) TransferWithin(from, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fromBal := l.balanceLocked(from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromBal, amount)
	}
	fromBal.Sub(fromBal, amount)
	l.creditLocked(to, amount)
	return nil
}
