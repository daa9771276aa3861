package market

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/outcomex/clob/pkg/exchange/orderbook"
	"github.com/outcomex/clob/pkg/exchange/priceindex"
)

// Market is the per-market state the matching engine operates on: four
// price indexes (unified and bid-only, per outcome), two outcome→tick→level
// maps, per-participant share balances, the running collateral total, and
// the lifecycle flags that gate trading and claim.
//
// Mu serializes every mutating operation on this market: the engine holds
// it for the full duration of a place/match/cancel/resolve/claim call,
// matching the single-writer-per-market contract.
type Market struct {
	Mu sync.Mutex

	Id MarketId

	YesUnified *priceindex.Index
	NoUnified  *priceindex.Index
	YesBidOnly *priceindex.Index
	NoBidOnly  *priceindex.Index

	YesLevels map[int64]*orderbook.PriceLevel
	NoLevels  map[int64]*orderbook.PriceLevel

	YesBal map[ParticipantId]*uint256.Int
	NoBal  map[ParticipantId]*uint256.Int

	TotalCollateral *uint256.Int

	Active   bool
	Resolved bool
	Outcome  Outcome
}

// New returns a freshly-created, active, unresolved market.
func New(id MarketId) *Market {
	return &Market{
		Id:              id,
		YesUnified:      priceindex.New(),
		NoUnified:       priceindex.New(),
		YesBidOnly:      priceindex.New(),
		NoBidOnly:       priceindex.New(),
		YesLevels:       make(map[int64]*orderbook.PriceLevel),
		NoLevels:        make(map[int64]*orderbook.PriceLevel),
		YesBal:          make(map[ParticipantId]*uint256.Int),
		NoBal:           make(map[ParticipantId]*uint256.Int),
		TotalCollateral: uint256.NewInt(0),
		Active:          true,
	}
}

// Unified returns the unified price index for outcome o.
func (m *Market) Unified(o Outcome) *priceindex.Index {
	if o == Yes {
		return m.YesUnified
	}
	return m.NoUnified
}

// BidOnly returns the bid-only price index for outcome o.
func (m *Market) BidOnly(o Outcome) *priceindex.Index {
	if o == Yes {
		return m.YesBidOnly
	}
	return m.NoBidOnly
}

// Levels returns the tick→level map for outcome o.
func (m *Market) Levels(o Outcome) map[int64]*orderbook.PriceLevel {
	if o == Yes {
		return m.YesLevels
	}
	return m.NoLevels
}

// LevelAt returns the level at tick for outcome o, creating an empty one if
// absent.
func (m *Market) LevelAt(o Outcome, tick int64) *orderbook.PriceLevel {
	levels := m.Levels(o)
	l, ok := levels[tick]
	if !ok {
		l = orderbook.NewPriceLevel()
		levels[tick] = l
	}
	return l
}

// Balances returns the share-balance map for outcome o.
func (m *Market) Balances(o Outcome) map[ParticipantId]*uint256.Int {
	if o == Yes {
		return m.YesBal
	}
	return m.NoBal
}

// BalanceOf returns the participant's balance for outcome o (zero if absent).
func (m *Market) BalanceOf(o Outcome, p ParticipantId) *uint256.Int {
	bal, ok := m.Balances(o)[p]
	if !ok {
		return uint256.NewInt(0)
	}
	return bal
}

// CreditBalance adds amount to p's balance for outcome o.
func (m *Market) CreditBalance(o Outcome, p ParticipantId, amount *uint256.Int) {
	bals := m.Balances(o)
	cur, ok := bals[p]
	if !ok {
		cur = uint256.NewInt(0)
		bals[p] = cur
	}
	cur.Add(cur, amount)
}

// DebitBalance subtracts amount from p's balance for outcome o. Caller must
// have already validated sufficiency.
func (m *Market) DebitBalance(o Outcome, p ParticipantId, amount *uint256.Int) {
	bals := m.Balances(o)
	cur, ok := bals[p]
	if !ok {
		cur = uint256.NewInt(0)
		bals[p] = cur
	}
	cur.Sub(cur, amount)
}

// CheckActive validates the lifecycle guard shared by every mutating
// operation: the market must exist, be active, and not yet be resolved.
func (m *Market) CheckActive() error {
	if m == nil || !m.Active {
		return ErrMarketNotActive
	}
	if m.Resolved {
		return ErrMarketAlreadyResolved
	}
	return nil
}

// CheckResolved validates the claim guard: the market must be active and
// resolved.
func (m *Market) CheckResolved() error {
	if m == nil || !m.Active {
		return ErrMarketNotActive
	}
	if !m.Resolved {
		return ErrMarketNotResolved
	}
	return nil
}
