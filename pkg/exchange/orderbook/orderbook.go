// Package orderbook implements the FIFO price level that a Market keeps one
// of per occupied price tick: a resting-order sequence with lazily-advancing
// head consumption, so that cancelled and partially-filled orders never
// shift the index of any other order in the level.
package orderbook

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ParticipantId identifies a caller able to hold balances, place orders, and
// receive collateral.
type ParticipantId = common.Address

// Side is Bid (maker wants to buy shares) or Ask (maker wants to sell shares).
type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// LimitOrder is one resting order in a PriceLevel. A Size of zero means
// cancelled or fully consumed; it is never removed from the level's orders
// sequence so that other orders keep a stable index.
type LimitOrder struct {
	Maker ParticipantId
	Size  *uint256.Int
	Side  Side
}

// PriceLevel is the FIFO queue of resting orders at one tick, for one
// outcome. Orders are appended and never removed: NextOrderIndex is a
// monotone lower bound on the first potentially-unfilled order, and may lag
// behind the true head when an ask sits in front of a yet-unfilled bid (see
// marketSell's lazy-head rule).
type PriceLevel struct {
	Orders         []LimitOrder
	TotalSize      *uint256.Int
	NextOrderIndex int
}

// NewPriceLevel returns an empty level.
func NewPriceLevel() *PriceLevel {
	return &PriceLevel{
		Orders:    nil,
		TotalSize: uint256.NewInt(0),
	}
}

// Append adds an order to the level's FIFO and returns its index.
func (l *PriceLevel) Append(o LimitOrder) int {
	l.Orders = append(l.Orders, o)
	l.TotalSize.Add(l.TotalSize, o.Size)
	return len(l.Orders) - 1
}

// IsEmpty reports whether the level currently backs no nonzero-size order.
func (l *PriceLevel) IsEmpty() bool {
	return l.TotalSize.IsZero()
}

// Cancel zeroes the order at index and subtracts its size from TotalSize.
// Returns the size that was cancelled (zero if the order was already
// consumed/cancelled).
func (l *PriceLevel) Cancel(index int) *uint256.Int {
	o := &l.Orders[index]
	removed := new(uint256.Int).Set(o.Size)
	if removed.IsZero() {
		return removed
	}
	o.Size = uint256.NewInt(0)
	l.TotalSize.Sub(l.TotalSize, removed)
	return removed
}
