// Package events abstracts delivery of the exchange's audit record stream:
// the engine emits one of a fixed set of record types for every accepted
// operation, and a concrete EventSink fans them out (logs, in-process
// channel, websocket).
package events

import (
	"github.com/holiman/uint256"

	"github.com/outcomex/clob/pkg/exchange/market"
	"github.com/outcomex/clob/pkg/exchange/orderbook"
)

// Event is implemented by every record the engine can emit. MarketId lets a
// sink route or filter records without a type switch.
type Event interface {
	MarketId() market.MarketId
}

// Base carries the MarketId every record embeds; exported so callers
// outside this package can build event values with a composite literal.
type Base struct {
	Market market.MarketId
}

func (b Base) MarketId() market.MarketId { return b.Market }

// LimitOrderPlaced is emitted by limitBuy/limitSell once the order rests on
// the book.
type LimitOrderPlaced struct {
	Base
	Maker   market.ParticipantId
	OrderId market.OrderId
	Price   int64
	Size    *uint256.Int
	Outcome market.Outcome
	Side    orderbook.Side
}

// MarketOrderExecuted is emitted once per marketBuy/marketSell call that
// fills a nonzero size, after every level has been visited.
type MarketOrderExecuted struct {
	Base
	Taker     market.ParticipantId
	Fulfilled *uint256.Int
	Outcome   market.Outcome
	Side      orderbook.Side
}

// OrderFilled is emitted once per resting order consumed during a match.
type OrderFilled struct {
	Base
	Maker   market.ParticipantId
	OrderId market.OrderId
	Size    *uint256.Int
	Taker   market.ParticipantId
}

// PriceLevelCleared is emitted when a level's TotalSize reaches zero during
// a marketBuy, before the OrderFilled records for that level. marketSell
// does not emit it.
type PriceLevelCleared struct {
	Base
	Price   int64
	Outcome market.Outcome
}

// SharesTransferred is emitted by marketBuy: once per bid fill for the
// shares minted to the bid maker, and once for the taker's aggregate fill.
// From is the zero address when shares are minted rather than moved from an
// existing holder. Other share movements (marketSell fills, limitSell
// escrow, cancel, claim) emit no SharesTransferred record.
type SharesTransferred struct {
	Base
	From    market.ParticipantId
	To      market.ParticipantId
	Amount  *uint256.Int
	Outcome market.Outcome
}

// OrderCancelled is emitted by cancel.
type OrderCancelled struct {
	Base
	Maker   market.ParticipantId
	OrderId market.OrderId
}

// RewardsClaimed is emitted by claim.
type RewardsClaimed struct {
	Base
	User   market.ParticipantId
	Amount *uint256.Int
}

// MarketCreated is emitted by createMarket.
type MarketCreated struct {
	Base
}

// MarketResolved is emitted by resolveMarket.
type MarketResolved struct {
	Base
	Outcome market.Outcome
}

// Sink receives every Event the engine emits. Implementations must not
// block the caller for long: the engine calls Emit synchronously while
// holding the market's lock.
type Sink interface {
	Emit(e Event)
}

func NewBase(id market.MarketId) Base { return Base{Market: id} }
