// Package market holds the per-market state of the binary prediction-market
// CLOB: the four price indexes, the two outcome level maps, participant
// share balances, and the lifecycle flags that gate trading and claim.
package market

import "github.com/outcomex/clob/pkg/exchange/orderbook"

// BPS is the basis-points denominator for prices. Valid prices are in
// [1, BPS-1].
const BPS = 1000

// ParticipantId identifies a caller able to hold balances, place orders, and
// receive collateral.
type ParticipantId = orderbook.ParticipantId

// Side re-exports orderbook's resting-order side so callers only need to
// import one package for order vocabulary.
type Side = orderbook.Side

const (
	Bid = orderbook.Bid
	Ask = orderbook.Ask
)

// Outcome is Yes or No: the two mutually exclusive settlements of a binary
// market.
type Outcome uint8

const (
	Yes Outcome = iota
	No
)

func (o Outcome) String() string {
	if o == Yes {
		return "yes"
	}
	return "no"
}

// Opposite returns the other outcome.
func (o Outcome) Opposite() Outcome {
	if o == Yes {
		return No
	}
	return Yes
}

// MarketId is the monotonically-increasing identifier assigned by
// createMarket, starting from 0.
type MarketId uint64
