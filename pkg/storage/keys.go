package storage

import "fmt"

// Pebble key schema for the exchange: prefix-per-entity, lexicographic
// ordering so a range scan over a prefix returns every record for one
// market, trades ordered oldest-to-newest within a market.
//
//	market:<id>                       → Market snapshot
//	trade:<marketId>:<seq20>:<id>      → Trade

const (
	prefixMarket = "market:"
	prefixTrade  = "trade:"
)

func marketKey(marketId uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixMarket, marketId))
}

func tradeKey(marketId uint64, seq uint64, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%020d:%s", prefixTrade, marketId, seq, id))
}

func tradePrefix(marketId uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d:", prefixTrade, marketId))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
