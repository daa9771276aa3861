package engine

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/outcomex/clob/pkg/exchange/admin"
	"github.com/outcomex/clob/pkg/exchange/events"
	"github.com/outcomex/clob/pkg/exchange/ledger"
	"github.com/outcomex/clob/pkg/exchange/market"
)

func benchAddr(i int) common.Address {
	var a common.Address
	a[0] = byte(i)
	a[1] = byte(i >> 8)
	return a
}

// BenchmarkMatchingEngineMarketBuy measures the descending-scan match loop
// against a deep resting book (998 price levels on the opposing outcome).
func BenchmarkMatchingEngineMarketBuy(b *testing.B) {
	reg := market.NewRegistry()
	led := ledger.NewInMemory()
	auth := admin.NewAddressList(benchAddr(0))
	sink := events.NewChannelSink(1 << 20)
	m := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))
	e := New(reg, led, auth, sink, m, zap.NewNop())

	mkt, err := e.CreateMarket(benchAddr(0))
	if err != nil {
		b.Fatal(err)
	}

	funding := new(uint256.Int).Mul(uint256.NewInt(1<<32), m)
	taker := benchAddr(1)
	led.Deposit(taker, funding)

	for i := 1; i < 999; i++ {
		maker := benchAddr(1000 + i)
		led.Deposit(maker, funding)
		if _, err := e.LimitBuy(maker, mkt.Id, int64(i), uint256.NewInt(100), market.No); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := e.MarketBuy(taker, mkt.Id, uint256.NewInt(10), market.Yes); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMatchingEngineLimitBuy measures pure maker placement (no
// crossing): validation, escrow debit, FIFO append, index set.
func BenchmarkMatchingEngineLimitBuy(b *testing.B) {
	reg := market.NewRegistry()
	led := ledger.NewInMemory()
	auth := admin.NewAddressList(benchAddr(0))
	sink := events.NewChannelSink(1 << 20)
	m := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))
	e := New(reg, led, auth, sink, m, zap.NewNop())

	mkt, err := e.CreateMarket(benchAddr(0))
	if err != nil {
		b.Fatal(err)
	}

	maker := benchAddr(1)
	funding := new(uint256.Int).Mul(uint256.NewInt(1<<32), m)
	led.Deposit(maker, funding)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		price := int64(1 + i%998)
		if _, err := e.LimitBuy(maker, mkt.Id, price, uint256.NewInt(1), market.Yes); err != nil {
			b.Fatal(err)
		}
	}
}
