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
	"github.com/outcomex/clob/pkg/exchange/orderbook"
)

func addr(b byte) common.Address {
	var a common.Address
	a[0] = b
	return a
}

var (
	adminAddr = addr(0xA0)
	alice     = addr(1)
	bob       = addr(2)
	charlie   = addr(3)
)

func mult() *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))
}

func newTestHarness(t *testing.T) (*Engine, *ledger.InMemory, *events.ChannelSink) {
	t.Helper()
	reg := market.NewRegistry()
	led := ledger.NewInMemory()
	auth := admin.NewAddressList(adminAddr)
	sink := events.NewChannelSink(4096)
	e := New(reg, led, auth, sink, mult(), zap.NewNop())

	// Fund every test participant generously.
	funding := new(uint256.Int).Mul(uint256.NewInt(1000), mult())
	for _, p := range []common.Address{alice, bob, charlie} {
		led.Deposit(p, funding)
	}
	return e, led, sink
}

func createMarket(t *testing.T, e *Engine) *market.Market {
	t.Helper()
	m, err := e.CreateMarket(adminAddr)
	if err != nil {
		t.Fatalf("CreateMarket failed: %v", err)
	}
	return m
}

func u(n uint64) *uint256.Int { return uint256.NewInt(n) }

// S1 — basic mint: a No bid at 400/100 crossed by a Yes market buy of 100.
func TestS1BasicMint(t *testing.T) {
	e, led, _ := newTestHarness(t)
	m := createMarket(t, e)

	aliceBefore := led.BalanceOf(alice)
	bobBefore := led.BalanceOf(bob)

	if _, err := e.LimitBuy(bob, m.Id, 400, u(100), market.No); err != nil {
		t.Fatalf("limitBuy failed: %v", err)
	}
	bobPaid := new(uint256.Int).Sub(bobBefore, led.BalanceOf(bob))
	if bobPaid.Cmp(new(uint256.Int).Mul(u(40), mult())) != 0 {
		t.Fatalf("expected bob to pay 40e18, paid %s", bobPaid)
	}

	fulfilled, err := e.MarketBuy(alice, m.Id, u(100), market.Yes)
	if err != nil {
		t.Fatalf("marketBuy failed: %v", err)
	}
	if fulfilled.Cmp(u(100)) != 0 {
		t.Fatalf("expected fulfilled 100, got %s", fulfilled)
	}

	alicePaid := new(uint256.Int).Sub(aliceBefore, led.BalanceOf(alice))
	if alicePaid.Cmp(new(uint256.Int).Mul(u(60), mult())) != 0 {
		t.Fatalf("expected alice to pay 60e18, paid %s", alicePaid)
	}

	if m.BalanceOf(market.Yes, alice).Cmp(u(100)) != 0 {
		t.Fatalf("expected alice to hold 100 Yes, got %s", m.BalanceOf(market.Yes, alice))
	}
	if m.BalanceOf(market.No, bob).Cmp(u(100)) != 0 {
		t.Fatalf("expected bob to hold 100 No, got %s", m.BalanceOf(market.No, bob))
	}

	wantTotal := new(uint256.Int).Mul(u(100), mult())
	if m.TotalCollateral.Cmp(wantTotal) != 0 {
		t.Fatalf("expected totalCollateral 100e18, got %s", m.TotalCollateral)
	}
}

// S2 — partial fill: only 50 of the requested 100 can be minted.
func TestS2PartialFill(t *testing.T) {
	e, led, _ := newTestHarness(t)
	m := createMarket(t, e)

	aliceBefore := led.BalanceOf(alice)

	if _, err := e.LimitBuy(bob, m.Id, 400, u(50), market.No); err != nil {
		t.Fatalf("limitBuy failed: %v", err)
	}

	fulfilled, err := e.MarketBuy(alice, m.Id, u(100), market.Yes)
	if err != nil {
		t.Fatalf("marketBuy failed: %v", err)
	}
	if fulfilled.Cmp(u(50)) != 0 {
		t.Fatalf("expected fulfilled 50, got %s", fulfilled)
	}

	alicePaid := new(uint256.Int).Sub(aliceBefore, led.BalanceOf(alice))
	want := new(uint256.Int).Mul(u(50), mult())
	want.Mul(want, u(600))
	want.Div(want, u(1000))
	if alicePaid.Cmp(want) != 0 {
		t.Fatalf("expected alice to pay %s, paid %s", want, alicePaid)
	}
}

// S3 — multi-level descending scan: ticks must be consumed highest-first.
func TestS3MultiLevelDescendingScan(t *testing.T) {
	e, _, _ := newTestHarness(t)
	m := createMarket(t, e)

	if _, err := e.LimitBuy(bob, m.Id, 500, u(30), market.No); err != nil {
		t.Fatal(err)
	}
	if _, err := e.LimitBuy(bob, m.Id, 400, u(50), market.No); err != nil {
		t.Fatal(err)
	}
	if _, err := e.LimitBuy(bob, m.Id, 600, u(20), market.No); err != nil {
		t.Fatal(err)
	}

	fulfilled, err := e.MarketBuy(alice, m.Id, u(100), market.Yes)
	if err != nil {
		t.Fatal(err)
	}
	if fulfilled.Cmp(u(100)) != 0 {
		t.Fatalf("expected fulfilled 100, got %s", fulfilled)
	}
}

// S4 — price-level clearing emits PriceLevelCleared.
func TestS4PriceLevelClearing(t *testing.T) {
	e, _, sink := newTestHarness(t)
	m := createMarket(t, e)

	if _, err := e.LimitBuy(bob, m.Id, 500, u(100), market.No); err != nil {
		t.Fatal(err)
	}
	if _, err := e.MarketBuy(alice, m.Id, u(100), market.Yes); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, ev := range sink.Drain() {
		if cleared, ok := ev.(events.PriceLevelCleared); ok {
			if cleared.Price == 500 && cleared.Outcome == market.No {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected a PriceLevelCleared(500, No) event")
	}
}

// S5 — FIFO within a price level: the earlier bid fills first.
func TestS5FIFOWithinPrice(t *testing.T) {
	e, _, _ := newTestHarness(t)
	m := createMarket(t, e)

	// Seed Alice with Yes shares so she can market-sell.
	m.CreditBalance(market.Yes, alice, u(100))

	if _, err := e.LimitBuy(bob, m.Id, 600, u(50), market.Yes); err != nil {
		t.Fatal(err)
	}
	if _, err := e.LimitBuy(charlie, m.Id, 600, u(30), market.Yes); err != nil {
		t.Fatal(err)
	}

	fulfilled, err := e.MarketSell(alice, m.Id, u(40), market.Yes)
	if err != nil {
		t.Fatal(err)
	}
	if fulfilled.Cmp(u(40)) != 0 {
		t.Fatalf("expected fulfilled 40, got %s", fulfilled)
	}
	if m.BalanceOf(market.Yes, bob).Cmp(u(40)) != 0 {
		t.Fatalf("expected bob to receive all 40 from his own order, got %s", m.BalanceOf(market.Yes, bob))
	}
	if m.BalanceOf(market.Yes, charlie).Sign() != 0 {
		t.Fatalf("expected charlie untouched, got %s", m.BalanceOf(market.Yes, charlie))
	}
}

// S6 — a market sell never matches same-outcome asks.
func TestS6SellIgnoresSameOutcomeAsks(t *testing.T) {
	e, _, _ := newTestHarness(t)
	m := createMarket(t, e)

	m.CreditBalance(market.Yes, charlie, u(100))
	m.CreditBalance(market.Yes, alice, u(100))

	if _, err := e.LimitSell(alice, m.Id, 600, u(50), market.Yes); err != nil {
		t.Fatal(err)
	}

	fulfilled, err := e.MarketSell(charlie, m.Id, u(50), market.Yes)
	if err != nil {
		t.Fatal(err)
	}
	if fulfilled.Sign() != 0 {
		t.Fatalf("expected fulfilled 0 (ask invisible to market sell), got %s", fulfilled)
	}
}

// S7 — full lifecycle: mint, resolve, claim.
func TestS7FullLifecycle(t *testing.T) {
	e, led, _ := newTestHarness(t)
	m := createMarket(t, e)

	if _, err := e.LimitBuy(alice, m.Id, 600, u(100), market.Yes); err != nil {
		t.Fatal(err)
	}
	if _, err := e.LimitBuy(bob, m.Id, 400, u(150), market.No); err != nil {
		t.Fatal(err)
	}
	fulfilled, err := e.MarketBuy(charlie, m.Id, u(100), market.Yes)
	if err != nil {
		t.Fatal(err)
	}
	if fulfilled.Cmp(u(100)) != 0 {
		t.Fatalf("expected charlie fulfilled 100, got %s", fulfilled)
	}

	if err := e.ResolveMarket(adminAddr, m.Id, market.Yes); err != nil {
		t.Fatalf("resolveMarket failed: %v", err)
	}

	before := led.BalanceOf(charlie)
	payout, err := e.Claim(charlie, m.Id)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if payout.Cmp(new(uint256.Int).Mul(u(100), mult())) != 0 {
		t.Fatalf("expected payout 100e18, got %s", payout)
	}
	after := led.BalanceOf(charlie)
	gained := new(uint256.Int).Sub(after, before)
	if gained.Cmp(payout) != 0 {
		t.Fatalf("expected balance to increase by payout, increased by %s", gained)
	}

	if _, err := e.Claim(bob, m.Id); err != market.ErrInsufficientShares {
		t.Fatalf("expected ErrInsufficientShares for bob, got %v", err)
	}
}

// S8 — cancelling a limit bid refunds the escrowed collateral exactly, and
// clears the index so later matching finds nothing there.
func TestS8CancelRefund(t *testing.T) {
	e, led, _ := newTestHarness(t)
	m := createMarket(t, e)

	before := led.BalanceOf(alice)
	if _, err := e.LimitBuy(alice, m.Id, 600, u(100), market.Yes); err != nil {
		t.Fatal(err)
	}
	afterPlace := led.BalanceOf(alice)
	paid := new(uint256.Int).Sub(before, afterPlace)
	if paid.Cmp(new(uint256.Int).Mul(u(60), mult())) != 0 {
		t.Fatalf("expected 60e18 escrowed, got %s", paid)
	}

	if err := e.Cancel(alice, m.Id, 600, 0, orderbook.Bid, market.Yes); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	afterCancel := led.BalanceOf(alice)
	if afterCancel.Cmp(before) != 0 {
		t.Fatalf("expected balance restored to %s, got %s", before, afterCancel)
	}

	// A market buy for No now finds nothing resting on the (now-cleared)
	// Yes-unified index.
	fulfilled, err := e.MarketBuy(bob, m.Id, u(10), market.No)
	if err != nil {
		t.Fatal(err)
	}
	if fulfilled.Sign() != 0 {
		t.Fatalf("expected zero fills after cancel, got %s", fulfilled)
	}
}

func TestResolutionBlocksFurtherTrading(t *testing.T) {
	e, _, _ := newTestHarness(t)
	m := createMarket(t, e)

	if err := e.ResolveMarket(adminAddr, m.Id, market.Yes); err != nil {
		t.Fatalf("resolveMarket failed: %v", err)
	}

	if _, err := e.LimitBuy(alice, m.Id, 500, u(1), market.Yes); err != market.ErrMarketAlreadyResolved {
		t.Fatalf("expected ErrMarketAlreadyResolved, got %v", err)
	}
	if _, err := e.MarketBuy(alice, m.Id, u(1), market.Yes); err != market.ErrMarketAlreadyResolved {
		t.Fatalf("expected ErrMarketAlreadyResolved, got %v", err)
	}
}

func TestCreateMarketRequiresAdmin(t *testing.T) {
	e, _, _ := newTestHarness(t)
	if _, err := e.CreateMarket(alice); err != market.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestShareConservationAcrossMint(t *testing.T) {
	e, _, _ := newTestHarness(t)
	m := createMarket(t, e)

	if _, err := e.LimitBuy(bob, m.Id, 400, u(70), market.No); err != nil {
		t.Fatal(err)
	}
	if _, err := e.MarketBuy(alice, m.Id, u(70), market.Yes); err != nil {
		t.Fatal(err)
	}

	totalYes := uint256.NewInt(0)
	for _, bal := range m.YesBal {
		totalYes.Add(totalYes, bal)
	}
	totalNo := uint256.NewInt(0)
	for _, bal := range m.NoBal {
		totalNo.Add(totalNo, bal)
	}
	if totalYes.Cmp(totalNo) != 0 {
		t.Fatalf("expected sum(yesBal) == sum(noBal), got %s vs %s", totalYes, totalNo)
	}
}
