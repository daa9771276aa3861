// Package engine implements the matching engine: the five mutating
// operations (limitBuy, limitSell, marketBuy, marketSell, cancel) plus
// market creation, resolution, and claim. This is the core of the
// exchange — price inversion, the dual-index descending scan, FIFO fill
// progression with lazy head-advance, and the collateral/share accounting
// that keeps mint and transfer paths conserved.
package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/outcomex/clob/pkg/exchange/admin"
	"github.com/outcomex/clob/pkg/exchange/events"
	"github.com/outcomex/clob/pkg/exchange/ledger"
	"github.com/outcomex/clob/pkg/exchange/market"
	"github.com/outcomex/clob/pkg/exchange/orderbook"
)

// Engine ties the market registry to its external collaborators: the
// collateral ledger, the admin authority, and the event sink. Every
// operation on an existing market looks it up by MarketId in the Registry
// and serializes on its Mu for the call's full duration.
type Engine struct {
	Registry *market.Registry
	Ledger   ledger.CollateralLedger
	Admin    admin.Authority
	Sink     events.Sink
	Mult     *uint256.Int // MULT = 10^decimals
	log      *zap.Logger
}

// New builds an Engine. mult is 10^decimals for the configured collateral
// asset (spec's MULT); one winning share pays exactly mult collateral units.
func New(reg *market.Registry, led ledger.CollateralLedger, auth admin.Authority, sink events.Sink, mult *uint256.Int, log *zap.Logger) *Engine {
	return &Engine{
		Registry: reg,
		Ledger:   led,
		Admin:    auth,
		Sink:     sink,
		Mult:     mult,
		log:      log,
	}
}

// priceCollateral computes size·price·MULT/BPS with truncating division,
// carried in 256-bit width per spec's numeric policy so size·price·MULT
// cannot overflow.
func (e *Engine) priceCollateral(size *uint256.Int, price int64) *uint256.Int {
	out := new(uint256.Int).Mul(size, uint256.NewInt(uint64(price)))
	out.Mul(out, e.Mult)
	out.Div(out, uint256.NewInt(market.BPS))
	return out
}

// CreateMarket is admin-only: allocates the next marketId, activates it,
// and emits MarketCreated.
func (e *Engine) CreateMarket(caller common.Address) (*market.Market, error) {
	if err := e.Admin.RequireAdmin(caller); err != nil {
		return nil, err
	}
	m := e.Registry.Create()
	e.Sink.Emit(events.MarketCreated{Base: events.NewBase(m.Id)})
	if e.log != nil {
		e.log.Info("market_created", zap.Uint64("market_id", uint64(m.Id)), zap.String("caller", caller.Hex()))
	}
	return m, nil
}

// ResolveMarket is admin-only: requires active && !resolved, sets resolved
// and outcome, emits MarketResolved. Resting orders are neither refunded
// nor matched; per spec this is a deliberate, reproduced leak (see
// DESIGN.md's Open Question 1).
func (e *Engine) ResolveMarket(caller common.Address, id market.MarketId, outcome market.Outcome) error {
	if err := e.Admin.RequireAdmin(caller); err != nil {
		return err
	}
	m, err := e.Registry.Get(id)
	if err != nil {
		return err
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()

	if err := m.CheckActive(); err != nil {
		return err
	}

	m.Resolved = true
	m.Outcome = outcome
	e.Sink.Emit(events.MarketResolved{Base: events.NewBase(m.Id), Outcome: outcome})
	if e.log != nil {
		e.log.Info("market_resolved", zap.Uint64("market_id", uint64(m.Id)), zap.String("outcome", outcome.String()))
	}
	return nil
}

// Claim requires active && resolved. Zeroes the caller's winning-outcome
// balance and credits shares·MULT from escrow.
func (e *Engine) Claim(caller common.Address, id market.MarketId) (*uint256.Int, error) {
	m, err := e.Registry.Get(id)
	if err != nil {
		return nil, err
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()

	if err := m.CheckResolved(); err != nil {
		return nil, err
	}

	shares := m.BalanceOf(m.Outcome, caller)
	if shares.IsZero() {
		return nil, market.ErrInsufficientShares
	}

	m.Balances(m.Outcome)[caller] = uint256.NewInt(0)

	payout := new(uint256.Int).Mul(shares, e.Mult)
	e.Ledger.Credit(caller, payout)

	e.Sink.Emit(events.RewardsClaimed{Base: events.NewBase(m.Id), User: caller, Amount: new(uint256.Int).Set(shares)})
	if e.log != nil {
		e.log.Info("claim_settled", zap.Uint64("market_id", uint64(m.Id)), zap.String("caller", caller.Hex()), zap.Stringer("payout", payout))
	}
	return payout, nil
}

// LimitBuy places a pure maker bid on outcome at price for size; it never
// crosses the book (takers use MarketBuy/MarketSell).
func (e *Engine) LimitBuy(caller common.Address, id market.MarketId, price int64, size *uint256.Int, outcome market.Outcome) (market.OrderId, error) {
	m, err := e.Registry.Get(id)
	if err != nil {
		return market.OrderId{}, err
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()

	if err := market.ValidatePrice(price); err != nil {
		return market.OrderId{}, err
	}
	if size.IsZero() {
		return market.OrderId{}, market.ErrInvalidSize
	}
	if err := m.CheckActive(); err != nil {
		return market.OrderId{}, err
	}

	cost := e.priceCollateral(size, price)
	if err := e.Ledger.Debit(caller, cost); err != nil {
		return market.OrderId{}, err
	}

	level := m.LevelAt(outcome, price)
	index := level.Append(orderbook.LimitOrder{Maker: caller, Size: new(uint256.Int).Set(size), Side: orderbook.Bid})
	m.Unified(outcome).Set(price)
	m.BidOnly(outcome).Set(price)

	orderId := market.NewOrderId(m.Id, price, index)
	e.Sink.Emit(events.LimitOrderPlaced{
		Base: events.NewBase(m.Id), Maker: caller, OrderId: orderId, Price: price, Size: new(uint256.Int).Set(size),
		Outcome: outcome, Side: orderbook.Bid,
	})
	return orderId, nil
}

// LimitSell places a pure maker ask: size shares of outcome are escrowed
// from caller's balance, then stored as an Ask at tick = BPS-price in the
// opposite outcome's level (§4.1 price inversion).
func (e *Engine) LimitSell(caller common.Address, id market.MarketId, price int64, size *uint256.Int, outcome market.Outcome) (market.OrderId, error) {
	m, err := e.Registry.Get(id)
	if err != nil {
		return market.OrderId{}, err
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()

	if err := market.ValidatePrice(price); err != nil {
		return market.OrderId{}, err
	}
	if size.IsZero() {
		return market.OrderId{}, market.ErrInvalidSize
	}
	if err := m.CheckActive(); err != nil {
		return market.OrderId{}, err
	}
	if m.BalanceOf(outcome, caller).Cmp(size) < 0 {
		return market.OrderId{}, market.ErrInsufficientShares
	}

	m.DebitBalance(outcome, caller, size)

	tick := int64(market.BPS) - price
	opposite := outcome.Opposite()
	level := m.LevelAt(opposite, tick)
	index := level.Append(orderbook.LimitOrder{Maker: caller, Size: new(uint256.Int).Set(size), Side: orderbook.Ask})
	m.Unified(opposite).Set(tick)

	orderId := market.NewOrderId(m.Id, tick, index)
	e.Sink.Emit(events.LimitOrderPlaced{
		Base: events.NewBase(m.Id), Maker: caller, OrderId: orderId, Price: tick, Size: new(uint256.Int).Set(size),
		Outcome: opposite, Side: orderbook.Ask,
	})
	return orderId, nil
}

// Cancel zeroes the resting order at (price, index) for outcome, in the
// caller's natural price frame; ask cancels are internally mapped to
// tick = BPS-price on the opposite outcome.
func (e *Engine) Cancel(caller common.Address, id market.MarketId, price int64, index int, side orderbook.Side, outcome market.Outcome) error {
	m, err := e.Registry.Get(id)
	if err != nil {
		return err
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()

	if err := m.CheckActive(); err != nil {
		return err
	}

	levelOutcome := outcome
	tick := price
	if side == orderbook.Ask {
		levelOutcome = outcome.Opposite()
		tick = int64(market.BPS) - price
	}

	levels := m.Levels(levelOutcome)
	level, ok := levels[tick]
	if !ok || index < 0 || index >= len(level.Orders) {
		return market.ErrOrderNotFound
	}

	order := level.Orders[index]
	if order.Maker != caller {
		return market.ErrUnauthorized
	}

	removed := level.Cancel(index)
	if removed.IsZero() {
		return market.ErrOrderNotFound
	}

	if order.Side == orderbook.Bid {
		refund := e.priceCollateral(removed, tick)
		e.Ledger.Credit(caller, refund)
	} else {
		m.CreditBalance(outcome, caller, removed)
	}

	if level.IsEmpty() {
		m.Unified(levelOutcome).Unset(tick)
		m.BidOnly(levelOutcome).Unset(tick)
	}

	orderId := market.NewOrderId(m.Id, tick, index)
	e.Sink.Emit(events.OrderCancelled{Base: events.NewBase(m.Id), Maker: caller, OrderId: orderId})
	return nil
}
