package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/outcomex/clob/pkg/exchange/events"
	"github.com/outcomex/clob/pkg/exchange/market"
	"github.com/outcomex/clob/pkg/exchange/orderbook"
	"github.com/outcomex/clob/pkg/exchange/priceindex"
)

// requiredBuyCost simulates the same descending scan MarketBuy performs,
// without mutating book state, and returns the total collateral caller
// would need to fund it: ask-fill proceeds owed to makers plus escrow owed
// against newly minted shares. Used to validate funds before MarketBuy
// mutates anything, so an underfunded taker leaves the book untouched.
func (e *Engine) requiredBuyCost(m *market.Market, notX market.Outcome, remaining *uint256.Int) *uint256.Int {
	rem := new(uint256.Int).Set(remaining)
	cost := uint256.NewInt(0)
	ceiling := int64(market.BPS)

	for !rem.IsZero() {
		tick := m.Unified(notX).FindLastSet(ceiling)
		if tick == priceindex.None {
			break
		}
		ceiling = tick

		level := m.LevelAt(notX, tick)
		mintCount := uint256.NewInt(0)
		i := level.NextOrderIndex
		for ; i < len(level.Orders) && !rem.IsZero(); i++ {
			o := level.Orders[i]
			if o.Size.IsZero() {
				continue
			}

			c := new(uint256.Int)
			if o.Size.Cmp(rem) < 0 {
				c.Set(o.Size)
			} else {
				c.Set(rem)
			}
			rem.Sub(rem, c)

			if o.Side == orderbook.Bid {
				mintCount.Add(mintCount, c)
			} else {
				price := int64(market.BPS) - tick
				cost.Add(cost, e.priceCollateral(c, price))
			}
		}

		if !mintCount.IsZero() {
			price := int64(market.BPS) - tick
			cost.Add(cost, e.priceCollateral(mintCount, price))
		}
	}

	return cost
}

// MarketBuy descends notX's unified index (X = outcome, notX the opposite),
// filling resting bids (mint path) and asks (transfer path) in price-then-
// FIFO order until remaining is exhausted or the index is empty. The total
// cost is computed and debited from caller up front, before any level,
// index, or ledger mutation, so a caller short on funds leaves the book
// exactly as it found it (see requiredBuyCost).
func (e *Engine) MarketBuy(caller common.Address, id market.MarketId, remaining *uint256.Int, outcome market.Outcome) (*uint256.Int, error) {
	m, err := e.Registry.Get(id)
	if err != nil {
		return nil, err
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()

	if remaining.IsZero() {
		return nil, market.ErrInvalidSize
	}
	if err := m.CheckActive(); err != nil {
		return nil, err
	}

	notX := outcome.Opposite()

	cost := e.requiredBuyCost(m, notX, remaining)
	if !cost.IsZero() {
		if err := e.Ledger.Debit(caller, cost); err != nil {
			return nil, err
		}
	}

	rem := new(uint256.Int).Set(remaining)
	fulfilled := uint256.NewInt(0)

	for !rem.IsZero() {
		tick := m.Unified(notX).FindLastSet(market.BPS)
		if tick == priceindex.None {
			break
		}

		level := m.LevelAt(notX, tick)
		clearedHere := new(uint256.Int)
		if rem.Cmp(level.TotalSize) < 0 {
			clearedHere.Set(rem)
		} else {
			clearedHere.Set(level.TotalSize)
		}
		level.TotalSize.Sub(level.TotalSize, clearedHere)

		if level.TotalSize.IsZero() {
			m.Unified(notX).Unset(tick)
			m.BidOnly(notX).Unset(tick)
			e.Sink.Emit(events.PriceLevelCleared{Base: events.NewBase(m.Id), Price: tick, Outcome: notX})
		}

		mintCount := uint256.NewInt(0)
		i := level.NextOrderIndex
		for ; i < len(level.Orders) && !rem.IsZero(); i++ {
			o := &level.Orders[i]
			if o.Size.IsZero() {
				continue
			}

			c := new(uint256.Int)
			if o.Size.Cmp(rem) < 0 {
				c.Set(o.Size)
			} else {
				c.Set(rem)
			}
			o.Size.Sub(o.Size, c)
			rem.Sub(rem, c)
			fulfilled.Add(fulfilled, c)

			orderId := market.NewOrderId(m.Id, tick, i)

			if o.Side == orderbook.Bid {
				m.CreditBalance(notX, o.Maker, c)
				mintCount.Add(mintCount, c)
				e.Sink.Emit(events.OrderFilled{Base: events.NewBase(m.Id), Maker: o.Maker, OrderId: orderId, Size: new(uint256.Int).Set(c), Taker: caller})
				e.Sink.Emit(events.SharesTransferred{Base: events.NewBase(m.Id), To: o.Maker, Amount: new(uint256.Int).Set(c), Outcome: notX})
			} else {
				price := int64(market.BPS) - tick
				amt := e.priceCollateral(c, price)
				e.Ledger.Credit(o.Maker, amt)
				e.Sink.Emit(events.OrderFilled{Base: events.NewBase(m.Id), Maker: o.Maker, OrderId: orderId, Size: new(uint256.Int).Set(c), Taker: caller})
			}

			if !rem.IsZero() {
				level.NextOrderIndex = i + 1
			}
		}

		if !mintCount.IsZero() {
			m.TotalCollateral.Add(m.TotalCollateral, new(uint256.Int).Mul(mintCount, e.Mult))
		}
	}

	if !fulfilled.IsZero() {
		m.CreditBalance(outcome, caller, fulfilled)
		e.Sink.Emit(events.MarketOrderExecuted{Base: events.NewBase(m.Id), Taker: caller, Fulfilled: new(uint256.Int).Set(fulfilled), Outcome: outcome, Side: orderbook.Bid})
		e.Sink.Emit(events.SharesTransferred{Base: events.NewBase(m.Id), To: caller, Amount: new(uint256.Int).Set(fulfilled), Outcome: outcome})
	}

	if e.log != nil {
		e.log.Debug("market_buy_executed",
			zap.Uint64("market_id", uint64(m.Id)),
			zap.String("outcome", outcome.String()),
			zap.Stringer("requested", remaining),
			zap.Stringer("fulfilled", fulfilled),
			zap.Stringer("cost", cost),
		)
	}

	return fulfilled, nil
}

// MarketSell descends X's bid-only index (same outcome), transferring
// caller's shares to resting bid makers while skipping over same-outcome
// asks entirely (they are invisible to a market sell).
func (e *Engine) MarketSell(caller common.Address, id market.MarketId, remaining *uint256.Int, outcome market.Outcome) (*uint256.Int, error) {
	m, err := e.Registry.Get(id)
	if err != nil {
		return nil, err
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()

	if remaining.IsZero() {
		return nil, market.ErrInvalidSize
	}
	if err := m.CheckActive(); err != nil {
		return nil, err
	}
	if m.BalanceOf(outcome, caller).Cmp(remaining) < 0 {
		return nil, market.ErrInsufficientShares
	}

	rem := new(uint256.Int).Set(remaining)
	fulfilled := uint256.NewInt(0)

	for !rem.IsZero() {
		tick := m.BidOnly(outcome).FindLastSet(market.BPS)
		if tick == priceindex.None {
			break
		}

		level := m.LevelAt(outcome, tick)
		sawAsk := false

		i := level.NextOrderIndex
		for ; i < len(level.Orders) && !rem.IsZero(); i++ {
			o := &level.Orders[i]
			if o.Size.IsZero() {
				continue
			}
			if o.Side == orderbook.Ask {
				sawAsk = true
				continue
			}

			c := new(uint256.Int)
			if o.Size.Cmp(rem) < 0 {
				c.Set(o.Size)
			} else {
				c.Set(rem)
			}
			o.Size.Sub(o.Size, c)
			level.TotalSize.Sub(level.TotalSize, c)
			rem.Sub(rem, c)
			fulfilled.Add(fulfilled, c)

			proceeds := e.priceCollateral(c, tick)
			e.Ledger.Credit(caller, proceeds)
			m.CreditBalance(outcome, o.Maker, c)

			orderId := market.NewOrderId(m.Id, tick, i)
			e.Sink.Emit(events.OrderFilled{Base: events.NewBase(m.Id), Maker: o.Maker, OrderId: orderId, Size: new(uint256.Int).Set(c), Taker: caller})

			if !sawAsk {
				level.NextOrderIndex = i + 1
			}
		}

		m.BidOnly(outcome).Unset(tick)
	}

	if !fulfilled.IsZero() {
		m.DebitBalance(outcome, caller, fulfilled)
		e.Sink.Emit(events.MarketOrderExecuted{Base: events.NewBase(m.Id), Taker: caller, Fulfilled: new(uint256.Int).Set(fulfilled), Outcome: outcome, Side: orderbook.Ask})
	}

	if e.log != nil {
		e.log.Debug("market_sell_executed",
			zap.Uint64("market_id", uint64(m.Id)),
			zap.String("outcome", outcome.String()),
			zap.Stringer("requested", remaining),
			zap.Stringer("fulfilled", fulfilled),
		)
	}

	return fulfilled, nil
}
