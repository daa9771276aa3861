// Package storage gives the exchange durability on top of the in-memory
// engine: a pebble-backed store of market snapshots and trade history,
// the way the teacher's PebbleStore persists accounts/positions/orders,
// re-themed to markets and trades instead.
package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/outcomex/clob/pkg/exchange/events"
	"github.com/outcomex/clob/pkg/exchange/market"
	"github.com/outcomex/clob/pkg/util"
)

// MarketSnapshot is the durable read projection of a Market's lifecycle
// state (not its order book — that is rebuilt by journal replay, not by
// this store).
type MarketSnapshot struct {
	Id       uint64 `json:"id"`
	Active   bool   `json:"active"`
	Resolved bool   `json:"resolved"`
	Outcome  string `json:"outcome,omitempty"`
}

// Trade is an append-only fill record, the durable counterpart of an
// events.OrderFilled. Timestamp is stamped on write since matching itself
// is wall-clock-free.
type Trade struct {
	Id        string `json:"id"`
	MarketId  uint64 `json:"marketId"`
	Maker     string `json:"maker"`
	Taker     string `json:"taker"`
	Size      string `json:"size"`
	Timestamp int64  `json:"timestamp"`
}

// Store persists market snapshots and trade history to Pebble, and doubles
// as an events.Sink so the engine's fills are captured as they happen.
type Store struct {
	db    *pebble.DB
	clock util.Clock

	mu  sync.Mutex
	seq map[uint64]uint64 // per-market trade sequence, for key ordering
}

// Open opens (or creates) a pebble database at path, stamping trades with
// the real wall clock.
func Open(path string) (*Store, error) {
	return OpenWithClock(path, util.RealClock{})
}

// OpenWithClock is Open with an injectable clock, so tests can assert exact
// trade timestamps instead of a moving time.Now() value.
func OpenWithClock(path string, clock util.Clock) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return &Store{db: db, clock: clock, seq: make(map[uint64]uint64)}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveMarket persists a market's lifecycle snapshot.
func (s *Store) SaveMarket(snap MarketSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("storage: marshal market snapshot: %w", err)
	}
	if err := s.db.Set(marketKey(snap.Id), data, pebble.Sync); err != nil {
		return fmt.Errorf("storage: save market: %w", err)
	}
	return nil
}

// LoadMarket returns the persisted snapshot for marketId, or ok=false if
// none exists.
func (s *Store) LoadMarket(marketId uint64) (snap MarketSnapshot, ok bool, err error) {
	val, closer, err := s.db.Get(marketKey(marketId))
	if err == pebble.ErrNotFound {
		return MarketSnapshot{}, false, nil
	}
	if err != nil {
		return MarketSnapshot{}, false, fmt.Errorf("storage: load market: %w", err)
	}
	defer closer.Close()

	if err := json.Unmarshal(val, &snap); err != nil {
		return MarketSnapshot{}, false, fmt.Errorf("storage: unmarshal market snapshot: %w", err)
	}
	return snap, true, nil
}

// SaveTrade persists a single trade record.
func (s *Store) SaveTrade(t Trade) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("storage: marshal trade: %w", err)
	}

	s.mu.Lock()
	seq := s.seq[t.MarketId]
	s.seq[t.MarketId] = seq + 1
	s.mu.Unlock()

	key := tradeKey(t.MarketId, seq, t.Id)
	if err := s.db.Set(key, data, pebble.NoSync); err != nil {
		return fmt.Errorf("storage: save trade: %w", err)
	}
	return nil
}

// LoadTrades returns every persisted trade for marketId, oldest first.
func (s *Store) LoadTrades(marketId uint64) ([]Trade, error) {
	prefix := tradePrefix(marketId)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: new iterator: %w", err)
	}
	defer iter.Close()

	var trades []Trade
	for iter.First(); iter.Valid(); iter.Next() {
		var t Trade
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// Emit implements events.Sink: MarketCreated/MarketResolved update the
// durable lifecycle snapshot, OrderFilled appends a trade record. Other
// event kinds carry no durable read projection and are ignored.
func (s *Store) Emit(e events.Event) {
	switch ev := e.(type) {
	case events.MarketCreated:
		_ = s.SaveMarket(MarketSnapshot{Id: uint64(ev.MarketId()), Active: true})

	case events.MarketResolved:
		snap, ok, _ := s.LoadMarket(uint64(ev.MarketId()))
		if !ok {
			snap = MarketSnapshot{Id: uint64(ev.MarketId())}
		}
		snap.Active = true
		snap.Resolved = true
		snap.Outcome = outcomeString(ev.Outcome)
		_ = s.SaveMarket(snap)

	case events.OrderFilled:
		_ = s.SaveTrade(Trade{
			Id:        ev.OrderId.String(),
			MarketId:  uint64(ev.MarketId()),
			Maker:     ev.Maker.Hex(),
			Taker:     ev.Taker.Hex(),
			Size:      ev.Size.String(),
			Timestamp: s.clock.Now().UnixMilli(),
		})
	}
}

func outcomeString(o market.Outcome) string { return o.String() }

var _ events.Sink = (*Store)(nil)
