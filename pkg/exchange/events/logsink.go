package events

import "go.uber.org/zap"

// LogSink writes every event as a structured zap log line, the way the
// teacher's server components log through a shared *zap.Logger rather than
// the standard library's log package.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink wraps a logger. Pass util.NewLogger()'s result.
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

// Emit implements Sink.
func (s *LogSink) Emit(e Event) {
	switch ev := e.(type) {
	case LimitOrderPlaced:
		s.log.Info("limit_order_placed",
			zap.Uint64("market", uint64(ev.Market)),
			zap.String("maker", ev.Maker.Hex()),
			zap.String("order_id", ev.OrderId.String()),
			zap.Int64("price", ev.Price),
			zap.Stringer("size", ev.Size),
			zap.String("outcome", ev.Outcome.String()),
			zap.String("side", ev.Side.String()),
		)
	case MarketOrderExecuted:
		s.log.Info("market_order_executed",
			zap.Uint64("market", uint64(ev.Market)),
			zap.String("taker", ev.Taker.Hex()),
			zap.Stringer("fulfilled", ev.Fulfilled),
			zap.String("outcome", ev.Outcome.String()),
			zap.String("side", ev.Side.String()),
		)
	case OrderFilled:
		s.log.Info("order_filled",
			zap.Uint64("market", uint64(ev.Market)),
			zap.String("maker", ev.Maker.Hex()),
			zap.String("order_id", ev.OrderId.String()),
			zap.Stringer("size", ev.Size),
			zap.String("taker", ev.Taker.Hex()),
		)
	case PriceLevelCleared:
		s.log.Info("price_level_cleared",
			zap.Uint64("market", uint64(ev.Market)),
			zap.Int64("price", ev.Price),
			zap.String("outcome", ev.Outcome.String()),
		)
	case SharesTransferred:
		s.log.Info("shares_transferred",
			zap.Uint64("market", uint64(ev.Market)),
			zap.String("from", ev.From.Hex()),
			zap.String("to", ev.To.Hex()),
			zap.Stringer("amount", ev.Amount),
			zap.String("outcome", ev.Outcome.String()),
		)
	case OrderCancelled:
		s.log.Info("order_cancelled",
			zap.Uint64("market", uint64(ev.Market)),
			zap.String("maker", ev.Maker.Hex()),
			zap.String("order_id", ev.OrderId.String()),
		)
	case RewardsClaimed:
		s.log.Info("rewards_claimed",
			zap.Uint64("market", uint64(ev.Market)),
			zap.String("user", ev.User.Hex()),
			zap.Stringer("amount", ev.Amount),
		)
	case MarketCreated:
		s.log.Info("market_created", zap.Uint64("market", uint64(ev.Market)))
	case MarketResolved:
		s.log.Info("market_resolved",
			zap.Uint64("market", uint64(ev.Market)),
			zap.String("outcome", ev.Outcome.String()),
		)
	default:
		s.log.Warn("unknown_event")
	}
}
