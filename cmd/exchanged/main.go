package main

import (
	"context"
	"log"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/outcomex/clob/params"
	"github.com/outcomex/clob/pkg/api"
	"github.com/outcomex/clob/pkg/exchange/admin"
	"github.com/outcomex/clob/pkg/exchange/engine"
	"github.com/outcomex/clob/pkg/exchange/events"
	"github.com/outcomex/clob/pkg/exchange/ledger"
	"github.com/outcomex/clob/pkg/exchange/market"
	"github.com/outcomex/clob/pkg/exchange/orderbook"
	"github.com/outcomex/clob/pkg/storage"
	"github.com/outcomex/clob/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/exchanged.log"
	}
	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	mult := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(cfg.Exchange.CollateralDecimals)))

	reg := market.NewRegistry()
	led := ledger.NewInMemory()
	auth := admin.NewAddressList(parseAdmins(cfg.Exchange.AdminAddresses)...)

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		sugar.Fatalw("storage_open_failed", "err", err)
	}
	defer store.Close()

	journal, err := storage.NewFileJournal(cfg.Storage.JournalPath)
	if err != nil {
		sugar.Fatalw("journal_open_failed", "err", err)
	}
	defer journal.Close()

	wsSink := events.NewWebSocketSink(logger)
	sink := events.NewMultiSink(events.NewLogSink(logger), wsSink, store)

	e := engine.New(reg, led, auth, sink, mult, logger)

	if err := replayJournal(e, cfg.Storage.JournalPath); err != nil {
		sugar.Fatalw("journal_replay_failed", "err", err)
	}

	srv := api.NewServer(e, led, store, journal, wsSink, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.Server.ListenAddr)
		if err := srv.Start(cfg.Server.ListenAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("exchanged_started",
		"collateral_decimals", cfg.Exchange.CollateralDecimals,
		"admin_count", len(cfg.Exchange.AdminAddresses),
	)

	<-ctx.Done()
	sugar.Info("shutting_down")
}

func parseAdmins(raw []string) []common.Address {
	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || !common.IsHexAddress(s) {
			continue
		}
		out = append(out, common.HexToAddress(s))
	}
	return out
}

// replayJournal re-applies every accepted operation recorded before the
// last clean shutdown, rebuilding engine state from nothing but the log.
func replayJournal(e *engine.Engine, path string) error {
	records, err := storage.ReplayFile(path)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := applyRecord(e, rec); err != nil {
			return err
		}
	}
	return nil
}

func applyRecord(e *engine.Engine, rec storage.OpRecord) error {
	caller := common.HexToAddress(rec.Caller)
	id := market.MarketId(rec.MarketId)

	switch rec.Op {
	case storage.OpCreateMarket:
		_, err := e.CreateMarket(caller)
		return err
	case storage.OpResolve:
		outcome, err := outcomeFromString(rec.Outcome)
		if err != nil {
			return err
		}
		return e.ResolveMarket(caller, id, outcome)
	case storage.OpClaim:
		_, err := e.Claim(caller, id)
		return err
	case storage.OpLimitBuy:
		outcome, err := outcomeFromString(rec.Outcome)
		if err != nil {
			return err
		}
		size, err := sizeFromString(rec.Size)
		if err != nil {
			return err
		}
		_, err = e.LimitBuy(caller, id, rec.Price, size, outcome)
		return err
	case storage.OpLimitSell:
		outcome, err := outcomeFromString(rec.Outcome)
		if err != nil {
			return err
		}
		size, err := sizeFromString(rec.Size)
		if err != nil {
			return err
		}
		_, err = e.LimitSell(caller, id, rec.Price, size, outcome)
		return err
	case storage.OpMarketBuy:
		outcome, err := outcomeFromString(rec.Outcome)
		if err != nil {
			return err
		}
		size, err := sizeFromString(rec.Size)
		if err != nil {
			return err
		}
		_, err = e.MarketBuy(caller, id, size, outcome)
		return err
	case storage.OpMarketSell:
		outcome, err := outcomeFromString(rec.Outcome)
		if err != nil {
			return err
		}
		size, err := sizeFromString(rec.Size)
		if err != nil {
			return err
		}
		_, err = e.MarketSell(caller, id, size, outcome)
		return err
	case storage.OpCancel:
		outcome, err := outcomeFromString(rec.Outcome)
		if err != nil {
			return err
		}
		side := orderbook.Bid
		if rec.Side == "sell" {
			side = orderbook.Ask
		}
		return e.Cancel(caller, id, rec.Price, rec.Index, side, outcome)
	}
	return nil
}

func outcomeFromString(s string) (market.Outcome, error) {
	if s == "yes" {
		return market.Yes, nil
	}
	return market.No, nil
}

func sizeFromString(s string) (*uint256.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errInvalidSize(s)
	}
	return new(uint256.Int).SetBytes(n.Bytes()), nil
}

type errInvalidSize string

func (e errInvalidSize) Error() string { return "exchanged: invalid journaled size " + string(e) }
