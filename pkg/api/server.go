// Package api exposes the matching engine's nine operations as a thin REST
// surface, plus read-only projections (market listing, orderbook depth,
// account balance, trade history) that never touch Market state.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/rs/cors"
	"go.uber.org/zap"

	gocrypto "github.com/outcomex/clob/pkg/crypto"
	"github.com/outcomex/clob/pkg/exchange/engine"
	"github.com/outcomex/clob/pkg/exchange/events"
	"github.com/outcomex/clob/pkg/exchange/ledger"
	"github.com/outcomex/clob/pkg/exchange/market"
	"github.com/outcomex/clob/pkg/exchange/orderbook"
	"github.com/outcomex/clob/pkg/storage"
)

// Server wires the engine, its ledger (for balance queries), the durable
// store (for trade history, may be nil), an accepted-operation journal, and
// a websocket event sink behind a mux router.
type Server struct {
	log     *zap.Logger
	engine  *engine.Engine
	ledger  *ledger.InMemory
	store   *storage.Store
	journal storage.Journal
	wsSink  *events.WebSocketSink
	router  *mux.Router
}

// NewServer builds a Server and registers every route.
func NewServer(e *engine.Engine, led *ledger.InMemory, store *storage.Store, journal storage.Journal, wsSink *events.WebSocketSink, log *zap.Logger) *Server {
	if journal == nil {
		journal = storage.NewNopJournal()
	}
	s := &Server{
		log:     log,
		engine:  e,
		ledger:  led,
		store:   store,
		journal: journal,
		wsSink:  wsSink,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/markets", s.handleCreateMarket).Methods("POST")
	v1.HandleFunc("/markets", s.handleListMarkets).Methods("GET")
	v1.HandleFunc("/markets/{id}", s.handleGetMarket).Methods("GET")
	v1.HandleFunc("/markets/{id}/resolve", s.handleResolveMarket).Methods("POST")
	v1.HandleFunc("/markets/{id}/claim", s.handleClaim).Methods("POST")
	v1.HandleFunc("/markets/{id}/orderbook/{outcome}", s.handleOrderbook).Methods("GET")
	v1.HandleFunc("/markets/{id}/trades", s.handleTrades).Methods("GET")
	v1.HandleFunc("/accounts/{address}", s.handleAccount).Methods("GET")

	v1.HandleFunc("/orders/limit", s.handleLimitOrder).Methods("POST")
	v1.HandleFunc("/orders/market", s.handleMarketOrder).Methods("POST")
	v1.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")

	if s.wsSink != nil {
		s.router.HandleFunc("/ws", s.wsSink.ServeHTTP)
	}
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})
	handler := c.Handler(s.router)

	s.log.Info("api server starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, handler)
}

// ==============================
// Market lifecycle
// ==============================

func (s *Server) handleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", "")
		return
	}

	caller := common.HexToAddress(req.Caller)
	m, err := s.engine.CreateMarket(caller)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	_ = s.journal.Append(storage.OpRecord{Op: storage.OpCreateMarket, MarketId: uint64(m.Id), Caller: addressString(caller)})
	respondJSON(w, http.StatusCreated, marketInfo(m))
}

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	markets := s.engine.Registry.List()
	out := make([]MarketInfo, len(markets))
	for i, m := range markets {
		out[i] = marketInfo(m)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketIdFromPath(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market id", err.Error())
		return
	}
	m, err := s.engine.Registry.Get(market.MarketId(id))
	if err != nil {
		respondError(w, http.StatusNotFound, "market not found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, marketInfo(m))
}

func (s *Server) handleResolveMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketIdFromPath(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market id", err.Error())
		return
	}

	var req ResolveMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", "")
		return
	}
	outcome, err := parseOutcome(req.Outcome)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid outcome", err.Error())
		return
	}

	caller := common.HexToAddress(req.Caller)
	if err := s.engine.ResolveMarket(caller, market.MarketId(id), outcome); err != nil {
		respondEngineError(w, err)
		return
	}

	_ = s.journal.Append(storage.OpRecord{Op: storage.OpResolve, MarketId: id, Caller: addressString(caller), Outcome: req.Outcome})
	respondJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	id, err := marketIdFromPath(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market id", err.Error())
		return
	}

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", "")
		return
	}

	caller := common.HexToAddress(req.Caller)
	payout, err := s.engine.Claim(caller, market.MarketId(id))
	if err != nil {
		respondEngineError(w, err)
		return
	}

	_ = s.journal.Append(storage.OpRecord{Op: storage.OpClaim, MarketId: id, Caller: addressString(caller)})
	respondJSON(w, http.StatusOK, ClaimResponse{Payout: payout.String()})
}

// ==============================
// Order placement and matching
// ==============================

func (s *Server) handleLimitOrder(w http.ResponseWriter, r *http.Request) {
	var req LimitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", "")
		return
	}
	outcome, err := parseOutcome(req.Outcome)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid outcome", err.Error())
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}
	size, err := parseSize(req.Size)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid size", err.Error())
		return
	}

	caller := common.HexToAddress(req.Caller)

	var orderId market.OrderId
	if side == orderbook.Bid {
		orderId, err = s.engine.LimitBuy(caller, market.MarketId(req.MarketId), req.Price, size, outcome)
	} else {
		orderId, err = s.engine.LimitSell(caller, market.MarketId(req.MarketId), req.Price, size, outcome)
	}
	if err != nil {
		respondEngineError(w, err)
		return
	}

	op := storage.OpLimitBuy
	if side == orderbook.Ask {
		op = storage.OpLimitSell
	}
	_ = s.journal.Append(storage.OpRecord{
		Op: op, MarketId: req.MarketId, Caller: addressString(caller),
		Price: req.Price, Size: req.Size, Outcome: req.Outcome, Side: req.Side,
	})
	respondJSON(w, http.StatusCreated, LimitOrderResponse{OrderId: orderId.String()})
}

func (s *Server) handleMarketOrder(w http.ResponseWriter, r *http.Request) {
	var req MarketOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", "")
		return
	}
	outcome, err := parseOutcome(req.Outcome)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid outcome", err.Error())
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}
	size, err := parseSize(req.Size)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid size", err.Error())
		return
	}

	caller := common.HexToAddress(req.Caller)

	var fulfilled *uint256.Int
	if side == orderbook.Bid {
		fulfilled, err = s.engine.MarketBuy(caller, market.MarketId(req.MarketId), size, outcome)
	} else {
		fulfilled, err = s.engine.MarketSell(caller, market.MarketId(req.MarketId), size, outcome)
	}
	if err != nil {
		respondEngineError(w, err)
		return
	}

	op := storage.OpMarketBuy
	if side == orderbook.Ask {
		op = storage.OpMarketSell
	}
	_ = s.journal.Append(storage.OpRecord{
		Op: op, MarketId: req.MarketId, Caller: addressString(caller),
		Size: req.Size, Outcome: req.Outcome, Side: req.Side,
	})
	respondJSON(w, http.StatusOK, MarketOrderResponse{Fulfilled: fulfilled.String()})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", "")
		return
	}
	outcome, err := parseOutcome(req.Outcome)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid outcome", err.Error())
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}

	caller := common.HexToAddress(req.Caller)
	if err := s.engine.Cancel(caller, market.MarketId(req.MarketId), req.Price, req.Index, side, outcome); err != nil {
		respondEngineError(w, err)
		return
	}

	_ = s.journal.Append(storage.OpRecord{
		Op: storage.OpCancel, MarketId: req.MarketId, Caller: addressString(caller),
		Price: req.Price, Index: req.Index, Outcome: req.Outcome, Side: req.Side,
	})
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// ==============================
// Read projections
// ==============================

func (s *Server) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	id, err := marketIdFromPath(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market id", err.Error())
		return
	}
	outcome, err := parseOutcome(mux.Vars(r)["outcome"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid outcome", err.Error())
		return
	}

	m, err := s.engine.Registry.Get(market.MarketId(id))
	if err != nil {
		respondError(w, http.StatusNotFound, "market not found", err.Error())
		return
	}

	m.Mu.Lock()
	levels := make([]PriceLevelInfo, 0, len(m.Levels(outcome)))
	for tick, level := range m.Levels(outcome) {
		if level.TotalSize.IsZero() {
			continue
		}
		levels = append(levels, PriceLevelInfo{Price: tick, Size: level.TotalSize.String()})
	}
	m.Mu.Unlock()

	sort.Slice(levels, func(i, j int) bool { return levels[i].Price > levels[j].Price })

	respondJSON(w, http.StatusOK, OrderbookSnapshot{MarketId: id, Outcome: outcome.String(), Levels: levels})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addressStr := mux.Vars(r)["address"]
	if !common.IsHexAddress(addressStr) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}
	addr := common.HexToAddress(addressStr)

	marketIdStr := r.URL.Query().Get("marketId")
	marketId, err := strconv.ParseUint(marketIdStr, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing or invalid marketId query param", "")
		return
	}

	m, err := s.engine.Registry.Get(market.MarketId(marketId))
	if err != nil {
		respondError(w, http.StatusNotFound, "market not found", err.Error())
		return
	}

	available := s.ledger.BalanceOf(addr)
	escrow := s.ledger.Escrow()

	respondJSON(w, http.StatusOK, AccountInfo{
		Address:          addressString(addr),
		MarketId:         marketId,
		YesShares:        m.BalanceOf(market.Yes, addr).String(),
		NoShares:         m.BalanceOf(market.No, addr).String(),
		AvailableBalance: available.String(),
		EscrowedBalance:  escrow.String(),
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	id, err := marketIdFromPath(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market id", err.Error())
		return
	}

	if s.store == nil {
		respondJSON(w, http.StatusOK, []TradeInfo{})
		return
	}

	trades, err := s.store.LoadTrades(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load trades", err.Error())
		return
	}

	out := make([]TradeInfo, len(trades))
	for i, t := range trades {
		out[i] = TradeInfo{Id: t.Id, MarketId: t.MarketId, Maker: t.Maker, Taker: t.Taker, Size: t.Size, Timestamp: t.Timestamp}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func marketInfo(m *market.Market) MarketInfo {
	info := MarketInfo{Id: uint64(m.Id), Active: m.Active, Resolved: m.Resolved}
	if m.Resolved {
		info.Outcome = m.Outcome.String()
	}
	return info
}

func marketIdFromPath(r *http.Request) (uint64, error) {
	idStr := mux.Vars(r)["id"]
	return strconv.ParseUint(idStr, 10, 64)
}

func parseOutcome(s string) (market.Outcome, error) {
	switch s {
	case "yes":
		return market.Yes, nil
	case "no":
		return market.No, nil
	default:
		return 0, fmt.Errorf("outcome must be %q or %q, got %q", "yes", "no", s)
	}
}

func parseSide(s string) (orderbook.Side, error) {
	switch s {
	case "buy":
		return orderbook.Bid, nil
	case "sell":
		return orderbook.Ask, nil
	default:
		return 0, fmt.Errorf("side must be %q or %q, got %q", "buy", "sell", s)
	}
}

func parseSize(s string) (*uint256.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() <= 0 {
		return nil, fmt.Errorf("size must be a positive decimal integer, got %q", s)
	}
	if n.BitLen() > 256 {
		return nil, fmt.Errorf("size %q overflows 256 bits", s)
	}
	return new(uint256.Int).SetBytes(n.Bytes()), nil
}

// addressString formats addr with the EIP-55 checksum, exercising the
// teacher's standalone checksum routine instead of go-ethereum's built-in
// (which Hex() already applies) so both implementations stay live code.
func addressString(addr common.Address) string {
	return gocrypto.EIP55(addr.Bytes())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg string, message string) {
	respondJSON(w, status, ErrorResponse{Error: errMsg, Message: message})
}

// respondEngineError maps a typed engine/market error to an HTTP status the
// way a thin RPC surface over spec's typed error kinds must.
func respondEngineError(w http.ResponseWriter, err error) {
	switch err {
	case market.ErrMarketNotFound, market.ErrOrderNotFound:
		respondError(w, http.StatusNotFound, "not found", err.Error())
	case market.ErrUnauthorized:
		respondError(w, http.StatusForbidden, "unauthorized", err.Error())
	case market.ErrInvalidPrice, market.ErrPriceTooHigh, market.ErrInvalidSize:
		respondError(w, http.StatusBadRequest, "invalid request", err.Error())
	case market.ErrMarketNotActive, market.ErrMarketAlreadyResolved, market.ErrMarketNotResolved, market.ErrInsufficientShares:
		respondError(w, http.StatusConflict, "invalid state", err.Error())
	default:
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			respondError(w, http.StatusConflict, "insufficient balance", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}
