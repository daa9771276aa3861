package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketSink fans every emitted event out to subscribed websocket
// clients, the concrete instance of EventSink a deployment runs behind its
// API server. Grounded on the teacher's api.Hub: a register/unregister/
// broadcast goroutine plus per-client buffered send channels so one slow
// client can't block Emit.
type WebSocketSink struct {
	log *zap.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewWebSocketSink starts the hub's dispatch loop in a background goroutine
// and returns the sink.
func NewWebSocketSink(log *zap.Logger) *WebSocketSink {
	s := &WebSocketSink{
		log:        log,
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 256),
	}
	go s.run()
	return s
}

func (s *WebSocketSink) run() {
	for {
		select {
		case c := <-s.register:
			s.mu.Lock()
			s.clients[c] = struct{}{}
			s.mu.Unlock()
			s.log.Info("ws client connected", zap.String("id", c.id))

		case c := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				close(c.send)
			}
			s.mu.Unlock()
			s.log.Info("ws client disconnected", zap.String("id", c.id))

		case msg := <-s.broadcast:
			s.mu.RLock()
			for c := range s.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(s.clients, c)
				}
			}
			s.mu.RUnlock()
		}
	}
}

// Emit implements Sink by JSON-encoding the record and broadcasting it.
func (s *WebSocketSink) Emit(e Event) {
	payload := struct {
		Id    string `json:"id"`
		Event Event  `json:"event"`
	}{Id: uuid.NewString(), Event: e}

	msg, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("ws marshal failed", zap.Error(err))
		return
	}
	select {
	case s.broadcast <- msg:
	default:
		s.log.Warn("ws broadcast buffer full, dropping event")
	}
}

// ServeHTTP upgrades the connection and registers a client, matching the
// teacher's handleWebSocket handler.
func (s *WebSocketSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("ws upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{
		id:   conn.RemoteAddr().String(),
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.register <- c

	go s.writePump(c)
	go s.readPump(c)
}

func (s *WebSocketSink) readPump(c *wsClient) {
	defer func() {
		s.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *WebSocketSink) writePump(c *wsClient) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
