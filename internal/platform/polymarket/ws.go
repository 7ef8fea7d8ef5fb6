package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// TradeHandler is called for each last-trade-price event.
type TradeHandler func(WSTrade)

// PriceChangeHandler is called for each incremental price-level event.
type PriceChangeHandler func(WSPriceChange)

// WSClient is a client for the CLOB market-data WebSocket. It manages one
// connection, tracks subscriptions, and dispatches events to registered
// handlers. Reconnection is the caller's concern (see feed.Relay).
type WSClient struct {
	wsURL string

	mu            sync.Mutex
	conn          *websocket.Conn
	closed        bool
	subscriptions []WSCommand

	handlerMu     sync.RWMutex
	tradeHandlers []TradeHandler
	priceHandlers []PriceChangeHandler

	done chan struct{}
}

// NewWSClient creates a client for the given market-data endpoint, e.g.
// "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		done:  make(chan struct{}),
	}
}

// OnTrade registers a handler for trade events.
func (w *WSClient) OnTrade(h TradeHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.tradeHandlers = append(w.tradeHandlers, h)
}

// OnPriceChange registers a handler for price-change events.
func (w *WSClient) OnPriceChange(h PriceChangeHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.priceHandlers = append(w.priceHandlers, h)
}

// Connect dials the endpoint, starts the read and ping loops, and restores
// any subscriptions registered before a reconnect.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("polymarket/ws: client closed")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/ws: connect: %w", err)
	}
	w.conn = conn

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go w.readLoop(conn)
	go w.pingLoop(conn)

	for _, cmd := range w.subscriptions {
		if err := w.send(conn, cmd); err != nil {
			return fmt.Errorf("polymarket/ws: restore subscription: %w", err)
		}
	}
	return nil
}

// Subscribe subscribes to the market channel for the given asset ids and
// remembers the subscription for reconnects.
func (w *WSClient) Subscribe(assetIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("polymarket/ws: not connected")
	}

	cmd := WSCommand{Type: "subscribe", Channel: "market", Assets: assetIDs}
	if err := w.send(w.conn, cmd); err != nil {
		return fmt.Errorf("polymarket/ws: subscribe: %w", err)
	}
	w.subscriptions = append(w.subscriptions, cmd)
	return nil
}

// Close shuts the connection down. Done reports when the read loop exits.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// Done is closed when the read loop has terminated (connection lost or
// client closed).
func (w *WSClient) Done() <-chan struct{} {
	return w.done
}

func (w *WSClient) send(conn *websocket.Conn, cmd WSCommand) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(cmd)
}

func (w *WSClient) readLoop(conn *websocket.Conn) {
	defer close(w.done)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		w.dispatch(msg)
	}
}

func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one raw frame to the matching handlers. Frames arrive
// either as a single event object or as an array of events.
func (w *WSClient) dispatch(msg []byte) {
	var events []json.RawMessage
	if err := json.Unmarshal(msg, &events); err != nil {
		events = []json.RawMessage{json.RawMessage(msg)}
	}

	for _, raw := range events {
		var head struct {
			EventType string `json:"event_type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			continue
		}

		switch head.EventType {
		case "last_trade_price":
			var t WSTrade
			if err := json.Unmarshal(raw, &t); err != nil {
				continue
			}
			w.handlerMu.RLock()
			handlers := w.tradeHandlers
			w.handlerMu.RUnlock()
			for _, h := range handlers {
				h(t)
			}
		case "price_change":
			var pc WSPriceChange
			if err := json.Unmarshal(raw, &pc); err != nil {
				continue
			}
			w.handlerMu.RLock()
			handlers := w.priceHandlers
			w.handlerMu.RUnlock()
			for _, h := range handlers {
				h(pc)
			}
		}
	}
}
