package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/websocket"
)

// HeadWatcher maintains a raw eth_subscribe("newHeads") feed over a
// gorilla/websocket connection, reconnecting with exponential backoff when
// the node drops the socket. Backend.SubscribeNewHead (via ethclient) is
// the primary path; HeadWatcher is the fallback the engine's loop driver
// falls to when that subscription's error channel fires, so a single
// flaky RPC provider cannot stall block ingestion.
type HeadWatcher struct {
	url string

	connMu sync.Mutex
	conn   *websocket.Conn

	heads  chan *types.Header
	logger *slog.Logger
}

const (
	wsPingInterval     = 30 * time.Second
	wsReadTimeout      = 60 * time.Second
	wsMaxReconnectWait = 30 * time.Second
	wsWriteTimeout     = 10 * time.Second
)

// NewHeadWatcher constructs a watcher against a ws(s):// endpoint. Call Run
// in its own goroutine and read Heads() until ctx is cancelled.
func NewHeadWatcher(url string, logger *slog.Logger) *HeadWatcher {
	return &HeadWatcher{
		url:    url,
		heads:  make(chan *types.Header, 64),
		logger: logger.With("component", "chain_ws"),
	}
}

// Heads returns the channel new block headers are delivered on.
func (w *HeadWatcher) Heads() <-chan *types.Header { return w.heads }

// Run connects and maintains the subscription until ctx is cancelled.
func (w *HeadWatcher) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := w.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		w.logger.Warn("chain websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > wsMaxReconnectWait {
			backoff = wsMaxReconnectWait
		}
	}
}

func (w *HeadWatcher) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	w.connMu.Lock()
	w.conn = conn
	w.connMu.Unlock()

	defer func() {
		w.connMu.Lock()
		conn.Close()
		w.conn = nil
		w.connMu.Unlock()
	}()

	sub := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "eth_subscribe",
		"params":  []interface{}{"newHeads"},
	}
	if err := w.writeJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	w.logger.Info("chain websocket connected")

	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go w.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		w.dispatch(msg)
	}
}

func (w *HeadWatcher) dispatch(data []byte) {
	var envelope struct {
		Params struct {
			Result json.RawMessage `json:"result"`
		} `json:"params"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		w.logger.Debug("ignoring non-json-rpc ws frame", "data", string(data))
		return
	}
	if len(envelope.Params.Result) == 0 {
		return // subscription ack, not a notification
	}

	var head types.Header
	if err := json.Unmarshal(envelope.Params.Result, &head); err != nil {
		w.logger.Error("decode newHeads notification", "error", err)
		return
	}

	select {
	case w.heads <- &head:
	default:
		w.logger.Warn("head channel full, dropping notification", "number", head.Number)
	}
}

func (w *HeadWatcher) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.connMu.Lock()
			conn := w.conn
			w.connMu.Unlock()
			if conn == nil {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				w.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (w *HeadWatcher) writeJSON(v interface{}) error {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.conn.WriteJSON(v)
}

// Close releases the underlying connection, if any.
func (w *HeadWatcher) Close() error {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}
