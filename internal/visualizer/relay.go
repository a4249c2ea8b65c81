package visualizer

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Relay forwards Hub broadcasts to one outbound WebSocket endpoint,
// for deployments behind NAT where a central dashboard can't dial in
// directly and instead waits for the core to dial out.
type Relay struct {
	url    string
	logger *zap.Logger

	lifecycleMu sync.Mutex
	cancel      func()
	wg          sync.WaitGroup
}

// NewRelay constructs a Relay that will connect to url once Start is called.
func NewRelay(url string, logger *zap.Logger) *Relay {
	return &Relay{url: url, logger: logger}
}

// Start subscribes to hub's broadcasts and forwards them over a
// WebSocket connection to the configured URL, reconnecting with
// backoff on failure.
func (r *Relay) Start(hub *Hub) {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	if r.cancel != nil {
		return
	}

	stopped := make(chan struct{})
	r.cancel = func() { close(stopped) }

	r.wg.Add(1)
	go r.run(hub, stopped)
}

// Stop halts the relay and closes its outbound connection.
func (r *Relay) Stop() {
	r.lifecycleMu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.lifecycleMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
}

func (r *Relay) run(hub *Hub, stopped <-chan struct{}) {
	defer r.wg.Done()

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-stopped:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(r.url, nil)
		if err != nil {
			r.logger.Warn("relay: dial failed, backing off", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-stopped:
				return
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		client := &Client{ID: "relay", Conn: nil, Send: make(chan Message, 256)}
		hub.register <- client

		r.forward(conn, client, stopped)

		hub.unregister <- client
		conn.Close()
	}
}

func (r *Relay) forward(conn *websocket.Conn, client *Client, stopped <-chan struct{}) {
	for {
		select {
		case <-stopped:
			return
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				r.logger.Warn("relay: write failed, reconnecting", zap.Error(err))
				return
			}
		}
	}
}
