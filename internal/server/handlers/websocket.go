// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"legisdash/internal/domain/dataset"
	"legisdash/internal/logging"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4 * 1024,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// eventClient relays dataset events from NATS to one WebSocket connection
type eventClient struct {
	conn      *websocket.Conn
	send      chan []byte
	datasetID string
	sub       *nats.Subscription
	config    WebSocketConfig
	log       logging.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// DatasetEventsHandler streams dataset events. An optional dataset_id query
// parameter restricts the stream to one dataset.
func DatasetEventsHandler(natsConn *nats.Conn, subject string, log logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if natsConn == nil {
			respondWithError(w, log, http.StatusServiceUnavailable, "Event stream disabled", nil)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("Failed to upgrade to WebSocket")
			return
		}

		client := &eventClient{
			conn:      conn,
			send:      make(chan []byte, 64),
			datasetID: r.URL.Query().Get("dataset_id"),
			config:    DefaultWebSocketConfig(),
			log:       log,
			done:      make(chan struct{}),
		}

		client.sub, err = natsConn.Subscribe(subject, client.relay)
		if err != nil {
			log.WithError(err).Error("Failed to subscribe to dataset events")
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()

		log.WithField("dataset_id", client.datasetID).Debug("WebSocket client connected")
	}
}

// relay forwards a NATS message when it matches the client's dataset filter.
// Slow clients drop events rather than block the subscription.
func (c *eventClient) relay(msg *nats.Msg) {
	if c.datasetID != "" {
		var event dataset.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil || event.DatasetID != c.datasetID {
			return
		}
	}

	select {
	case c.send <- msg.Data:
	case <-c.done:
	default:
		c.log.WithField("dataset_id", c.datasetID).Warn("Dropping event for slow WebSocket client")
	}
}

// readPump drains control frames until the peer goes away
func (c *eventClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("WebSocket error")
			}
			return
		}
	}
}

// writePump writes queued events and keepalive pings
func (c *eventClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// close unsubscribes and closes the connection once
func (c *eventClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.sub != nil {
			c.sub.Unsubscribe()
		}
		c.conn.Close()
	})
}
