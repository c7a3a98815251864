package network

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/MRamiBalles/CosmicClicker/server/internal/engine"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 1024
	// Time allowed for the engine to answer a command.
	submitWait = 5 * time.Second
)

// Client is one WebSocket connection. Commands it reads are throttled by a
// token bucket; messages over the limit are dropped.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.cfg.ClientSendBuffer),
		limiter: rate.NewLimiter(rate.Limit(hub.cfg.MessagesPerSecond), hub.cfg.MessageBurst),
	}
}

// Register adds the client to the hub. It reports false once the hub has stopped.
func (c *Client) Register() bool {
	select {
	case c.hub.register <- c:
		return true
	case <-c.hub.done:
		return false
	}
}

// enqueue queues message without blocking. It reports false when the
// buffer is full; sends after close are discarded.
func (c *Client) enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) reply(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Errorf("Failed to serialize %s reply: %v", msg.Type, err)
		return
	}
	if !c.enqueue(payload) {
		metrics.Get().RecordWSError()
	}
}

// ReadPump pumps commands from the websocket connection to the engine.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.Get().RecordWSError()
				c.hub.logger.Warnf("WebSocket read error: %v", err)
			}
			return
		}
		metrics.Get().RecordWSMessage(true)

		if !c.limiter.Allow() {
			metrics.Get().RecordRateLimited()
			continue
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.hub.logger.Warn("Failed to parse command envelope from WebSocket: " + err.Error())
			c.reply(Message{Type: MsgTypeError, Data: map[string]string{"error": "malformed envelope"}})
			continue
		}
		if !c.handleEnvelope(env) {
			return
		}
	}
}

// handleEnvelope reports false when the engine is gone and the connection should end.
func (c *Client) handleEnvelope(env Envelope) bool {
	cmd, err := env.Command()
	if err != nil {
		c.reply(Message{Type: MsgTypeResult, Data: Result{RequestID: env.RequestID}})
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitWait)
	defer cancel()
	res, err := c.hub.game.Submit(ctx, cmd)
	if err != nil {
		if errors.Is(err, engine.ErrEngineStopped) {
			return false
		}
		c.hub.logger.Warnf("Command %s not processed: %v", env.Type, err)
		c.reply(Message{Type: MsgTypeResult, Data: Result{RequestID: env.RequestID}})
		return true
	}
	c.reply(Message{Type: MsgTypeResult, Data: newResult(env.RequestID, res)})
	return true
}

// WritePump pumps messages from the hub to the websocket connection.
// Queued messages are coalesced into one frame, separated by newlines.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				metrics.Get().RecordWSError()
				return
			}
			w.Write(message)
			metrics.Get().RecordWSMessage(false)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				next, ok := <-c.send
				if !ok {
					break
				}
				w.Write([]byte{'\n'})
				w.Write(next)
				metrics.Get().RecordWSMessage(false)
			}

			if err := w.Close(); err != nil {
				metrics.Get().RecordWSError()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
