// Package network is the presentation boundary: a WebSocket hub that streams
// views and analytics to clients and feeds their commands to the engine, plus
// REST endpoints for tooling.
package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
	"github.com/MRamiBalles/CosmicClicker/server/internal/engine"
	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/config"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/logger"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/metrics"
)

// GameEngine is the part of engine.Engine the network layer drives.
type GameEngine interface {
	Submit(ctx context.Context, cmd engine.Command) (engine.CommandResult, error)
	View() engine.View
	Snapshot() *state.GameState
}

// HubConfig tunes the hub. Zero values are replaced by the default preset.
type HubConfig struct {
	MaxClients        int
	ClientSendBuffer  int
	BroadcastBuffer   int
	MessagesPerSecond float64
	MessageBurst      int
	ViewInterval      time.Duration
	EventPollInterval time.Duration
}

// NewHubConfig extracts the hub settings from the server config.
func NewHubConfig(c *config.Config) HubConfig {
	return HubConfig{
		MaxClients:        c.MaxClients,
		ClientSendBuffer:  c.ClientSendBuffer,
		BroadcastBuffer:   c.BroadcastChannelBuffer,
		MessagesPerSecond: c.MaxMessagesPerSecond,
		MessageBurst:      c.MessageBurst,
		ViewInterval:      c.ViewBroadcastInterval,
		EventPollInterval: c.EventPollInterval,
	}
}

func (hc HubConfig) withDefaults() HubConfig {
	def := NewHubConfig(config.DefaultConfig())
	if hc.MaxClients <= 0 {
		hc.MaxClients = def.MaxClients
	}
	if hc.ClientSendBuffer <= 0 {
		hc.ClientSendBuffer = def.ClientSendBuffer
	}
	if hc.BroadcastBuffer <= 0 {
		hc.BroadcastBuffer = def.BroadcastBuffer
	}
	if hc.MessagesPerSecond <= 0 {
		hc.MessagesPerSecond = def.MessagesPerSecond
	}
	if hc.MessageBurst <= 0 {
		hc.MessageBurst = def.MessageBurst
	}
	if hc.ViewInterval <= 0 {
		hc.ViewInterval = def.ViewInterval
	}
	if hc.EventPollInterval <= 0 {
		hc.EventPollInterval = def.EventPollInterval
	}
	return hc
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex

	game     GameEngine
	eventLog *events.EventLog
	cfg      HubConfig
	logger   *logger.Logger
}

// NewHub initializes a new WebSocket Hub.
func NewHub(game GameEngine, eventLog *events.EventLog, cfg HubConfig, log *logger.Logger) *Hub {
	cfg = cfg.withDefaults()
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, cfg.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		game:       game,
		eventLog:   eventLog,
		cfg:        cfg,
		logger:     log,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket Hub shutting down.")
			return nil
		case client := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= h.cfg.MaxClients {
				h.mu.Unlock()
				client.close()
				h.logger.Warnf("Rejected WebSocket client: %d clients connected", h.cfg.MaxClients)
				continue
			}
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.enqueue(message) {
					// Slow consumer.
					metrics.Get().RecordWSError()
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	client.close()
	metrics.Get().RecordWSConnection(-1)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serializes msg and queues it for every connected client.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Failed to serialize %s message for WebSocket broadcast: %v", msg.Type, err)
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

// RunViewBroadcaster pushes the current view to all clients every ViewInterval.
func (h *Hub) RunViewBroadcaster(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.ViewInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			h.Broadcast(Message{Type: MsgTypeView, Data: h.game.View()})
		}
	}
}

// RunEventPoller polls the EventLog and pushes new analytics events to the Hub.
// This allows the Hub to run independently from the Engine's loop while picking up the same events.
func (h *Hub) RunEventPoller(ctx context.Context) error {
	pollInterval := time.NewTicker(h.cfg.EventPollInterval)
	defer pollInterval.Stop()

	lastProcessedEvent := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pollInterval.C:
			newEvents := h.eventLog.Since(lastProcessedEvent)
			lastProcessedEvent += len(newEvents)
			for _, event := range newEvents {
				h.Broadcast(Message{Type: MsgTypeAnalytics, Data: event})
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow cross-origin requests for the web client dev server
	},
}

// ServeWS handles websocket requests from the peer.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("Failed to upgrade websocket connection: %v", err)
		return
	}

	client := NewClient(h, conn)
	if !client.Register() {
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}
