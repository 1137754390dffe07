package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/DreamSprite/server/internal/engine"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/logger"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/metrics"
)

// MessageType tags server-to-client frames.
type MessageType string

const (
	MsgTypeEvent    MessageType = "EVENT"
	MsgTypeSnapshot MessageType = "SNAPSHOT"
)

// Message is the server-to-client envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Envelope is a Message as decoded by a client.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// DecodeFrame splits one websocket frame into envelopes. The write pump
// may coalesce queued messages into a frame, one JSON document per line.
func DecodeFrame(frame []byte) ([]Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(frame))
	var out []Envelope
	for dec.More() {
		var env Envelope
		if err := dec.Decode(&env); err != nil {
			return out, fmt.Errorf("decode frame: %w", err)
		}
		out = append(out, env)
	}
	return out, nil
}

// HubConfig sizes the hub.
type HubConfig struct {
	BroadcastBuffer   int
	ClientSendBuffer  int
	MaxClients        int
	MinActionInterval time.Duration
}

// Hub maintains the set of active clients and broadcasts the journal to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	logger     *logger.Logger
	engine     *engine.Engine
	cfg        HubConfig
}

// NewHub initializes a new WebSocket Hub in front of eng.
func NewHub(eng *engine.Engine, log *logger.Logger, cfg HubConfig) *Hub {
	if cfg.BroadcastBuffer < 1 {
		cfg.BroadcastBuffer = 256
	}
	if cfg.ClientSendBuffer < 1 {
		cfg.ClientSendBuffer = 64
	}
	return &Hub{
		broadcast:  make(chan []byte, cfg.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     log,
		engine:     eng,
		cfg:        cfg,
	}
}

// Run handles client connections and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.cfg.MaxClients > 0 && len(h.clients) >= h.cfg.MaxClients {
				h.mu.Unlock()
				close(client.send)
				h.logger.Warn("WebSocket client refused: hub is full")
				continue
			}
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.Get().RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					metrics.Get().RecordWSMessage(false)
				default:
					// Slow consumer.
					close(client.send)
					delete(h.clients, client)
					metrics.Get().RecordWSConnection(-1)
					metrics.Get().RecordWSError()
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func encode(t MessageType, payload interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: t, Timestamp: time.Now().Unix(), Payload: payload})
}

// Broadcast wraps payload in a Message and queues it for every client.
func (h *Hub) Broadcast(t MessageType, payload interface{}) {
	data, err := encode(t, payload)
	if err != nil {
		h.logger.Error("Failed to serialize message for WebSocket broadcast: " + err.Error())
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// BroadcastEvent sends one journal event to all connected clients.
func (h *Hub) BroadcastEvent(event events.Event) {
	h.Broadcast(MsgTypeEvent, event)
}

// StartEventPoller spawns a goroutine that polls the journal and pushes new
// events to the Hub. A phase change is followed by a fresh snapshot.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog, interval time.Duration) {
	go func() {
		pollInterval := time.NewTicker(interval)
		defer pollInterval.Stop()

		lastProcessedEvent := eventLog.Len()

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				newEvents := eventLog.Since(lastProcessedEvent)
				if len(newEvents) == 0 {
					continue
				}
				lastProcessedEvent += len(newEvents)

				phaseChanged := false
				for _, event := range newEvents {
					h.BroadcastEvent(event)
					if event.Type == events.EventTypePhaseChanged || event.Type == events.EventTypeScenarioReloaded {
						phaseChanged = true
					}
				}
				if phaseChanged {
					h.broadcastSnapshot(ctx)
				}
			}
		}
	}()
}

func (h *Hub) broadcastSnapshot(ctx context.Context) {
	snap, err := h.engine.Inspect(ctx)
	if err != nil {
		h.logger.Warn("Snapshot for broadcast failed: " + err.Error())
		return
	}
	h.Broadcast(MsgTypeSnapshot, snap)
}
