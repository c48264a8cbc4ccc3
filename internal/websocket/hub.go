package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-salesops-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	clusterChannel = "salesops_ws_events"
	broadcastKey   = "*"
)

// clusterEnvelope is the Redis fan-out payload between API instances.
type clusterEnvelope struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"target_session_id"`
	Message   json.RawMessage `json:"message"`
}

// Hub tracks websocket clients per chat session. With Redis configured,
// frames are relayed to clients connected to other instances.
type Hub struct {
	// SessionID -> clients (several tabs may follow one session)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	quit       chan struct{}

	mu sync.RWMutex

	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("WEBSOCKET", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			clients := h.clients[client.SessionID]
			for i, c := range clients {
				if c == client {
					h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
					close(client.Send)
					break
				}
			}
			if len(h.clients[client.SessionID]) == 0 {
				delete(h.clients, client.SessionID)
			}
			h.mu.Unlock()
			h.logger.Info("WEBSOCKET", "Client unregistered", map[string]interface{}{"session_id": client.SessionID})

		case <-h.quit:
			return
		}
	}
}

// Close stops Run. Connected clients are left to their own pumps.
func (h *Hub) Close() {
	close(h.quit)
}

// Send delivers a frame to every client following the session.
func (h *Hub) Send(sessionID string, frame []byte) {
	h.deliverLocal(sessionID, frame)
	h.publish(sessionID, frame)
}

// Broadcast delivers a frame to all connected clients.
func (h *Hub) Broadcast(frame []byte) {
	h.deliverLocal(broadcastKey, frame)
	h.publish(broadcastKey, frame)
}

// ClientCount reports the number of local connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

func (h *Hub) deliverLocal(sessionID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var targets []*Client
	if sessionID == broadcastKey {
		for _, clients := range h.clients {
			targets = append(targets, clients...)
		}
	} else {
		targets = h.clients[sessionID]
	}

	for _, client := range targets {
		select {
		case client.Send <- frame:
		default:
			// Slow reader; the frame is dropped rather than blocking the hub.
			h.logger.Warn("WEBSOCKET", "Send buffer full, dropping frame", map[string]interface{}{"session_id": client.SessionID})
		}
	}
}

func (h *Hub) publish(sessionID string, frame []byte) {
	if h.rdb == nil {
		return
	}
	payload, err := json.Marshal(clusterEnvelope{Origin: h.instanceID, SessionID: sessionID, Message: frame})
	if err != nil {
		return
	}
	if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
		h.logger.Warn("WEBSOCKET", "Redis publish failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-h.quit:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env clusterEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn("WEBSOCKET", "Bad cluster frame", map[string]interface{}{"error": err.Error()})
				continue
			}
			if env.Origin == h.instanceID {
				continue
			}
			h.deliverLocal(env.SessionID, env.Message)
		}
	}
}
