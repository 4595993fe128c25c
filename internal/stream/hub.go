package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/dpup/prefab/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "trail:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
	sendBuffer     = 64
)

// Hub fans session events out to connected clients. With a redis client,
// events are also relayed to hubs in other server instances.
type Hub struct {
	redis      *redis.Client
	instanceID string
	clients    map[string]map[*Client]struct{}
	mu         sync.RWMutex
}

// Client is one subscriber of a session's events
type Client struct {
	SessionID string
	Send      chan []byte
}

// envelope wraps relayed payloads so a hub can skip its own messages
type envelope struct {
	Origin  string `json:"origin"`
	Payload []byte `json:"payload"`
}

// NewHub creates a hub. When redisClient is non-nil the hub subscribes
// before returning and relays until ctx ends.
func NewHub(ctx context.Context, redisClient *redis.Client) *Hub {
	ctx = logging.EnsureLogger(ctx)
	h := &Hub{
		redis:      redisClient,
		instanceID: uuid.NewString(),
		clients:    map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		pubsub := redisClient.PSubscribe(ctx, channelPattern)
		if _, err := pubsub.Receive(ctx); err != nil {
			logging.Errorw(ctx, "stream: redis subscribe failed, relaying disabled", "error", err)
			_ = pubsub.Close()
		} else {
			go h.relay(ctx, pubsub)
		}
	}
	return h
}

func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	return client
}

// Unregister removes the client and closes its Send channel. Repeated
// calls are no-ops.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionClients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := sessionClients[client]; !ok {
		return
	}
	delete(sessionClients, client)
	if len(sessionClients) == 0 {
		delete(h.clients, client.SessionID)
	}
	close(client.Send)
}

// ClientCount returns the number of clients subscribed to a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Broadcast delivers payload to local clients without blocking, dropping it
// for clients whose buffer is full, then relays it through redis
func (h *Hub) Broadcast(ctx context.Context, sessionID string, payload []byte) {
	h.deliver(sessionID, payload)

	if h.redis == nil {
		return
	}
	ctx = logging.EnsureLogger(ctx)
	msg, err := json.Marshal(envelope{Origin: h.instanceID, Payload: payload})
	if err != nil {
		logging.Errorw(ctx, "stream: failed to encode relay message", "error", err)
		return
	}
	if err := h.redis.Publish(ctx, redisChannel(sessionID), msg).Err(); err != nil {
		logging.Errorw(ctx, "stream: redis publish failed", "session", sessionID, "error", err)
	}
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[sessionID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) relay(ctx context.Context, pubsub *redis.PubSub) {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			sessionID := sessionIDFromChannel(msg.Channel)
			if sessionID == "" {
				continue
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logging.Warnw(ctx, "stream: dropping malformed relay message", "channel", msg.Channel, "error", err)
				continue
			}
			if env.Origin == h.instanceID {
				continue
			}
			h.deliver(sessionID, env.Payload)
		}
	}
}

func redisChannel(sessionID string) string {
	return channelPrefix + sessionID + channelSuffix
}

func sessionIDFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
