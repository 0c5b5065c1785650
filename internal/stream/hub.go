// Package stream fans trip events and location updates out to websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"mtolling/internal/logging"
)

// Topics.
const (
	TopicTrips    = "trips"
	TopicLocation = "location"
)

const redisChannelPrefix = "mtolling:stream:"

// Message is the envelope written to clients.
type Message struct {
	Topic string          `json:"topic"`
	At    time.Time       `json:"at"`
	Data  json.RawMessage `json:"data"`
}

// Client is a registered subscriber.
type Client struct {
	Topics map[string]struct{}
	Send   chan []byte
}

func (c *Client) wants(topic string) bool {
	_, ok := c.Topics[topic]
	return ok
}

// Hub delivers messages to registered clients. When a Redis client is
// configured, messages travel through Redis pub/sub so every agent
// process sharing that Redis sees them.
type Hub struct {
	redis   *redis.Client
	log     *logrus.Entry
	mu      sync.RWMutex
	clients map[*Client]struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewHub creates a hub. redisClient may be nil.
func NewHub(redisClient *redis.Client, log *logrus.Entry) *Hub {
	if log == nil {
		log = logging.Discard()
	}
	h := &Hub{
		redis:   redisClient,
		log:     log,
		clients: map[*Client]struct{}{},
		done:    make(chan struct{}),
	}

	if redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		pubsub := redisClient.PSubscribe(ctx, redisChannelPrefix+"*")
		if _, err := pubsub.Receive(ctx); err != nil {
			log.WithError(err).Warn("redis stream subscription not confirmed")
		}
		go h.subscribeRedis(ctx, pubsub)
	} else {
		close(h.done)
	}
	return h
}

// Register adds a client for the given topics. No topics means all topics.
func (h *Hub) Register(topics ...string) *Client {
	if len(topics) == 0 {
		topics = []string{TopicTrips, TopicLocation}
	}
	client := &Client{
		Topics: make(map[string]struct{}, len(topics)),
		Send:   make(chan []byte, 64),
	}
	for _, t := range topics {
		client.Topics[t] = struct{}{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	return client
}

// Unregister removes client and closes its channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
}

// Publish encodes v as a message on topic.
func (h *Hub) Publish(ctx context.Context, topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(Message{Topic: topic, At: time.Now().UTC(), Data: data})
	if err != nil {
		return err
	}

	if h.redis != nil {
		if err := h.redis.Publish(ctx, redisChannelPrefix+topic, payload).Err(); err != nil {
			h.log.WithError(err).Warn("redis publish failed, delivering locally")
			h.deliver(topic, payload)
		}
		return nil
	}

	h.deliver(topic, payload)
	return nil
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the Redis subscription, if any.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	<-h.done
}

// deliver drops the message for clients whose buffer is full.
func (h *Hub) deliver(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.wants(topic) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer close(h.done)
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
			h.deliver(topicFromChannel(msg.Channel), []byte(msg.Payload))
		}
	}
}

func topicFromChannel(ch string) string {
	return strings.TrimPrefix(ch, redisChannelPrefix)
}
