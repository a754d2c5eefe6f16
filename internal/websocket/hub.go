package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/surgefund/backend/internal/service"
)

// Subscription represents a client subscription to a topic
type Subscription struct {
	Client *Client
	Topic  string
}

// Hub maintains the set of active clients and fans pool events out to the
// clients subscribed to the affected pool.
type Hub struct {
	// Registered clients
	Clients map[*Client]bool

	// Register requests from the clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Subscribe requests from clients
	Subscribe chan *Subscription

	// Unsubscribe requests from clients
	Unsubscribe chan *Subscription

	// Topic subscriptions: topic -> clients
	Subscriptions map[string]map[*Client]bool

	// Statistics
	Stats ConnectionStats

	mu       sync.RWMutex
	stop     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a new websocket hub
func NewHub() *Hub {
	return &Hub{
		Clients:       make(map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		Subscribe:     make(chan *Subscription),
		Unsubscribe:   make(chan *Subscription),
		Subscriptions: make(map[string]map[*Client]bool),
		stop:          make(chan struct{}),
		Stats: ConnectionStats{
			LastUpdate: time.Now(),
		},
	}
}

// Run starts the hub and handles client connections and subscriptions
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case subscription := <-h.Subscribe:
			h.subscribeClient(subscription)

		case subscription := <-h.Unsubscribe:
			h.unsubscribeClient(subscription)

		case <-h.stop:
			return
		}
	}
}

// PublishPoolEvent broadcasts a committed pool event to the clients
// subscribed to that pool. It satisfies service.EventPublisher.
func (h *Hub) PublishPoolEvent(event service.Event) {
	topic := TopicPools + ":" + event.PoolAddress
	h.broadcastToTopic(topic, poolEventMessage(event))
}

// registerClient registers a new client
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Clients[client] = true
	h.Stats.TotalConnections++
	h.Stats.ActiveConnections++
	h.Stats.LastUpdate = time.Now()

	logrus.WithField("client_id", client.ID).Debug("Websocket client registered")
}

// unregisterClient unregisters a client and cleans up subscriptions
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.Clients[client]; ok {
		delete(h.Clients, client)
		close(client.Send)
		h.Stats.ActiveConnections--
		h.Stats.LastUpdate = time.Now()

		for topic, clients := range h.Subscriptions {
			if _, subscribed := clients[client]; subscribed {
				delete(clients, client)
				h.Stats.TotalSubscriptions--
				if len(clients) == 0 {
					delete(h.Subscriptions, topic)
				}
			}
		}

		logrus.WithField("client_id", client.ID).Debug("Websocket client unregistered")
	}
}

// subscribeClient subscribes a client to a topic
func (h *Hub) subscribeClient(subscription *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.Subscriptions[subscription.Topic] == nil {
		h.Subscriptions[subscription.Topic] = make(map[*Client]bool)
	}

	if !h.Subscriptions[subscription.Topic][subscription.Client] {
		h.Subscriptions[subscription.Topic][subscription.Client] = true
		h.Stats.TotalSubscriptions++
		h.Stats.LastUpdate = time.Now()
	}
}

// unsubscribeClient unsubscribes a client from a topic
func (h *Hub) unsubscribeClient(subscription *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.Subscriptions[subscription.Topic]; exists {
		if _, subscribed := clients[subscription.Client]; subscribed {
			delete(clients, subscription.Client)
			h.Stats.TotalSubscriptions--
			if len(clients) == 0 {
				delete(h.Subscriptions, subscription.Topic)
			}
		}
	}
}

// broadcastToTopic sends a message to every client subscribed to the topic
func (h *Hub) broadcastToTopic(topic string, message Message) {
	h.mu.RLock()
	subscribed, exists := h.Subscriptions[topic]
	if !exists || len(subscribed) == 0 {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(subscribed))
	for client := range subscribed {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		logrus.WithError(err).WithField("topic", topic).Error("Failed to marshal websocket message")
		return
	}

	clientsToRemove := make([]*Client, 0)
	messagesSent := int64(0)

	for _, client := range clients {
		select {
		case client.Send <- data:
			messagesSent++
		default:
			// Send buffer full; drop the client.
			close(client.Send)
			clientsToRemove = append(clientsToRemove, client)
		}
	}

	h.mu.Lock()
	for _, client := range clientsToRemove {
		delete(h.Clients, client)
		if topicClients, ok := h.Subscriptions[topic]; ok {
			delete(topicClients, client)
		}
	}
	h.Stats.MessagesSent += messagesSent
	h.Stats.LastUpdate = time.Now()
	h.mu.Unlock()
}

// GetStats returns current connection statistics
func (h *Hub) GetStats() ConnectionStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.Stats
}

// GetClientCount returns the number of active clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients)
}

// Stop stops the hub and closes all client connections
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)

		h.mu.Lock()
		clientsToClose := make([]*Client, 0, len(h.Clients))
		for client := range h.Clients {
			clientsToClose = append(clientsToClose, client)
			delete(h.Clients, client)
		}
		h.mu.Unlock()

		for _, client := range clientsToClose {
			client.Close()
		}
	})
}
