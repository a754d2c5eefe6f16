package websocket

import (
	"time"

	"github.com/surgefund/backend/internal/service"
)

// MessageType identifies websocket message kinds.
type MessageType string

const (
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeError       MessageType = "error"
	MessageTypePoolEvent   MessageType = "pool_event"
)

// TopicPools is the subscription topic for pool lifecycle events; clients
// subscribe to "pools:<pool address>".
const TopicPools = "pools"

// Message is the wire envelope exchanged with clients.
type Message struct {
	Type        MessageType `json:"type"`
	Topic       string      `json:"topic,omitempty"`
	PoolAddress string      `json:"pool_address,omitempty"`
	Data        interface{} `json:"data,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// ErrorMessage is sent to a client on protocol errors.
type ErrorMessage struct {
	Type      MessageType `json:"type"`
	Error     string      `json:"error"`
	Code      int         `json:"code"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConnectionStats tracks hub activity for the stats endpoint.
type ConnectionStats struct {
	TotalConnections   int64     `json:"total_connections"`
	ActiveConnections  int64     `json:"active_connections"`
	TotalSubscriptions int64     `json:"total_subscriptions"`
	MessagesSent       int64     `json:"messages_sent"`
	LastUpdate         time.Time `json:"last_update"`
}

// poolEventMessage wraps a committed pool event for broadcast.
func poolEventMessage(event service.Event) Message {
	return Message{
		Type:        MessageTypePoolEvent,
		Topic:       TopicPools,
		PoolAddress: event.PoolAddress,
		Data:        event,
		Timestamp:   time.Now(),
	}
}
