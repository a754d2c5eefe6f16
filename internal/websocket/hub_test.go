package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgefund/backend/internal/service"
)

const testPoolAddr = "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa"

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func registerClient(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()
	client := NewClient(nil, hub, id)
	hub.Register <- client
	waitFor(t, func() bool { return hub.GetClientCount() > 0 })
	return client
}

func subscribe(t *testing.T, hub *Hub, client *Client, topic string) {
	t.Helper()
	hub.Subscribe <- &Subscription{Client: client, Topic: topic}
	waitFor(t, func() bool { return hub.GetStats().TotalSubscriptions > 0 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := startHub(t)

	client := registerClient(t, hub, "client-1")
	assert.Equal(t, 1, hub.GetClientCount())

	hub.Unregister <- client
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })

	stats := hub.GetStats()
	assert.Equal(t, int64(1), stats.TotalConnections)
	assert.Equal(t, int64(0), stats.ActiveConnections)
}

func TestHubDeliversPoolEventToSubscriber(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, "client-1")
	subscribe(t, hub, client, TopicPools+":"+testPoolAddr)

	event := service.Event{
		Type:        service.EventContribution,
		PoolAddress: testPoolAddr,
		PoolID:      1,
		Amount:      decimal.NewFromInt(1),
		Timestamp:   time.Now(),
	}
	hub.PublishPoolEvent(event)

	select {
	case raw := <-client.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, MessageTypePoolEvent, msg.Type)
		assert.Equal(t, testPoolAddr, msg.PoolAddress)
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
}

func TestHubDoesNotDeliverToOtherPools(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, "client-1")
	subscribe(t, hub, client, TopicPools+":"+testPoolAddr)

	hub.PublishPoolEvent(service.Event{
		Type:        service.EventContribution,
		PoolAddress: "0xBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBb",
		Timestamp:   time.Now(),
	})

	select {
	case <-client.Send:
		t.Fatal("received event for a pool not subscribed to")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, "client-1")
	topic := TopicPools + ":" + testPoolAddr
	subscribe(t, hub, client, topic)

	hub.Unsubscribe <- &Subscription{Client: client, Topic: topic}
	waitFor(t, func() bool { return hub.GetStats().TotalSubscriptions == 0 })

	hub.PublishPoolEvent(service.Event{
		Type:        service.EventDeployed,
		PoolAddress: testPoolAddr,
		Timestamp:   time.Now(),
	})

	select {
	case <-client.Send:
		t.Fatal("received event after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubUnregisterCleansSubscriptions(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, "client-1")
	subscribe(t, hub, client, TopicPools+":"+testPoolAddr)

	hub.Unregister <- client
	waitFor(t, func() bool { return hub.GetStats().TotalSubscriptions == 0 })
	assert.Equal(t, 0, hub.GetClientCount())
}

func TestHubFanOut(t *testing.T) {
	hub := startHub(t)
	topic := TopicPools + ":" + testPoolAddr

	a := registerClient(t, hub, "client-a")
	b := NewClient(nil, hub, "client-b")
	hub.Register <- b
	waitFor(t, func() bool { return hub.GetClientCount() == 2 })

	subscribe(t, hub, a, topic)
	hub.Subscribe <- &Subscription{Client: b, Topic: topic}
	waitFor(t, func() bool { return hub.GetStats().TotalSubscriptions == 2 })

	hub.PublishPoolEvent(service.Event{
		Type:        service.EventClaimed,
		PoolAddress: testPoolAddr,
		Timestamp:   time.Now(),
	})

	for _, client := range []*Client{a, b} {
		select {
		case raw := <-client.Send:
			var msg Message
			require.NoError(t, json.Unmarshal(raw, &msg))
			assert.Equal(t, MessageTypePoolEvent, msg.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("client %s got no message", client.ID)
		}
	}

	assert.GreaterOrEqual(t, hub.GetStats().MessagesSent, int64(2))
}
