package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies a pool lifecycle event.
type EventType string

const (
	EventContribution EventType = "contribution"
	EventDeployed     EventType = "deployed"
	EventClaimed      EventType = "claimed"
)

// Event describes a committed state change on one pool. Events are emitted
// after the transaction commits, so subscribers never see rolled-back work.
type Event struct {
	Type            EventType       `json:"type"`
	PoolAddress     string          `json:"pool_address"`
	PoolID          uint64          `json:"pool_id"`
	Actor           string          `json:"actor"`
	Amount          decimal.Decimal `json:"amount"`
	AmountDeposited decimal.Decimal `json:"amount_deposited"`
	State           string          `json:"state"`
	Timestamp       time.Time       `json:"timestamp"`
}

// EventPublisher receives committed pool events, typically to fan out to
// websocket subscribers. Implementations must not block.
type EventPublisher interface {
	PublishPoolEvent(event Event)
}
