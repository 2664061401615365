// Package realtime fans lifecycle events out to open server-sent-event connections.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repairdesk/internal/observability"
)

// Event is the tagged payload delivered to subscribers.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscriber receives rendered frames. Send must not block.
type Subscriber interface {
	ID() string
	Send(frame []byte) error
}

// Target selects a registry.
type Target string

const (
	TargetCustomer Target = "customer"
	TargetAdmins   Target = "admins"
)

// Envelope is one publication addressed to a registry. Payload is the JSON encoded Event.
type Envelope struct {
	Target     Target          `json:"target"`
	CustomerID string          `json:"customer_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// Relay carries envelopes between processes sharing one logical broker.
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
}

// Broker owns the per-customer and admin subscriber registries.
type Broker struct {
	mu        sync.RWMutex
	customers map[string]map[string]Subscriber
	admins    map[string]Subscriber

	relay   Relay
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewBroker builds an empty broker.
func NewBroker(logger *zap.Logger, metrics *observability.Metrics) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		customers: make(map[string]map[string]Subscriber),
		admins:    make(map[string]Subscriber),
		logger:    logger,
		metrics:   metrics,
	}
}

// UseRelay routes publications through relay. Delivery to local subscribers then happens
// when the relay hands the envelope back through Deliver.
func (b *Broker) UseRelay(relay Relay) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.relay = relay
}

// Subscribe registers sub for events addressed to customerID.
func (b *Broker) Subscribe(customerID string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.customers[customerID]
	if !ok {
		set = make(map[string]Subscriber)
		b.customers[customerID] = set
	}
	set[sub.ID()] = sub
}

// Unsubscribe removes sub and drops the customer key once no connection remains.
func (b *Broker) Unsubscribe(customerID string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.customers[customerID]
	if !ok {
		return
	}
	delete(set, sub.ID())
	if len(set) == 0 {
		delete(b.customers, customerID)
	}
}

// SubscribeAdmin registers sub for every admin broadcast.
func (b *Broker) SubscribeAdmin(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.admins[sub.ID()] = sub
}

// UnsubscribeAdmin removes sub from the admin registry.
func (b *Broker) UnsubscribeAdmin(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.admins, sub.ID())
}

// CustomerConnections returns the number of open streams for customerID.
func (b *Broker) CustomerConnections(customerID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.customers[customerID])
}

// CustomerKeys returns how many customers currently hold at least one stream.
func (b *Broker) CustomerKeys() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.customers)
}

// AdminConnections returns the number of open admin streams.
func (b *Broker) AdminConnections() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.admins)
}

// PublishToCustomer sends ev to every stream of customerID.
func (b *Broker) PublishToCustomer(ctx context.Context, customerID string, ev Event) {
	if customerID == "" {
		return
	}
	b.publish(ctx, Envelope{Target: TargetCustomer, CustomerID: customerID}, ev)
}

// PublishToAdmins sends ev to every admin stream.
func (b *Broker) PublishToAdmins(ctx context.Context, ev Event) {
	b.publish(ctx, Envelope{Target: TargetAdmins}, ev)
}

func (b *Broker) publish(ctx context.Context, env Envelope, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("encode realtime event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	env.Payload = payload

	b.mu.RLock()
	relay := b.relay
	b.mu.RUnlock()

	if relay != nil {
		err := relay.Publish(ctx, env)
		if err == nil {
			return
		}
		b.logger.Warn("relay publish failed, delivering locally", zap.String("type", ev.Type), zap.Error(err))
	}
	b.Deliver(env)
}

// Deliver writes env to the local subscribers it addresses. Write failures are logged and
// skipped; the connection's own handler unsubscribes it.
func (b *Broker) Deliver(env Envelope) {
	frame := Frame(env.Payload)

	b.mu.RLock()
	var targets []Subscriber
	switch env.Target {
	case TargetCustomer:
		targets = make([]Subscriber, 0, len(b.customers[env.CustomerID]))
		for _, sub := range b.customers[env.CustomerID] {
			targets = append(targets, sub)
		}
	case TargetAdmins:
		targets = make([]Subscriber, 0, len(b.admins))
		for _, sub := range b.admins {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if err := sub.Send(frame); err != nil {
			b.logger.Debug("realtime send failed",
				zap.String("subscriber", sub.ID()),
				zap.String("target", string(env.Target)),
				zap.Error(err))
			continue
		}
		delivered++
	}
	b.metrics.RecordPublished(string(env.Target), delivered, len(targets)-delivered)
}

// Frame renders a JSON payload as one server-sent-event data frame.
func Frame(payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	return frame
}
