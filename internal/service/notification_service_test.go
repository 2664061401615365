package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repairdesk/internal/config"
	"github.com/spec-kit/repairdesk/internal/events"
	"github.com/spec-kit/repairdesk/internal/realtime"
)

type publishedFrame struct {
	customerID string
	eventType  string
}

type fakePublisher struct {
	mu     sync.Mutex
	frames []publishedFrame
}

func (p *fakePublisher) PublishToCustomer(_ context.Context, customerID string, ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, publishedFrame{customerID: customerID, eventType: ev.Type})
}

func (p *fakePublisher) PublishToAdmins(_ context.Context, ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, publishedFrame{eventType: ev.Type})
}

func (p *fakePublisher) targets(eventType string) (customers []string, admins int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range p.frames {
		if f.eventType != eventType {
			continue
		}
		if f.customerID == "" {
			admins++
		} else {
			customers = append(customers, f.customerID)
		}
	}
	return customers, admins
}

func TestNotificationRouting(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	publisher := &fakePublisher{}
	NewNotificationService(dispatcher, publisher, nil, config.NotificationConfig{WebhookURL: "https://hooks.example"}).RegisterHandlers()

	ctx := context.Background()
	customer := "cust-1"
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventServiceRequestCreated, ServiceRequestID: "r1", CustomerID: &customer}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventServiceRequestUpdated, ServiceRequestID: "r1", CustomerID: &customer}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventQuoteAccepted, ServiceRequestID: "r2"}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventJobTicketCreated, ServiceRequestID: "r1", CustomerID: &customer}))

	customers, admins := publisher.targets(string(events.EventServiceRequestCreated))
	assert.Equal(t, []string{"cust-1"}, customers)
	assert.Equal(t, 1, admins)

	customers, admins = publisher.targets(string(events.EventServiceRequestUpdated))
	assert.Equal(t, []string{"cust-1"}, customers)
	assert.Equal(t, 1, admins)

	customers, admins = publisher.targets(string(events.EventQuoteAccepted))
	assert.Empty(t, customers, "unlinked requests only reach admins")
	assert.Equal(t, 1, admins)

	customers, admins = publisher.targets(string(events.EventJobTicketCreated))
	assert.Empty(t, customers)
	assert.Equal(t, 1, admins)
}

type frameSink struct {
	mu     sync.Mutex
	frames []string
}

func (s *frameSink) ID() string { return "sink" }

func (s *frameSink) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, string(frame))
	return nil
}

func TestNotificationReachesBrokerSubscribers(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	broker := realtime.NewBroker(nil, nil)
	NewNotificationService(dispatcher, broker, nil, config.NotificationConfig{}).RegisterHandlers()

	sink := &frameSink{}
	broker.SubscribeAdmin(sink)
	defer broker.UnsubscribeAdmin(sink)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:             events.EventPickupUpdated,
		ServiceRequestID: "r1",
		Payload:          events.PickupUpdatedPayload{PickupID: "p1", ServiceRequestID: "r1"},
	}))

	require.Len(t, sink.frames, 1)
	assert.Contains(t, sink.frames[0], `"type":"pickup_updated"`)
	assert.Contains(t, sink.frames[0], `"pickup_id":"p1"`)
}
