package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/repairdesk/internal/config"
	"github.com/spec-kit/repairdesk/internal/events"
	"github.com/spec-kit/repairdesk/internal/realtime"
)

// RealtimePublisher is the part of the broker the notification service needs.
type RealtimePublisher interface {
	PublishToCustomer(ctx context.Context, customerID string, ev realtime.Event)
	PublishToAdmins(ctx context.Context, ev realtime.Event)
}

// NotificationService forwards domain events to realtime subscribers and outbound stubs.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  RealtimePublisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, publisher RealtimePublisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventServiceRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventJobTicketCreated, n.handleJobTicketCreated)
	for _, eventType := range []events.EventType{
		events.EventServiceRequestUpdated,
		events.EventQuoteUpdated,
		events.EventQuoteAccepted,
		events.EventQuoteDeclined,
		events.EventQuoteConverted,
		events.EventPickupUpdated,
	} {
		n.dispatcher.Subscribe(eventType, n.handleRequestChanged)
	}
}

func (n *NotificationService) handleRequestCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceRequestCreated", zap.String("service_request_id", event.ServiceRequestID))
	n.toAdmins(ctx, event)
	n.toCustomer(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRequestChanged(ctx context.Context, event events.Event) error {
	n.logger.Debug("ServiceRequestChanged",
		zap.String("service_request_id", event.ServiceRequestID),
		zap.String("event_type", string(event.Type)))
	n.toCustomer(ctx, event)
	n.toAdmins(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleJobTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("JobTicketCreated", zap.String("service_request_id", event.ServiceRequestID), zap.Any("payload", event.Payload))
	n.toAdmins(ctx, event)
	return nil
}

func (n *NotificationService) toCustomer(ctx context.Context, event events.Event) {
	if n.publisher == nil || event.CustomerID == nil || *event.CustomerID == "" {
		return
	}
	n.publisher.PublishToCustomer(ctx, *event.CustomerID, realtimeEvent(event))
}

func (n *NotificationService) toAdmins(ctx context.Context, event events.Event) {
	if n.publisher == nil {
		return
	}
	n.publisher.PublishToAdmins(ctx, realtimeEvent(event))
}

func realtimeEvent(event events.Event) realtime.Event {
	return realtime.Event{
		Type:      string(event.Type),
		Data:      event.Payload,
		Timestamp: event.Timestamp,
	}
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("service_request_id", event.ServiceRequestID),
		zap.String("event_type", string(event.Type)))
}
