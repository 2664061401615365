package events

import (
	"time"

	"github.com/spec-kit/repairdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventServiceRequestCreated EventType = "service_request_created"
	EventServiceRequestUpdated EventType = "service_request_updated"
	EventJobTicketCreated      EventType = "job_ticket_created"
	EventQuoteUpdated          EventType = "quote_updated"
	EventQuoteAccepted         EventType = "quote_accepted"
	EventQuoteDeclined         EventType = "quote_declined"
	EventQuoteConverted        EventType = "quote_converted"
	EventPickupUpdated         EventType = "pickup_updated"
)

// AllEventTypes lists every type services publish.
var AllEventTypes = []EventType{
	EventServiceRequestCreated,
	EventServiceRequestUpdated,
	EventJobTicketCreated,
	EventQuoteUpdated,
	EventQuoteAccepted,
	EventQuoteDeclined,
	EventQuoteConverted,
	EventPickupUpdated,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID               string      `json:"id"`
	Type             EventType   `json:"type"`
	ServiceRequestID string      `json:"service_request_id"`
	CustomerID       *string     `json:"customer_id,omitempty"`
	Actor            string      `json:"actor"`
	Timestamp        time.Time   `json:"timestamp"`
	Payload          interface{} `json:"payload"`
}

// ServiceRequestPayload carries the request snapshot after a change.
type ServiceRequestPayload struct {
	ID             string                `json:"id"`
	TicketNumber   string                `json:"ticket_number"`
	Stage          domain.Stage          `json:"stage"`
	TrackingStatus domain.TrackingStatus `json:"tracking_status"`
	Status         domain.RequestStatus  `json:"status"`
	QuoteStatus    *domain.QuoteStatus   `json:"quote_status,omitempty"`
	Message        string                `json:"message,omitempty"`
}

// JobTicketCreatedPayload payload.
type JobTicketCreatedPayload struct {
	JobID            string `json:"job_id"`
	ServiceRequestID string `json:"service_request_id"`
	TicketNumber     string `json:"ticket_number"`
	Customer         string `json:"customer"`
	Device           string `json:"device"`
}

// PickupUpdatedPayload payload.
type PickupUpdatedPayload struct {
	PickupID         string              `json:"pickup_id"`
	ServiceRequestID string              `json:"service_request_id"`
	Status           domain.PickupStatus `json:"status"`
}

// NewServiceRequestPayload snapshots req.
func NewServiceRequestPayload(req *domain.ServiceRequest, message string) ServiceRequestPayload {
	return ServiceRequestPayload{
		ID:             req.ID,
		TicketNumber:   req.TicketNumber,
		Stage:          req.Stage,
		TrackingStatus: req.TrackingStatus,
		Status:         req.Status,
		QuoteStatus:    req.QuoteStatus,
		Message:        message,
	}
}
