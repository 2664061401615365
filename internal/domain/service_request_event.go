package domain

import "time"

// Actors recorded on timeline entries written by the system itself.
const (
	ActorSystem = "System"
	ActorAdmin  = "Admin"
)

// ServiceRequestEvent is an immutable timeline entry.
type ServiceRequestEvent struct {
	ID               string
	ServiceRequestID string
	Status           TrackingStatus
	Message          string
	Actor            string
	OccurredAt       time.Time
}
