package dto

import (
	"time"

	"github.com/spec-kit/repairdesk/internal/domain"
)

// PickupStatusRequest advances a pickup schedule.
type PickupStatusRequest struct {
	Status        domain.PickupStatus `json:"status" validate:"required,oneof=Pending Scheduled PickedUp Delivered"`
	AssignedStaff *string             `json:"assignedStaff" validate:"omitempty,max=120"`
	PickupNotes   *string             `json:"pickupNotes" validate:"omitempty,max=1000"`
}

// PickupResponse is the wire shape of a pickup schedule.
type PickupResponse struct {
	ID               string              `json:"id"`
	ServiceRequestID string              `json:"serviceRequestId"`
	Tier             domain.PickupTier   `json:"tier"`
	TierCost         float64             `json:"tierCost"`
	Status           domain.PickupStatus `json:"status"`
	ScheduledDate    *time.Time          `json:"scheduledDate"`
	PickupAddress    string              `json:"pickupAddress"`
	AssignedStaff    *string             `json:"assignedStaff"`
	PickupNotes      *string             `json:"pickupNotes"`
	PickedUpAt       *time.Time          `json:"pickedUpAt"`
	DeliveredAt      *time.Time          `json:"deliveredAt"`
	CreatedAt        time.Time           `json:"createdAt"`
}

// AssignTechnicianRequest names the staff member taking a job.
type AssignTechnicianRequest struct {
	StaffID string `json:"staffId" validate:"required"`
}

// JobTicketResponse is the wire shape of a job ticket.
type JobTicketResponse struct {
	ID               string             `json:"id"`
	ServiceRequestID *string            `json:"serviceRequestId"`
	Customer         string             `json:"customer"`
	CustomerPhone    *string            `json:"customerPhone"`
	CustomerAddress  *string            `json:"customerAddress"`
	Device           string             `json:"device"`
	SerialNumber     *string            `json:"serialNumber"`
	Issue            string             `json:"issue"`
	Status           domain.JobStatus   `json:"status"`
	Priority         domain.JobPriority `json:"priority"`
	Technician       string             `json:"technician"`
	ScreenSize       *string            `json:"screenSize"`
	Notes            *string            `json:"notes"`
	EstimatedCost    *float64           `json:"estimatedCost"`
	CreatedAt        time.Time          `json:"createdAt"`
	CompletedAt      *time.Time         `json:"completedAt"`
}
