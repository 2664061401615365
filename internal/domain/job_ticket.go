package domain

import "time"

// JobStatus enumerates work-order states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "Pending"
	JobStatusInProgress JobStatus = "In Progress"
	JobStatusCompleted  JobStatus = "Completed"
	JobStatusCancelled  JobStatus = "Cancelled"
)

// JobPriority enumerates work-order urgency.
type JobPriority string

const (
	JobPriorityLow    JobPriority = "Low"
	JobPriorityMedium JobPriority = "Medium"
	JobPriorityHigh   JobPriority = "High"
)

// TechnicianUnassigned is the placeholder technician on new jobs.
const TechnicianUnassigned = "Unassigned"

// JobTicket is the workshop work order materialized from a service request.
type JobTicket struct {
	ID               string
	ServiceRequestID *string
	Customer         string
	CustomerPhone    *string
	CustomerAddress  *string
	Device           string
	SerialNumber     *string
	Issue            string
	Status           JobStatus
	Priority         JobPriority
	Technician       string
	ScreenSize       *string
	Notes            *string
	EstimatedCost    *float64
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// HasTechnician reports whether a real technician is assigned.
func (j *JobTicket) HasTechnician() bool {
	return j.Technician != "" && j.Technician != TechnicianUnassigned
}
