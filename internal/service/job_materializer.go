package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/repairdesk/internal/domain"
	"github.com/spec-kit/repairdesk/internal/repository"
	"github.com/spec-kit/repairdesk/internal/sequence"
)

// JobMaterializer turns a service request into a workshop job ticket exactly once.
type JobMaterializer struct {
	jobs      repository.JobTicketRepository
	generator *sequence.Generator
	now       func() time.Time
}

// NewJobMaterializer constructs the materializer.
func NewJobMaterializer(jobs repository.JobTicketRepository, generator *sequence.Generator, now func() time.Time) *JobMaterializer {
	if now == nil {
		now = time.Now
	}
	return &JobMaterializer{jobs: jobs, generator: generator, now: now}
}

// BuildJobTicket derives the job ticket fields from a request snapshot. It has no side
// effects, so a failed insert can be retried with the same input.
func BuildJobTicket(req *domain.ServiceRequest) domain.JobTicket {
	device := strings.TrimSpace(req.Brand)
	if req.ModelNumber != nil && strings.TrimSpace(*req.ModelNumber) != "" {
		device += " " + strings.TrimSpace(*req.ModelNumber)
	}
	requestID := req.ID
	phone := req.Phone

	job := domain.JobTicket{
		ServiceRequestID: &requestID,
		Customer:         req.CustomerName,
		CustomerAddress:  req.Address,
		Device:           device,
		Issue:            req.PrimaryIssue,
		Status:           domain.JobStatusInProgress,
		Priority:         domain.JobPriorityMedium,
		Technician:       domain.TechnicianUnassigned,
		ScreenSize:       req.ScreenSize,
		Notes:            req.Description,
		EstimatedCost:    req.QuoteAmount,
	}
	if phone != "" {
		job.CustomerPhone = &phone
	}
	return job
}

// Materialize mints a job id and persists the job while claiming the request's job slot.
// entry, when non-nil, is appended to the timeline in the same write with the job id
// formatted into its message. It returns repository.ErrAlreadyMaterialized when another
// call won the claim.
func (m *JobMaterializer) Materialize(ctx context.Context, req *domain.ServiceRequest, entry *domain.ServiceRequestEvent) (*domain.JobTicket, error) {
	job := BuildJobTicket(req)
	_, err := m.generator.Next(ctx, m.jobs, sequence.PrefixJob, sequence.YearPartition(m.now()),
		func(ctx context.Context, id string) error {
			job.ID = id
			var event *domain.ServiceRequestEvent
			if entry != nil {
				attempt := *entry
				attempt.Message = fmt.Sprintf(entry.Message, id)
				event = &attempt
			}
			return m.jobs.CreateForRequest(ctx, &job, event)
		})
	if err != nil {
		return nil, err
	}
	return &job, nil
}
