package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/repairdesk/internal/domain"
	"github.com/spec-kit/repairdesk/internal/repository"
	apperrors "github.com/spec-kit/repairdesk/pkg/util/errorutil"
)

// JobService exposes materialized job tickets to the back office.
type JobService struct {
	jobs   repository.JobTicketRepository
	staff  repository.StaffRepository
	logger *zap.Logger
}

// NewJobService constructs the service.
func NewJobService(jobs repository.JobTicketRepository, staff repository.StaffRepository, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{jobs: jobs, staff: staff, logger: logger}
}

// Get loads a job ticket.
func (s *JobService) Get(ctx context.Context, id string) (*domain.JobTicket, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("job ticket", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return job, nil
}

// AssignTechnician puts an active technician's name on the job.
func (s *JobService) AssignTechnician(ctx context.Context, id, staffID string) (*domain.JobTicket, error) {
	if strings.TrimSpace(staffID) == "" {
		return nil, apperrors.NewValidationError("technician is required", nil)
	}
	member, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff member", map[string]any{"id": staffID})
		}
		return nil, apperrors.MapError(err)
	}
	if !member.Active || member.Role != domain.StaffRoleTechnician {
		return nil, apperrors.NewValidationError("assignee must be an active technician",
			map[string]any{"staff_id": staffID, "role": member.Role})
	}

	if err := s.jobs.AssignTechnician(ctx, id, member.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("job ticket", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("technician assigned",
		zap.String("job_id", id),
		zap.String("staff_id", staffID))
	return s.Get(ctx, id)
}
