package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/repairdesk/internal/domain"
	"github.com/spec-kit/repairdesk/internal/events"
	"github.com/spec-kit/repairdesk/internal/repository"
	apperrors "github.com/spec-kit/repairdesk/pkg/util/errorutil"
)

const deliveredUpdateAttempts = 3

// PickupService manages home pickup schedules created by quote acceptance.
type PickupService struct {
	pickups  repository.PickupScheduleRepository
	requests *ServiceRequestService
	logger   *zap.Logger
}

// PickupUpdateInput carries an operator's pickup progress update.
type PickupUpdateInput struct {
	Status        domain.PickupStatus
	AssignedStaff *string
	PickupNotes   *string
}

// NewPickupService constructs the service.
func NewPickupService(pickups repository.PickupScheduleRepository, requests *ServiceRequestService, logger *zap.Logger) *PickupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PickupService{pickups: pickups, requests: requests, logger: logger}
}

// List returns schedules, optionally filtered by status.
func (s *PickupService) List(ctx context.Context, status *domain.PickupStatus, limit, offset int) ([]domain.PickupSchedule, error) {
	if status != nil && !status.Valid() {
		return nil, apperrors.NewValidationError("invalid pickup status", map[string]any{"status": *status})
	}
	return s.pickups.List(ctx, status, limit, offset)
}

// UpdateStatus advances a schedule. Statuses never move backwards; reaching Delivered also
// marks the service request Delivered.
func (s *PickupService) UpdateStatus(ctx context.Context, id string, input PickupUpdateInput, actor string) (*domain.PickupSchedule, error) {
	if !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid pickup status", map[string]any{"status": input.Status})
	}
	schedule, err := s.pickups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("pickup schedule", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if !schedule.Status.CanAdvanceTo(input.Status) {
		return nil, apperrors.NewInvalidTransition(
			"pickup status cannot move backwards",
			map[string]any{"current_status": schedule.Status, "attempted_status": input.Status})
	}

	now := s.requests.now()
	previous := schedule.Status
	schedule.Status = input.Status
	if input.AssignedStaff != nil {
		schedule.AssignedStaff = input.AssignedStaff
	}
	if input.PickupNotes != nil {
		schedule.PickupNotes = input.PickupNotes
	}
	if input.Status == domain.PickupStatusPickedUp && schedule.PickedUpAt == nil {
		schedule.PickedUpAt = &now
	}
	if input.Status == domain.PickupStatusDelivered && schedule.DeliveredAt == nil {
		schedule.DeliveredAt = &now
	}

	if err := s.pickups.Update(ctx, schedule, previous); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, apperrors.NewConflict("pickup schedule changed concurrently; reload and retry",
				map[string]any{"id": id, "expected_status": previous})
		}
		return nil, apperrors.MapError(err)
	}

	actor = actorOr(actor, domain.ActorAdmin)
	req, err := s.requests.load(ctx, schedule.ServiceRequestID)
	if err != nil {
		s.logger.Warn("pickup schedule without service request",
			zap.String("pickup_id", schedule.ID),
			zap.String("service_request_id", schedule.ServiceRequestID),
			zap.Error(err))
		return schedule, nil
	}

	if input.Status == domain.PickupStatusDelivered && previous != domain.PickupStatusDelivered {
		if err := s.markDelivered(ctx, req.ID, actor); err != nil {
			return nil, err
		}
	}

	s.requests.dispatch(ctx, events.Event{
		Type:             events.EventPickupUpdated,
		ServiceRequestID: req.ID,
		CustomerID:       req.CustomerID,
		Actor:            actor,
		Payload: events.PickupUpdatedPayload{
			PickupID:         schedule.ID,
			ServiceRequestID: req.ID,
			Status:           schedule.Status,
		},
	})
	return schedule, nil
}

// markDelivered sets the request's tracking status to Delivered, reapplying the update when
// a concurrent writer moved the request in between.
func (s *PickupService) markDelivered(ctx context.Context, requestID, actor string) error {
	delivered := domain.TrackingDelivered
	var err error
	for attempt := 0; attempt < deliveredUpdateAttempts; attempt++ {
		_, err = s.requests.Update(ctx, requestID, ServiceRequestUpdateInput{TrackingStatus: &delivered}, actor)
		if !errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		s.logger.Warn("service request changed while marking delivered, retrying",
			zap.String("service_request_id", requestID),
			zap.Int("attempt", attempt+1))
	}
	return err
}
