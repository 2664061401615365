package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/repairdesk/internal/domain"
	"github.com/spec-kit/repairdesk/internal/events"
	"github.com/spec-kit/repairdesk/internal/observability"
	"github.com/spec-kit/repairdesk/internal/repository"
	"github.com/spec-kit/repairdesk/internal/sequence"
	apperrors "github.com/spec-kit/repairdesk/pkg/util/errorutil"
)

const (
	creationMessage = "Your repair request has been received and is being reviewed."
	jobCreatedMsg   = "Job ticket %s has been created."
	legacyJobMsg    = "Converted to Job #%s. A technician will be assigned soon."
)

// ServiceRequestService runs the service request lifecycle: intake, stage transitions,
// timeline recording and job materialization.
type ServiceRequestService struct {
	requests       repository.ServiceRequestRepository
	timeline       repository.ServiceRequestEventRepository
	jobs           repository.JobTicketRepository
	users          repository.UserRepository
	generator      *sequence.Generator
	materializer   *JobMaterializer
	dispatcher     events.Dispatcher
	metrics        *observability.Metrics
	logger         *zap.Logger
	now            func() time.Time
	mediaRetention time.Duration
}

// ServiceRequestDependencies bundles collaborators for the service.
type ServiceRequestDependencies struct {
	RequestRepo    repository.ServiceRequestRepository
	EventRepo      repository.ServiceRequestEventRepository
	JobRepo        repository.JobTicketRepository
	UserRepo       repository.UserRepository
	Generator      *sequence.Generator
	Materializer   *JobMaterializer
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Clock          func() time.Time
	MediaRetention time.Duration
}

// ServiceRequestCreateInput describes an intake submission.
type ServiceRequestCreateInput struct {
	CustomerID          *string
	Brand               string
	ScreenSize          *string
	ModelNumber         *string
	PrimaryIssue        string
	Symptoms            *string
	Description         *string
	MediaURLs           []string
	CustomerName        string
	Phone               string
	Address             *string
	RequestIntent       domain.RequestIntent
	ServiceMode         domain.ServiceMode
	PickupTier          *domain.PickupTier
	ScheduledPickupDate *time.Time
}

// ServiceRequestUpdateInput is the generic operator update. Nil fields are left unchanged.
type ServiceRequestUpdateInput struct {
	Status              *domain.RequestStatus
	TrackingStatus      *domain.TrackingStatus
	PaymentStatus       *domain.PaymentStatus
	CustomerName        *string
	Phone               *string
	Address             *string
	Description         *string
	ScheduledPickupDate *time.Time
}

// ExpectedDatesInput carries the operator's delivery estimates.
type ExpectedDatesInput struct {
	ExpectedPickupDate *time.Time
	ExpectedReturnDate *time.Time
	ExpectedReadyDate  *time.Time
}

// ServiceRequestListFilter describes staff listing filters.
type ServiceRequestListFilter struct {
	Statuses   []domain.RequestStatus
	Stage      *domain.Stage
	IsQuote    *bool
	SearchTerm *string
	Limit      int
	Offset     int
}

// TransitionResult is the outcome of a stage transition.
type TransitionResult struct {
	ServiceRequest *domain.ServiceRequest
	JobTicket      *domain.JobTicket
}

// NewServiceRequestService constructs the service.
func NewServiceRequestService(deps ServiceRequestDependencies) *ServiceRequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	retention := deps.MediaRetention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &ServiceRequestService{
		requests:       deps.RequestRepo,
		timeline:       deps.EventRepo,
		jobs:           deps.JobRepo,
		users:          deps.UserRepo,
		generator:      deps.Generator,
		materializer:   deps.Materializer,
		dispatcher:     deps.Dispatcher,
		metrics:        deps.Metrics,
		logger:         logger,
		now:            now,
		mediaRetention: retention,
	}
}

// Create registers a new request, mints its ticket number and records the creation event.
func (s *ServiceRequestService) Create(ctx context.Context, input ServiceRequestCreateInput) (*domain.ServiceRequest, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	now := s.now()
	req := &domain.ServiceRequest{
		CustomerID:          input.CustomerID,
		Brand:               strings.TrimSpace(input.Brand),
		ScreenSize:          input.ScreenSize,
		ModelNumber:         input.ModelNumber,
		PrimaryIssue:        strings.TrimSpace(input.PrimaryIssue),
		Symptoms:            input.Symptoms,
		Description:         input.Description,
		MediaURLs:           input.MediaURLs,
		CustomerName:        strings.TrimSpace(input.CustomerName),
		Phone:               strings.TrimSpace(input.Phone),
		Address:             input.Address,
		RequestIntent:       input.RequestIntent,
		ServiceMode:         input.ServiceMode,
		Stage:               domain.StageIntake,
		TrackingStatus:      domain.TrackingRequestReceived,
		Status:              domain.RequestStatusPending,
		PaymentStatus:       domain.PaymentStatusDue,
		ScheduledPickupDate: input.ScheduledPickupDate,
	}
	if req.RequestIntent == domain.IntentQuote {
		pending := domain.QuoteStatusPending
		req.IsQuote = true
		req.QuoteStatus = &pending
		if req.ServiceMode == domain.ModePickup {
			req.PickupTier = input.PickupTier
		}
	}
	if len(req.MediaURLs) > 0 {
		expires := now.Add(s.mediaRetention)
		req.ExpiresAt = &expires
	}
	if req.CustomerID == nil {
		req.CustomerID = s.customerByPhone(ctx, req.Phone)
	}

	_, err := s.generator.Next(ctx, s.requests, sequence.PrefixServiceRequest, sequence.DayPartition(now),
		func(ctx context.Context, id string) error {
			req.TicketNumber = id
			return s.requests.Create(ctx, req, timelineEntry(domain.TrackingRequestReceived, creationMessage, domain.ActorSystem))
		})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventServiceRequestCreated, req, domain.ActorSystem,
		events.NewServiceRequestPayload(req, creationMessage))
	return req, nil
}

// Get loads one request.
func (s *ServiceRequestService) Get(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	return s.load(ctx, id)
}

// GetForCustomer loads a request owned by customerID.
func (s *ServiceRequestService) GetForCustomer(ctx context.Context, customerID, id string) (*domain.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CustomerID == nil || *req.CustomerID != customerID {
		return nil, apperrors.NewNotFound("service request", map[string]any{"id": id})
	}
	return req, nil
}

// Track looks a request up by its public ticket number and returns its timeline.
func (s *ServiceRequestService) Track(ctx context.Context, ticketNumber string) (*domain.ServiceRequest, []domain.ServiceRequestEvent, error) {
	req, err := s.requests.GetByTicketNumber(ctx, strings.ToUpper(strings.TrimSpace(ticketNumber)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("service request", map[string]any{"ticket_number": ticketNumber})
		}
		return nil, nil, apperrors.MapError(err)
	}
	timeline, err := s.timeline.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return req, timeline, nil
}

// List returns requests for staff.
func (s *ServiceRequestService) List(ctx context.Context, filter ServiceRequestListFilter) ([]domain.ServiceRequest, error) {
	return s.requests.List(ctx, repository.ServiceRequestFilter{
		Statuses:   filter.Statuses,
		Stage:      filter.Stage,
		IsQuote:    filter.IsQuote,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// ListForCustomer returns requests linked to customerID.
func (s *ServiceRequestService) ListForCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.ServiceRequest, error) {
	return s.requests.List(ctx, repository.ServiceRequestFilter{
		CustomerID: &customerID,
		Limit:      limit,
		Offset:     offset,
	})
}

// Timeline returns the request's events in chronological order.
func (s *ServiceRequestService) Timeline(ctx context.Context, id string) ([]domain.ServiceRequestEvent, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	timeline, err := s.timeline.ListByRequest(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return timeline, nil
}

// NextStages returns every stage strictly after the current one in the request's flow.
func (s *ServiceRequestService) NextStages(ctx context.Context, id string) ([]domain.Stage, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.StagesAfter(domain.ResolveFlow(req.RequestIntent, req.ServiceMode), req.Stage), nil
}

// Transition moves the request forward to target within its flow. Re-entering the current
// stage succeeds without recording anything, except that a job creation stage still
// retries a job ticket that was never materialized. Quote requests stay before the
// workshop stages until their quote is accepted.
func (s *ServiceRequestService) Transition(ctx context.Context, id string, target domain.Stage, actor string) (*TransitionResult, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(actor) == "" {
		actor = domain.ActorSystem
	}

	flow := domain.ResolveFlow(req.RequestIntent, req.ServiceMode)
	targetIdx := domain.StageIndex(flow, target)
	currentIdx := domain.StageIndex(flow, req.Stage)
	if targetIdx == -1 {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("stage %q is not part of this request's workflow", target),
			transitionDetails(flow, req.Stage, target))
	}
	if targetIdx == currentIdx {
		return s.reenter(ctx, req, flow, target, actor)
	}
	if targetIdx < currentIdx {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("cannot move from %q back to %q", req.Stage, target),
			transitionDetails(flow, req.Stage, target))
	}
	if err := quoteGate(req, flow, target); err != nil {
		return nil, err
	}

	step := domain.TimelineForStage(target)
	if err := s.checkTrackingPrecondition(ctx, req, step.Status); err != nil {
		return nil, err
	}

	entry := timelineEntry(step.Status, step.Message, actor)
	if err := s.requests.UpdateStage(ctx, req.ID, req.Stage, target, step.Status, entry); err != nil {
		if !errors.Is(err, repository.ErrStaleState) {
			return nil, apperrors.MapError(err)
		}
		// Another writer moved the request first. Landing on the same stage is a re-entry.
		fresh, loadErr := s.load(ctx, id)
		if loadErr != nil {
			return nil, loadErr
		}
		if fresh.Stage == target {
			return s.reenter(ctx, fresh, flow, target, actor)
		}
		return nil, apperrors.NewConflict("service request changed concurrently; reload and retry",
			map[string]any{"id": req.ID, "expected_stage": req.Stage, "current_stage": fresh.Stage})
	}
	req.Stage = target
	req.TrackingStatus = step.Status
	req.UpdatedAt = s.now()

	result := &TransitionResult{ServiceRequest: req}
	if domain.IsJobCreationStage(target) && !req.HasJob() {
		job, err := s.materialize(ctx, req, domain.TrackingReceived, jobCreatedMsg, actor)
		if err != nil {
			// The stage change is durable; re-entering the stage retries the job.
			s.logger.Error("job materialization failed",
				zap.String("service_request_id", req.ID),
				zap.String("stage", string(target)),
				zap.Error(err))
			s.publish(ctx, events.EventServiceRequestUpdated, req, actor, events.NewServiceRequestPayload(req, step.Message))
			return nil, err
		}
		result.JobTicket = job
	}

	s.publish(ctx, events.EventServiceRequestUpdated, req, actor, events.NewServiceRequestPayload(req, step.Message))
	return result, nil
}

// reenter handles a transition to the stage the request already holds.
func (s *ServiceRequestService) reenter(ctx context.Context, req *domain.ServiceRequest, flow []domain.Stage, target domain.Stage, actor string) (*TransitionResult, error) {
	result := &TransitionResult{ServiceRequest: req}
	if !domain.IsJobCreationStage(target) || req.HasJob() {
		return result, nil
	}
	if err := quoteGate(req, flow, target); err != nil {
		return nil, err
	}
	job, err := s.materialize(ctx, req, domain.TrackingReceived, jobCreatedMsg, actor)
	if err != nil {
		return nil, err
	}
	if job != nil {
		result.JobTicket = job
		s.publish(ctx, events.EventServiceRequestUpdated, req, actor,
			events.NewServiceRequestPayload(req, domain.TimelineForStage(target).Message))
	}
	return result, nil
}

// quoteGate keeps a quote request out of the stages past awaiting_customer until the
// quote is accepted. Declined and expired quotes accept no further stage.
func quoteGate(req *domain.ServiceRequest, flow []domain.Stage, target domain.Stage) error {
	if !req.IsQuote {
		return nil
	}
	status := req.CurrentQuoteStatus()
	switch status {
	case domain.QuoteStatusAccepted, domain.QuoteStatusConverted:
		return nil
	case domain.QuoteStatusDeclined, domain.QuoteStatusExpired:
		return apperrors.NewPreconditionFailed(
			fmt.Sprintf("quote is %s; the request cannot move to %s", status, target),
			map[string]any{"quote_status": status, "attempted_stage": target})
	}
	gate := domain.StageIndex(flow, domain.StageAwaitingCustomer)
	if gate != -1 && domain.StageIndex(flow, target) > gate {
		return apperrors.NewPreconditionFailed(
			fmt.Sprintf("quote is %s; it must be %s before moving to %s", status, domain.QuoteStatusAccepted, target),
			map[string]any{
				"quote_status":          status,
				"required_quote_status": domain.QuoteStatusAccepted,
				"attempted_stage":       target,
			})
	}
	return nil
}

// Update applies the generic operator update. Setting status Converted materializes the
// job ticket once; a tracking status change is recorded on the timeline. Only the fields
// present in input are written, and lifecycle fields only while the request still holds
// the stage and statuses they were checked against.
func (s *ServiceRequestService) Update(ctx context.Context, id string, input ServiceRequestUpdateInput, actor string) (*domain.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(actor) == "" {
		actor = domain.ActorAdmin
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
	}
	if input.TrackingStatus != nil && !domain.ValidTrackingStatus(*input.TrackingStatus) {
		return nil, apperrors.NewValidationError("invalid tracking status", map[string]any{"tracking_status": *input.TrackingStatus})
	}
	if input.PaymentStatus != nil && *input.PaymentStatus != domain.PaymentStatusDue && *input.PaymentStatus != domain.PaymentStatusPaid {
		return nil, apperrors.NewValidationError("invalid payment status", map[string]any{"payment_status": *input.PaymentStatus})
	}

	trackingChanged := input.TrackingStatus != nil && *input.TrackingStatus != req.TrackingStatus
	if trackingChanged {
		if err := s.checkTrackingPrecondition(ctx, req, *input.TrackingStatus); err != nil {
			return nil, err
		}
	}

	var job *domain.JobTicket
	if input.Status != nil && *input.Status == domain.RequestStatusConverted && !req.HasJob() {
		job, err = s.materialize(ctx, req, req.TrackingStatus, legacyJobMsg, actor)
		if err != nil {
			return nil, err
		}
	}

	patch := repository.ServiceRequestPatch{
		PaymentStatus:       input.PaymentStatus,
		Address:             input.Address,
		Description:         input.Description,
		ScheduledPickupDate: input.ScheduledPickupDate,
		CustomerName:        trimmedOrNil(input.CustomerName),
		Phone:               trimmedOrNil(input.Phone),
	}
	if input.Status != nil && *input.Status != domain.RequestStatusConverted {
		patch.Status = input.Status
	}
	var entry *domain.ServiceRequestEvent
	message := ""
	if trackingChanged {
		patch.TrackingStatus = input.TrackingStatus
		message = domain.TrackingMessage(*input.TrackingStatus)
		entry = timelineEntry(*input.TrackingStatus, message, actor)
	}
	if patch.TrackingStatus != nil || patch.Status != nil {
		patch.Expected = &repository.ServiceRequestState{
			Stage:          req.Stage,
			TrackingStatus: req.TrackingStatus,
			Status:         req.Status,
		}
	}

	if err := s.requests.Patch(ctx, req.ID, patch, entry); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, apperrors.NewConflict("service request changed concurrently; reload and retry",
				map[string]any{"id": req.ID, "expected_stage": req.Stage, "expected_tracking_status": req.TrackingStatus})
		}
		return nil, s.mapLoadError(err, id)
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if job != nil || trackingChanged || input.Status != nil || input.PaymentStatus != nil {
		s.publish(ctx, events.EventServiceRequestUpdated, updated, actor, events.NewServiceRequestPayload(updated, message))
	}
	return updated, nil
}

// UpdateExpectedDates records the operator's pickup, return and ready estimates.
func (s *ServiceRequestService) UpdateExpectedDates(ctx context.Context, id string, input ExpectedDatesInput, actor string) (*domain.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requests.UpdateExpectedDates(ctx, req.ID, input.ExpectedPickupDate, input.ExpectedReturnDate, input.ExpectedReadyDate); err != nil {
		return nil, s.mapLoadError(err, id)
	}
	req.ExpectedPickupDate = input.ExpectedPickupDate
	req.ExpectedReturnDate = input.ExpectedReturnDate
	req.ExpectedReadyDate = input.ExpectedReadyDate
	s.publish(ctx, events.EventServiceRequestUpdated, req, actor, events.NewServiceRequestPayload(req, ""))
	return req, nil
}

// LinkCustomer attaches unowned requests whose phone matches to customerID.
func (s *ServiceRequestService) LinkCustomer(ctx context.Context, customerID, phone string) (int64, error) {
	linked, err := s.requests.LinkCustomerByPhone(ctx, customerID, phone)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if linked > 0 {
		s.logger.Info("linked service requests to customer",
			zap.String("customer_id", customerID),
			zap.Int64("count", linked))
	}
	return linked, nil
}

// PurgeExpiredMedia clears media references past their retention.
func (s *ServiceRequestService) PurgeExpiredMedia(ctx context.Context) (int64, error) {
	return s.requests.PurgeExpiredMedia(ctx, s.now())
}

// checkTrackingPrecondition guards statuses that need outside state. "Technician Assigned"
// requires a materialized job with a real technician; every path that sets a tracking
// status goes through here.
func (s *ServiceRequestService) checkTrackingPrecondition(ctx context.Context, req *domain.ServiceRequest, status domain.TrackingStatus) error {
	if status != domain.TrackingTechnicianAssigned {
		return nil
	}
	if !req.HasJob() {
		return apperrors.NewPreconditionFailed(
			"Cannot set 'Technician Assigned' - request must be converted to a job first",
			map[string]any{"tracking_status": status})
	}
	job, err := s.jobs.GetByID(ctx, *req.ConvertedJobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewPreconditionFailed(
				"Cannot set 'Technician Assigned' - job ticket not found",
				map[string]any{"job_id": *req.ConvertedJobID})
		}
		return apperrors.MapError(err)
	}
	if !job.HasTechnician() {
		return apperrors.NewPreconditionFailed(
			"Cannot set 'Technician Assigned' - please assign a technician to the job first",
			map[string]any{"job_id": job.ID})
	}
	return nil
}

// materialize creates the job ticket for req together with its timeline entry. messageFormat
// takes the job id. Losing the claim to a concurrent call is not an error: req is refreshed
// and no job is returned.
func (s *ServiceRequestService) materialize(ctx context.Context, req *domain.ServiceRequest, status domain.TrackingStatus, messageFormat, actor string) (*domain.JobTicket, error) {
	job, err := s.materializer.Materialize(ctx, req, timelineEntry(status, messageFormat, actor))
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyMaterialized) {
			if fresh, loadErr := s.requests.GetByID(ctx, req.ID); loadErr == nil {
				req.ConvertedJobID = fresh.ConvertedJobID
				req.Status = fresh.Status
			}
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}

	req.ConvertedJobID = &job.ID
	req.Status = domain.RequestStatusConverted
	s.metrics.RecordJobMaterialized()

	s.dispatch(ctx, events.Event{
		Type:             events.EventJobTicketCreated,
		ServiceRequestID: req.ID,
		CustomerID:       req.CustomerID,
		Actor:            actor,
		Payload: events.JobTicketCreatedPayload{
			JobID:            job.ID,
			ServiceRequestID: req.ID,
			TicketNumber:     req.TicketNumber,
			Customer:         job.Customer,
			Device:           job.Device,
		},
	})
	return job, nil
}

func timelineEntry(status domain.TrackingStatus, message, actor string) *domain.ServiceRequestEvent {
	return &domain.ServiceRequestEvent{Status: status, Message: message, Actor: actor}
}

func trimmedOrNil(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func (s *ServiceRequestService) publish(ctx context.Context, eventType events.EventType, req *domain.ServiceRequest, actor string, payload events.ServiceRequestPayload) {
	s.dispatch(ctx, events.Event{
		Type:             eventType,
		ServiceRequestID: req.ID,
		CustomerID:       req.CustomerID,
		Actor:            actor,
		Payload:          payload,
	})
}

func (s *ServiceRequestService) dispatch(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now().UTC()
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *ServiceRequestService) customerByPhone(ctx context.Context, phone string) *string {
	if s.users == nil || domain.NormalizePhone(phone) == "" {
		return nil
	}
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("customer lookup by phone failed", zap.Error(err))
		}
		return nil
	}
	id := user.ID
	return &id
}

func (s *ServiceRequestService) load(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapLoadError(err, id)
	}
	return req, nil
}

func (s *ServiceRequestService) mapLoadError(err error, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("service request", map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

func transitionDetails(flow []domain.Stage, current, target domain.Stage) map[string]any {
	return map[string]any{
		"attempted_stage":   target,
		"current_stage":     current,
		"valid_next_stages": domain.StagesAfter(flow, current),
	}
}

func validateCreateInput(input ServiceRequestCreateInput) error {
	missing := []string{}
	if strings.TrimSpace(input.Brand) == "" {
		missing = append(missing, "brand")
	}
	if strings.TrimSpace(input.PrimaryIssue) == "" {
		missing = append(missing, "primaryIssue")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		missing = append(missing, "customerName")
	}
	if strings.TrimSpace(input.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if !input.RequestIntent.Valid() {
		return apperrors.NewValidationError("invalid request intent", map[string]any{"requestIntent": input.RequestIntent})
	}
	if !input.ServiceMode.Valid() {
		return apperrors.NewValidationError("invalid service mode", map[string]any{"serviceMode": input.ServiceMode})
	}
	if input.PickupTier != nil {
		if _, ok := input.PickupTier.Cost(); !ok {
			return apperrors.NewValidationError("invalid pickup tier", map[string]any{"pickupTier": *input.PickupTier})
		}
	}
	return nil
}
