package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repairdesk/internal/domain"
	"github.com/spec-kit/repairdesk/internal/events"
	"github.com/spec-kit/repairdesk/internal/repository"
	apperrors "github.com/spec-kit/repairdesk/pkg/util/errorutil"
)

const (
	pickupAcceptedMsg    = "Our team is on the way to collect your TV."
	centerAcceptedMsg    = "Your service request has been queued. Please bring your TV to our service center."
	centerVisitMsgFormat = "Your visit is scheduled for %s. Please bring your TV to our service center."
	quoteDeclinedMsg     = "Quote declined by customer."
	quoteConvertedMsg    = "Quote accepted and converted to service request."
	visitDateLayout      = "Monday, January 2, 2006"
)

// QuoteService runs the quote sub-workflow on top of service requests.
type QuoteService struct {
	requests *ServiceRequestService
	repo     repository.ServiceRequestRepository
	validity time.Duration
	logger   *zap.Logger
}

// AcceptQuoteInput carries the customer's acceptance choices.
type AcceptQuoteInput struct {
	ServiceMode        domain.ServiceMode
	PickupTier         *domain.PickupTier
	Address            *string
	ScheduledVisitDate *time.Time
}

// NewQuoteService constructs the quote workflow. validity is how long a priced quote stays open.
func NewQuoteService(requests *ServiceRequestService, validity time.Duration, logger *zap.Logger) *QuoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validity <= 0 {
		validity = 7 * 24 * time.Hour
	}
	return &QuoteService{
		requests: requests,
		repo:     requests.requests,
		validity: validity,
		logger:   logger,
	}
}

// CreateQuoteRequest registers a request that starts in the quote workflow.
func (s *QuoteService) CreateQuoteRequest(ctx context.Context, input ServiceRequestCreateInput) (*domain.ServiceRequest, error) {
	input.RequestIntent = domain.IntentQuote
	return s.requests.Create(ctx, input)
}

// ListQuotes returns quote requests, optionally narrowed to one quote status.
func (s *QuoteService) ListQuotes(ctx context.Context, status *domain.QuoteStatus, limit, offset int) ([]domain.ServiceRequest, error) {
	isQuote := true
	return s.repo.List(ctx, repository.ServiceRequestFilter{
		IsQuote:     &isQuote,
		QuoteStatus: status,
		Limit:       limit,
		Offset:      offset,
	})
}

// PriceQuote records the operator's price and opens the validity window.
func (s *QuoteService) PriceQuote(ctx context.Context, id string, amount float64, notes *string, actor string) (*domain.ServiceRequest, error) {
	if amount <= 0 {
		return nil, apperrors.NewValidationError("quote amount must be greater than zero", map[string]any{"amount": amount})
	}
	req, err := s.loadQuote(ctx, id, domain.QuoteStatusPending)
	if err != nil {
		return nil, err
	}

	now := s.requests.now()
	expires := now.Add(s.validity)
	quoted := domain.QuoteStatusQuoted
	req.QuoteStatus = &quoted
	req.QuoteAmount = &amount
	req.QuoteNotes = notes
	req.QuotedAt = &now
	req.QuoteExpiresAt = &expires

	if err := s.apply(ctx, req, domain.QuoteStatusPending, nil, nil); err != nil {
		return nil, err
	}
	s.requests.publish(ctx, events.EventQuoteUpdated, req, actorOr(actor, domain.ActorAdmin),
		events.NewServiceRequestPayload(req, ""))
	return req, nil
}

// AcceptQuote accepts a priced quote. A pickup acceptance prices the tier and creates the
// pickup schedule in the same write.
func (s *QuoteService) AcceptQuote(ctx context.Context, id string, input AcceptQuoteInput) (*domain.ServiceRequest, error) {
	req, err := s.loadQuote(ctx, id, domain.QuoteStatusQuoted)
	if err != nil {
		return nil, err
	}
	now := s.requests.now()
	if req.QuoteExpiresAt != nil && now.After(*req.QuoteExpiresAt) {
		return nil, apperrors.NewPreconditionFailed("quote has expired",
			map[string]any{"quote_expires_at": req.QuoteExpiresAt})
	}
	if input.ServiceMode != req.ServiceMode {
		return nil, apperrors.NewValidationError("service mode cannot change after submission",
			map[string]any{"service_mode": req.ServiceMode, "requested": input.ServiceMode})
	}

	address := req.Address
	if input.Address != nil && strings.TrimSpace(*input.Address) != "" {
		trimmed := strings.TrimSpace(*input.Address)
		address = &trimmed
	}

	var (
		pickupCost float64
		schedule   *domain.PickupSchedule
		tracking   domain.TrackingStatus
		message    string
	)
	if req.ServiceMode == domain.ModePickup {
		if input.PickupTier == nil {
			return nil, apperrors.NewValidationError("pickup tier is required for home pickup", nil)
		}
		cost, ok := input.PickupTier.Cost()
		if !ok {
			return nil, apperrors.NewValidationError("invalid pickup tier", map[string]any{"pickupTier": *input.PickupTier})
		}
		if address == nil || strings.TrimSpace(*address) == "" {
			return nil, apperrors.NewValidationError("pickup address is required for home pickup", nil)
		}
		tier := *input.PickupTier
		pickupCost = cost
		req.PickupTier = &tier
		schedule = &domain.PickupSchedule{
			Tier:          tier,
			TierCost:      cost,
			Status:        domain.PickupStatusPending,
			ScheduledDate: input.ScheduledVisitDate,
			PickupAddress: *address,
		}
		tracking = domain.TrackingArrivingToReceive
		message = pickupAcceptedMsg
	} else {
		req.PickupTier = nil
		tracking = domain.TrackingQueued
		message = centerAcceptedMsg
		if input.ScheduledVisitDate != nil {
			message = fmt.Sprintf(centerVisitMsgFormat, input.ScheduledVisitDate.Format(visitDateLayout))
		}
	}

	quoteAmount := 0.0
	if req.QuoteAmount != nil {
		quoteAmount = *req.QuoteAmount
	}
	total := quoteAmount + pickupCost
	accepted := domain.QuoteStatusAccepted
	req.QuoteStatus = &accepted
	req.AcceptedAt = &now
	req.PickupCost = &pickupCost
	req.TotalAmount = &total
	req.Address = address
	req.ScheduledPickupDate = input.ScheduledVisitDate
	req.TrackingStatus = tracking

	if err := s.apply(ctx, req, domain.QuoteStatusQuoted, schedule, timelineEntry(tracking, message, domain.ActorSystem)); err != nil {
		return nil, err
	}
	s.requests.publish(ctx, events.EventQuoteAccepted, req, domain.ActorSystem, events.NewServiceRequestPayload(req, message))
	if schedule != nil {
		s.requests.dispatch(ctx, events.Event{
			Type:             events.EventPickupUpdated,
			ServiceRequestID: req.ID,
			CustomerID:       req.CustomerID,
			Actor:            domain.ActorSystem,
			Payload: events.PickupUpdatedPayload{
				PickupID:         schedule.ID,
				ServiceRequestID: req.ID,
				Status:           schedule.Status,
			},
		})
	}
	return req, nil
}

// DeclineQuote closes a priced quote at the customer's request.
func (s *QuoteService) DeclineQuote(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	req, err := s.loadQuote(ctx, id, domain.QuoteStatusQuoted)
	if err != nil {
		return nil, err
	}
	declined := domain.QuoteStatusDeclined
	req.QuoteStatus = &declined
	req.Status = domain.RequestStatusClosed
	req.TrackingStatus = domain.TrackingCancelled

	if err := s.apply(ctx, req, domain.QuoteStatusQuoted, nil, timelineEntry(domain.TrackingCancelled, quoteDeclinedMsg, domain.ActorSystem)); err != nil {
		return nil, err
	}
	s.requests.publish(ctx, events.EventQuoteDeclined, req, domain.ActorSystem, events.NewServiceRequestPayload(req, quoteDeclinedMsg))
	return req, nil
}

// ConvertToServiceRequest turns an accepted quote into a regular service request.
func (s *QuoteService) ConvertToServiceRequest(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	req, err := s.loadQuote(ctx, id, domain.QuoteStatusAccepted)
	if err != nil {
		return nil, err
	}
	converted := domain.QuoteStatusConverted
	req.QuoteStatus = &converted
	req.Status = domain.RequestStatusPending
	req.TrackingStatus = domain.TrackingRequestReceived

	if err := s.apply(ctx, req, domain.QuoteStatusAccepted, nil, timelineEntry(domain.TrackingRequestReceived, quoteConvertedMsg, domain.ActorSystem)); err != nil {
		return nil, err
	}
	s.requests.publish(ctx, events.EventQuoteConverted, req, domain.ActorSystem, events.NewServiceRequestPayload(req, quoteConvertedMsg))
	return req, nil
}

// ExpireStale marks priced quotes past their validity as Expired.
func (s *QuoteService) ExpireStale(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireQuotes(ctx, s.requests.now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.logger.Info("expired stale quotes", zap.Int64("count", expired))
	}
	return expired, nil
}

func (s *QuoteService) loadQuote(ctx context.Context, id string, expected domain.QuoteStatus) (*domain.ServiceRequest, error) {
	req, err := s.requests.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.IsQuote {
		return nil, apperrors.NewPreconditionFailed("service request is not a quote", map[string]any{"id": id})
	}
	if current := req.CurrentQuoteStatus(); current != expected {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("quote is %s; expected %s", current, expected),
			map[string]any{"current_quote_status": current, "required_quote_status": expected})
	}
	return req, nil
}

// apply persists the quote change, the optional pickup schedule and the optional timeline
// entry in one write.
func (s *QuoteService) apply(ctx context.Context, req *domain.ServiceRequest, expected domain.QuoteStatus, schedule *domain.PickupSchedule, entry *domain.ServiceRequestEvent) error {
	if err := s.repo.ApplyQuoteChange(ctx, req, expected, schedule, entry); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return apperrors.NewConflict("quote changed concurrently; reload and retry",
				map[string]any{"id": req.ID, "expected_quote_status": expected})
		}
		return apperrors.MapError(err)
	}
	req.UpdatedAt = s.requests.now()
	return nil
}

func actorOr(actor, fallback string) string {
	if strings.TrimSpace(actor) == "" {
		return fallback
	}
	return actor
}
