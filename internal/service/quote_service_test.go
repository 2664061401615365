package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repairdesk/internal/domain"
	"github.com/spec-kit/repairdesk/internal/events"
	apperrors "github.com/spec-kit/repairdesk/pkg/util/errorutil"
)

func quoteInput(mode domain.ServiceMode) ServiceRequestCreateInput {
	input := repairInput(mode)
	input.RequestIntent = ""
	return input
}

func (h *harness) pricedQuote(t *testing.T, mode domain.ServiceMode, amount float64) *domain.ServiceRequest {
	t.Helper()
	ctx := context.Background()
	req, err := h.quotes.CreateQuoteRequest(ctx, quoteInput(mode))
	require.NoError(t, err)
	priced, err := h.quotes.PriceQuote(ctx, req.ID, amount, nil, "Admin")
	require.NoError(t, err)
	return priced
}

func TestCreateQuoteRequestStartsPending(t *testing.T) {
	h := newHarness(t)
	req, err := h.quotes.CreateQuoteRequest(context.Background(), quoteInput(domain.ModePickup))
	require.NoError(t, err)

	assert.True(t, req.IsQuote)
	assert.Equal(t, domain.IntentQuote, req.RequestIntent)
	assert.Equal(t, domain.QuoteStatusPending, req.CurrentQuoteStatus())

	next, err := h.requests.NextStages(context.Background(), req.ID)
	require.NoError(t, err)
	assert.NotContains(t, next, domain.StageAwaitingDropoff)
	assert.Contains(t, next, domain.StageAwaitingCustomer)
}

func TestPriceQuoteOpensValidityWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req, err := h.quotes.CreateQuoteRequest(ctx, quoteInput(domain.ModeServiceCenter))
	require.NoError(t, err)

	_, err = h.quotes.PriceQuote(ctx, req.ID, 0, nil, "Admin")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	notes := "Replace T-CON board"
	priced, err := h.quotes.PriceQuote(ctx, req.ID, 1800, &notes, "Admin")
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusQuoted, priced.CurrentQuoteStatus())
	require.NotNil(t, priced.QuoteExpiresAt)
	assert.Equal(t, testNow.Add(7*24*time.Hour), *priced.QuoteExpiresAt)
	assert.Equal(t, 1, h.recorder.count(events.EventQuoteUpdated))

	_, err = h.quotes.PriceQuote(ctx, req.ID, 1900, nil, "Admin")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
}

func TestAcceptPriorityPickupQuote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.pricedQuote(t, domain.ModePickup, 2000)

	tier := domain.PickupTierPriority
	accepted, err := h.quotes.AcceptQuote(ctx, req.ID, AcceptQuoteInput{
		ServiceMode: domain.ModePickup,
		PickupTier:  &tier,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.QuoteStatusAccepted, accepted.CurrentQuoteStatus())
	require.NotNil(t, accepted.PickupCost)
	require.NotNil(t, accepted.TotalAmount)
	assert.Equal(t, 500.0, *accepted.PickupCost)
	assert.Equal(t, 2500.0, *accepted.TotalAmount)
	assert.Equal(t, domain.TrackingArrivingToReceive, accepted.TrackingStatus)
	require.NotNil(t, accepted.AcceptedAt)

	pickups, err := h.pickups.List(ctx, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, pickups, 1)
	assert.Equal(t, 500.0, pickups[0].TierCost)
	assert.Equal(t, domain.PickupStatusPending, pickups[0].Status)
	assert.Equal(t, domain.PickupTierPriority, pickups[0].Tier)
	assert.Equal(t, "House 12, Road 5, Dhanmondi", pickups[0].PickupAddress)
	assert.Equal(t, req.ID, pickups[0].ServiceRequestID)

	timeline, err := h.requests.Timeline(ctx, req.ID)
	require.NoError(t, err)
	last := timeline[len(timeline)-1]
	assert.Equal(t, domain.TrackingArrivingToReceive, last.Status)
	assert.Equal(t, "Our team is on the way to collect your TV.", last.Message)
	assert.Equal(t, 1, h.recorder.count(events.EventQuoteAccepted))

	_, err = h.quotes.AcceptQuote(ctx, req.ID, AcceptQuoteInput{ServiceMode: domain.ModePickup, PickupTier: &tier})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
	assert.Equal(t, 1, h.store.PickupCount())
}

func TestAcceptServiceCenterQuoteMentionsVisitDate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.pricedQuote(t, domain.ModeServiceCenter, 1200)
	visit := time.Date(2026, 10, 22, 11, 0, 0, 0, time.UTC)
	tier := domain.PickupTierEmergency

	accepted, err := h.quotes.AcceptQuote(ctx, req.ID, AcceptQuoteInput{
		ServiceMode:        domain.ModeServiceCenter,
		PickupTier:         &tier,
		ScheduledVisitDate: &visit,
	})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, *accepted.TotalAmount)
	assert.Equal(t, 0.0, *accepted.PickupCost)
	assert.Nil(t, accepted.PickupTier)
	assert.Equal(t, domain.TrackingQueued, accepted.TrackingStatus)
	assert.Equal(t, 0, h.store.PickupCount())

	timeline, err := h.requests.Timeline(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t,
		"Your visit is scheduled for Thursday, October 22, 2026. Please bring your TV to our service center.",
		timeline[len(timeline)-1].Message)
}

func TestAcceptQuoteGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pending, err := h.quotes.CreateQuoteRequest(ctx, quoteInput(domain.ModePickup))
	require.NoError(t, err)
	_, err = h.quotes.AcceptQuote(ctx, pending.ID, AcceptQuoteInput{ServiceMode: domain.ModePickup})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))

	priced := h.pricedQuote(t, domain.ModePickup, 900)
	_, err = h.quotes.AcceptQuote(ctx, priced.ID, AcceptQuoteInput{ServiceMode: domain.ModeServiceCenter})
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "mode cannot change")

	_, err = h.quotes.AcceptQuote(ctx, priced.ID, AcceptQuoteInput{ServiceMode: domain.ModePickup})
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "tier required for pickup")

	h.clock.Advance(8 * 24 * time.Hour)
	tier := domain.PickupTierRegular
	_, err = h.quotes.AcceptQuote(ctx, priced.ID, AcceptQuoteInput{ServiceMode: domain.ModePickup, PickupTier: &tier})
	assert.True(t, errors.Is(err, apperrors.ErrPreconditionFailed))

	repair := h.create(t, repairInput(domain.ModePickup))
	_, err = h.quotes.DeclineQuote(ctx, repair.ID)
	assert.True(t, errors.Is(err, apperrors.ErrPreconditionFailed))
}

func TestDeclineQuoteIsTerminal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.pricedQuote(t, domain.ModePickup, 1500)

	declined, err := h.quotes.DeclineQuote(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusDeclined, declined.CurrentQuoteStatus())
	assert.Equal(t, domain.RequestStatusClosed, declined.Status)

	timeline, err := h.requests.Timeline(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrackingCancelled, timeline[len(timeline)-1].Status)

	tier := domain.PickupTierRegular
	_, err = h.quotes.AcceptQuote(ctx, req.ID, AcceptQuoteInput{ServiceMode: domain.ModePickup, PickupTier: &tier})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
	_, err = h.quotes.ConvertToServiceRequest(ctx, req.ID)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
}

func TestConvertAcceptedQuote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.pricedQuote(t, domain.ModeServiceCenter, 700)

	_, err := h.quotes.ConvertToServiceRequest(ctx, req.ID)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))

	_, err = h.quotes.AcceptQuote(ctx, req.ID, AcceptQuoteInput{ServiceMode: domain.ModeServiceCenter})
	require.NoError(t, err)

	converted, err := h.quotes.ConvertToServiceRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusConverted, converted.CurrentQuoteStatus())
	assert.Equal(t, domain.RequestStatusPending, converted.Status)
	assert.Equal(t, domain.TrackingRequestReceived, converted.TrackingStatus)

	timeline, err := h.requests.Timeline(ctx, req.ID)
	require.NoError(t, err)
	last := timeline[len(timeline)-1]
	assert.Equal(t, "Quote accepted and converted to service request.", last.Message)
	assert.Equal(t, domain.ActorSystem, last.Actor)
	assert.Equal(t, 1, h.recorder.count(events.EventQuoteConverted))
}

func TestConcurrentAcceptsCreateOneSchedule(t *testing.T) {
	h := newHarness(t)
	req := h.pricedQuote(t, domain.ModePickup, 2000)
	tier := domain.PickupTierRegular

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.quotes.AcceptQuote(context.Background(), req.ID, AcceptQuoteInput{ServiceMode: domain.ModePickup, PickupTier: &tier})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, h.store.PickupCount())
}

func TestExpireStaleQuotes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	stale := h.pricedQuote(t, domain.ModePickup, 1000)

	expired, err := h.quotes.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	h.clock.Advance(7*24*time.Hour + time.Minute)
	expired, err = h.quotes.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	status := domain.QuoteStatusExpired
	quotes, err := h.quotes.ListQuotes(ctx, &status, 0, 0)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, stale.ID, quotes[0].ID)
}

func (h *harness) acceptedQuote(t *testing.T, mode domain.ServiceMode) *domain.ServiceRequest {
	t.Helper()
	req := h.pricedQuote(t, mode, 1500)
	input := AcceptQuoteInput{ServiceMode: mode}
	if mode == domain.ModePickup {
		tier := domain.PickupTierRegular
		input.PickupTier = &tier
	}
	accepted, err := h.quotes.AcceptQuote(context.Background(), req.ID, input)
	require.NoError(t, err)
	return accepted
}

func TestDeclinedQuoteCannotEnterJobStages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.pricedQuote(t, domain.ModePickup, 1500)
	_, err := h.quotes.DeclineQuote(ctx, req.ID)
	require.NoError(t, err)

	for _, stage := range []domain.Stage{domain.StagePickedUp, domain.StageAssessment} {
		_, err = h.requests.Transition(ctx, req.ID, stage, "Tech Desk")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrPreconditionFailed), "stage %s", stage)
		assert.Contains(t, err.Error(), string(domain.QuoteStatusDeclined))
	}

	stored, err := h.requests.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageIntake, stored.Stage)
	assert.Equal(t, domain.RequestStatusClosed, stored.Status)
	assert.Equal(t, 0, h.store.JobCount())
}

func TestExpiredQuoteCannotEnterJobStages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.pricedQuote(t, domain.ModeServiceCenter, 800)
	h.clock.Advance(8 * 24 * time.Hour)
	_, err := h.quotes.ExpireStale(ctx)
	require.NoError(t, err)

	_, err = h.requests.Transition(ctx, req.ID, domain.StageDeviceReceived, "Tech Desk")
	assert.True(t, errors.Is(err, apperrors.ErrPreconditionFailed))
	assert.Equal(t, 0, h.store.JobCount())
}

func TestUnacceptedQuoteStopsAtAwaitingCustomer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req, err := h.quotes.CreateQuoteRequest(ctx, quoteInput(domain.ModeServiceCenter))
	require.NoError(t, err)

	_, err = h.requests.Transition(ctx, req.ID, domain.StageDeviceReceived, "Tech Desk")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPreconditionFailed))
	assert.Contains(t, err.Error(), string(domain.QuoteStatusAccepted))

	h.advance(t, req.ID, domain.StageAssessment, domain.StageAwaitingCustomer)
	_, err = h.quotes.PriceQuote(ctx, req.ID, 900, nil, "Admin")
	require.NoError(t, err)

	_, err = h.requests.Transition(ctx, req.ID, domain.StageAuthorized, "Tech Desk")
	assert.True(t, errors.Is(err, apperrors.ErrPreconditionFailed), "a Quoted request still waits for the customer")

	stored, err := h.requests.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageAwaitingCustomer, stored.Stage)
	assert.Equal(t, 0, h.store.JobCount())
}

func TestAcceptedQuoteMovesIntoJobStages(t *testing.T) {
	h := newHarness(t)
	req := h.acceptedQuote(t, domain.ModePickup)

	result := h.advance(t, req.ID, domain.StageAuthorized, domain.StagePickupScheduled, domain.StagePickedUp)
	require.NotNil(t, result.JobTicket)
	assert.Equal(t, 1, h.store.JobCount())
	assert.Equal(t, domain.RequestStatusConverted, result.ServiceRequest.Status)
}

func TestDeclineRolledBackWhenTimelineWriteFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.pricedQuote(t, domain.ModePickup, 1500)
	before := h.store.EventCount(req.ID)

	h.store.FailEventInserts(errors.New("disk full"))
	_, err := h.quotes.DeclineQuote(ctx, req.ID)
	require.Error(t, err)

	stored, err := h.requests.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusQuoted, stored.CurrentQuoteStatus())
	assert.NotEqual(t, domain.RequestStatusClosed, stored.Status)
	assert.Equal(t, before, h.store.EventCount(req.ID))
	assert.Equal(t, 0, h.recorder.count(events.EventQuoteDeclined))
}
