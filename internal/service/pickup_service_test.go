package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repairdesk/internal/domain"
	"github.com/spec-kit/repairdesk/internal/events"
	"github.com/spec-kit/repairdesk/internal/repository"
	apperrors "github.com/spec-kit/repairdesk/pkg/util/errorutil"
)

func (h *harness) acceptedPickup(t *testing.T) (*domain.ServiceRequest, domain.PickupSchedule) {
	t.Helper()
	ctx := context.Background()
	req := h.pricedQuote(t, domain.ModePickup, 1000)
	tier := domain.PickupTierEmergency
	accepted, err := h.quotes.AcceptQuote(ctx, req.ID, AcceptQuoteInput{ServiceMode: domain.ModePickup, PickupTier: &tier})
	require.NoError(t, err)
	pickups, err := h.pickups.List(ctx, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, pickups, 1)
	return accepted, pickups[0]
}

func TestPickupStatusProgression(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req, schedule := h.acceptedPickup(t)
	assert.Equal(t, 1000.0, schedule.TierCost)

	staffName := "Jamal"
	picked, err := h.pickups.UpdateStatus(ctx, schedule.ID, PickupUpdateInput{
		Status:        domain.PickupStatusPickedUp,
		AssignedStaff: &staffName,
	}, "Dispatcher")
	require.NoError(t, err)
	require.NotNil(t, picked.PickedUpAt)
	assert.Equal(t, testNow, *picked.PickedUpAt)
	assert.Equal(t, "Jamal", *picked.AssignedStaff)

	_, err = h.pickups.UpdateStatus(ctx, schedule.ID, PickupUpdateInput{Status: domain.PickupStatusScheduled}, "Dispatcher")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))

	delivered, err := h.pickups.UpdateStatus(ctx, schedule.ID, PickupUpdateInput{Status: domain.PickupStatusDelivered}, "Dispatcher")
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)

	stored, err := h.requests.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrackingDelivered, stored.TrackingStatus)

	timeline, err := h.requests.Timeline(ctx, req.ID)
	require.NoError(t, err)
	last := timeline[len(timeline)-1]
	assert.Equal(t, domain.TrackingDelivered, last.Status)
	assert.Equal(t, "Dispatcher", last.Actor)

	// accept + picked up + delivered
	assert.Equal(t, 3, h.recorder.count(events.EventPickupUpdated))
}

func TestPickupListFiltersByStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.acceptedPickup(t)

	pending := domain.PickupStatusPending
	list, err := h.pickups.List(ctx, &pending, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	delivered := domain.PickupStatusDelivered
	list, err = h.pickups.List(ctx, &delivered, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	bogus := domain.PickupStatus("Lost")
	_, err = h.pickups.List(ctx, &bogus, 0, 0)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestPickupUpdateUnknownSchedule(t *testing.T) {
	h := newHarness(t)
	_, err := h.pickups.UpdateStatus(context.Background(), "missing", PickupUpdateInput{Status: domain.PickupStatusScheduled}, "")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

// staleSchedules serves a fixed snapshot regardless of what has been written since.
type staleSchedules struct {
	repository.PickupScheduleRepository
	snapshot domain.PickupSchedule
}

func (r staleSchedules) GetByID(context.Context, string) (*domain.PickupSchedule, error) {
	copied := r.snapshot
	return &copied, nil
}

func TestPickupUpdateFromStaleSnapshotConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, schedule := h.acceptedPickup(t)

	_, err := h.pickups.UpdateStatus(ctx, schedule.ID, PickupUpdateInput{Status: domain.PickupStatusDelivered}, "Dispatcher")
	require.NoError(t, err)

	stale := NewPickupService(staleSchedules{h.store.Pickups(), schedule}, h.requests, nil)
	_, err = stale.UpdateStatus(ctx, schedule.ID, PickupUpdateInput{Status: domain.PickupStatusPickedUp}, "Dispatcher")
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	stored, err := h.store.Pickups().GetByID(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PickupStatusDelivered, stored.Status)

	err = h.store.Pickups().Update(ctx, &schedule, domain.PickupStatusPending)
	assert.ErrorIs(t, err, repository.ErrStaleState)
}

func TestDeliveredSurvivesConcurrentTransition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req, schedule := h.acceptedPickup(t)

	var fired atomic.Bool
	h.store.BeforeRequestWrite(func() {
		if fired.CompareAndSwap(false, true) {
			_, err := h.requests.Transition(ctx, req.ID, domain.StageAssessment, "Tech Desk")
			require.NoError(t, err)
		}
	})

	_, err := h.pickups.UpdateStatus(ctx, schedule.ID, PickupUpdateInput{Status: domain.PickupStatusDelivered}, "Dispatcher")
	require.NoError(t, err)
	require.True(t, fired.Load())

	stored, err := h.requests.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageAssessment, stored.Stage)
	assert.Equal(t, domain.TrackingDelivered, stored.TrackingStatus)
}
