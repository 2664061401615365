package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repairdesk/internal/config"
	"github.com/spec-kit/repairdesk/internal/domain"
	"github.com/spec-kit/repairdesk/internal/events"
	"github.com/spec-kit/repairdesk/internal/observability"
	"github.com/spec-kit/repairdesk/internal/sequence"
	"github.com/spec-kit/repairdesk/internal/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *eventRecorder) count(eventType events.EventType) int {
	n := 0
	for _, t := range r.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

type harness struct {
	store    *testutil.Store
	clock    *fakeClock
	recorder *eventRecorder
	metrics  *observability.Metrics

	requests *ServiceRequestService
	quotes   *QuoteService
	pickups  *PickupService
	jobs     *JobService
	auth     *AuthService
	staff    *StaffService
}

var testNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := testutil.NewStore()
	clock := &fakeClock{now: testNow}
	recorder := &eventRecorder{}
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, recorder.handle)
	}

	generator := sequence.NewGenerator(sequence.DefaultMaxAttempts, nil)
	requests := NewServiceRequestService(ServiceRequestDependencies{
		RequestRepo:  store.ServiceRequests(),
		EventRepo:    store.Events(),
		JobRepo:      store.Jobs(),
		UserRepo:     store.Users(),
		Generator:    generator,
		Materializer: NewJobMaterializer(store.Jobs(), generator, clock.Now),
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Clock:        clock.Now,
	})

	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 15, BcryptCost: 4}}
	return &harness{
		store:    store,
		clock:    clock,
		recorder: recorder,
		metrics:  metrics,
		requests: requests,
		quotes:   NewQuoteService(requests, 7*24*time.Hour, nil),
		pickups:  NewPickupService(store.Pickups(), requests, nil),
		jobs:     NewJobService(store.Jobs(), store.Staff(), nil),
		auth:     NewAuthService(cfg, AuthDependencies{UserRepo: store.Users(), StaffRepo: store.Staff(), ServiceRequest: requests}),
		staff:    NewStaffService(cfg, store.Staff()),
	}
}

func repairInput(mode domain.ServiceMode) ServiceRequestCreateInput {
	address := "House 12, Road 5, Dhanmondi"
	return ServiceRequestCreateInput{
		Brand:         "Samsung",
		PrimaryIssue:  "No picture",
		CustomerName:  "Rahim Uddin",
		Phone:         "01711000000",
		Address:       &address,
		RequestIntent: domain.IntentRepair,
		ServiceMode:   mode,
	}
}

func (h *harness) create(t *testing.T, input ServiceRequestCreateInput) *domain.ServiceRequest {
	t.Helper()
	req, err := h.requests.Create(context.Background(), input)
	require.NoError(t, err)
	return req
}

func (h *harness) advance(t *testing.T, id string, stages ...domain.Stage) *TransitionResult {
	t.Helper()
	var result *TransitionResult
	for _, stage := range stages {
		var err error
		result, err = h.requests.Transition(context.Background(), id, stage, "Tech Desk")
		require.NoError(t, err, "transition to %s", stage)
	}
	return result
}
