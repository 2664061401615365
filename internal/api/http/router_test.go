package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/repairdesk/internal/api/http/handlers"
	"github.com/spec-kit/repairdesk/internal/auth"
	"github.com/spec-kit/repairdesk/internal/config"
	"github.com/spec-kit/repairdesk/internal/events"
	"github.com/spec-kit/repairdesk/internal/observability"
	"github.com/spec-kit/repairdesk/internal/realtime"
	"github.com/spec-kit/repairdesk/internal/sequence"
	"github.com/spec-kit/repairdesk/internal/service"
	"github.com/spec-kit/repairdesk/internal/testutil"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app         *fiber.App
	store       *testutil.Store
	broker      *realtime.Broker
	auth        *service.AuthService
	streamCtx   context.Context
	stopStreams context.CancelFunc
}

func newTestServer(t *testing.T, redis handlers.Pinger) *testServer {
	t.Helper()
	store := testutil.NewStore()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	broker := realtime.NewBroker(logger, metrics)
	dispatcher := events.NewInMemoryDispatcher(logger)
	generator := sequence.NewGenerator(sequence.DefaultMaxAttempts, logger)
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "router-secret", AccessTokenTTLMinutes: 15, BcryptCost: 4}}

	requests := service.NewServiceRequestService(service.ServiceRequestDependencies{
		RequestRepo:  store.ServiceRequests(),
		EventRepo:    store.Events(),
		JobRepo:      store.Jobs(),
		UserRepo:     store.Users(),
		Generator:    generator,
		Materializer: service.NewJobMaterializer(store.Jobs(), generator, time.Now),
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	quotes := service.NewQuoteService(requests, 7*24*time.Hour, logger)
	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:       store.Users(),
		StaffRepo:      store.Staff(),
		ServiceRequest: requests,
		Logger:         logger,
	})
	service.NewNotificationService(dispatcher, broker, logger, config.NotificationConfig{}).RegisterHandlers()

	streamCtx, stopStreams := context.WithCancel(context.Background())
	t.Cleanup(stopStreams)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{Timeout: 5 * time.Second, AllowedOrigins: []string{"*"}})
	RegisterRoutes(app, RouteConfig{
		Health:          handlers.NewHealthHandler("repairdesk", "test", fakePinger{}, redis, metrics, broker),
		ServiceRequests: handlers.NewServiceRequestsHandler(requests),
		Quotes:          handlers.NewQuotesHandler(quotes),
		Pickups:         handlers.NewPickupsHandler(service.NewPickupService(store.Pickups(), requests, logger)),
		Jobs:            handlers.NewJobsHandler(service.NewJobService(store.Jobs(), store.Staff(), logger)),
		Streams:         handlers.NewStreamsHandler(streamCtx, broker, 8, time.Minute, logger),
		Customers:       handlers.NewCustomersHandler(authService),
		Staff:           handlers.NewStaffHandler(authService, service.NewStaffService(cfg, store.Staff())),
		AuthMiddleware:  auth.NewAuthMiddleware(authService.TokenManager(), store.Users(), store.Staff()),
	})

	return &testServer{app: app, store: store, broker: broker, auth: authService, streamCtx: streamCtx, stopStreams: stopStreams}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *testServer) staffToken(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.auth.EnsureBootstrapAdmin(ctx, "admin@shop.example", "changeme1"))
	_, token, _, err := s.auth.LoginStaff(ctx, "admin@shop.example", "changeme1")
	require.NoError(t, err)
	return token
}

func (s *testServer) customerToken(t *testing.T, phone string) (string, string) {
	t.Helper()
	user, token, _, err := s.auth.RegisterCustomer(context.Background(), service.RegisterCustomerInput{
		Name: "Rahim", Email: "rahim@example.com", Phone: phone, Password: "secret123",
	})
	require.NoError(t, err)
	return user.ID, token
}

func intakeBody(mode string) map[string]any {
	return map[string]any{
		"brand":        "Sony",
		"modelNumber":  "KD-55X80K",
		"primaryIssue": "Lines on screen",
		"customerName": "Rahim Uddin",
		"phone":        "01711000000",
		"address":      "House 12, Road 5, Dhanmondi",
		"serviceMode":  mode,
	}
}

func dataOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data envelope: %v", body)
	return data
}

func errorOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error envelope: %v", body)
	return errBody
}

var ticketPattern = regexp.MustCompile(`^SRV-\d{8}-\d{4}$`)

func TestCreateAndTrackServiceRequest(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	status, body := s.do(t, http.MethodPost, "/service-requests", "", intakeBody("service_center"))
	require.Equal(t, http.StatusCreated, status, body)
	created := dataOf(t, body)
	ticket, _ := created["ticketNumber"].(string)
	assert.Regexp(t, ticketPattern, ticket)
	assert.Equal(t, "repair", created["requestIntent"])
	assert.Equal(t, "intake", created["stage"])
	assert.Nil(t, created["customerId"])

	status, body = s.do(t, http.MethodGet, "/track/"+ticket, "", nil)
	require.Equal(t, http.StatusOK, status, body)
	tracked := dataOf(t, body)
	assert.Equal(t, "Request Received", tracked["trackingStatus"])
	timeline, _ := tracked["timeline"].([]any)
	assert.Len(t, timeline, 1)

	status, body = s.do(t, http.MethodGet, "/track/SRV-20000101-9999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorOf(t, body)["code"])
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	payload := intakeBody("teleport")
	delete(payload, "brand")

	status, body := s.do(t, http.MethodPost, "/service-requests", "", payload)
	require.Equal(t, http.StatusBadRequest, status)
	errBody := errorOf(t, body)
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
	details, _ := errBody["details"].(map[string]any)
	fields, _ := details["fields"].(map[string]any)
	assert.Contains(t, fields, "brand")
	assert.Contains(t, fields, "serviceMode")
}

func TestCreateWithCustomerTokenLinksRequest(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	customerID, token := s.customerToken(t, "01999000000")

	status, body := s.do(t, http.MethodPost, "/service-requests", token, intakeBody("pickup"))
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, customerID, dataOf(t, body)["customerId"])

	status, body = s.do(t, http.MethodGet, "/customer/service-requests", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	list, _ := body["data"].([]any)
	assert.Len(t, list, 1)

	status, _ = s.do(t, http.MethodPost, "/service-requests", "garbage", intakeBody("pickup"))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestStaffRoutesRequireStaffToken(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	status, body := s.do(t, http.MethodGet, "/service-requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorOf(t, body)["code"])

	_, customerToken := s.customerToken(t, "01999000000")
	status, body = s.do(t, http.MethodGet, "/service-requests", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorOf(t, body)["code"])

	status, body = s.do(t, http.MethodGet, "/service-requests", s.staffToken(t), nil)
	assert.Equal(t, http.StatusOK, status, body)
}

func TestTransitionStageEndpoint(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	token := s.staffToken(t)

	_, body := s.do(t, http.MethodPost, "/service-requests", "", intakeBody("pickup"))
	id := dataOf(t, body)["id"].(string)

	status, body := s.do(t, http.MethodGet, "/service-requests/"+id+"/next-stages", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	stages, _ := body["stages"].([]any)
	assert.Equal(t, "assessment", stages[0])
	assert.NotContains(t, stages, "awaiting_dropoff")

	status, body = s.do(t, http.MethodPost, "/service-requests/"+id+"/transition-stage", token,
		map[string]any{"stage": "picked_up", "actorName": "Jamal"})
	require.Equal(t, http.StatusOK, status, body)
	moved, _ := body["serviceRequest"].(map[string]any)
	assert.Equal(t, "picked_up", moved["stage"])
	assert.Equal(t, "Received", moved["trackingStatus"])
	job, _ := body["jobTicket"].(map[string]any)
	require.NotNil(t, job)
	assert.Regexp(t, `^JOB-\d{4}-\d{4}$`, job["id"])
	assert.Equal(t, "Unassigned", job["technician"])

	status, body = s.do(t, http.MethodGet, "/admin/jobs/"+job["id"].(string), token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Sony KD-55X80K", dataOf(t, body)["device"])

	status, body = s.do(t, http.MethodPost, "/service-requests/"+id+"/transition-stage", token,
		map[string]any{"stage": "assessment"})
	require.Equal(t, http.StatusBadRequest, status)
	errBody := errorOf(t, body)
	assert.Equal(t, "INVALID_TRANSITION", errBody["code"])
	details, _ := errBody["details"].(map[string]any)
	assert.Equal(t, "assessment", details["attempted_stage"])
	assert.Equal(t, "picked_up", details["current_stage"])

	status, body = s.do(t, http.MethodGet, "/service-requests/"+id+"/events", token, nil)
	require.Equal(t, http.StatusOK, status)
	timeline, _ := body["data"].([]any)
	// creation, stage entry, job creation
	assert.Len(t, timeline, 3)
	assert.Equal(t, 1, s.store.JobCount())
}

func TestPatchTechnicianAssignedRequiresTechnician(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	token := s.staffToken(t)
	_, body := s.do(t, http.MethodPost, "/service-requests", "", intakeBody("service_center"))
	id := dataOf(t, body)["id"].(string)

	status, body := s.do(t, http.MethodPatch, "/service-requests/"+id, token,
		map[string]any{"trackingStatus": "Technician Assigned"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "PRECONDITION_FAILED", errorOf(t, body)["code"])

	status, body = s.do(t, http.MethodPatch, "/service-requests/"+id, token,
		map[string]any{"paymentStatus": "Paid"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Paid", dataOf(t, body)["paymentStatus"])
}

func TestQuoteLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	token := s.staffToken(t)

	status, body := s.do(t, http.MethodPost, "/quotes", "", intakeBody("pickup"))
	require.Equal(t, http.StatusCreated, status, body)
	quote := dataOf(t, body)
	id := quote["id"].(string)
	assert.Equal(t, true, quote["isQuote"])
	assert.Equal(t, "Pending", quote["quoteStatus"])

	status, body = s.do(t, http.MethodPatch, "/admin/quotes/"+id+"/price", token, map[string]any{"amount": 0})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorOf(t, body)["code"])

	status, body = s.do(t, http.MethodPatch, "/admin/quotes/"+id+"/price", token, map[string]any{"amount": 2000})
	require.Equal(t, http.StatusOK, status, body)

	status, body = s.do(t, http.MethodPost, "/quotes/"+id+"/accept", "",
		map[string]any{"serviceMode": "pickup", "pickupTier": "Priority"})
	require.Equal(t, http.StatusOK, status, body)
	accepted := dataOf(t, body)
	assert.Equal(t, "Accepted", accepted["quoteStatus"])
	assert.Equal(t, 500.0, accepted["pickupCost"])
	assert.Equal(t, 2500.0, accepted["totalAmount"])

	status, body = s.do(t, http.MethodGet, "/admin/pickups?status=Pending", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	pickups, _ := body["data"].([]any)
	require.Len(t, pickups, 1)
	pickup := pickups[0].(map[string]any)

	status, body = s.do(t, http.MethodPatch, "/admin/pickups/"+pickup["id"].(string)+"/status", token,
		map[string]any{"status": "Delivered"})
	require.Equal(t, http.StatusOK, status, body)

	status, body = s.do(t, http.MethodGet, "/service-requests/"+id, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Delivered", dataOf(t, body)["trackingStatus"])

	status, body = s.do(t, http.MethodPost, "/quotes/"+id+"/decline", "", nil)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_TRANSITION", errorOf(t, body)["code"])
}

func TestCustomerEventStream(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	customerID, token := s.customerToken(t, "01999000000")
	s.stopStreams()

	req := httptest.NewRequest(http.MethodGet, "/customer/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `data: {"type":"connected"}`)
	assert.Zero(t, s.broker.CustomerConnections(customerID), "stream unsubscribes on exit")
	assert.Zero(t, s.broker.CustomerKeys())

	status, _ := s.do(t, http.MethodGet, "/admin/events", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, fakePinger{err: errors.New("connection refused")})

	status, body := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	details, _ := errorOf(t, body)["details"].(map[string]any)
	assert.Equal(t, "ok", details["postgres"])
	assert.Equal(t, "connection refused", details["redis"])

	status, body = s.do(t, http.MethodGet, "/health/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, dataOf(t, body), "counters")
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	status, body := s.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorOf(t, body)["code"])
}
