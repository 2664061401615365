package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repairdesk/internal/api/dto"
	"github.com/spec-kit/repairdesk/internal/auth"
	"github.com/spec-kit/repairdesk/internal/domain"
	"github.com/spec-kit/repairdesk/internal/service"
)

// ServiceRequestsHandler exposes intake, tracking and staff lifecycle endpoints.
type ServiceRequestsHandler struct {
	requests *service.ServiceRequestService
}

// NewServiceRequestsHandler constructs handler.
func NewServiceRequestsHandler(requests *service.ServiceRequestService) *ServiceRequestsHandler {
	return &ServiceRequestsHandler{requests: requests}
}

// Create POST /service-requests.
func (h *ServiceRequestsHandler) Create(c *fiber.Ctx) error {
	var req dto.ServiceRequestCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := createInput(req)
	if input.RequestIntent == "" {
		input.RequestIntent = domain.IntentRepair
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		input.CustomerID = principal.CustomerID()
	}

	created, err := h.requests.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": serviceRequestResponse(created)})
}

// Track GET /track/:ticketNumber.
func (h *ServiceRequestsHandler) Track(c *fiber.Ctx) error {
	req, timeline, err := h.requests.Track(c.UserContext(), c.Params("ticketNumber"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": trackingResponse(req, timeline)})
}

// List GET /service-requests.
func (h *ServiceRequestsHandler) List(c *fiber.Ctx) error {
	var filter service.ServiceRequestListFilter
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Statuses = append(filter.Statuses, domain.RequestStatus(part))
			}
		}
	}
	if stage := c.Query("stage"); stage != "" {
		s := domain.Stage(stage)
		filter.Stage = &s
	}
	filter.IsQuote = parseBoolQuery(c, "is_quote")
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		filter.SearchTerm = &term
	}
	filter.Limit, filter.Offset = pagination(c)

	reqs, err := h.requests.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceRequestResponses(reqs)})
}

// Get GET /service-requests/:id.
func (h *ServiceRequestsHandler) Get(c *fiber.Ctx) error {
	req, err := h.requests.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceRequestResponse(req)})
}

// Update PATCH /service-requests/:id.
func (h *ServiceRequestsHandler) Update(c *fiber.Ctx) error {
	var req dto.ServiceRequestUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.requests.Update(c.UserContext(), c.Params("id"), service.ServiceRequestUpdateInput{
		Status:              req.Status,
		TrackingStatus:      req.TrackingStatus,
		PaymentStatus:       req.PaymentStatus,
		CustomerName:        req.CustomerName,
		Phone:               req.Phone,
		Address:             req.Address,
		Description:         req.Description,
		ScheduledPickupDate: req.ScheduledPickupDate,
	}, actorName(c, domain.ActorAdmin))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceRequestResponse(updated)})
}

// Events GET /service-requests/:id/events.
func (h *ServiceRequestsHandler) Events(c *fiber.Ctx) error {
	timeline, err := h.requests.Timeline(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponses(timeline)})
}

// NextStages GET /service-requests/:id/next-stages.
func (h *ServiceRequestsHandler) NextStages(c *fiber.Ctx) error {
	stages, err := h.requests.NextStages(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if stages == nil {
		stages = []domain.Stage{}
	}
	return c.JSON(dto.NextStagesResponse{Stages: stages})
}

// Transition POST /service-requests/:id/transition-stage.
func (h *ServiceRequestsHandler) Transition(c *fiber.Ctx) error {
	var req dto.StageTransitionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	actor := actorName(c, domain.ActorSystem)
	if req.ActorName != nil && strings.TrimSpace(*req.ActorName) != "" {
		actor = strings.TrimSpace(*req.ActorName)
	}

	result, err := h.requests.Transition(c.UserContext(), c.Params("id"), req.Stage, actor)
	if err != nil {
		return err
	}
	return c.JSON(dto.TransitionResponse{
		ServiceRequest: serviceRequestResponse(result.ServiceRequest),
		JobTicket:      jobTicketResponse(result.JobTicket),
	})
}

// ExpectedDates PUT /service-requests/:id/expected-dates.
func (h *ServiceRequestsHandler) ExpectedDates(c *fiber.Ctx) error {
	var req dto.ExpectedDatesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.requests.UpdateExpectedDates(c.UserContext(), c.Params("id"), service.ExpectedDatesInput{
		ExpectedPickupDate: req.ExpectedPickupDate,
		ExpectedReturnDate: req.ExpectedReturnDate,
		ExpectedReadyDate:  req.ExpectedReadyDate,
	}, actorName(c, domain.ActorAdmin))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceRequestResponse(updated)})
}

// CustomerList GET /customer/service-requests.
func (h *ServiceRequestsHandler) CustomerList(c *fiber.Ctx) error {
	user, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	reqs, err := h.requests.ListForCustomer(c.UserContext(), user.ID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceRequestResponses(reqs)})
}

// CustomerGet GET /customer/service-requests/:id.
func (h *ServiceRequestsHandler) CustomerGet(c *fiber.Ctx) error {
	user, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	req, err := h.requests.GetForCustomer(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}
	timeline, err := h.requests.Timeline(c.UserContext(), req.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"serviceRequest": serviceRequestResponse(req),
		"timeline":       eventResponses(timeline),
	}})
}

func createInput(req dto.ServiceRequestCreateRequest) service.ServiceRequestCreateInput {
	return service.ServiceRequestCreateInput{
		Brand:               req.Brand,
		ScreenSize:          req.ScreenSize,
		ModelNumber:         req.ModelNumber,
		PrimaryIssue:        req.PrimaryIssue,
		Symptoms:            req.Symptoms,
		Description:         req.Description,
		MediaURLs:           req.MediaURLs,
		CustomerName:        req.CustomerName,
		Phone:               req.Phone,
		Address:             req.Address,
		RequestIntent:       req.RequestIntent,
		ServiceMode:         req.ServiceMode,
		PickupTier:          req.PickupTier,
		ScheduledPickupDate: req.ScheduledPickupDate,
	}
}
