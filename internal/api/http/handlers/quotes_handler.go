package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repairdesk/internal/api/dto"
	"github.com/spec-kit/repairdesk/internal/auth"
	"github.com/spec-kit/repairdesk/internal/domain"
	"github.com/spec-kit/repairdesk/internal/service"
)

// QuotesHandler exposes the quote sub-workflow.
type QuotesHandler struct {
	quotes *service.QuoteService
}

// NewQuotesHandler constructs handler.
func NewQuotesHandler(quotes *service.QuoteService) *QuotesHandler {
	return &QuotesHandler{quotes: quotes}
}

// Create POST /quotes.
func (h *QuotesHandler) Create(c *fiber.Ctx) error {
	var req dto.ServiceRequestCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := createInput(req)
	if principal, ok := auth.PrincipalFromContext(c); ok {
		input.CustomerID = principal.CustomerID()
	}
	created, err := h.quotes.CreateQuoteRequest(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": serviceRequestResponse(created)})
}

// Accept POST /quotes/:id/accept.
func (h *QuotesHandler) Accept(c *fiber.Ctx) error {
	var req dto.QuoteAcceptRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	accepted, err := h.quotes.AcceptQuote(c.UserContext(), c.Params("id"), service.AcceptQuoteInput{
		ServiceMode:        req.ServiceMode,
		PickupTier:         req.PickupTier,
		Address:            req.Address,
		ScheduledVisitDate: req.ScheduledVisitDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceRequestResponse(accepted)})
}

// Decline POST /quotes/:id/decline.
func (h *QuotesHandler) Decline(c *fiber.Ctx) error {
	declined, err := h.quotes.DeclineQuote(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceRequestResponse(declined)})
}

// Convert POST /quotes/:id/convert.
func (h *QuotesHandler) Convert(c *fiber.Ctx) error {
	converted, err := h.quotes.ConvertToServiceRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceRequestResponse(converted)})
}

// AdminList GET /admin/quotes.
func (h *QuotesHandler) AdminList(c *fiber.Ctx) error {
	var status *domain.QuoteStatus
	if val := c.Query("status"); val != "" {
		s := domain.QuoteStatus(val)
		status = &s
	}
	limit, offset := pagination(c)
	quotes, err := h.quotes.ListQuotes(c.UserContext(), status, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceRequestResponses(quotes)})
}

// Price PATCH /admin/quotes/:id/price.
func (h *QuotesHandler) Price(c *fiber.Ctx) error {
	var req dto.QuotePriceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	priced, err := h.quotes.PriceQuote(c.UserContext(), c.Params("id"), req.Amount, req.Notes, actorName(c, domain.ActorAdmin))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceRequestResponse(priced)})
}
