package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repairdesk/internal/api/dto"
	"github.com/spec-kit/repairdesk/internal/domain"
	"github.com/spec-kit/repairdesk/internal/service"
)

// PickupsHandler exposes pickup schedule administration.
type PickupsHandler struct {
	pickups *service.PickupService
}

// NewPickupsHandler constructs handler.
func NewPickupsHandler(pickups *service.PickupService) *PickupsHandler {
	return &PickupsHandler{pickups: pickups}
}

// List GET /admin/pickups.
func (h *PickupsHandler) List(c *fiber.Ctx) error {
	var status *domain.PickupStatus
	if val := c.Query("status"); val != "" {
		s := domain.PickupStatus(val)
		status = &s
	}
	limit, offset := pagination(c)
	schedules, err := h.pickups.List(c.UserContext(), status, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.PickupResponse, 0, len(schedules))
	for i := range schedules {
		items = append(items, pickupResponse(&schedules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateStatus PATCH /admin/pickups/:id/status.
func (h *PickupsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.PickupStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.pickups.UpdateStatus(c.UserContext(), c.Params("id"), service.PickupUpdateInput{
		Status:        req.Status,
		AssignedStaff: req.AssignedStaff,
		PickupNotes:   req.PickupNotes,
	}, actorName(c, domain.ActorAdmin))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pickupResponse(updated)})
}

// JobsHandler exposes job ticket lookups and technician assignment.
type JobsHandler struct {
	jobs *service.JobService
}

// NewJobsHandler constructs handler.
func NewJobsHandler(jobs *service.JobService) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// Get GET /admin/jobs/:id.
func (h *JobsHandler) Get(c *fiber.Ctx) error {
	job, err := h.jobs.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": jobTicketResponse(job)})
}

// AssignTechnician PATCH /admin/jobs/:id/technician.
func (h *JobsHandler) AssignTechnician(c *fiber.Ctx) error {
	var req dto.AssignTechnicianRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	job, err := h.jobs.AssignTechnician(c.UserContext(), c.Params("id"), req.StaffID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": jobTicketResponse(job)})
}
