package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repairdesk/internal/domain"
	apperrors "github.com/spec-kit/repairdesk/pkg/util/errorutil"
)

func TestBuildJobTicketFromRequest(t *testing.T) {
	model := "UA43T5400"
	size := "43"
	description := "Screen went dark after a power cut"
	amount := 2500.0
	address := "Mirpur 10"
	req := &domain.ServiceRequest{
		ID:           "req-1",
		Brand:        "Samsung",
		ModelNumber:  &model,
		ScreenSize:   &size,
		PrimaryIssue: "No picture",
		Description:  &description,
		CustomerName: "Rahim",
		Phone:        "01711000000",
		Address:      &address,
		QuoteAmount:  &amount,
	}

	job := BuildJobTicket(req)
	assert.Equal(t, "Samsung UA43T5400", job.Device)
	assert.Equal(t, "No picture", job.Issue)
	assert.Equal(t, "Rahim", job.Customer)
	require.NotNil(t, job.CustomerPhone)
	assert.Equal(t, "01711000000", *job.CustomerPhone)
	assert.Equal(t, &address, job.CustomerAddress)
	assert.Equal(t, &description, job.Notes)
	assert.Equal(t, &amount, job.EstimatedCost)
	assert.Equal(t, &size, job.ScreenSize)
	require.NotNil(t, job.ServiceRequestID)
	assert.Equal(t, "req-1", *job.ServiceRequestID)
	assert.Equal(t, domain.JobStatusInProgress, job.Status)
	assert.Equal(t, domain.JobPriorityMedium, job.Priority)
	assert.Equal(t, domain.TechnicianUnassigned, job.Technician)
	assert.False(t, job.HasTechnician())
}

func TestAssignTechnicianValidatesAssignee(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := &domain.StaffMember{Role: domain.StaffRoleAdmin}
	req := h.create(t, repairInput(domain.ModePickup))
	result := h.advance(t, req.ID, domain.StagePickedUp)
	require.NotNil(t, result.JobTicket)

	manager, err := h.staff.CreateStaffMember(ctx, admin, "Nadia", "nadia@example.com", "secret123", domain.StaffRoleManager)
	require.NoError(t, err)
	_, err = h.jobs.AssignTechnician(ctx, result.JobTicket.ID, manager.ID)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = h.jobs.AssignTechnician(ctx, result.JobTicket.ID, "ghost")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	tech, err := h.staff.CreateStaffMember(ctx, admin, "Karim", "karim@example.com", "secret123", domain.StaffRoleTechnician)
	require.NoError(t, err)
	_, err = h.jobs.AssignTechnician(ctx, "JOB-2026-9999", tech.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	job, err := h.jobs.AssignTechnician(ctx, result.JobTicket.ID, tech.ID)
	require.NoError(t, err)
	assert.True(t, job.HasTechnician())

	fetched, err := h.jobs.Get(ctx, result.JobTicket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Karim", fetched.Technician)
}
