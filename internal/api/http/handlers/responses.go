package handlers

import (
	"github.com/spec-kit/repairdesk/internal/api/dto"
	"github.com/spec-kit/repairdesk/internal/domain"
)

func serviceRequestResponse(req *domain.ServiceRequest) dto.ServiceRequestResponse {
	mediaURLs := req.MediaURLs
	if mediaURLs == nil {
		mediaURLs = []string{}
	}
	return dto.ServiceRequestResponse{
		ID:                  req.ID,
		TicketNumber:        req.TicketNumber,
		CustomerID:          req.CustomerID,
		Brand:               req.Brand,
		ScreenSize:          req.ScreenSize,
		ModelNumber:         req.ModelNumber,
		PrimaryIssue:        req.PrimaryIssue,
		Symptoms:            req.Symptoms,
		Description:         req.Description,
		MediaURLs:           mediaURLs,
		ExpiresAt:           req.ExpiresAt,
		CustomerName:        req.CustomerName,
		Phone:               req.Phone,
		Address:             req.Address,
		RequestIntent:       req.RequestIntent,
		ServiceMode:         req.ServiceMode,
		Stage:               req.Stage,
		TrackingStatus:      req.TrackingStatus,
		Status:              req.Status,
		PaymentStatus:       req.PaymentStatus,
		IsQuote:             req.IsQuote,
		QuoteStatus:         req.QuoteStatus,
		QuoteAmount:         req.QuoteAmount,
		QuoteNotes:          req.QuoteNotes,
		QuotedAt:            req.QuotedAt,
		QuoteExpiresAt:      req.QuoteExpiresAt,
		AcceptedAt:          req.AcceptedAt,
		PickupTier:          req.PickupTier,
		PickupCost:          req.PickupCost,
		TotalAmount:         req.TotalAmount,
		ScheduledPickupDate: req.ScheduledPickupDate,
		ExpectedPickupDate:  req.ExpectedPickupDate,
		ExpectedReturnDate:  req.ExpectedReturnDate,
		ExpectedReadyDate:   req.ExpectedReadyDate,
		ConvertedJobID:      req.ConvertedJobID,
		CreatedAt:           req.CreatedAt,
		UpdatedAt:           req.UpdatedAt,
	}
}

func serviceRequestResponses(reqs []domain.ServiceRequest) []dto.ServiceRequestResponse {
	items := make([]dto.ServiceRequestResponse, 0, len(reqs))
	for i := range reqs {
		items = append(items, serviceRequestResponse(&reqs[i]))
	}
	return items
}

func eventResponses(events []domain.ServiceRequestEvent) []dto.EventResponse {
	items := make([]dto.EventResponse, 0, len(events))
	for _, ev := range events {
		items = append(items, dto.EventResponse{
			ID:         ev.ID,
			Status:     ev.Status,
			Message:    ev.Message,
			Actor:      ev.Actor,
			OccurredAt: ev.OccurredAt,
		})
	}
	return items
}

func trackingResponse(req *domain.ServiceRequest, timeline []domain.ServiceRequestEvent) dto.TrackingResponse {
	return dto.TrackingResponse{
		TicketNumber:       req.TicketNumber,
		Brand:              req.Brand,
		ModelNumber:        req.ModelNumber,
		PrimaryIssue:       req.PrimaryIssue,
		ServiceMode:        req.ServiceMode,
		Stage:              req.Stage,
		TrackingStatus:     req.TrackingStatus,
		QuoteStatus:        req.QuoteStatus,
		ExpectedReadyDate:  req.ExpectedReadyDate,
		ExpectedReturnDate: req.ExpectedReturnDate,
		CreatedAt:          req.CreatedAt,
		Timeline:           eventResponses(timeline),
	}
}

func jobTicketResponse(job *domain.JobTicket) *dto.JobTicketResponse {
	if job == nil {
		return nil
	}
	return &dto.JobTicketResponse{
		ID:               job.ID,
		ServiceRequestID: job.ServiceRequestID,
		Customer:         job.Customer,
		CustomerPhone:    job.CustomerPhone,
		CustomerAddress:  job.CustomerAddress,
		Device:           job.Device,
		SerialNumber:     job.SerialNumber,
		Issue:            job.Issue,
		Status:           job.Status,
		Priority:         job.Priority,
		Technician:       job.Technician,
		ScreenSize:       job.ScreenSize,
		Notes:            job.Notes,
		EstimatedCost:    job.EstimatedCost,
		CreatedAt:        job.CreatedAt,
		CompletedAt:      job.CompletedAt,
	}
}

func pickupResponse(p *domain.PickupSchedule) dto.PickupResponse {
	return dto.PickupResponse{
		ID:               p.ID,
		ServiceRequestID: p.ServiceRequestID,
		Tier:             p.Tier,
		TierCost:         p.TierCost,
		Status:           p.Status,
		ScheduledDate:    p.ScheduledDate,
		PickupAddress:    p.PickupAddress,
		AssignedStaff:    p.AssignedStaff,
		PickupNotes:      p.PickupNotes,
		PickedUpAt:       p.PickedUpAt,
		DeliveredAt:      p.DeliveredAt,
		CreatedAt:        p.CreatedAt,
	}
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:        staff.ID,
		Name:      staff.Name,
		Email:     staff.Email,
		Role:      staff.Role,
		Active:    staff.Active,
		CreatedAt: staff.CreatedAt,
	}
}

func customerResponse(user *domain.User) dto.CustomerResponse {
	return dto.CustomerResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
	}
}
