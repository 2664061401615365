package dto

import (
	"time"

	"github.com/spec-kit/repairdesk/internal/domain"
)

// ServiceRequestCreateRequest is the public intake form.
type ServiceRequestCreateRequest struct {
	Brand               string               `json:"brand" validate:"required,max=100"`
	ScreenSize          *string              `json:"screenSize" validate:"omitempty,max=20"`
	ModelNumber         *string              `json:"modelNumber" validate:"omitempty,max=100"`
	PrimaryIssue        string               `json:"primaryIssue" validate:"required,max=200"`
	Symptoms            *string              `json:"symptoms"`
	Description         *string              `json:"description"`
	MediaURLs           []string             `json:"mediaUrls" validate:"omitempty,max=10,dive,url"`
	CustomerName        string               `json:"customerName" validate:"required,max=120"`
	Phone               string               `json:"phone" validate:"required,min=6,max=20"`
	Address             *string              `json:"address"`
	RequestIntent       domain.RequestIntent `json:"requestIntent" validate:"omitempty,oneof=quote repair"`
	ServiceMode         domain.ServiceMode   `json:"serviceMode" validate:"required,oneof=pickup service_center"`
	PickupTier          *domain.PickupTier   `json:"pickupTier" validate:"omitempty,oneof=Regular Priority Emergency"`
	ScheduledPickupDate *time.Time           `json:"scheduledPickupDate"`
}

// ServiceRequestUpdateRequest is the generic staff PATCH body.
type ServiceRequestUpdateRequest struct {
	Status              *domain.RequestStatus  `json:"status" validate:"omitempty,oneof=Pending Reviewed Converted Closed"`
	TrackingStatus      *domain.TrackingStatus `json:"trackingStatus"`
	PaymentStatus       *domain.PaymentStatus  `json:"paymentStatus" validate:"omitempty,oneof=Due Paid"`
	CustomerName        *string                `json:"customerName" validate:"omitempty,max=120"`
	Phone               *string                `json:"phone" validate:"omitempty,min=6,max=20"`
	Address             *string                `json:"address"`
	Description         *string                `json:"description"`
	ScheduledPickupDate *time.Time             `json:"scheduledPickupDate"`
}

// StageTransitionRequest moves a request to a later stage of its workflow.
type StageTransitionRequest struct {
	Stage     domain.Stage `json:"stage" validate:"required"`
	ActorName *string      `json:"actorName" validate:"omitempty,max=120"`
}

// ExpectedDatesRequest sets the dates promised to the customer.
type ExpectedDatesRequest struct {
	ExpectedPickupDate *time.Time `json:"expectedPickupDate"`
	ExpectedReturnDate *time.Time `json:"expectedReturnDate"`
	ExpectedReadyDate  *time.Time `json:"expectedReadyDate"`
}

// ServiceRequestResponse is the wire shape of a service request.
type ServiceRequestResponse struct {
	ID             string                `json:"id"`
	TicketNumber   string                `json:"ticketNumber"`
	CustomerID     *string               `json:"customerId"`
	Brand          string                `json:"brand"`
	ScreenSize     *string               `json:"screenSize"`
	ModelNumber    *string               `json:"modelNumber"`
	PrimaryIssue   string                `json:"primaryIssue"`
	Symptoms       *string               `json:"symptoms"`
	Description    *string               `json:"description"`
	MediaURLs      []string              `json:"mediaUrls"`
	ExpiresAt      *time.Time            `json:"expiresAt"`
	CustomerName   string                `json:"customerName"`
	Phone          string                `json:"phone"`
	Address        *string               `json:"address"`
	RequestIntent  domain.RequestIntent  `json:"requestIntent"`
	ServiceMode    domain.ServiceMode    `json:"serviceMode"`
	Stage          domain.Stage          `json:"stage"`
	TrackingStatus domain.TrackingStatus `json:"trackingStatus"`
	Status         domain.RequestStatus  `json:"status"`
	PaymentStatus  domain.PaymentStatus  `json:"paymentStatus"`

	IsQuote        bool                `json:"isQuote"`
	QuoteStatus    *domain.QuoteStatus `json:"quoteStatus"`
	QuoteAmount    *float64            `json:"quoteAmount"`
	QuoteNotes     *string             `json:"quoteNotes"`
	QuotedAt       *time.Time          `json:"quotedAt"`
	QuoteExpiresAt *time.Time          `json:"quoteExpiresAt"`
	AcceptedAt     *time.Time          `json:"acceptedAt"`
	PickupTier     *domain.PickupTier  `json:"pickupTier"`
	PickupCost     *float64            `json:"pickupCost"`
	TotalAmount    *float64            `json:"totalAmount"`

	ScheduledPickupDate *time.Time `json:"scheduledPickupDate"`
	ExpectedPickupDate  *time.Time `json:"expectedPickupDate"`
	ExpectedReturnDate  *time.Time `json:"expectedReturnDate"`
	ExpectedReadyDate   *time.Time `json:"expectedReadyDate"`
	ConvertedJobID      *string    `json:"convertedJobId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TrackingResponse is the public view returned by the ticket lookup.
type TrackingResponse struct {
	TicketNumber       string                `json:"ticketNumber"`
	Brand              string                `json:"brand"`
	ModelNumber        *string               `json:"modelNumber"`
	PrimaryIssue       string                `json:"primaryIssue"`
	ServiceMode        domain.ServiceMode    `json:"serviceMode"`
	Stage              domain.Stage          `json:"stage"`
	TrackingStatus     domain.TrackingStatus `json:"trackingStatus"`
	QuoteStatus        *domain.QuoteStatus   `json:"quoteStatus"`
	ExpectedReadyDate  *time.Time            `json:"expectedReadyDate"`
	ExpectedReturnDate *time.Time            `json:"expectedReturnDate"`
	CreatedAt          time.Time             `json:"createdAt"`
	Timeline           []EventResponse       `json:"timeline"`
}

// EventResponse is one timeline entry.
type EventResponse struct {
	ID         string                `json:"id"`
	Status     domain.TrackingStatus `json:"status"`
	Message    string                `json:"message"`
	Actor      string                `json:"actor"`
	OccurredAt time.Time             `json:"occurredAt"`
}

// TransitionResponse carries the moved request and the job ticket created on the way, if any.
type TransitionResponse struct {
	ServiceRequest ServiceRequestResponse `json:"serviceRequest"`
	JobTicket      *JobTicketResponse     `json:"jobTicket,omitempty"`
}

// NextStagesResponse lists the stages a request may move to.
type NextStagesResponse struct {
	Stages []domain.Stage `json:"stages"`
}
