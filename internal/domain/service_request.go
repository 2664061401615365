package domain

import "time"

// RequestIntent says whether a request started as a price quote or a repair booking.
type RequestIntent string

const (
	IntentQuote  RequestIntent = "quote"
	IntentRepair RequestIntent = "repair"
)

// Valid reports whether the intent is a known value.
func (i RequestIntent) Valid() bool {
	return i == IntentQuote || i == IntentRepair
}

// ServiceMode says how the device reaches the workshop.
type ServiceMode string

const (
	ModePickup        ServiceMode = "pickup"
	ModeServiceCenter ServiceMode = "service_center"
)

// Valid reports whether the mode is a known value.
func (m ServiceMode) Valid() bool {
	return m == ModePickup || m == ModeServiceCenter
}

// RequestStatus is the internal back-office status of a request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "Pending"
	RequestStatusReviewed  RequestStatus = "Reviewed"
	RequestStatusConverted RequestStatus = "Converted"
	RequestStatusClosed    RequestStatus = "Closed"
)

// Valid reports whether the status is a known value.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusReviewed, RequestStatusConverted, RequestStatusClosed:
		return true
	}
	return false
}

// PaymentStatus tracks whether the customer has settled the bill.
type PaymentStatus string

const (
	PaymentStatusDue  PaymentStatus = "Due"
	PaymentStatusPaid PaymentStatus = "Paid"
)

// QuoteStatus enumerates the quote sub-workflow states.
type QuoteStatus string

const (
	QuoteStatusPending   QuoteStatus = "Pending"
	QuoteStatusQuoted    QuoteStatus = "Quoted"
	QuoteStatusAccepted  QuoteStatus = "Accepted"
	QuoteStatusDeclined  QuoteStatus = "Declined"
	QuoteStatusConverted QuoteStatus = "Converted"
	QuoteStatusExpired   QuoteStatus = "Expired"
)

// ServiceRequest is the aggregate for a customer repair or quote request.
type ServiceRequest struct {
	ID           string
	TicketNumber string
	CustomerID   *string

	Brand        string
	ScreenSize   *string
	ModelNumber  *string
	PrimaryIssue string
	Symptoms     *string
	Description  *string
	MediaURLs    []string
	ExpiresAt    *time.Time

	CustomerName string
	Phone        string
	Address      *string

	RequestIntent  RequestIntent
	ServiceMode    ServiceMode
	Stage          Stage
	TrackingStatus TrackingStatus
	Status         RequestStatus
	PaymentStatus  PaymentStatus

	IsQuote        bool
	QuoteStatus    *QuoteStatus
	QuoteAmount    *float64
	QuoteNotes     *string
	QuotedAt       *time.Time
	QuoteExpiresAt *time.Time
	AcceptedAt     *time.Time

	PickupTier  *PickupTier
	PickupCost  *float64
	TotalAmount *float64

	ScheduledPickupDate *time.Time
	ExpectedPickupDate  *time.Time
	ExpectedReturnDate  *time.Time
	ExpectedReadyDate   *time.Time

	ConvertedJobID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CurrentQuoteStatus returns the quote status or an empty value for non-quotes.
func (r *ServiceRequest) CurrentQuoteStatus() QuoteStatus {
	if r.QuoteStatus == nil {
		return ""
	}
	return *r.QuoteStatus
}

// HasJob reports whether a job ticket was already materialized.
func (r *ServiceRequest) HasJob() bool {
	return r.ConvertedJobID != nil && *r.ConvertedJobID != ""
}
