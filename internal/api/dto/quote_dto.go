package dto

import (
	"time"

	"github.com/spec-kit/repairdesk/internal/domain"
)

// QuotePriceRequest sets the amount offered to the customer.
type QuotePriceRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
	Notes  *string `json:"notes" validate:"omitempty,max=1000"`
}

// QuoteAcceptRequest is the customer's acceptance of a priced quote.
type QuoteAcceptRequest struct {
	ServiceMode        domain.ServiceMode `json:"serviceMode" validate:"required,oneof=pickup service_center"`
	PickupTier         *domain.PickupTier `json:"pickupTier" validate:"omitempty,oneof=Regular Priority Emergency"`
	Address            *string            `json:"address"`
	ScheduledVisitDate *time.Time         `json:"scheduledVisitDate"`
}
