package domain

import "time"

// PickupTier selects the urgency, and price, of a home pickup.
type PickupTier string

const (
	PickupTierRegular   PickupTier = "Regular"
	PickupTierPriority  PickupTier = "Priority"
	PickupTierEmergency PickupTier = "Emergency"
)

var pickupTierCosts = map[PickupTier]float64{
	PickupTierRegular:   0,
	PickupTierPriority:  500,
	PickupTierEmergency: 1000,
}

// Cost returns the surcharge for the tier and whether the tier is known.
func (t PickupTier) Cost() (float64, bool) {
	cost, ok := pickupTierCosts[t]
	return cost, ok
}

// PickupStatus enumerates pickup schedule progress.
type PickupStatus string

const (
	PickupStatusPending   PickupStatus = "Pending"
	PickupStatusScheduled PickupStatus = "Scheduled"
	PickupStatusPickedUp  PickupStatus = "PickedUp"
	PickupStatusDelivered PickupStatus = "Delivered"
)

var pickupStatusOrder = map[PickupStatus]int{
	PickupStatusPending:   0,
	PickupStatusScheduled: 1,
	PickupStatusPickedUp:  2,
	PickupStatusDelivered: 3,
}

// Valid reports whether status is a known value.
func (s PickupStatus) Valid() bool {
	_, ok := pickupStatusOrder[s]
	return ok
}

// CanAdvanceTo reports whether next does not move the schedule backwards.
func (s PickupStatus) CanAdvanceTo(next PickupStatus) bool {
	cur, ok := pickupStatusOrder[s]
	if !ok {
		return false
	}
	nxt, ok := pickupStatusOrder[next]
	return ok && nxt >= cur
}

// PickupSchedule is created when a customer accepts a quote with home pickup.
type PickupSchedule struct {
	ID               string
	ServiceRequestID string
	Tier             PickupTier
	TierCost         float64
	Status           PickupStatus
	ScheduledDate    *time.Time
	PickupAddress    string
	AssignedStaff    *string
	PickupNotes      *string
	PickedUpAt       *time.Time
	DeliveredAt      *time.Time
	CreatedAt        time.Time
}
