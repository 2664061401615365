package domain

// Stage is a symbol in the workflow vocabulary.
type Stage string

const (
	StageIntake           Stage = "intake"
	StageAssessment       Stage = "assessment"
	StageAwaitingCustomer Stage = "awaiting_customer"
	StageAuthorized       Stage = "authorized"
	StagePickupScheduled  Stage = "pickup_scheduled"
	StagePickedUp         Stage = "picked_up"
	StageAwaitingDropoff  Stage = "awaiting_dropoff"
	StageDeviceReceived   Stage = "device_received"
	StageInRepair         Stage = "in_repair"
	StageReady            Stage = "ready"
	StageOutForDelivery   Stage = "out_for_delivery"
	StageCompleted        Stage = "completed"
	StageClosed           Stage = "closed"
)

// AllStages lists the full vocabulary in canonical order.
var AllStages = []Stage{
	StageIntake, StageAssessment, StageAwaitingCustomer, StageAuthorized,
	StagePickupScheduled, StagePickedUp, StageAwaitingDropoff, StageDeviceReceived,
	StageInRepair, StageReady, StageOutForDelivery, StageCompleted, StageClosed,
}

// TrackingStatus is the customer-facing label shown in the timeline.
type TrackingStatus string

const (
	TrackingRequestReceived    TrackingStatus = "Request Received"
	TrackingArrivingToReceive  TrackingStatus = "Arriving to Receive"
	TrackingAwaitingDropoff    TrackingStatus = "Awaiting Drop-off"
	TrackingQueued             TrackingStatus = "Queued"
	TrackingReceived           TrackingStatus = "Received"
	TrackingTechnicianAssigned TrackingStatus = "Technician Assigned"
	TrackingDiagnosisCompleted TrackingStatus = "Diagnosis Completed"
	TrackingPartsPending       TrackingStatus = "Parts Pending"
	TrackingRepairing          TrackingStatus = "Repairing"
	TrackingReadyForDelivery   TrackingStatus = "Ready for Delivery"
	TrackingDelivered          TrackingStatus = "Delivered"
	TrackingCancelled          TrackingStatus = "Cancelled"
)

type flowKey struct {
	intent RequestIntent
	mode   ServiceMode
}

var stageFlows = map[flowKey][]Stage{
	{IntentQuote, ModePickup}: {
		StageIntake, StageAssessment, StageAwaitingCustomer, StageAuthorized, StagePickupScheduled,
		StagePickedUp, StageInRepair, StageReady, StageOutForDelivery, StageCompleted, StageClosed,
	},
	{IntentQuote, ModeServiceCenter}: {
		StageIntake, StageAssessment, StageAwaitingCustomer, StageAuthorized, StageAwaitingDropoff,
		StageDeviceReceived, StageInRepair, StageReady, StageCompleted, StageClosed,
	},
	{IntentRepair, ModePickup}: {
		StageIntake, StageAssessment, StageAuthorized, StagePickupScheduled, StagePickedUp,
		StageInRepair, StageReady, StageOutForDelivery, StageCompleted, StageClosed,
	},
	{IntentRepair, ModeServiceCenter}: {
		StageIntake, StageAssessment, StageAuthorized, StageAwaitingDropoff, StageDeviceReceived,
		StageInRepair, StageReady, StageCompleted, StageClosed,
	},
}

// ResolveFlow returns the ordered stages governing a request. Unknown values fall back to
// repair and service center respectively.
func ResolveFlow(intent RequestIntent, mode ServiceMode) []Stage {
	if intent != IntentQuote {
		intent = IntentRepair
	}
	if mode != ModePickup {
		mode = ModeServiceCenter
	}
	flow := stageFlows[flowKey{intent, mode}]
	out := make([]Stage, len(flow))
	copy(out, flow)
	return out
}

// StageIndex returns the position of stage in flow, or -1.
func StageIndex(flow []Stage, stage Stage) int {
	for i, s := range flow {
		if s == stage {
			return i
		}
	}
	return -1
}

// StagesAfter returns every stage strictly after current in flow.
func StagesAfter(flow []Stage, current Stage) []Stage {
	idx := StageIndex(flow, current)
	if idx == -1 || idx >= len(flow)-1 {
		return []Stage{}
	}
	out := make([]Stage, len(flow)-idx-1)
	copy(out, flow[idx+1:])
	return out
}

// IsJobCreationStage reports whether entering stage materializes a job ticket.
func IsJobCreationStage(stage Stage) bool {
	return stage == StagePickedUp || stage == StageDeviceReceived
}

// StageTimeline is the tracking status and canned message recorded on entering a stage.
type StageTimeline struct {
	Status  TrackingStatus
	Message string
}

var stageTimeline = map[Stage]StageTimeline{
	StageIntake:           {TrackingRequestReceived, "Request received and is being processed."},
	StageAssessment:       {TrackingQueued, "Your device is being assessed by our team."},
	StageAwaitingCustomer: {TrackingQueued, "Quote sent - awaiting your response."},
	StageAuthorized:       {TrackingQueued, "Repair authorized and scheduled."},
	StagePickupScheduled:  {TrackingArrivingToReceive, "Pickup has been scheduled."},
	StagePickedUp:         {TrackingReceived, "Device has been picked up."},
	StageAwaitingDropoff:  {TrackingAwaitingDropoff, "Awaiting your device drop-off at our service center."},
	StageDeviceReceived:   {TrackingReceived, "Device received at service center."},
	StageInRepair:         {TrackingRepairing, "Repair is in progress."},
	StageReady:            {TrackingReadyForDelivery, "Your device is ready."},
	StageOutForDelivery:   {TrackingReadyForDelivery, "Device is out for delivery."},
	StageCompleted:        {TrackingDelivered, "Service completed successfully."},
	StageClosed:           {TrackingDelivered, "Case closed."},
}

// TimelineForStage returns the tracking status and message for stage.
func TimelineForStage(stage Stage) StageTimeline {
	if tl, ok := stageTimeline[stage]; ok {
		return tl
	}
	return StageTimeline{Status: TrackingRequestReceived, Message: "Status updated to " + string(stage)}
}

var trackingMessages = map[TrackingStatus]string{
	TrackingRequestReceived:    "Your request is being reviewed by our team.",
	TrackingArrivingToReceive:  "Our team is on the way to collect your TV.",
	TrackingAwaitingDropoff:    "Please bring your TV to our service center.",
	TrackingReceived:           "Your TV has been received at our service center.",
	TrackingTechnicianAssigned: "A technician has been assigned to your repair.",
	TrackingDiagnosisCompleted: "The issue has been diagnosed. We'll contact you with details.",
	TrackingPartsPending:       "Waiting for replacement parts to arrive.",
	TrackingRepairing:          "Repair work is in progress.",
	TrackingReadyForDelivery:   "Your device is ready for pickup/delivery!",
	TrackingDelivered:          "Your device has been delivered. Thank you!",
	TrackingCancelled:          "This request has been cancelled.",
}

// TrackingMessage returns the customer message for a manually set tracking status.
func TrackingMessage(status TrackingStatus) string {
	if msg, ok := trackingMessages[status]; ok {
		return msg
	}
	return "Status updated to " + string(status)
}

// ValidTrackingStatus reports whether status is part of the customer vocabulary.
func ValidTrackingStatus(status TrackingStatus) bool {
	_, ok := trackingMessages[status]
	return ok || status == TrackingQueued
}
