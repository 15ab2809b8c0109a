package events

// Event type constants. These follow the format: aggregate.action

// Contact events
const (
	EventTypeContactCreated = "contact.created"
	EventTypeContactUpdated = "contact.updated"
	EventTypeContactDeleted = "contact.deleted"
)

// Account events
const (
	EventTypeAccountCreated = "account.created"
	EventTypeAccountUpdated = "account.updated"
	EventTypeAccountDeleted = "account.deleted"
)

// Opportunity events
const (
	EventTypeOpportunityCreated      = "opportunity.created"
	EventTypeOpportunityUpdated      = "opportunity.updated"
	EventTypeOpportunityStageChanged = "opportunity.stage_changed"
	EventTypeOpportunityWon          = "opportunity.won"
	EventTypeOpportunityLost         = "opportunity.lost"
	EventTypeOpportunityDeleted      = "opportunity.deleted"
)

// Email events
const (
	EventTypeEmailDrafted   = "email.drafted"
	EventTypeEmailQueued    = "email.queued"
	EventTypeEmailSent      = "email.sent"
	EventTypeEmailDelivered = "email.delivered"
	EventTypeEmailOpened    = "email.opened"
	EventTypeEmailClicked   = "email.clicked"
	EventTypeEmailReplied   = "email.replied"
	EventTypeEmailBounced   = "email.bounced"
	EventTypeEmailFailed    = "email.failed"
)

// Meeting events
const (
	EventTypeMeetingProposed  = "meeting.proposed"
	EventTypeMeetingConfirmed = "meeting.confirmed"
	EventTypeMeetingCancelled = "meeting.cancelled"
	EventTypeMeetingCompleted = "meeting.completed"
	EventTypeMeetingNoShow    = "meeting.no_show"
)

// Sequence events
const (
	EventTypeSequenceCreated      = "sequence.created"
	EventTypeSequenceUpdated      = "sequence.updated"
	EventTypeSequenceActivated    = "sequence.activated"
	EventTypeSequencePaused       = "sequence.paused"
	EventTypeContactEnrolled      = "sequence.contact_enrolled"
	EventTypeContactCompleted     = "sequence.contact_completed"
	EventTypeContactExited        = "sequence.contact_exited"
	EventTypeSequenceStepExecuted = "sequence.step_executed"
)

// Engagement events
const (
	EventTypeEngagementScoreUpdated = "engagement.score_updated"
	EventTypeIntentSignalDetected   = "engagement.intent_signal_detected"
)

// Aggregate type constants
const (
	AggregateTypeContact     = "contact"
	AggregateTypeAccount     = "account"
	AggregateTypeOpportunity = "opportunity"
	AggregateTypeEmail       = "email"
	AggregateTypeMeeting     = "meeting"
	AggregateTypeSequence    = "sequence"
	AggregateTypeEngagement  = "engagement"
)

// AllTypes returns the full event type catalogue, for handlers that consume
// every event (e.g. downstream publishers).
func AllTypes() []string {
	return []string{
		EventTypeContactCreated,
		EventTypeContactUpdated,
		EventTypeContactDeleted,
		EventTypeAccountCreated,
		EventTypeAccountUpdated,
		EventTypeAccountDeleted,
		EventTypeOpportunityCreated,
		EventTypeOpportunityUpdated,
		EventTypeOpportunityStageChanged,
		EventTypeOpportunityWon,
		EventTypeOpportunityLost,
		EventTypeOpportunityDeleted,
		EventTypeEmailDrafted,
		EventTypeEmailQueued,
		EventTypeEmailSent,
		EventTypeEmailDelivered,
		EventTypeEmailOpened,
		EventTypeEmailClicked,
		EventTypeEmailReplied,
		EventTypeEmailBounced,
		EventTypeEmailFailed,
		EventTypeMeetingProposed,
		EventTypeMeetingConfirmed,
		EventTypeMeetingCancelled,
		EventTypeMeetingCompleted,
		EventTypeMeetingNoShow,
		EventTypeSequenceCreated,
		EventTypeSequenceUpdated,
		EventTypeSequenceActivated,
		EventTypeSequencePaused,
		EventTypeContactEnrolled,
		EventTypeContactCompleted,
		EventTypeContactExited,
		EventTypeSequenceStepExecuted,
		EventTypeEngagementScoreUpdated,
		EventTypeIntentSignalDetected,
	}
}
