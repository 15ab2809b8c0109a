package consumers

import (
	"salespipe/internal/events"
)

// Deps collects everything the bootstrap registration list needs.
type Deps struct {
	Activity   *ActivityHandler
	Engagement *EngagementHandler

	// Extra handlers registered for every catalogued event type, e.g.
	// downstream publishers. They inherit at-least-once semantics.
	FanOut []events.Handler
}

// RegisterAll wires the fixed registration list into the registry. It runs
// once per process start; registry state does not survive restarts.
func RegisterAll(reg *events.Registry, d Deps) {
	if d.Activity != nil {
		reg.Register(events.EventTypeEmailSent, d.Activity.HandleEmailSent)
		reg.Register(events.EventTypeEmailOpened, d.Activity.HandleEmailOpened)
		reg.Register(events.EventTypeEmailClicked, d.Activity.HandleEmailClicked)
		reg.Register(events.EventTypeMeetingConfirmed, d.Activity.HandleMeetingConfirmed)
	}
	if d.Engagement != nil {
		reg.Register(events.EventTypeEmailOpened, d.Engagement.Handle)
		reg.Register(events.EventTypeEmailClicked, d.Engagement.Handle)
		reg.Register(events.EventTypeEmailReplied, d.Engagement.Handle)
		reg.Register(events.EventTypeMeetingConfirmed, d.Engagement.Handle)
	}
	for _, h := range d.FanOut {
		for _, eventType := range events.AllTypes() {
			reg.Register(eventType, h)
		}
	}
}
