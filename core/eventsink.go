package core

import "pkt.systems/gridstate/schema"

// EventSink receives view events from the core service. It is called with
// the service lock held and must not call back into the service.
type EventSink interface {
	OnViewEvent(event schema.ViewEvent)
}
