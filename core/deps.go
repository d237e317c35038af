package core

import "pkt.systems/pslog"

// ServiceDeps captures optional dependencies for the core service.
type ServiceDeps struct {
	Store     SettingsStore
	EventSink EventSink
	Logger    pslog.Logger
}
