package gridstate

import (
	"context"

	"pkt.systems/gridstate/core"
	"pkt.systems/gridstate/internal/logx"
	"pkt.systems/gridstate/schema"
	"pkt.systems/pslog"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnViewEvent(event schema.ViewEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnViewEvent(event)
	}
}

// auditSink records every view transition in the log.
type auditSink struct {
	log pslog.Logger
}

func newAuditSink(logger pslog.Logger) auditSink {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return auditSink{log: logger}
}

func (a auditSink) OnViewEvent(event schema.ViewEvent) {
	ctx := pslog.ContextWithLogger(context.Background(), a.log)
	log := logx.WithUserTable(ctx, event.UserID, event.TableID).With("audit", true)
	fields := []any{"type", event.Type, "generation", event.Generation}
	if event.Change != "" {
		fields = append(fields, "change", event.Change)
	}
	if event.Reload {
		fields = append(fields, "reload", true)
	}
	log.Info("view audit", fields...)
}
