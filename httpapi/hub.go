package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/gridstate/internal/logx"
	"pkt.systems/gridstate/schema"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq        uint64            `json:"seq"`
	Type       string            `json:"type"`
	TableID    schema.TableID    `json:"table,omitempty"`
	Change     schema.ChangeKind `json:"change,omitempty"`
	Generation uint64            `json:"generation"`
	Reload     bool              `json:"reload,omitempty"`
	State      *schema.ViewState `json:"state,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Hub broadcasts view events per user.
type Hub struct {
	mu          sync.Mutex
	users       map[schema.UserID]*userHub
	historySize int
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		users:       make(map[schema.UserID]*userHub),
		historySize: historySize,
	}
}

// OnViewEvent implements core.EventSink.
func (h *Hub) OnViewEvent(event schema.ViewEvent) {
	log := logx.WithUserTable(context.Background(), event.UserID, event.TableID)
	log.Trace("hub view event", "type", event.Type, "change", event.Change, "generation", event.Generation)
	out := StreamEvent{
		Type:       string(event.Type),
		TableID:    event.TableID,
		Change:     event.Change,
		Generation: event.Generation,
		Reload:     event.Reload,
		Timestamp:  time.Now(),
	}
	if event.Type != schema.ViewEventClosed {
		state := event.State.Clone()
		out.State = &state
	}
	h.publish(event.UserID, out)
}

// Subscribe registers a subscriber for a user.
func (h *Hub) Subscribe(userID schema.UserID) (<-chan StreamEvent, func(), uint64, []StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	uh := h.getOrCreateUserHubLocked(userID)
	ch := make(chan StreamEvent, 256)
	uh.subs[ch] = struct{}{}
	history := append([]StreamEvent(nil), uh.history...)
	seq := uh.seq
	log := logx.WithUser(context.Background(), userID)
	log.Info("hub subscribe", "subs", len(uh.subs), "history", len(history))
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(uh.subs, ch)
			close(ch)
			remaining := len(uh.subs)
			h.mu.Unlock()
			log.Info("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub, seq, history
}

// Replay returns events after the provided seq.
func (h *Hub) Replay(userID schema.UserID, after uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	uh := h.users[userID]
	if uh == nil {
		return nil
	}
	events := make([]StreamEvent, 0, len(uh.history))
	for _, event := range uh.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	logx.WithUser(context.Background(), userID).Debug("hub replay", "after", after, "count", len(events))
	return events
}

// Seq returns the last sequence number published for a user.
func (h *Hub) Seq(userID schema.UserID) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if uh := h.users[userID]; uh != nil {
		return uh.seq
	}
	return 0
}

func (h *Hub) publish(userID schema.UserID, event StreamEvent) {
	h.mu.Lock()
	uh := h.getOrCreateUserHubLocked(userID)
	uh.seq++
	event.Seq = uh.seq
	uh.history = append(uh.history, event)
	if len(uh.history) > h.historySize {
		uh.history = uh.history[len(uh.history)-h.historySize:]
	}
	dropped := 0
	for sub := range uh.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	if dropped > 0 {
		logx.WithUser(context.Background(), userID).Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}

func (h *Hub) getOrCreateUserHubLocked(userID schema.UserID) *userHub {
	uh := h.users[userID]
	if uh == nil {
		uh = &userHub{
			subs: make(map[chan StreamEvent]struct{}),
		}
		h.users[userID] = uh
	}
	return uh
}

type userHub struct {
	seq     uint64
	history []StreamEvent
	subs    map[chan StreamEvent]struct{}
}
