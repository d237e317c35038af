package httpapi

import (
	"testing"

	"pkt.systems/gridstate/schema"
)

func TestHubHistoryAndReplay(t *testing.T) {
	hub := NewHub(2)
	for _, kind := range []schema.ChangeKind{schema.ChangeSort, schema.ChangeFilter, schema.ChangeColumnWidth} {
		hub.OnViewEvent(schema.ViewEvent{UserID: "alice", TableID: "orders", Type: schema.ViewEventChanged, Change: kind})
	}
	if got := hub.Seq("alice"); got != 3 {
		t.Fatalf("expected seq 3, got %d", got)
	}
	replay := hub.Replay("alice", 0)
	if len(replay) != 2 || replay[0].Seq != 2 || replay[1].Change != schema.ChangeColumnWidth {
		t.Fatalf("unexpected trimmed history %+v", replay)
	}
	if replay := hub.Replay("alice", 3); len(replay) != 0 {
		t.Fatalf("expected nothing after latest seq, got %d", len(replay))
	}
	if replay := hub.Replay("bob", 0); replay != nil {
		t.Fatalf("expected nil replay for unknown user")
	}
}

func TestHubSubscribeIsolatesUsers(t *testing.T) {
	hub := NewHub(0)
	ch, unsub, seq, history := hub.Subscribe("alice")
	if seq != 0 || len(history) != 0 {
		t.Fatalf("unexpected initial state seq=%d history=%d", seq, len(history))
	}
	hub.OnViewEvent(schema.ViewEvent{UserID: "bob", TableID: "orders", Type: schema.ViewEventOpened})
	hub.OnViewEvent(schema.ViewEvent{UserID: "alice", TableID: "orders", Type: schema.ViewEventClosed})
	event := <-ch
	if event.Type != string(schema.ViewEventClosed) || event.Seq != 1 {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.State != nil {
		t.Fatalf("closed events carry no state")
	}
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after unsubscribe")
	}
	hub.OnViewEvent(schema.ViewEvent{UserID: "alice", TableID: "orders", Type: schema.ViewEventOpened})
}
