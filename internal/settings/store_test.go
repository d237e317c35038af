package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"pkt.systems/gridstate/internal/migrate"
	"pkt.systems/gridstate/internal/persist"
	"pkt.systems/gridstate/schema"
	"pkt.systems/pslog"
)

func TestKey(t *testing.T) {
	if got := Key("alice", "orders"); got != "table_settings_alice_orders" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := Key("", "orders"); got != "table_settings_anonymous_orders" {
		t.Fatalf("unexpected anonymous key %q", got)
	}
	if a, b := Key("alice_x", "orders"), Key("alice", "x_orders"); a == b {
		t.Fatalf("distinct user/table pairs share key %q", a)
	}
	if got := Key("alice_x", "orders"); got != "table_settings_alice%5Fx_orders" {
		t.Fatalf("unexpected escaped key %q", got)
	}
}

func TestUnderscoreUsersDoNotShareRecords(t *testing.T) {
	ctx := context.Background()
	store := NewStore(persist.NewMemory())
	secret := schema.TableSettings{Columns: map[schema.ColumnID]schema.ColumnSettings{"secret": {ID: "secret"}}, PageSize: 10}
	if !store.Save(ctx, "alice_x", "orders", secret) {
		t.Fatalf("expected save to succeed")
	}
	if got := store.Load(ctx, "alice", "x_orders"); got != nil {
		t.Fatalf("expected no record for alice/x_orders, got %+v", got)
	}
	if got := store.Load(ctx, "alice_x", "orders"); got == nil || got.PageSize != 10 {
		t.Fatalf("expected alice_x record, got %+v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(persist.NewMemory())
	state := migrate.Defaults([]schema.ColumnDef{{ID: "a"}, {ID: "b", Width: 220}}, 50)
	record := migrate.Record(state, nil)

	if !store.Save(ctx, "alice", "orders", record) {
		t.Fatalf("expected save to succeed")
	}
	got := store.Load(ctx, "alice", "orders")
	if got == nil {
		t.Fatalf("expected settings")
	}
	if !reflect.DeepEqual(*got, record) {
		t.Fatalf("record mismatch:\nwant: %+v\ngot:  %+v", record, *got)
	}
	if other := store.Load(ctx, "bob", "orders"); other != nil {
		t.Fatalf("expected no settings for another user, got %+v", other)
	}
}

func TestLoadCorruptedReturnsNil(t *testing.T) {
	mem := persist.NewMemory()
	if err := mem.Set(Key("alice", "orders"), []byte("{not-json")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := NewStore(mem)
	if got := store.Load(context.Background(), "alice", "orders"); got != nil {
		t.Fatalf("expected nil for corrupted settings, got %+v", got)
	}
}

func TestLoadPortFailureReturnsNil(t *testing.T) {
	store := NewStore(failingPort{err: errors.New("disk gone")})
	if got := store.Load(context.Background(), "alice", "orders"); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
	if store.Save(context.Background(), "alice", "orders", schema.TableSettings{}) {
		t.Fatalf("expected save to report failure")
	}
	if store.Remove(context.Background(), "alice", "orders") {
		t.Fatalf("expected remove to report failure")
	}
}

func TestSaveQuotaExceededIsAbsorbed(t *testing.T) {
	store := NewStore(persist.NewMemoryWithQuota(16))
	record := migrate.Record(migrate.Defaults([]schema.ColumnDef{{ID: "a"}}, 10), nil)
	if store.Save(context.Background(), "alice", "orders", record) {
		t.Fatalf("expected quota failure to be reported as false")
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	store := NewStore(persist.NewMemory())
	store.Save(ctx, "alice", "orders", schema.TableSettings{PageSize: 10})
	if !store.Remove(ctx, "alice", "orders") {
		t.Fatalf("expected remove to succeed")
	}
	if got := store.Load(ctx, "alice", "orders"); got != nil {
		t.Fatalf("expected settings removed, got %+v", got)
	}
}

func TestResetWritesDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewStore(persist.NewMemory())
	store.Save(ctx, "alice", "orders", schema.TableSettings{
		Columns:  map[schema.ColumnID]schema.ColumnSettings{"x": {ID: "x", Order: 0}},
		PageSize: 99,
	})
	defaults := migrate.Defaults([]schema.ColumnDef{{ID: "a"}, {ID: "b"}, {ID: "c"}}, 25)
	record := store.Reset(ctx, "alice", "orders", defaults)
	got := store.Load(ctx, "alice", "orders")
	if got == nil || !reflect.DeepEqual(*got, record) {
		t.Fatalf("expected reset record to be stored, got %+v", got)
	}
	if !reflect.DeepEqual(got.DataGrid.ColumnOrderModel, []schema.ColumnID{"a", "b", "c"}) {
		t.Fatalf("unexpected order %v", got.DataGrid.ColumnOrderModel)
	}
	if _, ok := got.Columns["x"]; ok {
		t.Fatalf("expected reset to drop previous columns")
	}
	if got.PageSize != 25 {
		t.Fatalf("unexpected page size %d", got.PageSize)
	}
}

func TestResetLogsFailedWrite(t *testing.T) {
	var buf bytes.Buffer
	logger := pslog.NewWithOptions(&buf, pslog.Options{
		Mode:     pslog.ModeStructured,
		NoColor:  true,
		MinLevel: pslog.InfoLevel,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	store := NewStore(persist.NewMemoryWithQuota(16))
	record := store.Reset(ctx, "alice", "orders", migrate.Defaults([]schema.ColumnDef{{ID: "a"}}, 10))
	if record.DataGrid == nil {
		t.Fatalf("expected reset record even when the write fails")
	}
	found := false
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		for _, value := range entry {
			if value == "settings reset" {
				found = true
				if entry["saved"] != false {
					t.Fatalf("expected saved=false, got %+v", entry)
				}
			}
		}
	}
	if !found {
		t.Fatalf("expected a settings reset entry, got %s", buf.String())
	}
}

type failingPort struct {
	err error
}

func (p failingPort) Get(string) ([]byte, bool, error) { return nil, false, p.err }
func (p failingPort) Set(string, []byte) error         { return p.err }
func (p failingPort) Remove(string) error              { return p.err }
