package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/gridstate/internal/persist"
	"pkt.systems/gridstate/internal/settings"
	"pkt.systems/gridstate/schema"
)

func TestParseColumns(t *testing.T) {
	defs, err := parseColumns("name=200, amount, note!")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(defs) != 3 || defs[0].Width != 200 || defs[1].ID != "amount" || !defs[2].Hidden {
		t.Fatalf("unexpected defs %+v", defs)
	}
	cases := []string{"", "a,a", "a=wide"}
	for _, value := range cases {
		if _, err := parseColumns(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	stateDir := filepath.Join(dir, "settings")
	path := filepath.Join(dir, "config.yaml")
	content := "config_version: 1\nstorage:\n  backend: file\n  dir: " + stateDir + "\nlogging:\n  disable_audit_trails: true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, stateDir
}

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestSettingsMigrateUpgradesLegacyRecord(t *testing.T) {
	cfgPath, stateDir := writeTestConfig(t)
	port, err := persist.NewDirStore(stateDir)
	if err != nil {
		t.Fatalf("dir store: %v", err)
	}
	legacy := schema.TableSettings{
		Columns: map[schema.ColumnID]schema.ColumnSettings{
			"A": {ID: "A", Visible: true, Width: 100, Order: 1},
			"B": {ID: "B", Visible: false, Width: 200, Order: 0},
		},
		PageSize: 50,
	}
	if !settings.NewStore(port).Save(context.Background(), "alice", "orders", legacy) {
		t.Fatalf("seed legacy record")
	}

	out := runCmd(t, "settings", "migrate", "-c", cfgPath, "-u", "alice", "-t", "orders")
	var report settingsReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Generation != "current" || report.Record.DataGrid == nil {
		t.Fatalf("expected upgraded record, got %+v", report)
	}
	if got := report.Record.DataGrid.ColumnOrderModel; len(got) != 2 || got[0] != "B" {
		t.Fatalf("unexpected order %v", got)
	}
	if report.Record.DataGrid.PaginationModel.PageSize != 50 {
		t.Fatalf("expected page size 50, got %d", report.Record.DataGrid.PaginationModel.PageSize)
	}

	out = runCmd(t, "settings", "migrate", "-c", cfgPath, "-u", "alice", "-t", "orders")
	if !strings.Contains(out, "nothing to migrate") {
		t.Fatalf("expected second migrate to be a no-op, got %q", out)
	}

	out = runCmd(t, "settings", "show", "-c", cfgPath, "-u", "alice", "-t", "orders")
	if !strings.Contains(out, settings.Key("alice", "orders")) || !strings.Contains(out, `"current"`) {
		t.Fatalf("unexpected show output %q", out)
	}

	runCmd(t, "settings", "remove", "-c", cfgPath, "-u", "alice", "-t", "orders")
	out = runCmd(t, "settings", "show", "-c", cfgPath, "-u", "alice", "-t", "orders")
	if !strings.Contains(out, `"none"`) {
		t.Fatalf("expected removed record, got %q", out)
	}
}

func TestSettingsResetWritesDefaults(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	out := runCmd(t, "settings", "reset", "-c", cfgPath, "-t", "orders", "--columns", "a=80,b!", "--page-size", "10")
	var report settingsReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if !strings.Contains(report.Key, string(schema.AnonymousUser)) {
		t.Fatalf("expected anonymous key, got %q", report.Key)
	}
	grid := report.Record.DataGrid
	if grid == nil || grid.ColumnWidthModel["a"] != 80 || grid.ColumnVisibilityModel["b"] || grid.PaginationModel.PageSize != 10 {
		t.Fatalf("unexpected defaults %+v", grid)
	}
}

func TestPreviewAppliesAndPersistsView(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	rowsPath := filepath.Join(t.TempDir(), "rows.yaml")
	rows := "- {id: r1, name: beta, amount: 10}\n- {id: r2, name: alpha, amount: 9}\n- {id: r3, name: gamma, amount: 100}\n"
	if err := os.WriteFile(rowsPath, []byte(rows), 0o600); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	out := runCmd(t, "preview", "-c", cfgPath, "-u", "alice", "-t", "orders", "-r", rowsPath,
		"--order-by", "amount desc", "--page-size", "2", "--viewport", "100", "--row-height", "50")
	if !strings.Contains(out, "gamma") || !strings.Contains(out, "beta") || strings.Contains(out, "alpha") {
		t.Fatalf("unexpected first page:\n%s", out)
	}
	if !strings.Contains(out, "page 1 of 2, 3 of 3 rows match") {
		t.Fatalf("missing summary:\n%s", out)
	}
	if !strings.Contains(out, "window: rows 0..1") {
		t.Fatalf("missing window summary:\n%s", out)
	}

	out = runCmd(t, "preview", "-c", cfgPath, "-u", "alice", "-t", "orders", "-r", rowsPath, "--page", "1")
	if !strings.Contains(out, "alpha") || strings.Contains(out, "gamma") {
		t.Fatalf("expected persisted sort and page size on second page:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out := runCmd(t, "version", "--json")
	var info map[string]any
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode version: %v\n%s", err, out)
	}
	if info["settings_schema"] != float64(schema.SettingsSchemaVersion) {
		t.Fatalf("unexpected version info %v", info)
	}
}
