// Package settings persists table view settings per (user, table) over an
// injected key-value port.
//
// Persistence failures stop here: Load returns nil for anything it cannot
// read and Save reports a failed write as false after logging it. Callers get
// a valid record or nil, never an error.
package settings

import (
	"context"
	"encoding/json"
	"strings"

	"pkt.systems/gridstate/internal/logx"
	"pkt.systems/gridstate/internal/migrate"
	"pkt.systems/gridstate/internal/persist"
	"pkt.systems/gridstate/schema"
)

const keyPrefix = "table_settings_"

// keyUserEscaper keeps the user part of a key free of '_' so the separator
// before the table id is the first '_' after the prefix.
var keyUserEscaper = strings.NewReplacer("%", "%25", "_", "%5F")

// Key returns the composite storage key for a user's table. Underscores in
// the user id are escaped, so distinct (user, table) pairs never share a key.
func Key(userID schema.UserID, tableID schema.TableID) string {
	if userID == "" {
		userID = schema.AnonymousUser
	}
	return keyPrefix + keyUserEscaper.Replace(string(userID)) + "_" + string(tableID)
}

// Store reads and writes whole TableSettings records.
type Store struct {
	port persist.Port
}

// NewStore binds a settings store to a storage port.
func NewStore(port persist.Port) *Store {
	return &Store{port: port}
}

// Save writes the full settings record. It reports whether the write landed.
func (s *Store) Save(ctx context.Context, userID schema.UserID, tableID schema.TableID, settings schema.TableSettings) bool {
	log := logx.WithUserTable(ctx, userID, tableID)
	data, err := json.Marshal(settings)
	if err != nil {
		log.Warn("settings save failed", "err", err)
		return false
	}
	if err := s.port.Set(Key(userID, tableID), data); err != nil {
		log.Warn("settings save failed", "err", err, "bytes", len(data))
		return false
	}
	log.Trace("settings save ok", "bytes", len(data))
	return true
}

// Load reads the settings record, or nil when none is stored or it cannot be decoded.
func (s *Store) Load(ctx context.Context, userID schema.UserID, tableID schema.TableID) *schema.TableSettings {
	log := logx.WithUserTable(ctx, userID, tableID)
	data, ok, err := s.port.Get(Key(userID, tableID))
	if err != nil {
		log.Warn("settings load failed", "err", err)
		return nil
	}
	if !ok {
		log.Debug("settings load miss")
		return nil
	}
	var settings schema.TableSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		log.Warn("settings load failed", "err", err, "bytes", len(data))
		return nil
	}
	log.Debug("settings load ok", "generation", migrate.Classify(&settings).String())
	return &settings
}

// Remove deletes the settings record. It reports whether the removal landed.
func (s *Store) Remove(ctx context.Context, userID schema.UserID, tableID schema.TableID) bool {
	log := logx.WithUserTable(ctx, userID, tableID)
	if err := s.port.Remove(Key(userID, tableID)); err != nil {
		log.Warn("settings remove failed", "err", err)
		return false
	}
	log.Debug("settings removed")
	return true
}

// Reset replaces the stored record with one built from defaults and returns it.
func (s *Store) Reset(ctx context.Context, userID schema.UserID, tableID schema.TableID, defaults schema.ViewState) schema.TableSettings {
	record := migrate.Record(defaults, nil)
	saved := s.Save(ctx, userID, tableID, record)
	logx.WithUserTable(ctx, userID, tableID).Info("settings reset", "columns", len(defaults.ColumnOrderModel), "saved", saved)
	return record
}
