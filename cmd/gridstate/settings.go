package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/gridstate/internal/appconfig"
	"pkt.systems/gridstate/internal/migrate"
	"pkt.systems/gridstate/internal/settings"
	"pkt.systems/gridstate/schema"
	"pkt.systems/pslog"
)

type tableFlags struct {
	cfgPath string
	user    string
	table   string
}

func (f *tableFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&f.user, "user", "u", "", "user id (empty for anonymous)")
	cmd.Flags().StringVarP(&f.table, "table", "t", "", "table id")
	_ = cmd.MarkFlagRequired("table")
}

func (f *tableFlags) ref() (schema.UserID, schema.TableID, error) {
	user, err := schema.NormalizeUserID(schema.UserID(f.user))
	if err != nil {
		return "", "", err
	}
	table, err := schema.NormalizeTableID(schema.TableID(f.table))
	if err != nil {
		return "", "", err
	}
	return user, table, nil
}

func (f *tableFlags) openStore(cmd *cobra.Command) (*settings.Store, func() error, error) {
	cfg, err := appconfig.Load(f.cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Storage.Backend == appconfig.BackendMemory {
		return nil, nil, errors.New("settings commands need a persistent storage.backend")
	}
	port, closeFn, err := appconfig.OpenStorage(cfg.Storage, pslog.Ctx(cmd.Context()))
	if err != nil {
		return nil, nil, err
	}
	return settings.NewStore(port), closeFn, nil
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and maintain stored table settings",
	}
	cmd.AddCommand(newSettingsShowCmd())
	cmd.AddCommand(newSettingsResetCmd())
	cmd.AddCommand(newSettingsRemoveCmd())
	cmd.AddCommand(newSettingsMigrateCmd())
	return cmd
}

type settingsReport struct {
	Key        string                `json:"key"`
	Generation string                `json:"generation"`
	Record     *schema.TableSettings `json:"record"`
}

func newSettingsShowCmd() *cobra.Command {
	var flags tableFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings record of a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, table, err := flags.ref()
			if err != nil {
				return err
			}
			store, closeFn, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()
			record := store.Load(cmd.Context(), user, table)
			return writeReport(cmd.OutOrStdout(), settingsReport{
				Key:        settings.Key(user, table),
				Generation: migrate.Classify(record).String(),
				Record:     record,
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newSettingsResetCmd() *cobra.Command {
	var flags tableFlags
	var columns string
	var pageSize int
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace a table's settings with the defaults of its columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, table, err := flags.ref()
			if err != nil {
				return err
			}
			defs, err := parseColumns(columns)
			if err != nil {
				return err
			}
			store, closeFn, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()
			record := store.Reset(cmd.Context(), user, table, migrate.Defaults(defs, pageSize))
			return writeReport(cmd.OutOrStdout(), settingsReport{
				Key:        settings.Key(user, table),
				Generation: migrate.Classify(&record).String(),
				Record:     &record,
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&columns, "columns", "", "column definitions as id[=width][!] separated by commas; ! hides the column")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "default page size")
	_ = cmd.MarkFlagRequired("columns")
	return cmd
}

func newSettingsRemoveCmd() *cobra.Command {
	var flags tableFlags
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete the stored settings of a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, table, err := flags.ref()
			if err != nil {
				return err
			}
			store, closeFn, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()
			if !store.Remove(cmd.Context(), user, table) {
				return fmt.Errorf("remove %s failed", settings.Key(user, table))
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", settings.Key(user, table))
			return err
		},
	}
	flags.bind(cmd)
	return cmd
}

func newSettingsMigrateCmd() *cobra.Command {
	var flags tableFlags
	var columns string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade a legacy column map record to carry a dataGrid view state",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, table, err := flags.ref()
			if err != nil {
				return err
			}
			var defaults schema.ViewState
			if strings.TrimSpace(columns) != "" {
				defs, err := parseColumns(columns)
				if err != nil {
					return err
				}
				defaults = migrate.Defaults(defs, 0)
			}
			store, closeFn, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()
			record := store.Load(cmd.Context(), user, table)
			result := migrate.Resolve(record, defaults)
			if !result.NeedsUpgrade {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s is %s; nothing to migrate\n", settings.Key(user, table), result.Generation)
				return err
			}
			upgraded := migrate.Upgrade(*record, result.State)
			if !store.Save(cmd.Context(), user, table, upgraded) {
				return fmt.Errorf("save %s failed", settings.Key(user, table))
			}
			return writeReport(cmd.OutOrStdout(), settingsReport{
				Key:        settings.Key(user, table),
				Generation: migrate.Classify(&upgraded).String(),
				Record:     &upgraded,
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&columns, "columns", "", "optional column definitions supplying defaults, as for reset")
	return cmd
}

func writeReport(w io.Writer, report settingsReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// parseColumns reads "id[=width][!]" entries separated by commas.
func parseColumns(value string) ([]schema.ColumnDef, error) {
	var defs []schema.ColumnDef
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		def := schema.ColumnDef{}
		if strings.HasSuffix(part, "!") {
			def.Hidden = true
			part = strings.TrimSuffix(part, "!")
		}
		id, width, hasWidth := strings.Cut(part, "=")
		def.ID = schema.ColumnID(strings.TrimSpace(id))
		def.Header = string(def.ID)
		if hasWidth {
			parsed, err := strconv.ParseFloat(strings.TrimSpace(width), 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: invalid width %q", def.ID, width)
			}
			def.Width = parsed
		}
		defs = append(defs, def)
	}
	if err := schema.ValidateColumnDefs(defs); err != nil {
		return nil, err
	}
	return defs, nil
}
