package core

import (
	"context"
	"errors"
	"slices"

	"pkt.systems/gridstate/internal/filterexpr"
	"pkt.systems/gridstate/internal/logx"
	"pkt.systems/gridstate/internal/migrate"
	"pkt.systems/gridstate/internal/reorder"
	"pkt.systems/gridstate/schema"
)

// SettingsStore persists whole settings records. Implementations absorb
// storage failures: Load returns nil and Save reports false.
type SettingsStore interface {
	Save(ctx context.Context, userID schema.UserID, tableID schema.TableID, settings schema.TableSettings) bool
	Load(ctx context.Context, userID schema.UserID, tableID schema.TableID) *schema.TableSettings
	Remove(ctx context.Context, userID schema.UserID, tableID schema.TableID) bool
	Reset(ctx context.Context, userID schema.UserID, tableID schema.TableID, defaults schema.ViewState) schema.TableSettings
}

// ControllerOptions configures a controller.
type ControllerOptions struct {
	Columns  []schema.ColumnDef
	// Defaults overrides fields of the defaults derived from Columns. The
	// default column order is always the definition order.
	Defaults *schema.ViewState
	PageSize int
	// OnChange is called after every applied change.
	OnChange func(kind schema.ChangeKind, state schema.ViewState)
	// OnReload is called after a reset; the render surface must rehydrate.
	OnReload func(state schema.ViewState)
}

// Controller is the live view state of one (user, table). It is the only
// writer of that table's settings and is not safe for concurrent use.
type Controller struct {
	userID     schema.UserID
	tableID    schema.TableID
	columns    []schema.ColumnDef
	defaults   schema.ViewState
	state      schema.ViewState
	record     schema.TableSettings
	store      SettingsStore
	generation uint64
	migrated   bool
	onChange   func(kind schema.ChangeKind, state schema.ViewState)
	onReload   func(state schema.ViewState)
}

// OpenController hydrates a controller from the store. Legacy records are
// upgraded in place and a missing record is created from defaults.
func OpenController(ctx context.Context, store SettingsStore, userID schema.UserID, tableID schema.TableID, opts ControllerOptions) (*Controller, error) {
	if ctx == nil {
		return nil, errors.New("missing context")
	}
	if store == nil {
		return nil, errors.New("missing settings store")
	}
	userID, err := schema.NormalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	tableID, err = schema.NormalizeTableID(tableID)
	if err != nil {
		return nil, err
	}
	if err := schema.ValidateColumnDefs(opts.Columns); err != nil {
		return nil, err
	}
	log := logx.WithUserTable(ctx, userID, tableID)

	columns := slices.Clone(opts.Columns)
	defaults := migrate.Defaults(columns, opts.PageSize)
	if opts.Defaults != nil {
		defaults = migrate.Merge(defaults, *opts.Defaults)
	}
	defaults.ColumnOrderModel = schema.ColumnIDs(columns)

	c := &Controller{
		userID:   userID,
		tableID:  tableID,
		columns:  columns,
		defaults: defaults,
		store:    store,
		onChange: opts.OnChange,
		onReload: opts.OnReload,
	}

	stored := store.Load(ctx, userID, tableID)
	res := migrate.Resolve(stored, defaults)
	c.state = res.State
	c.state.ColumnOrderModel = migrate.SeedOrder(c.state.ColumnOrderModel, columns)

	switch res.Generation {
	case migrate.GenerationLegacy:
		c.record = migrate.Upgrade(*stored, c.state)
		c.migrated = store.Save(ctx, userID, tableID, c.record)
		log.Info("view state migrated", "columns", len(stored.Columns), "saved", c.migrated)
	case migrate.GenerationCurrent:
		c.record = stored.Clone()
		log.Debug("view state loaded", "columns", len(c.state.ColumnOrderModel))
	default:
		c.record = migrate.Record(c.state, nil)
		saved := store.Save(ctx, userID, tableID, c.record)
		log.Info("view state created", "columns", len(columns), "saved", saved)
	}
	return c, nil
}

// UserID returns the owning user.
func (c *Controller) UserID() schema.UserID { return c.userID }

// TableID returns the table id.
func (c *Controller) TableID() schema.TableID { return c.tableID }

// Columns returns the column definitions.
func (c *Controller) Columns() []schema.ColumnDef { return slices.Clone(c.columns) }

// State returns a copy of the live view state.
func (c *Controller) State() schema.ViewState { return c.state.Clone() }

// Defaults returns a copy of the default view state.
func (c *Controller) Defaults() schema.ViewState { return c.defaults.Clone() }

// Record returns a copy of the last record written (or loaded).
func (c *Controller) Record() schema.TableSettings { return c.record.Clone() }

// Generation increments on every reset.
func (c *Controller) Generation() uint64 { return c.generation }

// Migrated reports whether opening upgraded a legacy record.
func (c *Controller) Migrated() bool { return c.migrated }

// ChangeSort replaces the sort model.
func (c *Controller) ChangeSort(ctx context.Context, model schema.SortModel) {
	c.apply(ctx, schema.ChangeSort, ApplySort(model, c.columns))
}

// ChangeFilter replaces the filter model. An expression that does not check
// against the column ids is rejected with schema.ErrInvalidFilter.
func (c *Controller) ChangeFilter(ctx context.Context, model schema.FilterModel) error {
	if err := filterexpr.Validate(model.Expression, schema.ColumnIDs(c.columns)); err != nil {
		logx.WithUserTable(ctx, c.userID, c.tableID).Info("view filter rejected", "err", err)
		return err
	}
	c.apply(ctx, schema.ChangeFilter, ApplyFilter(model))
	return nil
}

// ChangeVisibility replaces the column visibility model.
func (c *Controller) ChangeVisibility(ctx context.Context, model map[schema.ColumnID]bool) {
	c.apply(ctx, schema.ChangeVisibility, ApplyVisibility(model))
}

// ChangePagination replaces the pagination model.
func (c *Controller) ChangePagination(ctx context.Context, model schema.PaginationModel) {
	c.apply(ctx, schema.ChangePagination, ApplyPagination(model))
}

// ChangeRowSelection replaces the row selection model.
func (c *Controller) ChangeRowSelection(ctx context.Context, model schema.RowSelectionModel) {
	c.apply(ctx, schema.ChangeRowSelection, ApplyRowSelection(model))
}

// ChangeColumnWidth resizes one column.
func (c *Controller) ChangeColumnWidth(ctx context.Context, id schema.ColumnID, width float64) error {
	if !c.known(id) {
		return schema.ErrInvalidColumn
	}
	c.apply(ctx, schema.ChangeColumnWidth, ApplyColumnWidth(id, width))
	return nil
}

// ChangeColumnOrder moves field to targetIndex. The order is seeded from the
// column definitions first so no column is lost.
func (c *Controller) ChangeColumnOrder(ctx context.Context, field schema.ColumnID, targetIndex int) error {
	if !c.known(field) {
		return schema.ErrInvalidColumn
	}
	seeded := migrate.SeedOrder(c.state.ColumnOrderModel, c.columns)
	c.apply(ctx, schema.ChangeColumnOrder, func(state schema.ViewState) schema.ViewState {
		state.ColumnOrderModel = seeded
		return ApplyColumnOrder(field, targetIndex)(state)
	})
	return nil
}

// MoveColumn drops source onto target with array-move semantics. It reports
// false, without a write, when source equals target or target is unknown.
func (c *Controller) MoveColumn(ctx context.Context, source, target schema.ColumnID) (bool, error) {
	if !c.known(source) {
		return false, schema.ErrInvalidColumn
	}
	order := migrate.SeedOrder(c.state.ColumnOrderModel, c.columns)
	var drag reorder.Session[schema.ColumnID]
	drag.Start(source, order)
	next, changed := drag.Drop(target, order)
	if !changed {
		logx.WithColumn(logx.WithUserTable(ctx, c.userID, c.tableID), source).Debug("view move ignored", "target", target)
		return false, nil
	}
	c.apply(ctx, schema.ChangeColumnOrder, SetColumnOrder(next))
	return true, nil
}

// NudgeColumn moves id by delta slots, matching a pointer drag over the same
// distance. It reports false, without a write, when nothing moves.
func (c *Controller) NudgeColumn(ctx context.Context, id schema.ColumnID, delta int) (bool, error) {
	if !c.known(id) {
		return false, schema.ErrInvalidColumn
	}
	order := migrate.SeedOrder(c.state.ColumnOrderModel, c.columns)
	next, changed := reorder.Nudge(order, id, delta)
	if !changed {
		return false, nil
	}
	c.apply(ctx, schema.ChangeColumnOrder, SetColumnOrder(next))
	return true, nil
}

// ResetToDefault overwrites the stored record with the defaults, discards
// all live overrides and asks the render surface to reload.
func (c *Controller) ResetToDefault(ctx context.Context) schema.ViewState {
	c.record = c.store.Reset(ctx, c.userID, c.tableID, c.defaults)
	c.state = c.defaults.Clone()
	c.generation++
	logx.WithUserTable(ctx, c.userID, c.tableID).Info("view state reset", "generation", c.generation)
	if c.onReload != nil {
		c.onReload(c.state.Clone())
	}
	return c.state.Clone()
}

func (c *Controller) apply(ctx context.Context, kind schema.ChangeKind, cmd Command) {
	c.state = cmd(c.state.Clone())
	c.record = migrate.Record(c.state, c.record.Columns)
	saved := c.store.Save(ctx, c.userID, c.tableID, c.record)
	logx.WithUserTable(ctx, c.userID, c.tableID).Debug("view state changed", "change", kind, "saved", saved)
	if c.onChange != nil {
		c.onChange(kind, c.state.Clone())
	}
}

func (c *Controller) known(id schema.ColumnID) bool {
	return slices.ContainsFunc(c.columns, func(col schema.ColumnDef) bool { return col.ID == id })
}
