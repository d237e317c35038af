package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"pkt.systems/gridstate/internal/logx"
	"pkt.systems/gridstate/internal/persist"
	"pkt.systems/gridstate/internal/settings"
	"pkt.systems/gridstate/internal/virtual"
	"pkt.systems/gridstate/schema"
	"pkt.systems/pslog"
)

// service implements the core service behavior.
type service struct {
	cfg    schema.EngineConfig
	store  SettingsStore
	sink   EventSink
	logger pslog.Logger
	mu     sync.Mutex
	tables map[tableKey]*openTable
	clock  uint64
}

type tableKey struct {
	user  schema.UserID
	table schema.TableID
}

type openTable struct {
	ctrl      *Controller
	rows      *virtual.Virtualizer
	rowHeight float64
	lastUsed  uint64
}

// NewService constructs the core service implementation. Without a store,
// settings live in memory for the lifetime of the process.
func NewService(cfg schema.EngineConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Store == nil {
		deps.Store = settings.NewStore(persist.NewMemory())
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &service{
		cfg:    normalized,
		store:  deps.Store,
		sink:   deps.EventSink,
		logger: logger,
		tables: make(map[tableKey]*openTable),
	}, nil
}

func (s *service) OpenTable(ctx context.Context, req schema.OpenTableRequest) (schema.OpenTableResponse, error) {
	if ctx == nil {
		return schema.OpenTableResponse{}, errors.New("missing context")
	}
	key, err := normalizeKey(req.UserID, req.TableID)
	if err != nil {
		return schema.OpenTableResponse{}, err
	}
	log := logx.WithUserTable(ctx, key.user, key.table)
	log.Info("service table open start", "columns", len(req.Columns))

	columns := make([]schema.ColumnDef, len(req.Columns))
	for i, col := range req.Columns {
		if col.Width <= 0 {
			col.Width = s.cfg.DefaultColumnWidth
		}
		columns[i] = col
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, err := OpenController(ctx, s.store, key.user, key.table, ControllerOptions{
		Columns:  columns,
		Defaults: req.Defaults,
		PageSize: s.cfg.DefaultPageSize,
		OnChange: func(kind schema.ChangeKind, state schema.ViewState) {
			s.emitLocked(key, schema.ViewEvent{Type: schema.ViewEventChanged, Change: kind, State: state})
		},
		OnReload: func(state schema.ViewState) {
			s.emitLocked(key, schema.ViewEvent{Type: schema.ViewEventReset, State: state, Reload: true})
		},
	})
	if err != nil {
		log.Warn("service table open failed", "err", err)
		return schema.OpenTableResponse{}, err
	}
	entry := &openTable{
		ctrl:      ctrl,
		rows:      virtual.New(0, virtual.Fixed(s.cfg.RowHeightEstimate), s.cfg.Overscan),
		rowHeight: s.cfg.RowHeightEstimate,
	}
	if _, reopened := s.tables[key]; !reopened {
		s.evictLocked(log)
	}
	s.clock++
	entry.lastUsed = s.clock
	s.tables[key] = entry
	s.emitLocked(key, schema.ViewEvent{Type: schema.ViewEventOpened, State: ctrl.State()})
	log.Info("service table open ok", "migrated", ctrl.Migrated(), "open_tables", len(s.tables))
	return schema.OpenTableResponse{Snapshot: ctrl.Snapshot(), Migrated: ctrl.Migrated()}, nil
}

func (s *service) GetSnapshot(ctx context.Context, req schema.GetSnapshotRequest) (schema.SnapshotResponse, error) {
	return s.withTable(ctx, req.TableRef, func(ctx context.Context, ctrl *Controller) error { return nil })
}

func (s *service) CloseTable(ctx context.Context, req schema.CloseTableRequest) (schema.CloseTableResponse, error) {
	if ctx == nil {
		return schema.CloseTableResponse{}, errors.New("missing context")
	}
	key, err := normalizeKey(req.UserID, req.TableID)
	if err != nil {
		return schema.CloseTableResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[key]; !ok {
		return schema.CloseTableResponse{}, schema.ErrTableNotOpen
	}
	delete(s.tables, key)
	s.emitLocked(key, schema.ViewEvent{Type: schema.ViewEventClosed})
	logx.WithUserTable(ctx, key.user, key.table).Info("service table closed")
	return schema.CloseTableResponse{}, nil
}

func (s *service) ResetTable(ctx context.Context, req schema.ResetTableRequest) (schema.SnapshotResponse, error) {
	return s.withTable(ctx, req.TableRef, func(ctx context.Context, ctrl *Controller) error {
		ctrl.ResetToDefault(ctx)
		return nil
	})
}

func (s *service) ChangeSort(ctx context.Context, req schema.ChangeSortRequest) (schema.SnapshotResponse, error) {
	model := req.Model
	if req.OrderBy != "" {
		parsed, err := ParseOrderBy(req.OrderBy)
		if err != nil {
			return schema.SnapshotResponse{}, err
		}
		model = parsed
	}
	return s.withTable(ctx, req.TableRef, func(ctx context.Context, ctrl *Controller) error {
		ctrl.ChangeSort(ctx, model)
		return nil
	})
}

func (s *service) ChangeFilter(ctx context.Context, req schema.ChangeFilterRequest) (schema.SnapshotResponse, error) {
	return s.withTable(ctx, req.TableRef, func(ctx context.Context, ctrl *Controller) error {
		return ctrl.ChangeFilter(ctx, req.Model)
	})
}

func (s *service) ChangeVisibility(ctx context.Context, req schema.ChangeVisibilityRequest) (schema.SnapshotResponse, error) {
	return s.withTable(ctx, req.TableRef, func(ctx context.Context, ctrl *Controller) error {
		ctrl.ChangeVisibility(ctx, req.Model)
		return nil
	})
}

func (s *service) ChangePagination(ctx context.Context, req schema.ChangePaginationRequest) (schema.SnapshotResponse, error) {
	return s.withTable(ctx, req.TableRef, func(ctx context.Context, ctrl *Controller) error {
		ctrl.ChangePagination(ctx, req.Model)
		return nil
	})
}

func (s *service) ChangeRowSelection(ctx context.Context, req schema.ChangeRowSelectionRequest) (schema.SnapshotResponse, error) {
	return s.withTable(ctx, req.TableRef, func(ctx context.Context, ctrl *Controller) error {
		ctrl.ChangeRowSelection(ctx, req.Model)
		return nil
	})
}

func (s *service) ChangeColumnWidth(ctx context.Context, req schema.ChangeColumnWidthRequest) (schema.SnapshotResponse, error) {
	return s.withTable(ctx, req.TableRef, func(ctx context.Context, ctrl *Controller) error {
		return ctrl.ChangeColumnWidth(ctx, req.ColumnID, req.Width)
	})
}

func (s *service) ChangeColumnOrder(ctx context.Context, req schema.ChangeColumnOrderRequest) (schema.SnapshotResponse, error) {
	return s.withTable(ctx, req.TableRef, func(ctx context.Context, ctrl *Controller) error {
		return ctrl.ChangeColumnOrder(ctx, req.ColumnID, req.TargetIndex)
	})
}

func (s *service) MoveColumn(ctx context.Context, req schema.MoveColumnRequest) (schema.SnapshotResponse, error) {
	return s.withTable(ctx, req.TableRef, func(ctx context.Context, ctrl *Controller) error {
		_, err := ctrl.MoveColumn(ctx, req.Source, req.Target)
		return err
	})
}

func (s *service) NudgeColumn(ctx context.Context, req schema.NudgeColumnRequest) (schema.SnapshotResponse, error) {
	return s.withTable(ctx, req.TableRef, func(ctx context.Context, ctrl *Controller) error {
		_, err := ctrl.NudgeColumn(ctx, req.ColumnID, req.Delta)
		return err
	})
}

func (s *service) GetWindow(ctx context.Context, req schema.GetWindowRequest) (schema.GetWindowResponse, error) {
	if ctx == nil {
		return schema.GetWindowResponse{}, errors.New("missing context")
	}
	if req.RowCount < 0 || req.ViewportSize < 0 {
		return schema.GetWindowResponse{}, schema.ErrInvalidRequest
	}
	if req.RowCount > s.cfg.MaxRows {
		return schema.GetWindowResponse{}, fmt.Errorf("%w: rows %d exceed the limit of %d", schema.ErrInvalidRequest, req.RowCount, s.cfg.MaxRows)
	}
	if !finite(req.ScrollOffset) || !finite(req.ViewportSize) || !finite(req.RowHeight) {
		return schema.GetWindowResponse{}, fmt.Errorf("%w: offset, viewport and row height must be finite", schema.ErrInvalidRequest)
	}
	key, err := normalizeKey(req.UserID, req.TableID)
	if err != nil {
		return schema.GetWindowResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(key)
	if err != nil {
		return schema.GetWindowResponse{}, err
	}
	rowHeight := s.cfg.RowHeightEstimate
	if req.RowHeight > 0 {
		rowHeight = req.RowHeight
	}
	if rowHeight != entry.rowHeight {
		entry.rows.SetEstimate(virtual.Fixed(rowHeight))
		entry.rowHeight = rowHeight
	}
	overscan := s.cfg.Overscan
	if req.Overscan > 0 {
		overscan = req.Overscan
	}
	entry.rows.SetOverscan(overscan)
	entry.rows.SetCount(req.RowCount)
	window := entry.rows.Compute(req.ScrollOffset, req.ViewportSize)
	logx.WithUserTable(ctx, key.user, key.table).Trace("service window computed", "rows", len(window.Rows), "total", window.TotalSize)
	return schema.GetWindowResponse{Window: window}, nil
}

func (s *service) MeasureRows(ctx context.Context, req schema.MeasureRowsRequest) (schema.MeasureRowsResponse, error) {
	if ctx == nil {
		return schema.MeasureRowsResponse{}, errors.New("missing context")
	}
	key, err := normalizeKey(req.UserID, req.TableID)
	if err != nil {
		return schema.MeasureRowsResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(key)
	if err != nil {
		return schema.MeasureRowsResponse{}, err
	}
	for index, size := range req.Sizes {
		if !finite(size) {
			return schema.MeasureRowsResponse{}, fmt.Errorf("%w: row %d size must be finite", schema.ErrInvalidRequest, index)
		}
	}
	for index, size := range req.Sizes {
		entry.rows.Measure(index, size)
	}
	return schema.MeasureRowsResponse{TotalSize: entry.rows.TotalSize()}, nil
}

func (s *service) withTable(ctx context.Context, ref schema.TableRef, fn func(ctx context.Context, ctrl *Controller) error) (schema.SnapshotResponse, error) {
	if ctx == nil {
		return schema.SnapshotResponse{}, errors.New("missing context")
	}
	key, err := normalizeKey(ref.UserID, ref.TableID)
	if err != nil {
		return schema.SnapshotResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(key)
	if err != nil {
		logx.WithUserTable(ctx, key.user, key.table).Debug("service table lookup failed", "err", err)
		return schema.SnapshotResponse{}, err
	}
	if err := fn(ctx, entry.ctrl); err != nil {
		return schema.SnapshotResponse{}, err
	}
	return schema.SnapshotResponse{Snapshot: entry.ctrl.Snapshot()}, nil
}

func (s *service) lookupLocked(key tableKey) (*openTable, error) {
	entry, ok := s.tables[key]
	if !ok {
		return nil, schema.ErrTableNotOpen
	}
	s.clock++
	entry.lastUsed = s.clock
	return entry, nil
}

// evictLocked drops least recently used tables until one more fits.
func (s *service) evictLocked(log pslog.Logger) {
	if s.cfg.MaxOpenTables <= 0 {
		return
	}
	for len(s.tables) >= s.cfg.MaxOpenTables {
		var oldest tableKey
		var oldestUse uint64
		found := false
		for key, entry := range s.tables {
			if !found || entry.lastUsed < oldestUse {
				oldest, oldestUse, found = key, entry.lastUsed, true
			}
		}
		if !found {
			return
		}
		delete(s.tables, oldest)
		s.emitLocked(oldest, schema.ViewEvent{Type: schema.ViewEventClosed})
		log.Debug("service table evicted", "evicted_user", oldest.user, "evicted_table", oldest.table)
	}
}

func (s *service) emitLocked(key tableKey, event schema.ViewEvent) {
	if s.sink == nil {
		return
	}
	event.UserID = key.user
	event.TableID = key.table
	if entry, ok := s.tables[key]; ok {
		event.Generation = entry.ctrl.Generation()
	}
	s.sink.OnViewEvent(event)
}

func normalizeKey(userID schema.UserID, tableID schema.TableID) (tableKey, error) {
	user, err := schema.NormalizeUserID(userID)
	if err != nil {
		return tableKey{}, err
	}
	table, err := schema.NormalizeTableID(tableID)
	if err != nil {
		return tableKey{}, err
	}
	return tableKey{user: user, table: table}, nil
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
