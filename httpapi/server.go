package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/gridstate/core"
	"pkt.systems/gridstate/internal/logx"
	"pkt.systems/gridstate/schema"
)

// Server serves the table view HTTP API.
type Server struct {
	cfg        Config
	service    core.Service
	hub        *Hub
	basePath   string
	userHeader string
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, service core.Service, hub *Hub) *Server {
	header := strings.TrimSpace(cfg.UserHeader)
	if header == "" {
		header = DefaultUserHeader
	}
	if hub == nil {
		hub = NewHub(cfg.HistorySize)
	}
	return &Server{
		cfg:        cfg,
		service:    service,
		hub:        hub,
		basePath:   normalizeBasePath(cfg.BasePath),
		userHeader: header,
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tables/open", s.requireUser(s.handleOpen))
	mux.HandleFunc("GET /api/tables/snapshot", s.requireUser(s.handleSnapshot))
	mux.HandleFunc("POST /api/tables/close", s.requireUser(s.handleClose))
	mux.HandleFunc("POST /api/tables/reset", s.requireUser(s.handleReset))
	mux.HandleFunc("POST /api/tables/sort", s.requireUser(s.handleSort))
	mux.HandleFunc("POST /api/tables/filter", s.requireUser(s.handleFilter))
	mux.HandleFunc("POST /api/tables/visibility", s.requireUser(s.handleVisibility))
	mux.HandleFunc("POST /api/tables/pagination", s.requireUser(s.handlePagination))
	mux.HandleFunc("POST /api/tables/selection", s.requireUser(s.handleSelection))
	mux.HandleFunc("POST /api/tables/width", s.requireUser(s.handleWidth))
	mux.HandleFunc("POST /api/tables/order", s.requireUser(s.handleOrder))
	mux.HandleFunc("POST /api/tables/move", s.requireUser(s.handleMove))
	mux.HandleFunc("POST /api/tables/nudge", s.requireUser(s.handleNudge))
	mux.HandleFunc("GET /api/tables/window", s.requireUser(s.handleWindow))
	mux.HandleFunc("POST /api/tables/measure", s.requireUser(s.handleMeasure))
	mux.HandleFunc("GET /api/stream", s.requireUser(s.handleStream))

	return mountBasePath(s.basePath, withRequestLogging(mux, s.lookupUser))
}

type openRequest struct {
	Table    schema.TableID     `json:"table"`
	Columns  []schema.ColumnDef `json:"columns"`
	Defaults *schema.ViewState  `json:"defaults,omitempty"`
}

type openResponse struct {
	Snapshot schema.TableSnapshot `json:"snapshot"`
	Migrated bool                 `json:"migrated"`
}

type tableRequest struct {
	Table schema.TableID `json:"table"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req openRequest
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := s.service.OpenTable(r.Context(), schema.OpenTableRequest{
		UserID:   userID,
		TableID:  req.Table,
		Columns:  req.Columns,
		Defaults: req.Defaults,
	})
	if err != nil {
		s.fail(w, r, "open", err)
		return
	}
	writeJSON(w, http.StatusOK, openResponse{Snapshot: resp.Snapshot, Migrated: resp.Migrated})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	ref := tableRef(userID, schema.TableID(r.URL.Query().Get("table")))
	resp, err := s.service.GetSnapshot(r.Context(), schema.GetSnapshotRequest{TableRef: ref})
	s.writeSnapshot(w, r, "snapshot", resp, err)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req tableRequest
	if !readJSON(w, r, &req) {
		return
	}
	if _, err := s.service.CloseTable(r.Context(), schema.CloseTableRequest{TableRef: tableRef(userID, req.Table)}); err != nil {
		s.fail(w, r, "close", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req tableRequest
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := s.service.ResetTable(r.Context(), schema.ResetTableRequest{TableRef: tableRef(userID, req.Table)})
	s.writeSnapshot(w, r, "reset", resp, err)
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req struct {
		Table   schema.TableID   `json:"table"`
		Model   schema.SortModel `json:"model"`
		OrderBy string           `json:"orderBy"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := s.service.ChangeSort(r.Context(), schema.ChangeSortRequest{
		TableRef: tableRef(userID, req.Table),
		Model:    req.Model,
		OrderBy:  req.OrderBy,
	})
	s.writeSnapshot(w, r, "sort", resp, err)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req struct {
		Table schema.TableID     `json:"table"`
		Model schema.FilterModel `json:"model"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := s.service.ChangeFilter(r.Context(), schema.ChangeFilterRequest{
		TableRef: tableRef(userID, req.Table),
		Model:    req.Model,
	})
	s.writeSnapshot(w, r, "filter", resp, err)
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req struct {
		Table schema.TableID           `json:"table"`
		Model map[schema.ColumnID]bool `json:"model"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := s.service.ChangeVisibility(r.Context(), schema.ChangeVisibilityRequest{
		TableRef: tableRef(userID, req.Table),
		Model:    req.Model,
	})
	s.writeSnapshot(w, r, "visibility", resp, err)
}

func (s *Server) handlePagination(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req struct {
		Table schema.TableID         `json:"table"`
		Model schema.PaginationModel `json:"model"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := s.service.ChangePagination(r.Context(), schema.ChangePaginationRequest{
		TableRef: tableRef(userID, req.Table),
		Model:    req.Model,
	})
	s.writeSnapshot(w, r, "pagination", resp, err)
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req struct {
		Table schema.TableID           `json:"table"`
		Model schema.RowSelectionModel `json:"model"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := s.service.ChangeRowSelection(r.Context(), schema.ChangeRowSelectionRequest{
		TableRef: tableRef(userID, req.Table),
		Model:    req.Model,
	})
	s.writeSnapshot(w, r, "selection", resp, err)
}

func (s *Server) handleWidth(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req struct {
		Table  schema.TableID  `json:"table"`
		Column schema.ColumnID `json:"column"`
		Width  float64         `json:"width"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := s.service.ChangeColumnWidth(r.Context(), schema.ChangeColumnWidthRequest{
		TableRef: tableRef(userID, req.Table),
		ColumnID: req.Column,
		Width:    req.Width,
	})
	s.writeSnapshot(w, r, "width", resp, err)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req struct {
		Table       schema.TableID  `json:"table"`
		Column      schema.ColumnID `json:"column"`
		TargetIndex int             `json:"targetIndex"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := s.service.ChangeColumnOrder(r.Context(), schema.ChangeColumnOrderRequest{
		TableRef:    tableRef(userID, req.Table),
		ColumnID:    req.Column,
		TargetIndex: req.TargetIndex,
	})
	s.writeSnapshot(w, r, "order", resp, err)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req struct {
		Table  schema.TableID  `json:"table"`
		Source schema.ColumnID `json:"source"`
		Target schema.ColumnID `json:"target"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := s.service.MoveColumn(r.Context(), schema.MoveColumnRequest{
		TableRef: tableRef(userID, req.Table),
		Source:   req.Source,
		Target:   req.Target,
	})
	s.writeSnapshot(w, r, "move", resp, err)
}

func (s *Server) handleNudge(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req struct {
		Table  schema.TableID  `json:"table"`
		Column schema.ColumnID `json:"column"`
		Delta  int             `json:"delta"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := s.service.NudgeColumn(r.Context(), schema.NudgeColumnRequest{
		TableRef: tableRef(userID, req.Table),
		ColumnID: req.Column,
		Delta:    req.Delta,
	})
	s.writeSnapshot(w, r, "nudge", resp, err)
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	query := r.URL.Query()
	req := schema.GetWindowRequest{TableRef: tableRef(userID, schema.TableID(query.Get("table")))}
	var err error
	if req.RowCount, err = parseStrictInt(query.Get("rows"), 0); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("rows: %w", err))
		return
	}
	if req.Overscan, err = parseStrictInt(query.Get("overscan"), 0); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("overscan: %w", err))
		return
	}
	if req.RowHeight, err = parseRequiredFloat(query.Get("row_height"), 0); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("row_height: %w", err))
		return
	}
	if req.ScrollOffset, err = parseRequiredFloat(query.Get("offset"), 0); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("offset: %w", err))
		return
	}
	if req.ViewportSize, err = parseRequiredFloat(query.Get("viewport"), -1); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("viewport: %w", err))
		return
	}
	resp, err := s.service.GetWindow(r.Context(), req)
	if err != nil {
		s.fail(w, r, "window", err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Window)
}

func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	var req struct {
		Table schema.TableID  `json:"table"`
		Sizes map[int]float64 `json:"sizes"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := s.service.MeasureRows(r.Context(), schema.MeasureRowsRequest{
		TableRef: tableRef(userID, req.Table),
		Sizes:    req.Sizes,
	})
	if err != nil {
		s.fail(w, r, "measure", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totalSize": resp.TotalSize})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := logx.WithUser(r.Context(), userID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))

	ch, unsubscribe, seq, _ := s.hub.Subscribe(userID)
	defer unsubscribe()

	_ = writeSSEvent(w, StreamEvent{
		Type:      "ready",
		Timestamp: time.Now(),
	})

	replayCount := 0
	if lastID > 0 {
		for _, event := range s.hub.Replay(userID, lastID) {
			if event.Seq > seq {
				break
			}
			_ = writeSSEvent(w, event)
			replayCount++
		}
	}
	flusher.Flush()

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount)
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

func (s *Server) writeSnapshot(w http.ResponseWriter, r *http.Request, op string, resp schema.SnapshotResponse, err error) {
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Snapshot)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusForError(err)
	log := logx.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("http table operation failed", "op", op, "err", err)
	} else {
		log.Warn("http table operation rejected", "op", op, "status", status, "err", err)
	}
	writeError(w, status, err)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, schema.ErrTableNotOpen):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidUser),
		errors.Is(err, schema.ErrInvalidTable),
		errors.Is(err, schema.ErrInvalidColumn),
		errors.Is(err, schema.ErrDuplicateColumn),
		errors.Is(err, schema.ErrNoColumns),
		errors.Is(err, schema.ErrInvalidSort),
		errors.Is(err, schema.ErrInvalidFilter):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) requireUser(next func(http.ResponseWriter, *http.Request, schema.UserID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := schema.NormalizeUserID(schema.UserID(r.Header.Get(s.userHeader)))
		if err != nil {
			logx.Ctx(r.Context()).With("remote", clientIP(r)).Warn("http user invalid", "err", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}
		ctx := logx.ContextWithUser(r.Context(), userID)
		if table := strings.TrimSpace(r.URL.Query().Get("table")); table != "" {
			ctx = logx.ContextWithTable(ctx, schema.TableID(table))
		}
		next(w, r.WithContext(ctx), userID)
	}
}

func (s *Server) lookupUser(r *http.Request) schema.UserID {
	if s == nil || r == nil {
		return ""
	}
	userID, err := schema.NormalizeUserID(schema.UserID(r.Header.Get(s.userHeader)))
	if err != nil {
		return ""
	}
	return userID
}

func tableRef(userID schema.UserID, tableID schema.TableID) schema.TableRef {
	return schema.TableRef{UserID: userID, TableID: tableID}
}

func readJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeJSON(r.Body, target); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
		return false
	}
	return true
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]any{"error": "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

// parseStrictInt rejects malformed or out-of-range numbers; an empty value
// yields fallback.
func parseStrictInt(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

// parseRequiredFloat rejects malformed numbers; an empty value yields fallback.
func parseRequiredFloat(value string, fallback float64) (float64, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(value, 64)
}
