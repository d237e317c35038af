package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/gridstate/core"
	"pkt.systems/gridstate/internal/appconfig"
	"pkt.systems/gridstate/internal/format"
	"pkt.systems/gridstate/internal/settings"
	"pkt.systems/gridstate/schema"
	"pkt.systems/pslog"
)

type previewOptions struct {
	table     tableFlags
	rowsPath  string
	idField   string
	columns   string
	orderBy   string
	filter    string
	page      int
	pageSize  int
	viewport  float64
	offset    float64
	rowHeight float64
}

func newPreviewCmd() *cobra.Command {
	var opts previewOptions
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render a rows file through a table's stored view state",
		Long: "Render a YAML or JSON rows file through the stored view state of a table.\n" +
			"Sort, filter and page flags are applied as view changes and persisted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, opts)
		},
	}
	opts.table.bind(cmd)
	cmd.Flags().StringVarP(&opts.rowsPath, "rows", "r", "", "YAML or JSON file with a sequence of row mappings")
	cmd.Flags().StringVar(&opts.idField, "id-field", "id", "row field used as the row id")
	cmd.Flags().StringVar(&opts.columns, "columns", "", "column definitions as id[=width][!]; derived from the rows when empty")
	cmd.Flags().StringVar(&opts.orderBy, "order-by", "", "sort as an order_by string, e.g. \"amount desc, name\"")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "filter expression, e.g. name = \"alpha\"")
	cmd.Flags().IntVar(&opts.page, "page", -1, "page to show")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "rows per page")
	cmd.Flags().Float64Var(&opts.viewport, "viewport", 0, "viewport height; prints the virtual window of the page when > 0")
	cmd.Flags().Float64Var(&opts.offset, "offset", 0, "scroll offset for --viewport")
	cmd.Flags().Float64Var(&opts.rowHeight, "row-height", 0, "row height estimate for --viewport")
	_ = cmd.MarkFlagRequired("rows")
	return cmd
}

func runPreview(cmd *cobra.Command, opts previewOptions) error {
	ctx := cmd.Context()
	logger := pslog.Ctx(ctx)
	user, table, err := opts.table.ref()
	if err != nil {
		return err
	}
	file, err := os.Open(opts.rowsPath)
	if err != nil {
		return err
	}
	rows, err := format.ReadRows(file, schema.ColumnID(opts.idField))
	_ = file.Close()
	if err != nil {
		return err
	}
	defs := format.ColumnsFromRows(rows)
	if strings.TrimSpace(opts.columns) != "" {
		if defs, err = parseColumns(opts.columns); err != nil {
			return err
		}
	}
	if len(defs) == 0 {
		return fmt.Errorf("no columns: %s has no rows and --columns is empty", opts.rowsPath)
	}

	cfg, err := appconfig.Load(opts.table.cfgPath)
	if err != nil {
		return err
	}
	port, closeStorage, err := appconfig.OpenStorage(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStorage() }()
	service, err := core.NewService(cfg.Engine.Schema(), core.ServiceDeps{
		Store:  settings.NewStore(port),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	opened, err := service.OpenTable(ctx, schema.OpenTableRequest{UserID: user, TableID: table, Columns: defs})
	if err != nil {
		return err
	}
	ref := schema.TableRef{UserID: user, TableID: table}
	defer func() { _, _ = service.CloseTable(ctx, schema.CloseTableRequest{TableRef: ref}) }()
	if opened.Migrated {
		logger.Info("preview upgraded legacy settings", "user", user, "table", table)
	}
	snapshot := opened.Snapshot

	if opts.orderBy != "" {
		resp, err := service.ChangeSort(ctx, schema.ChangeSortRequest{TableRef: ref, OrderBy: opts.orderBy})
		if err != nil {
			return err
		}
		snapshot = resp.Snapshot
	}
	if opts.filter != "" {
		model := schema.FilterModel{}
		if snapshot.State.FilterModel != nil {
			model = *snapshot.State.Clone().FilterModel
		}
		model.Expression = opts.filter
		resp, err := service.ChangeFilter(ctx, schema.ChangeFilterRequest{TableRef: ref, Model: model})
		if err != nil {
			return err
		}
		snapshot = resp.Snapshot
	}
	if opts.page >= 0 || opts.pageSize > 0 {
		model := snapshot.State.PaginationModel
		if opts.page >= 0 {
			model.Page = opts.page
		}
		if opts.pageSize > 0 {
			model.PageSize = opts.pageSize
		}
		resp, err := service.ChangePagination(ctx, schema.ChangePaginationRequest{TableRef: ref, Model: model})
		if err != nil {
			return err
		}
		snapshot = resp.Snapshot
	}

	pageRows, matched, err := format.Apply(rows, defs, snapshot.State)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := format.Render(out, snapshot, pageRows); err != nil {
		return err
	}
	pagination := snapshot.State.PaginationModel
	pages := 1
	if pagination.PageSize > 0 && matched > 0 {
		pages = (matched + pagination.PageSize - 1) / pagination.PageSize
	}
	if _, err := fmt.Fprintf(out, "page %d of %d, %d of %d rows match, sort %q\n",
		pagination.Page+1, pages, matched, len(rows), core.FormatOrderBy(snapshot.State.SortModel)); err != nil {
		return err
	}

	if opts.viewport <= 0 {
		return nil
	}
	window, err := service.GetWindow(ctx, schema.GetWindowRequest{
		TableRef:     ref,
		RowCount:     len(pageRows),
		ScrollOffset: opts.offset,
		ViewportSize: opts.viewport,
		RowHeight:    opts.rowHeight,
	})
	if err != nil {
		return err
	}
	return writeWindow(cmd, window.Window)
}

func writeWindow(cmd *cobra.Command, window schema.Window) error {
	out := cmd.OutOrStdout()
	if window.Empty || len(window.Rows) == 0 {
		_, err := fmt.Fprintln(out, "window: no rows")
		return err
	}
	first, last := window.Rows[0].Index, window.Rows[len(window.Rows)-1].Index
	_, err := fmt.Fprintf(out, "window: rows %d..%d of total height %.0f, padding top %.0f bottom %.0f\n",
		first, last, window.TotalSize, window.PaddingTop, window.PaddingBottom)
	return err
}
