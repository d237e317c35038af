package core

import (
	"context"

	"pkt.systems/gridstate/schema"
)

// Service is the transport-agnostic API for table view state.
type Service interface {
	OpenTable(ctx context.Context, req schema.OpenTableRequest) (schema.OpenTableResponse, error)
	GetSnapshot(ctx context.Context, req schema.GetSnapshotRequest) (schema.SnapshotResponse, error)
	CloseTable(ctx context.Context, req schema.CloseTableRequest) (schema.CloseTableResponse, error)
	ResetTable(ctx context.Context, req schema.ResetTableRequest) (schema.SnapshotResponse, error)
	ChangeSort(ctx context.Context, req schema.ChangeSortRequest) (schema.SnapshotResponse, error)
	ChangeFilter(ctx context.Context, req schema.ChangeFilterRequest) (schema.SnapshotResponse, error)
	ChangeVisibility(ctx context.Context, req schema.ChangeVisibilityRequest) (schema.SnapshotResponse, error)
	ChangePagination(ctx context.Context, req schema.ChangePaginationRequest) (schema.SnapshotResponse, error)
	ChangeRowSelection(ctx context.Context, req schema.ChangeRowSelectionRequest) (schema.SnapshotResponse, error)
	ChangeColumnWidth(ctx context.Context, req schema.ChangeColumnWidthRequest) (schema.SnapshotResponse, error)
	ChangeColumnOrder(ctx context.Context, req schema.ChangeColumnOrderRequest) (schema.SnapshotResponse, error)
	MoveColumn(ctx context.Context, req schema.MoveColumnRequest) (schema.SnapshotResponse, error)
	NudgeColumn(ctx context.Context, req schema.NudgeColumnRequest) (schema.SnapshotResponse, error)
	GetWindow(ctx context.Context, req schema.GetWindowRequest) (schema.GetWindowResponse, error)
	MeasureRows(ctx context.Context, req schema.MeasureRowsRequest) (schema.MeasureRowsResponse, error)
}
