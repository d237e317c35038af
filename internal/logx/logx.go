package logx

import (
	"context"

	"pkt.systems/gridstate/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	userKey contextKey = iota
	tableKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithUser annotates the logger with the user id if present.
func WithUser(ctx context.Context, userID schema.UserID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if userID != "" {
		if current, ok := ctx.Value(userKey).(schema.UserID); ok && current == userID {
			return log
		}
		log = log.With("user", userID)
	}
	return log
}

// WithUserTable annotates the logger with user and table identifiers.
func WithUserTable(ctx context.Context, userID schema.UserID, tableID schema.TableID) pslog.Logger {
	log := WithUser(ctx, userID)
	if tableID != "" {
		if current, ok := ctx.Value(tableKey).(schema.TableID); ok && current == tableID {
			return log
		}
		log = log.With("table", tableID)
	}
	return log
}

// WithColumn annotates the logger with a column id when available.
func WithColumn(log pslog.Logger, columnID schema.ColumnID) pslog.Logger {
	if columnID != "" {
		log = log.With("column", columnID)
	}
	return log
}

// ContextWithUser stores the user marker on the context for log de-duplication.
func ContextWithUser(ctx context.Context, userID schema.UserID) context.Context {
	if ctx == nil || userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userKey, userID)
}

// ContextWithTable stores the table marker on the context for log de-duplication.
func ContextWithTable(ctx context.Context, tableID schema.TableID) context.Context {
	if ctx == nil || tableID == "" {
		return ctx
	}
	return context.WithValue(ctx, tableKey, tableID)
}

// ContextWithUserTableLogger attaches the logger and user/table markers to the context.
func ContextWithUserTableLogger(ctx context.Context, log pslog.Logger, userID schema.UserID, tableID schema.TableID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithTable(ContextWithUser(ctx, userID), tableID)
}
