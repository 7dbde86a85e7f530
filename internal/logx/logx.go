package logx

import (
	"context"

	"pkt.systems/opsdeck/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	jobKey contextKey = iota
	modeKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithJob annotates the logger with the job id if present.
func WithJob(ctx context.Context, id schema.JobID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if id != "" {
		if current, ok := ctx.Value(jobKey).(schema.JobID); ok && current == id {
			return log
		}
		log = log.With("job", id)
	}
	return log
}

// WithMode annotates the logger with the mode id if present.
func WithMode(ctx context.Context, id schema.ModeID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if id != "" {
		if current, ok := ctx.Value(modeKey).(schema.ModeID); ok && current == id {
			return log
		}
		log = log.With("mode", id)
	}
	return log
}

// ContextWithJob stores the job marker on the context for log de-duplication.
func ContextWithJob(ctx context.Context, id schema.JobID) context.Context {
	if ctx == nil || id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKey, id)
}

// ContextWithMode stores the mode marker on the context for log de-duplication.
func ContextWithMode(ctx context.Context, id schema.ModeID) context.Context {
	if ctx == nil || id == "" {
		return ctx
	}
	return context.WithValue(ctx, modeKey, id)
}

// ContextWithModeLogger attaches the logger and mode marker to the context.
func ContextWithModeLogger(ctx context.Context, log pslog.Logger, id schema.ModeID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithMode(ctx, id)
}
