// Package zapadapter bridges pgx query logging into a go.uber.org/zap.Logger,
// attaching the request id carried in the context when present.
package zapadapter

import (
	"context"

	"github.com/jackc/pgx/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

// WithRequestID returns a context carrying id for query log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID extracts the request id previously set with WithRequestID.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok
}

// Adapter implements pgx.Logger on top of zap.
type Adapter struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Adapter {
	return &Adapter{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (a *Adapter) Log(ctx context.Context, level pgx.LogLevel, msg string, data map[string]interface{}) {
	fields := make([]zapcore.Field, 0, len(data)+1)
	if id, ok := RequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	for k, v := range data {
		fields = append(fields, zap.Reflect(k, v))
	}

	switch level {
	case pgx.LogLevelTrace, pgx.LogLevelDebug:
		a.logger.Debug(msg, fields...)
	case pgx.LogLevelInfo:
		a.logger.Info(msg, fields...)
	case pgx.LogLevelWarn:
		a.logger.Warn(msg, fields...)
	default:
		a.logger.Error(msg, append(fields, zap.Stringer("PGX_LOG_LEVEL", level))...)
	}
}
