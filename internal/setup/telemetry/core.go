package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// errorCore forwards error logs to OpenTelemetry as spans.
type errorCore struct {
	zapcore.LevelEnabler
	tracer trace.Tracer
	fields []zapcore.Field
}

// NewCore creates a core that records every entry at Error or above as a span.
func NewCore() zapcore.Core {
	return &errorCore{
		LevelEnabler: zapcore.ErrorLevel,
		tracer:       otel.Tracer("github.com/robalyx/warden/logs"),
	}
}

func (c *errorCore) With(fields []zapcore.Field) zapcore.Core {
	return &errorCore{
		LevelEnabler: c.LevelEnabler,
		tracer:       c.tracer,
		fields:       append(c.fields[:len(c.fields):len(c.fields)], fields...),
	}
}

func (c *errorCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *errorCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	_, span := c.tracer.Start(context.Background(), "error."+category(ent))
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("log.message", ent.Message),
		attribute.String("log.level", ent.Level.String()),
		attribute.String("log.logger", ent.LoggerName),
		attribute.String("code.caller", ent.Caller.String()),
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range append(c.fields, fields...) {
		field.AddTo(enc)
	}
	for key, value := range enc.Fields {
		attrs = append(attrs, attribute.String("log.field."+key, toString(value)))
	}

	span.SetAttributes(attrs...)
	span.SetStatus(codes.Error, ent.Message)
	return nil
}

func (c *errorCore) Sync() error {
	return nil
}

// category groups errors by the package that logged them.
func category(ent zapcore.Entry) string {
	fn := ent.Caller.Function
	for _, name := range []string{
		"database", "redis", "governance", "enforcement", "cases", "appeal",
		"rogue", "ratelimit", "notify", "signal", "worker", "export", "setup",
	} {
		if strings.Contains(fn, "/internal/"+name) {
			return name
		}
	}
	return "application"
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
