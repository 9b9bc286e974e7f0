package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	return zap.New(core), &buf
}

func TestWithContext(t *testing.T) {
	log, err := New(&Config{Format: "json"})
	require.NoError(t, err)

	ctx := WithContext(context.Background(), log)

	assert.NotNil(t, FromContext(ctx))
}

func TestFromContext_NotFound(t *testing.T) {
	log := FromContext(context.Background())

	// no-op logger, must not panic when used
	assert.NotNil(t, log)
	assert.NotPanics(t, func() {
		log.Info("probe")
	})
}

func TestFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
	log := FromContext(ctx)

	assert.NotNil(t, log)
	assert.NotPanics(t, func() {
		log.Info("probe")
	})
}

func TestWithRequestID(t *testing.T) {
	log := zap.NewNop()

	newCtx, newLogger := WithRequestID(context.Background(), log, "req-123")

	assert.NotNil(t, newLogger)
	assert.Equal(t, "req-123", GetRequestID(newCtx))
}

func TestWithTenantID(t *testing.T) {
	log := zap.NewNop()

	newCtx, newLogger := WithTenantID(context.Background(), log, "tenant-456")

	assert.NotNil(t, newLogger)
	assert.Equal(t, "tenant-456", GetTenantID(newCtx))
}

func TestGetRequestID_NotFound(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestGetTenantID_NotFound(t *testing.T) {
	assert.Empty(t, GetTenantID(context.Background()))
}

func TestContextChaining(t *testing.T) {
	log := zap.NewNop()
	ctx := context.Background()

	ctx, log = WithRequestID(ctx, log, "req-1")
	ctx, log = WithTenantID(ctx, log, "tenant-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "tenant-1", GetTenantID(ctx))
	assert.NotNil(t, log)
}

func TestMultipleWithRequestID(t *testing.T) {
	log := zap.NewNop()
	ctx := context.Background()

	ctx, _ = WithRequestID(ctx, log, "first-id")
	assert.Equal(t, "first-id", GetRequestID(ctx))

	ctx, _ = WithRequestID(ctx, log, "second-id")
	assert.Equal(t, "second-id", GetRequestID(ctx))
}

func TestContextKeys(t *testing.T) {
	assert.NotEqual(t, LoggerKey, RequestIDKey)
	assert.NotEqual(t, RequestIDKey, TenantIDKey)
	assert.NotEqual(t, LoggerKey, TenantIDKey)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestGetSpanID_NoSpan(t *testing.T) {
	assert.Empty(t, GetSpanID(context.Background()))
}

func TestGetTraceID_InvalidSpanContext(t *testing.T) {
	tp := noop.NewTracerProvider()
	ctx, span := tp.Tracer("probe").Start(context.Background(), "probe-span")
	defer span.End()

	// noop spans carry an invalid span context
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	assert.False(t, spanCtx.IsValid())

	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
}

func TestL_ReturnsContextLogger(t *testing.T) {
	cl := L(context.Background())

	assert.NotNil(t, cl)
	assert.NotNil(t, cl.logger)
}

func TestWithLogger_UsesProvidedLogger(t *testing.T) {
	log := zap.NewNop()
	cl := WithLogger(context.Background(), log)

	assert.Equal(t, log, cl.logger)
}

func TestContextLogger_With(t *testing.T) {
	log, _ := newBufferLogger()
	ctx := context.Background()
	cl := WithLogger(ctx, log)

	childCl := cl.With(zap.String("contract_id", "ct-1"))

	assert.NotNil(t, childCl)
	assert.Equal(t, ctx, childCl.ctx)
	assert.NotEqual(t, log, childCl.logger)
}

func TestContextLogger_LogLevels(t *testing.T) {
	cl := WithLogger(context.Background(), zap.NewNop())

	assert.NotPanics(t, func() {
		cl.Debug("debug message")
		cl.Info("info message")
		cl.Warn("warn message")
		cl.Error("error message")
	})
}

func TestContextLogger_EnrichesWithContextFields(t *testing.T) {
	log, buf := newBufferLogger()

	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, log, "req-123")
	ctx, _ = WithTenantID(ctx, log, "tenant-456")
	ctx = WithContext(ctx, log)

	L(ctx).Info("charge settled", zap.String("charge_id", "chg-9"))

	output := buf.String()
	assert.Contains(t, output, `"request_id":"req-123"`)
	assert.Contains(t, output, `"tenant_id":"tenant-456"`)
	assert.Contains(t, output, `"charge_id":"chg-9"`)
	assert.Contains(t, output, `"msg":"charge settled"`)
}

func TestContextLogger_EmptyContextFields(t *testing.T) {
	log, buf := newBufferLogger()

	WithLogger(context.Background(), log).Info("bare entry")

	output := buf.String()
	assert.Contains(t, output, `"msg":"bare entry"`)
	assert.NotContains(t, output, `"request_id":""`)
	assert.NotContains(t, output, `"tenant_id":""`)
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}

	assert.NotPanics(t, func() {
		cl.Info("probe")
		cl.With(zap.String("k", "v")).Info("probe")
	})
}

func TestContextLogger_Zap(t *testing.T) {
	cl := WithLogger(context.Background(), zap.NewNop())

	zapLogger := cl.Zap()

	assert.NotNil(t, zapLogger)
	assert.NotPanics(t, func() {
		zapLogger.Info("probe")
	})
}
