package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func traceFunc(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func fieldValue(t *testing.T, entry observer.LoggedEntry, key string) (interface{}, bool) {
	t.Helper()
	m := entry.ContextMap()
	v, ok := m[key]
	return v, ok
}

func TestNewGormLogger_Defaults(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)

	require.NotNil(t, gl)
	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, defaultSlowThreshold, gl.slowThreshold)
	assert.True(t, gl.ignoreRecordNotFoundError)

	var _ gormlogger.Interface = gl
}

func TestNewGormLogger_Options(t *testing.T) {
	gl, _ := newObservedGormLogger(
		gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, 500*time.Millisecond, gl.slowThreshold)
	assert.False(t, gl.ignoreRecordNotFoundError)
}

func TestGormLogger_LogMode_ClonesWithoutMutating(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)

	clone := gl.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gl.level)

	cloned, ok := clone.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, cloned.level)
}

func TestGormLogger_LevelGating(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		emit    func(gl *GormLogger)
		wantMsg string
	}{
		{
			name:    "info passes at info level",
			level:   gormlogger.Info,
			emit:    func(gl *GormLogger) { gl.Info(context.Background(), "charge lookup %s", "ok") },
			wantMsg: "charge lookup ok",
		},
		{
			name:    "warn passes at warn level",
			level:   gormlogger.Warn,
			emit:    func(gl *GormLogger) { gl.Warn(context.Background(), "lock retry %d", 2) },
			wantMsg: "lock retry 2",
		},
		{
			name:    "error passes at error level",
			level:   gormlogger.Error,
			emit:    func(gl *GormLogger) { gl.Error(context.Background(), "allocation write failed") },
			wantMsg: "allocation write failed",
		},
		{
			name:  "info suppressed at silent level",
			level: gormlogger.Silent,
			emit:  func(gl *GormLogger) { gl.Info(context.Background(), "charge lookup") },
		},
		{
			name:  "warn suppressed at error level",
			level: gormlogger.Error,
			emit:  func(gl *GormLogger) { gl.Warn(context.Background(), "lock retry") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl, recorded := newObservedGormLogger(tt.level)

			tt.emit(gl)

			if tt.wantMsg == "" {
				assert.Empty(t, recorded.All())
				return
			}
			logs := recorded.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantMsg, logs[0].Message)
		})
	}
}

func TestGormLogger_Trace_Error(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), traceFunc("SELECT * FROM charges", 0), errors.New("connection reset"))

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "SQL Error", logs[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)

	sql, ok := fieldValue(t, logs[0], "sql")
	require.True(t, ok)
	assert.Equal(t, "SELECT * FROM charges", sql)
}

func TestGormLogger_Trace_RecordNotFound(t *testing.T) {
	t.Run("ignored by default", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), traceFunc("SELECT * FROM charges WHERE id = ?", 0), gormlogger.ErrRecordNotFound)

		assert.Empty(t, recorded.All())
	})

	t.Run("logged when ignore disabled", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Error, WithIgnoreRecordNotFoundError(false))

		gl.Trace(context.Background(), time.Now(), traceFunc("SELECT * FROM charges WHERE id = ?", 0), gormlogger.ErrRecordNotFound)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "SQL Error", logs[0].Message)
	})
}

func TestGormLogger_Trace_SlowQuery(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Nanosecond))

	begin := time.Now().Add(-time.Second)
	gl.Trace(context.Background(), begin, traceFunc("SELECT * FROM charges", 10), nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "SLOW SQL", logs[0].Message)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)

	threshold, ok := fieldValue(t, logs[0], "threshold")
	require.True(t, ok)
	assert.Equal(t, time.Nanosecond, threshold)
}

func TestGormLogger_Trace_SlowQueryDisabledByZeroThreshold(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(0))

	begin := time.Now().Add(-time.Second)
	gl.Trace(context.Background(), begin, traceFunc("SELECT * FROM charges", 10), nil)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_NormalQuery(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Info)

	gl.Trace(context.Background(), time.Now(), traceFunc("SELECT * FROM charges", 5), nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "SQL Query", logs[0].Message)
	assert.Equal(t, zapcore.DebugLevel, logs[0].Level)

	rows, ok := fieldValue(t, logs[0], "rows")
	require.True(t, ok)
	assert.Equal(t, int64(5), rows)
}

func TestGormLogger_Trace_Silent(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Silent)

	gl.Trace(context.Background(), time.Now(), traceFunc("SELECT * FROM charges", 5), nil)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_CorrelationFields(t *testing.T) {
	t.Run("request id attached when present", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Info)

		ctx := context.WithValue(context.Background(), RequestIDKey, "req-ledger-42")
		gl.Trace(ctx, time.Now(), traceFunc("SELECT * FROM payments", 1), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)

		requestID, ok := fieldValue(t, logs[0], "request_id")
		require.True(t, ok, "request_id should be in log fields")
		assert.Equal(t, "req-ledger-42", requestID)
	})

	t.Run("omitted on bare context", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Info)

		gl.Trace(context.Background(), time.Now(), traceFunc("SELECT * FROM payments", 1), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)

		m := logs[0].ContextMap()
		assert.NotContains(t, m, "request_id")
		assert.NotContains(t, m, "trace_id")
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
