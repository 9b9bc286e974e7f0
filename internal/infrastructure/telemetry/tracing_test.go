package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fleetrent/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global tracer
// provider and restores the original on cleanup.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sr),
	)

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(originalProvider)
		_ = tp.Shutdown(context.Background())
	})

	return sr
}

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.get_balance")
	require.NotNil(t, span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.get_balance", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
}

func TestStartSpan_WithOptions(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "redis.get",
		telemetry.WithAttribute("cache_key", "balance:contract-1"),
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	require.NotNil(t, span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())

	var found bool
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "cache_key" && attr.Value.AsString() == "balance:contract-1" {
			found = true
		}
	}
	assert.True(t, found, "expected attribute 'cache_key' not found")
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "ledger", "record_payment")
	require.NotNil(t, span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.record_payment", spans[0].Name())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.create_charge")

	telemetry.SetAttributes(span,
		telemetry.SpanAttrChargeNumber, "CHG-2026-000041",
		"allocation_count", 3,
		"idempotent_replay", false,
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)

	attrMap := make(map[string]interface{})
	for _, attr := range spans[0].Attributes() {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}
	assert.Equal(t, "CHG-2026-000041", attrMap["charge_number"])
	assert.Equal(t, int64(3), attrMap["allocation_count"])
	assert.Equal(t, false, attrMap["idempotent_replay"])
}

func TestSetAttribute_WithUUID(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.record_payment")

	paymentID := uuid.New()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, paymentID)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)

	// uuid.UUID is a fmt.Stringer, so it lands as a string attribute
	var found bool
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "payment_id" && attr.Value.AsString() == paymentID.String() {
			found = true
		}
	}
	assert.True(t, found, "expected attribute 'payment_id' with UUID value not found")
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.cancel_charge")

	telemetry.RecordError(span, errors.New("charge already settled"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)

	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "charge already settled", spans[0].Status().Description)

	events := spans[0].Events()
	require.GreaterOrEqual(t, len(events), 1)
	assert.Equal(t, "exception", events[0].Name)
}

func TestRecordError_NilError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.get_ledger")
	telemetry.RecordError(span, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.record_payment")

	telemetry.AddEvent(span, "charge_settled",
		telemetry.SpanAttrChargeID, "chg-123",
		"applied_amount", "150.00",
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)

	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "charge_settled", events[0].Name)

	attrMap := make(map[string]interface{})
	for _, attr := range events[0].Attributes {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}
	assert.Equal(t, "chg-123", attrMap["charge_id"])
	assert.Equal(t, "150.00", attrMap["applied_amount"])
}

func TestNestedSpans(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parentSpan := telemetry.StartSpan(context.Background(), "ledger.record_payment")
	_, childSpan := telemetry.StartSpan(ctx, "ledger.allocate")
	childSpan.End()
	parentSpan.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)

	byName := make(map[string]sdktrace.ReadOnlySpan)
	for _, s := range spans {
		byName[s.Name()] = s
	}
	parent, ok := byName["ledger.record_payment"]
	require.True(t, ok, "parent span not found")
	child, ok := byName["ledger.allocate"]
	require.True(t, ok, "child span not found")

	assert.Equal(t, parent.SpanContext().TraceID(), child.SpanContext().TraceID())
	assert.Equal(t, parent.SpanContext().SpanID(), child.Parent().SpanID())
}

func TestNilSpanHelpersDoNotPanic(t *testing.T) {
	telemetry.RecordError(nil, errors.New("boom"))
	telemetry.SetAttributes(nil, "key", "value")
	telemetry.SetAttribute(nil, "key", "value")
	telemetry.AddEvent(nil, "event_name", "key", "value")
}

func TestAttributeTypes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.get_ledger")

	telemetry.SetAttributes(span,
		"string", "value",
		"int", 42,
		"int64", int64(100),
		"float64", 3.14,
		"bool", true,
		"string_slice", []string{"overdue", "pending"},
		"struct_falls_back", struct{ X int }{X: 1},
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)

	attrs := spans[0].Attributes()
	assert.Len(t, attrs, 7)
}

func TestSetAttributes_OddKeyValues(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.get_balance")

	// trailing unpaired key is dropped
	telemetry.SetAttributes(span,
		"key1", "value1",
		"key2", "value2",
		"orphan_key",
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Len(t, spans[0].Attributes(), 2)
}

func TestSetAttributes_NonStringKey(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.get_balance")

	// pairs with non-string keys are skipped
	telemetry.SetAttributes(span,
		"valid_key", "value",
		123, "invalid_key",
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Len(t, spans[0].Attributes(), 1)
}
